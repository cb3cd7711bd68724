// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package moc implements Multi-Order Coverage maps (MOCs): compact, lossless
// representations of subsets of a hierarchically subdivided one-dimensional
// index space. Supported quantities are the sphere (HEALPix NESTED), the time
// axis and a frequency axis, plus their Cartesian products. Sets are stored
// as sorted, disjoint, non-touching half-open ranges over the deepest index
// space of the quantity, and all set operations are implemented as streaming
// two-pointer merges over such ranges.
package moc

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// Qty identifies the quantity a MOC is defined on. The engine computes on
// uint64 indices in the deepest index space; Qty carries the static
// parameters (subdivision arity, number of base cells, maximum depth) that
// drive all depth and shift arithmetic.
type Qty uint8

const (
	// Hpx is the HEALPix NESTED spatial index (quad-tree, 12 base cells).
	Hpx Qty = iota
	// Time is the time index, in microseconds since JD=0 (bi-tree).
	Time
	// Freq is the frequency index, derived from the f64 bit pattern of a
	// frequency in Hz (bi-tree).
	Freq
)

const (
	// HpxMaxDepth is the deepest HEALPix order representable on 64 bits.
	HpxMaxDepth = 29
	// TimeMaxDepth is the deepest time order representable on 64 bits.
	TimeMaxDepth = 61
	// FreqMaxDepth is the deepest frequency order. Frequency MOCs reserve
	// 4 bits (sign + spare) on top of the 8-bit rebased exponent, hence 59.
	FreqMaxDepth = 59
)

// Name returns the quantity name used by the ASCII stream serialization.
func (q Qty) Name() string {
	switch q {
	case Hpx:
		return "HPX"
	case Time:
		return "TIME"
	default:
		return "FREQUENCY"
	}
}

// Prefix returns the one-letter quantity prefix used by the 2-D ASCII
// serialization.
func (q Qty) Prefix() byte {
	switch q {
	case Hpx:
		return 's'
	case Time:
		return 't'
	default:
		return 'f'
	}
}

// Dim is the number of index bits consumed per subdivision level: 2 for the
// HEALPix quad-tree, 1 for the time and frequency bi-trees.
func (q Qty) Dim() uint8 {
	if q == Hpx {
		return 2
	}
	return 1
}

// ND0 is the number of cells at depth 0: 12 HEALPix base cells, 2 otherwise.
func (q Qty) ND0() uint64 {
	if q == Hpx {
		return 12
	}
	return 2
}

// MaxDepth is the deepest admissible depth for the quantity.
func (q Qty) MaxDepth() uint8 {
	switch q {
	case Hpx:
		return HpxMaxDepth
	case Time:
		return TimeMaxDepth
	default:
		return FreqMaxDepth
	}
}

// MaxDepth32 is the deepest depth whose indices still fit on 32 bits:
// 13 for space, 29 for time, 27 for frequency. Codecs and the MOC-set store
// use it to pick the narrow integer width.
func (q Qty) MaxDepth32() uint8 {
	switch q {
	case Hpx:
		return 13
	case Time:
		return 29
	default:
		return 27
	}
}

// Shift returns the number of index bits below depth d, i.e. the bit shift
// converting a cell index at depth d into its range lower bound in the
// deepest index space.
func (q Qty) Shift(depth uint8) uint8 {
	return q.Dim() * (q.MaxDepth() - depth)
}

// NCells returns the number of cells at the given depth.
func (q Qty) NCells(depth uint8) uint64 {
	return q.ND0() << (q.Dim() * depth)
}

// UpperBound is the exclusive upper bound of the deepest index space:
// 12·4^29 for space, 2^62 for time, 2^60 for frequency.
func (q Qty) UpperBound() uint64 {
	return q.ND0() << (q.Dim() * q.MaxDepth())
}

// CheckDepth returns ErrInvalidDepth if depth exceeds the quantity maximum.
func (q Qty) CheckDepth(depth uint8) error {
	if depth > q.MaxDepth() {
		return errors.Wrapf(ErrInvalidDepth, "depth %d > max %d for %s", depth, q.MaxDepth(), q.Name())
	}
	return nil
}

// CheckIdx returns ErrIndexOutOfBounds if idx is not a valid cell index at
// the given depth.
func (q Qty) CheckIdx(depth uint8, idx uint64) error {
	if idx >= q.NCells(depth) {
		return errors.Wrapf(ErrIndexOutOfBounds, "cell %d at depth %d (max %d) for %s", idx, depth, q.NCells(depth)-1, q.Name())
	}
	return nil
}

// CellRange returns the half-open range covered by the cell (depth, idx) in
// the deepest index space.
func (q Qty) CellRange(depth uint8, idx uint64) Range {
	s := q.Shift(depth)
	return Range{idx << s, (idx + 1) << s}
}

// minDepth returns the coarsest depth at which deep is the first index of a
// cell: the depth is bounded below by the alignment of the deepest-space
// index.
func (q Qty) minDepth(deep uint64) uint8 {
	if deep == 0 {
		return 0
	}
	dd := uint8(trailingZeros64(deep)) / q.Dim()
	if dd > q.MaxDepth() {
		dd = q.MaxDepth()
	}
	return q.MaxDepth() - dd
}

// ToUniq encodes a spatial cell as the HEALPix UNIQ number 4·4^depth + idx.
// Only meaningful for the Hpx quantity.
func ToUniq(depth uint8, idx uint64) uint64 {
	return (4 << (depth << 1)) + idx
}

// FromUniq decodes a HEALPix UNIQ number into (depth, idx).
func FromUniq(uniq uint64) (depth uint8, idx uint64) {
	depth = uint8((msb64(uniq) - 2) >> 1)
	idx = uniq - (4 << (depth << 1))
	return depth, idx
}

// ToZUniq encodes (depth, idx) as a z-ordered uniq: a single integer whose
// natural ordering follows the global cell ordering independently of depth.
// The cell index is followed by a sentinel 1 bit, then zero padding down to
// the deepest level.
func (q Qty) ToZUniq(depth uint8, idx uint64) uint64 {
	return (idx<<1 | 1) << q.Shift(depth)
}

// FromZUniq decodes a z-ordered uniq into (depth, idx).
func (q Qty) FromZUniq(zuniq uint64) (depth uint8, idx uint64) {
	tz := uint8(trailingZeros64(zuniq))
	dd := tz / q.Dim()
	return q.MaxDepth() - dd, zuniq >> (tz + 1)
}

// f64 bit masks used by the frequency hash.
const (
	f64SignBitMask     = uint64(0x8000000000000000)
	f64ExponentBitMask = uint64(0x7FF) << 52
	f64MantissaBitMask = ^(uint64(0xFFF) << 52)
)

// FreqMinHz and FreqMaxHz bound the frequencies representable by a F-MOC
// index: the 8-bit rebased f64 exponent spans [929, 1184].
const (
	FreqMinHz = 5.048709793414476e-29
	FreqMaxHz = 5.846006549323611e+48
)

// Freq2Hash converts a frequency in Hz into its deepest-level F-MOC index.
// The f64 exponent is rebased by 929 so that the admissible range fits in 8
// bits; the mantissa is kept unchanged.
func Freq2Hash(freqHz float64) (uint64, error) {
	if !(freqHz >= FreqMinHz) || freqHz >= FreqMaxHz {
		return 0, errors.Wrapf(ErrIndexOutOfBounds, "frequency %g Hz outside [%g, %g)", freqHz, float64(FreqMinHz), float64(FreqMaxHz))
	}
	bits := math.Float64bits(freqHz)
	exponent := (bits & f64ExponentBitMask) >> 52
	exponent -= 929
	return (bits & ^f64ExponentBitMask) | (exponent << 52), nil
}

// Hash2Freq converts a deepest-level F-MOC index back into a frequency in Hz.
func Hash2Freq(hash uint64) float64 {
	exponent := (hash & f64ExponentBitMask) >> 52
	exponent += 929
	return math.Float64frombits((hash & ^f64ExponentBitMask) | (exponent << 52))
}

// msb64 returns the position of the most significant set bit.
func msb64(v uint64) uint {
	return uint(bits.Len64(v)) - 1
}

func trailingZeros64(v uint64) uint {
	return uint(bits.TrailingZeros64(v))
}
