// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"github.com/pkg/errors"
)

// RangeMOC is a Multi-Order Coverage map over a single quantity: a declared
// depth plus a normalized set of ranges in the deepest index space of the
// quantity. Every stored range endpoint is a multiple of the cell width at
// the declared depth. RangeMOC values are immutable after construction;
// operations return new values.
type RangeMOC struct {
	qty      Qty
	depthMax uint8
	ranges   Ranges
}

// NewRangeMOC builds a MOC from already-normalized, already-aligned ranges.
// It is the caller's responsibility to uphold both invariants; use
// FromRanges for checked construction.
func NewRangeMOC(q Qty, depthMax uint8, rs Ranges) RangeMOC {
	return RangeMOC{qty: q, depthMax: depthMax, ranges: rs}
}

// FromDepth returns the empty MOC at the given depth.
func FromDepth(q Qty, depthMax uint8) (RangeMOC, error) {
	if err := q.CheckDepth(depthMax); err != nil {
		return RangeMOC{}, err
	}
	return RangeMOC{qty: q, depthMax: depthMax}, nil
}

// FromCells builds a MOC from (depth, idx) cells, each promoted to its
// range, then normalized.
func FromCells(q Qty, depthMax uint8, cells []Cell) (RangeMOC, error) {
	if err := q.CheckDepth(depthMax); err != nil {
		return RangeMOC{}, err
	}
	rs := make([]Range, 0, len(cells))
	for _, c := range cells {
		if c.Depth > depthMax {
			return RangeMOC{}, errors.Wrapf(ErrInvalidDepth, "cell depth %d > declared depth %d", c.Depth, depthMax)
		}
		if err := q.CheckIdx(c.Depth, c.Idx); err != nil {
			return RangeMOC{}, err
		}
		rs = append(rs, q.CellRange(c.Depth, c.Idx))
	}
	return RangeMOC{qty: q, depthMax: depthMax, ranges: Normalize(rs)}, nil
}

// FromUniqs builds a spatial MOC from HEALPix UNIQ numbers; the declared
// depth is the deepest cell observed.
func FromUniqs(uniqs []uint64) (RangeMOC, error) {
	var depthMax uint8
	rs := make([]Range, 0, len(uniqs))
	for _, u := range uniqs {
		if u < 4 {
			return RangeMOC{}, errors.Wrapf(ErrIndexOutOfBounds, "uniq %d < 4", u)
		}
		d, i := FromUniq(u)
		if err := Hpx.CheckDepth(d); err != nil {
			return RangeMOC{}, err
		}
		if err := Hpx.CheckIdx(d, i); err != nil {
			return RangeMOC{}, err
		}
		if d > depthMax {
			depthMax = d
		}
		rs = append(rs, Hpx.CellRange(d, i))
	}
	return RangeMOC{qty: Hpx, depthMax: depthMax, ranges: Normalize(rs)}, nil
}

// FromRanges builds a MOC from arbitrary (possibly unsorted, overlapping)
// ranges. In strict mode, endpoints not aligned to the declared depth are
// rejected with ErrUnalignedRange; otherwise they are rounded outward to the
// enclosing aligned range.
func FromRanges(q Qty, depthMax uint8, rs []Range, strict bool) (RangeMOC, error) {
	if err := q.CheckDepth(depthMax); err != nil {
		return RangeMOC{}, err
	}
	mask := uint64(1)<<q.Shift(depthMax) - 1
	upper := q.UpperBound()
	cp := make([]Range, 0, len(rs))
	for _, r := range rs {
		if r.Hi > upper {
			return RangeMOC{}, errors.Wrapf(ErrIndexOutOfBounds, "range end %d > %d", r.Hi, upper)
		}
		if r.Lo&mask != 0 || r.Hi&mask != 0 {
			if strict {
				return RangeMOC{}, errors.Wrapf(ErrUnalignedRange, "[%d, %d) at depth %d", r.Lo, r.Hi, depthMax)
			}
			r = Range{r.Lo &^ mask, (r.Hi + mask) &^ mask}
			if r.Hi > upper {
				r.Hi = upper
			}
		}
		cp = append(cp, r)
	}
	return RangeMOC{qty: q, depthMax: depthMax, ranges: Normalize(cp)}, nil
}

// FromFixedDepthCells builds a MOC from cell indices all at the declared
// depth.
func FromFixedDepthCells(q Qty, depth uint8, idxs []uint64) (RangeMOC, error) {
	if err := q.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}
	b := NewFixedDepthBuilder(q, depth, len(idxs))
	for _, i := range idxs {
		if err := q.CheckIdx(depth, i); err != nil {
			return RangeMOC{}, err
		}
		b.Push(i)
	}
	return b.MOC(), nil
}

// Qty returns the quantity the MOC is defined on.
func (m RangeMOC) Qty() Qty { return m.qty }

// DepthMax returns the declared depth.
func (m RangeMOC) DepthMax() uint8 { return m.depthMax }

// Ranges returns the underlying normalized range set. The returned slice
// must not be modified.
func (m RangeMOC) Ranges() Ranges { return m.ranges }

// Len returns the number of stored ranges.
func (m RangeMOC) Len() int { return len(m.ranges) }

// IsEmpty reports whether the MOC covers no value.
func (m RangeMOC) IsEmpty() bool { return len(m.ranges) == 0 }

// CoverageFraction returns the covered fraction of the full domain, in
// [0, 1]. For space this is area/4π.
func (m RangeMOC) CoverageFraction() float64 {
	return float64(m.ranges.RangeSum()) / float64(m.qty.UpperBound())
}

// ContainsVal reports whether a deepest-level index belongs to the MOC.
func (m RangeMOC) ContainsVal(x uint64) bool { return m.ranges.ContainsVal(x) }

// ContainsCell reports whether the full cell (depth, idx) is inside the MOC.
func (m RangeMOC) ContainsCell(depth uint8, idx uint64) bool {
	return m.ranges.ContainsRange(m.qty.CellRange(depth, idx))
}

// ContainsMOC reports whether other is a subset of m.
func (m RangeMOC) ContainsMOC(other RangeMOC) bool {
	return m.ranges.Contains(other.ranges)
}

// IntersectsMOC reports whether m and other share at least one value.
func (m RangeMOC) IntersectsMOC(other RangeMOC) bool {
	return m.ranges.Intersects(other.ranges)
}

// Equal reports equality of depth, quantity and covered set.
func (m RangeMOC) Equal(other RangeMOC) bool {
	return m.qty == other.qty && m.depthMax == other.depthMax && m.ranges.Equal(other.ranges)
}

// EqualIgnoreDepth reports set equality regardless of declared depth.
func (m RangeMOC) EqualIgnoreDepth(other RangeMOC) bool {
	return m.qty == other.qty && m.ranges.Equal(other.ranges)
}

// MinDepth returns the smallest depth able to represent the covered set
// exactly, derived from the alignment of all range endpoints. The legacy
// UNIQ FITS writer emits this as MOCORDER.
func (m RangeMOC) MinDepth() uint8 {
	if m.IsEmpty() {
		return 0
	}
	var all uint64
	for _, r := range m.ranges {
		all |= r.Lo | r.Hi
	}
	dd := uint8(trailingZeros64(all)) / m.qty.Dim()
	if dd > m.qty.MaxDepth() {
		dd = m.qty.MaxDepth()
	}
	return m.qty.MaxDepth() - dd
}

// Cells decomposes the MOC into (depth, idx) cells of depth <= DepthMax,
// largest cells first at each position.
func (m RangeMOC) Cells() []Cell {
	return m.ranges.Cells(m.qty, m.depthMax)
}

// FixedDepthCells decomposes the MOC into cell indices all at DepthMax.
func (m RangeMOC) FixedDepthCells() []uint64 {
	shift := m.qty.Shift(m.depthMax)
	out := make([]uint64, 0, m.ranges.RangeSum()>>shift)
	for _, r := range m.ranges {
		for v := r.Lo >> shift; v < r.Hi>>shift; v++ {
			out = append(out, v)
		}
	}
	return out
}

// Uniqs returns the HEALPix UNIQ encoding of the cell decomposition.
// Only meaningful for spatial MOCs.
func (m RangeMOC) Uniqs() []uint64 {
	cells := m.Cells()
	out := make([]uint64, len(cells))
	for i, c := range cells {
		out[i] = ToUniq(c.Depth, c.Idx)
	}
	return out
}

// Iter returns a pull iterator over the ranges.
func (m RangeMOC) Iter() RangeIter { return &sliceIter{rs: m.ranges} }

// FixedDepthBuilder accumulates cell indices at a single depth and
// normalizes lazily: consecutive pushes extend the current range when they
// touch, and the buffer is sorted and merged on overflow and on MOC().
type FixedDepthBuilder struct {
	q     Qty
	depth uint8
	shift uint8
	buf   []Range
	sunk  Ranges
	cap   int
}

// NewFixedDepthBuilder returns a builder for cells at the given depth.
// sizeHint may be zero.
func NewFixedDepthBuilder(q Qty, depth uint8, sizeHint int) *FixedDepthBuilder {
	if sizeHint <= 0 {
		sizeHint = 4096
	}
	return &FixedDepthBuilder{q: q, depth: depth, shift: q.Shift(depth), cap: sizeHint}
}

// Push adds one cell index at the builder depth.
func (b *FixedDepthBuilder) Push(idx uint64) {
	lo := idx << b.shift
	hi := lo + (1 << b.shift)
	if n := len(b.buf); n > 0 && b.buf[n-1].Hi == lo {
		b.buf[n-1].Hi = hi
		return
	}
	b.buf = append(b.buf, Range{lo, hi})
	if len(b.buf) >= b.cap {
		b.flush()
	}
}

// PushRange adds an aligned range directly.
func (b *FixedDepthBuilder) PushRange(r Range) {
	if r.isEmpty() {
		return
	}
	if n := len(b.buf); n > 0 && b.buf[n-1].Hi == r.Lo {
		b.buf[n-1].Hi = r.Hi
		return
	}
	b.buf = append(b.buf, r)
	if len(b.buf) >= b.cap {
		b.flush()
	}
}

func (b *FixedDepthBuilder) flush() {
	if len(b.buf) == 0 {
		return
	}
	merged := Normalize(append(b.sunk.Clone(), b.buf...))
	b.sunk = merged
	b.buf = b.buf[:0]
}

// MOC finalizes the builder.
func (b *FixedDepthBuilder) MOC() RangeMOC {
	b.flush()
	return RangeMOC{qty: b.q, depthMax: b.depth, ranges: b.sunk}
}
