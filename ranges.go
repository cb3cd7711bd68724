// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"sort"
)

// Range is a half-open interval [Lo, Hi) in the deepest index space of some
// quantity.
type Range struct {
	Lo, Hi uint64
}

func (r Range) isEmpty() bool { return r.Hi <= r.Lo }

// Ranges is a set of sorted, pairwise disjoint, non-touching half-open
// ranges. The zero value is an empty, valid set. Every mutating operation
// leaves the set normalized.
type Ranges []Range

// Normalize sorts the ranges by lower bound and merges overlapping or
// touching entries in a single pass. Empty entries (Hi <= Lo) are dropped.
// Normalize is idempotent.
func Normalize(rs []Range) Ranges {
	// Drop empties first so the merge pass only sees real intervals.
	out := rs[:0]
	for _, r := range rs {
		if !r.isEmpty() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Lo < out[j].Lo })
	if len(out) < 2 {
		return Ranges(out)
	}
	merged := out[:1]
	for _, r := range out[1:] {
		last := &merged[len(merged)-1]
		if r.Lo <= last.Hi {
			// overlapping or touching: extend the current range
			if r.Hi > last.Hi {
				last.Hi = r.Hi
			}
		} else {
			merged = append(merged, r)
		}
	}
	return Ranges(merged)
}

// IsEmpty reports whether the set contains no value.
func (rs Ranges) IsEmpty() bool { return len(rs) == 0 }

// RangeSum returns the total number of deepest-level values covered.
func (rs Ranges) RangeSum() uint64 {
	var sum uint64
	for _, r := range rs {
		sum += r.Hi - r.Lo
	}
	return sum
}

// ContainsVal reports whether the value x belongs to the set.
func (rs Ranges) ContainsVal(x uint64) bool {
	// binary search for the first range with Hi > x
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Hi > x })
	return i < len(rs) && rs[i].Lo <= x
}

// IntersectsRange reports whether the set has at least one value in common
// with [x.Lo, x.Hi).
func (rs Ranges) IntersectsRange(x Range) bool {
	if x.isEmpty() {
		return false
	}
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Hi > x.Lo })
	return i < len(rs) && rs[i].Lo < x.Hi
}

// ContainsRange reports whether [x.Lo, x.Hi) is entirely inside the set.
func (rs Ranges) ContainsRange(x Range) bool {
	if x.isEmpty() {
		return true
	}
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Hi > x.Lo })
	return i < len(rs) && rs[i].Lo <= x.Lo && x.Hi <= rs[i].Hi
}

// Contains reports whether every range of other is inside the set. Both
// sides being sorted, the scan never moves backward.
func (rs Ranges) Contains(other Ranges) bool {
	i := 0
	for _, x := range other {
		for i < len(rs) && rs[i].Hi <= x.Lo {
			i++
		}
		if i == len(rs) || rs[i].Lo > x.Lo || x.Hi > rs[i].Hi {
			return false
		}
	}
	return true
}

// Intersects reports whether the two sets share at least one value.
func (rs Ranges) Intersects(other Ranges) bool {
	i, j := 0, 0
	for i < len(rs) && j < len(other) {
		a, b := rs[i], other[j]
		switch {
		case a.Hi <= b.Lo:
			i++
		case b.Hi <= a.Lo:
			j++
		default:
			return true
		}
	}
	return false
}

// Equal reports set equality (same normalized ranges).
func (rs Ranges) Equal(other Ranges) bool {
	if len(rs) != len(other) {
		return false
	}
	for i := range rs {
		if rs[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (rs Ranges) Clone() Ranges {
	out := make(Ranges, len(rs))
	copy(out, rs)
	return out
}

// Cell is a tree cell: an index at a given depth.
type Cell struct {
	Depth uint8
	Idx   uint64
}

// CellRange converts the cell into its deepest-space range for quantity q.
func (c Cell) CellRange(q Qty) Range {
	return q.CellRange(c.Depth, c.Idx)
}

// AppendCells decomposes [lo, hi) into cells of depth <= depthMax for
// quantity q using the largest-aligned-block-first rule, lowest address
// first, appending to dst. The endpoints must be aligned to depthMax.
func AppendCells(q Qty, depthMax uint8, r Range, dst []Cell) []Cell {
	dim := uint(q.Dim())
	maxDepth := uint(q.MaxDepth())
	for lo := r.Lo; lo < r.Hi; {
		// largest aligned power-of-two block starting at lo
		ddAlign := trailingZeros64(lo) / dim
		ddSize := uint(msb64(r.Hi-lo)) / dim
		dd := ddAlign
		if ddSize < dd {
			dd = ddSize
		}
		if dd > maxDepth {
			dd = maxDepth
		}
		shift := dim * dd
		dst = append(dst, Cell{Depth: uint8(maxDepth - dd), Idx: lo >> shift})
		lo += 1 << shift
	}
	return dst
}

// Cells decomposes the whole set into cells of depth <= depthMax.
func (rs Ranges) Cells(q Qty, depthMax uint8) []Cell {
	var out []Cell
	for _, r := range rs {
		out = AppendCells(q, depthMax, r, out)
	}
	return out
}
