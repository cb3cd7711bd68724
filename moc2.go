// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"sort"

	"github.com/pkg/errors"
)

// MOC2Elem is one element of a 2-D MOC: an outer coverage (a set of ranges
// of the left quantity) paired with an inner MOC of the right quantity.
type MOC2Elem struct {
	Outer Ranges
	Inner RangeMOC
}

// RangeMOC2 is a 2-D MOC: a sequence of elements whose outer coverages are
// pairwise disjoint and sorted. The canonical form keeps the outer
// components as coarse as possible: two consecutive elements never carry
// equal inner MOCs with touching outer ranges.
type RangeMOC2 struct {
	qtyOuter, qtyInner     Qty
	depthOuter, depthInner uint8
	elems                  []MOC2Elem
}

// NewRangeMOC2 wraps already-canonical elements.
func NewRangeMOC2(qtyOuter Qty, depthOuter uint8, qtyInner Qty, depthInner uint8, elems []MOC2Elem) RangeMOC2 {
	return RangeMOC2{
		qtyOuter: qtyOuter, qtyInner: qtyInner,
		depthOuter: depthOuter, depthInner: depthInner,
		elems: elems,
	}
}

// QtyOuter returns the outer (first) quantity.
func (m2 RangeMOC2) QtyOuter() Qty { return m2.qtyOuter }

// QtyInner returns the inner (second) quantity.
func (m2 RangeMOC2) QtyInner() Qty { return m2.qtyInner }

// DepthOuter returns the declared outer depth.
func (m2 RangeMOC2) DepthOuter() uint8 { return m2.depthOuter }

// DepthInner returns the declared inner depth.
func (m2 RangeMOC2) DepthInner() uint8 { return m2.depthInner }

// Elems returns the canonical element sequence; it must not be modified.
func (m2 RangeMOC2) Elems() []MOC2Elem { return m2.elems }

// IsEmpty reports whether the 2-D MOC covers nothing.
func (m2 RangeMOC2) IsEmpty() bool { return len(m2.elems) == 0 }

// ContainsPair reports whether the (outer value, inner value) pair belongs
// to the coverage.
func (m2 RangeMOC2) ContainsPair(outer, inner uint64) bool {
	for _, e := range m2.elems {
		if e.Outer.ContainsVal(outer) {
			return e.Inner.ContainsVal(inner)
		}
	}
	return false
}

// Equal reports structural equality.
func (m2 RangeMOC2) Equal(other RangeMOC2) bool {
	if m2.qtyOuter != other.qtyOuter || m2.qtyInner != other.qtyInner ||
		m2.depthOuter != other.depthOuter || m2.depthInner != other.depthInner ||
		len(m2.elems) != len(other.elems) {
		return false
	}
	for i := range m2.elems {
		if !m2.elems[i].Outer.Equal(other.elems[i].Outer) ||
			!m2.elems[i].Inner.Ranges().Equal(other.elems[i].Inner.Ranges()) {
			return false
		}
	}
	return true
}

// FromFixedDepthPairs builds a 2-D MOC from (outer cell, inner cell) index
// pairs, both at their declared depths: outer cells sharing the same inner
// set coalesce into one element.
func FromFixedDepthPairs(qtyOuter Qty, depthOuter uint8, qtyInner Qty, depthInner uint8, pairs [][2]uint64) (RangeMOC2, error) {
	if err := qtyOuter.CheckDepth(depthOuter); err != nil {
		return RangeMOC2{}, err
	}
	if err := qtyInner.CheckDepth(depthInner); err != nil {
		return RangeMOC2{}, err
	}
	for _, p := range pairs {
		if err := qtyOuter.CheckIdx(depthOuter, p[0]); err != nil {
			return RangeMOC2{}, err
		}
		if err := qtyInner.CheckIdx(depthInner, p[1]); err != nil {
			return RangeMOC2{}, err
		}
	}
	sorted := make([][2]uint64, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	var elems []MOC2Elem
	flush := func(outerIdx uint64, inner RangeMOC) {
		outer := Ranges{qtyOuter.CellRange(depthOuter, outerIdx)}
		if n := len(elems); n > 0 &&
			elems[n-1].Inner.Ranges().Equal(inner.Ranges()) &&
			elems[n-1].Outer[len(elems[n-1].Outer)-1].Hi == outer[0].Lo {
			last := &elems[n-1]
			last.Outer[len(last.Outer)-1].Hi = outer[0].Hi
			return
		}
		elems = append(elems, MOC2Elem{Outer: outer, Inner: inner})
	}

	i := 0
	for i < len(sorted) {
		outerIdx := sorted[i][0]
		b := NewFixedDepthBuilder(qtyInner, depthInner, 0)
		for i < len(sorted) && sorted[i][0] == outerIdx {
			b.Push(sorted[i][1])
			i++
		}
		flush(outerIdx, b.MOC())
	}
	return RangeMOC2{
		qtyOuter: qtyOuter, qtyInner: qtyInner,
		depthOuter: depthOuter, depthInner: depthInner,
		elems: elems,
	}, nil
}

// Union returns the streaming OR of two 2-D MOCs: a sweep line over the
// outer boundaries emits, for every maximal window with a constant pair of
// active elements, the OR of the active inner MOCs; windows with equal
// inner sets coalesce.
func (m2 RangeMOC2) Union(other RangeMOC2) RangeMOC2 {
	if m2.qtyOuter != other.qtyOuter || m2.qtyInner != other.qtyInner {
		panic("moc: 2-D union over different quantity pairs")
	}
	out := RangeMOC2{
		qtyOuter:   m2.qtyOuter,
		qtyInner:   m2.qtyInner,
		depthOuter: maxu8(m2.depthOuter, other.depthOuter),
		depthInner: maxu8(m2.depthInner, other.depthInner),
	}

	type bound struct {
		lo, hi uint64
		elem   int
	}
	collect := func(m RangeMOC2) []bound {
		var bs []bound
		for ei, e := range m.elems {
			for _, r := range e.Outer {
				bs = append(bs, bound{lo: r.Lo, hi: r.Hi, elem: ei})
			}
		}
		sort.Slice(bs, func(i, j int) bool { return bs[i].lo < bs[j].lo })
		return bs
	}
	left, right := collect(m2), collect(other)

	// sweep over all boundary values
	cuts := make([]uint64, 0, 2*(len(left)+len(right)))
	for _, b := range left {
		cuts = append(cuts, b.lo, b.hi)
	}
	for _, b := range right {
		cuts = append(cuts, b.lo, b.hi)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	activeAt := func(bs []bound, v uint64) int {
		i := sort.Search(len(bs), func(i int) bool { return bs[i].hi > v })
		if i < len(bs) && bs[i].lo <= v {
			return bs[i].elem
		}
		return -1
	}

	appendWindow := func(w Range, inner RangeMOC) {
		if n := len(out.elems); n > 0 &&
			out.elems[n-1].Inner.Ranges().Equal(inner.Ranges()) &&
			out.elems[n-1].Outer[len(out.elems[n-1].Outer)-1].Hi >= w.Lo {
			last := &out.elems[n-1]
			if last.Outer[len(last.Outer)-1].Hi == w.Lo {
				last.Outer[len(last.Outer)-1].Hi = w.Hi
			} else {
				last.Outer = append(last.Outer, w)
			}
			return
		}
		// non-touching window with same inner still merges into one
		// element, keeping the outer partition maximal
		if n := len(out.elems); n > 0 && out.elems[n-1].Inner.Ranges().Equal(inner.Ranges()) {
			last := &out.elems[n-1]
			last.Outer = append(last.Outer, w)
			return
		}
		out.elems = append(out.elems, MOC2Elem{Outer: Ranges{w}, Inner: inner})
	}

	var prev uint64
	first := true
	lastL, lastR := -2, -2
	var lastInner RangeMOC
	for _, c := range cuts {
		if !first && c > prev {
			li := activeAt(left, prev)
			ri := activeAt(right, prev)
			if li >= 0 || ri >= 0 {
				if li != lastL || ri != lastR {
					lastL, lastR = li, ri
					switch {
					case li >= 0 && ri >= 0:
						lastInner = m2.elems[li].Inner.Union(other.elems[ri].Inner)
					case li >= 0:
						lastInner = m2.elems[li].Inner
					default:
						lastInner = other.elems[ri].Inner
					}
				}
				appendWindow(Range{prev, c}, lastInner)
			}
		}
		prev = c
		first = false
	}
	return out
}

func maxu8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// OuterFold returns the 1-D MOC of the outer quantity covering the outer
// ranges of every element whose inner MOC intersects sel (time_fold for an
// ST-MOC).
func (m2 RangeMOC2) OuterFold(sel RangeMOC) (RangeMOC, error) {
	if sel.Qty() != m2.qtyInner {
		return RangeMOC{}, errors.Wrapf(ErrUnsupported, "fold selector quantity %s, want %s", sel.Qty().Name(), m2.qtyInner.Name())
	}
	var rs []Range
	for _, e := range m2.elems {
		if e.Inner.Ranges().Intersects(sel.Ranges()) {
			rs = append(rs, e.Outer...)
		}
	}
	return RangeMOC{qty: m2.qtyOuter, depthMax: m2.depthOuter, ranges: Normalize(rs)}, nil
}

// InnerFold returns the 1-D MOC of the inner quantity covering the union of
// the inner MOCs of every element whose outer coverage intersects sel
// (space_fold for an ST-MOC).
func (m2 RangeMOC2) InnerFold(sel RangeMOC) (RangeMOC, error) {
	if sel.Qty() != m2.qtyOuter {
		return RangeMOC{}, errors.Wrapf(ErrUnsupported, "fold selector quantity %s, want %s", sel.Qty().Name(), m2.qtyOuter.Name())
	}
	its := make([]RangeIter, 0)
	depth := m2.depthInner
	for _, e := range m2.elems {
		if e.Outer.Intersects(sel.Ranges()) {
			its = append(its, NewRangeIter(e.Inner.Ranges()))
		}
	}
	return RangeMOC{qty: m2.qtyInner, depthMax: depth, ranges: Collect(MultiOr(its...))}, nil
}
