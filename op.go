// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import "math"

// RangeIter is a pull iterator over sorted, disjoint, non-touching ranges.
// Next returns the next range and true, or the zero Range and false once the
// stream is exhausted. All operator iterators in this package consume
// RangeIter sources and are themselves valid RangeIter implementations, so
// pipelines compose without materializing intermediate sets.
type RangeIter interface {
	Next() (Range, bool)
}

type sliceIter struct {
	rs Ranges
	i  int
}

func (it *sliceIter) Next() (Range, bool) {
	if it.i >= len(it.rs) {
		return Range{}, false
	}
	r := it.rs[it.i]
	it.i++
	return r, true
}

// NewRangeIter returns an iterator over an already-normalized range set.
func NewRangeIter(rs Ranges) RangeIter { return &sliceIter{rs: rs} }

// Collect drains an iterator into a Ranges value. The input contract (sorted,
// disjoint, non-touching) is trusted, so no normalization pass is made.
func Collect(it RangeIter) Ranges {
	var out Ranges
	for r, ok := it.Next(); ok; r, ok = it.Next() {
		out = append(out, r)
	}
	return out
}

// orIter merges two range streams, coalescing overlapping or touching
// ranges as it goes.
//
//	a: |---|   |---|
//	b:    |-----|      |--|
//	=> |----------|    |--|
type orIter struct {
	ai, bi   RangeIter
	a, b     Range
	aok, bok bool
	acc      Range
	hasAcc   bool
	init     bool
}

// Or returns the union of two range streams as a stream.
func Or(a, b RangeIter) RangeIter { return &orIter{ai: a, bi: b} }

// peelMin consumes and returns whichever input range has the smaller lower
// bound.
func (it *orIter) peelMin() (Range, bool) {
	if !it.init {
		it.a, it.aok = it.ai.Next()
		it.b, it.bok = it.bi.Next()
		it.init = true
	}
	switch {
	case it.aok && (!it.bok || it.a.Lo <= it.b.Lo):
		r := it.a
		it.a, it.aok = it.ai.Next()
		return r, true
	case it.bok:
		r := it.b
		it.b, it.bok = it.bi.Next()
		return r, true
	default:
		return Range{}, false
	}
}

func (it *orIter) Next() (Range, bool) {
	for {
		nxt, ok := it.peelMin()
		if !ok {
			if it.hasAcc {
				it.hasAcc = false
				return it.acc, true
			}
			return Range{}, false
		}
		if !it.hasAcc {
			it.acc, it.hasAcc = nxt, true
			continue
		}
		if nxt.Lo <= it.acc.Hi {
			if nxt.Hi > it.acc.Hi {
				it.acc.Hi = nxt.Hi
			}
		} else {
			out := it.acc
			it.acc = nxt
			return out, true
		}
	}
}

// andIter yields [max(lo), min(hi)) for every overlap, advancing the side
// with the smaller upper bound.
type andIter struct {
	ai, bi   RangeIter
	a, b     Range
	aok, bok bool
	init     bool
}

// And returns the intersection of two range streams as a stream.
func And(a, b RangeIter) RangeIter { return &andIter{ai: a, bi: b} }

func (it *andIter) Next() (Range, bool) {
	if !it.init {
		it.a, it.aok = it.ai.Next()
		it.b, it.bok = it.bi.Next()
		it.init = true
	}
	for it.aok && it.bok {
		lo := it.a.Lo
		if it.b.Lo > lo {
			lo = it.b.Lo
		}
		hi := it.a.Hi
		if it.b.Hi < hi {
			hi = it.b.Hi
		}
		if it.a.Hi <= it.b.Hi {
			it.a, it.aok = it.ai.Next()
		} else {
			it.b, it.bok = it.bi.Next()
		}
		if lo < hi {
			return Range{lo, hi}, true
		}
	}
	return Range{}, false
}

// mergeIter is the common driver behind MINUS and XOR: it sweeps the
// boundaries of both inputs, evaluates keep(inA, inB) on each elementary
// segment, and coalesces kept segments that touch.
type mergeIter struct {
	ai, bi   RangeIter
	keep     func(inA, inB bool) bool
	a, b     Range
	aok, bok bool
	pos      uint64 // sweep position: everything below is settled
	acc      Range
	hasAcc   bool
	init     bool
}

// Minus returns the stream of values of a not in b.
func Minus(a, b RangeIter) RangeIter {
	return &mergeIter{ai: a, bi: b, keep: func(inA, inB bool) bool { return inA && !inB }}
}

// Xor returns the symmetric difference of two range streams.
func Xor(a, b RangeIter) RangeIter {
	return &mergeIter{ai: a, bi: b, keep: func(inA, inB bool) bool { return inA != inB }}
}

// Merge returns the stream selected by an arbitrary boolean combination of
// the two inputs. keep(false, false) must be false.
func Merge(a, b RangeIter, keep func(inA, inB bool) bool) RangeIter {
	return &mergeIter{ai: a, bi: b, keep: keep}
}

func (it *mergeIter) Next() (Range, bool) {
	if !it.init {
		it.a, it.aok = it.ai.Next()
		it.b, it.bok = it.bi.Next()
		it.init = true
	}
	for it.aok || it.bok {
		// Elementary segment: starts at the sweep position or the smallest
		// upcoming lower bound, ends at the nearest boundary beyond it.
		var lo uint64
		switch {
		case it.aok && it.bok:
			lo = it.a.Lo
			if it.b.Lo < lo {
				lo = it.b.Lo
			}
		case it.aok:
			lo = it.a.Lo
		default:
			lo = it.b.Lo
		}
		if lo < it.pos {
			lo = it.pos
		}
		inA := it.aok && it.a.Lo <= lo
		inB := it.bok && it.b.Lo <= lo
		hi := uint64(math.MaxUint64)
		if it.aok {
			if it.a.Lo > lo {
				hi = it.a.Lo
			} else {
				hi = it.a.Hi
			}
		}
		if it.bok {
			if it.b.Lo > lo {
				if it.b.Lo < hi {
					hi = it.b.Lo
				}
			} else if it.b.Hi < hi {
				hi = it.b.Hi
			}
		}
		it.pos = hi
		if inA && it.a.Hi == hi {
			it.a, it.aok = it.ai.Next()
		}
		if inB && it.b.Hi == hi {
			it.b, it.bok = it.bi.Next()
		}
		if !it.keep(inA, inB) {
			continue
		}
		if it.hasAcc && lo == it.acc.Hi {
			it.acc.Hi = hi
			continue
		}
		if it.hasAcc {
			out := it.acc
			it.acc = Range{lo, hi}
			return out, true
		}
		it.acc, it.hasAcc = Range{lo, hi}, true
	}
	if it.hasAcc {
		it.hasAcc = false
		return it.acc, true
	}
	return Range{}, false
}

// complementIter streams the gaps of its source, bracketed by the domain
// bounds [0, upper).
type complementIter struct {
	src   RangeIter
	upper uint64
	prev  uint64
	done  bool
	init  bool
}

// Complement returns the stream of values of [0, upper) not in the source.
func Complement(src RangeIter, upper uint64) RangeIter {
	return &complementIter{src: src, upper: upper}
}

func (it *complementIter) Next() (Range, bool) {
	it.init = true
	for !it.done {
		r, ok := it.src.Next()
		if !ok {
			it.done = true
			break
		}
		gap := Range{it.prev, r.Lo}
		it.prev = r.Hi
		if !gap.isEmpty() {
			return gap, true
		}
	}
	if it.prev < it.upper {
		out := Range{it.prev, it.upper}
		it.prev = it.upper
		return out, true
	}
	return Range{}, false
}

// degradeIter rounds every range outward to the alignment of a coarser
// depth, re-merging entries that collide after rounding. The result is a
// superset of the input.
type degradeIter struct {
	src    RangeIter
	mask   uint64
	upper  uint64
	acc    Range
	hasAcc bool
}

// Degrade losslessly collapses a range stream to the given coarser depth for
// quantity q: lower bounds round down, upper bounds round up.
func Degrade(src RangeIter, q Qty, newDepth uint8) RangeIter {
	return &degradeIter{
		src:   src,
		mask:  uint64(1)<<q.Shift(newDepth) - 1,
		upper: q.UpperBound(),
	}
}

func (it *degradeIter) Next() (Range, bool) {
	for {
		r, ok := it.src.Next()
		if !ok {
			if it.hasAcc {
				it.hasAcc = false
				return it.acc, true
			}
			return Range{}, false
		}
		r = Range{r.Lo &^ it.mask, (r.Hi + it.mask) &^ it.mask}
		if r.Hi > it.upper {
			r.Hi = it.upper
		}
		if !it.hasAcc {
			it.acc, it.hasAcc = r, true
			continue
		}
		if r.Lo <= it.acc.Hi {
			if r.Hi > it.acc.Hi {
				it.acc.Hi = r.Hi
			}
			continue
		}
		out := it.acc
		it.acc = r
		return out, true
	}
}

// overlappedIter yields the ranges of left that intersect at least one range
// of right, unmodified.
type overlappedIter struct {
	li, ri RangeIter
	r      Range
	rok    bool
	init   bool
}

// Overlapped filters the left stream down to the ranges intersecting the
// right stream.
func Overlapped(left, right RangeIter) RangeIter {
	return &overlappedIter{li: left, ri: right}
}

func (it *overlappedIter) Next() (Range, bool) {
	if !it.init {
		it.r, it.rok = it.ri.Next()
		it.init = true
	}
	for {
		l, ok := it.li.Next()
		if !ok {
			return Range{}, false
		}
		for it.rok && it.r.Hi <= l.Lo {
			it.r, it.rok = it.ri.Next()
		}
		if it.rok && it.r.Lo < l.Hi {
			return l, true
		}
	}
}

func (m RangeMOC) binaryDepth(other RangeMOC) uint8 {
	if other.depthMax > m.depthMax {
		return other.depthMax
	}
	return m.depthMax
}

func (m RangeMOC) checkSameQty(other RangeMOC) {
	if m.qty != other.qty {
		panic("moc: binary operation on MOCs of different quantities")
	}
}

// Union returns m ∪ other. Both MOCs must share the same quantity; the
// result depth is the deeper of the two.
func (m RangeMOC) Union(other RangeMOC) RangeMOC {
	m.checkSameQty(other)
	return RangeMOC{qty: m.qty, depthMax: m.binaryDepth(other), ranges: Collect(Or(m.Iter(), other.Iter()))}
}

// Intersection returns m ∩ other.
func (m RangeMOC) Intersection(other RangeMOC) RangeMOC {
	m.checkSameQty(other)
	return RangeMOC{qty: m.qty, depthMax: m.binaryDepth(other), ranges: Collect(And(m.Iter(), other.Iter()))}
}

// Minus returns m \ other.
func (m RangeMOC) Minus(other RangeMOC) RangeMOC {
	m.checkSameQty(other)
	return RangeMOC{qty: m.qty, depthMax: m.binaryDepth(other), ranges: Collect(Minus(m.Iter(), other.Iter()))}
}

// SymmetricDifference returns m △ other.
func (m RangeMOC) SymmetricDifference(other RangeMOC) RangeMOC {
	m.checkSameQty(other)
	return RangeMOC{qty: m.qty, depthMax: m.binaryDepth(other), ranges: Collect(Xor(m.Iter(), other.Iter()))}
}

// Complement returns the complement of m over the full domain, at the same
// declared depth.
func (m RangeMOC) Complement() RangeMOC {
	return RangeMOC{qty: m.qty, depthMax: m.depthMax, ranges: Collect(Complement(m.Iter(), m.qty.UpperBound()))}
}

// Degraded returns a superset of m collapsed to the given coarser depth.
// Depths >= the declared depth return m unchanged; Refined declares a deeper
// depth.
func (m RangeMOC) Degraded(newDepth uint8) RangeMOC {
	if newDepth >= m.depthMax {
		return m
	}
	return RangeMOC{qty: m.qty, depthMax: newDepth, ranges: Collect(Degrade(m.Iter(), m.qty, newDepth))}
}

// Refined returns the same set declared at a deeper depth. The covered set
// is unchanged.
func (m RangeMOC) Refined(newDepth uint8) (RangeMOC, error) {
	if newDepth < m.depthMax {
		return RangeMOC{}, ErrInvalidDepth
	}
	if err := m.qty.CheckDepth(newDepth); err != nil {
		return RangeMOC{}, err
	}
	return RangeMOC{qty: m.qty, depthMax: newDepth, ranges: m.ranges}, nil
}
