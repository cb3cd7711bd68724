// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import "container/heap"

// headEntry is one input stream of a k-way merge, keyed by its current
// range. Ties on the lower bound break on the iterator index, which keeps
// the merge stable in iterator order.
type headEntry struct {
	r   Range
	it  RangeIter
	idx int
}

type headHeap []headEntry

func (h headHeap) Len() int { return len(h) }
func (h headHeap) Less(i, j int) bool {
	if h[i].r.Lo != h[j].r.Lo {
		return h[i].r.Lo < h[j].r.Lo
	}
	return h[i].idx < h[j].idx
}
func (h headHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *headHeap) Push(x interface{}) { *h = append(*h, x.(headEntry)) }
func (h *headHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// multiOrIter merges k range streams with a min-heap keyed on the current
// lower bound, coalescing as the binary OR does.
type multiOrIter struct {
	h      headHeap
	acc    Range
	hasAcc bool
}

// MultiOr returns the union of any number of range streams as a stream.
// Auxiliary memory is O(k).
func MultiOr(its ...RangeIter) RangeIter {
	m := &multiOrIter{h: make(headHeap, 0, len(its))}
	for i, it := range its {
		if r, ok := it.Next(); ok {
			m.h = append(m.h, headEntry{r: r, it: it, idx: i})
		}
	}
	heap.Init(&m.h)
	return m
}

func (it *multiOrIter) peelMin() (Range, bool) {
	if len(it.h) == 0 {
		return Range{}, false
	}
	e := it.h[0]
	if r, ok := e.it.Next(); ok {
		it.h[0].r = r
		heap.Fix(&it.h, 0)
	} else {
		heap.Pop(&it.h)
	}
	return e.r, true
}

func (it *multiOrIter) Next() (Range, bool) {
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

// UnionAll returns the union of any number of MOCs of the same quantity.
// The result depth is the deepest input depth; the union of zero MOCs is the
// empty MOC at depth 0 of the given quantity.
func UnionAll(q Qty, mocs ...RangeMOC) RangeMOC {
	var depth uint8
	its := make([]RangeIter, 0, len(mocs))
	for _, m := range mocs {
		if m.qty != q {
			panic("moc: UnionAll over MOCs of different quantities")
		}
		if m.depthMax > depth {
			depth = m.depthMax
		}
		its = append(its, m.Iter())
	}
	return RangeMOC{qty: q, depthMax: depth, ranges: Collect(MultiOr(its...))}
}
