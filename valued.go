// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// ValuedCell is one entry of a multi-order value map: a HEALPix UNIQ cell
// carrying a non-negative value (a flux, a probability, ...).
type ValuedCell struct {
	Uniq  uint64
	Value float64
}

// ValuedCellsOptions drives the thresholded selection of
// FromValuedCells.
type ValuedCellsOptions struct {
	// FromThreshold and ToThreshold bound the running cumulative value of
	// the selected cells.
	FromThreshold float64
	ToThreshold   float64
	// Ascending selects lowest-density cells first instead of highest.
	Ascending bool
	// Strict excludes the cell whose cumulative value would land exactly
	// on ToThreshold.
	Strict bool
	// Split refines the cell crossing the threshold by recursive descent
	// into sub-cells, approaching the threshold from below.
	Split bool
	// ReverseRecursiveDescent visits sub-cells in reverse z-order during
	// the descent.
	ReverseRecursiveDescent bool
}

// FromValuedCells builds a spatial MOC by selecting cells of a multi-order
// value map: cells are ordered by value density, then accumulated while the
// running sum stays within the configured thresholds. Values are assumed
// proportional to the covered area. Overlapping uniq cells are rejected
// with ErrInconsistentMap.
func FromValuedCells(depth uint8, cells []ValuedCell, opt ValuedCellsOptions) (RangeMOC, error) {
	if err := Hpx.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}

	type entry struct {
		depth   uint8
		idx     uint64
		value   float64
		density float64
	}
	entries := make([]entry, 0, len(cells))
	var checked []Range
	for _, c := range cells {
		d, i := FromUniq(c.Uniq)
		if d > depth {
			return RangeMOC{}, errors.Wrapf(ErrInvalidDepth, "uniq cell depth %d > map depth %d", d, depth)
		}
		if err := Hpx.CheckIdx(d, i); err != nil {
			return RangeMOC{}, err
		}
		if c.Value < 0 {
			return RangeMOC{}, errors.Wrapf(ErrIndexOutOfBounds, "negative value %g for uniq %d", c.Value, c.Uniq)
		}
		nSub := uint64(1) << ((depth - d) << 1)
		entries = append(entries, entry{depth: d, idx: i, value: c.Value, density: c.Value / float64(nSub)})
		checked = append(checked, Hpx.CellRange(d, i))
	}

	// overlap detection: the normalized set must cover exactly the sum of
	// the individual cell extents
	var total uint64
	for _, r := range checked {
		total += r.Hi - r.Lo
	}
	if Normalize(checked).RangeSum() != total {
		return RangeMOC{}, ErrInconsistentMap
	}

	slices.SortStableFunc(entries, func(a, b entry) bool {
		if opt.Ascending {
			return a.density < b.density
		}
		return a.density > b.density
	})

	var rs []Range
	acc := 0.0
	i := 0
	// skip cells below the lower threshold
	for i < len(entries) && acc+entries[i].value <= opt.FromThreshold {
		acc += entries[i].value
		i++
	}
	// accumulate cells up to the upper threshold
	for i < len(entries) {
		e := entries[i]
		next := acc + e.value
		if next < opt.ToThreshold || (!opt.Strict && next == opt.ToThreshold) {
			rs = append(rs, Hpx.CellRange(e.depth, e.idx))
			acc = next
			i++
			continue
		}
		if opt.Split && e.depth < depth {
			rs = descend(rs, e.depth, e.idx, depth, e.value, opt.ToThreshold-acc, opt.ReverseRecursiveDescent)
		}
		break
	}
	return RangeMOC{qty: Hpx, depthMax: depth, ranges: Normalize(rs)}, nil
}

// descend recursively splits a cell into its four sub-cells, keeping
// sub-cells while their (evenly divided) value fits under target.
func descend(rs []Range, d uint8, idx uint64, depthMax uint8, cellVal, target float64, reverse bool) []Range {
	if target <= 0 {
		return rs
	}
	if d == depthMax {
		if cellVal <= target {
			rs = append(rs, Hpx.CellRange(d, idx))
		}
		return rs
	}
	subVal := cellVal / 4
	d++
	idx <<= 2
	order := [4]uint64{0, 1, 2, 3}
	if reverse {
		order = [4]uint64{3, 2, 1, 0}
	}
	for _, k := range order {
		if target-subVal >= 0 {
			rs = append(rs, Hpx.CellRange(d, idx+k))
			target -= subVal
			continue
		}
		// first sub-cell that no longer fits: split it further, drop the rest
		return descend(rs, d, idx+k, depthMax, subVal, target, reverse)
	}
	return rs
}
