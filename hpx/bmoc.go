// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package hpx

// BMOCCell is one cell of a BMOC: a NESTED cell at some depth plus a flag
// telling whether the cell lies fully inside the rasterized region (Full)
// or only overlaps its border.
type BMOCCell struct {
	Depth uint8
	Idx   uint64
	Full  bool
}

// BMOC is the transient cell-level coverage produced by region
// rasterization, z-ordered. It is never persisted; the MOC engine converts
// it to ranges.
type BMOC struct {
	DepthMax uint8
	Cells    []BMOCCell
}

func (b *BMOC) push(depth uint8, idx uint64, full bool) {
	b.Cells = append(b.Cells, BMOCCell{Depth: depth, Idx: idx, Full: full})
}
