// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import "github.com/molecula/moc/hpx"

func (m RangeMOC) requireSpatial(op string) {
	if m.qty != Hpx {
		panic("moc: " + op + " is only defined on spatial MOCs")
	}
}

// ExternalBorder returns the cells at DepthMax outside the MOC having at
// least one edge neighbour inside it. Spatial MOCs only.
func (m RangeMOC) ExternalBorder() RangeMOC {
	m.requireSpatial("ExternalBorder")
	b := NewFixedDepthBuilder(Hpx, m.depthMax, 0)
	seen := make(map[uint64]struct{})
	for _, c := range m.FixedDepthCells() {
		for _, nb := range hpx.EdgeNeighbours(m.depthMax, c) {
			if _, ok := seen[nb]; ok {
				continue
			}
			seen[nb] = struct{}{}
			if !m.ContainsCell(m.depthMax, nb) {
				b.Push(nb)
			}
		}
	}
	return b.MOC()
}

// InternalBorder returns the cells at DepthMax inside the MOC having at
// least one edge neighbour outside it. Spatial MOCs only.
func (m RangeMOC) InternalBorder() RangeMOC {
	m.requireSpatial("InternalBorder")
	b := NewFixedDepthBuilder(Hpx, m.depthMax, 0)
	for _, c := range m.FixedDepthCells() {
		for _, nb := range hpx.EdgeNeighbours(m.depthMax, c) {
			if !m.ContainsCell(m.depthMax, nb) {
				b.Push(c)
				break
			}
		}
	}
	return b.MOC()
}

// Extended returns the MOC grown by its external border.
func (m RangeMOC) Extended() RangeMOC {
	return m.Union(m.ExternalBorder())
}

// Contracted returns the MOC shrunk by its internal border.
func (m RangeMOC) Contracted() RangeMOC {
	return m.Minus(m.InternalBorder())
}
