// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import "github.com/molecula/moc/hpx"

// unionFind is a plain weighted union-find over cell positions.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(i, j int) {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return
	}
	if uf.rank[ri] < uf.rank[rj] {
		ri, rj = rj, ri
	}
	uf.parent[rj] = ri
	if uf.rank[ri] == uf.rank[rj] {
		uf.rank[ri]++
	}
}

// splitClasses runs the union-find over the depth-max cells of the MOC.
// With indirect set, corner-touching cells are considered adjacent too.
func (m RangeMOC) splitClasses(indirect bool) ([]uint64, *unionFind) {
	cells := m.FixedDepthCells()
	pos := make(map[uint64]int, len(cells))
	for i, c := range cells {
		pos[c] = i
	}
	uf := newUnionFind(len(cells))
	for i, c := range cells {
		nbs := hpx.Neighbours(m.depthMax, c)
		for dir, nb := range nbs {
			if nb < 0 {
				continue
			}
			if !indirect {
				switch dir {
				case hpx.DirSW, hpx.DirNW, hpx.DirNE, hpx.DirSE:
				default:
					continue
				}
			}
			if j, ok := pos[uint64(nb)]; ok {
				uf.union(i, j)
			}
		}
	}
	return cells, uf
}

// Split partitions the MOC into its connected components. The direct
// variant (indirect=false) uses edge adjacency only; the indirect variant
// also connects corner-touching cells. Cell order is preserved within each
// component.
func (m RangeMOC) Split(indirect bool) []RangeMOC {
	m.requireSpatial("Split")
	cells, uf := m.splitClasses(indirect)
	builders := make(map[int]*FixedDepthBuilder)
	var roots []int
	for i, c := range cells {
		r := uf.find(i)
		b, ok := builders[r]
		if !ok {
			b = NewFixedDepthBuilder(Hpx, m.depthMax, 0)
			builders[r] = b
			roots = append(roots, r)
		}
		b.Push(c)
	}
	out := make([]RangeMOC, 0, len(roots))
	for _, r := range roots {
		out = append(out, builders[r].MOC())
	}
	return out
}

// SplitCount returns the number of connected components without
// materializing them.
func (m RangeMOC) SplitCount(indirect bool) int {
	m.requireSpatial("SplitCount")
	cells, uf := m.splitClasses(indirect)
	n := 0
	for i := range cells {
		if uf.find(i) == i {
			n++
		}
	}
	return n
}
