// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package hpx

import (
	"math"
	"math/rand"
	"testing"
)

func TestHashCenterRoundTrip(t *testing.T) {
	// the center of any cell must hash back to the cell
	rnd := rand.New(rand.NewSource(5))
	for _, depth := range []uint8{0, 1, 3, 6, 10} {
		n := NCells(depth)
		for trial := 0; trial < 300; trial++ {
			pix := uint64(rnd.Int63n(int64(n)))
			lon, lat := Center(depth, pix)
			if got := Hash(depth, lon, lat); got != pix {
				t.Fatalf("depth %d: center of %d hashes to %d", depth, pix, got)
			}
		}
	}
}

func TestHashAllDepth0(t *testing.T) {
	// every direction lands in one of the 12 base cells
	rnd := rand.New(rand.NewSource(6))
	for i := 0; i < 1000; i++ {
		lon := rnd.Float64() * 2 * math.Pi
		lat := math.Asin(2*rnd.Float64() - 1)
		pix := Hash(0, lon, lat)
		if pix >= 12 {
			t.Fatalf("base cell %d for (%g, %g)", pix, lon, lat)
		}
	}
}

func TestHashHierarchyConsistent(t *testing.T) {
	// the deep cell of a direction must be a descendant of its shallow cell
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		lon := rnd.Float64() * 2 * math.Pi
		lat := math.Asin(2*rnd.Float64() - 1)
		shallow := Hash(3, lon, lat)
		deep := Hash(9, lon, lat)
		if Parent(9, deep, 3) != shallow {
			t.Fatalf("cell %d at depth 9 not inside %d at depth 3", deep, shallow)
		}
	}
}

func TestVerticesSurroundCenter(t *testing.T) {
	rnd := rand.New(rand.NewSource(8))
	for _, depth := range []uint8{2, 5, 9} {
		for trial := 0; trial < 100; trial++ {
			pix := uint64(rnd.Int63n(int64(NCells(depth))))
			clon, clat := Center(depth, pix)
			r := CircumRadius(depth, pix)
			if r <= 0 {
				t.Fatalf("non-positive circumradius at depth %d", depth)
			}
			for _, v := range Vertices(depth, pix) {
				d := Dist(clon, clat, v[0], v[1])
				if d > r {
					t.Fatalf("vertex outside circumradius at depth %d pix %d", depth, pix)
				}
				if d == 0 {
					t.Fatalf("vertex equals center at depth %d pix %d", depth, pix)
				}
			}
		}
	}
}

func TestNeighboursSymmetric(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	for _, depth := range []uint8{1, 3, 6} {
		for trial := 0; trial < 200; trial++ {
			pix := uint64(rnd.Int63n(int64(NCells(depth))))
			for _, nb := range Neighbours(depth, pix) {
				if nb < 0 {
					continue
				}
				back := Neighbours(depth, uint64(nb))
				found := false
				for _, b := range back {
					if b == int64(pix) {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("depth %d: %d neighbours %d but not vice versa", depth, pix, nb)
				}
			}
		}
	}
}

func TestNeighboursDistinct(t *testing.T) {
	rnd := rand.New(rand.NewSource(10))
	for trial := 0; trial < 200; trial++ {
		pix := uint64(rnd.Int63n(int64(NCells(4))))
		seen := make(map[int64]bool)
		n := 0
		for _, nb := range Neighbours(4, pix) {
			if nb < 0 {
				continue
			}
			if nb == int64(pix) {
				t.Fatalf("cell %d is its own neighbour", pix)
			}
			if seen[nb] {
				t.Fatalf("cell %d has duplicate neighbour %d", pix, nb)
			}
			seen[nb] = true
			n++
		}
		if n < 7 || n > 8 {
			t.Fatalf("cell %d has %d neighbours", pix, n)
		}
	}
}

func TestEdgeNeighboursAdjacent(t *testing.T) {
	// edge neighbours of an interior cell are at roughly one cell size
	const depth = 6
	pix := Hash(depth, 0, 0) // middle of base face 4
	clon, clat := Center(depth, pix)
	r := CircumRadius(depth, pix)
	for _, nb := range EdgeNeighbours(depth, pix) {
		nlon, nlat := Center(depth, nb)
		d := Dist(clon, clat, nlon, nlat)
		if d > 3*r {
			t.Fatalf("edge neighbour %d too far: %g", nb, d)
		}
	}
}

func TestRingToNestPermutation(t *testing.T) {
	// ring to nest must be a bijection at any depth
	for _, depth := range []uint8{0, 1, 2, 3, 5} {
		n := NCells(depth)
		seen := make([]bool, n)
		for ring := uint64(0); ring < n; ring++ {
			nest := RingToNest(depth, ring)
			if nest >= n {
				t.Fatalf("depth %d: ring %d maps to %d >= %d", depth, ring, nest, n)
			}
			if seen[nest] {
				t.Fatalf("depth %d: nested %d hit twice", depth, nest)
			}
			seen[nest] = true
		}
	}
}

func TestRingToNestDepth0(t *testing.T) {
	// at depth 0 both schemes number the 12 base cells identically
	for i := uint64(0); i < 12; i++ {
		if got := RingToNest(0, i); got != i {
			t.Fatalf("depth 0: ring %d -> %d", i, got)
		}
	}
}

func TestRingToNestPreservesDirection(t *testing.T) {
	// converting the index must preserve the position on the sky: the
	// nested center must hash back to the nested index
	const depth = 3
	for ring := uint64(0); ring < NCells(depth); ring++ {
		nest := RingToNest(depth, ring)
		lon, lat := Center(depth, nest)
		if Hash(depth, lon, lat) != nest {
			t.Fatalf("ring %d: inconsistent nested cell %d", ring, nest)
		}
	}
}

func TestDist(t *testing.T) {
	if d := Dist(0, 0, math.Pi, 0); math.Abs(d-math.Pi) > 1e-12 {
		t.Fatalf("antipodal distance: %g", d)
	}
	if d := Dist(0, 0, 0, math.Pi/2); math.Abs(d-math.Pi/2) > 1e-12 {
		t.Fatalf("pole distance: %g", d)
	}
	if d := Dist(1, 0.5, 1, 0.5); d != 0 {
		t.Fatalf("zero distance: %g", d)
	}
}

func TestConeCoverageBasics(t *testing.T) {
	b := ConeCoverage(6, 1.0, 0.3, 0.05)
	if len(b.Cells) == 0 {
		t.Fatal("empty cone coverage")
	}
	centerCell := Hash(6, 1.0, 0.3)
	found := false
	for _, c := range b.Cells {
		if c.Depth == 6 && c.Idx == centerCell {
			found = true
		}
		if c.Depth > 6 {
			t.Fatalf("cell deeper than requested: %d", c.Depth)
		}
	}
	// the center cell is either listed at depth 6 or inside a coarser
	// full cell
	if !found {
		for _, c := range b.Cells {
			if c.Full && c.Idx == centerCell>>(2*uint(6-c.Depth)) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("cone coverage misses its center cell")
	}
}
