// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// membership builds the truth table of a MOC at cell granularity: one bool
// per cell of the declared depth. All test MOCs being aligned to that
// depth, comparing truth tables is comparing sets.
func membership(m RangeMOC, depth uint8) []bool {
	shift := m.Qty().Shift(depth)
	out := make([]bool, m.Qty().NCells(depth))
	for i := range out {
		out[i] = m.ContainsVal(uint64(i) << shift)
	}
	return out
}

func requireSameSet(t *testing.T, a, b RangeMOC) {
	t.Helper()
	require.True(t, a.Ranges().Equal(b.Ranges()), "sets differ: %v vs %v", a.Ranges(), b.Ranges())
}

func TestOpsExhaustiveSmallDomain(t *testing.T) {
	// cross-check every binary operator against the boolean truth table
	// over all depth-2 cells
	const depth = 2
	rnd := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		a := randomMOC(t, rnd, Hpx, depth, 60)
		b := randomMOC(t, rnd, Hpx, depth, 60)
		ma, mb := membership(a, depth), membership(b, depth)

		tests := []struct {
			name string
			got  RangeMOC
			keep func(x, y bool) bool
		}{
			{"union", a.Union(b), func(x, y bool) bool { return x || y }},
			{"inter", a.Intersection(b), func(x, y bool) bool { return x && y }},
			{"minus", a.Minus(b), func(x, y bool) bool { return x && !y }},
			{"xor", a.SymmetricDifference(b), func(x, y bool) bool { return x != y }},
		}
		for _, tt := range tests {
			checkInvariants(t, tt.got.Ranges())
			mg := membership(tt.got, depth)
			for i := range mg {
				if mg[i] != tt.keep(ma[i], mb[i]) {
					t.Fatalf("trial %d: %s wrong at cell %d", trial, tt.name, i)
				}
			}
		}

		mc := membership(a.Complement(), depth)
		for i := range mc {
			if mc[i] == ma[i] {
				t.Fatalf("trial %d: complement wrong at cell %d", trial, i)
			}
		}
	}
}

func TestAlgebraicLaws(t *testing.T) {
	const depth = 4
	rnd := rand.New(rand.NewSource(2))
	for trial := 0; trial < 30; trial++ {
		a := randomMOC(t, rnd, Hpx, depth, 40)
		b := randomMOC(t, rnd, Hpx, depth, 40)
		c := randomMOC(t, rnd, Hpx, depth, 40)

		// idempotence
		requireSameSet(t, a.Union(a), a)
		requireSameSet(t, a.Intersection(a), a)
		require.True(t, a.Minus(a).IsEmpty())
		require.True(t, a.SymmetricDifference(a).IsEmpty())

		// commutativity
		requireSameSet(t, a.Union(b), b.Union(a))
		requireSameSet(t, a.Intersection(b), b.Intersection(a))

		// associativity
		requireSameSet(t, a.Union(b.Union(c)), a.Union(b).Union(c))
		requireSameSet(t, a.Intersection(b.Intersection(c)), a.Intersection(b).Intersection(c))

		// De Morgan
		requireSameSet(t, a.Union(b).Complement(), a.Complement().Intersection(b.Complement()))

		// universe and empty
		full := a.Union(a.Complement())
		require.Equal(t, Hpx.UpperBound(), full.Ranges().RangeSum(), "A or not A covers everything")
		require.True(t, a.Intersection(a.Complement()).IsEmpty(), "A and not A is empty")
	}
}

func TestComplementEmpty(t *testing.T) {
	empty, err := FromDepth(Time, 10)
	require.NoError(t, err)
	full := empty.Complement()
	require.True(t, full.Ranges().Equal(Ranges{{0, Time.UpperBound()}}))
	require.True(t, full.Complement().IsEmpty())
}

func TestDegradeScenario(t *testing.T) {
	// an S-MOC at depth 11 holding the single cell 11/0 degrades to 0/0
	m, err := FromCells(Hpx, 11, []Cell{{Depth: 11, Idx: 0}})
	require.NoError(t, err)
	got := m.Degraded(0)
	require.EqualValues(t, 0, got.DepthMax())
	require.True(t, got.Ranges().Equal(Ranges{Hpx.CellRange(0, 0)}))
}

func TestComplementScenario(t *testing.T) {
	// complement of 0/0 3 5 7 9-10 is 0/1-2 4 6 8 11
	m, err := FromFixedDepthCells(Hpx, 0, []uint64{0, 3, 5, 7, 9, 10})
	require.NoError(t, err)
	want, err := FromFixedDepthCells(Hpx, 0, []uint64{1, 2, 4, 6, 8, 11})
	require.NoError(t, err)
	requireSameSet(t, m.Complement(), want)
}

func TestMinusXorDeepExtraScenario(t *testing.T) {
	// two MOCs sharing the same coarse set, one holding extra depth-11
	// cells inside the other's coverage: minus and xor are empty
	base, err := FromFixedDepthCells(Hpx, 9, []uint64{100, 200, 300})
	require.NoError(t, err)
	a, err := base.Refined(11)
	require.NoError(t, err)
	// depth-11 cells inside cell 9/100
	extra, err := FromFixedDepthCells(Hpx, 11, []uint64{100 << 4, 100<<4 + 5})
	require.NoError(t, err)
	b := base.Union(extra) // same set: extra already inside base

	requireSameSet(t, b, a)
	require.True(t, a.Minus(b).IsEmpty())
	require.True(t, a.SymmetricDifference(b).IsEmpty())
}

func TestDegradeIsSuperset(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for trial := 0; trial < 30; trial++ {
		m := randomMOC(t, rnd, Hpx, 6, 50)
		for _, d := range []uint8{0, 2, 4} {
			g := m.Degraded(d)
			require.EqualValues(t, d, g.DepthMax())
			checkInvariants(t, g.Ranges())
			require.True(t, g.Ranges().Contains(m.Ranges()), "degrade must be a superset")
			// every range aligned to the coarser depth
			mask := uint64(1)<<Hpx.Shift(d) - 1
			for _, r := range g.Ranges() {
				require.Zero(t, r.Lo&mask)
				require.Zero(t, r.Hi&mask)
			}
		}
	}
}

func TestRefined(t *testing.T) {
	m, err := FromFixedDepthCells(Hpx, 3, []uint64{1, 2})
	require.NoError(t, err)
	r, err := m.Refined(7)
	require.NoError(t, err)
	require.EqualValues(t, 7, r.DepthMax())
	require.True(t, r.Ranges().Equal(m.Ranges()), "refine must not change the set")
	_, err = m.Refined(1)
	require.ErrorIs(t, err, ErrInvalidDepth)
}

func TestCoverageFraction(t *testing.T) {
	m, err := FromFixedDepthCells(Hpx, 0, []uint64{0, 1, 2})
	require.NoError(t, err)
	require.InDelta(t, 0.25, m.CoverageFraction(), 1e-12)

	empty, err := FromDepth(Time, 20)
	require.NoError(t, err)
	require.Zero(t, empty.CoverageFraction())
	require.InDelta(t, 1.0, empty.Complement().CoverageFraction(), 1e-12)
}

func TestOverlapped(t *testing.T) {
	left := Ranges{{0, 4}, {8, 12}, {20, 24}}
	right := Ranges{{10, 21}}
	got := Collect(Overlapped(NewRangeIter(left), NewRangeIter(right)))
	require.True(t, got.Equal(Ranges{{8, 12}, {20, 24}}))
}

func TestWidthInterop(t *testing.T) {
	// a MOC at a depth that fits 32-bit storage (<= 13) operates against a
	// deeper one; the result carries the deeper depth
	small, err := FromFixedDepthCells(Hpx, 13, []uint64{7})
	require.NoError(t, err)
	deep, err := FromFixedDepthCells(Hpx, 20, []uint64{7 << 14})
	require.NoError(t, err)
	u := small.Union(deep)
	require.EqualValues(t, 20, u.DepthMax())
	require.True(t, u.ContainsMOC(deep))
	require.True(t, u.ContainsMOC(small))
}
