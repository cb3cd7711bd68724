// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomMOC2(t *testing.T, rnd *rand.Rand, depthT, depthS uint8) RangeMOC2 {
	t.Helper()
	n := rnd.Intn(20)
	pairs := make([][2]uint64, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2]uint64{
			uint64(rnd.Int63n(int64(Time.NCells(depthT)))),
			uint64(rnd.Int63n(int64(Hpx.NCells(depthS)))),
		})
	}
	m2, err := FromFixedDepthPairs(Time, depthT, Hpx, depthS, pairs)
	require.NoError(t, err)
	return m2
}

func checkMOC2Invariants(t *testing.T, m2 RangeMOC2) {
	t.Helper()
	var prev uint64
	for i, e := range m2.Elems() {
		require.NotEmpty(t, e.Outer, "element %d without outer coverage", i)
		checkInvariants(t, e.Outer)
		checkInvariants(t, e.Inner.Ranges())
		if i > 0 {
			require.Greater(t, e.Outer[0].Lo, prev, "elements out of order")
		}
		prev = e.Outer[0].Lo
		// outer coverages pairwise disjoint
		for j := 0; j < i; j++ {
			require.False(t, e.Outer.Intersects(m2.Elems()[j].Outer), "outer coverages %d and %d overlap", i, j)
		}
	}
}

func TestFromFixedDepthPairs(t *testing.T) {
	pairs := [][2]uint64{{0, 1}, {0, 2}, {1, 1}, {1, 2}, {5, 9}}
	m2, err := FromFixedDepthPairs(Time, 3, Hpx, 2, pairs)
	require.NoError(t, err)
	checkMOC2Invariants(t, m2)

	// t-cells 0 and 1 share the same inner set and touch: one element
	require.Len(t, m2.Elems(), 2)
	for _, p := range pairs {
		tv := p[0] << Time.Shift(3)
		sv := p[1] << Hpx.Shift(2)
		require.True(t, m2.ContainsPair(tv, sv), "pair %v missing", p)
	}
	require.False(t, m2.ContainsPair(5<<Time.Shift(3), 1<<Hpx.Shift(2)))
	require.False(t, m2.ContainsPair(2<<Time.Shift(3), 1<<Hpx.Shift(2)))
}

func TestUnion2DMembership(t *testing.T) {
	// (t, s) in A or B iff in A or in B, checked over a small grid
	const depthT, depthS = 3, 1
	rnd := rand.New(rand.NewSource(21))
	for trial := 0; trial < 20; trial++ {
		a := randomMOC2(t, rnd, depthT, depthS)
		b := randomMOC2(t, rnd, depthT, depthS)
		u := a.Union(b)
		checkMOC2Invariants(t, u)
		for tc := uint64(0); tc < Time.NCells(depthT); tc++ {
			for sc := uint64(0); sc < Hpx.NCells(depthS); sc++ {
				tv := tc << Time.Shift(depthT)
				sv := sc << Hpx.Shift(depthS)
				want := a.ContainsPair(tv, sv) || b.ContainsPair(tv, sv)
				if got := u.ContainsPair(tv, sv); got != want {
					t.Fatalf("trial %d: union membership wrong at (%d, %d): got %v", trial, tc, sc, got)
				}
			}
		}
	}
}

func TestUnion2DCoalesces(t *testing.T) {
	a, err := FromFixedDepthPairs(Time, 2, Hpx, 1, [][2]uint64{{0, 3}})
	require.NoError(t, err)
	b, err := FromFixedDepthPairs(Time, 2, Hpx, 1, [][2]uint64{{1, 3}})
	require.NoError(t, err)
	u := a.Union(b)
	// adjacent windows with the same inner set collapse into one element
	require.Len(t, u.Elems(), 1)
	require.Len(t, u.Elems()[0].Outer, 1)
}

func TestFolds(t *testing.T) {
	// element 1: t-cells {0,1} x s-cell 3; element 2: t-cell 5 x s-cell 9
	m2, err := FromFixedDepthPairs(Time, 3, Hpx, 2, [][2]uint64{{0, 3}, {1, 3}, {5, 9}})
	require.NoError(t, err)

	sel, err := FromFixedDepthCells(Hpx, 2, []uint64{3})
	require.NoError(t, err)
	tm, err := m2.OuterFold(sel)
	require.NoError(t, err)
	wantT, err := FromFixedDepthCells(Time, 3, []uint64{0, 1})
	require.NoError(t, err)
	require.True(t, tm.Ranges().Equal(wantT.Ranges()), "time fold")

	selT, err := FromFixedDepthCells(Time, 3, []uint64{5})
	require.NoError(t, err)
	sm, err := m2.InnerFold(selT)
	require.NoError(t, err)
	wantS, err := FromFixedDepthCells(Hpx, 2, []uint64{9})
	require.NoError(t, err)
	require.True(t, sm.Ranges().Equal(wantS.Ranges()), "space fold")

	// quantity mismatch is rejected
	_, err = m2.OuterFold(selT)
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = m2.InnerFold(sel)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestFoldAll(t *testing.T) {
	m2, err := FromFixedDepthPairs(Time, 3, Hpx, 2, [][2]uint64{{0, 3}, {5, 9}})
	require.NoError(t, err)
	// folding on the full selector unions everything
	full, err := FromDepth(Hpx, 2)
	require.NoError(t, err)
	tm, err := m2.OuterFold(full.Complement())
	require.NoError(t, err)
	wantT, err := FromFixedDepthCells(Time, 3, []uint64{0, 5})
	require.NoError(t, err)
	require.True(t, tm.Ranges().Equal(wantT.Ranges()))
}
