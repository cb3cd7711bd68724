// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiOrMatchesBinaryOr(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		k := 1 + rnd.Intn(7)
		mocs := make([]RangeMOC, k)
		for i := range mocs {
			mocs[i] = randomMOC(t, rnd, Hpx, 5, 30)
		}
		seq := mocs[0]
		for _, m := range mocs[1:] {
			seq = seq.Union(m)
		}
		got := UnionAll(Hpx, mocs...)
		checkInvariants(t, got.Ranges())
		requireSameSet(t, got, seq)
		require.Equal(t, seq.DepthMax(), got.DepthMax())
	}
}

func TestMultiOrEmpty(t *testing.T) {
	got := UnionAll(Hpx)
	require.True(t, got.IsEmpty())
	require.EqualValues(t, 0, got.DepthMax())
}

func TestMultiOrSingle(t *testing.T) {
	m, err := FromFixedDepthCells(Time, 10, []uint64{1, 5, 6})
	require.NoError(t, err)
	requireSameSet(t, UnionAll(Time, m), m)
}
