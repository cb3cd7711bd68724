// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/molecula/moc"
	"github.com/stretchr/testify/require"
)

func TestJSONKnownForm(t *testing.T) {
	m, err := moc.FromCells(moc.Hpx, 2, []moc.Cell{
		{Depth: 0, Idx: 3},
		{Depth: 2, Idx: 100},
		{Depth: 2, Idx: 101},
	})
	require.NoError(t, err)
	require.Equal(t, `{"0":[3],"2":[100,101]}`, JSONString(m))
}

func TestJSONDeclaredDepthAlwaysPresent(t *testing.T) {
	m, err := moc.FromCells(moc.Hpx, 5, []moc.Cell{{Depth: 1, Idx: 2}})
	require.NoError(t, err)
	require.Equal(t, `{"1":[2],"5":[]}`, JSONString(m))

	empty, err := moc.FromDepth(moc.Time, 3)
	require.NoError(t, err)
	require.Equal(t, `{"3":[]}`, JSONString(empty))
}

func TestJSONRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(41))
	for _, q := range []moc.Qty{moc.Hpx, moc.Time} {
		for trial := 0; trial < 30; trial++ {
			depth := uint8(1 + rnd.Intn(8))
			m := randomMOC(t, rnd, q, depth, 40)
			back, err := ParseJSON(q, []byte(JSONString(m)))
			require.NoError(t, err)
			require.True(t, back.Equal(m), "json round trip: %s", JSONString(m))
		}
	}
}

func TestJSONParserErrors(t *testing.T) {
	for _, bad := range []string{
		"",
		"{",
		"{}",
		`{"x":[1]}`,
		`{"77":[0]}`,
		`{"0":[99]}`,
	} {
		_, err := ParseJSON(moc.Hpx, []byte(bad))
		require.Error(t, err, "input %q", bad)
	}
}

func TestJSON2DRoundTrip(t *testing.T) {
	m2, err := moc.FromFixedDepthPairs(moc.Time, 5, moc.Hpx, 4, [][2]uint64{
		{0, 1}, {0, 2}, {7, 30},
	})
	require.NoError(t, err)
	js := jsonString2D(t, m2)
	back, err := ParseJSON2D(moc.Time, moc.Hpx, []byte(js))
	require.NoError(t, err)
	require.True(t, back.Equal(m2), "2-d json round trip: %s", js)
}

func jsonString2D(t *testing.T, m2 moc.RangeMOC2) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, WriteJSON2D(&sb, m2))
	return sb.String()
}
