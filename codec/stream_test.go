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

func TestStreamRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(51))
	for _, q := range []moc.Qty{moc.Hpx, moc.Time, moc.Freq} {
		for trial := 0; trial < 20; trial++ {
			depth := uint8(1 + rnd.Intn(6))
			m := randomMOC(t, rnd, q, depth, 40)
			var sb strings.Builder
			require.NoError(t, WriteStream(&sb, m))
			back, err := ParseStream(strings.NewReader(sb.String()))
			require.NoError(t, err)
			require.True(t, back.Equal(m), "stream round trip:\n%s", sb.String())
		}
	}
}

func TestStreamKnownForm(t *testing.T) {
	m, err := moc.FromCells(moc.Hpx, 1, []moc.Cell{{Depth: 0, Idx: 0}, {Depth: 1, Idx: 44}})
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, WriteStream(&sb, m))
	require.Equal(t, "qty=HPX\ndepth=1\n0/0\n1/44\n", sb.String())
}

func TestStreamRejectsOutOfOrder(t *testing.T) {
	_, err := ParseStream(strings.NewReader("qty=HPX\ndepth=2\n2/5\n2/1\n"))
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestStreamErrors(t *testing.T) {
	for _, bad := range []string{
		"",
		"depth=2\n",
		"qty=NOPE\ndepth=2\n",
		"qty=HPX\n",
		"qty=HPX\ndepth=99\n",
		"qty=HPX\ndepth=2\nbogus\n",
	} {
		_, err := ParseStream(strings.NewReader(bad))
		require.Error(t, err, "input %q", bad)
	}
}
