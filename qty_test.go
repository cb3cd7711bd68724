// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQtyConstants(t *testing.T) {
	if got := Hpx.Dim(); got != 2 {
		t.Fatalf("Hpx dim: %d", got)
	}
	if got := Hpx.ND0(); got != 12 {
		t.Fatalf("Hpx nd0: %d", got)
	}
	if got := Hpx.MaxDepth(); got != 29 {
		t.Fatalf("Hpx max depth: %d", got)
	}
	if got := Hpx.Shift(1); got != 56 {
		t.Fatalf("Hpx shift(1): %d", got)
	}
	if got := Hpx.UpperBound(); got != 12*(1<<58) {
		t.Fatalf("Hpx upper bound: %d", got)
	}

	if got := Time.MaxDepth(); got != 61 {
		t.Fatalf("Time max depth: %d", got)
	}
	if got := Time.UpperBound(); got != 1<<62 {
		t.Fatalf("Time upper bound: %d", got)
	}

	if got := Freq.MaxDepth(); got != 59 {
		t.Fatalf("Freq max depth: %d", got)
	}
	if got := Freq.UpperBound(); got != 1<<60 {
		t.Fatalf("Freq upper bound: %d", got)
	}
}

func TestUniqRoundTrip(t *testing.T) {
	for depth := uint8(0); depth < 8; depth++ {
		for idx := uint64(0); idx < Hpx.NCells(depth); idx++ {
			d, i := FromUniq(ToUniq(depth, idx))
			if d != depth || i != idx {
				t.Fatalf("uniq round trip (%d, %d) -> (%d, %d)", depth, idx, d, i)
			}
		}
	}
}

func TestUniqKnownValues(t *testing.T) {
	// 4*4^d + i
	if got := ToUniq(0, 0); got != 4 {
		t.Fatalf("uniq(0,0): %d", got)
	}
	if got := ToUniq(1, 3); got != 19 {
		t.Fatalf("uniq(1,3): %d", got)
	}
	d, i := FromUniq(96)
	if d != 2 || i != 32 {
		t.Fatalf("from_uniq(96): (%d, %d)", d, i)
	}
}

func TestZUniqRoundTrip(t *testing.T) {
	for _, q := range []Qty{Hpx, Time, Freq} {
		for depth := uint8(0); depth < 6; depth++ {
			for idx := uint64(0); idx < q.NCells(depth); idx += 3 {
				d, i := q.FromZUniq(q.ToZUniq(depth, idx))
				if d != depth || i != idx {
					t.Fatalf("%s zuniq round trip (%d, %d) -> (%d, %d)", q.Name(), depth, idx, d, i)
				}
			}
		}
	}
}

func TestZUniqOrderPreserving(t *testing.T) {
	// cells in z-order must map to increasing zuniq regardless of depth
	z1 := Hpx.ToZUniq(2, 5)  // inside base cell 0
	z2 := Hpx.ToZUniq(1, 2)  // later sibling at a coarser depth
	z3 := Hpx.ToZUniq(0, 1)  // next base cell
	if !(z1 < z2 && z2 < z3) {
		t.Fatalf("zuniq ordering: %d %d %d", z1, z2, z3)
	}
}

func TestFreqHashRoundTrip(t *testing.T) {
	for _, hz := range []float64{0.1, 1.125697115656943e-18, 1.12569711565245e+44, FreqMinHz} {
		h, err := Freq2Hash(hz)
		require.NoError(t, err)
		require.Equal(t, hz, Hash2Freq(h), "freq %g", hz)
	}
}

func TestFreqHashBounds(t *testing.T) {
	if _, err := Freq2Hash(FreqMaxHz); err == nil {
		t.Fatal("expected error at the upper frequency bound")
	}
	if _, err := Freq2Hash(1e-40); err == nil {
		t.Fatal("expected error below the lower frequency bound")
	}
	h, err := Freq2Hash(FreqMinHz)
	require.NoError(t, err)
	require.EqualValues(t, 0, h, "lowest frequency hashes to 0")
}

func TestFreqHashMonotonic(t *testing.T) {
	prev := uint64(0)
	for _, hz := range []float64{1e-20, 1e-10, 1, 1e10, 1e20, 1e40} {
		h, err := Freq2Hash(hz)
		require.NoError(t, err)
		if h <= prev {
			t.Fatalf("freq hash not monotonic at %g", hz)
		}
		prev = h
	}
}

func TestCheckDepthAndIdx(t *testing.T) {
	require.NoError(t, Hpx.CheckDepth(29))
	require.ErrorIs(t, Hpx.CheckDepth(30), ErrInvalidDepth)
	require.NoError(t, Hpx.CheckIdx(0, 11))
	require.ErrorIs(t, Hpx.CheckIdx(0, 12), ErrIndexOutOfBounds)
	require.ErrorIs(t, Time.CheckDepth(62), ErrInvalidDepth)
}

func TestCellRange(t *testing.T) {
	r := Hpx.CellRange(29, 7)
	if r.Lo != 7 || r.Hi != 8 {
		t.Fatalf("deepest cell range: %+v", r)
	}
	r = Hpx.CellRange(28, 1)
	if r.Lo != 4 || r.Hi != 8 {
		t.Fatalf("depth 28 cell range: %+v", r)
	}
}
