// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"math"
	"testing"

	"github.com/molecula/moc/hpx"
	"github.com/stretchr/testify/require"
)

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func TestFromPositions(t *testing.T) {
	const depth = 8
	positions := [][2]float64{
		{rad(64.89763), rad(56.02272)},
		{0, 0},
		{rad(180), rad(-45)},
	}
	m, err := FromPositions(depth, positions)
	require.NoError(t, err)
	checkInvariants(t, m.Ranges())
	require.EqualValues(t, depth, m.DepthMax())
	for _, p := range positions {
		cell := hpx.Hash(depth, p[0], p[1])
		require.True(t, m.ContainsCell(depth, cell), "position cell %d missing", cell)
	}
	// three distant positions, three cells
	require.EqualValues(t, 3, m.Ranges().RangeSum()>>Hpx.Shift(depth))
}

func TestFromConeContainsCenter(t *testing.T) {
	const depth = 6
	lon, lat := rad(64.89763), rad(56.02272)
	m, err := FromCone(lon, lat, rad(3), depth, 2)
	require.NoError(t, err)
	checkInvariants(t, m.Ranges())
	require.EqualValues(t, depth, m.DepthMax())
	require.False(t, m.IsEmpty())
	require.True(t, m.ContainsCell(depth, hpx.Hash(depth, lon, lat)), "cone must cover its center")
}

func TestConeCoverageFraction(t *testing.T) {
	// 17 arcmin cone: the covered fraction approaches the analytic cap
	// area (1 - cos r)/2, over-covering through its border cells
	const depth = 12
	lon, lat := rad(64.89763), rad(56.02272)
	radius := rad(17.0 / 60.0)
	m, err := FromCone(lon, lat, radius, depth, 2)
	require.NoError(t, err)
	analytic := (1 - math.Cos(radius)) / 2
	cov := m.CoverageFraction()
	require.GreaterOrEqual(t, cov, analytic*0.95, "cone under-covers its cap")
	require.LessOrEqual(t, cov, analytic*1.5, "cone over-covers too much")
}

func TestFromConeParallelMatchesSequential(t *testing.T) {
	const depth = 5
	centers := [][2]float64{
		{rad(10), rad(10)},
		{rad(50), rad(-20)},
		{rad(200), rad(70)},
		{rad(320), rad(5)},
	}
	seq, err := FromFixedRadiusCones(depth, centers, rad(2), 2, 1)
	require.NoError(t, err)
	par, err := FromFixedRadiusCones(depth, centers, rad(2), 2, 4)
	require.NoError(t, err)
	requireSameSet(t, par, seq)
	for _, c := range centers {
		require.True(t, seq.ContainsCell(depth, hpx.Hash(depth, c[0], c[1])))
	}
}

func TestFromPolygon(t *testing.T) {
	const depth = 6
	// a small triangle around (45, 10)
	vs := [][2]float64{
		{rad(44), rad(9)},
		{rad(46), rad(9)},
		{rad(45), rad(11.5)},
	}
	m, err := FromPolygon(vs, false, depth)
	require.NoError(t, err)
	checkInvariants(t, m.Ranges())
	require.False(t, m.IsEmpty())
	require.True(t, m.ContainsCell(depth, hpx.Hash(depth, rad(45), rad(10))), "polygon must cover its centroid")
	require.Less(t, m.CoverageFraction(), 0.5, "smallest-area interpretation")

	compl, err := FromPolygon(vs, true, depth)
	require.NoError(t, err)
	require.Greater(t, compl.CoverageFraction(), 0.5)
}

func TestFromPolygonTooFewVertices(t *testing.T) {
	_, err := FromPolygon([][2]float64{{0, 0}, {1, 0}}, false, 4)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestFromZone(t *testing.T) {
	const depth = 6
	m, err := FromZone(rad(40), rad(5), rad(50), rad(15), depth)
	require.NoError(t, err)
	require.False(t, m.IsEmpty())
	require.True(t, m.ContainsCell(depth, hpx.Hash(depth, rad(45), rad(10))))
	// a point far outside the zone
	outside := hpx.Hash(depth, rad(45), rad(-40))
	require.False(t, m.IntersectsMOC(mustCellMOC(t, depth, outside)))
}

func TestFromRing(t *testing.T) {
	const depth = 6
	lon, lat := rad(120), rad(30)
	m, err := FromRing(lon, lat, rad(2), rad(5), depth)
	require.NoError(t, err)
	require.False(t, m.IsEmpty())
	// the ring hole excludes the center cell
	require.False(t, m.ContainsCell(depth, hpx.Hash(depth, lon, lat)), "ring center is in the hole")

	_, err = FromRing(lon, lat, rad(5), rad(2), depth)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestFromEllipticalConeAndBox(t *testing.T) {
	const depth = 6
	lon, lat := rad(200), rad(-30)
	e, err := FromEllipticalCone(lon, lat, rad(4), rad(2), rad(30), depth)
	require.NoError(t, err)
	require.True(t, e.ContainsCell(depth, hpx.Hash(depth, lon, lat)))

	b, err := FromBox(lon, lat, rad(4), rad(2), rad(30), depth)
	require.NoError(t, err)
	require.True(t, b.ContainsCell(depth, hpx.Hash(depth, lon, lat)))
}

func TestFromMicrosecSinceJD0(t *testing.T) {
	m, err := FromMicrosecSinceJD0(61, []uint64{0, 1, 5, 6})
	require.NoError(t, err)
	require.True(t, m.Ranges().Equal(Ranges{{0, 2}, {5, 7}}))

	_, err = FromMicrosecSinceJD0(61, []uint64{Time.UpperBound()})
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestFromHz(t *testing.T) {
	m, err := FromHz(59, []float64{0.1, 1, 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, m.Ranges().RangeSum())
	for _, hz := range []float64{0.1, 1, 10} {
		h, err := Freq2Hash(hz)
		require.NoError(t, err)
		require.True(t, m.ContainsVal(h))
	}

	_, err = FromHz(59, []float64{1e60})
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func mustCellMOC(t *testing.T, depth uint8, idx uint64) RangeMOC {
	t.Helper()
	m, err := FromFixedDepthCells(Hpx, depth, []uint64{idx})
	require.NoError(t, err)
	return m
}
