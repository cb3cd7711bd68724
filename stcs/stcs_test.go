// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package stcs

import (
	"testing"

	"github.com/molecula/moc"
	"github.com/stretchr/testify/require"
)

func TestCircleToMOC(t *testing.T) {
	m, err := Circle{Lon: 45, Lat: 10, Radius: 3}.ToMOC(6, 2)
	require.NoError(t, err)
	require.False(t, m.IsEmpty())
	require.EqualValues(t, 6, m.DepthMax())
}

func TestUnionIntersectionNot(t *testing.T) {
	c1 := Circle{Lon: 45, Lat: 10, Radius: 3}
	c2 := Circle{Lon: 47, Lat: 10, Radius: 3}

	u, err := Union{Exprs: []Node{c1, c2}}.ToMOC(5, 2)
	require.NoError(t, err)
	x, err := Intersection{Exprs: []Node{c1, c2}}.ToMOC(5, 2)
	require.NoError(t, err)
	require.True(t, u.ContainsMOC(x), "intersection inside union")

	n, err := Not{Expr: c1}.ToMOC(5, 2)
	require.NoError(t, err)
	m1, err := c1.ToMOC(5, 2)
	require.NoError(t, err)
	require.True(t, n.Intersection(m1).IsEmpty())
	require.EqualValues(t, moc.Hpx.UpperBound(), n.Union(m1).Ranges().RangeSum())
}

func TestDifferenceIsSymmetric(t *testing.T) {
	// DIFFERENCE deviates from the draft standard: it is the symmetric
	// difference, hence commutative
	c1 := Circle{Lon: 45, Lat: 10, Radius: 3}
	c2 := Circle{Lon: 47, Lat: 10, Radius: 3}
	ab, err := Difference{Left: c1, Right: c2}.ToMOC(5, 2)
	require.NoError(t, err)
	ba, err := Difference{Left: c2, Right: c1}.ToMOC(5, 2)
	require.NoError(t, err)
	require.True(t, ab.Ranges().Equal(ba.Ranges()))
}

func TestUnsupportedFrameFlavorUnit(t *testing.T) {
	_, err := Circle{Common: Common{Frame: "GALACTIC"}, Lon: 0, Lat: 0, Radius: 1}.ToMOC(4, 2)
	require.ErrorIs(t, err, moc.ErrUnsupported)
	_, err = Circle{Common: Common{Flavor: "Cart2"}, Radius: 1}.ToMOC(4, 2)
	require.ErrorIs(t, err, moc.ErrUnsupported)
	_, err = Circle{Common: Common{Unit: "rad"}, Radius: 1}.ToMOC(4, 2)
	require.ErrorIs(t, err, moc.ErrUnsupported)

	// the explicit accepted values pass
	_, err = Circle{Common: Common{Frame: "ICRS", Flavor: "Spher2", Unit: "deg"}, Lon: 10, Lat: 10, Radius: 1}.ToMOC(4, 2)
	require.NoError(t, err)
}

func TestPolygonAndShapes(t *testing.T) {
	p := Polygon{Vertices: [][2]float64{{44, 9}, {46, 9}, {45, 11}}}
	m, err := p.ToMOC(5, 0)
	require.NoError(t, err)
	require.False(t, m.IsEmpty())
	require.Less(t, m.CoverageFraction(), 0.5)

	z := Zone{LonMin: 40, LatMin: 5, LonMax: 50, LatMax: 15}
	zm, err := z.ToMOC(5, 0)
	require.NoError(t, err)
	require.False(t, zm.IsEmpty())

	r := Ring{Lon: 120, Lat: 30, RadiusInt: 1, RadiusExt: 4}
	rm, err := r.ToMOC(5, 0)
	require.NoError(t, err)
	require.False(t, rm.IsEmpty())

	e := Ellipse{Lon: 200, Lat: -30, A: 4, B: 2, PA: 30}
	em, err := e.ToMOC(5, 0)
	require.NoError(t, err)
	require.False(t, em.IsEmpty())

	b := Box{Lon: 200, Lat: -30, A: 4, B: 2, PA: 30}
	bm, err := b.ToMOC(5, 0)
	require.NoError(t, err)
	require.False(t, bm.IsEmpty())
}
