// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package stcs composes STC-S region ASTs into spatial MOCs. The STC-S text
// parser is an external collaborator: this package consumes the parsed AST.
//
// Two deliberate deviations from the STC-S draft standard:
//   - DIFFERENCE is treated as the symmetric difference, not the set
//     difference;
//   - self-intersecting POLYGONs resolve to the smallest-area
//     interpretation.
//
// Only the ICRS frame, the Spher2 flavor and degrees are accepted; anything
// else fails with moc.ErrUnsupported.
package stcs

import (
	"math"

	"github.com/molecula/moc"
	"github.com/pkg/errors"
)

// Node is an STC-S expression node: either an operator over sub-expressions
// or a shape leaf.
type Node interface {
	// ToMOC rasterizes the expression at the given depth. deltaDepth
	// refines circle borders.
	ToMOC(depth, deltaDepth uint8) (moc.RangeMOC, error)
}

// Frame, flavor and unit validation shared by all shapes.
type Common struct {
	Frame  string // must be "ICRS" (empty defaults to ICRS)
	Flavor string // must be "Spher2" (empty defaults to Spher2)
	Unit   string // must be "deg" (empty defaults to deg)
}

func (c Common) check() error {
	if c.Frame != "" && c.Frame != "ICRS" {
		return errors.Wrapf(moc.ErrUnsupported, "frame %q", c.Frame)
	}
	if c.Flavor != "" && c.Flavor != "Spher2" {
		return errors.Wrapf(moc.ErrUnsupported, "flavor %q", c.Flavor)
	}
	if c.Unit != "" && c.Unit != "deg" {
		return errors.Wrapf(moc.ErrUnsupported, "unit %q", c.Unit)
	}
	return nil
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// Union is the n-ary union operator.
type Union struct{ Exprs []Node }

func (u Union) ToMOC(depth, deltaDepth uint8) (moc.RangeMOC, error) {
	mocs := make([]moc.RangeMOC, 0, len(u.Exprs))
	for _, e := range u.Exprs {
		m, err := e.ToMOC(depth, deltaDepth)
		if err != nil {
			return moc.RangeMOC{}, err
		}
		mocs = append(mocs, m)
	}
	return moc.UnionAll(moc.Hpx, mocs...), nil
}

// Intersection is the n-ary intersection operator.
type Intersection struct{ Exprs []Node }

func (x Intersection) ToMOC(depth, deltaDepth uint8) (moc.RangeMOC, error) {
	if len(x.Exprs) == 0 {
		return moc.FromDepth(moc.Hpx, depth)
	}
	out, err := x.Exprs[0].ToMOC(depth, deltaDepth)
	if err != nil {
		return moc.RangeMOC{}, err
	}
	for _, e := range x.Exprs[1:] {
		m, err := e.ToMOC(depth, deltaDepth)
		if err != nil {
			return moc.RangeMOC{}, err
		}
		out = out.Intersection(m)
	}
	return out, nil
}

// Not is the complement operator.
type Not struct{ Expr Node }

func (n Not) ToMOC(depth, deltaDepth uint8) (moc.RangeMOC, error) {
	m, err := n.Expr.ToMOC(depth, deltaDepth)
	if err != nil {
		return moc.RangeMOC{}, err
	}
	return m.Complement(), nil
}

// Difference is the binary DIFFERENCE operator, treated as the symmetric
// difference (deliberate deviation from the STC-S draft).
type Difference struct{ Left, Right Node }

func (d Difference) ToMOC(depth, deltaDepth uint8) (moc.RangeMOC, error) {
	l, err := d.Left.ToMOC(depth, deltaDepth)
	if err != nil {
		return moc.RangeMOC{}, err
	}
	r, err := d.Right.ToMOC(depth, deltaDepth)
	if err != nil {
		return moc.RangeMOC{}, err
	}
	return l.SymmetricDifference(r), nil
}

// Circle is the STC-S Circle shape: center plus radius, degrees.
type Circle struct {
	Common
	Lon, Lat, Radius float64
}

func (c Circle) ToMOC(depth, deltaDepth uint8) (moc.RangeMOC, error) {
	if err := c.check(); err != nil {
		return moc.RangeMOC{}, err
	}
	return moc.FromCone(rad(c.Lon), rad(c.Lat), rad(c.Radius), depth, deltaDepth)
}

// Polygon is the STC-S Polygon shape.
type Polygon struct {
	Common
	Vertices [][2]float64 // (lon, lat) degrees
}

func (p Polygon) ToMOC(depth, _ uint8) (moc.RangeMOC, error) {
	if err := p.check(); err != nil {
		return moc.RangeMOC{}, err
	}
	vs := make([][2]float64, len(p.Vertices))
	for i, v := range p.Vertices {
		vs[i] = [2]float64{rad(v[0]), rad(v[1])}
	}
	return moc.FromPolygon(vs, false, depth)
}

// Box is the STC-S Box shape with the position angle extension.
type Box struct {
	Common
	Lon, Lat, A, B, PA float64
}

func (b Box) ToMOC(depth, _ uint8) (moc.RangeMOC, error) {
	if err := b.check(); err != nil {
		return moc.RangeMOC{}, err
	}
	return moc.FromBox(rad(b.Lon), rad(b.Lat), rad(b.A), rad(b.B), rad(b.PA), depth)
}

// Ellipse is the STC-S Ellipse shape.
type Ellipse struct {
	Common
	Lon, Lat, A, B, PA float64
}

func (e Ellipse) ToMOC(depth, _ uint8) (moc.RangeMOC, error) {
	if err := e.check(); err != nil {
		return moc.RangeMOC{}, err
	}
	return moc.FromEllipticalCone(rad(e.Lon), rad(e.Lat), rad(e.A), rad(e.B), rad(e.PA), depth)
}

// Ring is the STC-S annulus shape.
type Ring struct {
	Common
	Lon, Lat, RadiusInt, RadiusExt float64
}

func (r Ring) ToMOC(depth, _ uint8) (moc.RangeMOC, error) {
	if err := r.check(); err != nil {
		return moc.RangeMOC{}, err
	}
	return moc.FromRing(rad(r.Lon), rad(r.Lat), rad(r.RadiusInt), rad(r.RadiusExt), depth)
}

// Zone is the STC-S zone shape (lon/lat bounds).
type Zone struct {
	Common
	LonMin, LatMin, LonMax, LatMax float64
}

func (z Zone) ToMOC(depth, _ uint8) (moc.RangeMOC, error) {
	if err := z.check(); err != nil {
		return moc.RangeMOC{}, err
	}
	return moc.FromZone(rad(z.LonMin), rad(z.LatMin), rad(z.LonMax), rad(z.LatMax), depth)
}
