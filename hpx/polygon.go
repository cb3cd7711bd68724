// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package hpx

import "math"

type vec3 struct{ x, y, z float64 }

func dir(lon, lat float64) vec3 {
	cl := math.Cos(lat)
	return vec3{cl * math.Cos(lon), cl * math.Sin(lon), math.Sin(lat)}
}

func (v vec3) lonlat() (float64, float64) {
	lon := math.Atan2(v.y, v.x)
	if lon < 0 {
		lon += twoPi
	}
	return lon, math.Asin(v.z / v.norm())
}

func (v vec3) norm() float64 { return math.Sqrt(v.dot(v)) }

func (v vec3) dot(o vec3) float64 { return v.x*o.x + v.y*o.y + v.z*o.z }

func (v vec3) cross(o vec3) vec3 {
	return vec3{v.y*o.z - v.z*o.y, v.z*o.x - v.x*o.z, v.x*o.y - v.y*o.x}
}

func (v vec3) neg() vec3 { return vec3{-v.x, -v.y, -v.z} }

func (v vec3) scale(s float64) vec3 { return vec3{v.x * s, v.y * s, v.z * s} }

func (v vec3) add(o vec3) vec3 { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }

// Polygon is a spherical polygon given by its vertices, with great-circle
// edges. Membership follows the even-odd rule with respect to a reference
// point taken opposite the vertex centroid, which yields the smallest-area
// interpretation for self-intersecting inputs.
type Polygon struct {
	verts []vec3
	ref   vec3 // assumed outside
	cLon  float64
	cLat  float64
	cRad  float64
}

// NewPolygon builds a polygon from (lon, lat) vertex pairs. At least three
// vertices are required.
func NewPolygon(vertices [][2]float64) *Polygon {
	vs := make([]vec3, len(vertices))
	var sum vec3
	for i, ll := range vertices {
		vs[i] = dir(ll[0], ll[1])
		sum = sum.add(vs[i])
	}
	center := sum.scale(1 / float64(len(vs)))
	if center.norm() < 1e-12 {
		// degenerate centroid: fall back to the first vertex axis
		center = vs[0]
	}
	cLon, cLat := center.lonlat()
	rad := 0.0
	for _, ll := range vertices {
		if d := Dist(cLon, cLat, ll[0], ll[1]); d > rad {
			rad = d
		}
	}
	p := &Polygon{
		verts: vs,
		ref:   center.neg(),
		cLon:  cLon,
		cLat:  cLat,
		cRad:  rad + 1e-9,
	}
	return p
}

func (p *Polygon) Contains(lon, lat float64) bool {
	x := dir(lon, lat)
	// count great-circle crossings of the arc ref->x against every edge
	gcRX := p.ref.cross(x)
	n := 0
	for i := range p.verts {
		a := p.verts[i]
		b := p.verts[(i+1)%len(p.verts)]
		gcAB := a.cross(b)
		sa := gcRX.dot(a)
		sb := gcRX.dot(b)
		sr := gcAB.dot(p.ref)
		sx := gcAB.dot(x)
		if sa*sb < 0 && sr*sx < 0 {
			// the two great circles meet at ±q: count the edge only when
			// the meeting point on the edge also lies on the arc ref->x
			q := gcRX.cross(gcAB)
			if q.dot(a.add(b)) < 0 {
				q = q.neg()
			}
			if p.ref.cross(q).dot(gcRX) > 0 && q.cross(x).dot(gcRX) > 0 {
				n++
			}
		}
	}
	return n&1 == 1
}

func (p *Polygon) BoundingCap() (float64, float64, float64) {
	if p.cRad >= halfPi {
		// caps are only convex below π/2: disable pruning
		return p.cLon, p.cLat, math.Pi
	}
	return p.cLon, p.cLat, p.cRad
}

// Box is a rectangle of semi-width A (along the position angle direction)
// and semi-height B, rotated by the position angle PA, realized as the
// polygon of its four corners in the tangent plane at the center.
func Box(lon, lat, a, b, pa float64) *Polygon {
	sinP, cosP := math.Sincos(pa)
	cl := math.Cos(lat)
	corners := make([][2]float64, 0, 4)
	for _, c := range [4][2]float64{{a, b}, {a, -b}, {-a, -b}, {-a, b}} {
		// rotate the corner offsets by PA, then undo the longitude
		// compression
		x := c[0]*cosP + c[1]*sinP
		y := -c[0]*sinP + c[1]*cosP
		corners = append(corners, [2]float64{lon + x/cl, lat + y})
	}
	return NewPolygon(corners)
}
