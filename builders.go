// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"github.com/molecula/moc/hpx"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// FromBMOC converts a rasterized BMOC into a spatial RangeMOC. Both full
// and partial cells are kept, so region MOCs over-cover their region border.
func FromBMOC(b *hpx.BMOC) RangeMOC {
	rs := make([]Range, 0, len(b.Cells))
	for _, c := range b.Cells {
		rs = append(rs, Hpx.CellRange(c.Depth, c.Idx))
	}
	return RangeMOC{qty: Hpx, depthMax: b.DepthMax, ranges: Normalize(rs)}
}

// FromPositions builds a spatial MOC from (lon, lat) directions in radians:
// each position is hashed at the given depth and the cells are normalized.
func FromPositions(depth uint8, positions [][2]float64) (RangeMOC, error) {
	if err := Hpx.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}
	b := NewFixedDepthBuilder(Hpx, depth, len(positions))
	for _, p := range positions {
		b.Push(hpx.Hash(depth, p[0], p[1]))
	}
	return b.MOC(), nil
}

// FromCone builds a spatial MOC covering the cone of the given angular
// radius (radians). deltaDepth refines the border classification: the cone
// is rasterized deltaDepth levels deeper, then degraded back.
func FromCone(lon, lat, radius float64, depth, deltaDepth uint8) (RangeMOC, error) {
	if err := Hpx.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}
	d := depth + deltaDepth
	if d > HpxMaxDepth {
		d = HpxMaxDepth
	}
	m := FromBMOC(hpx.ConeCoverage(d, lon, lat, radius))
	return m.Degraded(depth), nil
}

// FromRegion builds a spatial MOC covering an arbitrary hpx.Region.
func FromRegion(depth uint8, reg hpx.Region) (RangeMOC, error) {
	if err := Hpx.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}
	return FromBMOC(hpx.Coverage(depth, reg)), nil
}

// FromRing builds a spatial MOC covering the annulus between the two radii.
func FromRing(lon, lat, radiusInt, radiusExt float64, depth uint8) (RangeMOC, error) {
	if radiusInt > radiusExt {
		return RangeMOC{}, errors.Wrap(ErrUnsupported, "ring internal radius larger than external radius")
	}
	return FromRegion(depth, hpx.Ring{Lon: lon, Lat: lat, RadiusInt: radiusInt, RadiusExt: radiusExt})
}

// FromZone builds a spatial MOC covering the zone between two parallels and
// two meridians.
func FromZone(lonMin, latMin, lonMax, latMax float64, depth uint8) (RangeMOC, error) {
	return FromRegion(depth, hpx.Zone{LonMin: lonMin, LatMin: latMin, LonMax: lonMax, LatMax: latMax})
}

// FromEllipticalCone builds a spatial MOC covering an angular ellipse of
// semi-axes a, b and position angle pa.
func FromEllipticalCone(lon, lat, a, b, pa float64, depth uint8) (RangeMOC, error) {
	return FromRegion(depth, hpx.EllipticalCone{Lon: lon, Lat: lat, A: a, B: b, PA: pa})
}

// FromBox builds a spatial MOC covering a rotated rectangle of semi-width a
// and semi-height b.
func FromBox(lon, lat, a, b, pa float64, depth uint8) (RangeMOC, error) {
	return FromRegion(depth, hpx.Box(lon, lat, a, b, pa))
}

// FromPolygon builds a spatial MOC covering a spherical polygon. With
// complement set, the complement of the polygon interior is covered
// instead. Self-intersecting polygons resolve to the smallest-area
// interpretation (even-odd rule).
func FromPolygon(vertices [][2]float64, complement bool, depth uint8) (RangeMOC, error) {
	if len(vertices) < 3 {
		return RangeMOC{}, errors.Wrap(ErrUnsupported, "polygon needs at least 3 vertices")
	}
	m, err := FromRegion(depth, hpx.NewPolygon(vertices))
	if err != nil {
		return RangeMOC{}, err
	}
	if complement {
		m = m.Complement()
	}
	return m, nil
}

// FromFixedRadiusCones builds the union of many cones of a common radius.
// With workers > 1 the cones are rasterized concurrently, each worker
// producing an independent MOC, merged by a final k-way OR.
func FromFixedRadiusCones(depth uint8, centers [][2]float64, radius float64, deltaDepth uint8, workers int) (RangeMOC, error) {
	if err := Hpx.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}
	if workers <= 1 || len(centers) < 2 {
		mocs := make([]RangeMOC, 0, len(centers))
		for _, c := range centers {
			m, err := FromCone(c[0], c[1], radius, depth, deltaDepth)
			if err != nil {
				return RangeMOC{}, err
			}
			mocs = append(mocs, m)
		}
		return UnionAll(Hpx, mocs...), nil
	}

	mocs := make([]RangeMOC, len(centers))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, c := range centers {
		i, c := i, c
		g.Go(func() error {
			m, err := FromCone(c[0], c[1], radius, depth, deltaDepth)
			if err != nil {
				return err
			}
			mocs[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RangeMOC{}, errors.Wrap(err, "rasterizing cones")
	}
	return UnionAll(Hpx, mocs...), nil
}

// FromMicrosecSinceJD0 builds a time MOC from instants in microseconds
// since JD=0.
func FromMicrosecSinceJD0(depth uint8, usec []uint64) (RangeMOC, error) {
	if err := Time.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}
	shift := Time.Shift(depth)
	b := NewFixedDepthBuilder(Time, depth, len(usec))
	for _, t := range usec {
		if t >= Time.UpperBound() {
			return RangeMOC{}, errors.Wrapf(ErrIndexOutOfBounds, "time %d", t)
		}
		b.Push(t >> shift)
	}
	return b.MOC(), nil
}

// FromMicrosecRangesSinceJD0 builds a time MOC from [min, max) ranges in
// microseconds since JD=0, rounded outward to the declared depth.
func FromMicrosecRangesSinceJD0(depth uint8, rs []Range) (RangeMOC, error) {
	return FromRanges(Time, depth, rs, false)
}

// FromHz builds a frequency MOC from frequencies in Hz.
func FromHz(depth uint8, freqs []float64) (RangeMOC, error) {
	if err := Freq.CheckDepth(depth); err != nil {
		return RangeMOC{}, err
	}
	shift := Freq.Shift(depth)
	b := NewFixedDepthBuilder(Freq, depth, len(freqs))
	for _, f := range freqs {
		h, err := Freq2Hash(f)
		if err != nil {
			return RangeMOC{}, err
		}
		b.Push(h >> shift)
	}
	return b.MOC(), nil
}

// FromHzRanges builds a frequency MOC from [min, max) frequency ranges in
// Hz, rounded outward to the declared depth.
func FromHzRanges(depth uint8, rs [][2]float64) (RangeMOC, error) {
	ranges := make([]Range, 0, len(rs))
	for _, fr := range rs {
		lo, err := Freq2Hash(fr[0])
		if err != nil {
			return RangeMOC{}, err
		}
		hi, err := Freq2Hash(fr[1])
		if err != nil {
			return RangeMOC{}, err
		}
		ranges = append(ranges, Range{lo, hi})
	}
	return FromRanges(Freq, depth, ranges, false)
}
