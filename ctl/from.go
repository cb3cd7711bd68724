// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"bufio"
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/molecula/moc"
	"github.com/pkg/errors"
)

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

// FromCommand rasterizes a geometric region into a spatial MOC. All angles
// are degrees.
type FromCommand struct {
	Shape      string // cone | ring | ellipse | box | zone | polygon | pos
	Depth      uint8
	DeltaDepth uint8
	Output     string
	To         string

	Lon, Lat   float64
	Radius     float64
	RadiusInt  float64
	A, B, PA   float64
	LonMin     float64
	LatMin     float64
	LonMax     float64
	LatMax     float64
	Vertices   string // lon,lat pairs: "l1,b1,l2,b2,..."
	Complement bool

	*CmdIO
}

// NewFromCommand returns a new instance of FromCommand.
func NewFromCommand(cio *CmdIO) *FromCommand {
	return &FromCommand{
		Depth:      10,
		DeltaDepth: 2,
		To:         FormatFITS,
		CmdIO:      cio,
	}
}

// Run builds the MOC.
func (cmd *FromCommand) Run(ctx context.Context) error {
	var m moc.RangeMOC
	var err error
	switch cmd.Shape {
	case "cone":
		m, err = moc.FromCone(deg2rad(cmd.Lon), deg2rad(cmd.Lat), deg2rad(cmd.Radius), cmd.Depth, cmd.DeltaDepth)
	case "ring":
		m, err = moc.FromRing(deg2rad(cmd.Lon), deg2rad(cmd.Lat), deg2rad(cmd.RadiusInt), deg2rad(cmd.Radius), cmd.Depth)
	case "ellipse":
		m, err = moc.FromEllipticalCone(deg2rad(cmd.Lon), deg2rad(cmd.Lat), deg2rad(cmd.A), deg2rad(cmd.B), deg2rad(cmd.PA), cmd.Depth)
	case "box":
		m, err = moc.FromBox(deg2rad(cmd.Lon), deg2rad(cmd.Lat), deg2rad(cmd.A), deg2rad(cmd.B), deg2rad(cmd.PA), cmd.Depth)
	case "zone":
		m, err = moc.FromZone(deg2rad(cmd.LonMin), deg2rad(cmd.LatMin), deg2rad(cmd.LonMax), deg2rad(cmd.LatMax), cmd.Depth)
	case "polygon":
		var vs [][2]float64
		vs, err = parseVertices(cmd.Vertices)
		if err != nil {
			return err
		}
		m, err = moc.FromPolygon(vs, cmd.Complement, cmd.Depth)
	case "pos":
		// one "lon lat" pair per stdin line, degrees
		var ps [][2]float64
		sc := bufio.NewScanner(cmd.Stdin)
		for sc.Scan() {
			fields := strings.Fields(sc.Text())
			if len(fields) < 2 {
				continue
			}
			lon, err1 := strconv.ParseFloat(fields[0], 64)
			lat, err2 := strconv.ParseFloat(fields[1], 64)
			if err1 != nil || err2 != nil {
				return errors.Errorf("bad position line %q", sc.Text())
			}
			ps = append(ps, [2]float64{deg2rad(lon), deg2rad(lat)})
		}
		if err = sc.Err(); err != nil {
			return errors.Wrap(err, "reading positions")
		}
		m, err = moc.FromPositions(cmd.Depth, ps)
	default:
		return errors.Errorf("bad shape %q", cmd.Shape)
	}
	if err != nil {
		return errors.Wrap(err, "building moc")
	}
	return errors.Wrap(WriteMOC(cmd.Output, cmd.To, m), "writing output moc")
}

func parseVertices(s string) ([][2]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 6 || len(parts)%2 != 0 {
		return nil, errors.Errorf("bad vertex list %q: need at least 3 lon,lat pairs", s)
	}
	out := make([][2]float64, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err1 != nil || err2 != nil {
			return nil, errors.Errorf("bad vertex %q,%q", parts[i], parts[i+1])
		}
		out = append(out, [2]float64{deg2rad(lon), deg2rad(lat)})
	}
	return out, nil
}
