// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/molecula/moc"
	"github.com/molecula/moc/hpx"
	"github.com/molecula/moc/logger"
	"github.com/pkg/errors"
)

// tformFloat parses a floating-point TFORM with an optional repeat count,
// returning (repeat, byte width per value).
func tformFloat(tform string) (int, int, error) {
	t := strings.TrimSpace(tform)
	n := 0
	for n < len(t) && t[n] >= '0' && t[n] <= '9' {
		n++
	}
	repeat := 1
	if n > 0 {
		r, err := strconv.Atoi(t[:n])
		if err != nil || r < 1 {
			return 0, 0, errors.Wrapf(ErrMalformedInput, "bad TFORM repeat %q", tform)
		}
		repeat = r
	}
	switch t[n:] {
	case "E":
		return repeat, 4, nil
	case "D":
		return repeat, 8, nil
	default:
		return 0, 0, errors.Wrapf(ErrMalformedInput, "unsupported value TFORM %q", tform)
	}
}

func readFloat(b []byte, width int) float64 {
	if width == 4 {
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// ReadSkymap reads a fixed-order HEALPix skymap FITS file (NSIDE keyword,
// one value column of NPIX entries, NESTED or RING ordering, transparent
// gzip) and returns the map depth plus one valued cell per pixel. RING maps
// are converted to NESTED on the fly.
func ReadSkymap(r io.Reader, log logger.Logger) (uint8, []moc.ValuedCell, error) {
	if log == nil {
		log = logger.NopLogger
	}
	rr, err := maybeGunzip(r)
	if err != nil {
		return 0, nil, err
	}
	if _, err := readHeader(rr); err != nil {
		return 0, nil, err
	}
	keys, err := readHeader(rr)
	if err != nil {
		return 0, nil, err
	}

	nside, ok := keys.integer("NSIDE")
	if !ok || nside < 1 {
		return 0, nil, errors.Wrap(ErrMalformedInput, "missing or bad NSIDE")
	}
	depth := uint8(0)
	for int64(1)<<depth < nside {
		depth++
	}
	if int64(1)<<depth != nside {
		return 0, nil, errors.Wrapf(ErrMalformedInput, "NSIDE %d is not a power of two", nside)
	}
	if first, ok := keys.integer("FIRSTPIX"); ok && first != 0 {
		return 0, nil, errors.Wrapf(ErrMalformedInput, "FIRSTPIX %d, want 0", first)
	}

	ordering, _ := keys.str("ORDERING")
	var ring bool
	switch ordering {
	case "NESTED", "NEST":
		ring = false
	case "RING":
		ring = true
	default:
		return 0, nil, errors.Wrapf(ErrMalformedInput, "unsupported skymap ORDERING %q", ordering)
	}

	tform, ok := keys.str("TFORM1")
	if !ok {
		return 0, nil, errors.Wrap(ErrMalformedInput, "missing TFORM1")
	}
	repeat, width, err := tformFloat(tform)
	if err != nil {
		return 0, nil, err
	}
	nrows, ok := keys.integer("NAXIS2")
	if !ok {
		return 0, nil, errors.Wrap(ErrMalformedInput, "missing NAXIS2")
	}

	npix := hpx.NCells(depth)
	total := uint64(repeat) * uint64(nrows)
	if total != npix {
		return 0, nil, errors.Wrapf(ErrMalformedInput, "skymap holds %d values, want %d", total, npix)
	}

	buf := make([]byte, int(total)*width)
	if _, err := io.ReadFull(rr, buf); err != nil {
		return 0, nil, errors.Wrapf(ErrMalformedInput, "truncated skymap data: %v", err)
	}
	cells := make([]moc.ValuedCell, total)
	for i := uint64(0); i < total; i++ {
		idx := i
		if ring {
			idx = hpx.RingToNest(depth, i)
		}
		cells[i] = moc.ValuedCell{
			Uniq:  moc.ToUniq(depth, idx),
			Value: readFloat(buf[int(i)*width:], width),
		}
	}
	return depth, cells, nil
}

// ReadMultiOrderMap reads a variable-order (UNIQ, value) FITS table
// (transparent gzip) into valued cells.
func ReadMultiOrderMap(r io.Reader, log logger.Logger) ([]moc.ValuedCell, error) {
	if log == nil {
		log = logger.NopLogger
	}
	rr, err := maybeGunzip(r)
	if err != nil {
		return nil, err
	}
	if _, err := readHeader(rr); err != nil {
		return nil, err
	}
	keys, err := readHeader(rr)
	if err != nil {
		return nil, err
	}

	if t1, _ := keys.str("TTYPE1"); t1 != "UNIQ" {
		log.Warnf("fits: first column named %q, expected UNIQ", t1)
	}
	tformU, ok := keys.str("TFORM1")
	if !ok {
		return nil, errors.Wrap(ErrMalformedInput, "missing TFORM1")
	}
	widthU, err := tformWidth(tformU)
	if err != nil {
		return nil, err
	}
	tformV, ok := keys.str("TFORM2")
	if !ok {
		return nil, errors.Wrap(ErrMalformedInput, "missing TFORM2")
	}
	repeat, widthV, err := tformFloat(tformV)
	if err != nil {
		return nil, err
	}
	if repeat != 1 {
		return nil, errors.Wrapf(ErrMalformedInput, "multi-order map value column with repeat %d", repeat)
	}
	nrows, ok := keys.integer("NAXIS2")
	if !ok || nrows < 0 {
		return nil, errors.Wrap(ErrMalformedInput, "missing or bad NAXIS2")
	}

	rowLen := widthU + widthV
	buf := make([]byte, int(nrows)*rowLen)
	if _, err := io.ReadFull(rr, buf); err != nil {
		return nil, errors.Wrapf(ErrMalformedInput, "truncated multi-order map data: %v", err)
	}
	cells := make([]moc.ValuedCell, nrows)
	for i := 0; i < int(nrows); i++ {
		row := buf[i*rowLen:]
		var uniq uint64
		switch widthU {
		case 1:
			uniq = uint64(row[0])
		case 2:
			uniq = uint64(binary.BigEndian.Uint16(row))
		case 4:
			uniq = uint64(binary.BigEndian.Uint32(row))
		default:
			uniq = binary.BigEndian.Uint64(row)
		}
		cells[i] = moc.ValuedCell{Uniq: uniq, Value: readFloat(row[widthU:], widthV)}
	}
	return cells, nil
}
