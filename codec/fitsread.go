// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/molecula/moc"
	"github.com/molecula/moc/logger"
	"github.com/pkg/errors"
)

// fitsKeys holds the raw header keywords of one HDU.
type fitsKeys map[string]string

func (k fitsKeys) str(key string) (string, bool) {
	v, ok := k[key]
	return v, ok
}

func (k fitsKeys) integer(key string) (int64, bool) {
	v, ok := k[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// readHeader reads 2880-byte blocks of 80-character cards up to END.
func readHeader(r io.Reader) (fitsKeys, error) {
	keys := make(fitsKeys)
	block := make([]byte, fitsBlock)
	for {
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, errors.Wrapf(ErrMalformedInput, "truncated fits header: %v", err)
		}
		for off := 0; off < fitsBlock; off += fitsCardLen {
			card := block[off : off+fitsCardLen]
			key := strings.TrimRight(string(card[:8]), " ")
			if key == "END" {
				return keys, nil
			}
			if key == "" || key == "COMMENT" || key == "HISTORY" || card[8] != '=' {
				continue
			}
			keys[key] = parseCardValue(string(card[10:]))
		}
	}
}

// parseCardValue strips the inline comment and the quoting of a card value.
func parseCardValue(raw string) string {
	inQuote := false
	end := len(raw)
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\'':
			inQuote = !inQuote
		case '/':
			if !inQuote {
				end = i
				i = len(raw)
			}
		}
	}
	v := strings.TrimSpace(raw[:end])
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		v = strings.TrimRight(v[1:len(v)-1], " ")
	}
	return v
}

// tformWidth maps a TFORM code to a byte width; the repeat-1 prefix is
// accepted.
func tformWidth(tform string) (int, error) {
	t := strings.TrimPrefix(strings.TrimSpace(tform), "1")
	switch t {
	case "B":
		return 1, nil
	case "I":
		return 2, nil
	case "J":
		return 4, nil
	case "K":
		return 8, nil
	default:
		return 0, errors.Wrapf(ErrMalformedInput, "unsupported TFORM %q", tform)
	}
}

// readInts reads n big-endian unsigned integers of the given byte width.
func readInts(r io.Reader, n int, width int) ([]uint64, error) {
	buf := make([]byte, n*width)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(ErrMalformedInput, "truncated fits data: %v", err)
	}
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		b := buf[i*width : (i+1)*width]
		switch width {
		case 1:
			out[i] = uint64(b[0])
		case 2:
			out[i] = uint64(binary.BigEndian.Uint16(b))
		case 4:
			out[i] = uint64(binary.BigEndian.Uint32(b))
		default:
			out[i] = binary.BigEndian.Uint64(b)
		}
	}
	return out, nil
}

func qtyFromMocDim(dim string) (moc.Qty, error) {
	switch dim {
	case "SPACE":
		return moc.Hpx, nil
	case "TIME":
		return moc.Time, nil
	case "FREQUENCY":
		return moc.Freq, nil
	default:
		return 0, errors.Wrapf(ErrMalformedInput, "unsupported MOCDIM %q", dim)
	}
}

// FITSContent is the result of reading a MOC FITS file: either a 1-D or a
// 2-D MOC.
type FITSContent struct {
	Is2D bool
	MOC  moc.RangeMOC
	MOC2 moc.RangeMOC2
}

// ReadFITS reads a MOC FITS file (RANGE v2.0 or legacy NUNIQ v1.0, 1-D or
// 2-D, possibly gzip-compressed). Recoverable deviations are reported as
// warnings on log; a nil log silences them.
func ReadFITS(r io.Reader, log logger.Logger) (*FITSContent, error) {
	if log == nil {
		log = logger.NopLogger
	}
	rr, err := maybeGunzip(r)
	if err != nil {
		return nil, err
	}
	// skip the primary HDU (NAXIS=0, no data)
	primary, err := readHeader(rr)
	if err != nil {
		return nil, err
	}
	if naxis, ok := primary.integer("NAXIS"); ok && naxis != 0 {
		return nil, errors.Wrap(ErrMalformedInput, "primary HDU with data is not a MOC file")
	}

	keys, err := readHeader(rr)
	if err != nil {
		return nil, err
	}
	if xt, _ := keys.str("XTENSION"); xt != "BINTABLE" {
		return nil, errors.Wrapf(ErrMalformedInput, "expected BINTABLE extension, got %q", xt)
	}
	tform, ok := keys.str("TFORM1")
	if !ok {
		return nil, errors.Wrap(ErrMalformedInput, "missing TFORM1")
	}
	width, err := tformWidth(tform)
	if err != nil {
		return nil, err
	}
	if _, ok := keys.str("TTYPE1"); !ok {
		log.Warnf("fits: missing TTYPE1, assuming a MOC column")
	}
	nrows, ok := keys.integer("NAXIS2")
	if !ok || nrows < 0 {
		return nil, errors.Wrap(ErrMalformedInput, "missing or bad NAXIS2")
	}
	vals, err := readInts(rr, int(nrows), width)
	if err != nil {
		return nil, err
	}

	ordering, _ := keys.str("ORDERING")
	switch ordering {
	case orderingUniq:
		m, err := mocFromUniqTable(keys, vals, log)
		if err != nil {
			return nil, err
		}
		return &FITSContent{MOC: m}, nil
	case orderingRng:
		// fall through
	default:
		return nil, errors.Wrapf(ErrMalformedInput, "unsupported ORDERING %q", ordering)
	}

	dim, _ := keys.str("MOCDIM")
	if strings.ContainsRune(dim, '.') {
		m2, err := moc2FromRangeTable(keys, dim, vals, log)
		if err != nil {
			return nil, err
		}
		return &FITSContent{Is2D: true, MOC2: m2}, nil
	}
	if width == 4 {
		// 32-bit tables hold indices of the deepest 32-bit depth, which is
		// 32 bits above the deepest depth for every quantity
		for i := range vals {
			vals[i] <<= 32
		}
	}
	m, err := mocFromRangeTable(keys, dim, vals)
	if err != nil {
		return nil, err
	}
	return &FITSContent{MOC: m}, nil
}

// ReadFITSMOC reads a 1-D MOC FITS file.
func ReadFITSMOC(r io.Reader, log logger.Logger) (moc.RangeMOC, error) {
	c, err := ReadFITS(r, log)
	if err != nil {
		return moc.RangeMOC{}, err
	}
	if c.Is2D {
		return moc.RangeMOC{}, errors.Wrap(ErrMalformedInput, "expected a 1-D MOC, found a 2-D MOC")
	}
	return c.MOC, nil
}

// ReadFITS2D reads a 2-D MOC FITS file.
func ReadFITS2D(r io.Reader, log logger.Logger) (moc.RangeMOC2, error) {
	c, err := ReadFITS(r, log)
	if err != nil {
		return moc.RangeMOC2{}, err
	}
	if !c.Is2D {
		return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "expected a 2-D MOC, found a 1-D MOC")
	}
	return c.MOC2, nil
}

func mocFromRangeTable(keys fitsKeys, dim string, vals []uint64) (moc.RangeMOC, error) {
	if dim == "" {
		// v2.0 files always carry MOCDIM, but be lenient with spatial
		// producers omitting it
		dim = "SPACE"
	}
	q, err := qtyFromMocDim(dim)
	if err != nil {
		return moc.RangeMOC{}, err
	}
	order, ok := keys.integer("MOCORDER")
	if !ok {
		if order, ok = keys.integer("MOCORD_S"); !ok {
			return moc.RangeMOC{}, errors.Wrap(ErrMalformedInput, "missing MOCORDER")
		}
	}
	if len(vals)%2 != 0 {
		return moc.RangeMOC{}, errors.Wrap(ErrMalformedInput, "odd number of RANGE values")
	}
	rs := make([]moc.Range, 0, len(vals)/2)
	for i := 0; i < len(vals); i += 2 {
		rs = append(rs, moc.Range{Lo: vals[i], Hi: vals[i+1]})
	}
	return moc.FromRanges(q, uint8(order), rs, false)
}

func mocFromUniqTable(keys fitsKeys, vals []uint64, log logger.Logger) (moc.RangeMOC, error) {
	// a known producer bug pads the table with trailing zero UNIQs
	n := len(vals)
	for n > 0 && vals[n-1] == 0 {
		n--
	}
	if n < len(vals) {
		log.Warnf("fits: ignoring %d trailing zero UNIQ entries", len(vals)-n)
	}
	var cells []moc.Cell
	var deepest uint8
	for _, u := range vals[:n] {
		if u < 4 {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "UNIQ %d < 4", u)
		}
		d, i := moc.FromUniq(u)
		if d > moc.HpxMaxDepth {
			log.Warnf("fits: ignoring UNIQ %d deeper than depth %d", u, moc.HpxMaxDepth)
			continue
		}
		if err := moc.Hpx.CheckIdx(d, i); err != nil {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad UNIQ %d: %v", u, err)
		}
		if d > deepest {
			deepest = d
		}
		cells = append(cells, moc.Cell{Depth: d, Idx: i})
	}
	order, ok := keys.integer("MOCORDER")
	if !ok {
		log.Warnf("fits: missing MOCORDER, using deepest UNIQ depth %d", deepest)
		order = int64(deepest)
	}
	if int64(deepest) > order {
		order = int64(deepest)
	}
	return moc.FromCells(moc.Hpx, uint8(order), cells)
}

func moc2FromRangeTable(keys fitsKeys, dim string, vals []uint64, log logger.Logger) (moc.RangeMOC2, error) {
	const topBit = uint64(1) << 63

	parts := strings.SplitN(dim, ".", 2)
	qInner, err := qtyFromMocDim(parts[1])
	if err != nil {
		return moc.RangeMOC2{}, err
	}
	qOuter, err := qtyFromMocDim(parts[0])
	if err != nil {
		return moc.RangeMOC2{}, err
	}

	orderT, ok := keys.integer("MOCORD_T")
	if !ok {
		if orderT, ok = keys.integer("MOCORDER"); !ok {
			return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "missing MOCORD_T")
		}
	}
	orderS, ok := keys.integer("MOCORD_S")
	if !ok {
		// some producers omit MOCORD_S; assume the deepest spatial order
		log.Warnf("fits: missing MOCORD_S, assuming depth %d", moc.HpxMaxDepth)
		orderS = moc.HpxMaxDepth
	}

	if len(vals)%2 != 0 {
		return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "odd number of RANGE values")
	}

	var elems []moc.MOC2Elem
	var outer []moc.Range
	var inner []moc.Range
	flushElem := func() error {
		if len(outer) == 0 {
			return nil
		}
		im, err := moc.FromRanges(qInner, uint8(orderS), inner, false)
		if err != nil {
			return err
		}
		elems = append(elems, moc.MOC2Elem{Outer: moc.Normalize(outer), Inner: im})
		outer, inner = nil, nil
		return nil
	}
	for i := 0; i < len(vals); i += 2 {
		lo, hi := vals[i], vals[i+1]
		if lo&topBit != 0 {
			if hi&topBit == 0 {
				return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "2-d range with mixed axis flags")
			}
			if len(inner) > 0 {
				if err := flushElem(); err != nil {
					return moc.RangeMOC2{}, err
				}
			}
			outer = append(outer, moc.Range{Lo: lo &^ topBit, Hi: hi &^ topBit})
		} else {
			if len(outer) == 0 {
				return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "2-d inner range before any outer range")
			}
			inner = append(inner, moc.Range{Lo: lo, Hi: hi})
		}
	}
	if err := flushElem(); err != nil {
		return moc.RangeMOC2{}, err
	}
	return moc.NewRangeMOC2(qOuter, uint8(orderT), qInner, uint8(orderS), elems), nil
}
