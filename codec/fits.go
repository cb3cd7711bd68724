// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/molecula/moc"
	"github.com/pkg/errors"
)

const (
	fitsBlock    = 2880
	fitsCardLen  = 80
	mocToolName  = "moc-go"
	mocVersion   = "2.0"
	mocVersion1  = "1.0"
	orderingRng  = "RANGE"
	orderingUniq = "NUNIQ"
)

// fitsHeader accumulates 80-character cards and pads to the 2880-byte block
// size on flush.
type fitsHeader struct {
	cards []string
}

func (h *fitsHeader) card(raw string) {
	if len(raw) > fitsCardLen {
		raw = raw[:fitsCardLen]
	}
	h.cards = append(h.cards, raw+strings.Repeat(" ", fitsCardLen-len(raw)))
}

func (h *fitsHeader) logical(key string, v bool) {
	val := "F"
	if v {
		val = "T"
	}
	h.card(fmt.Sprintf("%-8s= %20s", key, val))
}

func (h *fitsHeader) integer(key string, v int64) {
	h.card(fmt.Sprintf("%-8s= %20d", key, v))
}

func (h *fitsHeader) str(key, v string) {
	h.card(fmt.Sprintf("%-8s= '%-8s'", key, v))
}

func (h *fitsHeader) end() { h.card("END") }

func (h *fitsHeader) writeTo(w io.Writer) error {
	var sb strings.Builder
	for _, c := range h.cards {
		sb.WriteString(c)
	}
	pad := (fitsBlock - sb.Len()%fitsBlock) % fitsBlock
	sb.WriteString(strings.Repeat(" ", pad))
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "writing fits header")
}

func writePrimaryHDU(w io.Writer) error {
	var h fitsHeader
	h.logical("SIMPLE", true)
	h.integer("BITPIX", 8)
	h.integer("NAXIS", 0)
	h.logical("EXTEND", true)
	h.end()
	return h.writeTo(w)
}

// padData pads the data region of an HDU to the block size.
func padData(w io.Writer, n int) error {
	pad := (fitsBlock - n%fitsBlock) % fitsBlock
	if pad == 0 {
		return nil
	}
	_, err := w.Write(make([]byte, pad))
	return errors.Wrap(err, "padding fits data")
}

func mocDim(q moc.Qty) string {
	switch q {
	case moc.Hpx:
		return "SPACE"
	case moc.Time:
		return "TIME"
	default:
		return "FREQUENCY"
	}
}

// use32 reports whether a MOC of the given quantity and depth fits 32-bit
// indices.
func use32(q moc.Qty, depth uint8) bool { return depth <= q.MaxDepth32() }

func writeBE(w io.Writer, v uint64, wide bool) error {
	var buf [8]byte
	if wide {
		binary.BigEndian.PutUint64(buf[:], v)
		_, err := w.Write(buf[:8])
		return err
	}
	binary.BigEndian.PutUint32(buf[:4], uint32(v))
	_, err := w.Write(buf[:4])
	return err
}

// WriteFITS serializes a MOC in the FITS MOC v2.0 RANGE form: a binary
// table of 2N range bounds, 32-bit when the declared depth allows it.
func WriteFITS(w io.Writer, m moc.RangeMOC) error {
	if err := writePrimaryHDU(w); err != nil {
		return err
	}
	wide := !use32(m.Qty(), m.DepthMax())
	width := int64(4)
	tform := "J"
	// 32-bit tables hold indices of the deepest 32-bit depth
	shift := m.Qty().Shift(m.Qty().MaxDepth32())
	if wide {
		width, tform, shift = 8, "K", 0
	}

	var h fitsHeader
	h.str("XTENSION", "BINTABLE")
	h.integer("BITPIX", 8)
	h.integer("NAXIS", 2)
	h.integer("NAXIS1", width)
	h.integer("NAXIS2", int64(2*m.Len()))
	h.integer("PCOUNT", 0)
	h.integer("GCOUNT", 1)
	h.integer("TFIELDS", 1)
	h.str("TTYPE1", "RANGE")
	h.str("TFORM1", tform)
	h.logical("MOC", true)
	h.str("MOCDIM", mocDim(m.Qty()))
	h.str("MOCVERS", mocVersion)
	h.str("ORDERING", orderingRng)
	h.integer("MOCORDER", int64(m.DepthMax()))
	switch m.Qty() {
	case moc.Hpx:
		h.str("COORDSYS", "C")
	case moc.Time:
		h.str("TIMESYS", "TCB")
	}
	h.str("MOCTOOL", mocToolName)
	h.end()
	if err := h.writeTo(w); err != nil {
		return err
	}

	n := 0
	for _, r := range m.Ranges() {
		if err := writeBE(w, r.Lo>>shift, wide); err != nil {
			return errors.Wrap(err, "writing fits range")
		}
		if err := writeBE(w, r.Hi>>shift, wide); err != nil {
			return errors.Wrap(err, "writing fits range")
		}
		n += 2 * int(width)
	}
	return padData(w, n)
}

// WriteFITSUniq serializes a spatial MOC in the legacy FITS MOC v1.0 NUNIQ
// form. MOCORDER is the minimum order representing the data.
func WriteFITSUniq(w io.Writer, m moc.RangeMOC) error {
	if m.Qty() != moc.Hpx {
		return errors.Wrap(ErrMalformedInput, "NUNIQ serialization is for spatial MOCs only")
	}
	if err := writePrimaryHDU(w); err != nil {
		return err
	}
	order := m.MinDepth()
	uniqs := m.Uniqs()
	wide := !use32(moc.Hpx, order)
	width := int64(4)
	tform := "J"
	if wide {
		width, tform = 8, "K"
	}

	var h fitsHeader
	h.str("XTENSION", "BINTABLE")
	h.integer("BITPIX", 8)
	h.integer("NAXIS", 2)
	h.integer("NAXIS1", width)
	h.integer("NAXIS2", int64(len(uniqs)))
	h.integer("PCOUNT", 0)
	h.integer("GCOUNT", 1)
	h.integer("TFIELDS", 1)
	h.str("TTYPE1", "UNIQ")
	h.str("TFORM1", tform)
	h.str("PIXTYPE", "HEALPIX")
	h.str("ORDERING", orderingUniq)
	h.str("COORDSYS", "C")
	h.str("MOCVERS", mocVersion1)
	h.integer("MOCORDER", int64(order))
	h.str("MOCTOOL", mocToolName)
	h.end()
	if err := h.writeTo(w); err != nil {
		return err
	}

	n := 0
	for _, u := range uniqs {
		if err := writeBE(w, u, wide); err != nil {
			return errors.Wrap(err, "writing fits uniq")
		}
		n += int(width)
	}
	return padData(w, n)
}

// WriteFITS2D serializes a 2-D MOC in the FITS MOC v2.0 RANGE form: per
// element, the outer range bounds with the top bit set, then the inner
// range bounds plain. 64-bit indices are always used.
func WriteFITS2D(w io.Writer, m2 moc.RangeMOC2) error {
	if err := writePrimaryHDU(w); err != nil {
		return err
	}
	const topBit = uint64(1) << 63

	nvals := 0
	for _, e := range m2.Elems() {
		nvals += 2*len(e.Outer) + 2*e.Inner.Len()
	}

	dim := mocDim(m2.QtyOuter()) + "." + mocDim(m2.QtyInner())

	var h fitsHeader
	h.str("XTENSION", "BINTABLE")
	h.integer("BITPIX", 8)
	h.integer("NAXIS", 2)
	h.integer("NAXIS1", 8)
	h.integer("NAXIS2", int64(nvals))
	h.integer("PCOUNT", 0)
	h.integer("GCOUNT", 1)
	h.integer("TFIELDS", 1)
	h.str("TTYPE1", "RANGE")
	h.str("TFORM1", "K")
	h.logical("MOC", true)
	h.str("MOCDIM", dim)
	h.str("MOCVERS", mocVersion)
	h.str("ORDERING", orderingRng)
	h.integer("MOCORD_T", int64(m2.DepthOuter()))
	h.integer("MOCORD_S", int64(m2.DepthInner()))
	h.str("TIMESYS", "TCB")
	h.str("COORDSYS", "C")
	h.str("MOCTOOL", mocToolName)
	h.end()
	if err := h.writeTo(w); err != nil {
		return err
	}

	n := 0
	for _, e := range m2.Elems() {
		for _, r := range e.Outer {
			if err := writeBE(w, r.Lo|topBit, true); err != nil {
				return errors.Wrap(err, "writing fits 2-d range")
			}
			if err := writeBE(w, r.Hi|topBit, true); err != nil {
				return errors.Wrap(err, "writing fits 2-d range")
			}
			n += 16
		}
		for _, r := range e.Inner.Ranges() {
			if err := writeBE(w, r.Lo, true); err != nil {
				return errors.Wrap(err, "writing fits 2-d range")
			}
			if err := writeBE(w, r.Hi, true); err != nil {
				return errors.Wrap(err, "writing fits 2-d range")
			}
			n += 16
		}
	}
	return padData(w, n)
}
