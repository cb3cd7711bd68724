// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/molecula/moc"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// WriteJSON serializes a MOC in the Aladin JSON form: one key per depth in
// ascending order, each holding the ascending cell indices of that depth.
// The declared depth is always present, possibly with an empty list.
func WriteJSON(w io.Writer, m moc.RangeMOC) error {
	byDepth := cellsByDepth(m)
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for d := uint8(0); d <= m.DepthMax(); d++ {
		idxs := byDepth[d]
		if len(idxs) == 0 && d != m.DepthMax() {
			continue
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&sb, "%q:[", strconv.FormatUint(uint64(d), 10))
		for i, v := range idxs {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatUint(v, 10))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte('}')
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "writing json moc")
}

// JSONString is a convenience wrapper around WriteJSON.
func JSONString(m moc.RangeMOC) string {
	var sb strings.Builder
	_ = WriteJSON(&sb, m)
	return sb.String()
}

// ParseJSON parses the Aladin JSON form for the given quantity. The
// declared depth is the largest key.
func ParseJSON(q moc.Qty, data []byte) (moc.RangeMOC, error) {
	var raw map[string][]uint64
	if err := json.Unmarshal(data, &raw); err != nil {
		return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "json: %v", err)
	}
	if len(raw) == 0 {
		return moc.RangeMOC{}, errors.Wrap(ErrMalformedInput, "json moc without depth keys")
	}
	var depthMax uint8
	var cells []moc.Cell
	for k, idxs := range raw {
		d64, err := strconv.ParseUint(k, 10, 8)
		if err != nil {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad depth key %q", k)
		}
		if err := q.CheckDepth(uint8(d64)); err != nil {
			return moc.RangeMOC{}, err
		}
		if uint8(d64) > depthMax {
			depthMax = uint8(d64)
		}
		for _, idx := range idxs {
			cells = append(cells, moc.Cell{Depth: uint8(d64), Idx: idx})
		}
	}
	return moc.FromCells(q, depthMax, cells)
}

// WriteJSON2D serializes a 2-D MOC as an array of objects, each holding the
// outer and inner 1-D JSON MOCs under their quantity prefixes.
func WriteJSON2D(w io.Writer, m2 moc.RangeMOC2) error {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range m2.Elems() {
		if i > 0 {
			sb.WriteByte(',')
		}
		outer := moc.NewRangeMOC(m2.QtyOuter(), m2.DepthOuter(), e.Outer)
		fmt.Fprintf(&sb, "{%q:%s,%q:%s}",
			string(m2.QtyOuter().Prefix()), JSONString(outer),
			string(m2.QtyInner().Prefix()), JSONString(e.Inner))
	}
	sb.WriteByte(']')
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "writing json 2-d moc")
}

// ParseJSON2D parses the 2-D JSON form for the given quantity pair.
func ParseJSON2D(qOuter, qInner moc.Qty, data []byte) (moc.RangeMOC2, error) {
	var raw []map[string]map[string][]uint64
	if err := json.Unmarshal(data, &raw); err != nil {
		return moc.RangeMOC2{}, errors.Wrapf(ErrMalformedInput, "json: %v", err)
	}
	po, pi := string(qOuter.Prefix()), string(qInner.Prefix())
	var elems []moc.MOC2Elem
	var depthOuter, depthInner uint8
	for _, obj := range raw {
		outerRaw, ok := obj[po]
		if !ok {
			return moc.RangeMOC2{}, errors.Wrapf(ErrMalformedInput, "2-d json element without %q key", po)
		}
		innerRaw, ok := obj[pi]
		if !ok {
			return moc.RangeMOC2{}, errors.Wrapf(ErrMalformedInput, "2-d json element without %q key", pi)
		}
		outer, err := mocFromDepthMap(qOuter, outerRaw)
		if err != nil {
			return moc.RangeMOC2{}, err
		}
		inner, err := mocFromDepthMap(qInner, innerRaw)
		if err != nil {
			return moc.RangeMOC2{}, err
		}
		if outer.DepthMax() > depthOuter {
			depthOuter = outer.DepthMax()
		}
		if inner.DepthMax() > depthInner {
			depthInner = inner.DepthMax()
		}
		if !outer.IsEmpty() {
			elems = append(elems, moc.MOC2Elem{Outer: outer.Ranges(), Inner: inner})
		}
	}
	return moc.NewRangeMOC2(qOuter, depthOuter, qInner, depthInner, elems), nil
}

func mocFromDepthMap(q moc.Qty, raw map[string][]uint64) (moc.RangeMOC, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var depthMax uint8
	var cells []moc.Cell
	for _, k := range keys {
		d64, err := strconv.ParseUint(k, 10, 8)
		if err != nil {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad depth key %q", k)
		}
		if err := q.CheckDepth(uint8(d64)); err != nil {
			return moc.RangeMOC{}, err
		}
		if uint8(d64) > depthMax {
			depthMax = uint8(d64)
		}
		for _, idx := range raw[k] {
			cells = append(cells, moc.Cell{Depth: uint8(d64), Idx: idx})
		}
	}
	if len(raw) == 0 {
		return moc.RangeMOC{}, errors.Wrap(ErrMalformedInput, "json moc without depth keys")
	}
	return moc.FromCells(q, depthMax, cells)
}
