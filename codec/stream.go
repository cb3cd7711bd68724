// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/molecula/moc"
	"github.com/pkg/errors"
)

// WriteStream serializes a MOC in the newline-delimited stream form: a
// "qty=" line, a "depth=" line, then one cell per line in z-order.
func WriteStream(w io.Writer, m moc.RangeMOC) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "qty=%s\n", m.Qty().Name())
	fmt.Fprintf(bw, "depth=%d\n", m.DepthMax())
	for _, c := range m.Cells() {
		fmt.Fprintf(bw, "%d/%d\n", c.Depth, c.Idx)
	}
	return errors.Wrap(bw.Flush(), "writing moc stream")
}

// ParseStream parses the stream form in O(1) memory: cells are trusted to
// arrive in z-order, so ranges append without a sort.
func ParseStream(r io.Reader) (moc.RangeMOC, error) {
	sc := bufio.NewScanner(r)

	line, err := streamLine(sc, "qty=")
	if err != nil {
		return moc.RangeMOC{}, err
	}
	var q moc.Qty
	switch line {
	case moc.Hpx.Name():
		q = moc.Hpx
	case moc.Time.Name():
		q = moc.Time
	case moc.Freq.Name():
		q = moc.Freq
	default:
		return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "unknown quantity %q", line)
	}

	line, err = streamLine(sc, "depth=")
	if err != nil {
		return moc.RangeMOC{}, err
	}
	d64, err := strconv.ParseUint(line, 10, 8)
	if err != nil {
		return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad depth %q", line)
	}
	depth := uint8(d64)
	if err := q.CheckDepth(depth); err != nil {
		return moc.RangeMOC{}, err
	}

	var rs moc.Ranges
	for sc.Scan() {
		tok := strings.TrimSpace(sc.Text())
		if tok == "" {
			continue
		}
		i := strings.IndexByte(tok, '/')
		if i < 0 {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad cell line %q", tok)
		}
		cd64, err := strconv.ParseUint(tok[:i], 10, 8)
		if err != nil || uint8(cd64) > depth {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad cell depth in %q", tok)
		}
		idx, err := strconv.ParseUint(tok[i+1:], 10, 64)
		if err != nil {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad cell index in %q", tok)
		}
		if idx >= q.NCells(uint8(cd64)) {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "cell index out of bounds in %q", tok)
		}
		r := q.CellRange(uint8(cd64), idx)
		if n := len(rs); n > 0 {
			if r.Lo < rs[n-1].Hi {
				return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "cell %q out of order", tok)
			}
			if r.Lo == rs[n-1].Hi {
				rs[n-1].Hi = r.Hi
				continue
			}
		}
		rs = append(rs, r)
	}
	if err := sc.Err(); err != nil {
		return moc.RangeMOC{}, errors.Wrap(err, "reading moc stream")
	}
	return moc.NewRangeMOC(q, depth, rs), nil
}

func streamLine(sc *bufio.Scanner, prefix string) (string, error) {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, prefix) {
			return "", errors.Wrapf(ErrMalformedInput, "expected %q line, got %q", prefix, line)
		}
		return strings.TrimSpace(strings.TrimPrefix(line, prefix)), nil
	}
	if err := sc.Err(); err != nil {
		return "", errors.Wrap(err, "reading moc stream")
	}
	return "", errors.Wrapf(ErrMalformedInput, "missing %q line", prefix)
}
