// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/molecula/moc"
	"github.com/pkg/errors"
)

// WriteASCII serializes a MOC in the IVOA ASCII form: per-depth buckets of
// cells with consecutive cells folded into idx-idx ranges, the declared
// depth always present even without cells. fold > 0 folds lines at
// approximately that many characters; fold <= 0 writes a single line.
func WriteASCII(w io.Writer, m moc.RangeMOC, fold int) error {
	var sb strings.Builder
	lineLen := 0
	emit := func(tok string) {
		if sb.Len() > 0 {
			if fold > 0 && lineLen+1+len(tok) > fold {
				sb.WriteByte('\n')
				lineLen = 0
			} else {
				sb.WriteByte(' ')
				lineLen++
			}
		}
		sb.WriteString(tok)
		lineLen += len(tok)
	}

	byDepth := cellsByDepth(m)
	sawDeclared := false
	for d := uint8(0); d <= m.DepthMax(); d++ {
		idxs := byDepth[d]
		if len(idxs) == 0 {
			continue
		}
		if d == m.DepthMax() {
			sawDeclared = true
		}
		first := true
		for _, tok := range foldRuns(idxs) {
			if first {
				emit(fmt.Sprintf("%d/%s", d, tok))
				first = false
			} else {
				emit(tok)
			}
		}
	}
	if !sawDeclared {
		emit(fmt.Sprintf("%d/", m.DepthMax()))
	}
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "writing ascii moc")
}

// ASCIIString is a convenience wrapper around WriteASCII.
func ASCIIString(m moc.RangeMOC) string {
	var sb strings.Builder
	_ = WriteASCII(&sb, m, 0)
	return sb.String()
}

// cellsByDepth groups the cell decomposition by depth; per-depth index
// lists stay sorted.
func cellsByDepth(m moc.RangeMOC) map[uint8][]uint64 {
	byDepth := make(map[uint8][]uint64)
	for _, c := range m.Cells() {
		byDepth[c.Depth] = append(byDepth[c.Depth], c.Idx)
	}
	return byDepth
}

// foldRuns folds sorted indices into "i" / "i-j" tokens.
func foldRuns(idxs []uint64) []string {
	var out []string
	for i := 0; i < len(idxs); {
		j := i
		for j+1 < len(idxs) && idxs[j+1] == idxs[j]+1 {
			j++
		}
		if j == i {
			out = append(out, strconv.FormatUint(idxs[i], 10))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", idxs[i], idxs[j]))
		}
		i = j + 1
	}
	return out
}

// ParseASCII parses the ASCII form for the given quantity. Tokens are
// "depth/idx", "depth/idx-idx", a bare "depth/" (declared-depth marker), or
// bare "idx" / "idx-idx" continuing the current depth. Whitespace and
// commas separate tokens.
func ParseASCII(q moc.Qty, s string) (moc.RangeMOC, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})
	var (
		depthMax  uint8
		haveDepth bool
		curDepth  uint8
		haveCur   bool
		ranges    []moc.Range
	)
	for _, tok := range fields {
		rest := tok
		if i := strings.IndexByte(tok, '/'); i >= 0 {
			d64, err := strconv.ParseUint(tok[:i], 10, 8)
			if err != nil {
				return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "bad depth in token %q", tok)
			}
			if err := q.CheckDepth(uint8(d64)); err != nil {
				return moc.RangeMOC{}, err
			}
			curDepth = uint8(d64)
			haveCur = true
			if !haveDepth || curDepth > depthMax {
				depthMax = curDepth
				haveDepth = true
			}
			rest = tok[i+1:]
			if rest == "" {
				continue
			}
		} else if !haveCur {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "token %q before any depth", tok)
		}
		lo, hi, err := parseIdxToken(rest)
		if err != nil {
			return moc.RangeMOC{}, err
		}
		if hi >= q.NCells(curDepth) {
			return moc.RangeMOC{}, errors.Wrapf(ErrMalformedInput, "index %d out of bounds at depth %d", hi, curDepth)
		}
		s := q.Shift(curDepth)
		ranges = append(ranges, moc.Range{Lo: lo << s, Hi: (hi + 1) << s})
	}
	if !haveDepth {
		return moc.RangeMOC{}, errors.Wrap(ErrMalformedInput, "no depth token")
	}
	return moc.FromRanges(q, depthMax, ranges, true)
}

func parseIdxToken(tok string) (lo, hi uint64, err error) {
	if i := strings.IndexByte(tok, '-'); i >= 0 {
		lo, err = strconv.ParseUint(tok[:i], 10, 64)
		if err != nil {
			return 0, 0, errors.Wrapf(ErrMalformedInput, "bad index in token %q", tok)
		}
		hi, err = strconv.ParseUint(tok[i+1:], 10, 64)
		if err != nil || hi < lo {
			return 0, 0, errors.Wrapf(ErrMalformedInput, "bad index range in token %q", tok)
		}
		return lo, hi, nil
	}
	lo, err = strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrMalformedInput, "bad index token %q", tok)
	}
	return lo, lo, nil
}

// WriteASCII2D serializes a 2-D MOC: per element, the outer tokens prefixed
// by the outer quantity letter, then the inner tokens prefixed by the inner
// quantity letter.
func WriteASCII2D(w io.Writer, m2 moc.RangeMOC2) error {
	var sb strings.Builder
	for _, e := range m2.Elems() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		outer := moc.NewRangeMOC(m2.QtyOuter(), m2.DepthOuter(), e.Outer)
		sb.WriteByte(m2.QtyOuter().Prefix())
		sb.WriteString(ASCIIString(outer))
		sb.WriteByte(' ')
		sb.WriteByte(m2.QtyInner().Prefix())
		sb.WriteString(ASCIIString(e.Inner))
	}
	if sb.Len() == 0 {
		// empty 2-D MOC still records both declared depths
		fmt.Fprintf(&sb, "%c%d/ %c%d/", m2.QtyOuter().Prefix(), m2.DepthOuter(), m2.QtyInner().Prefix(), m2.DepthInner())
	}
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "writing ascii 2-d moc")
}

// ParseASCII2D parses the 2-D ASCII form for the given quantity pair.
func ParseASCII2D(qOuter, qInner moc.Qty, s string) (moc.RangeMOC2, error) {
	po, pi := qOuter.Prefix(), qInner.Prefix()
	var elems []moc.MOC2Elem
	var depthOuter, depthInner uint8

	// split into alternating outer/inner chunks on the prefix letters
	type chunk struct {
		inner bool
		text  string
	}
	var chunks []chunk
	last := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c == po || c == pi) && (i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9') {
			if last >= 0 {
				chunks[len(chunks)-1].text = s[last:i]
			}
			chunks = append(chunks, chunk{inner: c == pi})
			last = i + 1
		}
	}
	if last < 0 {
		return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "no quantity prefix found")
	}
	chunks[len(chunks)-1].text = s[last:]

	for i := 0; i < len(chunks); {
		if chunks[i].inner {
			return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "inner chunk without preceding outer chunk")
		}
		outer, err := ParseASCII(qOuter, chunks[i].text)
		if err != nil {
			return moc.RangeMOC2{}, err
		}
		i++
		if i >= len(chunks) || !chunks[i].inner {
			return moc.RangeMOC2{}, errors.Wrap(ErrMalformedInput, "outer chunk without inner chunk")
		}
		inner, err := ParseASCII(qInner, chunks[i].text)
		if err != nil {
			return moc.RangeMOC2{}, err
		}
		i++
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
