// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package mocset

import (
	"encoding/binary"
	"os"

	"github.com/molecula/moc"
	"github.com/molecula/moc/syswrap"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Entry describes one stored MOC as reported by List.
type Entry struct {
	ID       uint64
	Status   Status
	Depth    uint8
	NRanges  int64
	ByteSize int64
}

// Reader gives lock-free read access to a MOC-set file through a shared
// memory mapping. A Reader sees the entries present when it was opened;
// reopen to observe later appends.
type Reader struct {
	f    *os.File
	mmap []byte
	n    int64 // slot capacity N
	used int64 // usable entries, fixed at open time
}

// Open maps a MOC-set file for reading.
func Open(path string) (*Reader, error) {
	f, _, err := syswrap.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, "opening moc-set file")
	}
	st, err := f.Stat()
	if err != nil {
		_ = syswrap.CloseFile(f)
		return nil, errors.Wrap(err, "stating moc-set file")
	}
	if st.Size() < slotSize {
		_ = syswrap.CloseFile(f)
		return nil, errors.New("moc-set file too short")
	}
	data, err := syswrap.MmapReadOnly(int(f.Fd()), 0, int(st.Size()))
	if err != nil {
		_ = syswrap.CloseFile(f)
		return nil, errors.Wrap(err, "mapping moc-set file")
	}
	r := &Reader{f: f, mmap: data}
	r.n = int64(binary.LittleEndian.Uint64(data[:slotSize]))
	if r.n <= 0 || headerSize(r.n) > st.Size() {
		_ = r.Close()
		return nil, errors.New("inconsistent moc-set header")
	}
	// Fix the usable entry count now: the metadata area is shared with the
	// writer, but this mapping only covers the file as it was at open
	// time, so entries appended later are out of reach until a reopen.
	for i := int64(1); i < r.n; i++ {
		if r.metaAt(i).status() == StatusFree {
			break
		}
		if r.indexAt(i) > st.Size() {
			break
		}
		r.used = i
	}
	return r, nil
}

// Close unmaps and closes the file.
func (r *Reader) Close() error {
	var first error
	if r.mmap != nil {
		first = syswrap.Munmap(r.mmap)
		r.mmap = nil
	}
	if err := syswrap.CloseFile(r.f); err != nil && first == nil {
		first = err
	}
	return first
}

func headerSize(n int64) int64 { return 2 * slotSize * n }

// N returns the slot capacity of the file.
func (r *Reader) N() int64 { return r.n }

func (r *Reader) metaAt(slot int64) meta {
	return meta(binary.LittleEndian.Uint64(r.mmap[slot*slotSize:]))
}

func (r *Reader) indexAt(j int64) int64 {
	return int64(binary.LittleEndian.Uint64(r.mmap[(r.n+j)*slotSize:]))
}

// len returns the number of usable entries. Metadata was read before the
// index at open time, matching the writer's reversed update order.
func (r *Reader) len() int64 { return r.used }

// payload returns the mapped bytes of logical MOC i (0-based).
func (r *Reader) payload(i int64) []byte {
	lo, hi := r.indexAt(i), r.indexAt(i+1)
	return r.mmap[lo:hi]
}

// rangeIter streams the ranges of logical MOC i.
func (r *Reader) rangeIter(i int64, depth uint8) moc.RangeIter {
	return &payloadIter{data: r.payload(i), wide: payloadWide(depth)}
}

// List reports every used slot in order.
func (r *Reader) List() []Entry {
	n := r.len()
	out := make([]Entry, 0, n)
	for i := int64(0); i < n; i++ {
		m := r.metaAt(1 + i)
		size := r.indexAt(i+1) - r.indexAt(i)
		out = append(out, Entry{
			ID:       m.id(),
			Status:   m.status(),
			Depth:    m.depth(),
			NRanges:  nRangesIn(m.depth(), size),
			ByteSize: size,
		})
	}
	return out
}

// Extract returns the MOC stored under an identifier.
func (r *Reader) Extract(id uint64) (moc.RangeMOC, error) {
	n := r.len()
	for i := int64(0); i < n; i++ {
		m := r.metaAt(1 + i)
		if m.id() != id || m.status() == StatusFree {
			continue
		}
		return moc.NewRangeMOC(moc.Hpx, m.depth(), moc.Collect(r.rangeIter(i, m.depth()))), nil
	}
	return moc.RangeMOC{}, errors.Wrapf(ErrUnknownID, "id %d", id)
}

// UnionAll returns the union of every valid MOC (and deprecated ones when
// requested) as a single MOC.
func (r *Reader) UnionAll(includeDeprecated bool) moc.RangeMOC {
	n := r.len()
	var its []moc.RangeIter
	var depth uint8
	for i := int64(0); i < n; i++ {
		m := r.metaAt(1 + i)
		if !selected(m.status(), includeDeprecated) {
			continue
		}
		if m.depth() > depth {
			depth = m.depth()
		}
		its = append(its, r.rangeIter(i, m.depth()))
	}
	return moc.NewRangeMOC(moc.Hpx, depth, moc.Collect(moc.MultiOr(its...)))
}

func selected(s Status, includeDeprecated bool) bool {
	return s == StatusValid || (includeDeprecated && s == StatusDeprecated)
}

// Predicate decides whether a stored MOC matches a query. The iterator
// streams the payload straight from the mapping.
type Predicate func(depth uint8, it moc.RangeIter) bool

// ContainsValue matches MOCs containing the given deepest-level index.
func ContainsValue(val uint64) Predicate {
	return func(depth uint8, it moc.RangeIter) bool {
		for r, ok := it.Next(); ok; r, ok = it.Next() {
			if r.Lo <= val && val < r.Hi {
				return true
			}
			if r.Lo > val {
				return false
			}
		}
		return false
	}
}

// IntersectsMOC matches MOCs sharing at least one value with m.
func IntersectsMOC(m moc.RangeMOC) Predicate {
	return func(depth uint8, it moc.RangeIter) bool {
		and := moc.And(it, m.Iter())
		_, ok := and.Next()
		return ok
	}
}

// ContainedInMOC matches MOCs entirely inside m.
func ContainedInMOC(m moc.RangeMOC) Predicate {
	return func(depth uint8, it moc.RangeIter) bool {
		minus := moc.Minus(it, m.Iter())
		_, ok := minus.Next()
		return !ok
	}
}

// ContainsMOC matches MOCs entirely covering m.
func ContainsMOC(m moc.RangeMOC) Predicate {
	return func(depth uint8, it moc.RangeIter) bool {
		minus := moc.Minus(m.Iter(), it)
		_, ok := minus.Next()
		return !ok
	}
}

// Query scans the set and returns the identifiers matching the predicate.
// workers > 1 fans the slot scans out to that many goroutines (useful on
// SSDs); matching order is preserved.
func (r *Reader) Query(pred Predicate, includeDeprecated bool, workers int) ([]uint64, error) {
	n := r.len()
	if workers <= 1 {
		var out []uint64
		for i := int64(0); i < n; i++ {
			m := r.metaAt(1 + i)
			if selected(m.status(), includeDeprecated) && pred(m.depth(), r.rangeIter(i, m.depth())) {
				out = append(out, m.id())
			}
		}
		return out, nil
	}

	matched := make([]bool, n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := int64(0); i < n; i++ {
		i := i
		m := r.metaAt(1 + i)
		if !selected(m.status(), includeDeprecated) {
			continue
		}
		g.Go(func() error {
			matched[i] = pred(m.depth(), r.rangeIter(i, m.depth()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []uint64
	for i := int64(0); i < n; i++ {
		if matched[i] {
			out = append(out, r.metaAt(1+i).id())
		}
	}
	return out, nil
}
