// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package mocset implements the persistent MOC-set store: a single
// append-only file holding many spatial MOCs behind stable integer
// identifiers. The file starts with a fixed-size header (a metadata slot
// area and a cumulative byte index, 16·N bytes total for N slots) followed
// by the concatenated range payloads. A single writer appends data, then
// the index entry, then the metadata slot, syncing between steps, so
// lock-free readers never observe a partial write: anything beyond the last
// valid metadata slot is free space. Writers are serialized by an adjacent
// .lock file.
package mocset

import (
	"encoding/binary"
	"os"

	"github.com/molecula/moc"
	"github.com/pkg/errors"
)

// Status is the 2-bit life-cycle state of a stored MOC.
type Status uint8

const (
	// StatusFree marks an unused slot; the first free slot ends the
	// logical list.
	StatusFree Status = 0
	// StatusRemoved marks an entry to be dropped by the next purge.
	StatusRemoved Status = 1
	// StatusDeprecated marks an entry excluded from queries by default.
	StatusDeprecated Status = 2
	// StatusValid marks a live entry.
	StatusValid Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "free"
	case StatusRemoved:
		return "removed"
	case StatusDeprecated:
		return "deprecated"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// ParseStatus parses a status name (the free state is not addressable).
func ParseStatus(s string) (Status, error) {
	switch s {
	case "removed":
		return StatusRemoved, nil
	case "deprecated":
		return StatusDeprecated, nil
	case "valid":
		return StatusValid, nil
	default:
		return 0, errors.Errorf("bad status %q: expected removed, deprecated or valid", s)
	}
}

const (
	slotSize = 8
	// idMask keeps the low 48 bits of a metadata slot.
	idMask = uint64(0x0000FFFFFFFFFFFF)
	// depth32Max is the deepest order stored on 32-bit payload integers.
	depth32Max = 13
)

// MaxID is the largest storable identifier (48 bits).
const MaxID = idMask

// meta is one metadata slot: status(2b)<<56 | depth(8b)<<48 | id(48b).
type meta uint64

func newMeta(status Status, depth uint8, id uint64) meta {
	return meta(uint64(status)<<56 | uint64(depth)<<48 | (id & idMask))
}

func (m meta) status() Status { return Status((m >> 56) & 0b11) }
func (m meta) depth() uint8   { return uint8(m >> 48) }
func (m meta) id() uint64     { return uint64(m) & idMask }

// ErrLockFailed is returned when the .lock file of a set already exists.
var ErrLockFailed = errors.New("moc-set write lock held")

// ErrUnknownID is returned when an identifier is not in the set.
var ErrUnknownID = errors.New("identifier not in moc-set")

// ErrFull is returned when every metadata slot of the set is used.
var ErrFull = errors.New("moc-set is full")

// payloadWide reports whether a stored depth uses 64-bit payload integers.
func payloadWide(depth uint8) bool { return depth > depth32Max }

// payloadBytes serializes ranges in the payload form: flat little-endian
// (lo, hi) pairs, 32-bit indices of depth 13 for depths <= 13.
func payloadBytes(depth uint8, rs moc.Ranges) []byte {
	if payloadWide(depth) {
		buf := make([]byte, 16*len(rs))
		for i, r := range rs {
			binary.LittleEndian.PutUint64(buf[16*i:], r.Lo)
			binary.LittleEndian.PutUint64(buf[16*i+8:], r.Hi)
		}
		return buf
	}
	s := moc.Hpx.Shift(depth32Max)
	buf := make([]byte, 8*len(rs))
	for i, r := range rs {
		binary.LittleEndian.PutUint32(buf[8*i:], uint32(r.Lo>>s))
		binary.LittleEndian.PutUint32(buf[8*i+4:], uint32(r.Hi>>s))
	}
	return buf
}

// payloadIter streams a payload as ranges straight from the mapped bytes,
// without materializing a range slice.
type payloadIter struct {
	data []byte
	wide bool
	off  int
}

func (it *payloadIter) Next() (moc.Range, bool) {
	if it.wide {
		if it.off+16 > len(it.data) {
			return moc.Range{}, false
		}
		r := moc.Range{
			Lo: binary.LittleEndian.Uint64(it.data[it.off:]),
			Hi: binary.LittleEndian.Uint64(it.data[it.off+8:]),
		}
		it.off += 16
		return r, true
	}
	if it.off+8 > len(it.data) {
		return moc.Range{}, false
	}
	s := moc.Hpx.Shift(depth32Max)
	r := moc.Range{
		Lo: uint64(binary.LittleEndian.Uint32(it.data[it.off:])) << s,
		Hi: uint64(binary.LittleEndian.Uint32(it.data[it.off+4:])) << s,
	}
	it.off += 8
	return r, true
}

// nRangesIn returns the number of ranges of a payload of the given size.
func nRangesIn(depth uint8, size int64) int64 {
	if payloadWide(depth) {
		return size / 16
	}
	return size / 8
}

// lockPath derives the advisory lock file path.
func lockPath(path string) string { return path + ".lock" }

// acquireLock creates the lock file, failing if a writer already holds it.
func acquireLock(path string) error {
	f, err := os.OpenFile(lockPath(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(ErrLockFailed, "lock file %s exists", lockPath(path))
		}
		return errors.Wrap(err, "creating lock file")
	}
	return f.Close()
}

func releaseLock(path string) error {
	return errors.Wrap(os.Remove(lockPath(path)), "removing lock file")
}
