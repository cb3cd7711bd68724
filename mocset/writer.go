// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package mocset

import (
	"encoding/binary"
	"os"

	"github.com/molecula/moc"
	"github.com/molecula/moc/logger"
	"github.com/pkg/errors"
)

// Writer is the single writer of a MOC-set file. Opening it acquires the
// .lock file; Close releases it. Every mutation follows the
// data-then-index-then-metadata order with an fsync between steps, which is
// what makes concurrent lock-free readers safe.
type Writer struct {
	path string
	f    *os.File
	n    int64
	log  logger.Logger
}

// Make creates a new MOC-set file sized for n128*128 slots.
func Make(path string, n128 int64, log logger.Logger) (*Writer, error) {
	if n128 < 1 {
		return nil, errors.Errorf("n128 must be >= 1, got %d", n128)
	}
	if log == nil {
		log = logger.NopLogger
	}
	if err := acquireLock(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		_ = releaseLock(path)
		return nil, errors.Wrap(err, "creating moc-set file")
	}
	n := n128 * 128
	header := make([]byte, headerSize(n))
	binary.LittleEndian.PutUint64(header[:slotSize], uint64(n))
	// index entry 0 is the header size itself
	binary.LittleEndian.PutUint64(header[n*slotSize:], uint64(headerSize(n)))
	if _, err := f.WriteAt(header, 0); err != nil {
		_ = f.Close()
		_ = releaseLock(path)
		return nil, errors.Wrap(err, "writing moc-set header")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = releaseLock(path)
		return nil, errors.Wrap(err, "syncing moc-set header")
	}
	log.Debugf("created moc-set %s with %d slots", path, n)
	return &Writer{path: path, f: f, n: n, log: log}, nil
}

// OpenWriter opens an existing MOC-set file for appending and in-place
// status updates.
func OpenWriter(path string, log logger.Logger) (*Writer, error) {
	if log == nil {
		log = logger.NopLogger
	}
	if err := acquireLock(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		_ = releaseLock(path)
		return nil, errors.Wrap(err, "opening moc-set file")
	}
	var slot0 [slotSize]byte
	if _, err := f.ReadAt(slot0[:], 0); err != nil {
		_ = f.Close()
		_ = releaseLock(path)
		return nil, errors.Wrap(err, "reading moc-set capacity")
	}
	n := int64(binary.LittleEndian.Uint64(slot0[:]))
	if n <= 0 {
		_ = f.Close()
		_ = releaseLock(path)
		return nil, errors.New("inconsistent moc-set header")
	}
	return &Writer{path: path, f: f, n: n, log: log}, nil
}

// Close syncs the file and releases the write lock.
func (w *Writer) Close() error {
	err := w.f.Sync()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	if lerr := releaseLock(w.path); err == nil {
		err = lerr
	}
	return err
}

func (w *Writer) metaAt(slot int64) (meta, error) {
	var buf [slotSize]byte
	if _, err := w.f.ReadAt(buf[:], slot*slotSize); err != nil {
		return 0, errors.Wrap(err, "reading metadata slot")
	}
	return meta(binary.LittleEndian.Uint64(buf[:])), nil
}

func (w *Writer) indexAt(j int64) (int64, error) {
	var buf [slotSize]byte
	if _, err := w.f.ReadAt(buf[:], (w.n+j)*slotSize); err != nil {
		return 0, errors.Wrap(err, "reading index entry")
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// used returns the number of used slots.
func (w *Writer) used() (int64, error) {
	for i := int64(1); i < w.n; i++ {
		m, err := w.metaAt(i)
		if err != nil {
			return 0, err
		}
		if m.status() == StatusFree {
			return i - 1, nil
		}
	}
	return w.n - 1, nil
}

// Append stores a spatial MOC under the given identifier. The identifier is
// not checked for uniqueness; queries return every matching entry.
func (w *Writer) Append(id uint64, m moc.RangeMOC) error {
	if id > MaxID {
		return errors.Errorf("id %d exceeds the 48-bit identifier space", id)
	}
	k, err := w.used()
	if err != nil {
		return err
	}
	if 1+k >= w.n {
		return errors.Wrapf(ErrFull, "%d slots", w.n)
	}
	end, err := w.indexAt(k)
	if err != nil {
		return err
	}

	// 1. payload bytes at the end of the data region
	payload := payloadBytes(m.DepthMax(), m.Ranges())
	if _, err := w.f.WriteAt(payload, end); err != nil {
		return errors.Wrap(err, "appending payload")
	}
	if err := w.f.Sync(); err != nil {
		return errors.Wrap(err, "syncing payload")
	}

	// 2. cumulative index entry
	var buf [slotSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(end+int64(len(payload))))
	if _, err := w.f.WriteAt(buf[:], (w.n+k+1)*slotSize); err != nil {
		return errors.Wrap(err, "appending index entry")
	}
	if err := w.f.Sync(); err != nil {
		return errors.Wrap(err, "syncing index entry")
	}

	// 3. metadata slot: the first step visible to readers
	binary.LittleEndian.PutUint64(buf[:], uint64(newMeta(StatusValid, m.DepthMax(), id)))
	if _, err := w.f.WriteAt(buf[:], (1+k)*slotSize); err != nil {
		return errors.Wrap(err, "appending metadata slot")
	}
	if err := w.f.Sync(); err != nil {
		return errors.Wrap(err, "syncing metadata slot")
	}
	w.log.Debugf("appended moc %d (%d ranges) to %s", id, m.Len(), w.path)
	return nil
}

// ChgStatus updates the status of the given identifiers in place. The
// status lives in the top byte of the slot, so the update is a single-byte
// atomic write.
func (w *Writer) ChgStatus(status Status, ids ...uint64) error {
	if status == StatusFree {
		return errors.New("cannot set the free status")
	}
	want := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		want[id] = false
	}
	used, err := w.used()
	if err != nil {
		return err
	}
	for i := int64(0); i < used; i++ {
		m, err := w.metaAt(1 + i)
		if err != nil {
			return err
		}
		if _, ok := want[m.id()]; !ok {
			continue
		}
		want[m.id()] = true
		top := []byte{byte(uint64(newMeta(status, m.depth(), m.id())) >> 56)}
		if _, err := w.f.WriteAt(top, (1+i)*slotSize+7); err != nil {
			return errors.Wrap(err, "updating status byte")
		}
	}
	if err := w.f.Sync(); err != nil {
		return errors.Wrap(err, "syncing status updates")
	}
	for id, found := range want {
		if !found {
			return errors.Wrapf(ErrUnknownID, "id %d", id)
		}
	}
	return nil
}

// Purge rewrites the set without its removed entries, then atomically
// renames the new file over the old one while still holding the write lock.
// n128 <= 0 keeps the current capacity.
func (w *Writer) Purge(n128 int64) error {
	if n128 <= 0 {
		n128 = (w.n + 127) / 128
	}
	r, err := Open(w.path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	tmp := w.path + ".purge"
	nf, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating purge file")
	}
	defer func() { _ = os.Remove(tmp) }()

	n := n128 * 128
	header := make([]byte, headerSize(n))
	binary.LittleEndian.PutUint64(header[:slotSize], uint64(n))
	binary.LittleEndian.PutUint64(header[n*slotSize:], uint64(headerSize(n)))
	if _, err := nf.WriteAt(header, 0); err != nil {
		_ = nf.Close()
		return errors.Wrap(err, "writing purge header")
	}

	used := r.len()
	slot := int64(0)
	end := headerSize(n)
	var buf [slotSize]byte
	for i := int64(0); i < used; i++ {
		m := r.metaAt(1 + i)
		if m.status() == StatusRemoved {
			continue
		}
		if 1+slot >= n {
			_ = nf.Close()
			return errors.Wrapf(ErrFull, "purge target of %d slots", n)
		}
		payload := r.payload(i)
		if _, err := nf.WriteAt(payload, end); err != nil {
			_ = nf.Close()
			return errors.Wrap(err, "copying payload")
		}
		end += int64(len(payload))
		binary.LittleEndian.PutUint64(buf[:], uint64(end))
		if _, err := nf.WriteAt(buf[:], (n+slot+1)*slotSize); err != nil {
			_ = nf.Close()
			return errors.Wrap(err, "writing purge index entry")
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(m))
		if _, err := nf.WriteAt(buf[:], (1+slot)*slotSize); err != nil {
			_ = nf.Close()
			return errors.Wrap(err, "writing purge metadata slot")
		}
		slot++
	}
	if err := nf.Sync(); err != nil {
		_ = nf.Close()
		return errors.Wrap(err, "syncing purge file")
	}
	if err := nf.Close(); err != nil {
		return errors.Wrap(err, "closing purge file")
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return errors.Wrap(err, "renaming purge file")
	}
	// reopen the renamed file so later appends hit the new inode
	f, err := os.OpenFile(w.path, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "reopening purged moc-set")
	}
	_ = w.f.Close()
	w.f = f
	w.n = n
	w.log.Debugf("purged %s: %d of %d entries kept", w.path, slot, used)
	return nil
}
