// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package moc

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownHandle is returned when a handle is absent from the store.
var ErrUnknownHandle = errors.New("unknown MOC handle")

// Store is the in-process MOC store used by language bindings: it maps
// stable opaque handles to reference-counted MOC values. All methods are
// safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	next    uint64
	entries map[uint64]*storeEntry
}

type storeEntry struct {
	value interface{} // RangeMOC or RangeMOC2
	refs  int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[uint64]*storeEntry)}
}

// Insert registers a MOC and returns its handle with a reference count of
// one.
func (s *Store) Insert(value interface{}) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.next
	s.next++
	s.entries[h] = &storeEntry{value: value, refs: 1}
	return h
}

// Get returns the MOC behind a handle.
func (s *Store) Get(handle uint64) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[handle]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHandle, "handle %d", handle)
	}
	return e.value, nil
}

// IncRef adds one reference to a handle.
func (s *Store) IncRef(handle uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "handle %d", handle)
	}
	e.refs++
	return nil
}

// Drop releases one reference; the entry is removed when the count reaches
// zero.
func (s *Store) Drop(handle uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "handle %d", handle)
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, handle)
	}
	return nil
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
