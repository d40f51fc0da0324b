// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package kvstore

import (
	"context"
	"sync"
	"time"
)

const backendMemory = "memory"

// MemoryStore is an in-process Store backed by a map.
//
// When quota is positive, the sum of len(key)+len(value) over all entries is
// capped at quota bytes, mirroring browser-style storage limits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	used   int64
	quota  int64
	closed bool
}

// NewMemoryStore creates a MemoryStore. A quota of zero or less disables the
// capacity check.
func NewMemoryStore(quotaBytes int64) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		quota: quotaBytes,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (value []byte, err error) {
	defer func(start time.Time) { observe(backendMemory, opGet, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { observe(backendMemory, opSet, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	delta := int64(len(key) + len(value))
	if old, ok := s.data[key]; ok {
		delta -= int64(len(key) + len(old))
	}
	if s.quota > 0 && s.used+delta > s.quota {
		return ErrCapacityExceeded
	}

	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	s.used += delta
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(backendMemory, opDelete, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if old, ok := s.data[key]; ok {
		s.used -= int64(len(key) + len(old))
		delete(s.data, key)
	}
	return nil
}

// Used returns the number of bytes counted against the quota.
func (s *MemoryStore) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	s.used = 0
	return nil
}

var _ Store = (*MemoryStore)(nil)
