// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/feedrank/internal/kvstore"
)

// fixedRand returns the same values on every call. Float64 of 0.5 gives
// zero jitter.
type fixedRand struct {
	f float64
	i int
}

func (r fixedRand) Float64() float64 { return r.f }

func (r fixedRand) Intn(n int) int {
	if r.i >= n {
		return n - 1
	}
	return r.i
}

var noJitter = fixedRand{f: 0.5}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testNow} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedStore wraps a MemoryStore and fails Get or Set with the queued
// errors before delegating.
type scriptedStore struct {
	*kvstore.MemoryStore

	mu       sync.Mutex
	getErrs  []error
	setErrs  []error
	setCalls int
}

func newScriptedStore() *scriptedStore {
	return &scriptedStore{MemoryStore: kvstore.NewMemoryStore(0)}
}

func (s *scriptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	if len(s.getErrs) > 0 {
		err := s.getErrs[0]
		s.getErrs = s.getErrs[1:]
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	return s.MemoryStore.Get(ctx, key)
}

func (s *scriptedStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.setCalls++
	if len(s.setErrs) > 0 {
		err := s.setErrs[0]
		s.setErrs = s.setErrs[1:]
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value)
}

func item(id, inst string, age time.Duration) ContentItem {
	return ContentItem{
		ID:            id,
		InstitutionID: inst,
		CreatedAt:     testNow.Add(-age),
		Title:         "Post " + id,
	}
}

func events(n int, start time.Time, step time.Duration) []InteractionEvent {
	out := make([]InteractionEvent, n)
	for i := range out {
		out[i] = InteractionEvent{
			ContentID: "c" + itoa(i),
			Timestamp: start.Add(time.Duration(i) * step).UnixMilli(),
		}
	}
	return out
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	return string(b)
}
