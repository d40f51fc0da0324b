// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package cache provides the in-memory LRU used to hold per-user feed
// sessions between requests.
package cache

import (
	"sync"
	"time"
)

type lruEntry[V any] struct {
	key       string
	value     V
	prev      *lruEntry[V]
	next      *lruEntry[V]
	expiresAt time.Time
}

// LRU is a thread-safe least recently used cache with a per-entry TTL.
//
// Get and Add are O(1); expired entries are dropped lazily on
// access or in bulk by CleanupExpired.
type LRU[V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(key string, value V)

	items map[string]*lruEntry[V]

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry[V]
	tail *lruEntry[V]

	hits   int64
	misses int64
}

// Option configures an LRU.
type Option[V any] func(*LRU[V])

// WithClock overrides time.Now. Used by tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *LRU[V]) { c.now = now }
}

// WithEvictCallback registers fn to run when an entry is evicted or expires.
// fn runs with the cache lock held and must not call back into the cache.
func WithEvictCallback[V any](fn func(key string, value V)) Option[V] {
	return func(c *LRU[V]) { c.onEvict = fn }
}

// NewLRU creates an LRU holding at most capacity entries for ttl each.
func NewLRU[V any](capacity int, ttl time.Duration, opts ...Option[V]) *LRU[V] {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*lruEntry[V]),
		head:     &lruEntry[V]{},
		tail:     &lruEntry[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key, marks it most recently used and restarts
// its TTL.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	now := c.now()
	if now.After(entry.expiresAt) {
		c.evict(entry)
		c.misses++
		return zero, false
	}

	entry.expiresAt = now.Add(c.ttl)
	c.unlink(entry)
	c.pushFront(entry)
	c.hits++
	return entry.value, true
}

// Add inserts or replaces key, evicting the least recently used entry when
// the cache is full.
func (c *LRU[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.unlink(entry)
		c.pushFront(entry)
		return
	}

	entry := &lruEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.pushFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evict(c.tail.prev)
	}
}

// Len returns the number of entries, including expired ones not yet collected.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired drops every expired entry and returns how many were removed.
func (c *LRU[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.evict(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns hit and miss counts and the current size.
func (c *LRU[V]) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRU[V]) pushFront(entry *lruEntry[V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU[V]) unlink(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *LRU[V]) evict(entry *lruEntry[V]) {
	if entry == c.head || entry == c.tail {
		return
	}
	c.unlink(entry)
	delete(c.items, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}
