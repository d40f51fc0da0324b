// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package kvstore provides the byte-oriented key-value port used to persist
// per-user interaction histories, together with its backends.
//
// Backends:
//   - MemoryStore: map-backed, optional byte quota (tests, ephemeral deployments)
//   - BadgerStore: embedded LSM store, on disk or in memory
//   - SQLiteStore: single-table SQLite database (pure Go driver)
//
// BreakerStore decorates any backend with a circuit breaker.
//
// All backends report a full store with ErrCapacityExceeded, distinct from
// generic I/O failures, so callers can run their own eviction before retrying.
package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/feedrank/internal/metrics"
)

// Store is a byte-oriented key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key, replacing any existing value.
	// Returns ErrCapacityExceeded when the store cannot hold the write.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrCapacityExceeded is returned by Set when the write would exceed the
	// store's quota.
	ErrCapacityExceeded = errors.New("kvstore: capacity exceeded")

	// ErrUnavailable is returned when the store is temporarily refusing calls.
	ErrUnavailable = errors.New("kvstore: unavailable")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("kvstore: closed")
)

// Operation names used in metrics.
const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
)

// resultLabel maps an operation error to a metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreOperation(backend, op, resultLabel(err), time.Since(start))
}
