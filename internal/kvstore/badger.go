// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/feedrank/internal/logging"
)

const backendBadger = "badger"

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// QuotaBytes caps the sum of len(key)+len(value) over live entries.
	// Writes that do not grow the total are always accepted. Zero disables
	// the check.
	QuotaBytes int64

	// GCRatio is the discard ratio passed to RunValueLogGC.
	GCRatio float64

	// CloseTimeout bounds how long Close waits for badger to shut down.
	CloseTimeout time.Duration
}

// BadgerStore is a Store backed by BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	config BadgerConfig

	mu     sync.RWMutex
	closed bool

	// writeMu serializes Set and Delete so used tracks committed data.
	writeMu sync.Mutex
	used    int64
}

// OpenBadger opens (or creates) a BadgerStore.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required")
	}
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	used, err := liveBytes(db)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("scan BadgerDB: %w", err), db.Close())
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int64("quota_bytes", cfg.QuotaBytes).
		Int64("used_bytes", used).
		Msg("Interaction store opened")

	return &BadgerStore{db: db, config: cfg, used: used}, nil
}

// liveBytes sums len(key)+len(value) over every live entry.
func liveBytes(db *badger.DB) (int64, error) {
	var total int64
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			total += entrySize(it.Item())
		}
		return nil
	})
	return total, err
}

func entrySize(item *badger.Item) int64 {
	return int64(len(item.Key())) + item.ValueSize()
}

// existingSize returns the quota size of key in txn, or 0 if absent.
func existingSize(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entrySize(item), nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, key string) (value []byte, err error) {
	defer func(start time.Time) { observe(backendBadger, opGet, start, err) }(time.Now())

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set implements Store.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { observe(backendBadger, opSet, start, err) }(time.Now())

	if err := s.check(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var delta int64
	err = s.db.Update(func(txn *badger.Txn) error {
		old, err := existingSize(txn, []byte(key))
		if err != nil {
			return err
		}
		delta = int64(len(key)+len(value)) - old
		if s.config.QuotaBytes > 0 && delta > 0 && s.used+delta > s.config.QuotaBytes {
			return ErrCapacityExceeded
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), value))
	})
	if errors.Is(err, ErrCapacityExceeded) || errors.Is(err, badger.ErrTxnTooBig) {
		return ErrCapacityExceeded
	}
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.used += delta
	return nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(backendBadger, opDelete, start, err) }(time.Now())

	if err := s.check(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var old int64
	err = s.db.Update(func(txn *badger.Txn) error {
		var err error
		if old, err = existingSize(txn, []byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	s.used -= old
	return nil
}

// RunGC reclaims value log space until badger reports nothing to rewrite.
// In-memory stores have no value log and return immediately.
func (s *BadgerStore) RunGC() error {
	if err := s.check(context.Background()); err != nil {
		return err
	}
	if s.config.InMemory {
		return nil
	}

	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
	return nil
}

// Used returns the number of bytes counted against the quota.
func (s *BadgerStore) Used() int64 {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.used
}

func (s *BadgerStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close shuts badger down, giving up after the configured CloseTimeout.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Interaction store closed")
		return nil
	case <-time.After(s.config.CloseTimeout):
		logging.Warn().Dur("timeout", s.config.CloseTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", s.config.CloseTimeout)
	}
}

var _ Store = (*BadgerStore)(nil)
