// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	backendSQLite = "sqlite"

	// sqlitePageSize is SQLite's default page size.
	sqlitePageSize = 4096

	// sqliteMinPages leaves room for the schema when a quota is tiny.
	sqliteMinPages = 8
)

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file.
	Path string

	// QuotaBytes caps the database file size through max_page_count.
	// Zero disables the cap.
	QuotaBytes int64

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
}

// SQLiteStore is a Store backed by a single SQLite table.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenSQLite opens (or creates) a SQLiteStore.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", sqliteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps per-connection pragmas consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(cfg SQLiteConfig) string {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.QuotaBytes > 0 {
		pages := cfg.QuotaBytes / sqlitePageSize
		if pages < sqliteMinPages {
			pages = sqliteMinPages
		}
		dsn += fmt.Sprintf("&_pragma=max_page_count(%d)", pages)
	}
	return dsn
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (value []byte, err error) {
	defer func(start time.Time) { observe(backendSQLite, opGet, start, err) }(time.Now())

	if err := s.check(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { observe(backendSQLite, opSet, start, err) }(time.Now())

	if err := s.check(); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if isSQLiteFull(err) {
		return ErrCapacityExceeded
	}
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(backendSQLite, opDelete, start, err) }(time.Now())

	if err := s.check(); err != nil {
		return err
	}

	if _, err = s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// isSQLiteFull reports whether err is SQLITE_FULL or SQLITE_TOOBIG.
func isSQLiteFull(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_FULL, sqlite3.SQLITE_TOOBIG:
		return true
	}
	return false
}

func (s *SQLiteStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
