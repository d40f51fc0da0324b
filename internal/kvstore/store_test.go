// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package kvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testStoreContract exercises behavior every backend must share.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		want := []byte(`{"liked":[]}`)
		if err := s.Set(ctx, "feed_interactions_u1", want); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := s.Get(ctx, "feed_interactions_u1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Get() = %q, want %q", got, want)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "k", []byte("one")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.Set(ctx, "k", []byte("two")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != "two" {
			t.Errorf("Get() = %q, want %q", got, "two")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Set(ctx, "gone", []byte("x")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "gone"); err != nil {
			t.Errorf("Delete() of missing key error = %v, want nil", err)
		}
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		if err := s.Set(ctx, "copy", []byte("abc")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, _ := s.Get(ctx, "copy")
		got[0] = 'z'
		again, _ := s.Get(ctx, "copy")
		if string(again) != "abc" {
			t.Errorf("stored value mutated through Get result: %q", again)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	testStoreContract(t, s)
}

func TestMemoryStore_Quota(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(20)

	if err := s.Set(ctx, "a", []byte("0123456789")); err != nil {
		t.Fatalf("Set() within quota error = %v", err)
	}
	if got := s.Used(); got != 11 {
		t.Errorf("Used() = %d, want 11", got)
	}

	err := s.Set(ctx, "b", []byte("0123456789"))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Set() over quota error = %v, want ErrCapacityExceeded", err)
	}

	// Replacing a value only counts the difference.
	if err := s.Set(ctx, "a", []byte("0123456789abcdefg")); err != nil {
		t.Errorf("Set() replace within quota error = %v", err)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := s.Used(); got != 0 {
		t.Errorf("Used() after delete = %d, want 0", got)
	}
	if err := s.Set(ctx, "b", []byte("0123456789")); err != nil {
		t.Errorf("Set() after freeing space error = %v", err)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore(0)
	_ = s.Close()
	if err := s.Set(context.Background(), "k", []byte("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Set() after Close error = %v, want ErrClosed", err)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer s.Close()
	testStoreContract(t, s)

	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() on in-memory store error = %v", err)
	}
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, "persist", []byte("value")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, "persist")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}
}

func TestBadgerStore_Quota(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{InMemory: true, QuotaBytes: 128})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer s.Close()

	err = s.Set(context.Background(), "big", []byte(strings.Repeat("x", 512)))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Set() over quota error = %v, want ErrCapacityExceeded", err)
	}
	if s.Used() != 0 {
		t.Errorf("Used() = %d after rejected write, want 0", s.Used())
	}
}

func TestBadgerStore_QuotaAccumulates(t *testing.T) {
	ctx := context.Background()
	const quota = 64 * 1024
	dir := t.TempDir()
	s, err := OpenBadger(BadgerConfig{Path: dir, QuotaBytes: quota})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}

	value := bytes.Repeat([]byte("v"), 4096)
	var accepted, rejected int
	for i := 0; i < 200; i++ {
		err := s.Set(ctx, fmt.Sprintf("user-%03d", i), value)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrCapacityExceeded):
			rejected++
		default:
			t.Fatalf("Set(%d) error = %v", i, err)
		}
	}
	if rejected == 0 {
		t.Fatal("no write was rejected, want ErrCapacityExceeded once the quota fills")
	}
	if accepted != quota/(4096+8) {
		t.Errorf("accepted = %d, want %d", accepted, quota/(4096+8))
	}
	if s.Used() > quota {
		t.Errorf("Used() = %d, exceeds quota %d", s.Used(), quota)
	}

	// Rewriting a key with the same size does not grow the total.
	for i := 0; i < 50; i++ {
		if err := s.Set(ctx, "user-000", value); err != nil {
			t.Fatalf("rewrite %d error = %v", i, err)
		}
	}

	used := s.Used()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	reopened, err := OpenBadger(BadgerConfig{Path: dir, QuotaBytes: quota})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	if reopened.Used() != used {
		t.Errorf("Used() after reopen = %d, want %d", reopened.Used(), used)
	}
	if err := reopened.Set(ctx, "late-user", value); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Set() on full reopened store error = %v, want ErrCapacityExceeded", err)
	}
}

func TestBadgerStore_ShrinkingWriteAllowed(t *testing.T) {
	ctx := context.Background()
	s, err := OpenBadger(BadgerConfig{Path: t.TempDir(), QuotaBytes: 10_000})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer s.Close()

	if err := s.Set(ctx, "a", bytes.Repeat([]byte("a"), 4000)); err != nil {
		t.Fatalf("Set(a) error = %v", err)
	}
	if err := s.Set(ctx, "b", bytes.Repeat([]byte("b"), 5000)); err != nil {
		t.Fatalf("Set(b) error = %v", err)
	}
	if err := s.Set(ctx, "b", bytes.Repeat([]byte("b"), 8000)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("growing Set(b) error = %v, want ErrCapacityExceeded", err)
	}
	if err := s.Set(ctx, "b", []byte(`{"liked":[]}`)); err != nil {
		t.Fatalf("shrinking Set(b) error = %v, want nil", err)
	}
	if want := int64(1+4000) + int64(1+len(`{"liked":[]}`)); s.Used() != want {
		t.Errorf("Used() = %d, want %d", s.Used(), want)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete(a) error = %v", err)
	}
	if err := s.Set(ctx, "c", bytes.Repeat([]byte("c"), 8000)); err != nil {
		t.Errorf("Set(c) after delete freed space error = %v", err)
	}
}

func TestBadgerStore_RequiresPath(t *testing.T) {
	if _, err := OpenBadger(BadgerConfig{}); err == nil {
		t.Error("OpenBadger() without path should fail")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), SQLiteConfig{Path: filepath.Join(t.TempDir(), "feed.db")})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer s.Close()
	testStoreContract(t, s)
}

func TestSQLiteStore_Pragmas(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "feed.db"),
		BusyTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout); err != nil {
		t.Fatalf("PRAGMA busy_timeout error = %v", err)
	}
	if timeout != 2000 {
		t.Errorf("busy_timeout = %d, want 2000", timeout)
	}
}

func TestSQLiteStore_Quota(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, SQLiteConfig{
		Path:       filepath.Join(t.TempDir(), "small.db"),
		QuotaBytes: 64 * 1024,
	})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer s.Close()

	if err := s.Set(ctx, "small", []byte("fits")); err != nil {
		t.Fatalf("Set() small value error = %v", err)
	}

	err = s.Set(ctx, "big", bytes.Repeat([]byte("x"), 256*1024))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Set() over quota error = %v, want ErrCapacityExceeded", err)
	}

	// The store stays usable after a rejected write.
	got, err := s.Get(ctx, "small")
	if err != nil || string(got) != "fits" {
		t.Errorf("Get() after full = %q, %v", got, err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  SQLiteConfig
		want string
	}{
		{
			name: "no quota",
			cfg:  SQLiteConfig{Path: "/tmp/a.db", BusyTimeout: 5000000000},
			want: "file:/tmp/a.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		},
		{
			name: "quota in pages",
			cfg:  SQLiteConfig{Path: "/tmp/a.db", BusyTimeout: 1000000000, QuotaBytes: 1 << 20},
			want: "file:/tmp/a.db?_pragma=busy_timeout(1000)&_pragma=journal_mode(WAL)&_pragma=max_page_count(256)",
		},
		{
			name: "tiny quota gets minimum pages",
			cfg:  SQLiteConfig{Path: "/tmp/a.db", BusyTimeout: 1000000000, QuotaBytes: 100},
			want: "file:/tmp/a.db?_pragma=busy_timeout(1000)&_pragma=journal_mode(WAL)&_pragma=max_page_count(8)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sqliteDSN(tt.cfg); got != tt.want {
				t.Errorf("sqliteDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrNotFound, "not_found"},
		{ErrCapacityExceeded, "capacity_exceeded"},
		{ErrUnavailable, "unavailable"},
		{errors.New("disk on fire"), "error"},
	}
	for _, tt := range tests {
		if got := resultLabel(tt.err); got != tt.want {
			t.Errorf("resultLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
