// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/metrics"
)

// BreakerConfig configures a BreakerStore.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "kvstore",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerStore wraps a Store with a circuit breaker.
//
// ErrNotFound and ErrCapacityExceeded count as successes: they are answers
// from a healthy backend. While the breaker is open, calls fail fast with
// ErrUnavailable.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerStore wraps inner with a circuit breaker.
func NewBreakerStore(inner Store, cfg BreakerConfig) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrCapacityExceeded) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerState(name, int(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
	}

	return &BreakerStore{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// Get implements Store.
func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.cb.Execute(func() ([]byte, error) {
		return s.inner.Get(ctx, key)
	})
	return v, wrapBreakerErr(err)
}

// Set implements Store.
func (s *BreakerStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.cb.Execute(func() ([]byte, error) {
		return nil, s.inner.Set(ctx, key, value)
	})
	return wrapBreakerErr(err)
}

// Delete implements Store.
func (s *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() ([]byte, error) {
		return nil, s.inner.Delete(ctx, key)
	})
	return wrapBreakerErr(err)
}

// State returns the breaker state as a string for monitoring.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

// Close closes the wrapped store.
func (s *BreakerStore) Close() error {
	return s.inner.Close()
}

// Unwrap returns the wrapped store.
func (s *BreakerStore) Unwrap() Store {
	return s.inner
}

func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

var _ Store = (*BreakerStore)(nil)
