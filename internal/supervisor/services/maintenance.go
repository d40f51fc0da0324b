// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedrank/internal/metrics"
)

// ValueLogGC is satisfied by *kvstore.BadgerStore.
type ValueLogGC interface {
	RunGC() error
}

// Sweeper is satisfied by *feed.Engine.
type Sweeper interface {
	Sweep() int
}

// periodic runs task every interval until ctx is canceled. Task errors are
// handled by the task itself and never stop the loop.
func periodic(ctx context.Context, interval time.Duration, task func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			task()
		}
	}
}

// StoreGCService periodically reclaims badger value log space.
type StoreGCService struct {
	gc       ValueLogGC
	interval time.Duration
	logger   zerolog.Logger
}

// NewStoreGCService creates the service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStoreGCService(gc ValueLogGC, interval time.Duration, logger zerolog.Logger) *StoreGCService {
	return &StoreGCService{
		gc:       gc,
		interval: interval,
		logger:   logger.With().Str("service", "store-gc").Logger(),
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	return periodic(ctx, s.interval, s.runOnce)
}

func (s *StoreGCService) runOnce() {
	start := time.Now()
	if err := s.gc.RunGC(); err != nil {
		metrics.RecordStoreGC("error")
		s.logger.Warn().Err(err).Msg("Value log GC failed")
		return
	}
	metrics.RecordStoreGC("ok")
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("Value log GC finished")
}

func (s *StoreGCService) String() string {
	return "store-gc"
}

// SessionJanitorService periodically drops expired in-memory sessions.
type SessionJanitorService struct {
	sweeper  Sweeper
	interval time.Duration
	logger   zerolog.Logger
}

// NewSessionJanitorService creates the service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSessionJanitorService(sweeper Sweeper, interval time.Duration, logger zerolog.Logger) *SessionJanitorService {
	return &SessionJanitorService{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With().Str("service", "session-janitor").Logger(),
	}
}

// Serve implements suture.Service.
func (s *SessionJanitorService) Serve(ctx context.Context) error {
	return periodic(ctx, s.interval, func() {
		if n := s.sweeper.Sweep(); n > 0 {
			s.logger.Debug().Int("removed", n).Msg("Expired sessions swept")
		}
	})
}

func (s *SessionJanitorService) String() string {
	return "session-janitor"
}
