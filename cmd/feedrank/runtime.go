// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/feed/reranking"
	"github.com/tomtom215/feedrank/internal/kvstore"
	"github.com/tomtom215/feedrank/internal/logging"
)

// runtime is the store and engine shared by every command.
type runtime struct {
	cfg    *config.Config
	store  kvstore.Store
	engine *feed.Engine

	// badger is set when the badger backend is in use; it drives value
	// log GC.
	badger *kvstore.BadgerStore

	// breaker is set when the store is wrapped in a circuit breaker.
	breaker *kvstore.BreakerStore
}

// loadConfig reads configuration and initializes the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithKoanf(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.LoggingSettings())
	return cfg, nil
}

// openStore opens the configured backend, wrapped in a circuit breaker when
// enabled.
func openStore(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	var inner kvstore.Store
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		inner = kvstore.NewMemoryStore(cfg.Storage.QuotaBytes)
	case config.BackendBadger:
		b, err := kvstore.OpenBadger(kvstore.BadgerConfig{
			Path:       cfg.Storage.Path,
			SyncWrites: cfg.Storage.SyncWrites,
			QuotaBytes: cfg.Storage.QuotaBytes,
			GCRatio:    cfg.Storage.GCRatio,
		})
		if err != nil {
			return nil, err
		}
		rt.badger = b
		inner = b
	case config.BackendSQLite:
		s, err := kvstore.OpenSQLite(ctx, kvstore.SQLiteConfig{
			Path:        cfg.Storage.Path,
			QuotaBytes:  cfg.Storage.QuotaBytes,
			BusyTimeout: cfg.Storage.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		inner = s
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	rt.store = inner
	if cfg.Storage.Breaker.Enabled {
		rt.breaker = kvstore.NewBreakerStore(inner, cfg.BreakerSettings())
		rt.store = rt.breaker
	}

	logging.Info().
		Str("backend", cfg.Storage.Backend).
		Str("path", cfg.Storage.Path).
		Bool("breaker", rt.breaker != nil).
		Msg("Interaction store opened")
	return rt, nil
}

// newRuntime opens the store and builds the ranking engine on top of it.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...feed.EngineOption) (*runtime, error) {
	rt, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine, err := feed.NewEngine(rt.store, cfg.FeedEngineConfig(), logger, opts...)
	if err != nil {
		return nil, errors.Join(err, rt.close())
	}
	if cfg.Feed.Diversify {
		engine.RegisterReranker(reranking.NewDiversifier())
	}
	rt.engine = engine
	return rt, nil
}

// storeState reports the breaker state, or nil when there is no breaker.
func (rt *runtime) storeState() func() string {
	if rt.breaker == nil {
		return nil
	}
	return rt.breaker.State
}

func (rt *runtime) close() error {
	if rt.store == nil {
		return nil
	}
	if err := rt.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
