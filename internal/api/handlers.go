// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package api

import (
	"time"

	"github.com/tomtom215/feedrank/internal/feed"
)

// HandlerConfig holds request limits and build info.
type HandlerConfig struct {
	// MaxItems caps the candidate list of one rank request.
	MaxItems int

	Version string
}

// Handler serves the feed endpoints.
//
// Handler methods are split across files:
//   - handlers_feed.go: rank, interactions, profile, history reset
//   - handlers_health.go: liveness, readiness, status
//   - handlers_helpers.go: response and decoding helpers
type Handler struct {
	engine     *feed.Engine
	config     HandlerConfig
	storeState func() string
	startTime  time.Time
}

// NewHandler creates a Handler. storeState reports the store circuit
// breaker state and may be nil when the store is not wrapped.
func NewHandler(engine *feed.Engine, cfg HandlerConfig, storeState func() string) *Handler {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1000
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Handler{
		engine:     engine,
		config:     cfg,
		storeState: storeState,
		startTime:  time.Now(),
	}
}
