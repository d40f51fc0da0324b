// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package config loads feedrank configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
//
// Environment variables use flat legacy-style names (HTTP_PORT,
// STORAGE_BACKEND, LOG_LEVEL); see envMappings for the full table.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/kvstore"
	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/validation"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Feed    FeedConfig    `koanf:"feed"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=1024"`

	// MaxItems caps the candidate list of a single rank request.
	MaxItems int `koanf:"max_items" validate:"min=1,max=10000"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig selects and tunes the interaction history store.
type StorageConfig struct {
	// Backend is one of memory, badger or sqlite.
	Backend string `koanf:"backend" validate:"oneof=memory badger sqlite"`

	// Path is the badger directory or the sqlite file. Required unless
	// Backend is memory.
	Path string `koanf:"path"`

	// QuotaBytes caps total stored bytes. Zero means unlimited.
	QuotaBytes int64 `koanf:"quota_bytes" validate:"min=0"`

	SyncWrites  bool          `koanf:"sync_writes"`
	GCInterval  time.Duration `koanf:"gc_interval" validate:"gt=0"`
	GCRatio     float64       `koanf:"gc_ratio" validate:"gt=0,lt=1"`
	BusyTimeout time.Duration `koanf:"busy_timeout" validate:"gte=0"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker around the store.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MaxRequests      uint32        `koanf:"max_requests" validate:"min=1"`
	Interval         time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
}

// FeedConfig holds ranking and session settings.
type FeedConfig struct {
	// Seed fixes the random source. Zero seeds from crypto/rand.
	Seed int64 `koanf:"seed"`

	SessionCacheSize int           `koanf:"session_cache_size" validate:"min=1"`
	SessionTTL       time.Duration `koanf:"session_ttl" validate:"gt=0"`
	SweepInterval    time.Duration `koanf:"sweep_interval" validate:"gt=0"`

	// Diversify enables the institution diversifier after scoring.
	Diversify bool `koanf:"diversify"`

	Scoring ScoringConfig `koanf:"scoring"`
}

// ScoringConfig mirrors feed.ScoringConfig with koanf tags.
type ScoringConfig struct {
	Base                  float64       `koanf:"base"`
	RecencyWeight         float64       `koanf:"recency_weight"`
	RecencyWindow         time.Duration `koanf:"recency_window"`
	InstitutionWeight     float64       `koanf:"institution_weight"`
	ImageBonus            float64       `koanf:"image_bonus"`
	EngagementWeight      float64       `koanf:"engagement_weight"`
	EngagementCap         int           `koanf:"engagement_cap"`
	OverExposure          bool          `koanf:"over_exposure"`
	OverExposureThreshold int           `koanf:"over_exposure_threshold"`
	OverExposureWindow    time.Duration `koanf:"over_exposure_window"`
	OverExposureFactor    float64       `koanf:"over_exposure_factor"`
	Jitter                float64       `koanf:"jitter"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	Caller bool `koanf:"caller"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.Storage.Backend != BackendMemory && c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required for the %s backend", c.Storage.Backend)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Logging.Level)
	}
	if err := c.FeedEngineConfig().Validate(); err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	return nil
}

// FeedEngineConfig converts the feed section for feed.NewEngine.
func (c *Config) FeedEngineConfig() *feed.Config {
	s := c.Feed.Scoring
	return &feed.Config{
		Scoring: feed.ScoringConfig{
			Base:                  s.Base,
			RecencyWeight:         s.RecencyWeight,
			RecencyWindow:         s.RecencyWindow,
			InstitutionWeight:     s.InstitutionWeight,
			ImageBonus:            s.ImageBonus,
			EngagementWeight:      s.EngagementWeight,
			EngagementCap:         s.EngagementCap,
			OverExposure:          s.OverExposure,
			OverExposureThreshold: s.OverExposureThreshold,
			OverExposureWindow:    s.OverExposureWindow,
			OverExposureFactor:    s.OverExposureFactor,
			Jitter:                s.Jitter,
		},
		SessionCacheSize: c.Feed.SessionCacheSize,
		SessionTTL:       c.Feed.SessionTTL,
		Seed:             c.Feed.Seed,
	}
}

// BreakerSettings converts the breaker section for kvstore.NewBreakerStore.
func (c *Config) BreakerSettings() kvstore.BreakerConfig {
	b := c.Storage.Breaker
	return kvstore.BreakerConfig{
		Name:             c.Storage.Backend,
		MaxRequests:      b.MaxRequests,
		Interval:         b.Interval,
		Timeout:          b.Timeout,
		FailureThreshold: b.FailureThreshold,
	}
}

// LoggingSettings converts the logging section for logging.Init.
func (c *Config) LoggingSettings() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
