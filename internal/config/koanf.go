// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/kvstore"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/feedrank/config.yaml",
	"/etc/feedrank/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. File and environment values
// are layered on top.
func defaultConfig() *Config {
	scoring := feed.DefaultScoringConfig()
	engine := feed.DefaultConfig()
	breaker := kvstore.DefaultBreakerConfig()

	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8088,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			MaxBodyBytes:      2 << 20,
			MaxItems:          1000,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Storage: StorageConfig{
			Backend:     BackendBadger,
			Path:        "/data/feedrank",
			QuotaBytes:  0,
			SyncWrites:  false,
			GCInterval:  10 * time.Minute,
			GCRatio:     0.5,
			BusyTimeout: 5 * time.Second,
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxRequests:      breaker.MaxRequests,
				Interval:         breaker.Interval,
				Timeout:          breaker.Timeout,
				FailureThreshold: breaker.FailureThreshold,
			},
		},
		Feed: FeedConfig{
			Seed:             0,
			SessionCacheSize: engine.SessionCacheSize,
			SessionTTL:       engine.SessionTTL,
			SweepInterval:    time.Minute,
			Diversify:        true,
			Scoring: ScoringConfig{
				Base:                  scoring.Base,
				RecencyWeight:         scoring.RecencyWeight,
				RecencyWindow:         scoring.RecencyWindow,
				InstitutionWeight:     scoring.InstitutionWeight,
				ImageBonus:            scoring.ImageBonus,
				EngagementWeight:      scoring.EngagementWeight,
				EngagementCap:         scoring.EngagementCap,
				OverExposure:          scoring.OverExposure,
				OverExposureThreshold: scoring.OverExposureThreshold,
				OverExposureWindow:    scoring.OverExposureWindow,
				OverExposureFactor:    scoring.OverExposureFactor,
				Jitter:                scoring.Jitter,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Built-in defaults
//  2. YAML file: path if non-empty, else CONFIG_PATH, else DefaultConfigPaths
//  3. Environment variables
//
// An explicit path that does not exist is an error; a missing default file
// is not.
func LoadWithKoanf(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",
	"rank_max_items":        "server.max_items",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Storage
	"storage_backend":      "storage.backend",
	"storage_path":         "storage.path",
	"storage_quota_bytes":  "storage.quota_bytes",
	"storage_sync_writes":  "storage.sync_writes",
	"storage_gc_interval":  "storage.gc_interval",
	"storage_gc_ratio":     "storage.gc_ratio",
	"sqlite_busy_timeout":  "storage.busy_timeout",
	"breaker_enabled":      "storage.breaker.enabled",
	"breaker_max_requests": "storage.breaker.max_requests",
	"breaker_interval":     "storage.breaker.interval",
	"breaker_timeout":      "storage.breaker.timeout",
	"breaker_failures":     "storage.breaker.failure_threshold",

	// Feed
	"feed_seed":               "feed.seed",
	"feed_session_cache_size": "feed.session_cache_size",
	"feed_session_ttl":        "feed.session_ttl",
	"feed_sweep_interval":     "feed.sweep_interval",
	"feed_diversify":          "feed.diversify",
	"feed_over_exposure":      "feed.scoring.over_exposure",
	"feed_jitter":             "feed.scoring.jitter",
	"feed_recency_window":     "feed.scoring.recency_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
