// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/feedrank/internal/feed"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8088" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Storage.Backend != BackendBadger {
		t.Errorf("Storage.Backend = %q, want badger", cfg.Storage.Backend)
	}
	if !cfg.Storage.Breaker.Enabled {
		t.Error("breaker should be enabled by default")
	}
	if !reflect.DeepEqual(cfg.FeedEngineConfig(), feed.DefaultConfig()) {
		t.Errorf("FeedEngineConfig() = %+v, want feed defaults", cfg.FeedEngineConfig())
	}
}

func TestLoadWithKoanf_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  cors_origins: [https://a.example, https://b.example]
storage:
  backend: sqlite
  path: /tmp/feed.db
  quota_bytes: 1048576
feed:
  seed: 42
  session_ttl: 10m
  scoring:
    jitter: 0.05
logging:
  level: debug
`)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("FEED_OVER_EXPOSURE", "false")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want env override 9100", cfg.Server.Port)
	}
	if got := cfg.Server.CORSOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", got)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.QuotaBytes != 1<<20 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Feed.Seed != 42 || cfg.Feed.SessionTTL != 10*time.Minute {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.Feed.Scoring.Jitter != 0.05 || cfg.Feed.Scoring.OverExposure {
		t.Errorf("Scoring = %+v", cfg.Feed.Scoring)
	}
	// Untouched nested defaults survive the file layer.
	if cfg.Feed.Scoring.RecencyWeight != 0.3 {
		t.Errorf("RecencyWeight = %v, want default 0.3", cfg.Feed.Scoring.RecencyWeight)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadWithKoanf_CommaSeparatedOrigins(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadWithKoanf("")
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadWithKoanf_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"STORAGE_BACKEND": "redis"},
			wantErr: "Storage.Backend",
		},
		{
			name:    "persistent backend without path",
			yaml:    "storage:\n  backend: sqlite\n  path: \"\"\n",
			wantErr: "STORAGE_PATH",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"STORAGE_BACKEND": "memory", "LOG_LEVEL": "loud"},
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "port out of range",
			env:     map[string]string{"STORAGE_BACKEND": "memory", "HTTP_PORT": "70000"},
			wantErr: "Server.Port",
		},
		{
			name:    "jitter out of range",
			env:     map[string]string{"STORAGE_BACKEND": "memory", "FEED_JITTER": "0.9"},
			wantErr: "jitter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			} else {
				t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadWithKoanf() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadWithKoanf_MissingExplicitFile(t *testing.T) {
	if _, err := LoadWithKoanf(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing explicit config file should fail")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":        "server.port",
		"storage_backend":  "storage.backend",
		"BREAKER_FAILURES": "storage.breaker.failure_threshold",
		"FEED_SEED":        "feed.seed",
		"PATH":             "",
		"HOME":             "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConversions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Backend = BackendSQLite
	cfg.Logging.Caller = true

	if b := cfg.BreakerSettings(); b.Name != "sqlite" || b.FailureThreshold != cfg.Storage.Breaker.FailureThreshold {
		t.Errorf("BreakerSettings() = %+v", b)
	}
	if l := cfg.LoggingSettings(); !l.Caller || l.Level != "info" {
		t.Errorf("LoggingSettings() = %+v", l)
	}
}
