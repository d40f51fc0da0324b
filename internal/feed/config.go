// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"fmt"
	"time"
)

// ScoringConfig holds the weights of the relevance score.
//
// The defaults reproduce the production weighting and should only change
// together with a deliberate ranking experiment.
type ScoringConfig struct {
	// Base is the starting score of every item.
	Base float64 `json:"base"`

	// RecencyWeight scales max(0, 1 - age/RecencyWindow).
	RecencyWeight float64       `json:"recency_weight"`
	RecencyWindow time.Duration `json:"recency_window"`

	// InstitutionWeight scales the user's affinity for the item's institution.
	InstitutionWeight float64 `json:"institution_weight"`

	// ImageBonus is added when the item has an image.
	ImageBonus float64 `json:"image_bonus"`

	// EngagementWeight scales min(1, (likes+comments)/EngagementCap).
	EngagementWeight float64 `json:"engagement_weight"`
	EngagementCap    int     `json:"engagement_cap"`

	// OverExposure enables the penalty for institutions the user has
	// interacted with more than OverExposureThreshold times within
	// OverExposureWindow. The score is multiplied by OverExposureFactor.
	OverExposure          bool          `json:"over_exposure"`
	OverExposureThreshold int           `json:"over_exposure_threshold"`
	OverExposureWindow    time.Duration `json:"over_exposure_window"`
	OverExposureFactor    float64       `json:"over_exposure_factor"`

	// Jitter is the half-width of the uniform noise added for discovery.
	Jitter float64 `json:"jitter"`
}

// Config configures an Engine.
type Config struct {
	Scoring ScoringConfig `json:"scoring"`

	// SessionCacheSize is the number of user histories kept in memory.
	SessionCacheSize int `json:"session_cache_size"`

	// SessionTTL is how long an idle user history stays in memory.
	SessionTTL time.Duration `json:"session_ttl"`

	// Seed seeds the random source. Zero seeds from crypto/rand.
	Seed int64 `json:"seed"`
}

// DefaultScoringConfig returns the production scoring weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Base:                  0.5,
		RecencyWeight:         0.3,
		RecencyWindow:         30 * 24 * time.Hour,
		InstitutionWeight:     0.3,
		ImageBonus:            0.2,
		EngagementWeight:      0.2,
		EngagementCap:         100,
		OverExposure:          true,
		OverExposureThreshold: 2,
		OverExposureWindow:    24 * time.Hour,
		OverExposureFactor:    0.7,
		Jitter:                0.1,
	}
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Scoring:          DefaultScoringConfig(),
		SessionCacheSize: 10000,
		SessionTTL:       30 * time.Minute,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.SessionCacheSize < 1 {
		return fmt.Errorf("session_cache_size must be at least 1, got %d", c.SessionCacheSize)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %v", c.SessionTTL)
	}
	return nil
}

// Validate checks the scoring weights for invalid values.
func (s *ScoringConfig) Validate() error {
	if s.Base < 0 || s.Base > 1 {
		return fmt.Errorf("scoring.base must be in [0, 1], got %f", s.Base)
	}
	for name, w := range map[string]float64{
		"recency_weight":     s.RecencyWeight,
		"institution_weight": s.InstitutionWeight,
		"image_bonus":        s.ImageBonus,
		"engagement_weight":  s.EngagementWeight,
	} {
		if w < 0 {
			return fmt.Errorf("scoring.%s must be non-negative, got %f", name, w)
		}
	}
	if s.RecencyWindow <= 0 {
		return fmt.Errorf("scoring.recency_window must be positive, got %v", s.RecencyWindow)
	}
	if s.EngagementCap < 1 {
		return fmt.Errorf("scoring.engagement_cap must be at least 1, got %d", s.EngagementCap)
	}
	if s.OverExposure {
		if s.OverExposureFactor < 0 || s.OverExposureFactor > 1 {
			return fmt.Errorf("scoring.over_exposure_factor must be in [0, 1], got %f", s.OverExposureFactor)
		}
		if s.OverExposureWindow <= 0 {
			return fmt.Errorf("scoring.over_exposure_window must be positive, got %v", s.OverExposureWindow)
		}
		if s.OverExposureThreshold < 0 {
			return fmt.Errorf("scoring.over_exposure_threshold must be non-negative, got %d", s.OverExposureThreshold)
		}
	}
	if s.Jitter < 0 || s.Jitter > 0.5 {
		return fmt.Errorf("scoring.jitter must be in [0, 0.5], got %f", s.Jitter)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
