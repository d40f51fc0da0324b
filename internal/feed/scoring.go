// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"math"
	"sort"
	"time"
)

// Scorer computes personalized relevance scores.
type Scorer struct {
	cfg ScoringConfig
}

// NewScorer creates a Scorer with the given weights.
//
//nolint:gocritic // config is copied once at construction
func NewScorer(cfg ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score returns item's relevance for the user described by profile, in [0, 1].
// Missing signals fall back to neutral values; Score never fails.
//
//nolint:gocritic // items and profiles are passed by value to keep Score pure
func (s *Scorer) Score(item ContentItem, profile PreferenceProfile, now time.Time, rng Rand) float64 {
	c := &s.cfg
	score := c.Base

	days := now.Sub(item.CreatedAt).Hours() / 24
	window := c.RecencyWindow.Hours() / 24
	recency := math.Max(0, 1-days/window)
	score += recency * c.RecencyWeight

	score += profile.InstitutionScore(item.InstitutionID) * c.InstitutionWeight

	if item.ImageURL != "" {
		score += c.ImageBonus
	}

	engagement := math.Min(1, float64(item.Likes+item.Comments)/float64(c.EngagementCap))
	score += engagement * c.EngagementWeight

	if c.OverExposure && profile.RecentInstitutionViews[item.InstitutionID] > c.OverExposureThreshold {
		score *= c.OverExposureFactor
	}

	if rng != nil && c.Jitter > 0 {
		score += (rng.Float64()*2 - 1) * c.Jitter
	}

	return clamp01(score)
}

// ScoreItems scores every item and returns them sorted by score, highest
// first. Ties keep their input order. items is not modified.
//
//nolint:gocritic // profile is read-only
func ScoreItems(items []ContentItem, profile PreferenceProfile, now time.Time, scorer *Scorer, rng Rand) []RankedItem {
	ranked := make([]RankedItem, len(items))
	for i, item := range items {
		ranked[i] = RankedItem{
			ContentItem:   item,
			PersonalScore: scorer.Score(item, profile, now, rng),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PersonalScore > ranked[j].PersonalScore
	})
	return ranked
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return math.Max(0, math.Min(1, v))
}
