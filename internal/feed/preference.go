// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import "time"

// DerivePreferences computes a PreferenceProfile from h. It does not modify h.
//
// now and window bound the RecentInstitutionViews count used by the
// over-exposure penalty; a non-positive window leaves it empty.
func DerivePreferences(h *InteractionHistory, now time.Time, window time.Duration) PreferenceProfile {
	p := PreferenceProfile{
		CategoryScores:         make(map[string]float64, len(h.CategoryStats)),
		InstitutionScores:      make(map[string]float64, len(h.InstitutionStats)),
		TotalLikes:             len(h.Liked),
		TotalSkips:             len(h.Skipped),
		RecentInstitutionViews: map[string]int{},
	}

	for k, t := range h.CategoryStats {
		p.CategoryScores[k] = affinity(t)
	}
	for k, t := range h.InstitutionStats {
		p.InstitutionScores[k] = affinity(t)
	}

	if window > 0 {
		cutoff := now.Add(-window).UnixMilli()
		for _, v := range h.ViewTime {
			if v.InstitutionID != "" && v.Timestamp >= cutoff {
				p.RecentInstitutionViews[v.InstitutionID]++
			}
		}
	}
	return p
}

// affinity is likes/(likes+skips), or NeutralScore with no observations.
func affinity(t Tally) float64 {
	total := t.Likes + t.Skips
	if total <= 0 {
		return NeutralScore
	}
	return float64(t.Likes) / float64(total)
}
