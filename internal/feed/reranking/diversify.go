// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package reranking reorders score-sorted feeds.
package reranking

import (
	"context"
	"time"

	"github.com/tomtom215/feedrank/internal/feed"
)

const (
	// DiscoveryInterval is the spacing of discovery slots: every position
	// i > 0 with i%DiscoveryInterval == 0 may receive a random item.
	DiscoveryInterval = 5

	// DiscoveryWindow is the number of positions, starting at the slot,
	// a discovery pick is drawn from.
	DiscoveryWindow = 5
)

// Diversifier breaks up runs of items from the same institution and
// periodically promotes a random lower-ranked item.
//
// Walking the score-sorted list by index i:
//   - At a discovery slot with at least DiscoveryWindow items remaining
//     after i, a random index in [i, i+DiscoveryWindow) is placed if it has
//     not been placed yet. A displaced item at i is deferred.
//   - Otherwise, if the previously placed item shares the candidate's
//     institution, the first unplaced later item from another institution
//     is placed instead and the candidate is deferred. With no such item the
//     candidate is placed anyway.
//   - Deferred items are appended at the end in the order they were deferred.
//
// The output is always a permutation of the input.
type Diversifier struct{}

// NewDiversifier creates a Diversifier.
func NewDiversifier() *Diversifier {
	return &Diversifier{}
}

// Name returns the reranker identifier.
func (d *Diversifier) Name() string {
	return "diversifier"
}

// Rerank implements feed.Reranker.
func (d *Diversifier) Rerank(_ context.Context, items []feed.RankedItem, rng feed.Rand) []feed.RankedItem {
	n := len(items)
	out := make([]feed.RankedItem, 0, n)
	placed := make([]bool, n)
	var deferred []int

	place := func(idx int) {
		placed[idx] = true
		out = append(out, items[idx])
	}

	for i := 0; i < n; i++ {
		if rng != nil && i > 0 && i%DiscoveryInterval == 0 && i+DiscoveryWindow < n {
			pick := i + rng.Intn(DiscoveryWindow)
			if !placed[pick] {
				place(pick)
				if pick != i && !placed[i] {
					deferred = append(deferred, i)
				}
				continue
			}
		}

		if placed[i] {
			continue
		}

		if len(out) > 0 && out[len(out)-1].InstitutionID == items[i].InstitutionID {
			if alt := nextOtherInstitution(items, placed, i); alt >= 0 {
				place(alt)
				deferred = append(deferred, i)
				continue
			}
		}

		place(i)
	}

	for _, idx := range deferred {
		if !placed[idx] {
			place(idx)
		}
	}

	// Safety net for the permutation guarantee.
	for idx := range items {
		if !placed[idx] {
			place(idx)
		}
	}
	return out
}

// nextOtherInstitution returns the first unplaced index after i whose
// institution differs from items[i], or -1.
func nextOtherInstitution(items []feed.RankedItem, placed []bool, i int) int {
	inst := items[i].InstitutionID
	for j := i + 1; j < len(items); j++ {
		if !placed[j] && items[j].InstitutionID != inst {
			return j
		}
	}
	return -1
}

// PersonalizeOrder scores items against profile, sorts them and diversifies
// the result. items is not modified.
//
//nolint:gocritic // profile is read-only
func PersonalizeOrder(items []feed.ContentItem, profile feed.PreferenceProfile, now time.Time, scorer *feed.Scorer, rng feed.Rand) []feed.RankedItem {
	ranked := feed.ScoreItems(items, profile, now, scorer, rng)
	return NewDiversifier().Rerank(context.Background(), ranked, rng)
}

var _ feed.Reranker = (*Diversifier)(nil)
