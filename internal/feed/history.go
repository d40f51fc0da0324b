// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"
)

// ApplyInteraction appends an interaction to h and updates its tallies.
// It returns the item's derived category.
//
//nolint:gocritic // item is read-only
func ApplyInteraction(h *InteractionHistory, action Action, item ContentItem, now time.Time) string {
	ts := now.UnixMilli()
	event := InteractionEvent{ContentID: item.ID, Timestamp: ts}
	category := Categorize(item.Title, item.Content)

	switch action {
	case ActionLike:
		h.Liked = append(h.Liked, event)
	case ActionSkip:
		h.Skipped = append(h.Skipped, event)
	default:
		return category
	}

	bump(h.CategoryStats, category, action)
	if item.InstitutionID != "" {
		bump(h.InstitutionStats, item.InstitutionID, action)
	}
	h.ViewTime[item.ID] = ViewRecord{Timestamp: ts, InstitutionID: item.InstitutionID}
	return category
}

func bump(stats map[string]Tally, key string, action Action) {
	t := stats[key]
	if action == ActionLike {
		t.Likes++
	} else {
		t.Skips++
	}
	stats[key] = t
}

// CleanupOldInteractions applies the routine retention policy.
//
// A list over its cap first drops events older than RetentionWindow and is
// then cut to its newest MaxLiked or MaxSkipped events. Lists within their
// cap are left alone. View records older than RetentionWindow are always
// removed.
func CleanupOldInteractions(h *InteractionHistory, now time.Time) {
	cutoff := now.Add(-RetentionWindow).UnixMilli()

	if len(h.Liked) > MaxLiked {
		h.Liked = keepLast(dropBefore(h.Liked, cutoff), MaxLiked)
	}
	if len(h.Skipped) > MaxSkipped {
		h.Skipped = keepLast(dropBefore(h.Skipped, cutoff), MaxSkipped)
	}
	for id, v := range h.ViewTime {
		if v.Timestamp < cutoff {
			delete(h.ViewTime, id)
		}
	}
}

// AggressiveCleanup shrinks h for a history that is still too large after
// routine cleanup.
func AggressiveCleanup(h *InteractionHistory) {
	h.Liked = keepLast(h.Liked, CompactLiked)
	h.Skipped = keepLast(h.Skipped, CompactSkipped)
	h.ViewTime = map[string]ViewRecord{}
	capTallies(h.CategoryStats)
	capTallies(h.InstitutionStats)
}

// ClearInteractions resets h to an empty history in place.
func ClearInteractions(h *InteractionHistory) {
	*h = *NewHistory()
}

func dropBefore(events []InteractionEvent, cutoff int64) []InteractionEvent {
	out := make([]InteractionEvent, 0, len(events))
	for _, e := range events {
		if e.Timestamp >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

func keepLast(events []InteractionEvent, n int) []InteractionEvent {
	if len(events) <= n {
		return events
	}
	return append([]InteractionEvent{}, events[len(events)-n:]...)
}

func capTallies(stats map[string]Tally) {
	for k, t := range stats {
		stats[k] = Tally{Likes: min(t.Likes, CompactTallyCap), Skips: min(t.Skips, CompactTallyCap)}
	}
}

// EncodeHistory returns the stored form of h.
func EncodeHistory(h *InteractionHistory) ([]byte, error) {
	return json.Marshal(h)
}

// DecodeHistory parses a stored history. It reports false when data is not
// a JSON object or any field has the wrong type; the caller then starts
// over with NewHistory. Absent or null fields become empty containers.
func DecodeHistory(data []byte) (*InteractionHistory, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var h InteractionHistory
	if err := json.Unmarshal(trimmed, &h); err != nil {
		return nil, false
	}
	normalize(&h)
	return &h, true
}

// normalize fills missing containers and drops entries that cannot be used.
func normalize(h *InteractionHistory) {
	h.Liked = validEvents(h.Liked)
	h.Skipped = validEvents(h.Skipped)
	if h.ViewTime == nil {
		h.ViewTime = map[string]ViewRecord{}
	}
	delete(h.ViewTime, "")
	if h.CategoryStats == nil {
		h.CategoryStats = map[string]Tally{}
	}
	if h.InstitutionStats == nil {
		h.InstitutionStats = map[string]Tally{}
	}
	for _, stats := range []map[string]Tally{h.CategoryStats, h.InstitutionStats} {
		for k, t := range stats {
			stats[k] = Tally{Likes: max(t.Likes, 0), Skips: max(t.Skips, 0)}
		}
	}
}

func validEvents(events []InteractionEvent) []InteractionEvent {
	out := make([]InteractionEvent, 0, len(events))
	for _, e := range events {
		if e.ContentID != "" {
			out = append(out, e)
		}
	}
	return out
}
