// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Action is a user's response to a feed item.
type Action string

const (
	ActionLike Action = "like"
	ActionSkip Action = "skip"
)

// ParseAction converts s to an Action. Matching is case-insensitive.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionLike:
		return ActionLike, nil
	case ActionSkip:
		return ActionSkip, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// ContentItem is a post published by an institution, as supplied by the
// content listing service. Items are read-only inputs to ranking.
type ContentItem struct {
	ID              string    `json:"id" yaml:"id" validate:"required,max=256"`
	InstitutionID   string    `json:"institution_id" yaml:"institution_id" validate:"max=256"`
	InstitutionName string    `json:"institution_name,omitempty" yaml:"institution_name"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	Title           string    `json:"title" yaml:"title"`
	Content         string    `json:"content" yaml:"content"`

	// ImageURL is empty when the post has no image.
	ImageURL string `json:"image_url,omitempty" yaml:"image_url"`

	Likes      int  `json:"likes" yaml:"likes"`
	Comments   int  `json:"comments" yaml:"comments"`
	IsFeatured bool `json:"is_featured" yaml:"is_featured"`
}

// RankedItem is a ContentItem with its personalized score in [0, 1].
type RankedItem struct {
	ContentItem
	PersonalScore float64 `json:"personal_score"`
}

// InteractionEvent records one like or skip. Timestamp is Unix milliseconds.
type InteractionEvent struct {
	ContentID string `json:"contentId"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the event time.
func (e InteractionEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// ViewRecord is the last time a content item was interacted with and the
// institution that published it.
type ViewRecord struct {
	Timestamp     int64  `json:"timestamp"`
	InstitutionID string `json:"institutionId,omitempty"`
}

// Tally counts likes and skips for a category or institution.
type Tally struct {
	Likes int `json:"likes"`
	Skips int `json:"skips"`
}

// InteractionHistory is everything persisted for one user.
//
// Liked and Skipped are in append order, oldest first. The JSON form is the
// stored format and must stay stable.
type InteractionHistory struct {
	Liked            []InteractionEvent    `json:"liked"`
	Skipped          []InteractionEvent    `json:"skipped"`
	ViewTime         map[string]ViewRecord `json:"viewTime"`
	CategoryStats    map[string]Tally      `json:"categoryStats"`
	InstitutionStats map[string]Tally      `json:"institutionStats"`
}

// NewHistory returns an empty history with every container allocated.
func NewHistory() *InteractionHistory {
	return &InteractionHistory{
		Liked:            []InteractionEvent{},
		Skipped:          []InteractionEvent{},
		ViewTime:         map[string]ViewRecord{},
		CategoryStats:    map[string]Tally{},
		InstitutionStats: map[string]Tally{},
	}
}

// Clone returns a deep copy of h.
func (h *InteractionHistory) Clone() *InteractionHistory {
	out := &InteractionHistory{
		Liked:            append([]InteractionEvent{}, h.Liked...),
		Skipped:          append([]InteractionEvent{}, h.Skipped...),
		ViewTime:         make(map[string]ViewRecord, len(h.ViewTime)),
		CategoryStats:    make(map[string]Tally, len(h.CategoryStats)),
		InstitutionStats: make(map[string]Tally, len(h.InstitutionStats)),
	}
	for k, v := range h.ViewTime {
		out.ViewTime[k] = v
	}
	for k, v := range h.CategoryStats {
		out.CategoryStats[k] = v
	}
	for k, v := range h.InstitutionStats {
		out.InstitutionStats[k] = v
	}
	return out
}

// PreferenceProfile is derived from an InteractionHistory and never stored.
type PreferenceProfile struct {
	// CategoryScores maps category to likes/(likes+skips).
	CategoryScores map[string]float64 `json:"category_scores"`

	// InstitutionScores maps institution ID to likes/(likes+skips).
	InstitutionScores map[string]float64 `json:"institution_scores"`

	TotalLikes int `json:"total_likes"`
	TotalSkips int `json:"total_skips"`

	// RecentInstitutionViews counts interactions per institution inside the
	// over-exposure window.
	RecentInstitutionViews map[string]int `json:"recent_institution_views"`
}

// InstitutionScore returns the affinity for an institution, or NeutralScore
// when the institution has never been observed.
func (p PreferenceProfile) InstitutionScore(id string) float64 {
	if s, ok := p.InstitutionScores[id]; ok {
		return s
	}
	return NeutralScore
}

// CategoryScore returns the affinity for a category, or NeutralScore.
func (p PreferenceProfile) CategoryScore(category string) float64 {
	if s, ok := p.CategoryScores[category]; ok {
		return s
	}
	return NeutralScore
}

// Reranker reorders a score-sorted feed.
type Reranker interface {
	// Name returns the reranker name for logging.
	Name() string

	// Rerank returns a permutation of items. items arrive sorted by
	// PersonalScore descending; rng is the engine's random source.
	Rerank(ctx context.Context, items []RankedItem, rng Rand) []RankedItem
}

// LoadOutcome describes how a history was obtained from the store.
type LoadOutcome int

const (
	// LoadEmpty means no entry existed; a fresh history was created.
	LoadEmpty LoadOutcome = iota

	// LoadOK means the stored entry decoded cleanly.
	LoadOK

	// LoadRecoveredWithDefaults means the stored entry was corrupt and was
	// replaced by an empty history.
	LoadRecoveredWithDefaults

	// LoadUnavailable means the store could not be read; an empty history
	// is used for this request only.
	LoadUnavailable
)

// String returns the outcome name.
func (o LoadOutcome) String() string {
	switch o {
	case LoadEmpty:
		return "empty"
	case LoadOK:
		return "loaded"
	case LoadRecoveredWithDefaults:
		return "recovered_with_defaults"
	case LoadUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes appear as strings in JSON.
func (o LoadOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// SaveOutcome describes what a save had to do to persist a history.
type SaveOutcome int

const (
	// SavePersisted means the history was written after routine cleanup.
	SavePersisted SaveOutcome = iota

	// SavePersistedAfterCompaction means the history exceeded
	// MaxHistoryBytes and was aggressively trimmed before writing.
	SavePersistedAfterCompaction

	// SavePersistedAfterReset means the store was full; the history was
	// reset to empty and the retry succeeded.
	SavePersistedAfterReset

	// SavePersistFailedNonFatal means the write failed. The in-memory
	// history is still used for ranking.
	SavePersistFailedNonFatal
)

// String returns the outcome name.
func (o SaveOutcome) String() string {
	switch o {
	case SavePersisted:
		return "persisted"
	case SavePersistedAfterCompaction:
		return "persisted_after_compaction"
	case SavePersistedAfterReset:
		return "persisted_after_reset"
	case SavePersistFailedNonFatal:
		return "persist_failed_non_fatal"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes appear as strings in JSON.
func (o SaveOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Persisted reports whether the history reached the store.
func (o SaveOutcome) Persisted() bool {
	return o != SavePersistFailedNonFatal
}
