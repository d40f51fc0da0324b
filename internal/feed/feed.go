// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package feed implements personalized feed ranking.
//
// A user's likes and skips are kept in an InteractionHistory, persisted
// through a kvstore.Store under StorageKey(userID). Ranking derives a
// PreferenceProfile from the history, scores every item with a Scorer,
// sorts by score and hands the result to the registered Rerankers
// (see package reranking for the diversifier).
//
// Engine ties these together and serializes work per user:
//
//	engine, err := feed.NewEngine(store, feed.DefaultConfig(), logger)
//	engine.RegisterReranker(reranking.NewDiversifier())
//	result, err := engine.Rank(ctx, userID, items)
//	_, err = engine.RecordInteraction(ctx, userID, feed.ActionLike, item)
//
// Storage problems never fail a rank: corrupt entries load as an empty
// history and failed writes are reported as SavePersistFailedNonFatal.
package feed

import (
	"errors"
	"time"
)

// Retention limits for persisted histories. These values are part of the
// stored format's contract and are not configurable.
const (
	// MaxLiked is the number of like events kept.
	MaxLiked = 100

	// MaxSkipped is the number of skip events kept.
	MaxSkipped = 50

	// RetentionWindow is how long events and view records are kept once a
	// list is over its cap.
	RetentionWindow = 30 * 24 * time.Hour

	// MaxHistoryBytes is the largest encoded history written without
	// aggressive compaction.
	MaxHistoryBytes = 1_000_000

	// CompactLiked, CompactSkipped and CompactTallyCap are the limits
	// applied by AggressiveCleanup.
	CompactLiked    = 50
	CompactSkipped  = 25
	CompactTallyCap = 10

	// NeutralScore is the affinity of an unobserved category or institution.
	NeutralScore = 0.5

	// StorageKeyPrefix prefixes every user's store key.
	StorageKeyPrefix = "feed_interactions_"
)

var (
	// ErrInvalidAction is returned for an action other than like or skip.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidUserID is returned when a user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidItem is returned when an interaction's item has no ID.
	ErrInvalidItem = errors.New("invalid item")

	// ErrHistoryUnavailable wraps a store read failure. A history that could
	// not be read is never overwritten.
	ErrHistoryUnavailable = errors.New("interaction history unavailable")
)

// StorageKey returns the store key holding userID's history.
func StorageKey(userID string) string {
	return StorageKeyPrefix + userID
}
