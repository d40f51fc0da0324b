// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/feedrank/internal/kvstore"
	"github.com/tomtom215/feedrank/internal/metrics"
)

// InteractionStore loads and saves user histories in a kvstore.Store.
//
// Neither Load nor Save returns an error: every storage problem is folded
// into the returned outcome.
type InteractionStore struct {
	kv     kvstore.Store
	logger zerolog.Logger
}

// SaveResult reports the outcome of a Save.
type SaveResult struct {
	Outcome SaveOutcome `json:"outcome"`

	// Bytes is the size of the encoded history that was written.
	Bytes int `json:"bytes"`

	// Err is the last store error for SavePersistFailedNonFatal.
	Err error `json:"-"`
}

// NewInteractionStore creates an InteractionStore over kv.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewInteractionStore(kv kvstore.Store, logger zerolog.Logger) *InteractionStore {
	return &InteractionStore{
		kv:     kv,
		logger: logger.With().Str("component", "interaction_store").Logger(),
	}
}

// Load reads userID's history. The returned history is never nil.
func (s *InteractionStore) Load(ctx context.Context, userID string) (*InteractionHistory, LoadOutcome) {
	h, outcome, _ := s.loadWithErr(ctx, userID)
	return h, outcome
}

// loadWithErr is Load that also returns the read error behind
// LoadUnavailable.
func (s *InteractionStore) loadWithErr(ctx context.Context, userID string) (*InteractionHistory, LoadOutcome, error) {
	h, outcome, err := s.load(ctx, userID)
	metrics.RecordHistoryLoad(outcome.String())
	return h, outcome, err
}

func (s *InteractionStore) load(ctx context.Context, userID string) (*InteractionHistory, LoadOutcome, error) {
	data, err := s.kv.Get(ctx, StorageKey(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return NewHistory(), LoadEmpty, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to read interaction history")
		return NewHistory(), LoadUnavailable, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}

	h, ok := DecodeHistory(data)
	if !ok {
		s.logger.Warn().
			Str("user_id", userID).
			Int("bytes", len(data)).
			Msg("Stored interaction history is corrupt, starting fresh")
		return NewHistory(), LoadRecoveredWithDefaults, nil
	}
	return h, LoadOK, nil
}

// Save runs routine cleanup on h and writes it.
//
// h is modified in place by every cleanup step so the caller's in-memory
// copy matches what was written:
//   - CleanupOldInteractions always runs.
//   - AggressiveCleanup runs when the encoding exceeds MaxHistoryBytes.
//   - When the store reports kvstore.ErrCapacityExceeded, h is reset with
//     ClearInteractions and the write is retried once.
//
// Any remaining failure yields SavePersistFailedNonFatal.
func (s *InteractionStore) Save(ctx context.Context, userID string, h *InteractionHistory, now time.Time) SaveResult {
	res := s.save(ctx, userID, h, now)
	metrics.RecordHistorySave(res.Outcome.String(), res.Bytes)
	if res.Outcome == SavePersistFailedNonFatal {
		s.logger.Warn().
			Err(res.Err).
			Str("user_id", userID).
			Str("outcome", res.Outcome.String()).
			Msg("Interaction history not persisted; continuing with in-memory state")
	}
	return res
}

func (s *InteractionStore) save(ctx context.Context, userID string, h *InteractionHistory, now time.Time) SaveResult {
	CleanupOldInteractions(h, now)
	outcome := SavePersisted

	data, err := EncodeHistory(h)
	if err != nil {
		return SaveResult{Outcome: SavePersistFailedNonFatal, Err: fmt.Errorf("encode history: %w", err)}
	}
	if len(data) > MaxHistoryBytes {
		AggressiveCleanup(h)
		outcome = SavePersistedAfterCompaction
		s.logger.Info().
			Str("user_id", userID).
			Int("bytes", len(data)).
			Msg("Interaction history over size limit, compacted")
		if data, err = EncodeHistory(h); err != nil {
			return SaveResult{Outcome: SavePersistFailedNonFatal, Err: fmt.Errorf("encode history: %w", err)}
		}
	}

	key := StorageKey(userID)
	err = s.kv.Set(ctx, key, data)
	if errors.Is(err, kvstore.ErrCapacityExceeded) {
		s.logger.Warn().Str("user_id", userID).Msg("Store full, resetting interaction history")
		ClearInteractions(h)
		outcome = SavePersistedAfterReset
		if data, err = EncodeHistory(h); err == nil {
			err = s.kv.Set(ctx, key, data)
		}
	}
	if err != nil {
		return SaveResult{Outcome: SavePersistFailedNonFatal, Err: err}
	}
	return SaveResult{Outcome: outcome, Bytes: len(data)}
}

// Delete removes userID's stored history.
func (s *InteractionStore) Delete(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, StorageKey(userID)); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
