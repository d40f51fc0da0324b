// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/feedrank/internal/cache"
	"github.com/tomtom215/feedrank/internal/kvstore"
	"github.com/tomtom215/feedrank/internal/metrics"
)

// AnonymousPrefix prefixes generated user IDs.
const AnonymousPrefix = "anon-"

// ResolveUserID returns id trimmed, or a new anonymous ID when id is blank.
func ResolveUserID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return AnonymousPrefix + uuid.NewString()
}

// session is one user's in-memory history.
type session struct {
	history *InteractionHistory
	loaded  LoadOutcome

	// loadErr is set for LoadUnavailable sessions, which are never cached.
	loadErr error
}

// Engine is the feed composition root. It owns the per-user histories,
// derives preferences on demand and runs the ranking pipeline.
//
// Calls for the same user are serialized; different users proceed in
// parallel.
type Engine struct {
	config *Config
	store  *InteractionStore
	scorer *Scorer
	rng    Rand
	now    func() time.Time
	logger zerolog.Logger

	sessions *cache.LRU[*session]
	locks    *keyLock

	mu        sync.RWMutex
	rerankers []Reranker
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRand sets the random source, overriding Config.Seed.
func WithRand(r Rand) EngineOption {
	return func(e *Engine) { e.rng = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine persisting histories in kv.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(kv kvstore.Store, cfg *Config, logger zerolog.Logger, opts ...EngineOption) (*Engine, error) {
	if kv == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config: cfg.Clone(),
		store:  NewInteractionStore(kv, logger),
		scorer: NewScorer(cfg.Scoring),
		now:    time.Now,
		logger: logger.With().Str("component", "feed").Logger(),
		locks:  newKeyLock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand(cfg.Seed)
	}

	e.sessions = cache.NewLRU[*session](cfg.SessionCacheSize, cfg.SessionTTL,
		cache.WithClock[*session](func() time.Time { return e.now() }),
		cache.WithEvictCallback(func(string, *session) {
			metrics.SessionsCached.Dec()
		}),
	)

	return e, nil
}

// RegisterReranker appends r to the reranking pipeline.
func (e *Engine) RegisterReranker(r Reranker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rerankers = append(e.rerankers, r)
	e.logger.Debug().Str("reranker", r.Name()).Msg("Registered reranker")
}

// Rerankers returns the registered reranker names in order.
func (e *Engine) Rerankers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.rerankers))
	for i, r := range e.rerankers {
		names[i] = r.Name()
	}
	return names
}

// RankResult is the output of Rank.
type RankResult struct {
	UserID      string            `json:"user_id"`
	Items       []RankedItem      `json:"items"`
	Profile     PreferenceProfile `json:"profile"`
	LoadOutcome LoadOutcome       `json:"load_outcome"`
}

// Rank orders items for userID. It fails only for an empty user ID or a
// canceled context; storage problems degrade to an empty history.
func (e *Engine) Rank(ctx context.Context, userID string, items []ContentItem) (*RankResult, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	unlock := e.locks.Lock(userID)
	sess := e.session(ctx, userID)
	now := e.now()
	profile := DerivePreferences(sess.history, now, e.overExposureWindow())
	unlock()

	ranked := ScoreItems(items, profile, now, e.scorer, e.rng)

	e.mu.RLock()
	rerankers := e.rerankers
	e.mu.RUnlock()
	for _, r := range rerankers {
		ranked = r.Rerank(ctx, ranked, e.rng)
	}

	metrics.RecordRank(len(items), time.Since(start))
	e.logger.Debug().
		Str("user_id", userID).
		Int("items", len(ranked)).
		Str("load_outcome", sess.loaded.String()).
		Dur("duration", time.Since(start)).
		Msg("Feed ranked")

	return &RankResult{
		UserID:      userID,
		Items:       ranked,
		Profile:     profile,
		LoadOutcome: sess.loaded,
	}, nil
}

// InteractionResult is the output of RecordInteraction.
type InteractionResult struct {
	UserID    string      `json:"user_id"`
	ContentID string      `json:"content_id"`
	Action    Action      `json:"action"`
	Category  string      `json:"category"`
	Outcome   SaveOutcome `json:"outcome"`
	Persisted bool        `json:"persisted"`
	Bytes     int         `json:"bytes"`

	// Err is the store error behind a non-fatal persist failure.
	Err error `json:"-"`
}

// RecordInteraction applies a like or skip to userID's history and persists
// it. A failed write is reported in the result, not as an error.
//
//nolint:gocritic // item is read-only
func (e *Engine) RecordInteraction(ctx context.Context, userID string, action Action, item ContentItem) (*InteractionResult, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if _, err := ParseAction(string(action)); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	sess := e.session(ctx, userID)
	if sess.loaded == LoadUnavailable {
		sess = e.session(ctx, userID)
	}
	if sess.loaded == LoadUnavailable {
		// Writing now would replace the stored history with this one event.
		category := Categorize(item.Title, item.Content)
		metrics.RecordHistorySave(SavePersistFailedNonFatal.String(), 0)
		e.logger.Warn().
			Err(sess.loadErr).
			Str("user_id", userID).
			Str("content_id", item.ID).
			Msg("Interaction dropped; stored history unreadable")
		return &InteractionResult{
			UserID:    userID,
			ContentID: item.ID,
			Action:    action,
			Category:  category,
			Outcome:   SavePersistFailedNonFatal,
			Err:       sess.loadErr,
		}, nil
	}

	now := e.now()
	category := ApplyInteraction(sess.history, action, item, now)
	res := e.store.Save(ctx, userID, sess.history, now)

	metrics.RecordInteraction(string(action), category)

	return &InteractionResult{
		UserID:    userID,
		ContentID: item.ID,
		Action:    action,
		Category:  category,
		Outcome:   res.Outcome,
		Persisted: res.Outcome.Persisted(),
		Bytes:     res.Bytes,
		Err:       res.Err,
	}, nil
}

// Profile returns the current PreferenceProfile for userID.
func (e *Engine) Profile(ctx context.Context, userID string) (PreferenceProfile, error) {
	if userID == "" {
		return PreferenceProfile{}, ErrInvalidUserID
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	sess := e.session(ctx, userID)
	return DerivePreferences(sess.history, e.now(), e.overExposureWindow()), nil
}

// History returns a copy of userID's current history.
func (e *Engine) History(ctx context.Context, userID string) (*InteractionHistory, LoadOutcome, error) {
	if userID == "" {
		return nil, LoadEmpty, ErrInvalidUserID
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	sess := e.session(ctx, userID)
	return sess.history.Clone(), sess.loaded, nil
}

// Reset clears userID's history and persists the empty state.
func (e *Engine) Reset(ctx context.Context, userID string) (SaveResult, error) {
	if userID == "" {
		return SaveResult{}, ErrInvalidUserID
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	sess := e.session(ctx, userID)
	ClearInteractions(sess.history)
	res := e.store.Save(ctx, userID, sess.history, e.now())
	e.logger.Info().Str("user_id", userID).Str("outcome", res.Outcome.String()).Msg("Interaction history reset")
	return res, nil
}

// Sweep drops expired sessions from memory and returns how many were removed.
func (e *Engine) Sweep() int {
	return e.sessions.CleanupExpired()
}

// Sessions returns the number of user histories held in memory.
func (e *Engine) Sessions() int {
	return e.sessions.Len()
}

// CacheStats reports session cache hits and misses since startup.
type CacheStats struct {
	Sessions int   `json:"sessions"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

// CacheStats returns the session cache counters.
func (e *Engine) CacheStats() CacheStats {
	hits, misses, size := e.sessions.Stats()
	return CacheStats{Sessions: size, Hits: hits, Misses: misses}
}

// session returns userID's cached session, loading it on a miss.
// The caller must hold userID's lock.
func (e *Engine) session(ctx context.Context, userID string) *session {
	if s, ok := e.sessions.Get(userID); ok {
		return s
	}

	h, outcome, err := e.store.loadWithErr(ctx, userID)
	s := &session{history: h, loaded: outcome, loadErr: err}
	// An unreadable store is retried on the next call.
	if outcome != LoadUnavailable {
		e.sessions.Add(userID, s)
		metrics.SessionsCached.Inc()
	}
	return s
}

func (e *Engine) overExposureWindow() time.Duration {
	if !e.config.Scoring.OverExposure {
		return 0
	}
	return e.config.Scoring.OverExposureWindow
}
