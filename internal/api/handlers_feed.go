// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/middleware"
	"github.com/tomtom215/feedrank/internal/models"
)

// Rank orders the posted candidate items for the caller.
//
// POST /api/v1/feed/rank
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := middleware.UserIDFromRequest(r)

	var req models.RankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) > h.config.MaxItems {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("items must be at most %d items", h.config.MaxItems), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	res, err := h.engine.Rank(r.Context(), userID, req.Items)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, models.RankResponse{
		UserID:      res.UserID,
		Count:       len(res.Items),
		Items:       res.Items,
		LoadOutcome: res.LoadOutcome,
	}, start)
}

// RecordInteraction applies a like or skip for the caller.
//
// POST /api/v1/feed/interactions
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := middleware.UserIDFromRequest(r)

	var req models.InteractionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	action, err := feed.ParseAction(req.Action)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	res, err := h.engine.RecordInteraction(r.Context(), userID, action, req.Item)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if !res.Persisted {
		logging.Ctx(r.Context()).Warn().
			Err(res.Err).
			Str("content_id", sanitizeLogValue(res.ContentID)).
			Msg("Interaction kept in memory only")
	}

	respondSuccess(w, res, start)
}

// Profile returns the caller's derived preferences.
//
// GET /api/v1/feed/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := middleware.UserIDFromRequest(r)

	hist, outcome, err := h.engine.History(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	profile, err := h.engine.Profile(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, models.ProfileResponse{
		UserID:       userID,
		Profile:      profile,
		LikedCount:   len(hist.Liked),
		SkippedCount: len(hist.Skipped),
		LoadOutcome:  outcome,
	}, start)
}

// ResetHistory clears the caller's interaction history.
//
// DELETE /api/v1/feed/history
func (h *Handler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := middleware.UserIDFromRequest(r)

	res, err := h.engine.Reset(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, models.ResetResponse{
		UserID:    userID,
		Outcome:   res.Outcome,
		Persisted: res.Outcome.Persisted(),
	}, start)
}
