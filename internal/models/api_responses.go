// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package models defines the HTTP request and response bodies.
package models

import (
	"time"

	"github.com/tomtom215/feedrank/internal/feed"
)

// APIResponse is the envelope around every JSON response.
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "2026-03-15T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a structured error body.
//
// Codes: VALIDATION_ERROR, INVALID_JSON, PAYLOAD_TOO_LARGE, NOT_FOUND,
// METHOD_NOT_ALLOWED, RATE_LIMIT_EXCEEDED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RankRequest is the body of POST /api/v1/feed/rank.
type RankRequest struct {
	Items []feed.ContentItem `json:"items" validate:"dive"`
}

// InteractionRequest is the body of POST /api/v1/feed/interactions.
type InteractionRequest struct {
	Action string           `json:"action" validate:"required,feedaction"`
	Item   feed.ContentItem `json:"item"`
}

// RankResponse is the data of a rank response.
type RankResponse struct {
	UserID      string            `json:"user_id"`
	Count       int               `json:"count"`
	Items       []feed.RankedItem `json:"items"`
	LoadOutcome feed.LoadOutcome  `json:"load_outcome"`
}

// ProfileResponse is the data of GET /api/v1/feed/profile.
type ProfileResponse struct {
	UserID       string                 `json:"user_id"`
	Profile      feed.PreferenceProfile `json:"profile"`
	LikedCount   int                    `json:"liked_count"`
	SkippedCount int                    `json:"skipped_count"`
	LoadOutcome  feed.LoadOutcome       `json:"load_outcome"`
}

// ResetResponse is the data of DELETE /api/v1/feed/history.
type ResetResponse struct {
	UserID    string           `json:"user_id"`
	Outcome   feed.SaveOutcome `json:"outcome"`
	Persisted bool             `json:"persisted"`
}

// HealthResponse is the data of the health endpoints.
type HealthResponse struct {
	Status   string  `json:"status"`
	Version  string  `json:"version"`
	Uptime   float64 `json:"uptime_seconds"`
	Store    string  `json:"store"`
	Sessions int     `json:"sessions"`
	// SessionHits and SessionMisses count session cache lookups.
	SessionHits   int64 `json:"session_cache_hits"`
	SessionMisses int64 `json:"session_cache_misses"`
}
