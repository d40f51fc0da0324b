// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/feedrank/internal/models"
)

// breakerOpen is the gobreaker state name of a tripped breaker.
const breakerOpen = "open"

// HealthLive reports that the process is up.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady returns 503 while the store circuit breaker is open.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	store := h.store()
	ready := store != breakerOpen

	statusCode, status := http.StatusOK, "ready"
	if !ready {
		statusCode, status = http.StatusServiceUnavailable, "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"store":          store,
			"ready_to_serve": ready,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// Health returns the service status.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	store := h.store()
	cache := h.engine.CacheStats()
	status := "healthy"
	if store == breakerOpen {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.HealthResponse{
			Status:        status,
			Version:       h.config.Version,
			Uptime:        time.Since(h.startTime).Seconds(),
			Store:         store,
			Sessions:      cache.Sessions,
			SessionHits:   cache.Hits,
			SessionMisses: cache.Misses,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

func (h *Handler) store() string {
	if h.storeState == nil {
		return "direct"
	}
	return h.storeState()
}
