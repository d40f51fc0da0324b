// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package metrics holds the Prometheus collectors for feedrank.
//
// Collectors are registered on the default registry via promauto and exposed
// by the API server on /metrics. Callers should prefer the RecordX helpers
// over touching the collectors directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ranking Metrics
	RankRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedrank_rank_requests_total",
			Help: "Total number of rank requests",
		},
	)

	RankItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedrank_rank_items",
			Help:    "Number of items submitted per rank request",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedrank_rank_duration_seconds",
			Help:    "Time spent scoring and diversifying a feed",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	// Interaction Metrics
	Interactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_interactions_total",
			Help: "Total number of recorded interactions",
		},
		[]string{"action", "category"},
	)

	// History Persistence Metrics
	HistoryLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_history_load_total",
			Help: "History loads by outcome",
		},
		[]string{"outcome"},
	)

	HistorySaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_history_save_total",
			Help: "History saves by outcome",
		},
		[]string{"outcome"},
	)

	HistoryBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedrank_history_bytes",
			Help:    "Serialized size of persisted interaction histories",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B .. 4MiB
		},
	)

	SessionsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedrank_sessions_cached",
			Help: "Current number of user sessions held in memory",
		},
	)

	// Key-Value Store Metrics
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_kvstore_operations_total",
			Help: "Key-value store operations by backend, operation and result",
		},
		[]string{"backend", "op", "result"},
	)

	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrank_kvstore_operation_duration_seconds",
			Help:    "Key-value store operation latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"backend", "op"},
	)

	StoreBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feedrank_kvstore_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_kvstore_gc_runs_total",
			Help: "Value log garbage collection runs by result",
		},
		[]string{"result"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedrank_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedrank_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRank records a completed rank request.
func RecordRank(items int, duration time.Duration) {
	RankRequests.Inc()
	RankItems.Observe(float64(items))
	RankDuration.Observe(duration.Seconds())
}

// RecordInteraction records a like or skip against its derived category.
func RecordInteraction(action, category string) {
	Interactions.WithLabelValues(action, category).Inc()
}

// RecordHistoryLoad records the outcome of reading a user's history.
func RecordHistoryLoad(outcome string) {
	HistoryLoads.WithLabelValues(outcome).Inc()
}

// RecordHistorySave records the outcome of persisting a user's history.
// size is the encoded size in bytes; zero means nothing was written.
func RecordHistorySave(outcome string, size int) {
	HistorySaves.WithLabelValues(outcome).Inc()
	if size > 0 {
		HistoryBytes.Observe(float64(size))
	}
}

// RecordStoreOperation records a key-value store call.
func RecordStoreOperation(backend, op, result string, duration time.Duration) {
	StoreOperations.WithLabelValues(backend, op, result).Inc()
	StoreDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordBreakerState records a circuit breaker state transition.
func RecordBreakerState(name string, state int) {
	StoreBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordStoreGC records one garbage collection pass.
func RecordStoreGC(result string) {
	StoreGCRuns.WithLabelValues(result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
