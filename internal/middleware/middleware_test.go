// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/metrics"
)

func TestPrometheusMetrics_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK) // superfluous, must not relabel
	})

	counter := metrics.APIRequestsTotal.WithLabelValues("GET", "/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("requests recorded under pattern = %v, want 3", got)
	}
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	h := PrometheusMetrics(http.NotFoundHandler())
	counter := metrics.APIRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestUserID(t *testing.T) {
	var seen string
	h := UserID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromRequest(r)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		check      func(t *testing.T, echoed string)
	}{
		{
			name:       "explicit id",
			header:     "alice",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, echoed string) {
				if echoed != "alice" || seen != "alice" {
					t.Errorf("echoed=%q seen=%q, want alice", echoed, seen)
				}
			},
		},
		{
			name:       "anonymous",
			header:     "",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, echoed string) {
				if !strings.HasPrefix(echoed, feed.AnonymousPrefix) || seen != echoed {
					t.Errorf("echoed=%q seen=%q, want matching anonymous id", echoed, seen)
				}
			},
		},
		{
			name:       "too long",
			header:     strings.Repeat("x", 200),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, rec.Header().Get(UserIDHeader))
			}
		})
	}
}
