// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package middleware

import (
	"net/http"

	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/validation"
)

// UserIDHeader carries the caller's user ID on requests and responses.
const UserIDHeader = "X-User-ID"

// UserID resolves the caller's identity from UserIDHeader. A missing header
// gets a fresh anonymous ID, which is echoed back so the client can reuse
// it. A malformed ID is rejected with 400.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := feed.ResolveUserID(r.Header.Get(UserIDHeader))
		if err := validation.ValidateVar(id, "userid"); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","error":{"code":"VALIDATION_ERROR","message":"invalid X-User-ID header"}}`))
			return
		}

		w.Header().Set(UserIDHeader, id)
		ctx := logging.ContextWithUserID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromRequest returns the ID stored by UserID.
func UserIDFromRequest(r *http.Request) string {
	return logging.UserIDFromContext(r.Context())
}
