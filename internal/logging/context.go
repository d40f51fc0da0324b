// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank


package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// requestFields are the IDs attached to every log line of a request.
// Values are copied on write so a derived context never alters its parent.
type requestFields struct {
	correlationID string
	requestID     string
	userID        string
	logger        *zerolog.Logger
}

type fieldsKey struct{}

func fieldsFrom(ctx context.Context) requestFields {
	if f, ok := ctx.Value(fieldsKey{}).(requestFields); ok {
		return f
	}
	return requestFields{}
}

func withFields(ctx context.Context, update func(*requestFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// GenerateCorrelationID returns a short 8 character ID.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// GenerateRequestID returns a random UUID.
func GenerateRequestID() string {
	return uuid.NewString()
}

// ContextWithCorrelationID returns a context carrying a correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.correlationID = id })
}

// ContextWithNewCorrelationID is ContextWithCorrelationID with a generated ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// ContextWithRequestID returns a context carrying an HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.requestID = id })
}

// ContextWithUserID returns a context carrying the feed user ID.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.userID = id })
}

// ContextWithLogger makes Ctx build on logger instead of the global one.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return withFields(ctx, func(f *requestFields) { f.logger = &logger })
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// UserIDFromContext returns the user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).userID
}

// Ctx returns a logger carrying the context's IDs.
//
//	logging.Ctx(ctx).Warn().Msg("Interaction kept in memory only")
func Ctx(ctx context.Context) *zerolog.Logger {
	f := fieldsFrom(ctx)

	base := Logger()
	if f.logger != nil {
		base = *f.logger
	}

	c := base.With()
	if f.correlationID != "" {
		c = c.Str("correlation_id", f.correlationID)
	}
	if f.requestID != "" {
		c = c.Str("request_id", f.requestID)
	}
	if f.userID != "" {
		c = c.Str("user_id", f.userID)
	}
	l := c.Logger()
	return &l
}
