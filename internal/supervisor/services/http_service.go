// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank


// Package services adapts long-running feedrank components to
// suture.Service so the supervisor tree can restart them.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService serves the feed API until its context ends, then drains
// in-flight requests for at most shutdownTimeout.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// NewHTTPServerService wraps server. A non-positive shutdownTimeout uses 10s.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	l := logger.With().Str("service", "http-server")
	if s, ok := server.(*http.Server); ok {
		l = l.Str("addr", s.Addr)
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          l.Logger(),
	}
}

// Serve implements suture.Service. A listener error is returned so the
// supervisor restarts the service with backoff.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- h.server.ListenAndServe()
	}()
	h.logger.Info().Msg("Feed API listening")

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) || err == nil {
			return errors.New("http server closed outside of supervisor")
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	if err := h.drain(); err != nil {
		return err
	}
	<-listenErr
	h.logger.Info().Msg("Feed API stopped")
	return ctx.Err()
}

// drain shuts the server down on a fresh context; the serving context is
// already canceled at this point.
func (h *HTTPServerService) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain http server: %w", err)
	}
	h.logger.Debug().Dur("drain", time.Since(start)).Msg("In-flight requests drained")
	return nil
}

func (h *HTTPServerService) String() string {
	return "http-server"
}
