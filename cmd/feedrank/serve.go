// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/feedrank/internal/api"
	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/logging"
	"github.com/tomtom215/feedrank/internal/supervisor"
	"github.com/tomtom215/feedrank/internal/supervisor/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP ranking service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// newHTTPServer builds the HTTP server for rt from cfg.
func newHTTPServer(cfg *config.Config, rt *runtime) *http.Server {
	handler := api.NewHandler(rt.engine, api.HandlerConfig{
		MaxItems: cfg.Server.MaxItems,
		Version:  version,
	}, rt.storeState())

	mw := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitDisabled,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
	})

	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mw).SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// serve runs the supervisor tree until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config) error {
	logging.Info().Str("version", version).Msg("Starting feedrank")

	rt, err := newRuntime(ctx, cfg, logging.WithComponent("feed"))
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.close(); err != nil {
			logging.Error().Err(err).Msg("Error closing interaction store")
		}
	}()

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	// Data layer
	if rt.badger != nil {
		tree.AddDataService(services.NewStoreGCService(rt.badger, cfg.Storage.GCInterval, logging.WithComponent("store-gc")))
	}
	tree.AddDataService(services.NewSessionJanitorService(rt.engine, cfg.Feed.SweepInterval, logging.WithComponent("session-janitor")))

	// API layer
	server := newHTTPServer(cfg, rt)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))

	logging.Info().
		Str("addr", server.Addr).
		Strs("rerankers", rt.engine.Rerankers()).
		Msg("Starting supervisor tree")

	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown requested, waiting for supervisor to finish")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) && !errors.Is(treeErr, context.DeadlineExceeded) {
		return fmt.Errorf("supervisor tree: %w", treeErr)
	}
	logging.Info().Msg("Feedrank stopped")
	return nil
}
