// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/feedrank/internal/config"
	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/logging"
)

var (
	userID    string
	itemsPath string
	rankSeed  int64
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a JSON or YAML item file for a user",
	Long: `Rank reads candidate items from --items and prints them in personalized
order. The user's stored history is read but never modified.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			cfg.Feed.Seed = rankSeed
		}
		return runRank(cmd.Context(), cfg, userID, itemsPath, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print a user's stored interaction history and preference profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runInspect(cmd.Context(), cfg, userID, cmd.OutOrStdout())
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear a user's stored interaction history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runReset(cmd.Context(), cfg, userID, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{rankCmd, inspectCmd, resetCmd} {
		c.Flags().StringVarP(&userID, "user", "u", "", "user ID")
		_ = c.MarkFlagRequired("user")
	}
	rankCmd.Flags().StringVarP(&itemsPath, "items", "i", "-", `item file (.json, .yaml, .yml) or "-" for JSON on stdin`)
	rankCmd.Flags().Int64Var(&rankSeed, "seed", 0, "random seed for jitter and discovery slots")
}

// withEngine opens the configured store, runs fn and closes the store.
func withEngine(ctx context.Context, cfg *config.Config, fn func(*feed.Engine) error) (err error) {
	rt, err := newRuntime(ctx, cfg, logging.WithComponent("feed"))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rt.close())
	}()
	return fn(rt.engine)
}

func runRank(ctx context.Context, cfg *config.Config, user, path string, in io.Reader, out io.Writer) error {
	if err := checkUserID(user); err != nil {
		return err
	}
	items, err := loadItems(path, in)
	if err != nil {
		return err
	}
	if len(items) > cfg.Server.MaxItems {
		return fmt.Errorf("too many items: %d exceeds limit of %d", len(items), cfg.Server.MaxItems)
	}

	return withEngine(ctx, cfg, func(e *feed.Engine) error {
		res, err := e.Rank(ctx, user, items)
		if err != nil {
			return err
		}
		return writeJSON(out, res)
	})
}

type inspectOutput struct {
	UserID      string                   `json:"user_id"`
	LoadOutcome feed.LoadOutcome         `json:"load_outcome"`
	History     *feed.InteractionHistory `json:"history"`
	Profile     feed.PreferenceProfile   `json:"profile"`
}

func runInspect(ctx context.Context, cfg *config.Config, user string, out io.Writer) error {
	if err := checkUserID(user); err != nil {
		return err
	}
	return withEngine(ctx, cfg, func(e *feed.Engine) error {
		history, outcome, err := e.History(ctx, user)
		if err != nil {
			return err
		}
		if outcome == feed.LoadUnavailable {
			return fmt.Errorf("interaction store unavailable for user %s", user)
		}
		profile, err := e.Profile(ctx, user)
		if err != nil {
			return err
		}
		return writeJSON(out, inspectOutput{
			UserID:      user,
			LoadOutcome: outcome,
			History:     history,
			Profile:     profile,
		})
	})
}

func runReset(ctx context.Context, cfg *config.Config, user string, out io.Writer) error {
	if err := checkUserID(user); err != nil {
		return err
	}
	return withEngine(ctx, cfg, func(e *feed.Engine) error {
		res, err := e.Reset(ctx, user)
		if err != nil {
			return err
		}
		if !res.Outcome.Persisted() {
			return fmt.Errorf("reset not persisted: %w", res.Err)
		}
		_, err = fmt.Fprintf(out, "reset %s: %s\n", user, res.Outcome)
		return err
	})
}
