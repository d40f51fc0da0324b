// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

// Package main is the entry point for the feedrank service and its
// maintenance commands.
//
// Commands:
//
//	feedrank serve                       run the HTTP ranking service
//	feedrank rank --user U --items F     rank a JSON or YAML item file offline
//	feedrank inspect --user U            print a user's stored history and profile
//	feedrank reset --user U              clear a user's stored history
//
// All commands read the same configuration: built-in defaults, then the
// YAML file named by --config (or CONFIG_PATH), then environment variables.
//
// # Signal Handling
//
// serve shuts down gracefully on SIGINT and SIGTERM: the HTTP server drains
// in-flight requests, maintenance services stop, then the store is closed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by -ldflags at build time.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "feedrank",
	Short: "Personalized feed ranking service",
	Long: `Feedrank orders institution posts for each user from their like and
skip history, keeping the feed varied across institutions.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd, rankCmd, inspectCmd, resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
