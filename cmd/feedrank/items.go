// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/feedrank/internal/feed"
	"github.com/tomtom215/feedrank/internal/validation"
)

// loadItems reads candidate items from path. Files ending in .yaml or .yml
// are parsed as YAML, anything else as JSON. "-" reads JSON from stdin.
func loadItems(path string, stdin io.Reader) ([]feed.ContentItem, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // operator-supplied path
	}
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}

	var items []feed.ContentItem
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &items)
	default:
		err = json.Unmarshal(data, &items)
	}
	if err != nil {
		return nil, fmt.Errorf("parse items %s: %w", path, err)
	}

	for i := range items {
		if verr := validation.ValidateStruct(&items[i]); verr != nil {
			return nil, fmt.Errorf("item %d: %w", i, verr)
		}
	}
	return items, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// checkUserID validates a --user flag value.
func checkUserID(id string) error {
	if err := validation.ValidateVar(id, "required,userid"); err != nil {
		return fmt.Errorf("invalid --user %q: %w", id, err)
	}
	return nil
}
