// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import "strings"

// CategoryGeneral is assigned when no keyword matches.
const CategoryGeneral = "general"

// categoryKeywords is checked in order; the first category with a matching
// keyword wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"mathematics", []string{"math", "algebra", "geometry", "calculus", "statistics"}},
	{"science", []string{"science", "physics", "chemistry", "biology", "experiment"}},
	{"arts", []string{"art", "music", "painting", "drawing", "theater", "dance"}},
	{"business", []string{"business", "economics", "finance", "marketing", "management"}},
	{"technology", []string{"technology", "computer", "programming", "coding", "software"}},
	{"language", []string{"language", "english", "spanish", "french", "literature", "writing"}},
}

// Categorize assigns an item to a category by case-insensitive substring
// search over title and content.
func Categorize(title, content string) string {
	text := strings.ToLower(title + " " + content)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.category
			}
		}
	}
	return CategoryGeneral
}
