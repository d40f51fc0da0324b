// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package reranking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/feedrank/internal/feed"
)

type fixedRand struct {
	f float64
	i int
}

func (r fixedRand) Float64() float64 { return r.f }

func (r fixedRand) Intn(n int) int {
	if r.i >= n {
		return n - 1
	}
	return r.i
}

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func ranked(specs ...string) []feed.RankedItem {
	out := make([]feed.RankedItem, len(specs))
	for i, s := range specs {
		id, inst, _ := strings.Cut(s, ":")
		out[i] = feed.RankedItem{
			ContentItem:   feed.ContentItem{ID: id, InstitutionID: inst},
			PersonalScore: 1 - float64(i)/100,
		}
	}
	return out
}

func ids(items []feed.RankedItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.ID
	}
	return strings.Join(parts, " ")
}

func TestDiversifier_Name(t *testing.T) {
	if got := NewDiversifier().Name(); got != "diversifier" {
		t.Errorf("Name() = %q", got)
	}
}

func TestDiversifier_Rerank(t *testing.T) {
	tests := []struct {
		name  string
		items []feed.RankedItem
		rng   feed.Rand
		want  string
	}{
		{
			name:  "empty",
			items: nil,
			want:  "",
		},
		{
			name:  "single",
			items: ranked("a:1"),
			want:  "a",
		},
		{
			name:  "distinct institutions unchanged",
			items: ranked("a:1", "b:2", "c:3", "d:4"),
			want:  "a b c d",
		},
		{
			name:  "adjacent pair split",
			items: ranked("A:1", "B:1", "C:2", "D:3", "E:4"),
			want:  "A C D E B",
		},
		{
			name:  "single institution kept in order",
			items: ranked("a:1", "b:1", "c:1"),
			want:  "a b c",
		},
		{
			name:  "empty institution ids treated as one institution",
			items: ranked("a:", "b:", "c:x"),
			want:  "a c b",
		},
		{
			name: "discovery slot promotes a later item",
			items: ranked("i0:0", "i1:1", "i2:2", "i3:3", "i4:4", "i5:5",
				"i6:6", "i7:7", "i8:8", "i9:9", "i10:10", "i11:11"),
			rng:  fixedRand{i: 3},
			want: "i0 i1 i2 i3 i4 i8 i6 i7 i9 i10 i11 i5",
		},
		{
			name: "discovery pick equal to slot keeps order",
			items: ranked("i0:0", "i1:1", "i2:2", "i3:3", "i4:4", "i5:5",
				"i6:6", "i7:7", "i8:8", "i9:9", "i10:10"),
			rng:  fixedRand{i: 0},
			want: "i0 i1 i2 i3 i4 i5 i6 i7 i8 i9 i10",
		},
		{
			name: "no discovery near the tail",
			items: ranked("i0:0", "i1:1", "i2:2", "i3:3", "i4:4", "i5:5",
				"i6:6", "i7:7", "i8:8", "i9:9"),
			rng:  fixedRand{i: 4},
			want: "i0 i1 i2 i3 i4 i5 i6 i7 i8 i9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDiversifier().Rerank(context.Background(), tt.items, tt.rng)
			if ids(got) != tt.want {
				t.Errorf("Rerank() = %q, want %q", ids(got), tt.want)
			}
		})
	}
}

func TestDiversifier_AlwaysPermutation(t *testing.T) {
	d := NewDiversifier()
	for seed := int64(1); seed <= 20; seed++ {
		rng := feed.NewRand(seed)
		for n := 0; n <= 40; n++ {
			items := make([]feed.RankedItem, n)
			for i := range items {
				// Duplicate IDs and few institutions stress the index tracking.
				items[i] = feed.RankedItem{ContentItem: feed.ContentItem{
					ID:            fmt.Sprintf("c%d", i%7),
					InstitutionID: fmt.Sprintf("inst%d", rng.Intn(3)),
					Title:         fmt.Sprintf("%d", i),
				}}
			}

			got := d.Rerank(context.Background(), items, rng)
			if len(got) != n {
				t.Fatalf("seed %d n %d: len = %d", seed, n, len(got))
			}
			if !samePositions(items, got) {
				t.Fatalf("seed %d n %d: output is not a permutation", seed, n)
			}
		}
	}
}

func samePositions(in, out []feed.RankedItem) bool {
	key := func(items []feed.RankedItem) []string {
		k := make([]string, len(items))
		for i, it := range items {
			k[i] = it.ID + "/" + it.Title
		}
		sort.Strings(k)
		return k
	}
	a, b := key(in), key(out)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPersonalizeOrder_SeparatesInstitution(t *testing.T) {
	day := 24 * time.Hour
	mk := func(id, inst string, age time.Duration) feed.ContentItem {
		return feed.ContentItem{ID: id, InstitutionID: inst, CreatedAt: now.Add(-age)}
	}
	items := []feed.ContentItem{
		mk("E", "4", 12*day),
		mk("C", "2", 6*day),
		mk("A", "1", 0),
		mk("D", "3", 9*day),
		mk("B", "1", 3*day),
	}
	profile := feed.DerivePreferences(feed.NewHistory(), now, 0)

	got := PersonalizeOrder(items, profile, now, feed.NewScorer(feed.DefaultScoringConfig()), fixedRand{f: 0.5})
	if ids(got) != "A C D E B" {
		t.Errorf("PersonalizeOrder() = %q, want %q", ids(got), "A C D E B")
	}
	for i := 1; i < len(got); i++ {
		if got[i].InstitutionID == "1" && got[i-1].InstitutionID == "1" {
			t.Errorf("institution 1 repeated at positions %d and %d", i-1, i)
		}
	}
	if items[0].ID != "E" {
		t.Error("PersonalizeOrder() modified its input")
	}
}

func TestPersonalizeOrder_SameInstitutionScenario(t *testing.T) {
	day := 24 * time.Hour
	mk := func(id, inst string, age time.Duration) feed.ContentItem {
		return feed.ContentItem{ID: id, InstitutionID: inst, CreatedAt: now.Add(-age)}
	}
	// Without jitter, recency orders these A, B, C, D, E under an empty history.
	items := []feed.ContentItem{
		mk("A", "1", 0),
		mk("B", "1", 3*day),
		mk("C", "2", 6*day),
		mk("D", "1", 9*day),
		mk("E", "3", 12*day),
	}
	profile := feed.DerivePreferences(feed.NewHistory(), now, 0)
	cfg := feed.DefaultScoringConfig()
	cfg.Jitter = 0
	scorer := feed.NewScorer(cfg)

	for seed := int64(1); seed <= 10; seed++ {
		got := PersonalizeOrder(items, profile, now, scorer, feed.NewRand(seed))
		if ids(got) != "A C D E B" {
			t.Errorf("seed %d: PersonalizeOrder() = %q, want %q", seed, ids(got), "A C D E B")
		}
		if k := sameInstitutionRun(got); k >= 0 {
			t.Errorf("seed %d: %s and %s share institution %s", seed, got[k-1].ID, got[k].ID, got[k].InstitutionID)
		}
	}
}

func TestDiversifier_RepeatsOnlyWithoutAlternative(t *testing.T) {
	base := ranked("A:1", "B:1", "C:2", "D:1", "E:3")
	d := NewDiversifier()

	orders := 0
	permute(len(base), func(order []int) {
		orders++
		in := make([]feed.RankedItem, len(order))
		for i, idx := range order {
			in[i] = base[idx]
		}

		got := d.Rerank(context.Background(), in, fixedRand{})
		if !samePositions(in, got) {
			t.Fatalf("input %q: output %q is not a permutation", ids(in), ids(got))
		}
		// A repeat is allowed only once every remaining item shares the
		// repeated institution.
		for k := 1; k < len(got); k++ {
			if got[k].InstitutionID != got[k-1].InstitutionID {
				continue
			}
			for _, later := range got[k+1:] {
				if later.InstitutionID != got[k].InstitutionID {
					t.Errorf("input %q: output %q repeats institution %s before %s",
						ids(in), ids(got), got[k].InstitutionID, later.ID)
				}
			}
		}
	})
	if orders != 120 {
		t.Fatalf("checked %d orderings, want 120", orders)
	}
}

// sameInstitutionRun returns the first index k with items[k-1] and items[k]
// from the same institution, or -1.
func sameInstitutionRun(items []feed.RankedItem) int {
	for k := 1; k < len(items); k++ {
		if items[k].InstitutionID == items[k-1].InstitutionID {
			return k
		}
	}
	return -1
}

// permute calls fn with every ordering of 0..n-1.
func permute(n int, fn func([]int)) {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	var walk func(k int)
	walk = func(k int) {
		if k == n {
			fn(order)
			return
		}
		for i := k; i < n; i++ {
			order[k], order[i] = order[i], order[k]
			walk(k + 1)
			order[k], order[i] = order[i], order[k]
		}
	}
	walk(0)
}
