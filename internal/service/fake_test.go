package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"dailycrypto/internal/cms"
)

// doc is one newsPost document held by fakeSource.
type doc struct {
	ID        string
	Slug      string
	Title     string
	Featured  bool
	Category  string
	Published time.Time
}

func (d doc) json() map[string]any {
	return map[string]any{
		"_id":           d.ID,
		"title":         d.Title,
		"slug":          map[string]any{"_type": "slug", "current": d.Slug},
		"featured":      d.Featured,
		"category":      d.Category,
		"datePublished": d.Published.Format(time.RFC3339),
		"author":        map[string]any{"name": "Desk"},
		"coverImage":    map[string]any{"asset": map[string]any{"_id": "image-" + d.Slug + "-10x10-jpg", "url": "https://cdn.sanity.io/" + d.Slug + ".jpg"}},
	}
}

// fakeSource evaluates cms.Query against in-memory documents.
type fakeSource struct {
	mu      sync.Mutex
	docs    []doc
	extra   []json.RawMessage // appended verbatim to list results
	unorder bool              // ignore OrderBy, as a misbehaving source would
	err     error
	calls   []cms.Query
	fresh   []cms.Freshness
}

func (f *fakeSource) Fetch(_ context.Context, q cms.Query, fresh cms.Freshness, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, q)
	f.fresh = append(f.fresh, fresh)
	if f.err != nil {
		return f.err
	}

	var matched []doc
	for _, d := range f.docs {
		if q.ExcludeDrafts && strings.HasPrefix(d.ID, "drafts.") {
			continue
		}
		if q.Type != "newsPost" || !matches(d, q.Filters) {
			continue
		}
		matched = append(matched, d)
	}

	if q.OrderBy == "datePublished" && !f.unorder {
		slices.SortStableFunc(matched, func(a, b doc) int { return b.Published.Compare(a.Published) })
	}

	var result any
	switch {
	case q.First:
		if len(matched) == 0 {
			result = nil
		} else {
			result = matched[0].json()
		}
	default:
		if q.Limit > 0 && len(matched) > q.Limit {
			matched = matched[:q.Limit]
		}
		items := make([]any, 0, len(matched))
		for _, d := range matched {
			switch {
			case strings.Contains(q.Projection, `"slug": slug.current`):
				items = append(items, map[string]any{"slug": d.Slug})
			case strings.Contains(q.Projection, `"isDraft"`):
				items = append(items, map[string]any{"_id": d.ID, "title": d.Title, "isDraft": strings.HasPrefix(d.ID, "drafts.")})
			default:
				items = append(items, d.json())
			}
		}
		for _, raw := range f.extra {
			items = append(items, raw)
		}
		result = items
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func matches(d doc, filters []cms.Filter) bool {
	for _, f := range filters {
		switch f.Field {
		case "featured":
			if d.Featured != f.Value {
				return false
			}
		case "slug.current":
			if d.Slug != f.Value {
				return false
			}
		case "category->name":
			if d.Category != f.Value {
				return false
			}
		default:
			panic(fmt.Sprintf("fakeSource: unsupported filter %q", f.Field))
		}
	}
	return true
}

// populated returns 10 published articles (5 featured), one draft, one
// per category alternating between Bitcoin and Ethereum.
func populated() *fakeSource {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{}

	// insertion order deliberately differs from publish order
	for _, i := range []int{3, 7, 0, 9, 1, 5, 2, 8, 4, 6} {
		category := "Bitcoin"
		if i%2 == 1 {
			category = "Ethereum"
		}
		src.docs = append(src.docs, doc{
			ID:        fmt.Sprintf("post-%d", i),
			Slug:      fmt.Sprintf("article-%d", i),
			Title:     fmt.Sprintf("Article %d", i),
			Featured:  i < 5,
			Category:  category,
			Published: base.Add(time.Duration(i) * time.Hour),
		})
	}
	src.docs = append(src.docs, doc{
		ID:        "drafts.post-99",
		Slug:      "draft-article",
		Title:     "Draft",
		Featured:  true,
		Category:  "Bitcoin",
		Published: base.Add(100 * time.Hour),
	})
	return src
}
