// Package searcher implements the query pipeline: parse, filter, match and
// score, sort, paginate, and attach facets.
package searcher

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer"
	"github.com/xxng1/searchpilot/internal/indexer/facet"
	"github.com/xxng1/searchpilot/internal/indexer/tokenizer"
)

// Scoring constants. Only the resulting orderings are contractual: partial
// matches score proportionally lower, an exact phrase in the title
// dominates, and popularity separates near-ties.
const (
	phraseBonus     = 5.0
	popularityBoost = 0.25
)

// ScoredItem pairs an item with its relevance score.
type ScoredItem struct {
	Item  *catalog.Item `json:"item"`
	Score float64       `json:"score"`
}

// Result is the outcome of a search request prior to response shaping.
type Result struct {
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
	Items      []ScoredItem   `json:"items"`
	Facets     map[string]int `json:"facets"`
}

// FacetAggregator computes a categorical breakdown of a candidate set.
type FacetAggregator func(items []*catalog.Item) map[string]int

// Searcher executes parsed requests against the index engine.
type Searcher struct {
	engine *indexer.Engine
	facets FacetAggregator
	logger *slog.Logger
}

// New creates a Searcher with the default category aggregator.
func New(engine *indexer.Engine) *Searcher {
	return &Searcher{
		engine: engine,
		facets: facet.CategoryCounts,
		logger: slog.Default().With("component", "searcher"),
	}
}

// Search runs the full pipeline. Facet counts are computed over the filtered
// candidate set before pagination, so they reflect the active filters rather
// than the whole corpus. A page beyond the last yields an empty item list
// with Total still accurate.
func (s *Searcher) Search(ctx context.Context, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenizer.Tokenize(req.Query)
	candidates := s.engine.Candidates(tokens)

	filtered := make([]ScoredItem, 0, len(candidates))
	facetItems := make([]*catalog.Item, 0, len(candidates))
	for _, c := range candidates {
		if !matchesFilters(c.Item, req) {
			continue
		}
		filtered = append(filtered, ScoredItem{
			Item:  c.Item,
			Score: score(c, req.Query, len(tokens)),
		})
		facetItems = append(facetItems, c.Item)
	}

	sortItems(filtered, req.Sort, req.Order)

	total := len(filtered)
	totalPages := (total + req.Size - 1) / req.Size

	start := (req.Page - 1) * req.Size
	end := start + req.Size
	var page []ScoredItem
	switch {
	case start >= total:
		page = []ScoredItem{}
	case end > total:
		page = filtered[start:total]
	default:
		page = filtered[start:end]
	}

	s.logger.Debug("search executed",
		"query", req.Query,
		"tokens", len(tokens),
		"candidates", len(candidates),
		"total", total,
		"returned", len(page),
	)
	return &Result{
		Total:      total,
		TotalPages: totalPages,
		Items:      page,
		Facets:     s.facets(facetItems),
	}, nil
}

// matchesFilters applies category equality and price-range membership.
// Items failing a filter are excluded from facets as well.
func matchesFilters(item *catalog.Item, req *Request) bool {
	if req.Category != "" && item.CategoryName() != req.Category {
		return false
	}
	if req.MinPrice != nil {
		if item.Price == nil || *item.Price < *req.MinPrice {
			return false
		}
	}
	if req.MaxPrice != nil {
		if item.Price == nil || *item.Price > *req.MaxPrice {
			return false
		}
	}
	return true
}

// score combines field-weighted term frequency scaled by token coverage, an
// exact-phrase bonus on the title, and a logarithmic popularity boost.
// Filter-only searches keep a zero score for every item.
func score(c indexer.Candidate, rawQuery string, queryTokens int) float64 {
	if queryTokens == 0 {
		return 0
	}
	coverage := float64(c.Match.Matched) / float64(queryTokens)
	s := c.Match.WeightedTF * coverage
	if strings.Contains(strings.ToLower(c.Item.Title), strings.ToLower(rawQuery)) {
		s += phraseBonus
	}
	s += popularityBoost * math.Log1p(float64(c.Item.Popularity))
	return s
}

// sortItems orders results by the requested field with ties always broken by
// ascending id, keeping pagination deterministic across identical requests.
func sortItems(items []ScoredItem, sortField, order string) {
	asc := order == OrderAsc
	less := func(i, j ScoredItem) bool { return i.Score < j.Score }
	switch sortField {
	case SortDate:
		less = func(i, j ScoredItem) bool { return i.Item.CreatedAt.Before(j.Item.CreatedAt) }
	case SortPopularity:
		less = func(i, j ScoredItem) bool { return i.Item.Popularity < j.Item.Popularity }
	case SortPrice:
		less = func(i, j ScoredItem) bool { return i.Item.PriceValue() < j.Item.PriceValue() }
	}

	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a], items[b]
		if less(x, y) != less(y, x) {
			if asc {
				return less(x, y)
			}
			return less(y, x)
		}
		return x.Item.ID < y.Item.ID
	})
}
