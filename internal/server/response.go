package server

import (
	"time"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/stats"
)

// ResponseItem is the wire representation of a search hit. Optional fields
// serialize as null; highlight is null when not constructible, in which case
// the consumer renders the raw title.
type ResponseItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        *string   `json:"tags"`
	Price       *float64  `json:"price"`
	Popularity  int64     `json:"popularity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Highlight   *string   `json:"highlight"`
}

// Facets carries the per-category counts of the filtered candidate set.
type Facets struct {
	Categories map[string]int `json:"categories"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Query          string         `json:"query"`
	Total          int            `json:"total"`
	Page           int            `json:"page"`
	Size           int            `json:"size"`
	TotalPages     int            `json:"total_pages"`
	Items          []ResponseItem `json:"items"`
	ResponseTimeMs float64        `json:"response_time_ms"`
	Facets         *Facets        `json:"facets"`
}

// AutocompleteResponse is the body of GET /api/autocomplete.
type AutocompleteResponse struct {
	Suggestions    []string `json:"suggestions"`
	ResponseTimeMs float64  `json:"response_time_ms"`
}

// SuggestionsResponse is the body of GET /api/suggestions.
type SuggestionsResponse struct {
	Popular []string `json:"popular"`
	Recent  []string `json:"recent"`
}

// StatsResponse is the body of GET /api/search/stats.
type StatsResponse struct {
	TotalItems        int                  `json:"total_items"`
	TotalSearches     int64                `json:"total_searches"`
	AvgResponseTimeMs float64              `json:"avg_response_time_ms"`
	PopularQueries    []stats.PopularQuery `json:"popular_queries"`
}

// IndexResponse is the body returned after POST /api/items.
type IndexResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func toResponseItem(item *catalog.Item, highlight string) ResponseItem {
	ri := ResponseItem{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Tags:        item.Tags,
		Price:       item.Price,
		Popularity:  item.Popularity,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if highlight != "" {
		ri.Highlight = &highlight
	}
	return ri
}
