// Package catalog defines the canonical searchable item record and its
// optional PostgreSQL persistence.
package catalog

import (
	"strings"
	"time"

	"github.com/xxng1/searchpilot/pkg/errors"
)

// Item is the canonical record for a searchable item. Items are immutable
// once indexed; an update replaces the whole record under the same id.
type Item struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Tags        *string  `json:"tags"`
	Price       *float64 `json:"price"`
	Popularity  int64    `json:"popularity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the item's structural invariants.
func (it *Item) Validate() error {
	if it.ID <= 0 {
		return errors.Validationf("id", "id must be a positive integer")
	}
	if strings.TrimSpace(it.Title) == "" {
		return errors.Validationf("title", "title is required")
	}
	if it.Price != nil && *it.Price < 0 {
		return errors.Validationf("price", "price must be non-negative")
	}
	if it.Popularity < 0 {
		return errors.Validationf("popularity", "popularity must be non-negative")
	}
	return nil
}

// TagList splits the comma-separated tags field into trimmed tokens.
func (it *Item) TagList() []string {
	if it.Tags == nil || *it.Tags == "" {
		return nil
	}
	parts := strings.Split(*it.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// CategoryName returns the category or "" when unset.
func (it *Item) CategoryName() string {
	if it.Category == nil {
		return ""
	}
	return *it.Category
}

// PriceValue returns the price, with absent prices ordered as zero.
func (it *Item) PriceValue() float64 {
	if it.Price == nil {
		return 0
	}
	return *it.Price
}

// Clone returns a deep copy so the engine can hand out pointers without
// aliasing caller-owned memory.
func (it *Item) Clone() *Item {
	cp := *it
	if it.Description != nil {
		v := *it.Description
		cp.Description = &v
	}
	if it.Category != nil {
		v := *it.Category
		cp.Category = &v
	}
	if it.Tags != nil {
		v := *it.Tags
		cp.Tags = &v
	}
	if it.Price != nil {
		v := *it.Price
		cp.Price = &v
	}
	return &cp
}
