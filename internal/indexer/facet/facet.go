// Package facet computes category rollups over a filtered candidate set.
package facet

import "github.com/xxng1/searchpilot/internal/catalog"

// CategoryCounts returns the number of candidates per category, computed in
// a single pass. Items without a category are skipped. An empty map is a
// valid result and means "no facet breakdown", distinct from zero results.
func CategoryCounts(items []*catalog.Item) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		if it.Category == nil || *it.Category == "" {
			continue
		}
		counts[*it.Category]++
	}
	return counts
}
