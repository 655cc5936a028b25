package stats

import (
	"fmt"
	"sync"
	"testing"
)

func TestRecordAndSnapshot(t *testing.T) {
	c := NewCollector(100, 10, nil)

	c.Record("shoes", 10)
	c.Record("shoes", 20)
	c.Record("hat", 30)

	snap := c.Snapshot()
	if snap.TotalSearches != 3 {
		t.Errorf("total searches = %d, want 3", snap.TotalSearches)
	}
	if snap.AvgResponseTimeMs != 20 {
		t.Errorf("avg = %v, want 20", snap.AvgResponseTimeMs)
	}
	if len(snap.PopularQueries) != 2 {
		t.Fatalf("popular queries = %d, want 2", len(snap.PopularQueries))
	}
	top := snap.PopularQueries[0]
	if top.Query != "shoes" || top.Count != 2 || top.AvgTimeMs != 15 {
		t.Errorf("top query = %+v, want shoes/2/15", top)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Red   Shoes  ", "red shoes"},
		{"SHOES", "shoes"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordMergesNormalizedVariants(t *testing.T) {
	c := NewCollector(100, 10, nil)
	c.Record("Red Shoes", 10)
	c.Record("  red   shoes ", 10)

	snap := c.Snapshot()
	if len(snap.PopularQueries) != 1 {
		t.Fatalf("expected variants to merge, got %v", snap.PopularQueries)
	}
	if snap.PopularQueries[0].Count != 2 {
		t.Errorf("merged count = %d, want 2", snap.PopularQueries[0].Count)
	}
}

func TestRecordEmptyQueryCountsTotalsOnly(t *testing.T) {
	c := NewCollector(100, 10, nil)
	c.Record("", 10)
	c.Record("   ", 30)

	snap := c.Snapshot()
	if snap.TotalSearches != 2 {
		t.Errorf("total searches = %d, want 2", snap.TotalSearches)
	}
	if snap.AvgResponseTimeMs != 20 {
		t.Errorf("avg = %v, want 20", snap.AvgResponseTimeMs)
	}
	if len(snap.PopularQueries) != 0 {
		t.Errorf("empty queries leaked into popular list: %v", snap.PopularQueries)
	}
}

func TestSnapshotTopNAndOrdering(t *testing.T) {
	c := NewCollector(100, 3, nil)
	for i := 0; i < 5; i++ {
		q := fmt.Sprintf("query%d", i)
		for j := 0; j <= i; j++ {
			c.Record(q, 10)
		}
	}

	snap := c.Snapshot()
	if len(snap.PopularQueries) != 3 {
		t.Fatalf("popular = %d entries, want topN=3", len(snap.PopularQueries))
	}
	for i := 1; i < len(snap.PopularQueries); i++ {
		if snap.PopularQueries[i].Count > snap.PopularQueries[i-1].Count {
			t.Errorf("popular queries not sorted by count: %v", snap.PopularQueries)
		}
	}
	if snap.PopularQueries[0].Query != "query4" {
		t.Errorf("most frequent = %q, want query4", snap.PopularQueries[0].Query)
	}
}

func TestEvictionKeepsFrequentQueries(t *testing.T) {
	c := NewCollector(3, 10, nil)
	c.Record("keep", 10)
	c.Record("keep", 10)
	c.Record("a", 10)
	c.Record("b", 10)
	// table full; a fourth distinct query evicts the least-used entry
	c.Record("c", 10)

	snap := c.Snapshot()
	if len(snap.PopularQueries) != 3 {
		t.Fatalf("tracked queries = %d, want cap 3", len(snap.PopularQueries))
	}
	found := false
	for _, pq := range snap.PopularQueries {
		if pq.Query == "keep" {
			found = true
		}
	}
	if !found {
		t.Errorf("frequent query evicted before single-hit ones: %v", snap.PopularQueries)
	}
	if snap.TotalSearches != 5 {
		t.Errorf("eviction disturbed global totals: %d", snap.TotalSearches)
	}
}

func TestConcurrentRecordLosesNoUpdates(t *testing.T) {
	c := NewCollector(1000, 10, nil)
	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.Record(fmt.Sprintf("query%d", w%4), 10)
			}
		}(w)
	}
	wg.Wait()

	if got := c.TotalSearches(); got != workers*perWorker {
		t.Errorf("total = %d, want %d", got, workers*perWorker)
	}
	snap := c.Snapshot()
	var sum int64
	for _, pq := range snap.PopularQueries {
		sum += pq.Count
	}
	if sum != workers*perWorker {
		t.Errorf("per-query counts sum to %d, want %d", sum, workers*perWorker)
	}
}

func TestPopularAndRecent(t *testing.T) {
	c := NewCollector(100, 10, nil)
	c.Record("first", 10)
	c.Record("second", 10)
	c.Record("second", 10)
	c.Record("third", 10)

	popular := c.Popular(2)
	if len(popular) != 2 || popular[0] != "second" {
		t.Errorf("Popular = %v, want second first", popular)
	}

	recent := c.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent = %v, want 2 entries", recent)
	}
	if recent[0] != "third" && recent[1] != "third" {
		t.Errorf("Recent = %v, want the latest query included", recent)
	}
}
