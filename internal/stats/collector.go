// Package stats aggregates per-query usage statistics: search counts,
// latency averages, and top queries. A single Collector instance is shared
// by all requests and injected into the HTTP layer, keeping the engine
// testable with a fresh instance per test.
package stats

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// PopularQuery is one entry of the top-queries breakdown.
type PopularQuery struct {
	Query     string  `json:"query"`
	Count     int64   `json:"count"`
	AvgTimeMs float64 `json:"avg_time_ms"`
}

// Snapshot is an aggregate view over everything recorded so far.
type Snapshot struct {
	TotalSearches     int64
	AvgResponseTimeMs float64
	PopularQueries    []PopularQuery
}

type queryStat struct {
	count    int64
	totalMs  float64
	lastSeen time.Time
}

// Collector records completed search requests. Counters never lose updates
// under concurrent Record calls; the per-query table is bounded, evicting
// the least-used entry once maxQueries distinct queries are tracked.
type Collector struct {
	totalSearches atomic.Int64

	mu         sync.Mutex
	totalMs    float64
	queries    map[string]*queryStat
	maxQueries int
	topN       int

	exporter *Exporter
	logger   *slog.Logger
}

// NewCollector creates a Collector retaining at most maxQueries distinct
// normalized queries and reporting topN popular queries. The exporter is
// optional.
func NewCollector(maxQueries, topN int, exporter *Exporter) *Collector {
	if maxQueries <= 0 {
		maxQueries = 10000
	}
	if topN <= 0 {
		topN = 10
	}
	return &Collector{
		queries:    make(map[string]*queryStat),
		maxQueries: maxQueries,
		topN:       topN,
		exporter:   exporter,
		logger:     slog.Default().With("component", "stats-collector"),
	}
}

// Normalize canonicalizes a query string for stats keying: lower-cased with
// whitespace collapsed.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Record registers one completed search request. It is cheap and never
// blocks on persistence; the optional export to Kafka is fire-and-forget.
func (c *Collector) Record(query string, elapsedMs float64) {
	c.totalSearches.Add(1)

	normalized := Normalize(query)

	c.mu.Lock()
	c.totalMs += elapsedMs
	if normalized != "" {
		stat, ok := c.queries[normalized]
		if !ok {
			if len(c.queries) >= c.maxQueries {
				c.evictLocked()
			}
			stat = &queryStat{}
			c.queries[normalized] = stat
		}
		stat.count++
		stat.totalMs += elapsedMs
		stat.lastSeen = time.Now()
	}
	c.mu.Unlock()

	if c.exporter != nil {
		c.exporter.Track(SearchEvent{
			Query:     normalized,
			LatencyMs: elapsedMs,
			Timestamp: time.Now().UTC(),
		})
	}
}

// evictLocked removes the entry with the lowest count, oldest last-seen on
// ties. Global totals are unaffected. Caller holds c.mu.
func (c *Collector) evictLocked() {
	var victim string
	var victimStat *queryStat
	for q, stat := range c.queries {
		if victimStat == nil ||
			stat.count < victimStat.count ||
			(stat.count == victimStat.count && stat.lastSeen.Before(victimStat.lastSeen)) {
			victim = q
			victimStat = stat
		}
	}
	if victim != "" {
		delete(c.queries, victim)
	}
}

// TotalSearches reports the exact number of recorded searches.
func (c *Collector) TotalSearches() int64 {
	return c.totalSearches.Load()
}

// Snapshot computes the aggregate stats view.
func (c *Collector) Snapshot() Snapshot {
	total := c.totalSearches.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{TotalSearches: total}
	if total > 0 {
		snap.AvgResponseTimeMs = round2(c.totalMs / float64(total))
	}

	popular := make([]PopularQuery, 0, len(c.queries))
	for q, stat := range c.queries {
		popular = append(popular, PopularQuery{
			Query:     q,
			Count:     stat.count,
			AvgTimeMs: round2(stat.totalMs / float64(stat.count)),
		})
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].Count != popular[j].Count {
			return popular[i].Count > popular[j].Count
		}
		return popular[i].Query < popular[j].Query
	})
	if len(popular) > c.topN {
		popular = popular[:c.topN]
	}
	snap.PopularQueries = popular
	return snap
}

// Popular returns up to n query strings ordered by descending count.
func (c *Collector) Popular(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type entry struct {
		query string
		count int64
	}
	entries := make([]entry, 0, len(c.queries))
	for q, stat := range c.queries {
		entries = append(entries, entry{query: q, count: stat.count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].query < entries[j].query
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.query
	}
	return out
}

// Recent returns up to n query strings ordered by most recent last-seen.
func (c *Collector) Recent(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type entry struct {
		query    string
		lastSeen time.Time
	}
	entries := make([]entry, 0, len(c.queries))
	for q, stat := range c.queries {
		entries = append(entries, entry{query: q, lastSeen: stat.lastSeen})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].lastSeen.Equal(entries[j].lastSeen) {
			return entries[i].lastSeen.After(entries[j].lastSeen)
		}
		return entries[i].query < entries[j].query
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.query
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
