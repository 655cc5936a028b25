// Package indexer holds the in-memory search engine: the canonical item
// store and the derived text and prefix indexes. A single reader-writer lock
// covers all of them, so a Put is atomic across every structure and a reader
// never observes an item half re-indexed.
package indexer

import (
	"iter"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer/index"
	"github.com/xxng1/searchpilot/internal/indexer/prefix"
	"github.com/xxng1/searchpilot/pkg/errors"
)

// Candidate pairs an item with its text-match accumulation. Items are
// immutable once indexed, so candidates stay valid after the read lock is
// released.
type Candidate struct {
	Item  *catalog.Item
	Match index.Match
}

// TextIndex is the full-text structure the engine maintains. The engine
// holds it behind this interface so an implementation with a different
// concurrency strategy (for example copy-on-write snapshots) can be swapped
// in without touching callers; all mutation happens under the engine's lock.
type TextIndex interface {
	Add(item *catalog.Item)
	Remove(id int64)
	Search(tokens []string) map[int64]index.Match
	Terms() int
}

// PrefixIndex is the starts-with completion structure, abstracted for the
// same reason as TextIndex.
type PrefixIndex interface {
	Add(id int64, title string)
	Remove(id int64, title string)
	Collect(prefix string) map[int64]struct{}
}

// Engine owns the item store and its derived indexes.
type Engine struct {
	mu     sync.RWMutex
	items  map[int64]*catalog.Item
	text   TextIndex
	prefix PrefixIndex
	logger *slog.Logger
}

// New creates an empty Engine.
func New() *Engine {
	return &Engine{
		items:  make(map[int64]*catalog.Item),
		text:   index.New(),
		prefix: prefix.New(),
		logger: slog.Default().With("component", "index-engine"),
	}
}

// Put inserts or replaces an item by id and re-indexes it in the text and
// prefix structures before returning, so a subsequent query observes the
// update. Zero timestamps are filled in; UpdatedAt is always refreshed on
// replacement.
func (e *Engine) Put(item *catalog.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	stored := item.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if old, exists := e.items[stored.ID]; exists {
		stored.UpdatedAt = now
		e.text.Remove(old.ID)
		e.prefix.Remove(old.ID, old.Title)
	}
	e.items[stored.ID] = stored
	e.text.Add(stored)
	e.prefix.Add(stored.ID, stored.Title)
	return nil
}

// Get returns the item for id or ErrItemNotFound.
func (e *Engine) Get(id int64) (*catalog.Item, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	item, ok := e.items[id]
	if !ok {
		return nil, errors.ErrItemNotFound
	}
	return item, nil
}

// All returns a restartable sequence over the items. The read lock is held
// for the duration of a single iteration; callers must not Put from inside
// the loop.
func (e *Engine) All() iter.Seq[*catalog.Item] {
	return func(yield func(*catalog.Item) bool) {
		e.mu.RLock()
		defer e.mu.RUnlock()
		for _, item := range e.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Len reports the number of items held.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// Terms reports the number of distinct indexed tokens.
func (e *Engine) Terms() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.text.Terms()
}

// Candidates evaluates the query tokens against the text index under one
// read lock, giving the request a consistent snapshot. With no tokens every
// item is a candidate with a zero match (filter-only search).
func (e *Engine) Candidates(tokens []string) []Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(tokens) == 0 {
		out := make([]Candidate, 0, len(e.items))
		for _, item := range e.items {
			out = append(out, Candidate{Item: item})
		}
		return out
	}

	matches := e.text.Search(tokens)
	out := make([]Candidate, 0, len(matches))
	inconsistent := false
	for id, m := range matches {
		item, ok := e.items[id]
		if !ok {
			// A posting without a backing item means the derived index
			// diverged from the store. The store is authoritative.
			inconsistent = true
			continue
		}
		out = append(out, Candidate{Item: item, Match: m})
	}
	if inconsistent {
		e.logger.Error("text index out of sync with item store, scheduling rebuild")
		go e.Rebuild()
	}
	return out
}

// Suggest returns up to limit distinct titles having a token starting with
// the given prefix, ordered by descending popularity then ascending title.
func (e *Engine) Suggest(pfx string, limit int) []string {
	if limit <= 0 || strings.TrimSpace(pfx) == "" {
		return []string{}
	}

	e.mu.RLock()
	ids := e.prefix.Collect(pfx)
	type completion struct {
		title      string
		popularity int64
	}
	byTitle := make(map[string]int64, len(ids))
	for id := range ids {
		item, ok := e.items[id]
		if !ok {
			continue
		}
		if pop, seen := byTitle[item.Title]; !seen || item.Popularity > pop {
			byTitle[item.Title] = item.Popularity
		}
	}
	e.mu.RUnlock()

	ranked := make([]completion, 0, len(byTitle))
	for title, pop := range byTitle {
		ranked = append(ranked, completion{title: title, popularity: pop})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].popularity != ranked[j].popularity {
			return ranked[i].popularity > ranked[j].popularity
		}
		return ranked[i].title < ranked[j].title
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	titles := make([]string, len(ranked))
	for i, c := range ranked {
		titles[i] = c.title
	}
	return titles
}

// Rebuild reconstructs the derived indexes from the item store. Used to
// recover from an index/store inconsistency without restarting the service.
func (e *Engine) Rebuild() {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	text := index.New()
	pfxTree := prefix.New()
	for _, item := range e.items {
		text.Add(item)
		pfxTree.Add(item.ID, item.Title)
	}
	e.text = text
	e.prefix = pfxTree
	e.logger.Info("derived indexes rebuilt",
		"items", len(e.items),
		"terms", text.Terms(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
}
