// Package index implements the inverted text index over item titles,
// descriptions, and tags. The structure is not internally synchronised; the
// engine serialises access together with the other derived indexes so that a
// re-index of an item is atomic across all of them.
package index

import (
	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer/tokenizer"
)

// Field weights for term-frequency scoring. The title dominates, tags sit
// between title and free-form description text.
const (
	WeightTitle       = 3.0
	WeightTags        = 2.0
	WeightDescription = 1.0
)

// Match accumulates the field-weighted term frequency of the query tokens
// that appear in an item, along with how many distinct tokens matched.
type Match struct {
	WeightedTF float64
	Matched    int
}

// TextIndex maps tokens to postings carrying per-item field-weighted term
// frequency.
type TextIndex struct {
	postings map[string]map[int64]float64
	terms    map[int64][]string
}

// New creates an empty TextIndex.
func New() *TextIndex {
	return &TextIndex{
		postings: make(map[string]map[int64]float64),
		terms:    make(map[int64][]string),
	}
}

// Add tokenizes the item's title, description, and tags and records weighted
// postings. Any previous postings for the same id must be removed first.
func (ix *TextIndex) Add(item *catalog.Item) {
	weights := make(map[string]float64)
	for _, t := range tokenizer.Tokenize(item.Title) {
		weights[t] += WeightTitle
	}
	if item.Description != nil {
		for _, t := range tokenizer.Tokenize(*item.Description) {
			weights[t] += WeightDescription
		}
	}
	for _, tag := range item.TagList() {
		for _, t := range tokenizer.Tokenize(tag) {
			weights[t] += WeightTags
		}
	}

	terms := make([]string, 0, len(weights))
	for term, w := range weights {
		docs, ok := ix.postings[term]
		if !ok {
			docs = make(map[int64]float64)
			ix.postings[term] = docs
		}
		docs[item.ID] = w
		terms = append(terms, term)
	}
	ix.terms[item.ID] = terms
}

// Remove deletes all postings for the given item id.
func (ix *TextIndex) Remove(id int64) {
	for _, term := range ix.terms[id] {
		docs := ix.postings[term]
		delete(docs, id)
		if len(docs) == 0 {
			delete(ix.postings, term)
		}
	}
	delete(ix.terms, id)
}

// Search returns, for every item matching at least one query token, the
// accumulated weighted term frequency and the number of distinct tokens
// matched. Items matching none of the tokens are absent.
func (ix *TextIndex) Search(tokens []string) map[int64]Match {
	matches := make(map[int64]Match)
	for _, token := range tokenizer.Unique(tokens) {
		for id, w := range ix.postings[token] {
			m := matches[id]
			m.WeightedTF += w
			m.Matched++
			matches[id] = m
		}
	}
	return matches
}

// Terms reports the number of distinct indexed tokens.
func (ix *TextIndex) Terms() int {
	return len(ix.postings)
}
