// Package prefix implements the autocomplete prefix tree. Lookups walk the
// tree to the prefix node and collect the item ids in its subtree, so cost is
// proportional to the matching subtree rather than the corpus. Like the text
// index, the structure is externally synchronised by the engine.
package prefix

import (
	"strings"

	"github.com/xxng1/searchpilot/internal/indexer/tokenizer"
)

type node struct {
	children map[rune]*node
	items    map[int64]struct{}
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Tree indexes the tokens of item titles for starts-with completion.
type Tree struct {
	root *node
}

// New creates an empty Tree.
func New() *Tree {
	return &Tree{root: newNode()}
}

// Add indexes every token of the title under the given item id.
func (t *Tree) Add(id int64, title string) {
	for _, token := range tokenizer.Unique(tokenizer.Tokenize(title)) {
		n := t.root
		for _, r := range token {
			child, ok := n.children[r]
			if !ok {
				child = newNode()
				n.children[r] = child
			}
			n = child
		}
		if n.items == nil {
			n.items = make(map[int64]struct{})
		}
		n.items[id] = struct{}{}
	}
}

// Remove drops the item id from every token node of the title.
func (t *Tree) Remove(id int64, title string) {
	for _, token := range tokenizer.Unique(tokenizer.Tokenize(title)) {
		n := t.root
		found := true
		for _, r := range token {
			child, ok := n.children[r]
			if !ok {
				found = false
				break
			}
			n = child
		}
		if found && n.items != nil {
			delete(n.items, id)
		}
	}
}

// Collect returns the ids of all items with a title token starting with the
// prefix (case-insensitive). Returns nil when no token matches.
func (t *Tree) Collect(prefix string) map[int64]struct{} {
	n := t.root
	for _, r := range strings.ToLower(prefix) {
		child, ok := n.children[r]
		if !ok {
			return nil
		}
		n = child
	}
	ids := make(map[int64]struct{})
	gather(n, ids)
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func gather(n *node, ids map[int64]struct{}) {
	for id := range n.items {
		ids[id] = struct{}{}
	}
	for _, child := range n.children {
		gather(child, ids)
	}
}
