package index

import (
	"testing"

	"github.com/xxng1/searchpilot/internal/catalog"
)

func strPtr(s string) *string { return &s }

func item(id int64, title string, desc, tags *string) *catalog.Item {
	return &catalog.Item{ID: id, Title: title, Description: desc, Tags: tags}
}

func TestAddFieldWeights(t *testing.T) {
	ix := New()
	ix.Add(item(1, "shoes", strPtr("running shoes"), strPtr("shoes,sport")))

	matches := ix.Search([]string{"shoes"})
	m, ok := matches[1]
	if !ok {
		t.Fatal("expected item 1 to match")
	}
	// title 3.0 + description 1.0 + tag 2.0
	if want := WeightTitle + WeightDescription + WeightTags; m.WeightedTF != want {
		t.Errorf("weighted tf = %v, want %v", m.WeightedTF, want)
	}
	if m.Matched != 1 {
		t.Errorf("matched = %d, want 1", m.Matched)
	}
}

func TestSearchAccumulatesDistinctTokens(t *testing.T) {
	ix := New()
	ix.Add(item(1, "red shoes", nil, nil))
	ix.Add(item(2, "blue shoes", nil, nil))
	ix.Add(item(3, "green hat", nil, nil))

	matches := ix.Search([]string{"red", "shoes"})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matching items, got %d", len(matches))
	}
	if m := matches[1]; m.Matched != 2 || m.WeightedTF != 2*WeightTitle {
		t.Errorf("item 1 match = %+v, want both tokens at title weight", m)
	}
	if m := matches[2]; m.Matched != 1 || m.WeightedTF != WeightTitle {
		t.Errorf("item 2 match = %+v, want one token at title weight", m)
	}
}

func TestSearchDeduplicatesQueryTokens(t *testing.T) {
	ix := New()
	ix.Add(item(1, "shoes", nil, nil))

	matches := ix.Search([]string{"shoes", "shoes"})
	if m := matches[1]; m.Matched != 1 || m.WeightedTF != WeightTitle {
		t.Errorf("repeated token counted twice: %+v", m)
	}
}

func TestRemoveClearsPostings(t *testing.T) {
	ix := New()
	ix.Add(item(1, "red shoes", nil, nil))
	ix.Add(item(2, "blue shoes", nil, nil))

	ix.Remove(1)

	matches := ix.Search([]string{"red"})
	if len(matches) != 0 {
		t.Errorf("expected no matches for removed item's unique token, got %v", matches)
	}
	matches = ix.Search([]string{"shoes"})
	if _, ok := matches[1]; ok {
		t.Error("removed item still present in shared posting list")
	}
	if _, ok := matches[2]; !ok {
		t.Error("remaining item lost from shared posting list")
	}
}

func TestTermsCount(t *testing.T) {
	ix := New()
	ix.Add(item(1, "red shoes", nil, nil))
	if got := ix.Terms(); got != 2 {
		t.Errorf("Terms = %d, want 2", got)
	}
	ix.Remove(1)
	if got := ix.Terms(); got != 0 {
		t.Errorf("Terms after remove = %d, want 0", got)
	}
}
