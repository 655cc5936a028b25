package prefix

import "testing"

func collectIDs(t *Tree, prefix string) map[int64]struct{} {
	return t.Collect(prefix)
}

func TestCollectMatchesTokenPrefixes(t *testing.T) {
	tree := New()
	tree.Add(1, "Red Shoes")
	tree.Add(2, "Blue Shoes")
	tree.Add(3, "Green Hat")

	ids := collectIDs(tree, "sh")
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids for prefix \"sh\", got %d", len(ids))
	}
	if _, ok := ids[3]; ok {
		t.Error("non-matching item returned")
	}
}

func TestCollectIsCaseInsensitive(t *testing.T) {
	tree := New()
	tree.Add(1, "Wireless Mouse")

	for _, p := range []string{"WIRE", "Wire", "wire"} {
		if ids := collectIDs(tree, p); len(ids) != 1 {
			t.Errorf("prefix %q: expected 1 id, got %d", p, len(ids))
		}
	}
}

func TestCollectKoreanPrefix(t *testing.T) {
	tree := New()
	tree.Add(1, "스마트폰 케이스")
	tree.Add(2, "스마트워치")

	if ids := collectIDs(tree, "스마"); len(ids) != 2 {
		t.Errorf("expected 2 ids for prefix 스마, got %d", len(ids))
	}
	if ids := collectIDs(tree, "케이"); len(ids) != 1 {
		t.Errorf("expected 1 id for prefix 케이, got %d", len(ids))
	}
}

func TestCollectNoMatch(t *testing.T) {
	tree := New()
	tree.Add(1, "shoes")

	if ids := collectIDs(tree, "xyz"); ids != nil {
		t.Errorf("expected nil for unmatched prefix, got %v", ids)
	}
}

func TestRemove(t *testing.T) {
	tree := New()
	tree.Add(1, "red shoes")
	tree.Add(2, "blue shoes")

	tree.Remove(1, "red shoes")

	ids := collectIDs(tree, "shoe")
	if len(ids) != 1 {
		t.Fatalf("expected 1 id after remove, got %d", len(ids))
	}
	if _, ok := ids[2]; !ok {
		t.Error("surviving item missing after unrelated remove")
	}
	if ids := collectIDs(tree, "red"); ids != nil {
		t.Errorf("removed item's unique token still collectable: %v", ids)
	}
}

func TestRemoveUnknownTitleIsNoop(t *testing.T) {
	tree := New()
	tree.Add(1, "shoes")
	tree.Remove(2, "never indexed title")

	if ids := collectIDs(tree, "shoe"); len(ids) != 1 {
		t.Errorf("unrelated remove disturbed the tree: %v", ids)
	}
}
