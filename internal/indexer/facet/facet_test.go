package facet

import (
	"reflect"
	"testing"

	"github.com/xxng1/searchpilot/internal/catalog"
)

func strPtr(s string) *string { return &s }

func TestCategoryCounts(t *testing.T) {
	items := []*catalog.Item{
		{ID: 1, Title: "a", Category: strPtr("Clothing")},
		{ID: 2, Title: "b", Category: strPtr("Clothing")},
		{ID: 3, Title: "c", Category: strPtr("Books")},
		{ID: 4, Title: "d", Category: nil},
		{ID: 5, Title: "e", Category: strPtr("")},
	}

	got := CategoryCounts(items)
	want := map[string]int{"Clothing": 2, "Books": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CategoryCounts = %v, want %v", got, want)
	}
}

func TestCategoryCountsEmpty(t *testing.T) {
	got := CategoryCounts(nil)
	if got == nil {
		t.Fatal("expected non-nil empty map")
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
