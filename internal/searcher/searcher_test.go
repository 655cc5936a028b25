package searcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }

func testRequest() *Request {
	return &Request{
		Sort:  SortRelevance,
		Order: OrderDesc,
		Page:  1,
		Size:  20,
	}
}

// shoeEngine indexes the small catalog used across the pipeline tests.
func shoeEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e := indexer.New()
	items := []*catalog.Item{
		{ID: 1, Title: "Red Shoes", Category: strPtr("Clothing"), Price: f64Ptr(50), Popularity: 5},
		{ID: 2, Title: "Blue Shoes", Category: strPtr("Clothing"), Price: f64Ptr(30), Popularity: 10},
		{ID: 3, Title: "Green Hat", Category: strPtr("Clothing"), Price: f64Ptr(20), Popularity: 3},
	}
	for _, it := range items {
		if err := e.Put(it); err != nil {
			t.Fatalf("Put %d: %v", it.ID, err)
		}
	}
	return e
}

func resultIDs(r *Result) []int64 {
	ids := make([]int64, len(r.Items))
	for i, si := range r.Items {
		ids[i] = si.Item.ID
	}
	return ids
}

func TestSearchFilterSortPaginateFacet(t *testing.T) {
	s := New(shoeEngine(t))

	req := testRequest()
	req.Query = "shoes"
	req.Category = "Clothing"
	req.Sort = SortPrice
	req.Order = OrderAsc

	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
	ids := resultIDs(res)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
		t.Errorf("ids = %v, want [2 1] (price ascending)", ids)
	}
	if got := res.Facets["Clothing"]; got != 2 {
		t.Errorf("facet Clothing = %d, want 2", got)
	}
	if len(res.Facets) != 1 {
		t.Errorf("facets = %v, want only Clothing", res.Facets)
	}
}

func TestSearchRelevanceOrdering(t *testing.T) {
	e := indexer.New()
	items := []*catalog.Item{
		// full phrase in title
		{ID: 1, Title: "red shoes sale", Popularity: 0},
		// one of two tokens
		{ID: 2, Title: "red hat", Popularity: 0},
		// both tokens but not as a phrase
		{ID: 3, Title: "shoes in red color", Popularity: 0},
	}
	for _, it := range items {
		if err := e.Put(it); err != nil {
			t.Fatal(err)
		}
	}
	s := New(e)

	req := testRequest()
	req.Query = "red shoes"
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	ids := resultIDs(res)
	if len(ids) != 3 {
		t.Fatalf("expected 3 results, got %v", ids)
	}
	if ids[0] != 1 {
		t.Errorf("phrase match not first: %v", ids)
	}
	if ids[1] != 3 {
		t.Errorf("full coverage not ahead of partial match: %v", ids)
	}
	if ids[2] != 2 {
		t.Errorf("partial match not last: %v", ids)
	}
	for i := 1; i < len(res.Items); i++ {
		if res.Items[i].Score > res.Items[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, res.Items[i].Score, res.Items[i-1].Score)
		}
	}
}

func TestSearchPopularityBreaksNearTies(t *testing.T) {
	e := indexer.New()
	if err := e.Put(&catalog.Item{ID: 1, Title: "coffee", Popularity: 1}); err != nil {
		t.Fatal(err)
	}
	if err := e.Put(&catalog.Item{ID: 2, Title: "coffee", Popularity: 500}); err != nil {
		t.Fatal(err)
	}
	s := New(e)

	req := testRequest()
	req.Query = "coffee"
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if ids := resultIDs(res); ids[0] != 2 {
		t.Errorf("higher popularity not first among equal text matches: %v", ids)
	}
}

func TestSearchDeterministicTies(t *testing.T) {
	e := indexer.New()
	for i := int64(1); i <= 5; i++ {
		if err := e.Put(&catalog.Item{ID: i, Title: "identical item", Popularity: 7, Price: f64Ptr(10)}); err != nil {
			t.Fatal(err)
		}
	}
	s := New(e)

	req := testRequest()
	req.Query = "identical"
	var first []int64
	for run := 0; run < 5; run++ {
		res, err := s.Search(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		ids := resultIDs(res)
		for i := 1; i < len(ids); i++ {
			if ids[i] <= ids[i-1] {
				t.Fatalf("tie order not ascending by id: %v", ids)
			}
		}
		if first == nil {
			first = ids
			continue
		}
		for i := range ids {
			if ids[i] != first[i] {
				t.Fatalf("order changed across identical requests: %v vs %v", ids, first)
			}
		}
	}
}

func TestSearchPagination(t *testing.T) {
	e := indexer.New()
	const n = 25
	for i := int64(1); i <= n; i++ {
		if err := e.Put(&catalog.Item{ID: i, Title: fmt.Sprintf("widget %d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	s := New(e)

	seen := make(map[int64]int)
	page := 1
	for {
		req := testRequest()
		req.Query = "widget"
		req.Page = page
		req.Size = 10
		res, err := s.Search(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Total != n {
			t.Fatalf("total = %d, want %d", res.Total, n)
		}
		if res.TotalPages != 3 {
			t.Fatalf("total_pages = %d, want 3", res.TotalPages)
		}
		if len(res.Items) == 0 {
			break
		}
		for _, si := range res.Items {
			seen[si.Item.ID]++
		}
		page++
	}

	if len(seen) != n {
		t.Errorf("walked pages cover %d distinct items, want %d", len(seen), n)
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("item %d appeared %d times across pages", id, count)
		}
	}
}

func TestSearchPageBeyondLast(t *testing.T) {
	s := New(shoeEngine(t))

	req := testRequest()
	req.Query = "shoes"
	req.Page = 99
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 0 {
		t.Errorf("expected empty page, got %d items", len(res.Items))
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
}

func TestSearchFilterOnly(t *testing.T) {
	s := New(shoeEngine(t))

	req := testRequest()
	req.Category = "Clothing"
	req.MaxPrice = f64Ptr(30)
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2 (Blue Shoes and Green Hat)", res.Total)
	}
	for _, si := range res.Items {
		if si.Score != 0 {
			t.Errorf("filter-only search produced nonzero score for %d", si.Item.ID)
		}
	}
}

func TestSearchPriceFilterExcludesUnpriced(t *testing.T) {
	e := indexer.New()
	if err := e.Put(&catalog.Item{ID: 1, Title: "priced shoes", Price: f64Ptr(40)}); err != nil {
		t.Fatal(err)
	}
	if err := e.Put(&catalog.Item{ID: 2, Title: "unpriced shoes"}); err != nil {
		t.Fatal(err)
	}
	s := New(e)

	req := testRequest()
	req.Query = "shoes"
	req.MinPrice = f64Ptr(10)
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if ids := resultIDs(res); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("nil-price item not excluded by price filter: %v", ids)
	}
}

func TestSearchSortByDate(t *testing.T) {
	e := indexer.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 3; i++ {
		it := &catalog.Item{ID: i, Title: "dated item", CreatedAt: base.AddDate(0, 0, int(i)), UpdatedAt: base}
		if err := e.Put(it); err != nil {
			t.Fatal(err)
		}
	}
	s := New(e)

	req := testRequest()
	req.Query = "dated"
	req.Sort = SortDate
	req.Order = OrderDesc
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	ids := resultIDs(res)
	if ids[0] != 3 || ids[2] != 1 {
		t.Errorf("date desc order = %v, want [3 2 1]", ids)
	}
}

func TestSearchNoMatches(t *testing.T) {
	s := New(shoeEngine(t))

	req := testRequest()
	req.Query = "nonexistent"
	res, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || len(res.Items) != 0 || res.TotalPages != 0 {
		t.Errorf("empty search not empty: %+v", res)
	}
	if res.Facets == nil {
		t.Error("facets missing on empty result")
	}
}

func TestSearchCancelledContext(t *testing.T) {
	s := New(shoeEngine(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := testRequest()
	req.Query = "shoes"
	if _, err := s.Search(ctx, req); err == nil {
		t.Error("expected error on cancelled context")
	}
}
