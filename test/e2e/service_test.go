// Package e2e contains end-to-end tests that exercise a running search
// service over HTTP, optionally backed by real Redis, Kafka, and PostgreSQL.
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
//
// The target service is taken from E2E_SERVICE_URL (default
// http://localhost:8000). Tests skip when the service is unreachable.
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

func serviceURL() string {
	if v := os.Getenv("E2E_SERVICE_URL"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func skipIfDown(t *testing.T, client *http.Client) {
	t.Helper()
	resp, err := client.Get(serviceURL() + "/health")
	if err != nil {
		t.Skipf("service unavailable: %v", err)
	}
	resp.Body.Close()
}

// TestServiceHealth verifies the health endpoints respond.
func TestServiceHealth(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	skipIfDown(t, client)

	endpoints := []string{"/health", "/health/live", "/health/ready", "/"}
	for _, ep := range endpoints {
		t.Run(ep, func(t *testing.T) {
			resp, err := client.Get(serviceURL() + ep)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestIndexAndSearch exercises the item lifecycle: index over HTTP, search
// for it, autocomplete on its title, and confirm stats moved.
func TestIndexAndSearch(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}
	skipIfDown(t, client)

	// 1. Index an item with a unique title token.
	uniqueWord := fmt.Sprintf("e2eitem%d", time.Now().UnixNano())
	id := time.Now().UnixNano() % 1_000_000_000
	payload := fmt.Sprintf(
		`{"id":%d,"title":"%s widget","category":"전자제품","price":9900,"popularity":3}`,
		id, uniqueWord,
	)

	resp, err := client.Post(
		serviceURL()+"/api/items",
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		t.Fatalf("index request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}

	// 2. The very next search must observe the item.
	searchResp, err := client.Get(serviceURL() + "/api/search?q=" + url.QueryEscape(uniqueWord))
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}
	defer searchResp.Body.Close()

	var search struct {
		Total int `json:"total"`
		Items []struct {
			ID        int64   `json:"id"`
			Title     string  `json:"title"`
			Highlight *string `json:"highlight"`
		} `json:"items"`
		Facets struct {
			Categories map[string]int `json:"categories"`
		} `json:"facets"`
	}
	if err := json.NewDecoder(searchResp.Body).Decode(&search); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	if search.Total != 1 || len(search.Items) != 1 {
		t.Fatalf("expected exactly the indexed item, got total=%d", search.Total)
	}
	if search.Items[0].ID != id {
		t.Errorf("item id = %d, want %d", search.Items[0].ID, id)
	}
	if search.Items[0].Highlight == nil || !strings.Contains(*search.Items[0].Highlight, "<mark>") {
		t.Errorf("highlight missing: %v", search.Items[0].Highlight)
	}
	if search.Facets.Categories["전자제품"] < 1 {
		t.Errorf("facets = %v, want at least the indexed category", search.Facets.Categories)
	}

	// 3. Autocomplete on the unique title token.
	acResp, err := client.Get(serviceURL() + "/api/autocomplete?q=" + url.QueryEscape(uniqueWord[:6]))
	if err != nil {
		t.Fatalf("autocomplete request failed: %v", err)
	}
	defer acResp.Body.Close()
	var ac struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(acResp.Body).Decode(&ac); err != nil {
		t.Fatalf("decoding autocomplete response: %v", err)
	}
	found := false
	for _, s := range ac.Suggestions {
		if strings.Contains(s, uniqueWord) {
			found = true
		}
	}
	if !found {
		t.Errorf("autocomplete did not suggest indexed title: %v", ac.Suggestions)
	}

	// 4. Stats must have recorded the search.
	statsResp, err := client.Get(serviceURL() + "/api/search/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer statsResp.Body.Close()
	var stats struct {
		TotalItems    int   `json:"total_items"`
		TotalSearches int64 `json:"total_searches"`
	}
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats response: %v", err)
	}
	if stats.TotalSearches < 1 {
		t.Errorf("total_searches = %d, want at least 1", stats.TotalSearches)
	}
	if stats.TotalItems < 1 {
		t.Errorf("total_items = %d, want at least 1", stats.TotalItems)
	}
}

// TestValidationOverHTTP verifies malformed parameters are rejected with a
// field-naming error body.
func TestValidationOverHTTP(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	skipIfDown(t, client)

	resp, err := client.Get(serviceURL() + "/api/search?q=x&size=10000")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body["field"] != "size" || body["error"] == "" {
		t.Errorf("error body = %v, want field=size with a message", body)
	}
}
