// Package server exposes the search service HTTP API and assembles responses
// matching the client contract.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer"
	"github.com/xxng1/searchpilot/internal/searcher"
	"github.com/xxng1/searchpilot/internal/searcher/cache"
	"github.com/xxng1/searchpilot/internal/stats"
	"github.com/xxng1/searchpilot/pkg/config"
	"github.com/xxng1/searchpilot/pkg/errors"
	"github.com/xxng1/searchpilot/pkg/health"
	"github.com/xxng1/searchpilot/pkg/logger"
	"github.com/xxng1/searchpilot/pkg/metrics"
)

const (
	serviceName    = "SearchPilot"
	serviceVersion = "1.0.0"

	maxAutocompleteLimit  = 20
	minAutocompletePrefix = 2
)

// ItemWriter persists indexed items; satisfied by catalog.Repository.
type ItemWriter interface {
	Save(ctx context.Context, item *catalog.Item) error
}

// Handler owns no data itself; it is a stateless façade over the engine,
// searcher, stats collector, and optional cache and persistence.
type Handler struct {
	engine    *indexer.Engine
	searcher  *searcher.Searcher
	cache     *cache.ResultCache
	collector *stats.Collector
	writer    ItemWriter
	checker   *health.Checker
	metrics   *metrics.Metrics
	cfg       config.SearchConfig
	logger    *slog.Logger
}

// New creates a Handler. cache, writer, and metrics may be nil.
func New(
	engine *indexer.Engine,
	srch *searcher.Searcher,
	resultCache *cache.ResultCache,
	collector *stats.Collector,
	writer ItemWriter,
	checker *health.Checker,
	m *metrics.Metrics,
	cfg config.SearchConfig,
) *Handler {
	return &Handler{
		engine:    engine,
		searcher:  srch,
		cache:     resultCache,
		collector: collector,
		writer:    writer,
		checker:   checker,
		metrics:   m,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Routes registers all endpoints on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/autocomplete", h.Autocomplete)
	mux.HandleFunc("GET /api/suggestions", h.Suggestions)
	mux.HandleFunc("GET /api/search/stats", h.Stats)
	mux.HandleFunc("POST /api/items", h.PutItem)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", h.checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", h.checker.ReadyHandler())
	mux.HandleFunc("GET /{$}", h.Root)
	return mux
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := searcher.ParseRequest(r.URL.Query(), h.cfg)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}

	var result *searcher.Result
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, func() (*searcher.Result, error) {
			return h.searcher.Search(ctx, req)
		})
	} else {
		result, err = h.searcher.Search(ctx, req)
	}
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			h.writeError(w, http.StatusGatewayTimeout, "search timed out")
			return
		}
		log.Error("search execution failed", "query", req.Query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	elapsedMs := float64(time.Since(start).Microseconds()) / 1000

	items := make([]ResponseItem, 0, len(result.Items))
	for _, si := range result.Items {
		items = append(items, toResponseItem(si.Item, searcher.Highlight(si.Item.Title, req.Query)))
	}

	h.collector.Record(req.Query, elapsedMs)
	h.observeSearch(result, cacheHit, elapsedMs)

	log.Info("search completed",
		"query", req.Query,
		"total", result.Total,
		"returned", len(items),
		"cache_hit", cacheHit,
		"latency_ms", elapsedMs,
	)

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:          req.Query,
		Total:          result.Total,
		Page:           req.Page,
		Size:           req.Size,
		TotalPages:     result.TotalPages,
		Items:          items,
		ResponseTimeMs: round2(elapsedMs),
		Facets:         &Facets{Categories: result.Facets},
	})
}

// Autocomplete handles GET /api/autocomplete. Prefixes shorter than two
// runes are answered gracefully with an empty list; the web client gates
// them away, but direct callers must not get an error.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := r.URL.Query().Get("q")
	limit := h.cfg.AutocompleteLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxAutocompleteLimit {
			h.writeRequestError(w, errors.Validationf("limit", "limit must be between 1 and %d", maxAutocompleteLimit))
			return
		}
		limit = parsed
	}

	suggestions := []string{}
	if utf8.RuneCountInString(q) >= minAutocompletePrefix {
		suggestions = h.engine.Suggest(q, limit)
	}

	elapsedMs := float64(time.Since(start).Microseconds()) / 1000
	if h.metrics != nil {
		h.metrics.AutocompleteLatency.Observe(elapsedMs / 1000)
	}

	h.writeJSON(w, http.StatusOK, AutocompleteResponse{
		Suggestions:    suggestions,
		ResponseTimeMs: round2(elapsedMs),
	})
}

// Suggestions handles GET /api/suggestions.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	n := h.cfg.SuggestionsLimit
	h.writeJSON(w, http.StatusOK, SuggestionsResponse{
		Popular: h.collector.Popular(n),
		Recent:  h.collector.Recent(n),
	})
}

// Stats handles GET /api/search/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	snap := h.collector.Snapshot()
	h.writeJSON(w, http.StatusOK, StatsResponse{
		TotalItems:        h.engine.Len(),
		TotalSearches:     snap.TotalSearches,
		AvgResponseTimeMs: snap.AvgResponseTimeMs,
		PopularQueries:    snap.PopularQueries,
	})
}

// PutItem handles POST /api/items: it indexes (or replaces) an item so that
// the very next query observes it, mirrors the write to persistence when
// configured, and drops cached search responses.
func (h *Handler) PutItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var item catalog.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid item payload")
		return
	}
	if err := h.engine.Put(&item); err != nil {
		h.writeRequestError(w, err)
		return
	}

	if h.writer != nil {
		if err := h.writer.Save(ctx, &item); err != nil {
			// The in-memory engine stays authoritative for queries.
			log.Warn("item write-through failed", "id", item.ID, "error", err)
		}
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Warn("cache invalidation failed", "error", err)
		}
	}
	if h.metrics != nil {
		h.metrics.ItemsIndexedTotal.Inc()
		h.metrics.IndexedItems.Set(float64(h.engine.Len()))
	}

	log.Info("item indexed", "id", item.ID)
	h.writeJSON(w, http.StatusCreated, IndexResponse{ID: item.ID, Status: "indexed"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Run(r.Context())
	status := "healthy"
	if report.Status != health.StatusUp {
		status = "degraded"
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"name":    serviceName,
		"version": serviceVersion,
		"status":  "running",
	})
}

func (h *Handler) observeSearch(result *searcher.Result, cacheHit bool, elapsedMs float64) {
	if h.metrics == nil {
		return
	}
	resultType := "hit"
	if result.Total == 0 {
		resultType = "zero_result"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsedMs / 1000)
	h.metrics.SearchResultsCount.Observe(float64(len(result.Items)))
}

func (h *Handler) writeRequestError(w http.ResponseWriter, err error) {
	var vErr *errors.ValidationError
	if stderrors.As(err, &vErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": vErr.Message,
			"field": vErr.Field,
		})
		return
	}
	h.writeError(w, errors.HTTPStatusCode(err), err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
