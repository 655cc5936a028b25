package searcher

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xxng1/searchpilot/pkg/config"
	"github.com/xxng1/searchpilot/pkg/errors"
)

// Sort fields accepted by the search endpoint.
const (
	SortRelevance  = "relevance"
	SortDate       = "date"
	SortPopularity = "popularity"
	SortPrice      = "price"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Request is a parsed, validated search request.
type Request struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Order    string
	Page     int
	Size     int
}

// ParseRequest extracts and validates search parameters from the query
// string. Malformed values are rejected with a ValidationError naming the
// offending field; engine state is never touched on failure.
func ParseRequest(values url.Values, cfg config.SearchConfig) (*Request, error) {
	req := &Request{
		Query: strings.TrimSpace(values.Get("q")),
		Sort:  SortRelevance,
		Order: OrderDesc,
		Page:  1,
		Size:  cfg.DefaultPageSize,
	}

	// Length is in characters, not bytes: multi-byte scripts must get the
	// same budget as ASCII.
	if utf8.RuneCountInString(req.Query) > cfg.MaxQueryLength {
		return nil, errors.Validationf("q", "query must be at most %d characters", cfg.MaxQueryLength)
	}
	req.Category = strings.TrimSpace(values.Get("category"))

	var err error
	if req.MinPrice, err = parsePrice(values.Get("min_price"), "min_price"); err != nil {
		return nil, err
	}
	if req.MaxPrice, err = parsePrice(values.Get("max_price"), "max_price"); err != nil {
		return nil, err
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		return nil, errors.Validationf("min_price", "min_price must not exceed max_price")
	}

	if v := values.Get("sort"); v != "" {
		switch v {
		case SortRelevance, SortDate, SortPopularity, SortPrice:
			req.Sort = v
		default:
			return nil, errors.Validationf("sort", "sort must be one of relevance, date, popularity, price")
		}
	}
	if v := values.Get("order"); v != "" {
		switch v {
		case OrderAsc, OrderDesc:
			req.Order = v
		default:
			return nil, errors.Validationf("order", "order must be asc or desc")
		}
	}

	if v := values.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return nil, errors.Validationf("page", "page must be a positive integer")
		}
		req.Page = page
	}
	if v := values.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > cfg.MaxPageSize {
			return nil, errors.Validationf("size", "size must be between 1 and %d", cfg.MaxPageSize)
		}
		req.Size = size
	}

	return req, nil
}

func parsePrice(raw, field string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, errors.Validationf(field, "%s must be a non-negative number", field)
	}
	return &v, nil
}

// CacheKey returns a canonical string identifying the request for response
// caching.
func (r *Request) CacheKey() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(r.Query))
	b.WriteString("|cat=")
	b.WriteString(r.Category)
	b.WriteString("|min=")
	if r.MinPrice != nil {
		b.WriteString(strconv.FormatFloat(*r.MinPrice, 'f', -1, 64))
	}
	b.WriteString("|max=")
	if r.MaxPrice != nil {
		b.WriteString(strconv.FormatFloat(*r.MaxPrice, 'f', -1, 64))
	}
	b.WriteString("|sort=")
	b.WriteString(r.Sort)
	b.WriteString("|order=")
	b.WriteString(r.Order)
	b.WriteString("|page=")
	b.WriteString(strconv.Itoa(r.Page))
	b.WriteString("|size=")
	b.WriteString(strconv.Itoa(r.Size))
	return b.String()
}
