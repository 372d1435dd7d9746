package pagination

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JaimeStill/casestudio/pkg/query"
)

// PageRequest selects one page of a listing, with optional free-text
// search and sort order. It decodes from query strings and from search
// request bodies.
type PageRequest struct {
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Search   *string   `json:"search,omitempty"`
	Sort     SortOrder `json:"sort,omitempty"`
}

// SortOrder decodes from the query-string form ("name,-created_at") or from
// an array of {"field", "descending"} objects.
type SortOrder []query.SortField

func (s *SortOrder) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = query.ParseSortFields(text)
		return nil
	}

	var terms []struct {
		Field      string `json:"field"`
		Descending bool   `json:"descending"`
	}
	if err := json.Unmarshal(data, &terms); err != nil {
		return fmt.Errorf("sort must be a string or an array of terms: %w", err)
	}

	*s = make(SortOrder, len(terms))
	for i, t := range terms {
		(*s)[i] = query.SortField{Field: t.Field, Descending: t.Descending}
	}
	return nil
}

// Normalize clamps Page to at least 1 and PageSize into [1, cfg.MaxPageSize],
// substituting cfg.DefaultPageSize when unset.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	r.PageSize = min(r.PageSize, cfg.MaxPageSize)
}

// Offset is the number of rows preceding the requested page.
func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageRequestFromQuery reads page, page_size, search, and sort from values.
// Unparseable numbers fall back to defaults and a blank search is ignored.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	req := PageRequest{
		Page:     atoi(values.Get("page")),
		PageSize: atoi(values.Get("page_size")),
		Sort:     query.ParseSortFields(values.Get("sort")),
	}

	if s := strings.TrimSpace(values.Get("search")); s != "" {
		req.Search = &s
	}

	req.Normalize(cfg)
	return req
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// PageResult is one page of T with the totals a client needs to navigate.
type PageResult[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPageResult wraps data with its paging metadata. An empty listing still
// reports one page, and nil data encodes as an empty array.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	pages := 1
	if pageSize > 0 && total > 0 {
		pages = (total + pageSize - 1) / pageSize
	}

	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}
