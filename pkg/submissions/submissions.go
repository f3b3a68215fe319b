// Package submissions shapes the portal's submission listing for display.
// The endpoint returns the full table in one response; filtering, sorting and
// pagination all happen here, on the client side.
package submissions

import (
	"sort"
	"strconv"
	"strings"

	"github.com/devotel/go-insurance-forms/pkg/model"
)

// Row is one submitted application keyed by column name.
type Row map[string]any

// TableResponse is the wire shape of the submissions listing endpoint.
type TableResponse struct {
	Columns []string `json:"columns"`
	Data    []Row    `json:"data"`
}

// ColumnDefinition describes how a column participates in table controls.
type ColumnDefinition struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Sortable   bool   `json:"sortable"`
	Filterable bool   `json:"filterable"`
}

// Columns derives control metadata from the response's column list. Every
// column sorts; every column except the identifier filters.
func Columns(resp TableResponse) []ColumnDefinition {
	out := make([]ColumnDefinition, 0, len(resp.Columns))
	for _, key := range resp.Columns {
		out = append(out, ColumnDefinition{
			Key:        key,
			Label:      humanize(key),
			Sortable:   true,
			Filterable: key != "id",
		})
	}
	return out
}

func humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// SortDirection orders a sorted column.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// DefaultPageSize applies when a query leaves PageSize unset.
const DefaultPageSize = 10

// Query is one table view request. Filters match per column; Search matches
// across all filterable columns. Both are case-insensitive substring matches.
type Query struct {
	Filters  map[string]string
	Search   string
	SortBy   string
	SortDir  SortDirection
	Page     int
	PageSize int
}

// Page is one materialized table view.
type Page struct {
	Rows       []Row
	TotalRows  int
	TotalPages int
	Page       int
	PageSize   int
}

// Apply runs the query against the full response: filter, then sort, then
// paginate. The response itself is never mutated. An out-of-range page
// returns the nearest valid one.
func Apply(resp TableResponse, q Query) Page {
	defs := Columns(resp)
	filterable := make(map[string]bool, len(defs))
	for _, def := range defs {
		filterable[def.Key] = def.Filterable
	}

	rows := make([]Row, 0, len(resp.Data))
	for _, row := range resp.Data {
		if matches(row, q, filterable) {
			rows = append(rows, row)
		}
	}

	if q.SortBy != "" {
		sortRows(rows, q.SortBy, q.SortDir)
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (len(rows) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}

	return Page{
		Rows:       rows[start:end],
		TotalRows:  len(rows),
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}
}

func matches(row Row, q Query, filterable map[string]bool) bool {
	for key, needle := range q.Filters {
		if needle == "" || !filterable[key] {
			continue
		}
		if !containsFold(cellString(row[key]), needle) {
			return false
		}
	}
	if q.Search != "" {
		found := false
		for key, ok := range filterable {
			if ok && containsFold(cellString(row[key]), q.Search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// sortRows orders rows by one column. Cells that both parse as numbers
// compare numerically, everything else compares as folded strings. The sort
// is stable so equal cells keep their server order.
func sortRows(rows []Row, key string, dir SortDirection) {
	sort.SliceStable(rows, func(i, j int) bool {
		if dir == SortDesc {
			return cellLess(rows[j][key], rows[i][key])
		}
		return cellLess(rows[i][key], rows[j][key])
	})
}

func cellLess(a, b any) bool {
	na, aok := model.AsNumber(a)
	nb, bok := model.AsNumber(b)
	if aok && bok {
		return na < nb
	}
	return strings.ToLower(cellString(a)) < strings.ToLower(cellString(b))
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, cellString(e))
		}
		return strings.Join(parts, ", ")
	case bool:
		return strconv.FormatBool(t)
	default:
		if n, ok := model.AsNumber(v); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return ""
	}
}
