// Package shared holds listing helpers common to master data repositories.
package shared

import "strings"

// ListFilters represents standard list filters.
type ListFilters struct {
	Limit   int
	Offset  int
	Search  string
	SortBy  string
	SortDir string
}

// SortClause builds a safe ORDER BY clause from an allow-list of columns.
func SortClause(filters ListFilters, allowed map[string]string, fallback string) string {
	col, ok := allowed[strings.ToLower(filters.SortBy)]
	if !ok {
		return fallback
	}
	dir := "ASC"
	if strings.EqualFold(filters.SortDir, "desc") {
		dir = "DESC"
	}
	return col + " " + dir + ", id ASC"
}

// SearchPattern returns an ILIKE pattern or "" when no search is set.
func SearchPattern(search string) string {
	search = strings.TrimSpace(search)
	if search == "" {
		return ""
	}
	return "%" + search + "%"
}
