package listutil

import (
	"net/url"
	"strings"
)

// FilterParams carries search and filter parameters.
type FilterParams struct {
	Search  string            // free-text search query
	Filters map[string]string // exact-match filters (e.g. level=gold)
}

// ParseFilterParams extracts search and named filters from URL query values.
// PRE: filterKeys lists the allowed filter parameter names
// POST: returns FilterParams with only recognised keys; values are trimmed
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	fp := FilterParams{
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
	}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			fp.Filters[key] = v
		}
	}
	return fp
}

// Active reports whether any search or filter is set.
func (fp FilterParams) Active() bool {
	return fp.Search != "" || len(fp.Filters) > 0
}

// Matches reports whether value passes the named filter. An unset filter matches everything.
// PRE: none
// POST: Returns true if the filter is unset or equals value
func (fp FilterParams) Matches(key, value string) bool {
	want, ok := fp.Filters[key]
	return !ok || want == value
}

// MatchesSearch reports whether any field contains the search query, ignoring case.
// PRE: none
// POST: Returns true for an empty query
func (fp FilterParams) MatchesSearch(fields ...string) bool {
	if fp.Search == "" {
		return true
	}
	needle := strings.ToLower(fp.Search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
