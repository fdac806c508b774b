package feed

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Query is an AND-combination of case-sensitive keywords.
type Query []string

// FilterSet is an OR-combination of queries. A nil *FilterSet means no
// filtering; a non-nil one always holds at least one query.
type FilterSet struct {
	queries []Query
}

// ParseFilterSet turns filter strings into a FilterSet, splitting each on
// whitespace. It returns nil when no filter strings are given. A blank
// filter string becomes an empty query, which matches every entry.
func ParseFilterSet(filters []string) *FilterSet {
	if len(filters) == 0 {
		return nil
	}

	queries := make([]Query, 0, len(filters))
	for _, filter := range filters {
		queries = append(queries, Query(strings.Fields(norm.NFC.String(filter))))
	}
	return &FilterSet{queries: queries}
}

func (fs *FilterSet) Queries() []Query {
	if fs == nil {
		return nil
	}
	return fs.queries
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run keeps the entries that pass filters, preserving order.
func (f *Filterer) Run(entries []Entry, filters *FilterSet) []Entry {
	if filters == nil {
		return entries
	}

	kept := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if f.Passes(entry, filters) {
			kept = append(kept, entry)
		}
	}
	return kept
}

func (f *Filterer) Passes(entry Entry, filters *FilterSet) bool {
	if filters == nil {
		return true
	}
	for _, query := range filters.queries {
		if f.matchesQuery(entry, query) {
			return true
		}
	}
	return false
}

func (f *Filterer) matchesQuery(entry Entry, query Query) bool {
	for _, keyword := range query {
		if !strings.Contains(entry.Title, keyword) && !strings.Contains(entry.Description, keyword) {
			return false
		}
	}
	return true
}
