// Package query defines the backend-agnostic compiled query: exact-match
// clauses, numeric range filters, at most one sort directive, and a result
// cap. Built once per search call and consumed exactly once by a backend.
package query

import "github.com/lifecare-ai/prodsearch/internal/domain/spec"

// Match is an exact-match clause on an indexed field.
type Match struct {
	Field string
	Value string
}

// RangeFilter bounds a numeric field by a parsed range hint.
type RangeFilter struct {
	Field string
	Hint  spec.RangeHint
}

// Sort orders results by one field. A query sorts by exactly one field;
// the compiler keeps only the last directive it derives.
type Sort struct {
	Field     string
	Direction spec.SortDirection
}

// Query is the compiled, backend-agnostic search request.
type Query struct {
	matches []Match
	ranges  []RangeFilter
	sort    *Sort
	limit   int
}

// New assembles a compiled query.
func New(matches []Match, ranges []RangeFilter, sort *Sort, limit int) Query {
	return Query{matches: matches, ranges: ranges, sort: sort, limit: limit}
}

// Matches returns the exact-match clauses.
func (q Query) Matches() []Match { return q.matches }

// Ranges returns the numeric range filters.
func (q Query) Ranges() []RangeFilter { return q.ranges }

// Sort returns the sort directive, or nil when unordered.
func (q Query) Sort() *Sort { return q.sort }

// Limit returns the result cap.
func (q Query) Limit() int { return q.limit }

// MatchValue returns the value of the first match clause on field.
func (q Query) MatchValue(field string) (string, bool) {
	for _, m := range q.matches {
		if m.Field == field {
			return m.Value, true
		}
	}
	return "", false
}
