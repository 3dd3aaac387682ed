// Package compile turns a normalized specification into a backend-agnostic
// compiled query, enforcing the catalog group vocabulary.
package compile

import (
	"fmt"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/query"
	"github.com/lifecare-ai/prodsearch/internal/domain/spec"
)

// DefaultTopK caps a compiled query when no page size is configured.
const DefaultTopK = 3

// numericFields maps the specification fields onto index columns in the
// fixed order the compiler processes them. When several fields carry a sort
// hint, the last one processed wins.
var numericFields = []struct {
	column string
	value  func(spec.Specification) spec.Field
}{
	{catalog.ColPrice, spec.Specification.Price},
	{catalog.ColPower, spec.Specification.Power},
	{catalog.ColWeight, spec.Specification.Weight},
	{catalog.ColVolume, spec.Specification.Volume},
}

// Compiler builds compiled queries against a fixed group vocabulary.
type Compiler struct {
	vocab map[string]struct{}
	topK  int
}

// New creates a compiler over the catalog-derived group vocabulary.
func New(groups []string, topK int) *Compiler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vocab := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		vocab[g] = struct{}{}
	}
	return &Compiler{vocab: vocab, topK: topK}
}

// Compile builds the backend-agnostic query for a specification.
//
// The group must be a member of the vocabulary; otherwise Compile fails
// with domain.ErrUnknownGroup and the caller returns an empty result set
// without contacting a backend. When all four numeric fields are empty the
// query carries no range filters and falls back to best-seller ordering.
func (c *Compiler) Compile(s spec.Specification) (query.Query, error) {
	group := s.Group().Value()
	if _, ok := c.vocab[group]; !ok {
		return query.Query{}, fmt.Errorf("%w: %q", domain.ErrUnknownGroup, group)
	}

	matches := []query.Match{{Field: catalog.ColGroupProduct, Value: group}}
	if s.Object().Specified() {
		matches = append(matches, query.Match{Field: catalog.ColGroupName, Value: s.Object().Value()})
	}

	var (
		ranges []query.RangeFilter
		sort   *query.Sort
	)
	for _, nf := range numericFields {
		field := nf.value(s)
		if !field.Specified() {
			continue
		}
		hint := spec.ParseRange(field.Value())
		ranges = append(ranges, query.RangeFilter{Field: nf.column, Hint: hint})
		if hint.Sort() != spec.SortNone {
			sort = &query.Sort{Field: nf.column, Direction: hint.Sort()}
		}
	}

	if s.NumericUnspecified() {
		sort = &query.Sort{Field: catalog.ColSoldQuantity, Direction: spec.SortDescending}
	}

	return query.New(matches, ranges, sort, c.topK), nil
}
