// Package result holds the ranked hit type shared by all retrieval backends.
package result

import "github.com/lifecare-ai/prodsearch/internal/domain/catalog"

// Ranked is a single ranked hit. Score is nil when the backend ranks
// without a comparable score (e.g. a pure sort-ordered lexical query).
type Ranked struct {
	product catalog.Product
	rank    int
	score   *float64
}

// New creates a ranked hit. Rank is zero-based backend order.
func New(product catalog.Product, rank int, score *float64) Ranked {
	return Ranked{product: product, rank: rank, score: score}
}

// WithScore creates a ranked hit carrying a fusion or similarity score.
func WithScore(product catalog.Product, rank int, score float64) Ranked {
	return Ranked{product: product, rank: rank, score: &score}
}

// Product returns the catalog row.
func (r Ranked) Product() catalog.Product { return r.product }

// Rank returns the zero-based position assigned by the backend.
func (r Ranked) Rank() int { return r.rank }

// Score returns the backend score, or nil when none applies.
func (r Ranked) Score() *float64 { return r.score }
