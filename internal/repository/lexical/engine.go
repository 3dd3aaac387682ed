// Package lexical implements the filtered retrieval engine on a bleve
// index: boolean must matches, numeric range filters, and a single sort
// directive compiled from the specification.
package lexical

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/query"
	"github.com/lifecare-ai/prodsearch/internal/domain/result"
	"github.com/lifecare-ai/prodsearch/internal/domain/spec"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

// Engine is the lexical backend over an in-memory bleve index.
type Engine struct {
	index   bleve.Index
	catalog *catalog.Catalog

	mu       sync.RWMutex
	products map[string]catalog.Product
}

// New creates a lexical engine for the given catalog.
func New(cat *catalog.Catalog) (*Engine, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Engine{
		index:    idx,
		catalog:  cat,
		products: make(map[string]catalog.Product),
	}, nil
}

// buildMapping types each column: group fields are keyword-analyzed for
// exact matching, free-text columns use the default analyzer, numeric
// columns get numeric mappings so range queries compare as numbers.
func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	dm := bleve.NewDocumentMapping()

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.Store = false
	kw.IncludeInAll = false

	txt := bleve.NewTextFieldMapping()
	txt.Store = false

	num := bleve.NewNumericFieldMapping()
	num.Store = false
	num.IncludeInAll = false

	for _, field := range []string{catalog.ColGroupName, catalog.ColGroupProduct} {
		dm.AddFieldMappingsAt(field, kw)
	}
	for _, field := range []string{catalog.ColName, catalog.ColSpecifications, catalog.ColShortDesc} {
		dm.AddFieldMappingsAt(field, txt)
	}
	for _, field := range []string{
		catalog.ColPrice, catalog.ColPower, catalog.ColWeight,
		catalog.ColVolume, catalog.ColSoldQuantity,
	} {
		dm.AddFieldMappingsAt(field, num)
	}

	im.DefaultMapping = dm
	return im
}

// EnsureIndexed populates the index from the catalog when empty.
func (e *Engine) EnsureIndexed(ctx context.Context) error {
	count, err := e.index.DocCount()
	if err != nil {
		return fmt.Errorf("doc count: %w", err)
	}
	if count > 0 {
		return nil
	}
	return e.Upsert(ctx, e.catalog.Products())
}

// Upsert indexes catalog rows in one batch. Re-indexing an existing id
// replaces the document, so repeated calls converge.
func (e *Engine) Upsert(_ context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	batch := e.index.NewBatch()
	for _, p := range products {
		if err := batch.Index(p.ID, docFields(p)); err != nil {
			return fmt.Errorf("index %s: %w", p.ID, err)
		}
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("batch index: %w", err)
	}

	e.mu.Lock()
	for _, p := range products {
		e.products[p.ID] = p
	}
	e.mu.Unlock()
	return nil
}

// Query runs one compiled query. Lexical hits carry no score: order comes
// from the sort directive, so Ranked.Score stays nil.
func (e *Engine) Query(ctx context.Context, req retrieve.Request) ([]result.Ranked, error) {
	sreq := buildSearchRequest(req.Compiled)

	res, err := e.index.SearchInContext(ctx, sreq)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ranked := make([]result.Ranked, 0, len(res.Hits))
	for i, hit := range res.Hits {
		p, ok := e.products[hit.ID]
		if !ok {
			continue
		}
		ranked = append(ranked, result.New(p, i, nil))
	}
	return ranked, nil
}

// QueryMulti runs several compiled queries as one batched call, returning
// one ranked list per request in input order.
func (e *Engine) QueryMulti(ctx context.Context, reqs []retrieve.Request) ([][]result.Ranked, error) {
	out := make([][]result.Ranked, len(reqs))
	for i, req := range reqs {
		ranked, err := e.Query(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out[i] = ranked
	}
	return out, nil
}

// Close releases the index.
func (e *Engine) Close() error {
	return e.index.Close()
}

func buildSearchRequest(q query.Query) *bleve.SearchRequest {
	bq := bleve.NewBooleanQuery()
	clauses := 0

	for _, m := range q.Matches() {
		tq := bleve.NewTermQuery(m.Value)
		tq.SetField(m.Field)
		bq.AddMust(tq)
		clauses++
	}

	truthy := true
	for _, r := range q.Ranges() {
		lo, hi := r.Hint.Min(), r.Hint.Max()
		nq := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &truthy, &truthy)
		nq.SetField(r.Field)
		bq.AddMust(nq)
		clauses++
	}

	var sreq *bleve.SearchRequest
	if clauses == 0 {
		sreq = bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), q.Limit(), 0, false)
	} else {
		sreq = bleve.NewSearchRequestOptions(bq, q.Limit(), 0, false)
	}

	if s := q.Sort(); s != nil && s.Direction != spec.SortNone {
		field := s.Field
		if s.Direction == spec.SortDescending {
			field = "-" + field
		}
		sreq.SortBy([]string{field})
	}

	return sreq
}

func docFields(p catalog.Product) map[string]interface{} {
	return map[string]interface{}{
		catalog.ColName:           p.Name,
		catalog.ColGroupName:      p.GroupName,
		catalog.ColGroupProduct:   p.GroupProduct,
		catalog.ColPrice:          p.Price,
		catalog.ColPower:          p.Power,
		catalog.ColWeight:         p.Weight,
		catalog.ColVolume:         p.Volume,
		catalog.ColSoldQuantity:   float64(p.SoldQuantity),
		catalog.ColSpecifications: p.Specifications,
		catalog.ColShortDesc:      p.ShortDesc,
	}
}
