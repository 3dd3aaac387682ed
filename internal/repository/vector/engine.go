// Package vector implements the hybrid retrieval engine on the Redis FT
// store: a dense KNN leg and a BM25 text leg run as prefetches over the
// same group-filtered point set, fused by reciprocal rank and gated by a
// minimum fused score.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lifecare-ai/prodsearch/internal/db"
	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/result"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

const (
	// FieldContent is the templated text column the BM25 leg scores on.
	FieldContent = "content"
	// FieldVector is the dense embedding column. The KNN query addresses
	// it by name, so it is fixed.
	FieldVector = "vector"

	defaultPrefetchK = 20
)

// store is the consumer interface for vector engine operations (ISP).
type store interface {
	Exists(ctx context.Context, key string) (bool, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// Config tunes the index layout and query behavior.
type Config struct {
	IndexName string
	KeyPrefix string

	VectorDim       int
	VectorType      db.VectorType
	HNSWM           int
	HNSWEFConstruct int

	// PrefetchK is the per-leg candidate pool before fusion.
	PrefetchK int
	// ScoreThreshold drops fused hits scoring below it. Zero keeps all.
	ScoreThreshold float64
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.IndexName == "" {
		c.IndexName = "products:idx"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "products:"
	}
	if c.PrefetchK <= 0 {
		c.PrefetchK = defaultPrefetchK
	}
	if c.VectorType == "" {
		c.VectorType = db.VectorFloat32
	}
}

// Engine is the hybrid dense+sparse backend.
type Engine struct {
	store   store
	embed   domain.Embedder
	catalog *catalog.Catalog
	cfg     Config
}

// New creates a vector engine.
func New(s store, embed domain.Embedder, cat *catalog.Catalog, cfg Config) *Engine {
	cfg.ApplyDefaults()
	return &Engine{store: s, embed: embed, catalog: cat, cfg: cfg}
}

// EnsureIndexed creates the FT index when absent and populates the point
// set from the catalog when empty.
func (e *Engine) EnsureIndexed(ctx context.Context) error {
	exists, err := e.store.IndexExists(ctx, e.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	if !exists {
		if err := e.store.CreateIndex(ctx, e.indexDefinition()); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index: %w", err)
		}
	}

	count, err := e.store.SearchCount(ctx, e.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("count points: %w", err)
	}
	if count > 0 {
		return nil
	}
	return e.Upsert(ctx, e.catalog.Products())
}

// Upsert embeds and stores catalog rows as hash points. Existing ids are
// left untouched, so repeated calls only pay for new rows.
func (e *Engine) Upsert(ctx context.Context, products []catalog.Product) error {
	items := make([]db.HashSetItem, 0, len(products))

	for _, p := range products {
		key := e.cfg.KeyPrefix + p.ID

		exists, err := e.store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("exists %s: %w", key, err)
		}
		if exists {
			continue
		}

		content := ContentFor(p)
		emb, err := e.embed.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("embed %s: %w", p.ID, err)
		}

		fields := productFields(p)
		fields[FieldContent] = content
		fields[FieldVector] = string(db.EncodeVector(emb.Embedding, e.cfg.VectorType))
		items = append(items, db.HashSetItem{Key: key, Fields: fields})
	}

	if len(items) == 0 {
		return nil
	}
	if err := e.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store points: %w", err)
	}
	return nil
}

// Query embeds the query text, runs the dense and sparse prefetch legs
// under the group filter, fuses by reciprocal rank, and gates the fused
// score.
func (e *Engine) Query(ctx context.Context, req retrieve.Request) ([]result.Ranked, error) {
	filter := e.groupFilter(req)

	emb, err := e.embed.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	returnFields := append(catalogFieldNames(), "__vector_score")

	knnRes, err := e.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    e.cfg.IndexName,
		Filter:       filter,
		Vector:       emb.Embedding,
		Encoding:     e.cfg.VectorType,
		K:            e.cfg.PrefetchK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn leg: %w", err)
	}

	bm25Res, err := e.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    e.cfg.IndexName,
		Query:        req.Text,
		TextField:    FieldContent,
		Filter:       filter,
		TopK:         e.cfg.PrefetchK,
		ReturnFields: catalogFieldNames(),
	})
	if err != nil {
		return nil, fmt.Errorf("bm25 leg: %w", err)
	}

	fused := result.FuseRRF(req.Compiled.Limit(), entriesToRanked(knnRes), entriesToRanked(bm25Res))

	if e.cfg.ScoreThreshold <= 0 {
		return fused, nil
	}
	gated := make([]result.Ranked, 0, len(fused))
	for _, r := range fused {
		if s := r.Score(); s != nil && *s >= e.cfg.ScoreThreshold {
			gated = append(gated, result.WithScore(r.Product(), len(gated), *s))
		}
	}
	return gated, nil
}

func (e *Engine) groupFilter(req retrieve.Request) db.Filter {
	var f db.Filter
	if group, ok := req.Compiled.MatchValue(catalog.ColGroupProduct); ok {
		f.Tags = append(f.Tags, db.TagFilter{Field: catalog.ColGroupProduct, Value: group})
	}
	return f
}

func (e *Engine) indexDefinition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     e.cfg.IndexName,
		Prefixes: []string{e.cfg.KeyPrefix},
		Fields: []db.IndexField{
			{Name: catalog.ColGroupProduct, Type: db.IndexFieldTag},
			{Name: catalog.ColGroupName, Type: db.IndexFieldTag},
			{Name: catalog.ColPrice, Type: db.IndexFieldNumeric},
			{Name: catalog.ColPower, Type: db.IndexFieldNumeric},
			{Name: catalog.ColWeight, Type: db.IndexFieldNumeric},
			{Name: catalog.ColVolume, Type: db.IndexFieldNumeric},
			{Name: catalog.ColSoldQuantity, Type: db.IndexFieldNumeric},
			{Name: FieldContent, Type: db.IndexFieldText},
			{
				Name:              FieldVector,
				Type:              db.IndexFieldVector,
				VectorDim:         e.cfg.VectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorType:        e.cfg.VectorType,
				VectorM:           e.cfg.HNSWM,
				VectorEFConstruct: e.cfg.HNSWEFConstruct,
			},
		},
	}
}

func entriesToRanked(sr *db.SearchResult) []result.Ranked {
	if sr == nil {
		return nil
	}
	ranked := make([]result.Ranked, 0, len(sr.Entries))
	for i, entry := range sr.Entries {
		ranked = append(ranked, result.New(productFromFields(entry.Fields), i, nil))
	}
	return ranked
}

// ContentFor renders the text blob a point is embedded and BM25-scored on.
func ContentFor(p catalog.Product) string {
	return fmt.Sprintf(
		"Tên sản phẩm: %s. Nhóm: %s - %s. Giá: %.0f đ. Thông số: %s. %s",
		p.Name, p.GroupProduct, p.GroupName, p.Price, p.Specifications, p.ShortDesc,
	)
}

func productFields(p catalog.Product) map[string]string {
	return map[string]string{
		catalog.ColID:             p.ID,
		catalog.ColName:           p.Name,
		catalog.ColGroupName:      p.GroupName,
		catalog.ColGroupProduct:   p.GroupProduct,
		catalog.ColPrice:          formatFloat(p.Price),
		catalog.ColPower:          formatFloat(p.Power),
		catalog.ColWeight:         formatFloat(p.Weight),
		catalog.ColVolume:         formatFloat(p.Volume),
		catalog.ColSpecifications: p.Specifications,
		catalog.ColShortDesc:      p.ShortDesc,
		catalog.ColSoldQuantity:   strconv.Itoa(p.SoldQuantity),
		catalog.ColFilePath:       p.FilePath,
	}
}

func productFromFields(fields map[string]string) catalog.Product {
	sold, _ := strconv.Atoi(fields[catalog.ColSoldQuantity])
	return catalog.Product{
		ID:             fields[catalog.ColID],
		Name:           fields[catalog.ColName],
		GroupName:      fields[catalog.ColGroupName],
		GroupProduct:   fields[catalog.ColGroupProduct],
		Price:          parseFloat(fields[catalog.ColPrice]),
		Power:          parseFloat(fields[catalog.ColPower]),
		Weight:         parseFloat(fields[catalog.ColWeight]),
		Volume:         parseFloat(fields[catalog.ColVolume]),
		Specifications: fields[catalog.ColSpecifications],
		ShortDesc:      fields[catalog.ColShortDesc],
		SoldQuantity:   sold,
		FilePath:       fields[catalog.ColFilePath],
	}
}

func catalogFieldNames() []string {
	return []string{
		catalog.ColID, catalog.ColName, catalog.ColGroupName,
		catalog.ColGroupProduct, catalog.ColPrice, catalog.ColPower,
		catalog.ColWeight, catalog.ColVolume, catalog.ColSpecifications,
		catalog.ColShortDesc, catalog.ColSoldQuantity, catalog.ColFilePath,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
