// Package ensemble implements the in-memory multi-strategy engine: a
// similarity-threshold leg, a lexical leg, and an MMR diversity leg over
// the same document set, fused by weighted reciprocal rank.
package ensemble

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/result"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

// Config tunes the three strategies and their fusion weights.
type Config struct {
	// Weights orders as [similarity, lexical, mmr].
	Weights []float64
	// FetchK is the candidate pool handed to the MMR selection.
	FetchK int
	// LambdaMult balances MMR relevance against diversity:
	// 1 keeps pure relevance, 0 maximizes diversity.
	LambdaMult float64
	// ScoreThreshold is the minimum cosine similarity of the similarity leg.
	ScoreThreshold float64
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if len(c.Weights) == 0 {
		c.Weights = []float64{0.5, 0.3, 0.2}
	}
	if c.FetchK <= 0 {
		c.FetchK = 20
	}
	if c.LambdaMult <= 0 {
		c.LambdaMult = 0.25
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = 0.75
	}
}

type document struct {
	product catalog.Product
	content string
	vector  []float32
}

// Engine is the ensemble backend over in-memory documents.
type Engine struct {
	embed   domain.Embedder
	catalog *catalog.Catalog
	cfg     Config

	mu      sync.RWMutex
	docs    map[string]*document
	order   []string
	lexical bleve.Index
}

// New creates an ensemble engine.
func New(embed domain.Embedder, cat *catalog.Catalog, cfg Config) (*Engine, error) {
	cfg.ApplyDefaults()

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}
	return &Engine{
		embed:   embed,
		catalog: cat,
		cfg:     cfg,
		docs:    make(map[string]*document),
		lexical: idx,
	}, nil
}

// EnsureIndexed populates the document set from the catalog when empty.
func (e *Engine) EnsureIndexed(ctx context.Context) error {
	e.mu.RLock()
	populated := len(e.docs) > 0
	e.mu.RUnlock()
	if populated {
		return nil
	}
	return e.Upsert(ctx, e.catalog.Products())
}

// Upsert embeds and stores catalog rows as documents. Existing ids are
// left untouched.
func (e *Engine) Upsert(ctx context.Context, products []catalog.Product) error {
	for _, p := range products {
		e.mu.RLock()
		_, exists := e.docs[p.ID]
		e.mu.RUnlock()
		if exists {
			continue
		}

		content := ContentFor(p)
		emb, err := e.embed.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("embed %s: %w", p.ID, err)
		}

		if err := e.lexical.Index(p.ID, map[string]interface{}{"content": content}); err != nil {
			return fmt.Errorf("index %s: %w", p.ID, err)
		}

		e.mu.Lock()
		e.docs[p.ID] = &document{product: p, content: content, vector: emb.Embedding}
		e.order = append(e.order, p.ID)
		e.mu.Unlock()
	}
	return nil
}

// Close releases the lexical index.
func (e *Engine) Close() error {
	return e.lexical.Close()
}

// Query embeds the text, runs the three strategies concurrently, and
// fuses their ranked lists by weighted reciprocal rank. The group filter
// applies to the two vector legs only; the lexical leg scores the whole
// document set.
func (e *Engine) Query(ctx context.Context, req retrieve.Request) ([]result.Ranked, error) {
	emb, err := e.embed.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	group, _ := req.Compiled.MatchValue(catalog.ColGroupProduct)
	topK := req.Compiled.Limit()

	var (
		wg         sync.WaitGroup
		simList    []result.Ranked
		lexList    []result.Ranked
		mmrList    []result.Ranked
		lexicalErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		simList = e.similarityLeg(emb.Embedding, group, topK)
	}()
	go func() {
		defer wg.Done()
		lexList, lexicalErr = e.lexicalLeg(ctx, req.Text, topK)
	}()
	go func() {
		defer wg.Done()
		mmrList = e.mmrLeg(emb.Embedding, group, topK)
	}()
	wg.Wait()

	if lexicalErr != nil {
		return nil, fmt.Errorf("lexical leg: %w", lexicalErr)
	}

	return result.FuseWeighted(topK, e.cfg.Weights, simList, lexList, mmrList), nil
}

// similarityLeg ranks group-filtered documents by cosine similarity and
// keeps those at or above the threshold.
func (e *Engine) similarityLeg(queryVec []float32, group string, topK int) []result.Ranked {
	pool := e.scoredPool(queryVec, group)

	ranked := make([]result.Ranked, 0, topK)
	for _, c := range pool {
		if c.score < e.cfg.ScoreThreshold {
			break
		}
		ranked = append(ranked, result.WithScore(c.doc.product, len(ranked), c.score))
		if len(ranked) == topK {
			break
		}
	}
	return ranked
}

// lexicalLeg scores the full document set by content match, no metadata
// filter.
func (e *Engine) lexicalLeg(ctx context.Context, text string, topK int) ([]result.Ranked, error) {
	mq := bleve.NewMatchQuery(text)
	mq.SetField("content")
	sreq := bleve.NewSearchRequestOptions(mq, topK, 0, false)

	res, err := e.lexical.SearchInContext(ctx, sreq)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ranked := make([]result.Ranked, 0, len(res.Hits))
	for _, hit := range res.Hits {
		d, ok := e.docs[hit.ID]
		if !ok {
			continue
		}
		ranked = append(ranked, result.WithScore(d.product, len(ranked), hit.Score))
	}
	return ranked, nil
}

// mmrLeg selects topK documents from a fetchK similarity pool via maximal
// marginal relevance.
func (e *Engine) mmrLeg(queryVec []float32, group string, topK int) []result.Ranked {
	pool := e.scoredPool(queryVec, group)
	if len(pool) > e.cfg.FetchK {
		pool = pool[:e.cfg.FetchK]
	}

	var selected []scoredDoc
	remaining := append([]scoredDoc(nil), pool...)

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, c := range remaining {
			redundancy := 0.0
			for _, s := range selected {
				if sim := cosine(c.doc.vector, s.doc.vector); sim > redundancy {
					redundancy = sim
				}
			}
			mmr := e.cfg.LambdaMult*c.score - (1-e.cfg.LambdaMult)*redundancy
			if mmr > bestScore {
				bestScore = mmr
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	ranked := make([]result.Ranked, len(selected))
	for i, c := range selected {
		ranked[i] = result.WithScore(c.doc.product, i, c.score)
	}
	return ranked
}

type scoredDoc struct {
	doc   *document
	score float64
}

// scoredPool returns group-filtered documents ordered by cosine
// similarity descending (insertion order on ties).
func (e *Engine) scoredPool(queryVec []float32, group string) []scoredDoc {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pool := make([]scoredDoc, 0, len(e.order))
	for _, id := range e.order {
		d := e.docs[id]
		if group != "" && d.product.GroupProduct != group {
			continue
		}
		pool = append(pool, scoredDoc{doc: d, score: cosine(queryVec, d.vector)})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score > pool[j].score })
	return pool
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ContentFor renders the document blob the strategies search over.
func ContentFor(p catalog.Product) string {
	return fmt.Sprintf(
		"Tên sản phẩm: '%s'\nMã sản phẩm: %s\nGiá: %.0f\nThông số kỹ thuật: %s\n",
		p.Name, p.ID, p.Price, p.Specifications,
	)
}
