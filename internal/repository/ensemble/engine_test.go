package ensemble

import (
	"context"
	"strings"
	"testing"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/query"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

// fakeEmbedder maps text to a fixed vector by substring so similarity
// geometry is deterministic.
type fakeEmbedder struct {
	byKey map[string][]float32
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	for k, v := range f.byKey {
		if strings.Contains(text, k) {
			return domain.EmbeddingResult{Embedding: v}, nil
		}
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 0}}, nil
}

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "1", Name: "Điều hòa Panasonic", GroupProduct: "điều hòa", Price: 9_500_000, Specifications: "9000BTU"},
		{ID: "2", Name: "Điều hòa Daikin", GroupProduct: "điều hòa", Price: 13_200_000, Specifications: "12000BTU"},
		{ID: "3", Name: "Máy giặt Samsung", GroupProduct: "máy giặt", Price: 8_900_000, Specifications: "9kg"},
		{ID: "4", Name: "Điều hòa Casper", GroupProduct: "điều hòa", Price: 6_000_000, Specifications: "9000BTU"},
	}
}

func testEmbedder() *fakeEmbedder {
	return &fakeEmbedder{byKey: map[string][]float32{
		"Panasonic": {1, 0},
		"Daikin":    {0.99, 0.12},
		"Samsung":   {0, 1},
		"Casper":    {0.7, 0.7},
		"giá rẻ":    {1, 0},
	}}
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeEmbedder) {
	t.Helper()
	emb := testEmbedder()
	e, err := New(emb, catalog.New(testProducts()), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	if err := e.EnsureIndexed(context.Background()); err != nil {
		t.Fatalf("EnsureIndexed: %v", err)
	}
	return e, emb
}

func compiledGroup(group string, limit int) query.Query {
	return query.New(
		[]query.Match{{Field: catalog.ColGroupProduct, Value: group}},
		nil, nil, limit,
	)
}

func TestEnsureIndexed_Idempotent(t *testing.T) {
	e, emb := newTestEngine(t, Config{})

	embedsAfterLoad := emb.calls
	if embedsAfterLoad != 4 {
		t.Fatalf("expected 4 document embeddings, got %d", embedsAfterLoad)
	}
	if err := e.EnsureIndexed(context.Background()); err != nil {
		t.Fatalf("second EnsureIndexed: %v", err)
	}
	if emb.calls != embedsAfterLoad {
		t.Errorf("second EnsureIndexed must not re-embed, got %d calls", emb.calls)
	}
}

func TestUpsert_SkipsExistingIDs(t *testing.T) {
	e, emb := newTestEngine(t, Config{})
	before := emb.calls

	if err := e.Upsert(context.Background(), testProducts()[:2]); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if emb.calls != before {
		t.Errorf("re-upsert of existing ids must not embed, got %d extra", emb.calls-before)
	}
}

func TestSimilarityLeg_ThresholdAndGroupFilter(t *testing.T) {
	e, _ := newTestEngine(t, Config{ScoreThreshold: 0.75})

	ranked := e.similarityLeg([]float32{1, 0}, "điều hòa", 3)

	// Casper (cos ~0.707) falls under the 0.75 gate; Samsung is filtered
	// out by group before scoring.
	if len(ranked) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(ranked))
	}
	if ranked[0].Product().ID != "1" || ranked[1].Product().ID != "2" {
		t.Errorf("expected [1 2], got [%s %s]", ranked[0].Product().ID, ranked[1].Product().ID)
	}
}

func TestMMRLeg_PrefersDiverseSecondPick(t *testing.T) {
	e, _ := newTestEngine(t, Config{LambdaMult: 0.25, ScoreThreshold: 0.75})

	ranked := e.mmrLeg([]float32{1, 0}, "điều hòa", 2)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(ranked))
	}
	if ranked[0].Product().ID != "1" {
		t.Errorf("first MMR pick must be the most similar doc, got %s", ranked[0].Product().ID)
	}
	// Daikin is nearly parallel to Panasonic; with lambda 0.25 the
	// diverse Casper wins the second slot.
	if ranked[1].Product().ID != "4" {
		t.Errorf("expected diverse second pick 4, got %s", ranked[1].Product().ID)
	}
}

func TestLexicalLeg_IgnoresGroupFilter(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	ranked, err := e.lexicalLeg(context.Background(), "Máy giặt Samsung", 4)
	if err != nil {
		t.Fatalf("lexicalLeg: %v", err)
	}
	found := false
	for _, r := range ranked {
		if r.Product().ID == "3" {
			found = true
		}
	}
	if !found {
		t.Error("lexical leg must reach documents outside the query group")
	}
}

func TestQuery_WeightedFusion(t *testing.T) {
	e, _ := newTestEngine(t, Config{Weights: []float64{0.5, 0.3, 0.2}})

	ranked, err := e.Query(context.Background(), retrieve.Request{
		Text:     "điều hòa giá rẻ",
		Compiled: compiledGroup("điều hòa", 3),
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ranked) == 0 {
		t.Fatal("expected fused hits")
	}
	// Panasonic tops the similarity and MMR legs.
	if ranked[0].Product().ID != "1" {
		t.Errorf("expected 1 first, got %s", ranked[0].Product().ID)
	}
	if len(ranked) > 3 {
		t.Errorf("limit 3 exceeded: %d", len(ranked))
	}
	for i, r := range ranked {
		if r.Rank() != i {
			t.Errorf("rank %d stored as %d", i, r.Rank())
		}
		if r.Score() == nil {
			t.Errorf("fused hit %d missing score", i)
		}
	}
}

func TestQuery_DeterministicAcrossRuns(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	req := retrieve.Request{Text: "điều hòa giá rẻ", Compiled: compiledGroup("điều hòa", 3)}
	first, err := e.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Query(context.Background(), req)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("non-deterministic result length")
		}
		for i := range again {
			if again[i].Product().ID != first[i].Product().ID {
				t.Fatalf("non-deterministic order at %d: %s vs %s",
					i, again[i].Product().ID, first[i].Product().ID)
			}
		}
	}
}
