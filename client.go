// Package prodsearch embeds the retrieval pipeline for in-process use:
// the chatbot agent links the catalog, a backend and an extractor without
// running the HTTP server.
package prodsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/spec"
	"github.com/lifecare-ai/prodsearch/internal/format"
	"github.com/lifecare-ai/prodsearch/internal/repository/ensemble"
	"github.com/lifecare-ai/prodsearch/internal/repository/lexical"
	"github.com/lifecare-ai/prodsearch/internal/usecase/compile"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

// Result is one answered query: the rendered Vietnamese text block and
// the parallel product summaries. Both empty means no match.
type Result struct {
	Text     string
	Products []ProductSummary
}

// ProductSummary is a compact per-product record for downstream linking.
type ProductSummary struct {
	ID       string
	Name     string
	FilePath string
}

// Client is the prodsearch embedded entry point.
type Client struct {
	catalog  *catalog.Catalog
	compiler *compile.Compiler
	backend  retrieve.Backend
	service  *retrieve.Service
}

// New creates an embedded client: loads the catalog, builds the backend
// and indexes the products.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: "lexical", topK: compile.DefaultTopK}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.catalogPath == "" {
		return nil, errors.New("prodsearch: catalog path required (use WithCatalogPath)")
	}

	cat, err := catalog.Load(cfg.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("prodsearch: load catalog: %w", err)
	}

	backend, err := createBackend(cfg, cat)
	if err != nil {
		return nil, err
	}

	if err := backend.EnsureIndexed(context.Background()); err != nil {
		return nil, fmt.Errorf("prodsearch: index catalog: %w", err)
	}

	compiler := compile.New(cat.Groups(), cfg.topK)

	var extractor retrieve.Extractor = noopExtractor{}
	if cfg.extractor != nil {
		extractor = cfg.extractor
	}

	return &Client{
		catalog:  cat,
		compiler: compiler,
		backend:  backend,
		service:  retrieve.NewService(extractor, compiler, backend, cfg.driver),
	}, nil
}

func createBackend(cfg *clientConfig, cat *catalog.Catalog) (retrieve.Backend, error) {
	switch cfg.driver {
	case "lexical":
		b, err := lexical.New(cat)
		if err != nil {
			return nil, fmt.Errorf("prodsearch: create lexical backend: %w", err)
		}
		return b, nil
	case "ensemble":
		if cfg.embedder == nil {
			return nil, errors.New("prodsearch: ensemble backend requires an embedder (use WithEmbedder)")
		}
		b, err := ensemble.New(&embedderAdapter{inner: cfg.embedder}, cat, ensemble.Config{})
		if err != nil {
			return nil, fmt.Errorf("prodsearch: create ensemble backend: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("prodsearch: unknown backend %q", cfg.driver)
	}
}

// Search runs the full pipeline on free-form user text. Requires an
// extractor.
func (c *Client) Search(ctx context.Context, userQuery string) (Result, error) {
	resp, err := c.service.Search(ctx, userQuery)
	if err != nil {
		return Result{}, err
	}
	return toResult(resp), nil
}

// Retrieve skips extraction and runs a pre-extracted specification payload
// (the seven-field JSON) through normalize, compile and the backend.
// Unknown groups yield an empty Result, not an error.
func (c *Client) Retrieve(ctx context.Context, payload string) (Result, error) {
	specification, err := spec.Normalize(payload)
	if err != nil {
		return Result{}, fmt.Errorf("prodsearch: normalize payload: %w", err)
	}

	compiled, err := c.compiler.Compile(specification)
	if errors.Is(err, domain.ErrUnknownGroup) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("prodsearch: compile query: %w", err)
	}

	hits, err := c.backend.Query(ctx, retrieve.Request{
		Text:     specification.Object().Value(),
		Compiled: compiled,
	})
	if err != nil {
		return Result{}, fmt.Errorf("prodsearch: query backend: %w", err)
	}

	text, summaries := format.Format(hits)
	return toResult(retrieve.Response{Text: text, Summaries: summaries}), nil
}

// Groups returns the catalog group vocabulary, in catalog order. Useful
// for building the extraction tool schema.
func (c *Client) Groups() []string { return c.catalog.Groups() }

// Close releases backend resources.
func (c *Client) Close() error {
	if closer, ok := c.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func toResult(resp retrieve.Response) Result {
	r := Result{Text: resp.Text}
	for _, s := range resp.Summaries {
		r.Products = append(r.Products, ProductSummary{ID: s.ID, Name: s.Name, FilePath: s.FilePath})
	}
	return r
}

// embedderAdapter wraps the public Embedder to satisfy internal
// domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// noopExtractor fails Search when no extractor is configured (Retrieve
// still works).
type noopExtractor struct{}

func (noopExtractor) Extract(context.Context, string) (string, error) {
	return "", errors.New("prodsearch: extractor not configured (use WithExtractor for free-text search)")
}
