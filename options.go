package prodsearch

import (
	"context"
)

// Embedder converts text into a dense vector. Required for the ensemble
// backend; the lexical backend never embeds.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Extractor turns free-form user text into the raw specification payload
// (the tool-call arguments JSON).
type Extractor interface {
	Extract(ctx context.Context, userQuery string) (string, error)
}

type clientConfig struct {
	catalogPath string
	driver      string
	topK        int
	embedder    Embedder
	extractor   Extractor
}

// Option configures the embedded client.
type Option func(*clientConfig)

// WithCatalogPath points the client at the product table CSV export.
func WithCatalogPath(path string) Option {
	return func(c *clientConfig) { c.catalogPath = path }
}

// WithBackend selects the retrieval backend: "lexical" (default) or
// "ensemble". The Redis-backed vector backend is served by the API
// server, not the embedded client.
func WithBackend(driver string) Option {
	return func(c *clientConfig) { c.driver = driver }
}

// WithTopK caps the number of results per query.
func WithTopK(k int) Option {
	return func(c *clientConfig) { c.topK = k }
}

// WithEmbedder sets the query/document embedder for the ensemble backend.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithExtractor sets the specification extractor. Without one, Search
// is unavailable and only Retrieve (pre-extracted payloads) works.
func WithExtractor(x Extractor) Option {
	return func(c *clientConfig) { c.extractor = x }
}
