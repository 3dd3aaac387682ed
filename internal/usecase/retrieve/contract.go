package retrieve

import (
	"context"

	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/query"
	"github.com/lifecare-ai/prodsearch/internal/domain/result"
)

// Request is one backend search call: the raw user text (for the scoring
// legs that rank by content) and the compiled structured query.
type Request struct {
	Text     string
	Compiled query.Query
}

// Backend is the retrieval engine contract. Implementations are
// interchangeable; the service picks one at wiring time.
type Backend interface {
	// Query returns ranked hits for the request. An empty slice means no
	// match, never a swallowed error.
	Query(ctx context.Context, req Request) ([]result.Ranked, error)

	// Upsert indexes catalog rows, idempotent per product id.
	Upsert(ctx context.Context, products []catalog.Product) error

	// EnsureIndexed creates the backing index when absent and populates it
	// when empty. Safe to call repeatedly.
	EnsureIndexed(ctx context.Context) error
}

// Extractor turns free-form user text into the raw specification payload
// (the tool-call arguments JSON). The payload stays opaque here; the
// normalizer owns its shape.
type Extractor interface {
	Extract(ctx context.Context, userQuery string) (string, error)
}
