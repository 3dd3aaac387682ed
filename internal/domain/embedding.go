package domain

import "context"

// EmbeddingResult holds a query or document vector with token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder converts text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by transports that can probe their provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
