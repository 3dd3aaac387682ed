package domain

import "errors"

var (
	// ErrMalformedSpecification signals a tool-call payload that could not be
	// parsed into the seven canonical specification fields.
	ErrMalformedSpecification = errors.New("malformed specification")
	// ErrUnknownGroup signals a product group outside the catalog vocabulary.
	// Callers map it to an empty result set, not a user-facing failure.
	ErrUnknownGroup = errors.New("unknown product group")
	// ErrBackendUnavailable signals a store or network failure during a query.
	// Retryable by the caller.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrRateLimited signals a rate limit hit on an LLM or embedding call.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExtractionFailed signals that the LLM returned no usable tool call.
	ErrExtractionFailed = errors.New("extraction returned no tool call")
)
