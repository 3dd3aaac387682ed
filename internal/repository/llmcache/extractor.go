package llmcache

import (
	"context"

	"github.com/lifecare-ai/prodsearch/internal/metrics"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

// CachingExtractor decorates an extractor with the response cache.
type CachingExtractor struct {
	inner retrieve.Extractor
	cache *Cache
	model string
}

// NewCachingExtractor wraps inner so identical queries against the same
// model hit the cache instead of the provider.
func NewCachingExtractor(inner retrieve.Extractor, cache *Cache, model string) *CachingExtractor {
	return &CachingExtractor{inner: inner, cache: cache, model: model}
}

// Extract returns the cached payload when present, otherwise calls the
// inner extractor and caches its response. A cache write failure does not
// fail the extraction.
func (x *CachingExtractor) Extract(ctx context.Context, userQuery string) (string, error) {
	id := Key(x.model, userQuery)

	if data, ok, err := x.cache.GetByID(ctx, id); err == nil && ok {
		metrics.ExtractionCacheTotal.WithLabelValues("hit").Inc()
		return string(data), nil
	}
	metrics.ExtractionCacheTotal.WithLabelValues("miss").Inc()

	raw, err := x.inner.Extract(ctx, userQuery)
	if err != nil {
		return "", err
	}

	_ = x.cache.Upsert(ctx, id, []byte(raw))
	return raw, nil
}
