// Package llmcache stores raw LLM responses under deterministic content
// keys so repeated extractions of the same query skip the provider.
package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/lifecare-ai/prodsearch/internal/db"
)

const keyPrefix = "llmcache:"

// kv is the consumer interface for cache storage (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Cache is the LLM response cache.
type Cache struct {
	kv  kv
	ttl time.Duration
}

// New creates a cache over the KV store. A positive ttl expires entries;
// zero keeps them forever.
func New(store kv, ttl time.Duration) *Cache {
	return &Cache{kv: store, ttl: ttl}
}

// Key derives the deterministic cache id from the model name and the
// message sequence. Same inputs, same id.
func Key(model string, messages ...string) string {
	h := sha256.New()
	h.Write([]byte(model))
	for _, m := range messages {
		h.Write([]byte{0})
		h.Write([]byte(m))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetByID returns the cached payload, or ok=false when absent.
func (c *Cache) GetByID(ctx context.Context, id string) ([]byte, bool, error) {
	data, err := c.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, true, nil
}

// Upsert stores the payload under id. Existing entries are left
// untouched: the first response for a key wins.
func (c *Cache) Upsert(ctx context.Context, id string, payload []byte) error {
	exists, err := c.kv.Exists(ctx, keyPrefix+id)
	if err != nil {
		return fmt.Errorf("cache exists: %w", err)
	}
	if exists {
		return nil
	}

	if c.ttl > 0 {
		err = c.kv.SetWithTTL(ctx, keyPrefix+id, payload, c.ttl)
	} else {
		err = c.kv.Set(ctx, keyPrefix+id, payload)
	}
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// FilterUnseen returns the subset of ids with no cached entry, preserving
// input order.
func (c *Cache) FilterUnseen(ctx context.Context, ids []string) ([]string, error) {
	unseen := make([]string, 0, len(ids))
	for _, id := range ids {
		exists, err := c.kv.Exists(ctx, keyPrefix+id)
		if err != nil {
			return nil, fmt.Errorf("cache exists: %w", err)
		}
		if !exists {
			unseen = append(unseen, id)
		}
	}
	return unseen, nil
}
