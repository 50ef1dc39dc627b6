package rag_augur

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"knowledge-rag/internal/domain"
)

// CachedEmbedder memoizes single-text embeddings.
type CachedEmbedder struct {
	inner domain.Embedder
	cache *expirable.LRU[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU of size entries expiring after ttl.
func NewCachedEmbedder(inner domain.Embedder, size int, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}

// EmbedBatch bypasses the cache; batches come from indexing, not questions.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *CachedEmbedder) Version() string {
	return c.inner.Version()
}

var _ domain.Embedder = (*CachedEmbedder)(nil)
