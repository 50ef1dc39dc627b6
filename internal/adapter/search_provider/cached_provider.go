package search_provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"knowledge-rag/internal/domain"
)

var cacheTracer = otel.Tracer("search_provider.cache")

// CachedProvider keeps provider results in Redis. Concurrent misses for the
// same query share one upstream call. Empty results are not cached so a later
// request can still reach the provider.
type CachedProvider struct {
	inner  domain.SearchProvider
	rdb    redis.UniversalClient
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedProvider wraps inner with a Redis cache.
func NewCachedProvider(inner domain.SearchProvider, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) IsAvailable() bool { return c.inner.IsAvailable() }

func (c *CachedProvider) cacheKey(query string, maxResults int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("enrich:%s:%d:%s", strings.ToLower(c.inner.Name()), maxResults, hex.EncodeToString(sum[:12]))
}

func (c *CachedProvider) Search(ctx context.Context, query string, maxResults int) ([]domain.ExternalSource, error) {
	key := c.cacheKey(query, maxResults)
	ctx, span := cacheTracer.Start(ctx, "cache.Search",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.String("provider", c.inner.Name()),
		))
	defer span.End()

	if cached, ok := c.get(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, _ := c.group.Do(key, func() (any, error) {
		sources, err := c.inner.Search(ctx, query, maxResults)
		if err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			c.set(ctx, key, sources)
		}
		return sources, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]domain.ExternalSource), nil
}

func (c *CachedProvider) get(ctx context.Context, key string) ([]domain.ExternalSource, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("enrichment_cache_get_failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return nil, false
	}
	var sources []domain.ExternalSource
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, false
	}
	return sources, true
}

func (c *CachedProvider) set(ctx context.Context, key string, sources []domain.ExternalSource) {
	raw, err := json.Marshal(sources)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("enrichment_cache_set_failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

var _ domain.SearchProvider = (*CachedProvider)(nil)
