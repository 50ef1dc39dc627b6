package di

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/adapter/search_provider"
	"knowledge-rag/internal/infra/config"
)

func TestNewProviders_FallbackAlwaysAvailable(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tests := []struct {
		name       string
		cfg        config.EnrichmentConfig
		rdb        redis.UniversalClient
		wantCached bool
	}{
		{name: "no exa key, no cache", cfg: config.EnrichmentConfig{}},
		{name: "no exa key, cache disabled", cfg: config.EnrichmentConfig{CacheEnabled: false}, rdb: rdb},
		{name: "no exa key, cached", cfg: config.EnrichmentConfig{CacheEnabled: true, CacheTTL: 5}, rdb: rdb, wantCached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers := newProviders(tt.cfg, http.DefaultClient, tt.rdb, log)

			require.Len(t, providers, 2)
			assert.Equal(t, "Exa", providers[0].Name())
			assert.False(t, providers[0].IsAvailable())
			assert.Equal(t, "Wikipedia", providers[1].Name())
			assert.True(t, providers[1].IsAvailable())

			_, cached := providers[1].(*search_provider.CachedProvider)
			assert.Equal(t, tt.wantCached, cached)
		})
	}
}
