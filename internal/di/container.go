package di

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"knowledge-rag/internal/adapter/rag_augur"
	rag_http "knowledge-rag/internal/adapter/rag_http"
	"knowledge-rag/internal/adapter/repository"
	"knowledge-rag/internal/adapter/scorestore"
	"knowledge-rag/internal/adapter/search_provider"
	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/config"
	"knowledge-rag/internal/infra/httpclient"
	"knowledge-rag/internal/usecase"
	"knowledge-rag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Stores
	Index        repository.PgvectorIndex
	QualityStore domain.QualityScoreStore
	RatingRepo   domain.RatingRepository

	// Usecases
	AskUsecase           usecase.AskQuestionUsecase
	FeedbackIngestor     usecase.FeedbackIngestor
	QualityStatsUsecase  usecase.QualityStatsUsecase
	KnowledgeBaseUsecase usecase.KnowledgeBaseUsecase

	// Worker is nil when analytics are disabled.
	Worker *worker.AnalyticsWorker

	Handler *rag_http.Handler

	closers []func() error
}

// Close releases resources owned by the components (not the pool or redis).
func (c *ApplicationComponents) Close() error {
	var firstErr error
	for _, fn := range c.closers {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewApplicationComponents wires all dependencies from config, the database
// pool and an optional redis client.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, rdb redis.UniversalClient, log *slog.Logger) (*ApplicationComponents, error) {
	c := &ApplicationComponents{}

	// Repositories
	c.Index = repository.NewPgvectorIndex(pool)
	c.RatingRepo = repository.NewRatingRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	qualityStore, err := newQualityStore(cfg.Quality, pool, log)
	if err != nil {
		return nil, err
	}
	c.QualityStore = qualityStore
	if closer, ok := qualityStore.(interface{ Close() error }); ok {
		c.closers = append(c.closers, closer.Close)
	}

	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(time.Duration(cfg.Embedder.Timeout) * time.Second)
	generatorHTTP := httpclient.NewPooledClient(time.Duration(cfg.Generator.Timeout) * time.Second)
	enrichmentHTTP := httpclient.NewRateLimitedClient(time.Duration(cfg.Enrichment.Timeout)*time.Second, cfg.Enrichment.RequestsPerSec)

	// Model clients
	var embedder domain.Embedder = rag_augur.NewOllamaEmbedder(cfg.Embedder.URL, cfg.Embedder.Model, cfg.Embedder.BatchSize, embedderHTTP, log)
	if cfg.Embedder.CacheSize > 0 {
		embedder = rag_augur.NewCachedEmbedder(embedder, cfg.Embedder.CacheSize, time.Duration(cfg.Embedder.CacheTTL)*time.Minute)
	}
	generator := rag_augur.NewOllamaGenerator(cfg.Generator.URL, cfg.Generator.Model, generatorHTTP, log)

	providers := newProviders(cfg.Enrichment, enrichmentHTTP, rdb, log)

	// Analytics
	var recorder domain.AnalyticsRecorder
	if cfg.Analytics.Enabled {
		c.Worker = worker.NewAnalyticsWorker(
			repository.NewAnalyticsRepository(pool),
			cfg.Analytics.BufferSize,
			cfg.Analytics.BatchSize,
			time.Duration(cfg.Analytics.FlushInterval)*time.Second,
			log,
		)
		recorder = c.Worker
	}

	// Usecases
	c.AskUsecase = usecase.NewAskQuestionUsecase(
		usecase.NewQueryPlanner(generator, log),
		usecase.NewRetriever(embedder, c.Index, c.QualityStore, log, usecase.WithMaxVariants(cfg.RAG.MaxVariants)),
		usecase.NewAnswerSynthesizer(generator),
		usecase.NewCompletenessEvaluator(generator, log),
		usecase.NewEnrichmentTrigger(providers, cfg.Enrichment.MaxResults, log),
		recorder,
		cfg.RAG.TopK,
		log,
	)
	c.FeedbackIngestor = usecase.NewFeedbackIngestor(c.QualityStore, c.RatingRepo, log)
	c.QualityStatsUsecase = usecase.NewQualityStatsUsecase(c.QualityStore, c.RatingRepo, repository.NewAnalyticsReader(pool))
	c.KnowledgeBaseUsecase = usecase.NewKnowledgeBaseUsecase(embedder, c.Index, c.Index, txManager, log)

	c.Handler = rag_http.NewHandler(
		c.AskUsecase,
		c.FeedbackIngestor,
		c.QualityStatsUsecase,
		c.KnowledgeBaseUsecase,
		cfg.RAG.DefaultNamespace,
		log,
	)

	log.Info("components_wired",
		slog.String("quality_backend", cfg.Quality.Backend),
		slog.Int("providers", len(providers)),
		slog.Bool("analytics", cfg.Analytics.Enabled),
		slog.String("embedder", embedder.Version()),
		slog.String("generator", generator.Version()))
	return c, nil
}

func newQualityStore(cfg config.QualityConfig, pool *pgxpool.Pool, log *slog.Logger) (domain.QualityScoreStore, error) {
	switch cfg.Backend {
	case "postgres":
		return repository.NewQualityScoreRepository(pool), nil
	case "badger":
		store, err := scorestore.OpenBadgerStore(cfg.BadgerDir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open quality store: %w", err)
		}
		return store, nil
	case "memory":
		return scorestore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown quality store backend %q", cfg.Backend)
}

// newProviders builds the enrichment chain in preference order. Each
// provider is fronted by the redis cache when one is available.
func newProviders(cfg config.EnrichmentConfig, client *http.Client, rdb redis.UniversalClient, log *slog.Logger) []domain.SearchProvider {
	providers := []domain.SearchProvider{
		search_provider.NewExaProvider(cfg.ExaURL, cfg.ExaAPIKey, client, log),
		search_provider.NewWikipediaProvider(cfg.WikipediaURL, client, log),
	}

	if !cfg.CacheEnabled || rdb == nil {
		return providers
	}
	ttl := time.Duration(cfg.CacheTTL) * time.Minute
	for i, p := range providers {
		providers[i] = search_provider.NewCachedProvider(p, rdb, ttl, log)
	}
	return providers
}
