package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
	"knowledge-rag/internal/usecase/retrieval"
)

// overFetchFactor is how many more neighbours than k are fetched so that
// quality re-ranking can promote passages from below the cut.
const overFetchFactor = 2

// RetrievalScope selects the namespace and optionally restricts documents.
type RetrievalScope struct {
	Namespace string
	DocFilter []string
}

// Retriever ranks indexed passages for a query, biased by document quality.
type Retriever interface {
	Search(ctx context.Context, query string, k int, scope RetrievalScope) ([]domain.Passage, error)
	// MultiQuerySearch searches every query and merges the results. It
	// returns an empty list, never an error, when every variant fails.
	MultiQuerySearch(ctx context.Context, queries []string, k int, scope RetrievalScope) []domain.Passage
}

type retriever struct {
	embedder    domain.Embedder
	index       domain.VectorIndex
	scores      domain.QualityScoreStore
	logger      *slog.Logger
	maxVariants int
}

// RetrieverOption configures optional Retriever behaviour.
type RetrieverOption func(*retriever)

// WithMaxVariants caps how many distinct queries MultiQuerySearch fans out.
// Queries past the cap are ignored; n <= 0 means no cap.
func WithMaxVariants(n int) RetrieverOption {
	return func(r *retriever) {
		r.maxVariants = n
	}
}

// NewRetriever creates a new Retriever.
func NewRetriever(
	embedder domain.Embedder,
	index domain.VectorIndex,
	scores domain.QualityScoreStore,
	logger *slog.Logger,
	opts ...RetrieverOption,
) Retriever {
	r := &retriever{
		embedder: embedder,
		index:    index,
		scores:   scores,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *retriever) Search(ctx context.Context, query string, k int, scope RetrievalScope) ([]domain.Passage, error) {
	if k <= 0 {
		return []domain.Passage{}, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, domain.VectorQuery{
		Vector:    vector,
		TopK:      overFetchFactor * k,
		Namespace: scope.Namespace,
		Filter:    domain.VectorFilter{DocumentIDs: scope.DocFilter},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vector index: %w", err)
	}

	passages := make([]domain.Passage, len(matches))
	for i, m := range matches {
		passages[i] = domain.NewPassage(m)
	}

	ranked := retrieval.RankByAdjustedScore(
		retrieval.ApplyQualityFactors(passages, r.qualityFactors(ctx, passages)), k)

	r.logger.Debug("retrieval_completed",
		slog.String("query", query),
		slog.Int("matches", len(matches)),
		slog.Int("returned", len(ranked)))
	return ranked, nil
}

// qualityFactors looks up one factor per passage, reading each document once.
// A failed read counts as neutral.
func (r *retriever) qualityFactors(ctx context.Context, passages []domain.Passage) []float64 {
	byDoc := make(map[string]float64)
	factors := make([]float64, len(passages))
	for i, p := range passages {
		if p.DocumentID == "" {
			factors[i] = domain.NeutralQualityFactor
			continue
		}
		f, ok := byDoc[p.DocumentID]
		if !ok {
			var err error
			f, err = r.scores.QualityFactor(ctx, p.DocumentID)
			if err != nil {
				r.logger.Warn("quality_factor_lookup_failed",
					slog.String("document_id", p.DocumentID),
					slog.String("error", err.Error()))
				f = domain.NeutralQualityFactor
			}
			byDoc[p.DocumentID] = f
		}
		factors[i] = f
	}
	return factors
}

func (r *retriever) MultiQuerySearch(ctx context.Context, queries []string, k int, scope RetrievalScope) []domain.Passage {
	queries = retrieval.DistinctQueries(queries)
	if len(queries) == 0 || k <= 0 {
		return []domain.Passage{}
	}
	if r.maxVariants > 0 && len(queries) > r.maxVariants {
		r.logger.Debug("query_variants_capped",
			slog.Int("requested", len(queries)),
			slog.Int("max", r.maxVariants))
		queries = queries[:r.maxVariants]
	}

	results := retrieval.SearchVariants(ctx, queries, func(ctx context.Context, q string) ([]domain.Passage, error) {
		return r.Search(ctx, q, k, scope)
	}, r.logger)

	merged := retrieval.MergeVariants(results, k)
	metrics.RetrievedPassages.Observe(float64(len(merged)))
	return merged
}
