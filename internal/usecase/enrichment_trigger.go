package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
)

// EnrichmentTrigger looks for outside sources when an answer is incomplete.
type EnrichmentTrigger interface {
	// MaybeEnrich returns nil when enrichment does not apply. It never fails;
	// provider problems only shrink the result.
	MaybeEnrich(ctx context.Context, verdict domain.CompletenessVerdict, autoEnrich bool) *domain.EnrichmentResult
}

type enrichmentTrigger struct {
	providers  []domain.SearchProvider
	maxResults int
	logger     *slog.Logger
}

// NewEnrichmentTrigger creates a trigger that consults providers in order.
func NewEnrichmentTrigger(providers []domain.SearchProvider, maxResults int, logger *slog.Logger) EnrichmentTrigger {
	return &enrichmentTrigger{
		providers:  providers,
		maxResults: maxResults,
		logger:     logger,
	}
}

func (t *enrichmentTrigger) MaybeEnrich(ctx context.Context, verdict domain.CompletenessVerdict, autoEnrich bool) *domain.EnrichmentResult {
	if !autoEnrich || verdict.IsComplete || len(verdict.SuggestedSearchQueries) == 0 {
		return nil
	}

	terms := verdict.SuggestedSearchQueries
	if len(terms) > domain.MaxSuggestedQueries {
		terms = terms[:domain.MaxSuggestedQueries]
	}

	sources := make([]domain.ExternalSource, 0)
	seenURLs := make(map[string]struct{})
	for _, term := range terms {
		for _, src := range t.searchTerm(ctx, term) {
			if _, dup := seenURLs[src.URL]; dup {
				continue
			}
			seenURLs[src.URL] = struct{}{}
			sources = append(sources, src)
		}
	}

	joined := strings.Join(terms, ", ")
	message := fmt.Sprintf("No external sources found for: %s", joined)
	if len(sources) > 0 {
		message = fmt.Sprintf("Found %d external sources for: %s", len(sources), joined)
	}

	t.logger.Info("enrichment_completed",
		slog.Int("terms", len(terms)),
		slog.Int("sources", len(sources)))

	return &domain.EnrichmentResult{
		Performed:       len(sources) > 0,
		Sources:         sources,
		SearchTermsUsed: terms,
		Message:         message,
	}
}

// searchTerm returns the first non-empty result in provider order.
func (t *enrichmentTrigger) searchTerm(ctx context.Context, term string) []domain.ExternalSource {
	for _, p := range t.providers {
		if !p.IsAvailable() {
			metrics.RecordEnrichmentCall(p.Name(), "unavailable")
			continue
		}
		results, err := p.Search(ctx, term, t.maxResults)
		if err != nil {
			metrics.RecordEnrichmentCall(p.Name(), "error")
			t.logger.Warn("enrichment_provider_failed",
				slog.String("provider", p.Name()),
				slog.String("term", term),
				slog.String("error", err.Error()))
			continue
		}
		if len(results) == 0 {
			metrics.RecordEnrichmentCall(p.Name(), "empty")
			continue
		}
		metrics.RecordEnrichmentCall(p.Name(), "ok")
		return results
	}
	return nil
}
