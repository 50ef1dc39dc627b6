package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
	"knowledge-rag/internal/usecase/retrieval"
)

const (
	evidencePassages         = 5
	llmConfidenceWeight      = 0.6
	retrievalEvidenceWeight  = 0.4
	defaultLLMScore          = 0.5
	degradedCompleteness     = 0.5
	completenessTemperature  = 0.1
	completenessMaxTokens    = 300
	degradedSuggestedAction  = "Retry completeness check"
	degradedMissingInfoLabel = "Error in completeness check: "
)

// CompletenessEvaluator judges whether an answer fully addresses its question.
type CompletenessEvaluator interface {
	// Evaluate always returns a verdict; generator or parse failures yield a
	// degraded evaluation instead of an error.
	Evaluate(ctx context.Context, question, answer string, passages []domain.Passage) domain.Evaluation
}

type completenessEvaluator struct {
	generator domain.Generator
	validator OutputValidator
	logger    *slog.Logger
}

// NewCompletenessEvaluator creates a new CompletenessEvaluator.
func NewCompletenessEvaluator(generator domain.Generator, logger *slog.Logger) CompletenessEvaluator {
	return &completenessEvaluator{
		generator: generator,
		validator: NewOutputValidator(),
		logger:    logger,
	}
}

func (e *completenessEvaluator) Evaluate(ctx context.Context, question, answer string, passages []domain.Passage) domain.Evaluation {
	avg := retrieval.AverageTopScore(passages, evidencePassages)

	raw, err := e.generator.Complete(ctx, domain.GenerateRequest{
		Prompt:         buildCompletenessPrompt(question, answer),
		ResponseFormat: domain.ResponseFormatJSON,
		Temperature:    completenessTemperature,
		MaxTokens:      completenessMaxTokens,
	})
	if err != nil {
		return e.degraded(avg, fmt.Errorf("generation failed: %w", err))
	}

	parsed, err := e.validator.Verdict(raw)
	if err != nil {
		return e.degraded(avg, err)
	}

	verdict := blendVerdict(parsed, avg)
	metrics.CompletenessScore.Observe(verdict.Completeness)
	return domain.Evaluation{Kind: domain.EvaluationVerdict, Verdict: verdict}
}

// blendVerdict mixes the generator's judgement with retrieval evidence.
// The generator's own is_complete is ignored in favour of the threshold.
func blendVerdict(v *LLMVerdict, avgTopScore float64) domain.CompletenessVerdict {
	confidence := clamp01(valueOr(v.Confidence, defaultLLMScore))
	completeness := round2(clamp01(valueOr(v.Completeness, defaultLLMScore)))

	missing := ""
	if v.MissingInformation != nil {
		missing = strings.TrimSpace(*v.MissingInformation)
	}

	return domain.CompletenessVerdict{
		Confidence:             round2(llmConfidenceWeight*confidence + retrievalEvidenceWeight*avgTopScore),
		Completeness:           completeness,
		IsComplete:             domain.IsCompleteAt(completeness),
		MissingInformation:     missing,
		SuggestedDocuments:     nonBlank(v.SuggestedDocuments, 0),
		SuggestedActions:       nonBlank(v.SuggestedActions, 0),
		SuggestedSearchQueries: nonBlank(v.SearchQueries, domain.MaxSuggestedQueries),
	}
}

func (e *completenessEvaluator) degraded(avgTopScore float64, cause error) domain.Evaluation {
	e.logger.Warn("completeness_check_degraded", slog.String("error", cause.Error()))
	return domain.Evaluation{
		Kind:  domain.EvaluationDegraded,
		Cause: cause,
		Verdict: domain.CompletenessVerdict{
			Confidence:             round2(avgTopScore),
			Completeness:           degradedCompleteness,
			IsComplete:             domain.IsCompleteAt(degradedCompleteness),
			MissingInformation:     degradedMissingInfoLabel + cause.Error(),
			SuggestedDocuments:     []string{},
			SuggestedActions:       []string{degradedSuggestedAction},
			SuggestedSearchQueries: []string{},
		},
	}
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return fallback
	}
	return *p
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// nonBlank trims entries, drops empty ones and keeps at most limit (0 = all).
func nonBlank(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
