package usecase

import (
	"context"
	"log/slog"
	"strings"

	"knowledge-rag/internal/domain"
)

const (
	paraphraseTemperature = 0.5
	paraphraseMaxTokens   = 100
)

// QueryPlanner expands a question into the query variants used for retrieval.
type QueryPlanner interface {
	// Plan returns the question first, followed by at most one paraphrase.
	// It never fails; on any generator problem it returns only the question.
	Plan(ctx context.Context, question string) []string
}

type queryPlanner struct {
	generator domain.Generator
	validator OutputValidator
	logger    *slog.Logger
}

// NewQueryPlanner creates a new QueryPlanner.
func NewQueryPlanner(generator domain.Generator, logger *slog.Logger) QueryPlanner {
	return &queryPlanner{
		generator: generator,
		validator: NewOutputValidator(),
		logger:    logger,
	}
}

func (p *queryPlanner) Plan(ctx context.Context, question string) []string {
	plan := []string{question}

	raw, err := p.generator.Complete(ctx, domain.GenerateRequest{
		Prompt:         buildParaphrasePrompt(question),
		ResponseFormat: domain.ResponseFormatText,
		Temperature:    paraphraseTemperature,
		MaxTokens:      paraphraseMaxTokens,
	})
	if err != nil {
		p.logger.Warn("query_plan_degraded", slog.String("error", err.Error()))
		return plan
	}

	variants, err := p.validator.Paraphrases(raw)
	if err != nil {
		p.logger.Warn("query_plan_degraded", slog.String("error", err.Error()))
		return plan
	}
	if len(variants) == 0 {
		return plan
	}

	paraphrase := strings.TrimSpace(variants[0])
	if paraphrase == "" || sameQuery(paraphrase, question) {
		return plan
	}
	return append(plan, paraphrase)
}

// sameQuery compares case-insensitively with whitespace collapsed.
func sameQuery(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
