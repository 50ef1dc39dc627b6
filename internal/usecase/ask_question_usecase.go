package usecase

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
)

// GenerationFailedAnswer replaces the answer when the generator fails on
// non-empty retrieval.
const GenerationFailedAnswer = "I couldn't generate an answer from the retrieved documents right now."

// AskInput describes one question.
type AskInput struct {
	Question   string
	UserID     string
	Namespace  string
	DocFilter  []string
	AutoEnrich bool
}

// AskOutput is the full pipeline result for one question.
type AskOutput struct {
	QueryID       string
	Question      string
	Answer        domain.Answer
	Evaluation    domain.Evaluation
	Enrichment    *domain.EnrichmentResult
	Passages      []domain.Passage
	DocumentsUsed []string
	LatencyMS     float64
}

// AskQuestionUsecase runs plan, retrieve, answer, evaluate and enrich.
type AskQuestionUsecase interface {
	// Execute fails only for an empty question; every other problem degrades
	// the answer or the verdict.
	Execute(ctx context.Context, input AskInput) (*AskOutput, error)
}

type askQuestionUsecase struct {
	planner     QueryPlanner
	retriever   Retriever
	synthesizer AnswerSynthesizer
	evaluator   CompletenessEvaluator
	enricher    EnrichmentTrigger
	recorder    domain.AnalyticsRecorder
	topK        int
	logger      *slog.Logger
}

// NewAskQuestionUsecase creates a new AskQuestionUsecase. recorder may be nil.
func NewAskQuestionUsecase(
	planner QueryPlanner,
	retriever Retriever,
	synthesizer AnswerSynthesizer,
	evaluator CompletenessEvaluator,
	enricher EnrichmentTrigger,
	recorder domain.AnalyticsRecorder,
	topK int,
	logger *slog.Logger,
) AskQuestionUsecase {
	return &askQuestionUsecase{
		planner:     planner,
		retriever:   retriever,
		synthesizer: synthesizer,
		evaluator:   evaluator,
		enricher:    enricher,
		recorder:    recorder,
		topK:        topK,
		logger:      logger,
	}
}

func (u *askQuestionUsecase) Execute(ctx context.Context, input AskInput) (*AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	start := time.Now()
	queryID := newQueryID()
	log := u.logger.With(slog.String("query_id", queryID))

	queries := u.planner.Plan(ctx, question)
	passages := u.retriever.MultiQuerySearch(ctx, queries, u.topK, RetrievalScope{
		Namespace: input.Namespace,
		DocFilter: input.DocFilter,
	})
	log.Info("passages_retrieved",
		slog.Int("variants", len(queries)),
		slog.Int("passages", len(passages)))

	answer, err := u.synthesizer.Synthesize(ctx, question, passages)
	if err != nil {
		log.Error("answer_generation_failed", slog.String("error", err.Error()))
		answer = domain.Answer{Text: GenerationFailedAnswer, Citations: []domain.Citation{}, Fallback: true}
	}

	evaluation := u.evaluator.Evaluate(ctx, question, answer.Text, passages)
	enrichment := u.enricher.MaybeEnrich(ctx, evaluation.Verdict, input.AutoEnrich)

	elapsed := time.Since(start)
	out := &AskOutput{
		QueryID:       queryID,
		Question:      question,
		Answer:        answer,
		Evaluation:    evaluation,
		Enrichment:    enrichment,
		Passages:      passages,
		DocumentsUsed: documentsUsed(passages),
		LatencyMS:     roundTo(float64(elapsed.Microseconds())/1000, 2),
	}

	metrics.RecordAsk(askOutcome(evaluation), elapsed.Seconds())
	u.record(ctx, input, out)

	log.Info("question_answered",
		slog.Bool("complete", evaluation.Verdict.IsComplete),
		slog.String("evaluation", evaluation.Kind.String()),
		slog.Float64("latency_ms", out.LatencyMS))
	return out, nil
}

func (u *askQuestionUsecase) record(ctx context.Context, input AskInput, out *AskOutput) {
	if u.recorder == nil {
		return
	}
	external := 0
	if out.Enrichment != nil {
		external = len(out.Enrichment.Sources)
	}
	v := out.Evaluation.Verdict
	u.recorder.Record(ctx, domain.QueryAnalytics{
		QueryID:              out.QueryID,
		UserID:               input.UserID,
		Question:             out.Question,
		AnswerLength:         len(out.Answer.Text),
		LatencyMS:            out.LatencyMS,
		Confidence:           v.Confidence,
		Completeness:         v.Completeness,
		IsComplete:           v.IsComplete,
		Degraded:             out.Evaluation.Degraded(),
		ContextsRetrieved:    len(out.Passages),
		DocumentsUsed:        out.DocumentsUsed,
		AvgRetrievalScore:    roundTo(meanAdjustedScore(out.Passages), 3),
		EnrichmentTriggered:  out.Enrichment != nil,
		ExternalSourcesFound: external,
		CreatedAt:            time.Now().UTC(),
	})
}

func askOutcome(e domain.Evaluation) string {
	switch {
	case e.Degraded():
		return "degraded"
	case e.Verdict.IsComplete:
		return "complete"
	default:
		return "incomplete"
	}
}

// newQueryID returns "q_" followed by 12 hex characters.
func newQueryID() string {
	return "q_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// documentsUsed lists distinct document ids in passage order.
func documentsUsed(passages []domain.Passage) []string {
	ids := make([]string, 0, len(passages))
	for _, p := range passages {
		ids = append(ids, p.DocumentID)
	}
	return distinctDocumentIDs(ids)
}

func meanAdjustedScore(passages []domain.Passage) float64 {
	if len(passages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range passages {
		sum += p.AdjustedScore
	}
	return sum / float64(len(passages))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
