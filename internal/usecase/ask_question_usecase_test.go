package usecase_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/usecase"
)

type stubPlanner struct{ queries []string }

func (s stubPlanner) Plan(_ context.Context, question string) []string {
	return append([]string{question}, s.queries...)
}

type stubRetriever struct {
	passages []domain.Passage
	gotScope usecase.RetrievalScope
	gotK     int
	gotQuery []string
}

func (s *stubRetriever) Search(context.Context, string, int, usecase.RetrievalScope) ([]domain.Passage, error) {
	return s.passages, nil
}

func (s *stubRetriever) MultiQuerySearch(_ context.Context, queries []string, k int, scope usecase.RetrievalScope) []domain.Passage {
	s.gotQuery, s.gotK, s.gotScope = queries, k, scope
	return s.passages
}

type stubSynthesizer struct {
	answer domain.Answer
	err    error
}

func (s stubSynthesizer) Synthesize(context.Context, string, []domain.Passage) (domain.Answer, error) {
	return s.answer, s.err
}

type stubEvaluator struct {
	evaluation domain.Evaluation
	gotAnswer  string
}

func (s *stubEvaluator) Evaluate(_ context.Context, _, answer string, _ []domain.Passage) domain.Evaluation {
	s.gotAnswer = answer
	return s.evaluation
}

type stubEnricher struct{ result *domain.EnrichmentResult }

func (s stubEnricher) MaybeEnrich(_ context.Context, v domain.CompletenessVerdict, autoEnrich bool) *domain.EnrichmentResult {
	if !autoEnrich || v.IsComplete {
		return nil
	}
	return s.result
}

type askFixture struct {
	retriever *stubRetriever
	evaluator *stubEvaluator
	analytics *recordingAnalytics
	synth     stubSynthesizer
	enricher  stubEnricher
}

func newAskFixture() *askFixture {
	passages := []domain.Passage{
		{ID: "a_chunk_0", DocumentID: "doc-a", SimilarityScore: 0.9, AdjustedScore: 0.99, QualityFactor: 1.1},
		{ID: "b_chunk_0", DocumentID: "doc-b", SimilarityScore: 0.6, AdjustedScore: 0.6, QualityFactor: 1},
		{ID: "a_chunk_1", DocumentID: "doc-a", SimilarityScore: 0.5, AdjustedScore: 0.55, QualityFactor: 1.1},
	}
	return &askFixture{
		retriever: &stubRetriever{passages: passages},
		evaluator: &stubEvaluator{evaluation: domain.Evaluation{Verdict: domain.CompletenessVerdict{
			Confidence: 0.7, Completeness: 0.6, SuggestedSearchQueries: []string{"key rotation"},
		}}},
		analytics: &recordingAnalytics{},
		synth:     stubSynthesizer{answer: domain.Answer{Text: "Rotate every 90 days [1].", Citations: []domain.Citation{{Index: 1}}}},
		enricher: stubEnricher{result: &domain.EnrichmentResult{
			Performed: true,
			Sources:   []domain.ExternalSource{{URL: "https://example.com"}},
		}},
	}
}

func (f *askFixture) usecase() usecase.AskQuestionUsecase {
	return usecase.NewAskQuestionUsecase(stubPlanner{queries: []string{"key rotation schedule"}}, f.retriever,
		f.synth, f.evaluator, f.enricher, f.analytics, 24, discardLogger())
}

func TestAskQuestion_RunsPipeline(t *testing.T) {
	f := newAskFixture()

	out, err := f.usecase().Execute(context.Background(), usecase.AskInput{
		Question:   "  How often do keys rotate?  ",
		UserID:     "u-1",
		Namespace:  "user-u-1",
		DocFilter:  []string{"doc-a", "doc-b"},
		AutoEnrich: true,
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^q_[0-9a-f]{12}$`), out.QueryID)
	assert.Equal(t, "How often do keys rotate?", out.Question)
	assert.Equal(t, []string{"How often do keys rotate?", "key rotation schedule"}, f.retriever.gotQuery)
	assert.Equal(t, 24, f.retriever.gotK)
	assert.Equal(t, usecase.RetrievalScope{Namespace: "user-u-1", DocFilter: []string{"doc-a", "doc-b"}}, f.retriever.gotScope)
	assert.Equal(t, []string{"doc-a", "doc-b"}, out.DocumentsUsed)
	assert.Equal(t, "Rotate every 90 days [1].", f.evaluator.gotAnswer)
	require.NotNil(t, out.Enrichment)
	assert.GreaterOrEqual(t, out.LatencyMS, 0.0)

	require.Len(t, f.analytics.records, 1)
	rec := f.analytics.records[0]
	assert.Equal(t, out.QueryID, rec.QueryID)
	assert.Equal(t, "u-1", rec.UserID)
	assert.Equal(t, 3, rec.ContextsRetrieved)
	assert.Equal(t, 0.713, rec.AvgRetrievalScore)
	assert.True(t, rec.EnrichmentTriggered)
	assert.Equal(t, 1, rec.ExternalSourcesFound)
	assert.False(t, rec.Degraded)
	assert.Equal(t, len(out.Answer.Text), rec.AnswerLength)
}

func TestAskQuestion_EmptyQuestion(t *testing.T) {
	f := newAskFixture()

	_, err := f.usecase().Execute(context.Background(), usecase.AskInput{Question: " \t "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.Empty(t, f.analytics.records)
}

func TestAskQuestion_GenerationFailureFallsBack(t *testing.T) {
	f := newAskFixture()
	f.synth = stubSynthesizer{err: errors.New("generator timeout")}

	out, err := f.usecase().Execute(context.Background(), usecase.AskInput{Question: "q"})
	require.NoError(t, err)

	assert.Equal(t, usecase.GenerationFailedAnswer, out.Answer.Text)
	assert.True(t, out.Answer.Fallback)
	assert.Empty(t, out.Answer.Citations)
	assert.Equal(t, usecase.GenerationFailedAnswer, f.evaluator.gotAnswer)
	assert.Nil(t, out.Enrichment, "auto enrich was off")
}

func TestAskQuestion_NilRecorder(t *testing.T) {
	f := newAskFixture()
	uc := usecase.NewAskQuestionUsecase(stubPlanner{}, f.retriever, f.synth, f.evaluator, f.enricher, nil, 5, discardLogger())

	out, err := uc.Execute(context.Background(), usecase.AskInput{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "q", out.Question)
}
