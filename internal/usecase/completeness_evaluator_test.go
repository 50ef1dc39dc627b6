package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/usecase"
)

func scoredPassages(scores ...float64) []domain.Passage {
	out := make([]domain.Passage, len(scores))
	for i, s := range scores {
		out[i] = domain.Passage{ID: string(rune('a' + i)), SimilarityScore: s, AdjustedScore: s, QualityFactor: 1}
	}
	return out
}

func evaluate(t *testing.T, reply string, passages []domain.Passage) domain.Evaluation {
	t.Helper()
	gen := new(mockGenerator)
	gen.On("Complete", mock.Anything, generateFormat(domain.ResponseFormatJSON)).Return(reply, nil)
	return usecase.NewCompletenessEvaluator(gen, discardLogger()).Evaluate(context.Background(), "q", "a", passages)
}

func TestCompletenessEvaluator_BlendsConfidence(t *testing.T) {
	// top five average 0.7, the sixth passage is ignored
	passages := scoredPassages(0.9, 0.8, 0.7, 0.6, 0.5, 0.0)

	ev := evaluate(t, `{"confidence": 0.9, "completeness": 0.9, "is_complete": true, "missing_information": null,
		"suggested_documents": [], "suggested_actions": [], "search_queries": []}`, passages)

	require.False(t, ev.Degraded())
	assert.InDelta(t, 0.82, ev.Verdict.Confidence, 1e-9)
	assert.Equal(t, 0.9, ev.Verdict.Completeness)
	assert.True(t, ev.Verdict.IsComplete)
	assert.Empty(t, ev.Verdict.MissingInformation)
}

func TestCompletenessEvaluator_ThresholdOverridesModel(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{name: "model says complete below threshold", reply: `{"completeness": 0.84, "is_complete": true}`, want: false},
		{name: "model says incomplete at threshold", reply: `{"completeness": 0.85, "is_complete": false}`, want: true},
		{name: "rounds before comparing", reply: `{"completeness": 0.8496}`, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := evaluate(t, tt.reply, scoredPassages(0.5))
			assert.Equal(t, tt.want, ev.Verdict.IsComplete)
			assert.Equal(t, ev.Verdict.Completeness >= domain.CompletenessThreshold, ev.Verdict.IsComplete)
		})
	}
}

func TestCompletenessEvaluator_DefaultsAndClamping(t *testing.T) {
	ev := evaluate(t, `{"missing_information": "  pricing  "}`, nil)
	require.False(t, ev.Degraded())
	assert.Equal(t, 0.3, ev.Verdict.Confidence)
	assert.Equal(t, 0.5, ev.Verdict.Completeness)
	assert.Equal(t, "pricing", ev.Verdict.MissingInformation)

	ev = evaluate(t, `{"confidence": 7, "completeness": -2}`, scoredPassages(1))
	assert.Equal(t, 1.0, ev.Verdict.Confidence)
	assert.Equal(t, 0.0, ev.Verdict.Completeness)
}

func TestCompletenessEvaluator_CapsSearchQueries(t *testing.T) {
	ev := evaluate(t, `{"completeness": 0.4, "search_queries": ["CUDA basics", " ", "GPU memory", "PyTorch tensors", "cuDNN"]}`, nil)

	assert.Equal(t, []string{"CUDA basics", "GPU memory", "PyTorch tensors"}, ev.Verdict.SuggestedSearchQueries)
	assert.False(t, ev.Verdict.IsComplete)
}

func TestCompletenessEvaluator_Degraded(t *testing.T) {
	passages := scoredPassages(0.64, 0.6)

	t.Run("generator error", func(t *testing.T) {
		gen := new(mockGenerator)
		gen.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model not loaded"))

		ev := usecase.NewCompletenessEvaluator(gen, discardLogger()).Evaluate(context.Background(), "q", "a", passages)

		require.True(t, ev.Degraded())
		assert.ErrorContains(t, ev.Cause, "model not loaded")
		assert.Equal(t, 0.62, ev.Verdict.Confidence)
		assert.Equal(t, 0.5, ev.Verdict.Completeness)
		assert.False(t, ev.Verdict.IsComplete)
		assert.Contains(t, ev.Verdict.MissingInformation, "Error in completeness check: ")
		assert.Equal(t, []string{"Retry completeness check"}, ev.Verdict.SuggestedActions)
		assert.Empty(t, ev.Verdict.SuggestedSearchQueries)
	})

	t.Run("unparseable reply", func(t *testing.T) {
		ev := evaluate(t, "The answer looks fine to me.", passages)
		require.True(t, ev.Degraded())
		assert.Equal(t, "degraded", ev.Kind.String())
		assert.Empty(t, ev.Verdict.SuggestedSearchQueries)
	})
}
