package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/usecase"
)

func rankedPassage(i int, text string) domain.Passage {
	return domain.Passage{
		ID:              fmt.Sprintf("chunk-%d", i),
		Text:            text,
		DocumentID:      fmt.Sprintf("doc-%d", i),
		Page:            intPtr(i + 1),
		SourceTitle:     fmt.Sprintf("Manual %d", i),
		SimilarityScore: 0.8,
		AdjustedScore:   0.8 * 1.05,
		QualityFactor:   1.05,
		Metadata: map[string]string{
			domain.MetaSourceURL:   "https://example.com/manual",
			domain.MetaStorageType: "local",
			domain.MetaAddedAt:     "2025-01-01T00:00:00Z",
		},
	}
}

func TestAnswerSynthesizer_NoPassagesSkipsGenerator(t *testing.T) {
	gen := new(mockGenerator)

	answer, err := usecase.NewAnswerSynthesizer(gen).Synthesize(context.Background(), "anything?", nil)
	require.NoError(t, err)

	assert.Equal(t, usecase.NoKnowledgeAnswer, answer.Text)
	assert.True(t, answer.Fallback)
	assert.NotNil(t, answer.Citations)
	assert.Empty(t, answer.Citations)
	gen.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnswerSynthesizer_BuildsPromptAndCitations(t *testing.T) {
	gen := new(mockGenerator)
	passages := []domain.Passage{
		rankedPassage(0, "Keys rotate every 90 days."),
		rankedPassage(1, strings.Repeat("é", 250)),
	}
	passages[1].Page = nil

	var prompt string
	gen.On("Complete", mock.Anything, mock.MatchedBy(func(r domain.GenerateRequest) bool {
		prompt = r.Prompt
		return r.Temperature == 0.2 && r.MaxTokens == 600
	})).Return("  Rotate keys every 90 days [1].  ", nil)

	answer, err := usecase.NewAnswerSynthesizer(gen).Synthesize(context.Background(), "How often?", passages)
	require.NoError(t, err)

	assert.Equal(t, "Rotate keys every 90 days [1].", answer.Text)
	assert.False(t, answer.Fallback)
	assert.Contains(t, prompt, "[1] (Source: Manual 0, p.1)\nKeys rotate every 90 days.\n\n[2] (Source: Manual 1, p.?)\n")
	assert.Contains(t, prompt, "**Question:** How often?")

	require.Len(t, answer.Citations, 2)
	first := answer.Citations[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "doc-0", first.DocumentID)
	assert.Equal(t, "Manual 0", first.Title)
	assert.InDelta(t, 0.84, first.Score, 1e-9)
	assert.Equal(t, map[string]string{
		domain.MetaSourceURL:   "https://example.com/manual",
		domain.MetaStorageType: "local",
	}, first.Metadata)

	preview := answer.Citations[1].ChunkText
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Equal(t, 203, len([]rune(preview)))
}

func TestAnswerSynthesizer_CapsContextPassages(t *testing.T) {
	gen := new(mockGenerator)
	passages := make([]domain.Passage, 14)
	for i := range passages {
		passages[i] = rankedPassage(i, fmt.Sprintf("fact %d", i))
	}

	var prompt string
	gen.On("Complete", mock.Anything, mock.MatchedBy(func(r domain.GenerateRequest) bool {
		prompt = r.Prompt
		return true
	})).Return("answer", nil)

	answer, err := usecase.NewAnswerSynthesizer(gen).Synthesize(context.Background(), "q", passages)
	require.NoError(t, err)

	assert.Len(t, answer.Citations, usecase.MaxContextPassages)
	assert.Contains(t, prompt, "[10] (Source: Manual 9")
	assert.NotContains(t, prompt, "[11]")
}

func TestAnswerSynthesizer_GeneratorFailures(t *testing.T) {
	passages := []domain.Passage{rankedPassage(0, "text")}

	t.Run("error", func(t *testing.T) {
		gen := new(mockGenerator)
		gen.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

		_, err := usecase.NewAnswerSynthesizer(gen).Synthesize(context.Background(), "q", passages)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("blank answer", func(t *testing.T) {
		gen := new(mockGenerator)
		gen.On("Complete", mock.Anything, mock.Anything).Return(" \n", nil)

		_, err := usecase.NewAnswerSynthesizer(gen).Synthesize(context.Background(), "q", passages)
		assert.Error(t, err)
	})
}
