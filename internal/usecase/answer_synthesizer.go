package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"knowledge-rag/internal/domain"
)

const (
	// MaxContextPassages caps how many passages reach the answer prompt.
	MaxContextPassages    = 10
	citationPreviewLength = 200
	answerTemperature     = 0.2
	answerMaxTokens       = 600
)

// NoKnowledgeAnswer is returned without calling the generator when nothing
// was retrieved.
const NoKnowledgeAnswer = "I don't have any documents in my knowledge base to answer this question. However, I can search external sources for you!"

// citationMetadataKeys are the passage metadata fields copied onto citations.
var citationMetadataKeys = []string{domain.MetaSourceURL, domain.MetaStorageType, domain.MetaSourceType}

// AnswerSynthesizer writes a cited answer from ranked passages.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question string, passages []domain.Passage) (domain.Answer, error)
}

type answerSynthesizer struct {
	generator domain.Generator
}

// NewAnswerSynthesizer creates a new AnswerSynthesizer.
func NewAnswerSynthesizer(generator domain.Generator) AnswerSynthesizer {
	return &answerSynthesizer{generator: generator}
}

func (s *answerSynthesizer) Synthesize(ctx context.Context, question string, passages []domain.Passage) (domain.Answer, error) {
	if len(passages) == 0 {
		return domain.Answer{Text: NoKnowledgeAnswer, Citations: []domain.Citation{}, Fallback: true}, nil
	}
	if len(passages) > MaxContextPassages {
		passages = passages[:MaxContextPassages]
	}

	text, err := s.generator.Complete(ctx, domain.GenerateRequest{
		Prompt:         buildAnswerPrompt(question, buildContextBlock(passages)),
		ResponseFormat: domain.ResponseFormatText,
		Temperature:    answerTemperature,
		MaxTokens:      answerMaxTokens,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("failed to generate answer: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Answer{}, errors.New("generator returned an empty answer")
	}

	return domain.Answer{Text: text, Citations: buildCitations(passages)}, nil
}

func buildCitations(passages []domain.Passage) []domain.Citation {
	citations := make([]domain.Citation, len(passages))
	for i, p := range passages {
		meta := make(map[string]string, len(citationMetadataKeys))
		for _, key := range citationMetadataKeys {
			if v := p.Metadata[key]; v != "" {
				meta[key] = v
			}
		}
		citations[i] = domain.Citation{
			Index:      i + 1,
			DocumentID: p.DocumentID,
			Title:      p.SourceTitle,
			Page:       p.Page,
			ChunkText:  previewText(p.Text, citationPreviewLength),
			Score:      p.AdjustedScore,
			Metadata:   meta,
		}
	}
	return citations
}

// previewText keeps the first limit runes, marking truncation with "...".
func previewText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
