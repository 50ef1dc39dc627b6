package domain

import (
	"strconv"
)

// Metadata keys stored alongside every indexed chunk.
const (
	MetaDocumentID  = "doc_id"
	MetaSource      = "source"
	MetaFilename    = "filename"
	MetaPage        = "page"
	MetaSourceURL   = "source_url"
	MetaStorageType = "storage_type"
	MetaSourceType  = "source_type"
	MetaAddedAt     = "added_at"
)

const unknownTitle = "Unknown"

// Passage is a retrieved chunk scored for a single question.
// AdjustedScore is always SimilarityScore multiplied by QualityFactor.
type Passage struct {
	ID              string
	Text            string
	DocumentID      string
	Page            *int
	SourceTitle     string
	SimilarityScore float64
	AdjustedScore   float64
	QualityFactor   float64
	Metadata        map[string]string
}

// NewPassage builds a passage from an index match with a neutral quality factor.
func NewPassage(m VectorMatch) Passage {
	docID := m.DocumentID
	if docID == "" {
		docID = m.Metadata[MetaDocumentID]
	}
	return Passage{
		ID:              m.ID,
		Text:            m.Text,
		DocumentID:      docID,
		Page:            parsePage(m.Metadata[MetaPage]),
		SourceTitle:     TitleFromMetadata(m.Metadata),
		SimilarityScore: m.Score,
		AdjustedScore:   m.Score,
		QualityFactor:   NeutralQualityFactor,
		Metadata:        m.Metadata,
	}
}

// WithQualityFactor returns a copy of p rescored by factor.
func (p Passage) WithQualityFactor(factor float64) Passage {
	p.QualityFactor = factor
	p.AdjustedScore = p.SimilarityScore * factor
	return p
}

// TitleFromMetadata prefers "source", then "filename".
func TitleFromMetadata(meta map[string]string) string {
	if v := meta[MetaSource]; v != "" {
		return v
	}
	if v := meta[MetaFilename]; v != "" {
		return v
	}
	return unknownTitle
}

func parsePage(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// Citation points from an answer marker [Index] back to a passage.
type Citation struct {
	Index      int
	DocumentID string
	Title      string
	Page       *int
	ChunkText  string
	Score      float64
	Metadata   map[string]string
}

// Answer is a generated answer with its citations.
type Answer struct {
	Text      string
	Citations []Citation
	// Fallback marks answers that were not produced by the generator.
	Fallback bool
}
