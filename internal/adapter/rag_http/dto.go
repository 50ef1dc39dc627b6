package rag_http

import (
	"time"

	"knowledge-rag/internal/domain"
)

type AskRequest struct {
	Question   string   `json:"question"`
	DocIDs     []string `json:"doc_ids,omitempty"`
	AutoEnrich *bool    `json:"auto_enrich,omitempty"`
}

type CitationResponse struct {
	Index      int               `json:"index"`
	DocumentID string            `json:"doc_id"`
	Source     string            `json:"source"`
	Page       *int              `json:"page,omitempty"`
	ChunkText  string            `json:"chunk_text"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// RetrievedDoc is echoed back by clients when they rate an answer.
type RetrievedDoc struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"doc_id"`
	Score         float64 `json:"score"`
	AdjustedScore float64 `json:"adjusted_score"`
	QualityFactor float64 `json:"quality_factor"`
}

type AskResponse struct {
	QueryID            string                   `json:"query_id"`
	Question           string                   `json:"question"`
	Answer             string                   `json:"answer"`
	Fallback           bool                     `json:"fallback"`
	Citations          []CitationResponse       `json:"citations"`
	Confidence         float64                  `json:"confidence"`
	Completeness       float64                  `json:"completeness"`
	IsComplete         bool                     `json:"is_complete"`
	Evaluation         string                   `json:"evaluation"`
	MissingInformation string                   `json:"missing_information,omitempty"`
	SuggestedDocuments []string                 `json:"suggested_documents"`
	SuggestedActions   []string                 `json:"suggested_actions"`
	SearchQueries      []string                 `json:"search_queries"`
	Enrichment         *domain.EnrichmentResult `json:"enrichment,omitempty"`
	DocumentsUsed      []string                 `json:"documents_used"`
	RetrievedDocs      []RetrievedDoc           `json:"retrieved_docs"`
	LatencyMS          float64                  `json:"latency_ms"`
}

type FeedbackRequest struct {
	Question      string                `json:"question"`
	Answer        string                `json:"answer"`
	Rating        string                `json:"rating"`
	DocumentsUsed []string              `json:"documents_used"`
	RetrievedDocs []domain.RatedPassage `json:"retrieved_docs"`
	Completeness  string                `json:"completeness"`
	FeedbackText  string                `json:"feedback_text,omitempty"`
}

type FeedbackResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	RatingID      string `json:"rating_id"`
	ScoresUpdated bool   `json:"scores_updated"`
}

type StatsResponse struct {
	TotalRatings   int                   `json:"total_ratings"`
	DocumentScores []domain.QualityScore `json:"document_scores"`
}

type DocumentResponse struct {
	DocumentID  string     `json:"doc_id"`
	Title       string     `json:"title"`
	SourceType  string     `json:"source_type,omitempty"`
	SourceURL   string     `json:"source_url,omitempty"`
	StorageType string     `json:"storage_type,omitempty"`
	AddedAt     *time.Time `json:"added_at,omitempty"`
	ChunkCount  int        `json:"chunk_count"`
}

type CheckURLRequest struct {
	URL string `json:"url"`
}

type CheckURLResponse struct {
	Exists     bool   `json:"exists"`
	DocumentID string `json:"doc_id,omitempty"`
}

type ChunkRequest struct {
	Text     string            `json:"text"`
	Page     *int              `json:"page,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type IndexChunksRequest struct {
	Title       string         `json:"title"`
	SourceURL   string         `json:"source_url,omitempty"`
	SourceType  string         `json:"source_type,omitempty"`
	StorageType string         `json:"storage_type,omitempty"`
	Chunks      []ChunkRequest `json:"chunks"`
}

type IndexChunksResponse struct {
	DocumentID     string `json:"doc_id"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	ChunksReplaced int64  `json:"chunks_replaced"`
}
