package domain

import (
	"context"
	"time"
)

// QueryAnalytics captures the outcome of one answered question.
type QueryAnalytics struct {
	QueryID              string
	UserID               string
	Question             string
	AnswerLength         int
	LatencyMS            float64
	Confidence           float64
	Completeness         float64
	IsComplete           bool
	Degraded             bool
	ContextsRetrieved    int
	DocumentsUsed        []string
	AvgRetrievalScore    float64
	EnrichmentTriggered  bool
	ExternalSourcesFound int
	CreatedAt            time.Time
}

// AnalyticsRecorder accepts analytics without blocking the caller.
type AnalyticsRecorder interface {
	Record(ctx context.Context, a QueryAnalytics)
}

// AnalyticsRepository persists analytics rows in bulk.
type AnalyticsRepository interface {
	InsertBatch(ctx context.Context, rows []QueryAnalytics) error
}

// UserAnalytics aggregates one user's analytics rows. Averages are rounded
// to 3 decimals.
type UserAnalytics struct {
	UserID          string    `json:"user_id"`
	TotalQueries    int       `json:"total_queries"`
	AvgCompleteness float64   `json:"avg_answer_completeness"`
	AvgConfidence   float64   `json:"avg_confidence"`
	FirstActivityAt time.Time `json:"first_activity_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

// DocumentUsage aggregates how often a document backed an answer and the
// mean retrieval score of those answers.
type DocumentUsage struct {
	DocumentID        string    `json:"doc_id"`
	TotalCitations    int       `json:"total_citations"`
	AvgRelevanceScore float64   `json:"avg_relevance_score"`
	LastUsedAt        time.Time `json:"last_used_at"`
}

// AnalyticsReader derives per-user and per-document aggregates from stored
// analytics rows.
type AnalyticsReader interface {
	// UserAnalytics returns false when the user has no recorded queries.
	UserAnalytics(ctx context.Context, userID string) (UserAnalytics, bool, error)
	// DocumentUsage returns the most cited documents first.
	DocumentUsage(ctx context.Context, limit int) ([]DocumentUsage, error)
}
