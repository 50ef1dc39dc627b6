package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"knowledge-rag/internal/domain"
)

type analyticsRepository struct {
	pool PgxPool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool PgxPool) domain.AnalyticsRepository {
	return &analyticsRepository{pool: pool}
}

// NewAnalyticsReader reads aggregates over the rows NewAnalyticsRepository writes.
func NewAnalyticsReader(pool PgxPool) domain.AnalyticsReader {
	return &analyticsRepository{pool: pool}
}

var analyticsColumns = []string{
	"query_id", "user_id", "question", "answer_length", "latency_ms",
	"confidence", "completeness", "is_complete", "degraded",
	"contexts_retrieved", "documents_used", "avg_retrieval_score",
	"enrichment_triggered", "external_sources_found", "created_at",
}

func (r *analyticsRepository) InsertBatch(ctx context.Context, batch []domain.QueryAnalytics) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([][]any, len(batch))
	for i, a := range batch {
		docs := a.DocumentsUsed
		if docs == nil {
			docs = []string{}
		}
		rows[i] = []any{
			a.QueryID, a.UserID, a.Question, a.AnswerLength, a.LatencyMS,
			a.Confidence, a.Completeness, a.IsComplete, a.Degraded,
			a.ContextsRetrieved, docs, a.AvgRetrievalScore,
			a.EnrichmentTriggered, a.ExternalSourcesFound, a.CreatedAt,
		}
	}

	_, err := executor(ctx, r.pool).CopyFrom(
		ctx,
		pgx.Identifier{"query_analytics"},
		analyticsColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query analytics: %w", err)
	}
	return nil
}

func (r *analyticsRepository) UserAnalytics(ctx context.Context, userID string) (domain.UserAnalytics, bool, error) {
	var u domain.UserAnalytics
	err := executor(ctx, r.pool).QueryRow(ctx, `
		SELECT user_id,
		       count(*),
		       round(avg(completeness)::numeric, 3)::float8,
		       round(avg(confidence)::numeric, 3)::float8,
		       min(created_at),
		       max(created_at)
		FROM query_analytics
		WHERE user_id = $1
		GROUP BY user_id
	`, userID).Scan(&u.UserID, &u.TotalQueries, &u.AvgCompleteness, &u.AvgConfidence, &u.FirstActivityAt, &u.LastActivityAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserAnalytics{}, false, nil
	}
	if err != nil {
		return domain.UserAnalytics{}, false, fmt.Errorf("failed to read analytics for user %s: %w", userID, err)
	}
	return u, true, nil
}

func (r *analyticsRepository) DocumentUsage(ctx context.Context, limit int) ([]domain.DocumentUsage, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, `
		SELECT d.doc_id,
		       count(*),
		       round(avg(q.avg_retrieval_score)::numeric, 3)::float8,
		       max(q.created_at)
		FROM query_analytics q
		CROSS JOIN LATERAL unnest(q.documents_used) AS d(doc_id)
		GROUP BY d.doc_id
		ORDER BY count(*) DESC, d.doc_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query document usage: %w", err)
	}
	defer rows.Close()

	usage := []domain.DocumentUsage{}
	for rows.Next() {
		var u domain.DocumentUsage
		if err := rows.Scan(&u.DocumentID, &u.TotalCitations, &u.AvgRelevanceScore, &u.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document usage: %w", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return usage, nil
}
