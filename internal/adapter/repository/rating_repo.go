package repository

import (
	"context"
	"fmt"

	"knowledge-rag/internal/domain"
)

type ratingRepository struct {
	pool PgxPool
}

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(pool PgxPool) domain.RatingRepository {
	return &ratingRepository{pool: pool}
}

const ratingColumns = `id, user_id, created_at, question, answer, rating, feedback_text, documents_used, completeness, max_relevance_score`

func (r *ratingRepository) Save(ctx context.Context, rec domain.RatingRecord) error {
	docs := rec.DocumentsUsed
	if docs == nil {
		docs = []string{}
	}
	_, err := executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO ratings (`+ratingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID, rec.UserID, rec.Timestamp, rec.Question, rec.Answer, string(rec.Rating),
		rec.FeedbackText, docs, string(rec.Completeness), rec.MaxRelevanceScore,
	)
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	return nil
}

func (r *ratingRepository) ListRecent(ctx context.Context, limit int) ([]domain.RatingRecord, error) {
	return r.list(ctx, `SELECT `+ratingColumns+` FROM ratings ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *ratingRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.RatingRecord, error) {
	return r.list(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

func (r *ratingRepository) list(ctx context.Context, query string, args ...any) ([]domain.RatingRecord, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var records []domain.RatingRecord
	for rows.Next() {
		var (
			rec                  domain.RatingRecord
			rating, completeness string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Timestamp, &rec.Question, &rec.Answer, &rating,
			&rec.FeedbackText, &rec.DocumentsUsed, &completeness, &rec.MaxRelevanceScore); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		rec.Rating = domain.VoteDirection(rating)
		rec.Completeness = domain.CompletenessLabel(completeness)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}
