package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"knowledge-rag/internal/domain"
)

type qualityScoreRepository struct {
	pool PgxPool
}

// NewQualityScoreRepository creates a Postgres-backed QualityScoreStore.
// The upsert takes a row lock, so votes on one document are serialized by
// the database.
func NewQualityScoreRepository(pool PgxPool) domain.QualityScoreStore {
	return &qualityScoreRepository{pool: pool}
}

const qualityColumns = `document_id, upvotes, downvotes, total_votes, score, last_updated`

func scanQualityScore(row pgx.Row) (domain.QualityScore, error) {
	var (
		s               domain.QualityScore
		up, down, total int64
	)
	if err := row.Scan(&s.DocumentID, &up, &down, &total, &s.Score, &s.LastUpdated); err != nil {
		return domain.QualityScore{}, err
	}
	s.Upvotes, s.Downvotes, s.TotalVotes = uint(up), uint(down), uint(total)
	return s, nil
}

func (r *qualityScoreRepository) QualityFactor(ctx context.Context, key string) (float64, error) {
	score, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return domain.NeutralQualityFactor, err
	}
	return domain.QualityFactor(&score), nil
}

func (r *qualityScoreRepository) ApplyVote(ctx context.Context, key string, direction domain.VoteDirection) (domain.QualityScore, error) {
	up, down := 0, 0
	if direction == domain.VoteUp {
		up = 1
	} else {
		down = 1
	}

	query := `
		INSERT INTO document_quality_scores AS s (` + qualityColumns + `)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (document_id) DO UPDATE SET
			upvotes = s.upvotes + EXCLUDED.upvotes,
			downvotes = s.downvotes + EXCLUDED.downvotes,
			total_votes = s.total_votes + 1,
			score = (s.upvotes + EXCLUDED.upvotes - s.downvotes - EXCLUDED.downvotes)::float8 / (s.total_votes + 1),
			last_updated = EXCLUDED.last_updated
		RETURNING ` + qualityColumns

	score, err := scanQualityScore(executor(ctx, r.pool).QueryRow(ctx, query, key, up, down, float64(up-down), time.Now().UTC()))
	if err != nil {
		return domain.QualityScore{}, fmt.Errorf("failed to apply vote for %s: %w", key, err)
	}
	return score, nil
}

func (r *qualityScoreRepository) Get(ctx context.Context, key string) (domain.QualityScore, bool, error) {
	query := `SELECT ` + qualityColumns + ` FROM document_quality_scores WHERE document_id = $1`
	score, err := scanQualityScore(executor(ctx, r.pool).QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QualityScore{}, false, nil
		}
		return domain.QualityScore{}, false, fmt.Errorf("failed to get quality score: %w", err)
	}
	return score, true, nil
}

func (r *qualityScoreRepository) List(ctx context.Context) ([]domain.QualityScore, error) {
	query := `SELECT ` + qualityColumns + ` FROM document_quality_scores ORDER BY total_votes DESC, document_id ASC`
	rows, err := executor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list quality scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.QualityScore
	for rows.Next() {
		s, err := scanQualityScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quality score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return scores, nil
}
