package repository

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
)

var qualityRowColumns = []string{"document_id", "upvotes", "downvotes", "total_votes", "score", "last_updated"}

func TestQualityScoreRepository_ApplyVote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO document_quality_scores`).
		WithArgs("doc-1", 0, 1, -1.0, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(qualityRowColumns).
			AddRow("doc-1", int64(3), int64(1), int64(4), 0.5, now))

	score, err := NewQualityScoreRepository(mock).ApplyVote(context.Background(), "doc-1", domain.VoteDown)
	require.NoError(t, err)
	assert.EqualValues(t, 3, score.Upvotes)
	assert.EqualValues(t, 1, score.Downvotes)
	assert.EqualValues(t, 4, score.TotalVotes)
	assert.InDelta(t, 0.5, score.Score, 1e-9)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQualityScoreRepository_QualityFactor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewQualityScoreRepository(mock)

	mock.ExpectQuery(`SELECT document_id`).
		WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows(qualityRowColumns).
			AddRow("doc-1", int64(8), int64(2), int64(10), 0.6, time.Now()))
	mock.ExpectQuery(`SELECT document_id`).
		WithArgs("unknown").
		WillReturnRows(pgxmock.NewRows(qualityRowColumns))

	f, err := repo.QualityFactor(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.06, f, 1e-9)

	f, err = repo.QualityFactor(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, domain.NeutralQualityFactor, f)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQualityScoreRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT document_id`).
		WillReturnRows(pgxmock.NewRows(qualityRowColumns).
			AddRow("a", int64(5), int64(0), int64(5), 1.0, now).
			AddRow("b", int64(0), int64(1), int64(1), -1.0, now))

	scores, err := NewQualityScoreRepository(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "a", scores[0].DocumentID)
	assert.InDelta(t, -1.0, scores[1].Score, 1e-9)

	require.NoError(t, mock.ExpectationsWereMet())
}
