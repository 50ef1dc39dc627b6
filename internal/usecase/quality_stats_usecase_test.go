package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/adapter/scorestore"
	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/usecase"
)

func TestQualityStats_Stats(t *testing.T) {
	store := scorestore.NewMemoryStore()
	voteN(t, store, "doc-a", 2, 1)
	voteN(t, store, "doc-b", 1, 0)

	ratings := new(mockRatingRepository)
	ratings.On("ListRecent", mock.Anything, 100).Return([]domain.RatingRecord{{ID: "r1"}, {ID: "r2"}}, nil)

	stats, err := usecase.NewQualityStatsUsecase(store, ratings, nil).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalRatings)
	require.Len(t, stats.DocumentScores, 2)
	assert.Equal(t, "doc-a", stats.DocumentScores[0].DocumentID)
}

func TestQualityStats_WithoutRatingRepository(t *testing.T) {
	uc := usecase.NewQualityStatsUsecase(scorestore.NewMemoryStore(), nil, nil)

	stats, err := uc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRatings)
	assert.Empty(t, stats.DocumentScores)

	byUser, err := uc.RatingsByUser(context.Background(), "u-1", 10)
	require.NoError(t, err)
	assert.Empty(t, byUser)
}

func TestQualityStats_Errors(t *testing.T) {
	scores := new(mockScoreStore)
	scores.On("List", mock.Anything).Return(nil, errors.New("db down"))
	_, err := usecase.NewQualityStatsUsecase(scores, nil, nil).Stats(context.Background())
	assert.ErrorContains(t, err, "failed to list quality scores")

	ratings := new(mockRatingRepository)
	ratings.On("ListByUser", mock.Anything, "u-1", 5).Return(nil, errors.New("timeout"))
	_, err = usecase.NewQualityStatsUsecase(scorestore.NewMemoryStore(), ratings, nil).RatingsByUser(context.Background(), "u-1", 5)
	assert.ErrorContains(t, err, "timeout")
}

type mockAnalyticsReader struct {
	mock.Mock
}

func (m *mockAnalyticsReader) UserAnalytics(ctx context.Context, userID string) (domain.UserAnalytics, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserAnalytics), args.Bool(1), args.Error(2)
}

func (m *mockAnalyticsReader) DocumentUsage(ctx context.Context, limit int) ([]domain.DocumentUsage, error) {
	args := m.Called(ctx, limit)
	usage, _ := args.Get(0).([]domain.DocumentUsage)
	return usage, args.Error(1)
}

func TestQualityStats_UserAnalytics(t *testing.T) {
	reader := new(mockAnalyticsReader)
	reader.On("UserAnalytics", mock.Anything, "u-1").
		Return(domain.UserAnalytics{UserID: "u-1", TotalQueries: 2, AvgCompleteness: 0.9, AvgConfidence: 0.8}, true, nil)
	reader.On("UserAnalytics", mock.Anything, "u-broken").
		Return(domain.UserAnalytics{}, false, errors.New("pg down"))
	uc := usecase.NewQualityStatsUsecase(scorestore.NewMemoryStore(), nil, reader)

	got, found, err := uc.UserAnalytics(context.Background(), "u-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.TotalQueries)

	_, found, err = uc.UserAnalytics(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = uc.UserAnalytics(context.Background(), "u-broken")
	assert.ErrorContains(t, err, "failed to read user analytics")

	reader.AssertNumberOfCalls(t, "UserAnalytics", 2)
}

func TestQualityStats_DocumentUsage(t *testing.T) {
	reader := new(mockAnalyticsReader)
	reader.On("DocumentUsage", mock.Anything, 10).
		Return([]domain.DocumentUsage{{DocumentID: "guide", TotalCitations: 4, AvgRelevanceScore: 0.61}}, nil).Once()
	reader.On("DocumentUsage", mock.Anything, 10).Return(nil, errors.New("pg down")).Once()
	uc := usecase.NewQualityStatsUsecase(scorestore.NewMemoryStore(), nil, reader)

	usage, err := uc.DocumentUsage(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "guide", usage[0].DocumentID)

	_, err = uc.DocumentUsage(context.Background(), 10)
	assert.ErrorContains(t, err, "failed to read document usage")

	empty, err := usecase.NewQualityStatsUsecase(scorestore.NewMemoryStore(), nil, nil).DocumentUsage(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
