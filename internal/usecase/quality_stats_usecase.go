package usecase

import (
	"context"
	"fmt"

	"knowledge-rag/internal/domain"
)

// recentRatingsWindow is how many of the newest ratings the stats count.
const recentRatingsWindow = 100

// QualityStats summarizes feedback collected so far.
type QualityStats struct {
	TotalRatings   int
	DocumentScores []domain.QualityScore
}

// QualityStatsUsecase reads quality scores and ratings for reporting.
type QualityStatsUsecase interface {
	Stats(ctx context.Context) (*QualityStats, error)
	RatingsByUser(ctx context.Context, userID string, limit int) ([]domain.RatingRecord, error)
	RecentRatings(ctx context.Context, limit int) ([]domain.RatingRecord, error)
	UserAnalytics(ctx context.Context, userID string) (domain.UserAnalytics, bool, error)
	DocumentUsage(ctx context.Context, limit int) ([]domain.DocumentUsage, error)
}

type qualityStatsUsecase struct {
	scores    domain.QualityScoreStore
	ratings   domain.RatingRepository
	analytics domain.AnalyticsReader
}

// NewQualityStatsUsecase creates a new QualityStatsUsecase. ratings and
// analytics may be nil.
func NewQualityStatsUsecase(scores domain.QualityScoreStore, ratings domain.RatingRepository, analytics domain.AnalyticsReader) QualityStatsUsecase {
	return &qualityStatsUsecase{scores: scores, ratings: ratings, analytics: analytics}
}

func (u *qualityStatsUsecase) Stats(ctx context.Context) (*QualityStats, error) {
	scores, err := u.scores.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list quality scores: %w", err)
	}
	recent, err := u.RecentRatings(ctx, recentRatingsWindow)
	if err != nil {
		return nil, err
	}
	return &QualityStats{TotalRatings: len(recent), DocumentScores: scores}, nil
}

func (u *qualityStatsUsecase) RecentRatings(ctx context.Context, limit int) ([]domain.RatingRecord, error) {
	if u.ratings == nil {
		return []domain.RatingRecord{}, nil
	}
	records, err := u.ratings.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return records, nil
}

func (u *qualityStatsUsecase) RatingsByUser(ctx context.Context, userID string, limit int) ([]domain.RatingRecord, error) {
	if u.ratings == nil {
		return []domain.RatingRecord{}, nil
	}
	records, err := u.ratings.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for user: %w", err)
	}
	return records, nil
}

func (u *qualityStatsUsecase) UserAnalytics(ctx context.Context, userID string) (domain.UserAnalytics, bool, error) {
	if u.analytics == nil || userID == "" {
		return domain.UserAnalytics{}, false, nil
	}
	stats, found, err := u.analytics.UserAnalytics(ctx, userID)
	if err != nil {
		return domain.UserAnalytics{}, false, fmt.Errorf("failed to read user analytics: %w", err)
	}
	return stats, found, nil
}

func (u *qualityStatsUsecase) DocumentUsage(ctx context.Context, limit int) ([]domain.DocumentUsage, error) {
	if u.analytics == nil {
		return []domain.DocumentUsage{}, nil
	}
	usage, err := u.analytics.DocumentUsage(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read document usage: %w", err)
	}
	return usage, nil
}
