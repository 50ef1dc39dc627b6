package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"knowledge-rag/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Complete(ctx context.Context, req domain.GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Version() string { return "mock-llm" }

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockEmbedder) Version() string { return "mock-embed" }

type mockVectorIndex struct {
	mock.Mock
}

func (m *mockVectorIndex) Query(ctx context.Context, q domain.VectorQuery) ([]domain.VectorMatch, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VectorMatch), args.Error(1)
}

func (m *mockVectorIndex) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) (int, error) {
	args := m.Called(ctx, namespace, records)
	return args.Int(0), args.Error(1)
}

func (m *mockVectorIndex) Delete(ctx context.Context, namespace string, filter domain.VectorFilter) (int64, error) {
	args := m.Called(ctx, namespace, filter)
	return args.Get(0).(int64), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListDocuments(ctx context.Context, namespace string) ([]domain.DocumentSummary, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentSummary), args.Error(1)
}

func (m *mockCatalog) FindDocumentByURL(ctx context.Context, namespace, url string) (string, bool, error) {
	args := m.Called(ctx, namespace, url)
	return args.String(0), args.Bool(1), args.Error(2)
}

type mockScoreStore struct {
	mock.Mock
}

func (m *mockScoreStore) QualityFactor(ctx context.Context, key string) (float64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockScoreStore) ApplyVote(ctx context.Context, key string, direction domain.VoteDirection) (domain.QualityScore, error) {
	args := m.Called(ctx, key, direction)
	return args.Get(0).(domain.QualityScore), args.Error(1)
}

func (m *mockScoreStore) Get(ctx context.Context, key string) (domain.QualityScore, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.QualityScore), args.Bool(1), args.Error(2)
}

func (m *mockScoreStore) List(ctx context.Context) ([]domain.QualityScore, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QualityScore), args.Error(1)
}

type mockRatingRepository struct {
	mock.Mock
}

func (m *mockRatingRepository) Save(ctx context.Context, record domain.RatingRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockRatingRepository) ListRecent(ctx context.Context, limit int) ([]domain.RatingRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RatingRecord), args.Error(1)
}

func (m *mockRatingRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.RatingRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RatingRecord), args.Error(1)
}

type mockSearchProvider struct {
	mock.Mock
	name      string
	available bool
}

func (m *mockSearchProvider) Name() string      { return m.name }
func (m *mockSearchProvider) IsAvailable() bool { return m.available }
func (m *mockSearchProvider) Search(ctx context.Context, query string, maxResults int) ([]domain.ExternalSource, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExternalSource), args.Error(1)
}

type recordingAnalytics struct {
	records []domain.QueryAnalytics
}

func (r *recordingAnalytics) Record(_ context.Context, a domain.QueryAnalytics) {
	r.records = append(r.records, a)
}

// passthroughTx runs fn directly.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func generateFormat(format domain.ResponseFormat) any {
	return mock.MatchedBy(func(r domain.GenerateRequest) bool { return r.ResponseFormat == format })
}

func intPtr(v int) *int { return &v }
