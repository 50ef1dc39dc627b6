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

func match(id, doc string, score float64) domain.VectorMatch {
	return domain.VectorMatch{ID: id, DocumentID: doc, Score: score, Text: "text " + id, Metadata: map[string]string{"source": doc + ".pdf"}}
}

func voteN(t *testing.T, store domain.QualityScoreStore, doc string, up, down int) {
	t.Helper()
	for range up {
		_, err := store.ApplyVote(context.Background(), doc, domain.VoteUp)
		require.NoError(t, err)
	}
	for range down {
		_, err := store.ApplyVote(context.Background(), doc, domain.VoteDown)
		require.NoError(t, err)
	}
}

func TestRetriever_Search_OverFetchesAndReranksByQuality(t *testing.T) {
	ctx := context.Background()
	emb := new(mockEmbedder)
	idx := new(mockVectorIndex)
	store := scorestore.NewMemoryStore()
	voteN(t, store, "good", 10, 0)
	voteN(t, store, "bad", 0, 10)

	emb.On("Embed", mock.Anything, "q").Return([]float32{1, 0}, nil)
	idx.On("Query", mock.Anything, domain.VectorQuery{
		Vector:    []float32{1, 0},
		TopK:      4,
		Namespace: "kb-mvp",
		Filter:    domain.VectorFilter{DocumentIDs: []string{"good", "bad", "plain"}},
	}).Return([]domain.VectorMatch{
		match("c1", "bad", 0.80),
		match("c2", "plain", 0.75),
		match("c3", "good", 0.70),
		match("c4", "good", 0.40),
	}, nil)

	r := usecase.NewRetriever(emb, idx, store, discardLogger())
	got, err := r.Search(ctx, "q", 2, usecase.RetrievalScope{Namespace: "kb-mvp", DocFilter: []string{"good", "bad", "plain"}})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "c3", got[0].ID)
	assert.InDelta(t, 0.77, got[0].AdjustedScore, 1e-9)
	assert.Equal(t, 1.1, got[0].QualityFactor)
	assert.Equal(t, "c2", got[1].ID)
	assert.Equal(t, domain.NeutralQualityFactor, got[1].QualityFactor)
	for _, p := range got {
		assert.GreaterOrEqual(t, p.QualityFactor, domain.MinQualityFactor)
		assert.LessOrEqual(t, p.QualityFactor, domain.MaxQualityFactor)
		assert.InDelta(t, p.SimilarityScore*p.QualityFactor, p.AdjustedScore, 1e-9)
	}
}

func TestRetriever_Search_QualityReadErrorIsNeutral(t *testing.T) {
	emb := new(mockEmbedder)
	idx := new(mockVectorIndex)
	scores := new(mockScoreStore)

	emb.On("Embed", mock.Anything, "q").Return([]float32{1}, nil)
	idx.On("Query", mock.Anything, mock.Anything).Return([]domain.VectorMatch{match("c1", "d1", 0.5), match("c2", "d1", 0.4)}, nil)
	scores.On("QualityFactor", mock.Anything, "d1").Return(0.0, errors.New("db down")).Once()

	got, err := usecase.NewRetriever(emb, idx, scores, discardLogger()).Search(context.Background(), "q", 5, usecase.RetrievalScope{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.NeutralQualityFactor, got[0].QualityFactor)
	scores.AssertExpectations(t)
}

func TestRetriever_Search_Errors(t *testing.T) {
	emb := new(mockEmbedder)
	idx := new(mockVectorIndex)
	emb.On("Embed", mock.Anything, "broken").Return(nil, errors.New("ollama down"))
	emb.On("Embed", mock.Anything, "q").Return([]float32{1}, nil)
	idx.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("pg down"))

	r := usecase.NewRetriever(emb, idx, scorestore.NewMemoryStore(), discardLogger())

	_, err := r.Search(context.Background(), "broken", 3, usecase.RetrievalScope{})
	assert.ErrorContains(t, err, "failed to embed query")

	_, err = r.Search(context.Background(), "q", 3, usecase.RetrievalScope{})
	assert.ErrorContains(t, err, "failed to query vector index")

	got, err := r.Search(context.Background(), "q", 0, usecase.RetrievalScope{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func newMultiQueryFixture(t *testing.T) usecase.Retriever {
	t.Helper()
	emb := new(mockEmbedder)
	idx := new(mockVectorIndex)
	emb.On("Embed", mock.Anything, "first").Return([]float32{1}, nil)
	emb.On("Embed", mock.Anything, "second").Return([]float32{2}, nil)
	emb.On("Embed", mock.Anything, "broken").Return(nil, errors.New("embed failed"))

	idx.On("Query", mock.Anything, mock.MatchedBy(func(q domain.VectorQuery) bool { return q.Vector[0] == 1 })).
		Return([]domain.VectorMatch{match("p1", "d1", 0.7), match("p2", "d2", 0.65), match("p3", "d3", 0.3)}, nil)
	idx.On("Query", mock.Anything, mock.MatchedBy(func(q domain.VectorQuery) bool { return q.Vector[0] == 2 })).
		Return([]domain.VectorMatch{match("p1", "d1", 0.9), match("p4", "d4", 0.6)}, nil)

	return usecase.NewRetriever(emb, idx, scorestore.NewMemoryStore(), discardLogger())
}

func TestRetriever_MultiQuerySearch_MergesOnMaxScore(t *testing.T) {
	r := newMultiQueryFixture(t)

	got := r.MultiQuerySearch(context.Background(), []string{"first", "second"}, 3, usecase.RetrievalScope{})

	require.Len(t, got, 3)
	assert.Equal(t, "p1", got[0].ID)
	assert.InDelta(t, 0.9, got[0].AdjustedScore, 1e-9)
	assert.Equal(t, "p2", got[1].ID)
	assert.Equal(t, "p4", got[2].ID)

	seen := map[string]bool{}
	for _, p := range got {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
	}
}

func TestRetriever_MultiQuerySearch_SingleQueryEqualsSearch(t *testing.T) {
	r := newMultiQueryFixture(t)
	scope := usecase.RetrievalScope{}

	single, err := r.Search(context.Background(), "first", 2, scope)
	require.NoError(t, err)
	multi := r.MultiQuerySearch(context.Background(), []string{"first"}, 2, scope)

	assert.Equal(t, single, multi)
}

func TestRetriever_MultiQuerySearch_Degrades(t *testing.T) {
	r := newMultiQueryFixture(t)

	partial := r.MultiQuerySearch(context.Background(), []string{"broken", "second"}, 5, usecase.RetrievalScope{})
	require.Len(t, partial, 2)
	assert.Equal(t, "p1", partial[0].ID)

	none := r.MultiQuerySearch(context.Background(), []string{"broken"}, 5, usecase.RetrievalScope{})
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.Empty(t, r.MultiQuerySearch(context.Background(), nil, 5, usecase.RetrievalScope{}))
}

func TestRetriever_MultiQuerySearch_MaxVariants(t *testing.T) {
	emb := new(mockEmbedder)
	idx := new(mockVectorIndex)
	emb.On("Embed", mock.Anything, "first").Return([]float32{1}, nil).Once()
	emb.On("Embed", mock.Anything, "second").Return([]float32{2}, nil).Once()
	idx.On("Query", mock.Anything, mock.MatchedBy(func(q domain.VectorQuery) bool { return q.Vector[0] == 1 })).
		Return([]domain.VectorMatch{match("p1", "d1", 0.7)}, nil)
	idx.On("Query", mock.Anything, mock.MatchedBy(func(q domain.VectorQuery) bool { return q.Vector[0] == 2 })).
		Return([]domain.VectorMatch{match("p2", "d2", 0.6)}, nil)

	r := usecase.NewRetriever(emb, idx, scorestore.NewMemoryStore(), discardLogger(), usecase.WithMaxVariants(2))
	got := r.MultiQuerySearch(context.Background(), []string{"first", "first", "second", "third"}, 5, usecase.RetrievalScope{})

	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p2", got[1].ID)
	emb.AssertExpectations(t)
	emb.AssertNotCalled(t, "Embed", mock.Anything, "third")
}
