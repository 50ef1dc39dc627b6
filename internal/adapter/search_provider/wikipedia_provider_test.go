package search_provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/adapter/search_provider"
)

func TestWikipediaProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "vector database", q.Get("srsearch"))
		assert.Equal(t, "2", q.Get("srlimit"))
		assert.Equal(t, "snippet", q.Get("srprop"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"search":[
			{"title":"Vector database","snippet":"A <span class=\"searchmatch\">vector</span> store &amp; index"},
			{"title":"","snippet":"ignored"}
		]}}`))
	}))
	defer srv.Close()

	p := search_provider.NewWikipediaProvider(srv.URL+"/w/api.php", srv.Client(), discardLogger())
	assert.True(t, p.IsAvailable())
	assert.Equal(t, "Wikipedia", p.Name())

	sources, err := p.Search(context.Background(), "vector database", 2)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	assert.Equal(t, "Vector database", sources[0].Title)
	assert.Equal(t, "A vector store & index", sources[0].Summary)
	assert.Equal(t, srv.URL+"/wiki/Vector_database", sources[0].URL)
	assert.Equal(t, "Wikipedia", sources[0].ProviderName)
}

func TestWikipediaProvider_DefaultArticleBase(t *testing.T) {
	p := search_provider.NewWikipediaProvider("https://en.wikipedia.org/w/api.php", http.DefaultClient, discardLogger())
	assert.Equal(t, "https://en.wikipedia.org/wiki/", p.ArticleBaseURL)
}

func TestWikipediaProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := search_provider.NewWikipediaProvider(srv.URL, srv.Client(), discardLogger())
	_, err := p.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}
