package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rag_http "knowledge-rag/internal/adapter/rag_http"
)

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-User-ID"))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL+"/", "", srv.Client()).Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, "GET /v1/stats: unexpected status 502", err.Error())
}

func TestAPIClient_EscapesDocumentID(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"doc_id":"a b","chunks_indexed":1}`))
	}))
	defer srv.Close()

	resp, err := NewAPIClient(srv.URL, "u", srv.Client()).IndexChunks(context.Background(), "a b", rag_http.IndexChunksRequest{Chunks: []rag_http.ChunkRequest{{Text: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "/v1/documents/a%20b/chunks", path)
	assert.Equal(t, 1, resp.ChunksIndexed)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
