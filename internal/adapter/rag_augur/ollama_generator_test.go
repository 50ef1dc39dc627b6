package rag_augur

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"knowledge-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest_JSONFormat(t *testing.T) {
	gen := NewOllamaGenerator("http://localhost:11434", "llama3.1:8b", nil, discardLogger())
	body := gen.buildRequest(domain.GenerateRequest{
		Prompt:         "judge this",
		ResponseFormat: domain.ResponseFormatJSON,
		Temperature:    0.1,
		MaxTokens:      300,
	})

	assert.Equal(t, "json", body.Format)
	assert.Equal(t, 0.1, body.Options["temperature"])
	assert.Equal(t, 300, body.Options["num_predict"])
	assert.False(t, body.Stream)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)
}

func TestBuildRequest_TextFormatOmitsFormat(t *testing.T) {
	gen := NewOllamaGenerator("http://localhost:11434", "llama3.1:8b", nil, discardLogger())
	body := gen.buildRequest(domain.GenerateRequest{Prompt: "p", Temperature: 0.2})

	assert.Empty(t, body.Format)
	assert.NotContains(t, body.Options, "num_predict")
}

func TestComplete_Success(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "  The answer [1]. \n"},
			"done":    true,
		})
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "llama3.1:8b", &http.Client{Timeout: time.Second}, discardLogger())
	out, err := gen.Complete(context.Background(), domain.GenerateRequest{Prompt: "question", Temperature: 0.2, MaxTokens: 600})

	require.NoError(t, err)
	assert.Equal(t, "The answer [1].", out)
	assert.Equal(t, "llama3.1:8b", captured.Model)
	assert.Equal(t, "question", captured.Messages[0].Content)
	assert.EqualValues(t, 600, captured.Options["num_predict"])
}

func TestComplete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "m", srv.Client(), discardLogger())
	_, err := gen.Complete(context.Background(), domain.GenerateRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestComplete_EmptyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"   "},"done":true}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "m", srv.Client(), discardLogger())
	_, err := gen.Complete(context.Background(), domain.GenerateRequest{Prompt: "p"})
	assert.Error(t, err)
}
