package rag_augur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
)

const defaultEmbedBatchSize = 25

// OllamaEmbedder calls Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	BaseURL   string
	Model     string
	BatchSize int
	Client    *http.Client
	logger    *slog.Logger
}

// NewOllamaEmbedder constructs an embedder. A non-positive batchSize uses 25.
func NewOllamaEmbedder(baseURL, model string, batchSize int, client *http.Client, logger *slog.Logger) *OllamaEmbedder {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OllamaEmbedder{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Model:     model,
		BatchSize: batchSize,
		Client:    client,
		logger:    logger,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the vector for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in batches of BatchSize. A failed batch is retried
// with half the size until single texts are sent; a single-text failure is returned.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embedBatch(ctx, texts, e.BatchSize)
}

func (e *OllamaEmbedder) embedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := e.encode(ctx, batch)
		if err != nil {
			if len(batch) <= 1 || ctx.Err() != nil {
				return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			// Halve what was actually sent so a short tail batch splits at once.
			next := len(batch) / 2
			e.logger.Warn("embed_batch_retry",
				slog.Int("batch_start", start),
				slog.Int("batch_end", end),
				slog.Int("next_batch_size", next),
				slog.String("error", err.Error()))
			metrics.EmbedBatchRetriesTotal.Inc()

			vectors, err = e.embedBatch(ctx, batch, next)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *OllamaEmbedder) encode(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()

	jsonData, err := json.Marshal(embedRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embed", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		e.logger.Error("ollama_embed_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.logger.Error("ollama_embed_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(respBody.Embeddings), len(texts))
	}

	e.logger.Debug("ollama_embed_completed",
		slog.Int("embedding_count", len(respBody.Embeddings)),
		slog.Duration("elapsed", time.Since(start)))

	return respBody.Embeddings, nil
}

func (e *OllamaEmbedder) Version() string {
	return e.Model
}

var _ domain.Embedder = (*OllamaEmbedder)(nil)
