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
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Format    string         `json:"format,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// OllamaGenerator sends prompts to Ollama's chat endpoint.
type OllamaGenerator struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

// NewOllamaGenerator constructs a generator using the provided endpoint and model name.
func NewOllamaGenerator(baseURL, model string, client *http.Client, logger *slog.Logger) *OllamaGenerator {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &OllamaGenerator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		logger:  logger,
	}
}

func (g *OllamaGenerator) buildRequest(req domain.GenerateRequest) chatRequest {
	body := chatRequest{
		Model:     g.Model,
		Messages:  []chatMessage{{Role: "user", Content: req.Prompt}},
		Stream:    false,
		KeepAlive: "10m",
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.ResponseFormat == domain.ResponseFormatJSON {
		body.Format = "json"
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	return body
}

// Complete sends the prompt to Ollama and returns the assistant message.
func (g *OllamaGenerator) Complete(ctx context.Context, req domain.GenerateRequest) (string, error) {
	start := time.Now()

	jsonPayload, err := json.Marshal(g.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", g.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		g.logger.Warn("generation_call_failed",
			slog.String("model", g.Model),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	content := strings.TrimSpace(chatResp.Message.Content)
	if content == "" {
		return "", fmt.Errorf("generation endpoint returned an empty message")
	}

	g.logger.Debug("generation_completed",
		slog.String("model", g.Model),
		slog.Int("chars", len(content)),
		slog.Bool("json", req.ResponseFormat == domain.ResponseFormatJSON),
		slog.Duration("elapsed", time.Since(start)))

	return content, nil
}

// Version returns the wrapped model name.
func (g *OllamaGenerator) Version() string {
	return g.Model
}

var _ domain.Generator = (*OllamaGenerator)(nil)
