package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	rag_http "knowledge-rag/internal/adapter/rag_http"
	"knowledge-rag/internal/domain"
)

// APIClient talks to the knowledge-rag HTTP API.
type APIClient struct {
	baseURL string
	userID  string
	client  *http.Client
}

func NewAPIClient(baseURL, userID string, client *http.Client) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  client,
	}
}

func (c *APIClient) Ask(ctx context.Context, req rag_http.AskRequest) (*rag_http.AskResponse, error) {
	var out rag_http.AskResponse
	if err := c.do(ctx, http.MethodPost, "/v1/ask", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Stats(ctx context.Context) (*rag_http.StatsResponse, error) {
	var out rag_http.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Ratings(ctx context.Context, userID string, limit int) ([]domain.RatingRecord, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if userID != "" {
		q.Set("user_id", userID)
	}
	var out struct {
		Ratings []domain.RatingRecord `json:"ratings"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/ratings?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Ratings, nil
}

func (c *APIClient) Feedback(ctx context.Context, req rag_http.FeedbackRequest) (*rag_http.FeedbackResponse, error) {
	var out rag_http.FeedbackResponse
	if err := c.do(ctx, http.MethodPost, "/v1/feedback", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) IndexChunks(ctx context.Context, docID string, req rag_http.IndexChunksRequest) (*rag_http.IndexChunksResponse, error) {
	var out rag_http.IndexChunksResponse
	path := "/v1/documents/" + url.PathEscape(docID) + "/chunks"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
