package search_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"knowledge-rag/internal/domain"
)

const exaProviderName = "Exa"

type exaSearchRequest struct {
	Query      string      `json:"query"`
	Type       string      `json:"type"`
	NumResults int         `json:"numResults"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaSearchResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Text  string `json:"text"`
	} `json:"results"`
}

// ExaProvider runs neural search against the Exa API. It is unavailable
// without an API key.
type ExaProvider struct {
	BaseURL string
	apiKey  string
	Client  *http.Client
	logger  *slog.Logger
}

// NewExaProvider constructs an Exa provider.
func NewExaProvider(baseURL, apiKey string, client *http.Client, logger *slog.Logger) *ExaProvider {
	return &ExaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		Client:  client,
		logger:  logger,
	}
}

func (p *ExaProvider) Name() string { return exaProviderName }

func (p *ExaProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *ExaProvider) Search(ctx context.Context, query string, maxResults int) ([]domain.ExternalSource, error) {
	if !p.IsAvailable() {
		return nil, nil
	}

	payload, err := json.Marshal(exaSearchRequest{
		Query:      query,
		Type:       "neural",
		NumResults: maxResults,
		Contents:   exaContents{Text: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create exa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call exa: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exa returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded exaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode exa response: %w", err)
	}

	sources := make([]domain.ExternalSource, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.URL == "" {
			continue
		}
		sources = append(sources, domain.ExternalSource{
			Title:        r.Title,
			Summary:      cleanText(r.Text, summaryMaxLength),
			URL:          r.URL,
			ProviderName: exaProviderName,
		})
	}

	p.logger.Debug("exa_search_completed",
		slog.String("query", query),
		slog.Int("results", len(sources)))
	return sources, nil
}

var _ domain.SearchProvider = (*ExaProvider)(nil)
