package search_provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"knowledge-rag/internal/domain"
)

const (
	wikipediaProviderName = "Wikipedia"
	wikipediaUserAgent    = "knowledge-rag/1.0 (enrichment)"
)

type wikipediaSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// WikipediaProvider queries the MediaWiki search API. It needs no credentials.
type WikipediaProvider struct {
	APIURL         string
	ArticleBaseURL string
	Client         *http.Client
	logger         *slog.Logger
}

// NewWikipediaProvider constructs a provider for the given api.php endpoint.
// Article links are derived from the endpoint host.
func NewWikipediaProvider(apiURL string, client *http.Client, logger *slog.Logger) *WikipediaProvider {
	base := "https://en.wikipedia.org/wiki/"
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		base = u.Scheme + "://" + u.Host + "/wiki/"
	}
	return &WikipediaProvider{
		APIURL:         apiURL,
		ArticleBaseURL: base,
		Client:         client,
		logger:         logger,
	}
}

func (p *WikipediaProvider) Name() string { return wikipediaProviderName }

func (p *WikipediaProvider) IsAvailable() bool { return true }

func (p *WikipediaProvider) Search(ctx context.Context, query string, maxResults int) ([]domain.ExternalSource, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(maxResults))
	params.Set("srprop", "snippet")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", wikipediaUserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wikipedia: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned %d", resp.StatusCode)
	}

	var decoded wikipediaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode wikipedia response: %w", err)
	}

	sources := make([]domain.ExternalSource, 0, len(decoded.Query.Search))
	for _, item := range decoded.Query.Search {
		if item.Title == "" {
			continue
		}
		sources = append(sources, domain.ExternalSource{
			Title:        item.Title,
			Summary:      strings.TrimSpace(stripHTML(item.Snippet)),
			URL:          p.ArticleBaseURL + url.PathEscape(strings.ReplaceAll(item.Title, " ", "_")),
			ProviderName: wikipediaProviderName,
		})
	}

	p.logger.Debug("wikipedia_search_completed",
		slog.String("query", query),
		slog.Int("results", len(sources)))
	return sources, nil
}

var _ domain.SearchProvider = (*WikipediaProvider)(nil)
