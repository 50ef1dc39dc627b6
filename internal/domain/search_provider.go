package domain

import "context"

// ExternalSource is a single hit returned by an external search provider.
type ExternalSource struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	URL          string `json:"url"`
	ProviderName string `json:"source"`
}

// SearchProvider defines an external search backend used for enrichment.
// Providers report unavailability through IsAvailable rather than failing at
// construction time, so a chain can be configured once and skip missing ones.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]ExternalSource, error)
	IsAvailable() bool
	Name() string
}

// EnrichmentResult summarizes one enrichment attempt.
type EnrichmentResult struct {
	Performed       bool             `json:"enrichment_performed"`
	Sources         []ExternalSource `json:"sources_found"`
	SearchTermsUsed []string         `json:"search_terms"`
	Message         string           `json:"message"`
}
