package retrieval

import (
	"context"

	"knowledge-rag/internal/domain"
)

// SearchFunc runs one single-query search.
type SearchFunc func(ctx context.Context, query string) ([]domain.Passage, error)

// VariantResult is the outcome of searching one query variant.
type VariantResult struct {
	Index    int
	Query    string
	Passages []domain.Passage
	Err      error
}
