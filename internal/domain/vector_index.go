package domain

import (
	"context"
	"time"
)

// VectorFilter restricts a query or delete to matching chunks.
// Empty fields do not filter.
type VectorFilter struct {
	DocumentIDs []string
	SourceURL   string
}

// IsEmpty reports whether the filter matches everything.
func (f VectorFilter) IsEmpty() bool {
	return len(f.DocumentIDs) == 0 && f.SourceURL == ""
}

// VectorQuery is a nearest-neighbour lookup.
type VectorQuery struct {
	Vector    []float32
	TopK      int
	Namespace string
	Filter    VectorFilter
}

// VectorMatch is one ranked hit. Score is a similarity in [0,1], higher is closer.
type VectorMatch struct {
	ID         string
	Score      float64
	DocumentID string
	Text       string
	Metadata   map[string]string
}

// VectorRecord is one chunk written to the index.
type VectorRecord struct {
	ID         string
	DocumentID string
	Text       string
	Vector     []float32
	Metadata   map[string]string
}

// VectorIndex defines namespaced approximate nearest-neighbour storage.
type VectorIndex interface {
	Query(ctx context.Context, q VectorQuery) ([]VectorMatch, error)
	Upsert(ctx context.Context, namespace string, records []VectorRecord) (int, error)
	Delete(ctx context.Context, namespace string, filter VectorFilter) (int64, error)
}

// DocumentSummary describes one indexed document.
type DocumentSummary struct {
	DocumentID  string
	Title       string
	SourceType  string
	SourceURL   string
	StorageType string
	AddedAt     *time.Time
	ChunkCount  int
}

// DocumentCatalog lists what a namespace contains.
type DocumentCatalog interface {
	ListDocuments(ctx context.Context, namespace string) ([]DocumentSummary, error)
	// FindDocumentByURL returns the document id indexed from url, if any.
	FindDocumentByURL(ctx context.Context, namespace, url string) (string, bool, error)
}
