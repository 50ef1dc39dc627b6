package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"knowledge-rag/internal/domain"
)

// upsertBatchSize is the number of vectors written per index call.
const upsertBatchSize = 100

// ChunkInput is one pre-chunked piece of a document to index.
type ChunkInput struct {
	Text     string
	Page     *int
	Metadata map[string]string
}

// IndexChunksInput identifies the document being (re)indexed.
type IndexChunksInput struct {
	Namespace   string
	DocumentID  string
	Title       string
	SourceURL   string
	SourceType  string
	StorageType string
	Chunks      []ChunkInput
}

// IndexChunksOutput reports what was written.
type IndexChunksOutput struct {
	DocumentID     string
	ChunksIndexed  int
	ChunksReplaced int64
}

// KnowledgeBaseUsecase manages the indexed documents of a namespace.
type KnowledgeBaseUsecase interface {
	IndexChunks(ctx context.Context, input IndexChunksInput) (*IndexChunksOutput, error)
	DeleteDocument(ctx context.Context, namespace, documentID string) (int64, error)
	URLExists(ctx context.Context, namespace, url string) (string, bool, error)
	ListDocuments(ctx context.Context, namespace string) ([]domain.DocumentSummary, error)
}

type knowledgeBaseUsecase struct {
	embedder  domain.Embedder
	index     domain.VectorIndex
	catalog   domain.DocumentCatalog
	txManager domain.TransactionManager
	logger    *slog.Logger
	now       func() time.Time
}

// NewKnowledgeBaseUsecase creates a new KnowledgeBaseUsecase.
func NewKnowledgeBaseUsecase(
	embedder domain.Embedder,
	index domain.VectorIndex,
	catalog domain.DocumentCatalog,
	txManager domain.TransactionManager,
	logger *slog.Logger,
) KnowledgeBaseUsecase {
	return &knowledgeBaseUsecase{
		embedder:  embedder,
		index:     index,
		catalog:   catalog,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

func (u *knowledgeBaseUsecase) IndexChunks(ctx context.Context, input IndexChunksInput) (*IndexChunksOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidChunk)
	}
	if len(input.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to index", domain.ErrInvalidChunk)
	}

	texts := make([]string, len(input.Chunks))
	for i, c := range input.Chunks {
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("%w: chunk %d is empty", domain.ErrInvalidChunk, i)
		}
		texts[i] = c.Text
	}

	// 1. Embed outside the transaction
	vectors, err := u.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}

	records := u.buildRecords(input, vectors)

	// 2. Replace the previous version of the document atomically.
	out := &IndexChunksOutput{DocumentID: input.DocumentID}
	err = u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		replaced, err := u.index.Delete(ctx, input.Namespace, domain.VectorFilter{DocumentIDs: []string{input.DocumentID}})
		if err != nil {
			return err
		}
		out.ChunksReplaced = replaced

		for start := 0; start < len(records); start += upsertBatchSize {
			end := min(start+upsertBatchSize, len(records))
			n, err := u.index.Upsert(ctx, input.Namespace, records[start:end])
			if err != nil {
				return err
			}
			out.ChunksIndexed += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index document %s: %w", input.DocumentID, err)
	}

	u.logger.Info("document_indexed",
		slog.String("namespace", input.Namespace),
		slog.String("document_id", input.DocumentID),
		slog.Int("chunks", out.ChunksIndexed),
		slog.Int64("replaced", out.ChunksReplaced),
		slog.String("embedder", u.embedder.Version()))
	return out, nil
}

func (u *knowledgeBaseUsecase) buildRecords(input IndexChunksInput, vectors [][]float32) []domain.VectorRecord {
	addedAt := u.now().UTC().Format(time.RFC3339)
	records := make([]domain.VectorRecord, len(input.Chunks))
	for i, c := range input.Chunks {
		meta := make(map[string]string, len(c.Metadata)+8)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta[domain.MetaDocumentID] = input.DocumentID
		meta[domain.MetaAddedAt] = addedAt
		setIfPresent(meta, domain.MetaSource, input.Title)
		setIfPresent(meta, domain.MetaSourceURL, input.SourceURL)
		setIfPresent(meta, domain.MetaSourceType, input.SourceType)
		setIfPresent(meta, domain.MetaStorageType, input.StorageType)
		if c.Page != nil {
			meta[domain.MetaPage] = strconv.Itoa(*c.Page)
		}

		records[i] = domain.VectorRecord{
			ID:         fmt.Sprintf("%s_chunk_%d", input.DocumentID, i),
			DocumentID: input.DocumentID,
			Text:       c.Text,
			Vector:     vectors[i],
			Metadata:   meta,
		}
	}
	return records
}

func setIfPresent(meta map[string]string, key, value string) {
	if value != "" {
		meta[key] = value
	}
}

func (u *knowledgeBaseUsecase) DeleteDocument(ctx context.Context, namespace, documentID string) (int64, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, fmt.Errorf("%w: document id is required", domain.ErrInvalidChunk)
	}
	n, err := u.index.Delete(ctx, namespace, domain.VectorFilter{DocumentIDs: []string{documentID}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	u.logger.Info("document_deleted",
		slog.String("namespace", namespace),
		slog.String("document_id", documentID),
		slog.Int64("chunks", n))
	return n, nil
}

func (u *knowledgeBaseUsecase) URLExists(ctx context.Context, namespace, url string) (string, bool, error) {
	return u.catalog.FindDocumentByURL(ctx, namespace, strings.TrimSpace(url))
}

func (u *knowledgeBaseUsecase) ListDocuments(ctx context.Context, namespace string) ([]domain.DocumentSummary, error) {
	return u.catalog.ListDocuments(ctx, namespace)
}
