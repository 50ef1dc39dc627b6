package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"knowledge-rag/internal/domain"
)

var errEmptyDeleteFilter = errors.New("refusing to delete without a filter")

type pgvectorIndex struct {
	pool PgxPool
}

// PgvectorIndex is a VectorIndex and DocumentCatalog over the kb_chunks table.
type PgvectorIndex interface {
	domain.VectorIndex
	domain.DocumentCatalog
}

// NewPgvectorIndex creates the chunk index repository.
func NewPgvectorIndex(pool PgxPool) PgvectorIndex {
	return &pgvectorIndex{pool: pool}
}

// filterClause appends AND conditions for f, numbering placeholders after args.
func filterClause(f domain.VectorFilter, args []any) (string, []any) {
	var b strings.Builder
	if len(f.DocumentIDs) > 0 {
		args = append(args, f.DocumentIDs)
		b.WriteString(" AND document_id = ANY($" + strconv.Itoa(len(args)) + ")")
	}
	if f.SourceURL != "" {
		args = append(args, f.SourceURL)
		b.WriteString(" AND metadata->>'" + domain.MetaSourceURL + "' = $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func (r *pgvectorIndex) Query(ctx context.Context, q domain.VectorQuery) ([]domain.VectorMatch, error) {
	if q.TopK <= 0 {
		return nil, nil
	}

	args := []any{pgvector.NewVector(q.Vector), q.Namespace}
	where, args := filterClause(q.Filter, args)
	args = append(args, q.TopK)

	query := `
		SELECT id, document_id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM kb_chunks
		WHERE namespace = $2` + where + `
		ORDER BY embedding <=> $1
		LIMIT $` + strconv.Itoa(len(args))

	rows, err := executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var matches []domain.VectorMatch
	for rows.Next() {
		var m domain.VectorMatch
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Text, &m.Metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return matches, nil
}

func (r *pgvectorIndex) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) (int, error) {
	query := `
		INSERT INTO kb_chunks (id, namespace, document_id, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			namespace = EXCLUDED.namespace,
			document_id = EXCLUDED.document_id,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`
	exec := executor(ctx, r.pool)
	now := time.Now().UTC()
	for i, rec := range records {
		meta := rec.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		if _, err := exec.Exec(ctx, query,
			rec.ID, namespace, rec.DocumentID, rec.Text, pgvector.NewVector(rec.Vector), meta, now,
		); err != nil {
			return i, fmt.Errorf("failed to upsert chunk %s: %w", rec.ID, err)
		}
	}
	return len(records), nil
}

func (r *pgvectorIndex) Delete(ctx context.Context, namespace string, filter domain.VectorFilter) (int64, error) {
	if filter.IsEmpty() {
		return 0, errEmptyDeleteFilter
	}
	where, args := filterClause(filter, []any{namespace})
	tag, err := executor(ctx, r.pool).Exec(ctx, `DELETE FROM kb_chunks WHERE namespace = $1`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgvectorIndex) ListDocuments(ctx context.Context, namespace string) ([]domain.DocumentSummary, error) {
	query := `
		SELECT document_id,
		       (array_agg(metadata ORDER BY created_at))[1] AS metadata,
		       MIN(created_at) AS added_at,
		       COUNT(*) AS chunk_count
		FROM kb_chunks
		WHERE namespace = $1
		GROUP BY document_id
		ORDER BY added_at DESC
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentSummary
	for rows.Next() {
		var (
			docID   string
			meta    map[string]string
			addedAt time.Time
			count   int64
		)
		if err := rows.Scan(&docID, &meta, &addedAt, &count); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, summaryFromMetadata(docID, meta, addedAt, int(count)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return docs, nil
}

func summaryFromMetadata(docID string, meta map[string]string, firstSeen time.Time, chunks int) domain.DocumentSummary {
	added := firstSeen
	if raw := meta[domain.MetaAddedAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			added = t
		}
	}
	return domain.DocumentSummary{
		DocumentID:  docID,
		Title:       domain.TitleFromMetadata(meta),
		SourceType:  meta[domain.MetaSourceType],
		SourceURL:   meta[domain.MetaSourceURL],
		StorageType: meta[domain.MetaStorageType],
		AddedAt:     &added,
		ChunkCount:  chunks,
	}
}

func (r *pgvectorIndex) FindDocumentByURL(ctx context.Context, namespace, url string) (string, bool, error) {
	var docID string
	err := executor(ctx, r.pool).QueryRow(ctx, `
		SELECT document_id FROM kb_chunks
		WHERE namespace = $1 AND metadata->>'`+domain.MetaSourceURL+`' = $2
		LIMIT 1
	`, namespace, url).Scan(&docID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to find document by url: %w", err)
	}
	return docID, true, nil
}
