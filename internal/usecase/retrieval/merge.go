package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
)

// DistinctQueries drops blank and repeated query strings, keeping the first
// occurrence of each.
func DistinctQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

// SearchVariants runs search for every query in parallel. Each variant writes
// only to its own slot, so results come back in query order regardless of
// completion order. Variant failures are reported in the result, never
// returned.
func SearchVariants(ctx context.Context, queries []string, search SearchFunc, logger *slog.Logger) []VariantResult {
	results := make([]VariantResult, len(queries))
	if len(queries) == 0 {
		return results
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(queries))
	for i, q := range queries {
		g.Go(func() error {
			passages, err := search(gctx, q)
			results[i] = VariantResult{Index: i, Query: q, Passages: passages, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		metrics.RecordVariant(r.Err == nil)
		if r.Err != nil {
			failed++
			logger.Warn("retrieval_variant_failed",
				slog.Int("variant", r.Index),
				slog.String("query", r.Query),
				slog.String("error", r.Err.Error()))
		}
	}
	logger.Info("parallel_vector_search_completed",
		slog.Int("query_count", len(queries)),
		slog.Int("failed", failed),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return results
}

// MergeVariants combines per-variant passage lists into one ranking of at
// most k passages. A passage seen in several variants appears once, at the
// position it was first seen, carrying the highest adjusted score any
// variant gave it. Failed variants contribute nothing.
func MergeVariants(results []VariantResult, k int) []domain.Passage {
	type entry struct {
		passage domain.Passage
		best    domain.Passage
	}
	order := make([]string, 0)
	byID := make(map[string]*entry)

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, p := range r.Passages {
			e, ok := byID[p.ID]
			if !ok {
				byID[p.ID] = &entry{passage: p, best: p}
				order = append(order, p.ID)
				continue
			}
			if p.AdjustedScore > e.best.AdjustedScore {
				e.best = p
			}
		}
	}

	merged := make([]domain.Passage, 0, len(order))
	for _, id := range order {
		e := byID[id]
		p := e.passage
		p.SimilarityScore = e.best.SimilarityScore
		p.QualityFactor = e.best.QualityFactor
		p.AdjustedScore = e.best.AdjustedScore
		merged = append(merged, p)
	}
	return RankByAdjustedScore(merged, k)
}
