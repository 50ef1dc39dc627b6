package retrieval

import (
	"sort"

	"knowledge-rag/internal/domain"
)

// ApplyQualityFactors rescales each passage by the factor at the same index.
// Missing factors are treated as neutral.
func ApplyQualityFactors(passages []domain.Passage, factors []float64) []domain.Passage {
	out := make([]domain.Passage, len(passages))
	for i, p := range passages {
		f := domain.NeutralQualityFactor
		if i < len(factors) {
			f = factors[i]
		}
		out[i] = p.WithQualityFactor(f)
	}
	return out
}

// RankByAdjustedScore sorts passages by adjusted score, highest first, and
// keeps at most k. Equal scores keep their input order.
func RankByAdjustedScore(passages []domain.Passage, k int) []domain.Passage {
	if k <= 0 || len(passages) == 0 {
		return []domain.Passage{}
	}
	ranked := make([]domain.Passage, len(passages))
	copy(ranked, passages)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AdjustedScore > ranked[j].AdjustedScore
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// AverageTopScore is the mean adjusted score of the first n passages,
// 0 when there are none.
func AverageTopScore(passages []domain.Passage, n int) float64 {
	n = min(n, len(passages))
	if n <= 0 {
		return 0
	}
	var sum float64
	for _, p := range passages[:n] {
		sum += p.AdjustedScore
	}
	return sum / float64(n)
}
