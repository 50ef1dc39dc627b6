// Package metrics provides Prometheus metrics for the question-answering pipeline.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kbrag"

var (
	// AskTotal counts answered questions by verdict outcome.
	AskTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ask_total",
			Help:      "Total number of answered questions",
		},
		[]string{"outcome"},
	)

	// AskDuration measures end-to-end ask latency.
	AskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ask_duration_seconds",
			Help:      "Duration of ask requests in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	// RetrievalVariantsTotal counts per-variant searches inside multi-query retrieval.
	RetrievalVariantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_variants_total",
			Help:      "Total number of query-variant searches",
		},
		[]string{"status"},
	)

	// RetrievedPassages observes merged passage counts.
	RetrievedPassages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_passages",
			Help:      "Distribution of passages returned by multi-query retrieval",
			Buckets:   []float64{0, 1, 3, 5, 10, 24, 50},
		},
	)

	// CompletenessScore observes judged completeness.
	CompletenessScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completeness_score",
			Help:      "Distribution of completeness scores",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.7, 0.85, 0.95, 1},
		},
	)

	// FeedbackTotal counts ingested ratings by gate decision.
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Total number of rating events",
		},
		[]string{"accepted"},
	)

	// QualityVotesTotal counts votes applied to document quality scores.
	QualityVotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_votes_total",
			Help:      "Total number of votes applied to quality scores",
		},
		[]string{"direction"},
	)

	// EnrichmentTotal counts provider calls made during enrichment.
	EnrichmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_provider_calls_total",
			Help:      "Total number of enrichment provider calls",
		},
		[]string{"provider", "status"},
	)

	// EmbedBatchRetriesTotal counts batch splits after embedding failures.
	EmbedBatchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_batch_retries_total",
			Help:      "Total number of embedding batches retried with a smaller size",
		},
	)

	// AnalyticsDroppedTotal counts analytics rows dropped because the buffer was full.
	AnalyticsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_dropped_total",
			Help:      "Total number of analytics rows dropped",
		},
	)
)

// RecordAsk records one answered question.
func RecordAsk(outcome string, seconds float64) {
	AskTotal.WithLabelValues(outcome).Inc()
	AskDuration.Observe(seconds)
}

// RecordVariant records one query-variant search.
func RecordVariant(ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	RetrievalVariantsTotal.WithLabelValues(status).Inc()
}

// RecordFeedback records a rating decision.
func RecordFeedback(accepted bool) {
	FeedbackTotal.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

// RecordEnrichmentCall records one provider call.
func RecordEnrichmentCall(provider, status string) {
	EnrichmentTotal.WithLabelValues(provider, status).Inc()
}
