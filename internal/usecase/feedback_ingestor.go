package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
)

const reasonScoresUpdated = "Document scores updated"

// FeedbackIngestor turns user ratings into document quality votes.
type FeedbackIngestor interface {
	// Ingest records the rating and votes on the documents it used when the
	// retrieval was relevant and the answer was labelled complete.
	Ingest(ctx context.Context, event domain.RatingEvent) (domain.IngestResult, error)
}

type feedbackIngestor struct {
	scores  domain.QualityScoreStore
	ratings domain.RatingRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewFeedbackIngestor creates a new FeedbackIngestor. ratings may be nil.
func NewFeedbackIngestor(scores domain.QualityScoreStore, ratings domain.RatingRepository, logger *slog.Logger) FeedbackIngestor {
	return &feedbackIngestor{
		scores:  scores,
		ratings: ratings,
		logger:  logger,
		now:     time.Now,
	}
}

// scoringGate reports whether a rating may move quality scores, and why not.
func scoringGate(maxRelevance float64, label domain.CompletenessLabel) (bool, string) {
	if maxRelevance < domain.MinRelevanceForScoring {
		return false, fmt.Sprintf("Document relevance too low (%.2f < %v)", maxRelevance, domain.MinRelevanceForScoring)
	}
	if label != domain.LabelComplete {
		return false, fmt.Sprintf("Answer not complete (status: %s)", label)
	}
	return true, reasonScoresUpdated
}

func (f *feedbackIngestor) Ingest(ctx context.Context, event domain.RatingEvent) (domain.IngestResult, error) {
	direction, err := domain.ParseVoteDirection(string(event.Direction))
	if err != nil {
		return domain.IngestResult{}, err
	}
	label, err := domain.ParseCompletenessLabel(string(event.CompletenessLabel))
	if err != nil {
		return domain.IngestResult{}, err
	}

	maxRelevance := event.MaxRelevance()
	record := domain.RatingRecord{
		ID:                uuid.NewString(),
		UserID:            event.UserID,
		Timestamp:         f.now().UTC(),
		Question:          event.Question,
		Answer:            event.Answer,
		Rating:            direction,
		FeedbackText:      event.FeedbackText,
		DocumentsUsed:     event.DocumentsUsed,
		Completeness:      label,
		MaxRelevanceScore: maxRelevance,
	}
	f.saveRecord(ctx, record)

	accepted, reason := scoringGate(maxRelevance, label)
	result := domain.IngestResult{RatingID: record.ID, Accepted: accepted, Reason: reason}
	metrics.RecordFeedback(accepted)
	if !accepted {
		f.logger.Info("feedback_not_scored",
			slog.String("rating_id", record.ID),
			slog.String("reason", reason))
		return result, nil
	}

	for _, docID := range distinctDocumentIDs(event.DocumentsUsed) {
		if _, err := f.scores.ApplyVote(ctx, docID, direction); err != nil {
			return domain.IngestResult{}, fmt.Errorf("failed to apply vote to %s: %w", docID, err)
		}
		metrics.QualityVotesTotal.WithLabelValues(string(direction)).Inc()
	}

	f.logger.Info("feedback_scored",
		slog.String("rating_id", record.ID),
		slog.String("direction", string(direction)),
		slog.Int("documents", len(event.DocumentsUsed)))
	return result, nil
}

func (f *feedbackIngestor) saveRecord(ctx context.Context, record domain.RatingRecord) {
	if f.ratings == nil {
		return
	}
	if err := f.ratings.Save(ctx, record); err != nil {
		f.logger.Error("rating_save_failed",
			slog.String("rating_id", record.ID),
			slog.String("error", err.Error()))
	}
}

// distinctDocumentIDs drops blanks and repeats, preserving order.
func distinctDocumentIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
