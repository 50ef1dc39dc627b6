package domain

import (
	"context"
	"fmt"
	"time"
)

// MinRelevanceForScoring is the retrieval similarity a rated answer needs
// before its vote is allowed to move document quality scores.
const MinRelevanceForScoring = 0.4

// CompletenessLabel is the client's view of the verdict it was shown.
type CompletenessLabel string

const (
	LabelComplete   CompletenessLabel = "complete"
	LabelIncomplete CompletenessLabel = "incomplete"
)

// ParseCompletenessLabel validates a raw label string.
func ParseCompletenessLabel(raw string) (CompletenessLabel, error) {
	switch CompletenessLabel(raw) {
	case LabelComplete, LabelIncomplete:
		return CompletenessLabel(raw), nil
	}
	return "", fmt.Errorf("%w: completeness must be complete or incomplete, got %q", ErrInvalidRating, raw)
}

// RatedPassage is the part of a retrieved passage a rating needs.
type RatedPassage struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"doc_id"`
	RawSimilarity float64 `json:"score"`
}

// RatingEvent is one user rating of an answer.
type RatingEvent struct {
	Question          string
	Answer            string
	Direction         VoteDirection
	DocumentsUsed     []string
	RetrievedPassages []RatedPassage
	CompletenessLabel CompletenessLabel
	UserID            string
	FeedbackText      string
}

// MaxRelevance returns the highest raw similarity, 0 when none.
func (e RatingEvent) MaxRelevance() float64 {
	best := 0.0
	for _, p := range e.RetrievedPassages {
		if p.RawSimilarity > best {
			best = p.RawSimilarity
		}
	}
	return best
}

// IngestResult reports whether a rating moved quality scores and why.
type IngestResult struct {
	RatingID string
	Accepted bool
	Reason   string
}

// RatingRecord is the persisted form of a rating.
type RatingRecord struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	Question          string            `json:"question"`
	Answer            string            `json:"answer"`
	Rating            VoteDirection     `json:"rating"`
	FeedbackText      string            `json:"feedback_text,omitempty"`
	DocumentsUsed     []string          `json:"documents_used"`
	Completeness      CompletenessLabel `json:"completeness"`
	MaxRelevanceScore float64           `json:"max_relevance_score"`
}

// RatingRepository persists rating records.
type RatingRepository interface {
	Save(ctx context.Context, record RatingRecord) error
	// ListRecent returns the newest records first.
	ListRecent(ctx context.Context, limit int) ([]RatingRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]RatingRecord, error)
}
