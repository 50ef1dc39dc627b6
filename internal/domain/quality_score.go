package domain

import (
	"context"
	"fmt"
	"time"
)

const (
	// NeutralQualityFactor leaves raw similarity untouched.
	NeutralQualityFactor = 1.0
	MinQualityFactor     = 0.9
	MaxQualityFactor     = 1.1
	// MinVotesForQuality is the vote count below which a document stays neutral.
	MinVotesForQuality = 3
)

// VoteDirection is a user's approval or rejection.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ParseVoteDirection validates a raw direction string.
func ParseVoteDirection(raw string) (VoteDirection, error) {
	switch VoteDirection(raw) {
	case VoteUp, VoteDown:
		return VoteDirection(raw), nil
	}
	return "", fmt.Errorf("%w: rating must be up or down, got %q", ErrInvalidRating, raw)
}

// QualityScore accumulates votes for one document.
type QualityScore struct {
	DocumentID  string    `json:"document_id"`
	Upvotes     uint      `json:"upvotes"`
	Downvotes   uint      `json:"downvotes"`
	TotalVotes  uint      `json:"total_votes"`
	Score       float64   `json:"score"`
	LastUpdated time.Time `json:"last_updated"`
}

// Apply records one vote and recomputes the derived fields.
func (s *QualityScore) Apply(direction VoteDirection, now time.Time) {
	if direction == VoteUp {
		s.Upvotes++
	} else {
		s.Downvotes++
	}
	s.TotalVotes = s.Upvotes + s.Downvotes
	s.Score = 0
	if s.TotalVotes > 0 {
		s.Score = (float64(s.Upvotes) - float64(s.Downvotes)) / float64(s.TotalVotes)
	}
	s.LastUpdated = now
}

// QualityFactor maps a score record to a retrieval multiplier in [0.9, 1.1].
// A nil record or one with fewer than three votes is neutral.
func QualityFactor(s *QualityScore) float64 {
	if s == nil || s.TotalVotes < MinVotesForQuality {
		return NeutralQualityFactor
	}
	f := NeutralQualityFactor + s.Score/10
	return max(MinQualityFactor, min(MaxQualityFactor, f))
}

// QualityScoreStore holds per-document vote counters.
// ApplyVote calls for the same key are linearized; calls for different keys
// do not block each other.
type QualityScoreStore interface {
	QualityFactor(ctx context.Context, key string) (float64, error)
	ApplyVote(ctx context.Context, key string, direction VoteDirection) (QualityScore, error)
	// Get returns false when no vote was ever recorded for key.
	Get(ctx context.Context, key string) (QualityScore, bool, error)
	List(ctx context.Context) ([]QualityScore, error)
}
