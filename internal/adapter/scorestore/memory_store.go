package scorestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"knowledge-rag/internal/domain"
)

type memoryEntry struct {
	mu    sync.Mutex
	score domain.QualityScore
	voted bool
}

// MemoryStore keeps quality scores in process. Each key has its own lock so
// votes on different documents proceed in parallel.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) entry(key string, create bool) *memoryEntry {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &memoryEntry{score: domain.QualityScore{DocumentID: key}}
	s.entries[key] = e
	return e
}

func (s *MemoryStore) QualityFactor(ctx context.Context, key string) (float64, error) {
	score, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return domain.NeutralQualityFactor, err
	}
	return domain.QualityFactor(&score), nil
}

func (s *MemoryStore) ApplyVote(ctx context.Context, key string, direction domain.VoteDirection) (domain.QualityScore, error) {
	if err := ctx.Err(); err != nil {
		return domain.QualityScore{}, err
	}
	e := s.entry(key, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.score.Apply(direction, s.now())
	e.voted = true
	return e.score, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (domain.QualityScore, bool, error) {
	e := s.entry(key, false)
	if e == nil {
		return domain.QualityScore{}, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score, e.voted, nil
}

func (s *MemoryStore) List(_ context.Context) ([]domain.QualityScore, error) {
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	scores := make([]domain.QualityScore, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.voted {
			scores = append(scores, e.score)
		}
		e.mu.Unlock()
	}
	sortScores(scores)
	return scores, nil
}

// sortScores orders by vote count, then document id.
func sortScores(scores []domain.QualityScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].TotalVotes != scores[j].TotalVotes {
			return scores[i].TotalVotes > scores[j].TotalVotes
		}
		return scores[i].DocumentID < scores[j].DocumentID
	})
}

var _ domain.QualityScoreStore = (*MemoryStore)(nil)
