package scorestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"knowledge-rag/internal/domain"
)

const maxConflictRetries = 16

// BadgerStore persists quality scores in an embedded Badger database.
// Votes on one key are serialized in process by a per-key lock; a commit that
// still conflicts (another process sharing the directory) is retried.
type BadgerStore struct {
	store  *badgerhold.Store
	locks  sync.Map // key -> *sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// OpenBadgerStore opens (or creates) the database under dir.
func OpenBadgerStore(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create quality store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger quality store: %w", err)
	}
	return NewBadgerStore(store, logger), nil
}

// NewBadgerStore wraps an already opened badgerhold store.
func NewBadgerStore(store *badgerhold.Store, logger *slog.Logger) *BadgerStore {
	return &BadgerStore{store: store, logger: logger, now: time.Now}
}

func (s *BadgerStore) Close() error {
	return s.store.Close()
}

func (s *BadgerStore) QualityFactor(ctx context.Context, key string) (float64, error) {
	score, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return domain.NeutralQualityFactor, err
	}
	return domain.QualityFactor(&score), nil
}

func (s *BadgerStore) ApplyVote(ctx context.Context, key string, direction domain.VoteDirection) (domain.QualityScore, error) {
	lock, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	var updated domain.QualityScore
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.QualityScore{}, err
		}

		err := s.store.Badger().Update(func(tx *badger.Txn) error {
			current := domain.QualityScore{DocumentID: key}
			if err := s.store.TxGet(tx, key, &current); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
				return err
			}
			current.Apply(direction, s.now())
			if err := s.store.TxUpsert(tx, key, &current); err != nil {
				return err
			}
			updated = current
			return nil
		})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return domain.QualityScore{}, fmt.Errorf("failed to apply vote for %s: %w", key, err)
		}
		s.logger.Debug("quality_vote_conflict_retry",
			slog.String("document_id", key),
			slog.Int("attempt", attempt+1))
	}

	return domain.QualityScore{}, fmt.Errorf("failed to apply vote for %s: %w", key, badger.ErrConflict)
}

func (s *BadgerStore) Get(_ context.Context, key string) (domain.QualityScore, bool, error) {
	var score domain.QualityScore
	if err := s.store.Get(key, &score); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.QualityScore{}, false, nil
		}
		return domain.QualityScore{}, false, fmt.Errorf("failed to get quality score: %w", err)
	}
	return score, true, nil
}

func (s *BadgerStore) List(_ context.Context) ([]domain.QualityScore, error) {
	var scores []domain.QualityScore
	if err := s.store.Find(&scores, nil); err != nil {
		return nil, fmt.Errorf("failed to list quality scores: %w", err)
	}
	sortScores(scores)
	return scores, nil
}

var _ domain.QualityScoreStore = (*BadgerStore)(nil)
