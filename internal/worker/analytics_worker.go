package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/infra/metrics"
)

const (
	flushTimeout   = 10 * time.Second
	initialBackoff = 1 * time.Second
	maxBackoff     = 5 * time.Minute
)

// AnalyticsWorker buffers query analytics and writes them in batches.
// Record never blocks: rows that do not fit in the buffer are dropped.
type AnalyticsWorker struct {
	repo          domain.AnalyticsRepository
	logger        *slog.Logger
	queue         chan domain.QueryAnalytics
	batchSize     int
	maxPending    int
	flushInterval time.Duration
	stopChan      chan struct{}
	done          chan struct{}
	stopOnce      sync.Once

	pending []domain.QueryAnalytics
	backoff time.Duration
}

func NewAnalyticsWorker(
	repo domain.AnalyticsRepository,
	bufferSize int,
	batchSize int,
	flushInterval time.Duration,
	logger *slog.Logger,
) *AnalyticsWorker {
	return &AnalyticsWorker{
		repo:          repo,
		logger:        logger,
		queue:         make(chan domain.QueryAnalytics, bufferSize),
		batchSize:     batchSize,
		maxPending:    max(bufferSize, batchSize),
		flushInterval: flushInterval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Record enqueues a row.
func (w *AnalyticsWorker) Record(_ context.Context, a domain.QueryAnalytics) {
	select {
	case w.queue <- a:
	default:
		metrics.AnalyticsDroppedTotal.Inc()
		w.logger.Warn("analytics_dropped", "query_id", a.QueryID, "reason", "buffer full")
	}
}

func (w *AnalyticsWorker) Start() {
	w.logger.Info("Starting AnalyticsWorker")
	go w.run()
}

// Stop flushes what is buffered and waits for the worker to exit.
func (w *AnalyticsWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping AnalyticsWorker")
		close(w.stopChan)
	})
	<-w.done
}

func (w *AnalyticsWorker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			w.drain()
			w.flush()
			return
		case a := <-w.queue:
			w.pending = append(w.pending, a)
			if len(w.pending) >= w.batchSize && w.backoff == 0 {
				w.flush()
			}
		case <-ticker.C:
			w.flush()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.flushInterval)
			}
		}
	}
}

func (w *AnalyticsWorker) drain() {
	for {
		select {
		case a := <-w.queue:
			w.pending = append(w.pending, a)
		default:
			return
		}
	}
}

// flush writes pending rows. On failure the rows are kept for the next
// attempt, trimmed to maxPending from the oldest end.
func (w *AnalyticsWorker) flush() {
	if len(w.pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := w.repo.InsertBatch(ctx, w.pending); err != nil {
		w.backoff = w.nextBackoff(w.backoff)
		if over := len(w.pending) - w.maxPending; over > 0 {
			w.pending = w.pending[over:]
			metrics.AnalyticsDroppedTotal.Add(float64(over))
		}
		w.logger.Warn("analytics_flush_failed", "rows", len(w.pending), "backoff", w.backoff, "error", err)
		return
	}

	w.logger.Debug("analytics_flushed", "rows", len(w.pending))
	w.pending = nil
	w.backoff = 0
}

func (w *AnalyticsWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
