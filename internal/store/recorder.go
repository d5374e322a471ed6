package store

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Recorder writes analytics off the request path on a bounded worker pool.
// A nil Recorder discards everything.
type Recorder struct {
	store  *Store
	logger *zap.Logger
	pool   *pool.Pool

	mu     sync.RWMutex
	closed bool
}

func NewRecorder(s *Store, logger *zap.Logger, workers int) *Recorder {
	if workers <= 0 {
		workers = 4
	}
	return &Recorder{
		store:  s,
		logger: logger,
		pool:   pool.New().WithMaxGoroutines(workers),
	}
}

func (r *Recorder) Visit(v Visit) {
	if r == nil {
		return
	}
	r.submit(func(ctx context.Context) error { return r.store.RecordVisit(ctx, v) })
}

func (r *Recorder) Interaction(i Interaction) {
	if r == nil {
		return
	}
	r.submit(func(ctx context.Context) error { return r.store.RecordInteraction(ctx, i) })
}

func (r *Recorder) submit(fn func(ctx context.Context) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.pool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.logger.Warn("Error recording analytics", zap.Error(err))
		}
	})
}

// Close waits for pending writes. Later submissions are dropped.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.pool.Wait()
}

// RunCleanup removes expired records now and then every interval until ctx
// is done.
func (r *Recorder) RunCleanup(ctx context.Context, interval time.Duration) {
	if r == nil {
		return
	}
	cleanup := func() {
		n, err := r.store.Cleanup(ctx, Retention)
		if err != nil {
			r.logger.Warn("Error cleaning up analytics", zap.Error(err))
			return
		}
		if n > 0 {
			r.logger.Info("Privacy cleanup removed old records", zap.Int64("rows", n))
		}
	}

	cleanup()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanup()
		}
	}
}
