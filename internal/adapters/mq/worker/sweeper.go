package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/smsrelay/pkg/logger"
	"github.com/okian/smsrelay/pkg/metrics"
)

// Sweepable forgets dispatched fingerprints older than a threshold.
type Sweepable interface {
	Sweep(threshold time.Time) int
}

// Sweeper periodically trims the processed record to the retention window,
// which bounds memory to what was dispatched within one window plus one
// interval.
type Sweeper struct {
	queue    Sweepable
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewSweeper creates a sweeper for q.
func NewSweeper(q Sweepable, opts ...Option) *Sweeper {
	cfg := newSettings("sweeper", opts)
	return &Sweeper{
		queue:    q,
		interval: cfg.interval,
		window:   cfg.window,
		now:      cfg.now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   cfg.logger,
	}
}

// Run sweeps every interval until ctx is canceled or Shutdown is called.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce removes entries initiated more than one window ago.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	threshold := s.now().Add(-s.window)
	removed := s.queue.Sweep(threshold)
	metrics.RecordSweep(removed)
	if removed > 0 {
		s.logger.Debug(ctx, "swept processed fingerprints",
			logger.Int("removed", removed),
			logger.Time("threshold", threshold),
		)
	}
	return removed
}

// Shutdown stops the sweep loop.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.shutdown) })

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}
