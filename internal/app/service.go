// Package service wires the detectors, the deduplicating queue, the
// dispatcher and the retention sweeper into one relay. It is constructed
// once per process and passed by reference to whatever needs it.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/smsrelay/internal/adapters/detector"
	eventqueue "github.com/okian/smsrelay/internal/adapters/mq/queue"
	"github.com/okian/smsrelay/internal/adapters/mq/worker"
	"github.com/okian/smsrelay/internal/adapters/repository"
	"github.com/okian/smsrelay/internal/adapters/sink"
	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Service is the relay.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	sink     worker.Sink
	inbox    repository.Inbox
	notifier repository.Notifier

	// Configuration
	pollInterval  time.Duration
	dispatchDelay time.Duration
	retention     time.Duration
	sweepInterval time.Duration
	watchEnabled  bool
	pollEnabled   bool
	pushBuffer    int
	fanInBuffer   int
	now           func() time.Time

	// Components
	queue      *eventqueue.DedupQueue
	dispatcher *worker.Dispatcher
	sweeper    *worker.Sweeper
	push       *detector.PushReceiver
	detectors  []detector.Detector
	events     chan model.Event

	// State
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	admitted     atomic.Int64
	dupPending   atomic.Int64
	dupProcessed atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		pollInterval:  5 * time.Second,
		dispatchDelay: 500 * time.Millisecond,
		retention:     5 * time.Minute,
		sweepInterval: 30 * time.Second,
		watchEnabled:  true,
		pollEnabled:   true,
		pushBuffer:    256,
		fanInBuffer:   1024,
		now:           time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.sink == nil {
		s.sink = sink.NewLogSink()
	}
	s.queue = eventqueue.NewDedupQueue(eventqueue.WithClock(s.now))
	s.push = detector.NewPushReceiver(
		detector.WithBuffer(s.pushBuffer),
		detector.WithClock(s.now),
	)
	return s
}

// Push returns the receiver for platform push notifications.
func (s *Service) Push() *detector.PushReceiver {
	return s.push
}

// Start launches the detectors, the admission loop, the dispatcher and the
// sweeper. Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting relay service...")

	s.dispatcher = worker.NewDispatcher(s.queue, s.sink,
		worker.WithDelay(s.dispatchDelay),
		worker.WithLogger(logger.Named("dispatcher")),
	)
	s.sweeper = worker.NewSweeper(s.queue,
		worker.WithInterval(s.sweepInterval),
		worker.WithRetention(s.retention),
		worker.WithClock(s.now),
	)

	s.detectors = []detector.Detector{s.push}
	if s.inbox != nil {
		if s.watchEnabled && s.notifier != nil {
			s.detectors = append(s.detectors, detector.NewChangeWatcher(s.inbox, s.notifier, detector.WithClock(s.now)))
		}
		if s.pollEnabled {
			s.detectors = append(s.detectors, detector.NewPollTimer(s.inbox,
				detector.WithInterval(s.pollInterval),
				detector.WithClock(s.now),
			))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.events = make(chan model.Event, s.fanInBuffer)

	for _, d := range s.detectors {
		s.wg.Add(1)
		go func(d detector.Detector) {
			defer s.wg.Done()
			if err := d.Run(runCtx, s.events); err != nil {
				s.logger.Error(runCtx, "detector stopped with error",
					logger.String("detector", d.Kind().String()),
					logger.Error(err),
				)
			}
		}(d)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.admitLoop(runCtx)
	}()

	go s.dispatcher.Run(runCtx)
	go s.sweeper.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "relay service started",
		logger.Int("detectors", len(s.detectors)),
		logger.String("sink", s.sink.Name()),
		logger.Duration("dispatchDelay", s.dispatchDelay),
		logger.Duration("retention", s.retention),
	)
	return nil
}

// admitLoop is the single admission entry point for detector events.
func (s *Service) admitLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.events:
			s.Admit(ctx, e)
		}
	}
}

// Admit offers e to the deduplicating queue and records the outcome.
func (s *Service) Admit(ctx context.Context, e model.Event) eventqueue.Outcome { //nolint:gocritic // events are copied on every hand-off
	outcome := s.queue.Admit(ctx, e)
	switch outcome {
	case eventqueue.Admitted:
		s.admitted.Add(1)
	case eventqueue.DuplicatePending:
		s.dupPending.Add(1)
	case eventqueue.DuplicateProcessed:
		s.dupProcessed.Add(1)
	case eventqueue.Closed:
	}

	s.logger.Debug(ctx, "admission",
		logger.String("outcome", outcome.String()),
		logger.String("fingerprint", e.Fingerprint()),
		logger.String("detected_by", e.DetectedBy.String()),
	)
	return outcome
}

// Stop gracefully shuts down the service. The in-flight delivery, if any,
// completes; pending events are discarded. The service lock is released
// before waiting, so GetStats stays available during shutdown.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.stopped = true
	dispatcher, sweeper, cancelRun := s.dispatcher, s.sweeper, s.cancel
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping relay service...")

	s.push.Stop()
	_ = s.queue.Close()

	if err := dispatcher.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
	}
	if err := sweeper.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "sweeper shutdown", logger.Error(err))
	}
	cancelRun()
	s.wg.Wait()

	s.logger.Info(ctx, "relay service stopped",
		logger.Int("pending_discarded", s.queue.Len()),
	)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":              s.started,
		"sink":                 s.sink.Name(),
		"pending":              s.queue.Len(),
		"processed":            s.queue.ProcessedLen(),
		"admitted":             s.admitted.Load(),
		"duplicates_pending":   s.dupPending.Load(),
		"duplicates_processed": s.dupProcessed.Load(),
		"dispatcher_state":     worker.Idle.String(),
	}
	if s.dispatcher != nil {
		stats["dispatcher_state"] = s.dispatcher.State().String()
	}

	kinds := make([]string, 0, len(s.detectors))
	for _, d := range s.detectors {
		kinds = append(kinds, d.Kind().String())
	}
	stats["detectors"] = kinds
	return stats
}
