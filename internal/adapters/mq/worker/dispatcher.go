// Package worker runs the background loops that drain and trim the
// deduplicating queue: the single-flight Dispatcher and the retention Sweeper.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
	"github.com/okian/smsrelay/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultDispatchDelay = 500 * time.Millisecond
	defaultSweepInterval = 30 * time.Second
	defaultRetention     = 5 * time.Minute
)

// Queue is the part of the deduplicating queue the Dispatcher drains.
type Queue interface {
	// Next pops the oldest pending event and marks it processed.
	Next() (model.Event, bool)
	// Signal wakes the Dispatcher after an admission.
	Signal() <-chan struct{}
}

// Sink delivers one event downstream.
type Sink interface {
	Name() string
	Send(ctx context.Context, e model.Event) error
}

// State is the Dispatcher's run state.
type State int32

const (
	Idle State = iota
	Processing
)

func (s State) String() string {
	if s == Processing {
		return "processing"
	}
	return "idle"
}

// Dispatcher delivers pending events to the Sink one at a time, in admission
// order, pausing after every attempt. Delivery failures are logged and
// counted, never retried.
type Dispatcher struct {
	queue Queue
	sink  Sink
	delay time.Duration

	state atomic.Int32

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher draining q into s.
func NewDispatcher(q Queue, s Sink, opts ...Option) *Dispatcher {
	cfg := newSettings("dispatcher", opts)
	return &Dispatcher{
		queue:    q,
		sink:     s,
		delay:    cfg.delay,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   cfg.logger,
	}
}

// State reports whether an event is currently being handled.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Run drains the queue until ctx is canceled or Shutdown is called. It must
// be called at most once.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	defer d.setState(Idle)

	for {
		if d.stopping(ctx) {
			return
		}

		e, ok := d.queue.Next()
		if !ok {
			d.setState(Idle)
			select {
			case <-ctx.Done():
				return
			case <-d.shutdown:
				return
			case <-d.queue.Signal():
				continue
			}
		}

		d.setState(Processing)
		d.dispatch(ctx, e)
		if !d.pause(ctx) {
			return
		}
	}
}

// Shutdown stops the loop after the in-flight delivery and its pause.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.shutdown) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// dispatch hands e to the sink. An initiated delivery is not aborted by
// cancellation of ctx; the sink bounds its own duration.
func (d *Dispatcher) dispatch(ctx context.Context, e model.Event) { //nolint:gocritic // events are copied on every hand-off
	sendCtx := context.WithoutCancel(ctx)
	sinkName := d.sink.Name()

	start := time.Now()
	err := d.sink.Send(sendCtx, e)
	latency := time.Since(start)
	metrics.RecordDispatchLatency(float64(latency.Milliseconds()))

	fields := []logger.Field{
		logger.String("fingerprint", e.Fingerprint()),
		logger.String("sender", e.SourceID),
		logger.String("detected_by", e.DetectedBy.String()),
		logger.String("sink", sinkName),
		logger.Duration("latency", latency),
	}
	if err != nil {
		metrics.RecordDispatch(sinkName, "failure")
		d.logger.Error(ctx, "delivery failed, dropping message", append(fields, logger.Error(err))...)
		return
	}
	metrics.RecordDispatch(sinkName, "success")
	d.logger.Info(ctx, "message delivered", append(fields, logger.Preview("message", e.Content))...)
}

// pause waits the inter-dispatch delay. It returns false if the loop should
// stop instead.
func (d *Dispatcher) pause(ctx context.Context) bool {
	if d.delay <= 0 {
		return true
	}
	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-d.shutdown:
		return false
	}
}

func (d *Dispatcher) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-d.shutdown:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) setState(s State) {
	if State(d.state.Swap(int32(s))) != s {
		metrics.UpdateDispatcherProcessing(s == Processing)
	}
}
