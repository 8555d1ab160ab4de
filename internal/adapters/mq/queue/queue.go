// Package queue implements the deduplicating admission queue shared by all
// detectors and drained by the dispatcher.
//
// One mutex guards both the pending events and the processed record, so the
// "already dispatched?" and "already waiting?" checks and the append happen as
// a single step, and popping an event marks it processed in the same step.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/smsrelay/internal/domain/dedupe"
	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/metrics"
)

// Outcome is the result of an admission attempt.
type Outcome int

const (
	// Admitted means the event was appended to the pending set.
	Admitted Outcome = iota
	// DuplicateProcessed means dispatch of the same occurrence already started.
	DuplicateProcessed
	// DuplicatePending means the same occurrence is already waiting.
	DuplicatePending
	// Closed means the queue no longer accepts events.
	Closed
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case DuplicateProcessed:
		return "processed"
	case DuplicatePending:
		return "pending"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// DedupQueue holds admitted events in arrival order, at most one per
// fingerprint, and remembers fingerprints whose dispatch has started.
type DedupQueue struct {
	mu        sync.Mutex
	pending   []model.Event
	inPending map[string]struct{}
	processed *dedupe.ProcessedRecord
	closed    bool

	signal chan struct{}
	now    func() time.Time
}

// NewDedupQueue creates an empty queue.
func NewDedupQueue(opts ...Option) *DedupQueue {
	q := &DedupQueue{
		inPending: make(map[string]struct{}),
		signal:    make(chan struct{}, 1),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.processed == nil {
		q.processed = dedupe.NewProcessedRecord()
	}

	metrics.UpdatePendingSize(0)
	metrics.UpdateProcessedSize(0)
	return q
}

// Admit fingerprints e and appends it unless the same occurrence is already
// pending or has been dispatched within the retention window. Duplicates are
// an Outcome, not an error.
func (q *DedupQueue) Admit(_ context.Context, e model.Event) Outcome { //nolint:gocritic // events are copied on every hand-off
	fp := e.Fingerprint()
	source := e.DetectedBy.String()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Closed
	}
	if q.processed.Contains(fp) {
		q.mu.Unlock()
		metrics.RecordEventDuplicate(source, DuplicateProcessed.String())
		return DuplicateProcessed
	}
	if _, ok := q.inPending[fp]; ok {
		q.mu.Unlock()
		metrics.RecordEventDuplicate(source, DuplicatePending.String())
		return DuplicatePending
	}
	q.pending = append(q.pending, e)
	q.inPending[fp] = struct{}{}
	metrics.UpdatePendingSize(len(q.pending))
	q.mu.Unlock()

	q.notify()
	metrics.RecordEventAdmitted(source)
	return Admitted
}

// Next removes the oldest pending event and marks its fingerprint processed
// at the current time. It returns false when nothing is pending.
func (q *DedupQueue) Next() (model.Event, bool) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return model.Event{}, false
	}
	e := q.pending[0]
	q.pending[0] = model.Event{}
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		q.pending = nil
	}

	fp := e.Fingerprint()
	delete(q.inPending, fp)
	q.processed.Mark(fp, q.now())
	// Gauges are set under the lock so concurrent updates publish in order.
	metrics.UpdatePendingSize(len(q.pending))
	metrics.UpdateProcessedSize(q.processed.Len())
	q.mu.Unlock()

	return e, true
}

// Sweep forgets dispatched fingerprints initiated before threshold and
// returns how many were removed.
func (q *DedupQueue) Sweep(threshold time.Time) int {
	q.mu.Lock()
	removed := q.processed.Sweep(threshold)
	metrics.UpdateProcessedSize(q.processed.Len())
	q.mu.Unlock()

	return removed
}

// Signal returns a channel that receives a value after an admission. At most
// one wake-up is buffered; receivers must drain with Next until it reports
// empty.
func (q *DedupQueue) Signal() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *DedupQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ProcessedLen returns the number of remembered dispatched fingerprints.
func (q *DedupQueue) ProcessedLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processed.Len()
}

// Close stops further admissions. Pending events stay available to Next.
func (q *DedupQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *DedupQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *DedupQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
