package queue

import (
	"time"
)

// Option applies a configuration option to the DedupQueue.
type Option func(*DedupQueue)

// WithClock sets the time source used to stamp dispatched fingerprints.
func WithClock(now func() time.Time) Option {
	return func(q *DedupQueue) {
		if now != nil {
			q.now = now
		}
	}
}
