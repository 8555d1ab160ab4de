package detector

import (
	"sync"
	"time"
)

// Watermark is the largest message timestamp a detector has emitted. It
// never moves backwards.
type Watermark struct {
	mu sync.Mutex
	ts time.Time
}

// NewWatermark creates a watermark starting at start, so records older than
// the detector itself are ignored.
func NewWatermark(start time.Time) *Watermark {
	return &Watermark{ts: start}
}

// Advance moves the watermark to ts and returns true iff ts is strictly
// later than the current value.
func (w *Watermark) Advance(ts time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !ts.After(w.ts) {
		return false
	}
	w.ts = ts
	return true
}

// Value returns the current watermark.
func (w *Watermark) Value() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ts
}
