// Package dedupe tracks fingerprints whose dispatch has already started.
package dedupe

import "time"

// ProcessedRecord maps a fingerprint to the time its dispatch was initiated.
//
// It is not safe for concurrent use. The owning queue serializes access
// under the same lock that guards its pending set.
type ProcessedRecord struct {
	seen map[string]time.Time
}

// NewProcessedRecord creates an empty record.
func NewProcessedRecord(opts ...Option) *ProcessedRecord {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &ProcessedRecord{seen: make(map[string]time.Time, o.sizeHint)}
}

// Contains reports whether fp has been marked and not yet swept.
func (r *ProcessedRecord) Contains(fp string) bool {
	_, ok := r.seen[fp]
	return ok
}

// Mark records that dispatch of fp was initiated at at.
func (r *ProcessedRecord) Mark(fp string, at time.Time) {
	r.seen[fp] = at
}

// Sweep removes every entry initiated strictly before threshold and
// returns how many were removed.
func (r *ProcessedRecord) Sweep(threshold time.Time) int {
	removed := 0
	for fp, at := range r.seen {
		if at.Before(threshold) {
			delete(r.seen, fp)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered fingerprints.
func (r *ProcessedRecord) Len() int {
	return len(r.seen)
}
