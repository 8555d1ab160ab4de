// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// TimestampBucket is the width of the occurrence-time bucket used when
// fingerprinting. Reports of one message that differ by less than a bucket
// collapse to the same fingerprint.
const TimestampBucket = time.Second

// Source identifies the detector that produced an Event.
type Source int

const (
	SourceChangeWatch Source = iota
	SourcePush
	SourcePoll
)

// String returns the label used in logs and metrics.
func (s Source) String() string {
	switch s {
	case SourceChangeWatch:
		return "change_watch"
	case SourcePush:
		return "push"
	case SourcePoll:
		return "poll"
	default:
		return "unknown"
	}
}

// Event is one detector's report of an inbound message.
// It is passed by value; holders never share it.
type Event struct {
	SourceID   string    // originator address, e.g. a phone number
	Content    string    // message body
	OccurredAt time.Time // when the message arrived, millisecond precision
	DetectedBy Source    // detector that reported it
}

// NewEvent builds an Event, truncating the occurrence time to milliseconds.
func NewEvent(sourceID, content string, occurredAt time.Time, by Source) Event {
	return Event{
		SourceID:   sourceID,
		Content:    content,
		OccurredAt: time.UnixMilli(occurredAt.UnixMilli()),
		DetectedBy: by,
	}
}

// Fingerprint returns the identity key of the occurrence the event reports:
// source, content hash and the occurrence time rounded down to the bucket.
// DetectedBy does not take part.
func (e Event) Fingerprint() string {
	b := make([]byte, 0, len(e.SourceID)+48)
	b = append(b, e.SourceID...)
	b = append(b, ':')
	b = strconv.AppendUint(b, xxhash.Sum64String(e.Content), 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, bucketStart(e.OccurredAt.UnixMilli()), 10)
	return string(b)
}

// bucketStart floors ms to the bucket boundary, also for pre-epoch times.
func bucketStart(ms int64) int64 {
	size := TimestampBucket.Milliseconds()
	q := ms / size
	if ms%size < 0 {
		q--
	}
	return q * size
}
