// Package sink delivers dispatched messages downstream. A delivery is one
// attempt: sinks report failure and never retry.
package sink

import (
	"context"

	"github.com/okian/smsrelay/internal/domain/model"
)

// Sink receives one event per call.
type Sink interface {
	Name() string
	Send(ctx context.Context, e model.Event) error
}

var (
	_ Sink = (*HTTPSink)(nil)
	_ Sink = (*S3Sink)(nil)
	_ Sink = (*LogSink)(nil)
)
