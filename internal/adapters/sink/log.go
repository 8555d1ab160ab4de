package sink

import (
	"context"

	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
)

// LogSink only logs what would have been delivered.
type LogSink struct {
	subjectID string
	logger    logger.Logger
}

// NewLogSink creates a dry-run sink.
func NewLogSink(opts ...Option) *LogSink {
	cfg := newSettings("log-sink", opts)
	return &LogSink{subjectID: cfg.subjectID, logger: cfg.logger}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Send logs the payload and always succeeds.
func (s *LogSink) Send(ctx context.Context, e model.Event) error { //nolint:gocritic // events are copied on every hand-off
	p := NewPayload(s.subjectID, e)
	s.logger.Info(ctx, "message dispatched",
		logger.String("user_id", p.UserID),
		logger.String("sender", p.Sender),
		logger.Preview("message", p.Message),
		logger.String("time", p.Time),
	)
	return nil
}
