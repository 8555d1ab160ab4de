package detector

import (
	"time"

	"github.com/okian/smsrelay/pkg/logger"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPushBuffer   = 256
)

type settings struct {
	logger   logger.Logger
	now      func() time.Time
	interval time.Duration
	buffer   int
}

// Option applies a configuration option to a detector.
type Option func(*settings)

// WithLogger sets a custom logger for the detector.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for watermark start and push receive time.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInterval sets the poll timer period.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBuffer sets how many received pushes may wait to be forwarded.
func WithBuffer(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.buffer = n
		}
	}
}

func newSettings(name string, opts []Option) settings {
	s := settings{
		now:      time.Now,
		interval: defaultPollInterval,
		buffer:   defaultPushBuffer,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Named(name)
	}
	return s
}
