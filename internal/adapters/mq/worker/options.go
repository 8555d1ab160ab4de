package worker

import (
	"time"

	"github.com/okian/smsrelay/pkg/logger"
)

// settings collects options shared by the Dispatcher and the Sweeper.
type settings struct {
	name     string
	logger   logger.Logger
	delay    time.Duration
	interval time.Duration
	window   time.Duration
	now      func() time.Time
}

// Option applies a configuration option to a Dispatcher or Sweeper.
type Option func(*settings)

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDelay sets the pause the Dispatcher takes after every delivery attempt.
func WithDelay(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithInterval sets how often the Sweeper runs.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRetention sets how long the Sweeper keeps dispatched fingerprints.
func WithRetention(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithClock sets the Sweeper's time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(name string, opts []Option) settings {
	s := settings{
		name:     name,
		delay:    defaultDispatchDelay,
		interval: defaultSweepInterval,
		window:   defaultRetention,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Named(s.name)
	}
	return s
}
