package service

import (
	"time"

	"github.com/okian/smsrelay/internal/adapters/mq/worker"
	"github.com/okian/smsrelay/internal/adapters/repository"
	"github.com/okian/smsrelay/internal/config"
	"github.com/okian/smsrelay/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig applies the timing, buffer and detector settings of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.pollInterval = cfg.PollInterval()
		s.dispatchDelay = cfg.DispatchDelay()
		s.retention = cfg.RetentionWindow()
		s.sweepInterval = cfg.SweepInterval()
		WithDetectors(cfg.WatchEnabled, cfg.PollEnabled)(s)
		if cfg.PushBuffer > 0 {
			s.pushBuffer = cfg.PushBuffer
		}
		if cfg.FanInBuffer > 0 {
			s.fanInBuffer = cfg.FanInBuffer
		}
	}
}

// WithSink sets where dispatched messages are delivered.
func WithSink(sink worker.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithInbox sets the record store queried by the change watcher and the
// poll timer. notifier may be nil, which disables the change watcher.
func WithInbox(inbox repository.Inbox, notifier repository.Notifier) Option {
	return func(s *Service) {
		s.inbox = inbox
		s.notifier = notifier
	}
}

// WithPollInterval sets the poll timer period.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithDispatchDelay sets the pause after every delivery attempt.
func WithDispatchDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.dispatchDelay = d
		}
	}
}

// WithRetentionWindow sets how long dispatched fingerprints are remembered.
func WithRetentionWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSweepInterval sets the retention sweeper period.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithDetectors switches the change watcher and poll timer on or off.
func WithDetectors(watch, poll bool) Option {
	return func(s *Service) {
		s.watchEnabled = watch
		s.pollEnabled = poll
	}
}

// WithClock sets the time source for processed timestamps, sweeps and
// detector watermarks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
