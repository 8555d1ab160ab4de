package sink

import (
	"net/http"
	"time"

	"github.com/okian/smsrelay/pkg/logger"
)

const defaultTimeout = 10 * time.Second

type settings struct {
	subjectID string
	timeout   time.Duration
	gzip      bool
	http2     bool
	client    *http.Client
	logger    logger.Logger
	now       func() time.Time
}

// Option applies a configuration option to a sink.
type Option func(*settings)

// WithSubjectID sets the userId sent with every message.
func WithSubjectID(id string) Option {
	return func(s *settings) {
		s.subjectID = id
	}
}

// WithTimeout bounds a single delivery.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithGzip compresses HTTP request bodies.
func WithGzip(enabled bool) Option {
	return func(s *settings) {
		s.gzip = enabled
	}
}

// WithHTTP2 enables HTTP/2 on the default HTTP transport.
func WithHTTP2(enabled bool) Option {
	return func(s *settings) {
		s.http2 = enabled
	}
}

// WithHTTPClient replaces the HTTP client. WithHTTP2 is ignored when set.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets a custom logger for the sink.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used for object keys.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(name string, opts []Option) settings {
	s := settings{
		timeout: defaultTimeout,
		now:     nowUTC,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.subjectID = SubjectID(s.subjectID)
	if s.logger == nil {
		s.logger = logger.Named(name)
	}
	return s
}
