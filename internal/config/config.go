// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case so env vars map 1:1 (SMSRELAY_POLL_INTERVAL_MS -> poll_interval_ms).
// - New() returns defaults; Load(ctx) layers file and env on top.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"time"
)

// Sink types understood by the service.
const (
	SinkLog  = "log"
	SinkHTTP = "http"
	SinkS3   = "s3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// PollIntervalMS is the Poll-Timer period.
	PollIntervalMS int `koanf:"poll_interval_ms"`
	// DispatchDelayMS is the pause after every delivery attempt.
	DispatchDelayMS int `koanf:"dispatch_delay_ms"`
	// RetentionWindowMS is how long a dispatched fingerprint is remembered.
	RetentionWindowMS int `koanf:"retention_window_ms"`
	// SweepIntervalMS is the retention sweeper period.
	SweepIntervalMS int `koanf:"sweep_interval_ms"`

	// InboxPath is the JSONL inbox file watched by the change and poll
	// detectors. Empty runs push reception only.
	InboxPath string `koanf:"inbox_path"`
	// InboxMaxLineBytes is the longest inbox line read; longer lines are skipped.
	InboxMaxLineBytes int `koanf:"inbox_max_line_bytes"`
	// WatchEnabled runs the Change-Watcher.
	WatchEnabled bool `koanf:"watch_enabled"`
	// PollEnabled runs the Poll-Timer.
	PollEnabled bool `koanf:"poll_enabled"`

	// PushBuffer bounds push payloads waiting to be forwarded.
	PushBuffer int `koanf:"push_buffer"`
	// FanInBuffer bounds detector events waiting for admission.
	FanInBuffer int `koanf:"fanin_buffer"`

	// SubjectID is sent as userId; empty generates a device id per process.
	SubjectID string `koanf:"subject_id"`

	SinkType      string `koanf:"sink_type"`
	SinkBaseURL   string `koanf:"sink_base_url"`
	SinkPath      string `koanf:"sink_path"`
	SinkTimeoutMS int    `koanf:"sink_timeout_ms"`
	SinkGzip      bool   `koanf:"sink_gzip"`
	SinkHTTP2     bool   `koanf:"sink_http2"`

	S3Region string `koanf:"s3_region"`
	S3Bucket string `koanf:"s3_bucket"`
	S3Prefix string `koanf:"s3_prefix"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		PollIntervalMS:    5000,
		DispatchDelayMS:   500,
		RetentionWindowMS: 300_000,
		SweepIntervalMS:   30_000,
		InboxMaxLineBytes: 1 << 20,
		WatchEnabled:      true,
		PollEnabled:       true,
		PushBuffer:        256,
		FanInBuffer:       1024,
		SinkType:          SinkLog,
		SinkPath:          "/AI/ClassifyMessage",
		SinkTimeoutMS:     10_000,
		S3Prefix:          "sms/",
	}
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration { return ms(c.PollIntervalMS) }

// DispatchDelay returns DispatchDelayMS as a duration.
func (c *Config) DispatchDelay() time.Duration { return ms(c.DispatchDelayMS) }

// RetentionWindow returns RetentionWindowMS as a duration.
func (c *Config) RetentionWindow() time.Duration { return ms(c.RetentionWindowMS) }

// SweepInterval returns SweepIntervalMS as a duration.
func (c *Config) SweepInterval() time.Duration { return ms(c.SweepIntervalMS) }

// SinkTimeout returns SinkTimeoutMS as a duration.
func (c *Config) SinkTimeout() time.Duration { return ms(c.SinkTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
