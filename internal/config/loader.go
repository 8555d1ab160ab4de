package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable naming.
const (
	envPrefix     = "SMSRELAY_"
	envConfigPath = "SMSRELAY_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SMSRELAY_CONFIG is set
//  3. env (prefix SMSRELAY_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SMSRELAY_POLL_INTERVAL_MS -> poll_interval_ms. Underscores are kept to
	// match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The config path itself is not a Config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.PollIntervalMS <= 0:
		return invalid("poll_interval_ms must be positive")
	case c.DispatchDelayMS < 0:
		return invalid("dispatch_delay_ms must not be negative")
	case c.RetentionWindowMS <= 0:
		return invalid("retention_window_ms must be positive")
	case c.SweepIntervalMS <= 0:
		return invalid("sweep_interval_ms must be positive")
	case c.SinkTimeoutMS <= 0:
		return invalid("sink_timeout_ms must be positive")
	case c.InboxMaxLineBytes <= 0:
		return invalid("inbox_max_line_bytes must be positive")
	}

	switch c.SinkType {
	case SinkLog:
	case SinkHTTP:
		if strings.TrimSpace(c.SinkBaseURL) == "" {
			return invalid("sink_base_url is required for the http sink")
		}
	case SinkS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			return invalid("s3_bucket is required for the s3 sink")
		}
	default:
		return invalid("unknown sink_type " + c.SinkType)
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
