package sink

import (
	"context"
	"fmt"

	"github.com/okian/smsrelay/internal/config"
)

// NewFromConfig builds the sink selected by cfg.SinkType.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Sink, error) {
	opts := []Option{
		WithSubjectID(cfg.SubjectID),
		WithTimeout(cfg.SinkTimeout()),
		WithGzip(cfg.SinkGzip),
		WithHTTP2(cfg.SinkHTTP2),
	}

	switch cfg.SinkType {
	case config.SinkLog, "":
		return NewLogSink(opts...), nil
	case config.SinkHTTP:
		return NewHTTPSink(cfg.SinkBaseURL, cfg.SinkPath, opts...)
	case config.SinkS3:
		return NewS3Sink(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, cfg.SinkType)
	}
}
