package sink

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
)

// ObjectPutter is the subset of the S3 client the archive sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink archives each message as a gzip-compressed JSON object under
// prefix/YYYY/MM/DD/<request-id>.json.gz.
type S3Sink struct {
	client    ObjectPutter
	bucket    string
	prefix    string
	subjectID string
	timeout   time.Duration
	now       func() time.Time
	logger    logger.Logger
}

// NewS3Sink loads the default AWS configuration for region and creates an
// archive sink writing to bucket.
func NewS3Sink(ctx context.Context, region, bucket, prefix string, opts ...Option) (*S3Sink, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	// One attempt per delivery.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 1
	})
	return NewS3SinkWithClient(client, bucket, prefix, opts...), nil
}

// NewS3SinkWithClient creates an archive sink over an existing client.
func NewS3SinkWithClient(client ObjectPutter, bucket, prefix string, opts ...Option) *S3Sink {
	cfg := newSettings("s3-sink", opts)
	return &S3Sink{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		subjectID: cfg.subjectID,
		timeout:   cfg.timeout,
		now:       cfg.now,
		logger:    cfg.logger,
	}
}

// Name implements Sink.
func (s *S3Sink) Name() string { return "s3" }

// Send writes one object for e.
func (s *S3Sink) Send(ctx context.Context, e model.Event) error { //nolint:gocritic // events are copied on every hand-off
	body, err := encodeGzipJSON(NewPayload(s.subjectID, e))
	if err != nil {
		return err
	}
	key := s.objectKey(requestID())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("%w: put s3://%s/%s: %w", ErrDeliveryFailed, s.bucket, key, err)
	}

	s.logger.Debug(ctx, "message archived", logger.String("key", key))
	return nil
}

func (s *S3Sink) objectKey(id string) string {
	day := s.now().UTC().Format("2006/01/02")
	if s.prefix == "" {
		return day + "/" + id + ".json.gz"
	}
	return s.prefix + "/" + day + "/" + id + ".json.gz"
}
