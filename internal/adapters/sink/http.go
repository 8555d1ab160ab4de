package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
)

// HTTPSink POSTs each message as JSON to the classification endpoint.
type HTTPSink struct {
	url       string
	client    *http.Client
	subjectID string
	gzip      bool
	timeout   time.Duration
	logger    logger.Logger
}

// NewHTTPSink creates a sink posting to baseURL+path.
func NewHTTPSink(baseURL, path string, opts ...Option) (*HTTPSink, error) {
	cfg := newSettings("http-sink", opts)

	client := cfg.client
	if client == nil {
		tr := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		}
		if cfg.http2 {
			if err := http2.ConfigureTransport(tr); err != nil {
				return nil, fmt.Errorf("configure http2: %w", err)
			}
		}
		client = &http.Client{Transport: tr}
	}

	return &HTTPSink{
		url:       strings.TrimRight(baseURL, "/") + path,
		client:    client,
		subjectID: cfg.subjectID,
		gzip:      cfg.gzip,
		timeout:   cfg.timeout,
		logger:    cfg.logger,
	}, nil
}

// Name implements Sink.
func (s *HTTPSink) Name() string { return "http" }

// URL returns the delivery endpoint.
func (s *HTTPSink) URL() string { return s.url }

// Send delivers e once. Any transport error or non-2xx status is reported
// as ErrDeliveryFailed.
func (s *HTTPSink) Send(ctx context.Context, e model.Event) error { //nolint:gocritic // events are copied on every hand-off
	payload := NewPayload(s.subjectID, e)

	var (
		body []byte
		err  error
	)
	if s.gzip {
		body, err = encodeGzipJSON(payload)
	} else {
		body, err = encodeJSON(payload)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID())
	if s.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	s.logger.Debug(ctx, "backend accepted message",
		logger.Int("status", resp.StatusCode),
		logger.String("request_id", req.Header.Get("X-Request-ID")),
	)
	return nil
}
