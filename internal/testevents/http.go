package testevents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/smsrelay/pkg/logger"
)

// Submission outcomes.
const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// fetchStats reads the relay counters from /stats.
func fetchStats(ctx context.Context, client *HTTPClient, baseURL string) (RelayStats, error) {
	var out RelayStats
	resp, err := client.Get(ctx, baseURL+"/stats")
	if err != nil {
		return out, fmt.Errorf("failed to fetch stats: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != StatusOK {
		return out, fmt.Errorf("stats returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("failed to read stats: %w", err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("failed to decode stats: %w", err)
	}
	return out, nil
}

// submitPushes submits pushes concurrently using a worker pool.
func submitPushes(ctx context.Context, config *Config, pushes []Push, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting pushes", logger.Int("count", len(pushes)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/push"

	var submitted, accepted, rejected, failed int64

	pushChan := make(chan Push, maxInt(config.Workers, 1)*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < maxInt(config.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pushChan {
				if ctx.Err() != nil {
					continue
				}
				result := submitSinglePush(ctx, client, url, p)
				n := atomic.AddInt64(&submitted, 1)
				switch result {
				case resultAccepted:
					atomic.AddInt64(&accepted, 1)
				case resultRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
				if config.Verbose && n%1000 == 0 {
					log.Debug(ctx, "progress", logger.Int64("submitted", n), logger.Int("total", len(pushes)))
				}
			}
		}()
	}

	go func() {
		defer close(pushChan)
		for _, p := range pushes {
			select {
			case <-ctx.Done():
				return
			case pushChan <- p:
			}
		}
	}()

	wg.Wait()

	stats.PushesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.PushesAccepted = int(atomic.LoadInt64(&accepted))
	stats.PushesRejected = int(atomic.LoadInt64(&rejected))
	stats.PushesFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "push submission completed",
		logger.Int("accepted", stats.PushesAccepted),
		logger.Int("rejected", stats.PushesRejected),
		logger.Int("failed", stats.PushesFailed))
}

// submitSinglePush submits a single push and classifies the response.
func submitSinglePush(ctx context.Context, client *HTTPClient, url string, p Push) string {
	resp, err := client.Post(ctx, url, p)
	if err != nil {
		return resultFailed
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == StatusAccepted:
		return resultAccepted
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resultRejected
	default:
		return resultFailed
	}
}
