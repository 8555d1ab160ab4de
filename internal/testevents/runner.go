package testevents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/smsrelay/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// Run executes the complete duplicate push test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting relay push test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("messages", config.Messages),
		logger.Int("copies", config.Copies),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config.BaseURL); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Snapshot counters
	before, err := fetchStats(ctx, client, config.BaseURL)
	if err != nil {
		return fmt.Errorf("initial stats failed: %w", err)
	}
	stats.Before = before

	// Step 3: Generate pushes
	pushes, err := generatePushes(ctx, config, stats, time.Now())
	if err != nil {
		return fmt.Errorf("push generation failed: %w", err)
	}

	// Step 4: Submit pushes concurrently
	submitPushes(ctx, config, pushes, stats)

	// Step 5: Let the relay drain its fan-in
	settle := config.Settle
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	logger.Get().Info(ctx, "waiting for admissions to settle", logger.Duration("settle", settle))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}

	after, err := fetchStats(ctx, client, config.BaseURL)
	if err != nil {
		return fmt.Errorf("final stats failed: %w", err)
	}
	stats.After = after

	// Step 6: Verify results
	if err := verifyResults(ctx, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save pushes to file
	if err := savePushesToFile(ctx, config, pushes); err != nil {
		logger.Get().Warn(ctx, "failed to save pushes to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savePushesToFile saves the generated pushes as a JSON array.
func savePushesToFile(ctx context.Context, config *Config, pushes []Push) error {
	if len(pushes) == 0 {
		return fmt.Errorf("no pushes to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_pushes_" + timestamp + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(pushes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pushes: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "pushes saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, pushesPerSecond float64

	if stats.PushesSubmitted > 0 {
		acceptRate = float64(stats.PushesAccepted) / float64(stats.PushesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		pushesPerSecond = float64(stats.PushesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("messagesGenerated", stats.MessagesGenerated),
		logger.Int("pushesGenerated", stats.PushesGenerated),
		logger.Int("pushesSubmitted", stats.PushesSubmitted),
		logger.Int("pushesAccepted", stats.PushesAccepted),
		logger.Int("pushesRejected", stats.PushesRejected),
		logger.Int("pushesFailed", stats.PushesFailed),
		logger.Int64("admitted", stats.After.Admitted-stats.Before.Admitted),
		logger.Int64("duplicates", stats.After.Duplicates()-stats.Before.Duplicates()),
		logger.Duration("duration", stats.Duration),
		logger.Any("acceptRate", acceptRate),
		logger.Any("pushesPerSecond", pushesPerSecond))
}
