package testevents

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/smsrelay/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "push_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithFormat("text", io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the push test tool.
func ShowHelp() {
	os.Stdout.WriteString(`SMS Relay Push Test Tool
========================

Sends bursts of duplicate push notifications to a running relay and checks
that exactly one event per distinct message was admitted.

Usage:
  go run cmd/test-events/main.go [options]

Options:
  -url string
        Base URL of the relay (default "http://localhost:9080")
  -messages int
        Number of distinct messages (default 1000)
  -copies int
        Pushes per message inside one second (default 3)
  -senders int
        Size of the sender pool (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        Wait before reading final stats (default 3s)
  -output string
        Output file for generated pushes (default: generated_pushes_TIMESTAMP.json)
  -log string
        Log file for test output (default: push_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-events/main.go

  # Heavier burst against another relay
  go run cmd/test-events/main.go -messages 5000 -copies 5 -url http://10.0.0.5:9080
`)
}
