package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/smsrelay/internal/testevents"
)

// Default configuration constants.
const (
	defaultMessages    = 1000
	defaultCopies      = 3
	defaultSenders     = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the relay")
		messages   = flag.Int("messages", defaultMessages, "Number of distinct messages")
		copies     = flag.Int("copies", defaultCopies, "Pushes per message inside one second")
		senders    = flag.Int("senders", defaultSenders, "Size of the sender pool")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", testevents.DefaultSettleDelay, "Wait before reading final stats")
		outputFile = flag.String("output", "", "Output file for generated pushes (default: generated_pushes_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: push_test_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testevents.Config{
		BaseURL:    *baseURL,
		Messages:   *messages,
		Copies:     *copies,
		Senders:    *senders,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called explicitly above
	}
}
