package testevents

import "time"

// Config holds configuration for the duplicate push test
type Config struct {
	BaseURL    string        // Base URL of the relay
	Messages   int           // Number of distinct messages
	Copies     int           // Pushes per message, all within one second
	Senders    int           // Size of the sender pool
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Wait before reading final stats
	OutputFile string        // Output file for generated pushes
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Push is one delivery notification sent to /push.
type Push struct {
	Sender      string `json:"sender"`
	Message     string `json:"message"`
	TimestampMs int64  `json:"timestampMs"`
}

// RelayStats is the subset of /stats the test compares.
type RelayStats struct {
	Admitted            int64 `json:"admitted"`
	DuplicatesPending   int64 `json:"duplicates_pending"`
	DuplicatesProcessed int64 `json:"duplicates_processed"`
	Pending             int64 `json:"pending"`
}

// Duplicates returns all rejected admissions.
func (s RelayStats) Duplicates() int64 {
	return s.DuplicatesPending + s.DuplicatesProcessed
}

// Stats holds test statistics
type Stats struct {
	MessagesGenerated int
	PushesGenerated   int
	PushesSubmitted   int
	PushesAccepted    int
	PushesRejected    int
	PushesFailed      int
	Before            RelayStats
	After             RelayStats
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
