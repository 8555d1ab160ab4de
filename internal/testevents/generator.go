package testevents

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/smsrelay/pkg/logger"
)

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// generatePushes creates config.Copies pushes for each of config.Messages
// distinct messages. Copies of one message keep sender and body and get
// jittered timestamps inside the same one-second bucket, so the relay must
// collapse them. The result is shuffled.
func generatePushes(ctx context.Context, config *Config, stats *Stats, now time.Time) ([]Push, error) {
	if config.Messages <= 0 || config.Copies <= 0 {
		return nil, fmt.Errorf("messages and copies must be positive")
	}
	senders := maxInt(config.Senders, 1)

	logger.Get().Info(ctx, "generating pushes",
		logger.Int("messages", config.Messages),
		logger.Int("copies", config.Copies),
		logger.Int("senders", senders))

	pushes := make([]Push, 0, config.Messages*config.Copies)
	base := now.UnixMilli()
	for i := 0; i < config.Messages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		sender := "+1555" + strconv.FormatInt(1_000_000+int64(i%senders), 10)
		body := "code " + uuid.New().String()
		// Each message gets its own bucket so distinct messages never share
		// a timestamp window by accident.
		bucket := (base/bucketMillis - int64(i)) * bucketMillis
		for c := 0; c < config.Copies; c++ {
			pushes = append(pushes, Push{
				Sender:      sender,
				Message:     body,
				TimestampMs: bucket + randomInt(bucketMillis),
			})
		}
	}
	shuffle(pushes)

	stats.MessagesGenerated = config.Messages
	stats.PushesGenerated = len(pushes)
	logger.Get().Info(ctx, "generated pushes successfully", logger.Int("count", len(pushes)))
	return pushes, nil
}

// shuffle permutes pushes in place (Fisher-Yates).
func shuffle(pushes []Push) {
	for i := len(pushes) - 1; i > 0; i-- {
		j := randomInt(int64(i + 1))
		pushes[i], pushes[j] = pushes[j], pushes[i]
	}
}

// maxInt returns the maximum of two integers.
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
