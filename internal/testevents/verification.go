package testevents

import (
	"context"
	"fmt"

	"github.com/okian/smsrelay/pkg/logger"
)

// verifyResults checks that the relay admitted one event per distinct
// message and rejected every other accepted copy as a duplicate.
func verifyResults(ctx context.Context, stats *Stats) error {
	admitted := stats.After.Admitted - stats.Before.Admitted
	duplicates := stats.After.Duplicates() - stats.Before.Duplicates()

	logger.Get().Info(ctx, "verifying results",
		logger.Int64("admitted", admitted),
		logger.Int64("duplicates", duplicates),
		logger.Int("messages", stats.MessagesGenerated),
		logger.Int("accepted", stats.PushesAccepted))

	if stats.PushesAccepted == 0 {
		return fmt.Errorf("no pushes were accepted")
	}
	if admitted+duplicates != int64(stats.PushesAccepted) {
		return fmt.Errorf("relay saw %d admissions, expected %d accepted pushes",
			admitted+duplicates, stats.PushesAccepted)
	}
	// With failed pushes some messages may never have reached the relay.
	if stats.PushesFailed == 0 && admitted != int64(stats.MessagesGenerated) {
		return fmt.Errorf("relay admitted %d events, expected %d distinct messages",
			admitted, stats.MessagesGenerated)
	}
	if admitted > int64(stats.MessagesGenerated) {
		return fmt.Errorf("relay admitted %d events for %d distinct messages",
			admitted, stats.MessagesGenerated)
	}

	logger.Get().Info(ctx, "result verification completed")
	return nil
}
