// Package detector contains the three independent channels that report
// inbound messages: the change watcher, the push receiver and the poll
// timer. Detectors do not deduplicate; they only emit events.
package detector

import (
	"context"
	"errors"

	"github.com/okian/smsrelay/internal/adapters/repository"
	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
	"github.com/okian/smsrelay/pkg/metrics"
)

// Detector emits events into out until ctx is canceled.
type Detector interface {
	Kind() model.Source
	Run(ctx context.Context, out chan<- model.Event) error
}

// queryLatest reads the newest inbox record and turns it into an event if it
// is newer than wm. Query failures are logged and yield nothing.
func queryLatest(ctx context.Context, inbox repository.Inbox, wm *Watermark, source model.Source, log logger.Logger) []model.Event {
	rec, err := inbox.Latest(ctx)
	if errors.Is(err, repository.ErrEmpty) {
		return nil
	}
	if err != nil {
		metrics.RecordDetectorError(source.String())
		log.Warn(ctx, "inbox query failed", logger.Error(err))
		return nil
	}
	if !wm.Advance(rec.ReceivedAt) {
		return nil
	}

	e := model.NewEvent(rec.Sender, rec.Body, rec.ReceivedAt, source)
	metrics.UpdateWatermark(source.String(), rec.ReceivedAt.UnixMilli())
	metrics.RecordEventDetected(source.String())
	log.Debug(ctx, "new message detected",
		logger.String("sender", e.SourceID),
		logger.Preview("message", e.Content),
		logger.Int64("timestamp", e.OccurredAt.UnixMilli()),
	)
	return []model.Event{e}
}

// emit forwards events to out. It returns false if ctx ended first.
func emit(ctx context.Context, out chan<- model.Event, events []model.Event) bool {
	for _, e := range events {
		select {
		case out <- e:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
