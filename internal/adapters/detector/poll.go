package detector

import (
	"context"
	"time"

	"github.com/okian/smsrelay/internal/adapters/repository"
	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
)

// PollTimer queries the inbox on a fixed period with its own watermark. It
// backs up the change watcher when change notifications are missed.
type PollTimer struct {
	inbox     repository.Inbox
	interval  time.Duration
	watermark *Watermark
	logger    logger.Logger
}

// NewPollTimer creates a poll timer over inbox.
func NewPollTimer(inbox repository.Inbox, opts ...Option) *PollTimer {
	cfg := newSettings("poll-timer", opts)
	return &PollTimer{
		inbox:     inbox,
		interval:  cfg.interval,
		watermark: NewWatermark(cfg.now()),
		logger:    cfg.logger,
	}
}

// Kind implements Detector.
func (p *PollTimer) Kind() model.Source { return model.SourcePoll }

// Watermark returns the timer's watermark.
func (p *PollTimer) Watermark() *Watermark { return p.watermark }

// Detect performs one query and returns at most one new event.
func (p *PollTimer) Detect(ctx context.Context) []model.Event {
	return queryLatest(ctx, p.inbox, p.watermark, model.SourcePoll, p.logger)
}

// Run polls every interval until ctx is canceled.
func (p *PollTimer) Run(ctx context.Context, out chan<- model.Event) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info(ctx, "poll timer started", logger.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !emit(ctx, out, p.Detect(ctx)) {
				return nil
			}
		}
	}
}
