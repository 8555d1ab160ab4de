package detector

import (
	"context"
	"fmt"

	"github.com/okian/smsrelay/internal/adapters/repository"
	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
)

// ChangeWatcher queries the inbox whenever the store reports a change.
// Notifications that arrive while a query is pending are merged into it.
type ChangeWatcher struct {
	inbox     repository.Inbox
	notifier  repository.Notifier
	watermark *Watermark
	wake      chan struct{}
	logger    logger.Logger
}

// NewChangeWatcher creates a watcher over inbox driven by notifier. Its
// watermark starts at construction time.
func NewChangeWatcher(inbox repository.Inbox, notifier repository.Notifier, opts ...Option) *ChangeWatcher {
	cfg := newSettings("change-watcher", opts)
	return &ChangeWatcher{
		inbox:     inbox,
		notifier:  notifier,
		watermark: NewWatermark(cfg.now()),
		wake:      make(chan struct{}, 1),
		logger:    cfg.logger,
	}
}

// Kind implements Detector.
func (c *ChangeWatcher) Kind() model.Source { return model.SourceChangeWatch }

// Watermark returns the watcher's watermark.
func (c *ChangeWatcher) Watermark() *Watermark { return c.watermark }

// Detect performs one query and returns at most one new event.
func (c *ChangeWatcher) Detect(ctx context.Context) []model.Event {
	return queryLatest(ctx, c.inbox, c.watermark, model.SourceChangeWatch, c.logger)
}

// Run subscribes to change notifications and emits detected events until
// ctx is canceled.
func (c *ChangeWatcher) Run(ctx context.Context, out chan<- model.Event) error {
	cancel, err := c.notifier.Subscribe(c.notify)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	defer cancel()

	c.logger.Info(ctx, "change watcher started", logger.Time("watermark", c.watermark.Value()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.wake:
			if !emit(ctx, out, c.Detect(ctx)) {
				return nil
			}
		}
	}
}

func (c *ChangeWatcher) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
