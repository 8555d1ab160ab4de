package detector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
	"github.com/okian/smsrelay/pkg/metrics"
)

// Payload is a platform delivery notification for one message.
type Payload struct {
	Sender      string `json:"sender"`
	Message     string `json:"message"`
	TimestampMs int64  `json:"timestampMs"`
}

// PushReceiver turns push payloads into events. It keeps no watermark and
// forwards every well-formed payload.
type PushReceiver struct {
	events  chan model.Event
	now     func() time.Time
	stopped chan struct{}
	once    sync.Once
	logger  logger.Logger
}

// NewPushReceiver creates a receiver with a bounded forwarding buffer.
func NewPushReceiver(opts ...Option) *PushReceiver {
	cfg := newSettings("push-receiver", opts)
	return &PushReceiver{
		events:  make(chan model.Event, cfg.buffer),
		now:     cfg.now,
		stopped: make(chan struct{}),
		logger:  cfg.logger,
	}
}

// Kind implements Detector.
func (p *PushReceiver) Kind() model.Source { return model.SourcePush }

// Receive validates p and queues its event for forwarding. A missing or
// blank sender is rejected with ErrMalformedPayload. A non-positive
// timestamp is replaced with the receive time.
func (p *PushReceiver) Receive(ctx context.Context, payload Payload) error {
	if strings.TrimSpace(payload.Sender) == "" {
		metrics.RecordPushRejected()
		p.logger.Warn(ctx, "push without sender dropped")
		return fmt.Errorf("%w: missing sender", ErrMalformedPayload)
	}

	ts := time.UnixMilli(payload.TimestampMs)
	if payload.TimestampMs <= 0 {
		ts = p.now()
	}
	e := model.NewEvent(payload.Sender, payload.Message, ts, model.SourcePush)

	select {
	case <-p.stopped:
		return ErrStopped
	default:
	}

	select {
	case p.events <- e:
		metrics.RecordEventDetected(model.SourcePush.String())
		p.logger.Debug(ctx, "push received",
			logger.String("sender", e.SourceID),
			logger.Preview("message", e.Content),
		)
		return nil
	case <-p.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run forwards received events to out until ctx is canceled. After Run
// returns, Receive reports ErrStopped.
func (p *PushReceiver) Run(ctx context.Context, out chan<- model.Event) error {
	defer p.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-p.events:
			if !emit(ctx, out, []model.Event{e}) {
				return nil
			}
		}
	}
}

// Stop makes further Receive calls fail with ErrStopped.
func (p *PushReceiver) Stop() {
	p.once.Do(func() { close(p.stopped) })
}

// Stopped reports whether the receiver has stopped accepting pushes.
func (p *PushReceiver) Stopped() bool {
	select {
	case <-p.stopped:
		return true
	default:
		return false
	}
}

var (
	_ Detector = (*ChangeWatcher)(nil)
	_ Detector = (*PollTimer)(nil)
	_ Detector = (*PushReceiver)(nil)
)
