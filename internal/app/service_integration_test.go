package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/smsrelay/internal/adapters/detector"
	eventqueue "github.com/okian/smsrelay/internal/adapters/mq/queue"
	"github.com/okian/smsrelay/internal/adapters/repository"
	service "github.com/okian/smsrelay/internal/app"
	"github.com/okian/smsrelay/internal/domain/model"
	"github.com/okian/smsrelay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type delivery struct {
	event model.Event
	start time.Time
	end   time.Time
}

// fakeSink records deliveries. Each Send can be held open until released.
type fakeSink struct {
	mu         sync.Mutex
	deliveries []delivery
	hold       chan struct{}
	entered    chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{entered: make(chan struct{}, 64)}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Send(ctx context.Context, e model.Event) error { //nolint:gocritic // matches Sink
	start := time.Now()
	f.entered <- struct{}{}
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	f.deliveries = append(f.deliveries, delivery{event: e, start: start, end: time.Now()})
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) snapshot() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery(nil), f.deliveries...)
}

func (f *fakeSink) contents() []string {
	out := []string{}
	for _, d := range f.snapshot() {
		out = append(out, d.event.Content)
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func at(ms int64) time.Time { return time.UnixMilli(ms) }

func TestServiceIntegration(t *testing.T) {
	Convey("Given a relay service with a fake sink", t, func() {
		sink := newFakeSink()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			svc := service.New(service.WithSink(sink))
			defer svc.Stop()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["sink"], ShouldEqual, "fake")
				So(stats["detectors"], ShouldResemble, []string{"push"})
			})
		})

		Convey("When the same message arrives by push and poll within one second", func() {
			sink.hold = make(chan struct{})
			svc := service.New(service.WithSink(sink), service.WithDispatchDelay(0))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			// Keep the dispatcher busy so both reports race the first delivery.
			svc.Admit(ctx, model.NewEvent("Z", "busy", at(0), model.SourcePush))
			<-sink.entered

			first := svc.Admit(ctx, model.NewEvent("A", "Hi", at(1000), model.SourcePush))
			second := svc.Admit(ctx, model.NewEvent("A", "Hi", at(1400), model.SourcePoll))
			close(sink.hold)

			Convey("Then only the first is admitted and delivered once", func() {
				So(first, ShouldEqual, eventqueue.Admitted)
				So(second, ShouldEqual, eventqueue.DuplicatePending)
				So(eventually(func() bool { return len(sink.snapshot()) == 2 }), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				So(sink.contents(), ShouldResemble, []string{"busy", "Hi"})
			})
		})

		Convey("When a message reappears after the retention window", func() {
			c := &clock{t: time.UnixMilli(1_700_000_000_000)}
			svc := service.New(
				service.WithSink(sink),
				service.WithDispatchDelay(0),
				service.WithRetentionWindow(5*time.Minute),
				service.WithSweepInterval(5*time.Millisecond),
				service.WithClock(c.Now),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			e := model.NewEvent("A", "Hi", at(1000), model.SourcePush)
			So(svc.Admit(ctx, e), ShouldEqual, eventqueue.Admitted)
			So(eventually(func() bool { return len(sink.snapshot()) == 1 }), ShouldBeTrue)
			So(svc.Admit(ctx, e), ShouldEqual, eventqueue.DuplicateProcessed)

			c.Advance(6 * time.Minute)
			So(eventually(func() bool { return svc.GetStats()["processed"] == 0 }), ShouldBeTrue)

			Convey("Then it is admitted and delivered again", func() {
				So(svc.Admit(ctx, e), ShouldEqual, eventqueue.Admitted)
				So(eventually(func() bool { return len(sink.snapshot()) == 2 }), ShouldBeTrue)
			})
		})

		Convey("When two detectors report different messages", func() {
			svc := service.New(service.WithSink(sink), service.WithDispatchDelay(0))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			So(svc.Admit(ctx, model.NewEvent("A", "X", at(1000), model.SourceChangeWatch)), ShouldEqual, eventqueue.Admitted)
			So(svc.Admit(ctx, model.NewEvent("B", "Y", at(1001), model.SourcePoll)), ShouldEqual, eventqueue.Admitted)

			Convey("Then both are delivered in arrival order", func() {
				So(eventually(func() bool { return len(sink.snapshot()) == 2 }), ShouldBeTrue)
				So(sink.contents(), ShouldResemble, []string{"X", "Y"})
			})
		})

		Convey("When a push arrives without a sender", func() {
			svc := service.New(service.WithSink(sink))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			err := svc.Push().Receive(ctx, detector.Payload{Message: "orphan", TimestampMs: 1000})

			Convey("Then no event is produced", func() {
				So(errors.Is(err, detector.ErrMalformedPayload), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				So(svc.GetStats()["pending"], ShouldEqual, 0)
				So(svc.GetStats()["admitted"], ShouldEqual, int64(0))
				So(sink.snapshot(), ShouldBeEmpty)
			})
		})

		Convey("When two events are admitted during a delivery", func() {
			delay := 50 * time.Millisecond
			sink.hold = make(chan struct{})
			svc := service.New(service.WithSink(sink), service.WithDispatchDelay(delay))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			svc.Admit(ctx, model.NewEvent("A", "third", at(0), model.SourcePush))
			<-sink.entered
			svc.Admit(ctx, model.NewEvent("B", "one", at(0), model.SourcePush))
			svc.Admit(ctx, model.NewEvent("C", "two", at(0), model.SourcePush))

			Convey("Then they wait and are delivered one at a time after the delay", func() {
				So(svc.GetStats()["pending"], ShouldEqual, 2)
				So(svc.GetStats()["dispatcher_state"], ShouldEqual, "processing")
				close(sink.hold)

				So(eventually(func() bool { return len(sink.snapshot()) == 3 }), ShouldBeTrue)
				d := sink.snapshot()
				So(sink.contents(), ShouldResemble, []string{"third", "one", "two"})
				for i := 1; i < len(d); i++ {
					So(d[i].start.Sub(d[i-1].end), ShouldBeGreaterThanOrEqualTo, delay)
				}
			})
		})

		Convey("When the service stops during a delivery", func() {
			sink.hold = make(chan struct{})
			svc := service.New(service.WithSink(sink), service.WithDispatchDelay(0))
			So(svc.Start(ctx), ShouldBeNil)

			svc.Admit(ctx, model.NewEvent("A", "slow", at(0), model.SourcePush))
			<-sink.entered

			stopped := make(chan struct{})
			go func() {
				defer close(stopped)
				svc.Stop()
			}()

			Convey("Then stats stay readable until the delivery finishes", func() {
				So(eventually(func() bool {
					statsRead := make(chan map[string]interface{}, 1)
					go func() { statsRead <- svc.GetStats() }()
					select {
					case stats := <-statsRead:
						return stats["started"] == false
					case <-time.After(100 * time.Millisecond):
						return false
					}
				}), ShouldBeTrue)

				select {
				case <-stopped:
					t.Fatal("stop returned before the in-flight delivery finished")
				default:
				}

				close(sink.hold)
				select {
				case <-stopped:
				case <-time.After(2 * time.Second):
					t.Fatal("stop did not return after the delivery finished")
				}
				So(sink.contents(), ShouldResemble, []string{"slow"})
			})
		})

		Convey("When detectors are switched off", func() {
			inbox := repository.NewMemoryInbox()
			svc := service.New(
				service.WithSink(sink),
				service.WithInbox(inbox, inbox),
				service.WithDetectors(false, false),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then only push reception runs", func() {
				So(svc.GetStats()["detectors"], ShouldResemble, []string{"push"})
			})
		})

		Convey("When messages land in the inbox", func() {
			c := &clock{t: time.UnixMilli(1_700_000_000_000)}
			inbox := repository.NewMemoryInbox()
			svc := service.New(
				service.WithSink(sink),
				service.WithDispatchDelay(0),
				service.WithInbox(inbox, inbox),
				service.WithPollInterval(10*time.Millisecond),
				service.WithClock(c.Now),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			So(svc.GetStats()["detectors"], ShouldResemble, []string{"push", "change_watch", "poll"})

			received := c.Now().Add(time.Second)
			_ = inbox.Append(ctx, repository.Record{Sender: "bank", Body: "debit 12.00", ReceivedAt: received})
			err := svc.Push().Receive(ctx, detector.Payload{Sender: "bank", Message: "debit 12.00", TimestampMs: received.UnixMilli() + 200})

			Convey("Then the watcher, poller and push collapse into one delivery", func() {
				So(err, ShouldBeNil)
				So(eventually(func() bool { return len(sink.snapshot()) == 1 }), ShouldBeTrue)
				time.Sleep(50 * time.Millisecond)
				So(sink.snapshot(), ShouldHaveLength, 1)
				So(sink.snapshot()[0].event.Content, ShouldEqual, "debit 12.00")
			})
		})

		Convey("When the service is stopped", func() {
			svc := service.New(service.WithSink(sink))
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then pushes and restarts are refused", func() {
				So(errors.Is(svc.Push().Receive(ctx, detector.Payload{Sender: "s"}), detector.ErrStopped), ShouldBeTrue)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
				So(svc.Admit(ctx, model.NewEvent("s", "m", at(0), model.SourcePush)), ShouldEqual, eventqueue.Closed)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}
