package testevents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/smsrelay/internal/adapters/http/api"
	app "github.com/okian/smsrelay/internal/app"
	"github.com/okian/smsrelay/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGeneratePushes(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := &Config{Messages: 5, Copies: 4, Senders: 2}
		stats := &Stats{}
		now := time.UnixMilli(1_700_000_123_456)

		pushes, err := generatePushes(context.Background(), cfg, stats, now)
		So(err, ShouldBeNil)

		Convey("Then every message gets its copies", func() {
			So(pushes, ShouldHaveLength, 20)
			So(stats.MessagesGenerated, ShouldEqual, 5)
			So(stats.PushesGenerated, ShouldEqual, 20)
		})

		Convey("Then copies of a message share sender and second", func() {
			type key struct{ sender, body string }
			buckets := map[key]map[int64]bool{}
			for _, p := range pushes {
				k := key{p.Sender, p.Message}
				if buckets[k] == nil {
					buckets[k] = map[int64]bool{}
				}
				buckets[k][p.TimestampMs/bucketMillis] = true
			}
			So(buckets, ShouldHaveLength, 5)
			for _, b := range buckets {
				So(b, ShouldHaveLength, 1)
			}
		})

		Convey("Then non-positive sizes are rejected", func() {
			_, err := generatePushes(context.Background(), &Config{Messages: 0, Copies: 1}, &Stats{}, now)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerifyResults(t *testing.T) {
	Convey("Given counters taken around a run", t, func() {
		stats := &Stats{
			MessagesGenerated: 3,
			PushesAccepted:    9,
			Before:            RelayStats{Admitted: 10, DuplicatesProcessed: 4},
		}

		Convey("When one event per message was admitted", func() {
			stats.After = RelayStats{Admitted: 13, DuplicatesPending: 5, DuplicatesProcessed: 5}
			So(verifyResults(context.Background(), stats), ShouldBeNil)
		})

		Convey("When a duplicate slipped through", func() {
			stats.After = RelayStats{Admitted: 14, DuplicatesPending: 4, DuplicatesProcessed: 5}
			So(verifyResults(context.Background(), stats), ShouldNotBeNil)
		})

		Convey("When the relay lost admissions", func() {
			stats.After = RelayStats{Admitted: 13, DuplicatesPending: 1, DuplicatesProcessed: 4}
			So(verifyResults(context.Background(), stats), ShouldNotBeNil)
		})
	})
}

func TestRunAgainstRelay(t *testing.T) {
	Convey("Given a running relay", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithConfig(config.New()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc.Push(), svc).Register(ctx, mux)
		server := httptest.NewServer(mux)
		defer server.Close()

		Convey("When bursts of duplicate pushes are sent", func() {
			err := Run(ctx, &Config{
				BaseURL:    server.URL,
				Messages:   20,
				Copies:     3,
				Senders:    4,
				Workers:    4,
				Timeout:    5 * time.Second,
				Settle:     500 * time.Millisecond,
				OutputFile: filepath.Join(t.TempDir(), "pushes.json"),
			})

			Convey("Then exactly one event per message is admitted", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["admitted"], ShouldEqual, int64(20))
			})
		})
	})
}
