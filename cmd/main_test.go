package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	app "github.com/okian/smsrelay/internal/app"
	"github.com/okian/smsrelay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("SMSRELAY_ADDR", ":8080")
			_ = os.Setenv("SMSRELAY_SINK_TYPE", "http")
			_ = os.Setenv("SMSRELAY_SINK_BASE_URL", "http://127.0.0.1:5230")
			defer func() {
				_ = os.Unsetenv("SMSRELAY_ADDR")
				_ = os.Unsetenv("SMSRELAY_SINK_TYPE")
				_ = os.Unsetenv("SMSRELAY_SINK_BASE_URL")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SinkType, convey.ShouldEqual, config.SinkHTTP)
			})
		})

		convey.Convey("When choosing the inbox", func() {
			ctx := context.Background()
			cfg := config.New()

			convey.Convey("Then an empty path runs push reception only", func() {
				convey.So(inboxOptions(ctx, cfg), convey.ShouldBeEmpty)

				svc := app.New(append([]app.Option{app.WithConfig(cfg)}, inboxOptions(ctx, cfg)...)...)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				defer svc.Stop()
				convey.So(svc.GetStats()["detectors"], convey.ShouldResemble, []string{"push"})
			})

			convey.Convey("Then a path starts the inbox detectors", func() {
				cfg.InboxPath = filepath.Join(t.TempDir(), "inbox.jsonl")
				opts := inboxOptions(ctx, cfg)
				convey.So(opts, convey.ShouldHaveLength, 1)

				svc := app.New(append([]app.Option{app.WithConfig(cfg)}, opts...)...)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				defer svc.Stop()
				convey.So(svc.GetStats()["detectors"], convey.ShouldResemble, []string{"push", "change_watch", "poll"})
			})
		})

		convey.Convey("When testing HTTP routes", func() {
			ctx := context.Background()
			svc := app.New(app.WithConfig(config.New()))
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			mux := newMux(ctx, svc)

			convey.Convey("Then health responds", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then pushes are accepted", func() {
				body := strings.NewReader(`{"sender":"+15550001","message":"hello","timestampMs":1700000000000}`)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/push", body))
				convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
			})
		})

		convey.Convey("When updating system metrics", func() {
			convey.Convey("Then it should not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			})
		})
	})
}
