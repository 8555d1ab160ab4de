package config_test

import (
	"testing"
	"time"

	"github.com/okian/smsrelay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the documented defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.PollInterval(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.DispatchDelay(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.RetentionWindow(), convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.SweepInterval(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.SinkTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.SinkType, convey.ShouldEqual, config.SinkLog)
			convey.So(cfg.InboxMaxLineBytes, convey.ShouldEqual, 1<<20)
			convey.So(cfg.WatchEnabled, convey.ShouldBeTrue)
			convey.So(cfg.PollEnabled, convey.ShouldBeTrue)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
