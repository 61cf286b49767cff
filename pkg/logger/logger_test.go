package logger_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/pkg/logger"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		err := logger.Init()
		So(err, ShouldBeNil)

		Convey("When fetching the global instance", func() {
			l := logger.Get()

			Convey("Then it should not be nil and should log without panicking", func() {
				So(l, ShouldNotBeNil)
				ctx := context.Background()
				So(func() {
					l.Debug(ctx, "debug line", logger.String("k", "v"))
					l.Info(ctx, "info line", logger.Int("count", 1))
					l.Warn(ctx, "warn line", logger.Bool("flag", true))
					l.Error(ctx, "error line", logger.Error(nil))
				}, ShouldNotPanic)
			})
		})

		Convey("When deriving a named logger", func() {
			l := logger.Named("pipeline")

			Convey("Then it should be usable independently", func() {
				So(l, ShouldNotBeNil)
				So(func() {
					l.Info(context.Background(), "from named logger")
				}, ShouldNotPanic)
			})
		})

		Convey("When setting log levels by string", func() {
			Convey("Then known levels should be accepted", func() {
				So(logger.SetLevelString("debug"), ShouldBeNil)
				So(logger.SetLevelString("INFO"), ShouldBeNil)
				So(logger.SetLevelString("warning"), ShouldBeNil)
				So(logger.SetLevelString("error"), ShouldBeNil)
				So(logger.SetLevelString(""), ShouldBeNil)
			})

			Convey("And unknown levels should be rejected", func() {
				So(logger.SetLevelString("verbose"), ShouldNotBeNil)
			})
		})
	})
}
