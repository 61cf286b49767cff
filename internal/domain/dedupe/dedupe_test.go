package dedupe_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given an in-memory deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When recording a fresh ID", func() {
			seen := d.SeenAndRecord(ctx, "req-1")

			Convey("Then it is reported as new and then as seen", func() {
				So(seen, ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the capacity is exceeded", func() {
			for i := 0; i < 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
			}

			Convey("Then the oldest ID is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "req-0"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "req-3"), ShouldBeTrue)
			})
		})

		Convey("When unrecording an ID", func() {
			d.SeenAndRecord(ctx, "req-x")
			d.Unrecord(ctx, "req-x")

			Convey("Then it can be recorded again", func() {
				So(d.SeenAndRecord(ctx, "req-x"), ShouldBeFalse)
			})
		})

		Convey("When an unrecorded ID is re-recorded before its slot is evicted", func() {
			d.SeenAndRecord(ctx, "req-x")
			d.Unrecord(ctx, "req-x")
			d.SeenAndRecord(ctx, "req-x")
			d.SeenAndRecord(ctx, "req-y")
			d.SeenAndRecord(ctx, "req-z")

			Convey("Then evicting the ghost slot does not forget the live entry", func() {
				So(d.SeenAndRecord(ctx, "req-x"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "req-y"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "req-z"), ShouldBeTrue)
			})
		})

		Convey("When unrecording an unknown ID", func() {
			Convey("Then nothing happens", func() {
				So(func() { d.Unrecord(ctx, "never-seen") }, ShouldNotPanic)
			})
		})
	})
}
