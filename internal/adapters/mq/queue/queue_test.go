package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/internal/adapters/mq/queue"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory settlement queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When enqueueing within capacity", func() {
			ok := q.Enqueue(ctx, queue.Settlement{SettlementRef: "ref-1"})

			Convey("Then the record is buffered", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, queue.Settlement{SettlementRef: "ref-1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Settlement{SettlementRef: "ref-2"}), ShouldBeTrue)

			Convey("Then the next enqueue is dropped, not blocked", func() {
				So(q.Enqueue(ctx, queue.Settlement{SettlementRef: "ref-3"}), ShouldBeFalse)
			})
		})

		Convey("When dequeueing buffered records", func() {
			_ = q.Enqueue(ctx, queue.Settlement{SettlementRef: "ref-1"})
			_ = q.Enqueue(ctx, queue.Settlement{SettlementRef: "ref-2"})
			So(q.Close(), ShouldBeNil)

			Convey("Then records arrive in order and the channel closes", func() {
				var refs []string
				for s := range q.Dequeue(ctx) {
					refs = append(refs, s.SettlementRef)
				}
				So(refs, ShouldResemble, []string{"ref-1", "ref-2"})
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue refuses new records and Close stays idempotent", func() {
				So(q.Enqueue(ctx, queue.Settlement{SettlementRef: "late"}), ShouldBeFalse)
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the consumer context is cancelled", func() {
			consumerCtx, cancel := context.WithCancel(ctx)
			records := q.Dequeue(consumerCtx)
			cancel()

			Convey("Then the dequeue channel shuts down", func() {
				_ = q.Enqueue(ctx, queue.Settlement{SettlementRef: "ref-1"})
				select {
				case _, open := <-records:
					if open {
						// one record may slip through before cancellation lands
						_, open = <-records
						So(open, ShouldBeFalse)
					}
				case <-time.After(time.Second):
					So("timed out", ShouldBeEmpty)
				}
			})
		})
	})
}
