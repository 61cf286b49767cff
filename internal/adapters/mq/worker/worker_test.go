package worker_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/yapmint/yapmint/internal/adapters/mq/queue"
	"github.com/yapmint/yapmint/internal/adapters/mq/worker"
	"github.com/yapmint/yapmint/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	m.Run()
}

type recordingSource struct {
	records chan queue.Settlement
}

func (s *recordingSource) Dequeue(_ context.Context) <-chan queue.Settlement {
	return s.records
}

func TestAuditWorker(t *testing.T) {
	Convey("Given an audit worker on a settlement source", t, func() {
		ctx := context.Background()

		Convey("When the source closes after delivering records", func() {
			src := &recordingSource{records: make(chan queue.Settlement, 2)}
			src.records <- queue.Settlement{AccountID: "acct-1", Handle: "alice", RawScore: 5000, Amount: 122, SettlementRef: "ref-1", SubmittedAt: time.Now()}
			src.records <- queue.Settlement{AccountID: "acct-2", Handle: "bob", RawScore: 1023, Amount: 100, SettlementRef: "ref-2", SubmittedAt: time.Now()}
			close(src.records)

			w := worker.NewAuditWorker(src)
			finished := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(finished)
			}()

			Convey("Then the worker drains everything and exits", func() {
				select {
				case <-finished:
				case <-time.After(time.Second):
					So("worker did not exit", ShouldBeEmpty)
				}
			})
		})

		Convey("When Shutdown is called mid-run", func() {
			src := &recordingSource{records: make(chan queue.Settlement)}
			w := worker.NewAuditWorker(src)
			go w.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			Convey("Then the worker stops cleanly", func() {
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})

			Convey("Then a second Shutdown is also clean", func() {
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})

		Convey("When the run context is cancelled", func() {
			src := &recordingSource{records: make(chan queue.Settlement)}
			w := worker.NewAuditWorker(src)
			runCtx, cancel := context.WithCancel(ctx)
			finished := make(chan struct{})
			go func() {
				w.Run(runCtx)
				close(finished)
			}()
			cancel()

			Convey("Then the worker exits without needing Shutdown", func() {
				select {
				case <-finished:
				case <-time.After(time.Second):
					So("worker did not exit", ShouldBeEmpty)
				}
			})
		})
	})
}
