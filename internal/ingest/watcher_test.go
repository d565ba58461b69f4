package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/avesk/pickboard/internal/domain/dedupe"
	"github.com/avesk/pickboard/internal/ingest"
)

func TestWatcher(t *testing.T) {
	convey.Convey("Given a drop directory with existing exports", t, func() {
		tmp := t.TempDir()
		writeExport(t, tmp, "old_1.csv", "data")
		writeExport(t, tmp, "old_2.csv", "data")
		writeExport(t, tmp, "notes.txt", "ignored")

		queue := ingest.NewInMemoryQueue(ingest.WithCapacity(10))
		tracker := dedupe.NewInMemoryTracker("old_2.csv")
		watcher := ingest.NewWatcher(tmp, queue, tracker, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- watcher.Run(ctx) }()

		convey.Convey("Then the startup scan queues only unseen CSV files", func() {
			ok := waitFor(5*time.Second, func() bool { return queue.Size() == 1 })
			convey.So(ok, convey.ShouldBeTrue)

			job := <-queue.Dequeue()
			convey.So(job.Filename, convey.ShouldEqual, "old_1.csv")
		})

		convey.Convey("When a new export appears", func() {
			writeExport(t, tmp, "new.csv", "data")

			convey.Convey("Then it is queued behind the startup scan's file", func() {
				ok := waitFor(5*time.Second, func() bool { return queue.Size() == 2 })
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		cancel()
		err := <-done
		convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
	})

	convey.Convey("Given a burst of fresh exports still settling", t, func() {
		tmp := t.TempDir()
		queue := ingest.NewInMemoryQueue(ingest.WithCapacity(10))
		tracker := dedupe.NewInMemoryTracker()
		watcher := ingest.NewWatcher(tmp, queue, tracker, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- watcher.Run(ctx) }()

		writeExport(t, tmp, "burst_1.csv", "data")
		writeExport(t, tmp, "burst_2.csv", "data")
		time.Sleep(100 * time.Millisecond)
		cancel()

		convey.Convey("Then cancellation is not held up by the settle delay", func() {
			var err error
			stopped := false
			select {
			case err = <-done:
				stopped = true
			case <-time.After(250 * time.Millisecond):
			}
			convey.So(stopped, convey.ShouldBeTrue)
			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			convey.So(queue.Size(), convey.ShouldEqual, 0)
		})
	})
}
