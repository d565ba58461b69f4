package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/avesk/pickboard/internal/adapters/repository"
	"github.com/avesk/pickboard/internal/directory"
	"github.com/avesk/pickboard/internal/domain/dedupe"
	"github.com/avesk/pickboard/internal/ingest"
)

func writeExport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a pool draining a queue of export files", t, func() {
		tmp := t.TempDir()
		store := repository.NewMemoryStore()
		proc := ingest.NewProcessor(store, directory.NewInMemoryDirectory())
		queue := ingest.NewInMemoryQueue(ingest.WithCapacity(10))
		tracker := dedupe.NewInMemoryTracker()
		pool := ingest.NewPool(2, queue, proc, tracker)

		pool.Start(ctx)
		defer pool.Stop()

		body := csvHeader + "\nWH1,alice,COMPLETED,2025-11-13,P1,B1,10,2025-11-12 09:15:00\n"
		for _, name := range []string{"w1.csv", "w2.csv", "w3.csv"} {
			path := writeExport(t, tmp, name, body)
			tracker.SeenAndRecord(ctx, name)
			convey.So(queue.Enqueue(ctx, ingest.Job{Path: path, Filename: name}), convey.ShouldBeNil)
		}

		convey.Convey("Then every file is ingested", func() {
			ok := waitFor(5*time.Second, func() bool {
				n, err := store.CountEvents(ctx)
				return err == nil && n == 3
			})
			convey.So(ok, convey.ShouldBeTrue)

			files, err := store.ProcessedFiles(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(files), convey.ShouldEqual, 3)
		})
	})

	convey.Convey("Given a job whose file is missing", t, func() {
		store := repository.NewMemoryStore()
		proc := ingest.NewProcessor(store, directory.NewInMemoryDirectory())
		queue := ingest.NewInMemoryQueue(ingest.WithCapacity(10))
		tracker := dedupe.NewInMemoryTracker()
		pool := ingest.NewPool(1, queue, proc, tracker)

		pool.Start(ctx)
		defer pool.Stop()

		tracker.SeenAndRecord(ctx, "gone.csv")
		convey.So(queue.Enqueue(ctx, ingest.Job{Path: "/nonexistent/gone.csv", Filename: "gone.csv"}), convey.ShouldBeNil)

		convey.Convey("Then the claim is released for a retry", func() {
			ok := waitFor(5*time.Second, func() bool {
				return tracker.Size() == 0
			})
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}
