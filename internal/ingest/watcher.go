package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/avesk/pickboard/internal/domain/dedupe"
	"github.com/avesk/pickboard/pkg/logger"
	"github.com/avesk/pickboard/pkg/metrics"
)

// settleDelay gives the producer time to finish writing a file after the
// create event fires before we read it.
const settleDelay = 500 * time.Millisecond

// Watcher monitors the CSV drop directory and enqueues new exports. It
// pairs fsnotify events with a periodic rescan so files that arrive while
// the service is down, or whose events are missed, are still picked up.
type Watcher struct {
	dir          string
	queue        Queue
	tracker      dedupe.Tracker
	scanInterval time.Duration
	log          logger.Logger
}

// NewWatcher creates a watcher over dir. scanInterval bounds how stale the
// directory view can get when filesystem events are lost.
func NewWatcher(dir string, queue Queue, tracker dedupe.Tracker, scanInterval time.Duration) *Watcher {
	return &Watcher{
		dir:          dir,
		queue:        queue,
		tracker:      tracker,
		scanInterval: scanInterval,
		log:          logger.Named("watcher"),
	}
}

// Run watches until ctx is cancelled. The drop directory is created if
// missing and scanned once at startup.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return err
	}

	w.scan(ctx)

	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isCSV(event.Name) {
				continue
			}
			w.offerSettled(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "watch error", logger.Error(err))
			metrics.RecordErrorByComponent("watcher", "fsnotify")
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// scan offers every CSV currently in the drop directory. The tracker makes
// repeat offers harmless.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn(ctx, "scan failed", logger.String("dir", w.dir), logger.Error(err))
		metrics.RecordErrorByComponent("watcher", "scan")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isCSV(entry.Name()) {
			continue
		}
		w.offer(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// offerSettled waits out settleDelay off the event loop, so a burst of
// create/write events cannot stall other events, the rescan ticker, or
// cancellation. The tracker makes duplicate offers for the same file a no-op.
func (w *Watcher) offerSettled(ctx context.Context, path string) {
	timer := time.NewTimer(settleDelay)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			w.offer(ctx, path)
		}
	}()
}

func (w *Watcher) offer(ctx context.Context, path string) {
	filename := filepath.Base(path)
	if w.tracker.SeenAndRecord(ctx, filename) {
		return
	}
	job := Job{Path: path, Filename: filename}
	if err := w.queue.Enqueue(ctx, job); err != nil {
		// Give the file back so a later rescan can retry it.
		w.tracker.Unrecord(ctx, filename)
		w.log.Warn(ctx, "enqueue failed", logger.String("file", filename), logger.Error(err))
		return
	}
	w.log.Info(ctx, "csv file queued", logger.String("file", filename))
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
