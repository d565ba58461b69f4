// Package dedupe tracks which CSV files have already been ingested.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records seen filenames to ensure each export is processed at most
// once across watcher rescans and restarts.
type Tracker interface {
	// SeenAndRecord atomically checks if name was seen and records it if not.
	// Returns true if name was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, name string) bool

	// Unrecord removes a name from the seen set, allowing a retry. Used when
	// a file was claimed but its ingestion failed.
	Unrecord(ctx context.Context, name string)

	Size() int64
}

// inMemoryTracker implements Tracker with a plain map. The set is unbounded:
// processed exports number in the hundreds, and evicting one would re-ingest
// its rows on the next rescan.
type inMemoryTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
	size atomic.Int64
}

// NewInMemoryTracker creates a tracker, pre-seeded with names already
// recorded durably (typically the store's processed-file list).
func NewInMemoryTracker(seed ...string) Tracker {
	t := &inMemoryTracker{seen: make(map[string]struct{}, len(seed))}
	for _, name := range seed {
		t.seen[name] = struct{}{}
	}
	t.size.Store(int64(len(t.seen)))
	return t
}

func (t *inMemoryTracker) SeenAndRecord(_ context.Context, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[name]; ok {
		return true
	}
	t.seen[name] = struct{}{}
	t.size.Add(1)
	return false
}

func (t *inMemoryTracker) Unrecord(_ context.Context, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[name]; ok {
		delete(t.seen, name)
		t.size.Add(-1)
	}
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
