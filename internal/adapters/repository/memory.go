package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avesk/pickboard/internal/domain/model"
)

// MemoryStore keeps events in process memory. It is the default backend for
// development and tests. Reads copy the matching slice, so a scan observes a
// consistent snapshot while ingestion keeps appending.
type MemoryStore struct {
	mu        sync.RWMutex
	events    []model.ItemEvent
	processed map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{processed: make(map[string]time.Time)}
}

// InsertEvents appends a batch of events.
func (s *MemoryStore) InsertEvents(_ context.Context, events []model.ItemEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return len(events), nil
}

// EventsBetween returns events with UpdatedAt in [start, end).
func (s *MemoryStore) EventsBetween(_ context.Context, start, end time.Time) ([]model.ItemEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ItemEvent
	for i := range s.events {
		ts := s.events[i].UpdatedAt
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// EventsForPicker returns one picker's events in [start, end), newest first.
func (s *MemoryStore) EventsForPicker(_ context.Context, pickerID string, start, end time.Time) ([]model.ItemEvent, error) {
	key := strings.ToLower(pickerID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ItemEvent
	for i := range s.events {
		ev := &s.events[i]
		if strings.ToLower(ev.PickerID) != key {
			continue
		}
		if !ev.UpdatedAt.Before(start) && ev.UpdatedAt.Before(end) {
			out = append(out, *ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// CountEvents returns the total number of stored events.
func (s *MemoryStore) CountEvents(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

// MarkFileProcessed records an ingested filename.
func (s *MemoryStore) MarkFileProcessed(_ context.Context, filename string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[filename] = at
	return nil
}

// ProcessedFiles lists ingested filenames.
func (s *MemoryStore) ProcessedFiles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.processed))
	for name := range s.processed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
