// Package repository defines the item store contract and its backends.
package repository

import (
	"context"
	"time"

	"github.com/avesk/pickboard/internal/domain/model"
)

// Backend names a storage implementation.
type Backend string

// Supported backends.
const (
	MemoryBackend   Backend = "memory"
	SQLiteBackend   Backend = "sqlite"
	PostgresBackend Backend = "postgres"
)

// Store provides append-only access to item events plus processed-file
// bookkeeping. The engine never mutates events; reads behave as snapshots
// even while ingestion appends concurrently.
type Store interface {
	// InsertEvents appends a batch of events and returns how many were written.
	InsertEvents(ctx context.Context, events []model.ItemEvent) (int, error)

	// EventsBetween returns events with UpdatedAt in the half-open range
	// [start, end).
	EventsBetween(ctx context.Context, start, end time.Time) ([]model.ItemEvent, error)

	// EventsForPicker returns one picker's events in [start, end), newest
	// first. Picker ids match case-insensitively.
	EventsForPicker(ctx context.Context, pickerID string, start, end time.Time) ([]model.ItemEvent, error)

	// CountEvents returns the total number of stored events.
	CountEvents(ctx context.Context) (int, error)

	// MarkFileProcessed durably records that a CSV file has been ingested.
	MarkFileProcessed(ctx context.Context, filename string, at time.Time) error

	// ProcessedFiles lists filenames already ingested.
	ProcessedFiles(ctx context.Context) ([]string, error)

	Close() error
}

// Open constructs a store for the configured backend. dsn is a file path for
// sqlite and a connection string for postgres; memory ignores it.
func Open(ctx context.Context, backend Backend, dsn string) (Store, error) {
	switch backend {
	case MemoryBackend, "":
		return NewMemoryStore(), nil
	case SQLiteBackend:
		return NewSQLiteStore(ctx, dsn)
	case PostgresBackend:
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, ErrUnknownBackend
	}
}
