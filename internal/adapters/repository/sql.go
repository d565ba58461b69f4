package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avesk/pickboard/internal/domain/model"
	"github.com/avesk/pickboard/pkg/metrics"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver (cgo-free)
)

// sqlStore backs the item store with database/sql. Queries are written with
// ? placeholders and rebound to $n for postgres.
type sqlStore struct {
	db      *sql.DB
	backend Backend
}

// NewSQLiteStore opens (or creates) a SQLite item store at path and applies
// pending migrations.
func NewSQLiteStore(ctx context.Context, path string) (Store, error) {
	if path == "" {
		path = "pickboard.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store at %q: %w", path, err)
	}
	// Single connection avoids "database is locked" errors under concurrent
	// ingestion and reads.
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, SQLiteBackend)
}

// NewPostgresStore connects to a PostgreSQL item store and applies pending
// migrations.
func NewPostgresStore(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	return newSQLStore(ctx, db, PostgresBackend)
}

func newSQLStore(ctx context.Context, db *sql.DB, backend Backend) (Store, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := runMigrations(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlStore{db: db, backend: backend}, nil
}

// rebind rewrites ? placeholders to $1..$n for the postgres backend.
func (s *sqlStore) rebind(query string) string {
	if s.backend != PostgresBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) InsertEvents(ctx context.Context, events []model.ItemEvent) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreInsertLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO items (
			source_warehouse, picker_id, item_status, dispatch_by_date,
			external_picklist_id, location_bin_id, location_sequence,
			updated_at, csv_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare item insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range events {
		ev := &events[i]
		if _, err := stmt.ExecContext(ctx,
			ev.Warehouse, ev.PickerID, string(ev.Status), ev.DispatchBy,
			ev.PicklistID, ev.BinID, ev.Sequence, ev.UpdatedAt, ev.SourceFile,
		); err != nil {
			return 0, fmt.Errorf("insert item event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit item batch: %w", err)
	}
	return len(events), nil
}

const eventColumns = `source_warehouse, picker_id, item_status, dispatch_by_date,
	external_picklist_id, location_bin_id, location_sequence, updated_at, csv_file`

func (s *sqlStore) EventsBetween(ctx context.Context, start, end time.Time) ([]model.ItemEvent, error) {
	begin := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(begin).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+eventColumns+`
		FROM items
		WHERE updated_at >= ? AND updated_at < ?`), start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return scanEvents(rows)
}

func (s *sqlStore) EventsForPicker(ctx context.Context, pickerID string, start, end time.Time) ([]model.ItemEvent, error) {
	begin := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(begin).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+eventColumns+`
		FROM items
		WHERE LOWER(picker_id) = LOWER(?) AND updated_at >= ? AND updated_at < ?
		ORDER BY updated_at DESC`), pickerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]model.ItemEvent, error) {
	defer func() { _ = rows.Close() }()
	var out []model.ItemEvent
	for rows.Next() {
		var ev model.ItemEvent
		var status string
		if err := rows.Scan(
			&ev.Warehouse, &ev.PickerID, &status, &ev.DispatchBy,
			&ev.PicklistID, &ev.BinID, &ev.Sequence, &ev.UpdatedAt, &ev.SourceFile,
		); err != nil {
			return nil, fmt.Errorf("scan item event: %w", err)
		}
		ev.Status = model.ItemStatus(status)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *sqlStore) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *sqlStore) MarkFileProcessed(ctx context.Context, filename string, at time.Time) error {
	var query string
	if s.backend == PostgresBackend {
		query = `INSERT INTO processed_csvs (filename, processed_at) VALUES ($1, $2)
			ON CONFLICT (filename) DO UPDATE SET processed_at = EXCLUDED.processed_at`
	} else {
		query = `INSERT OR REPLACE INTO processed_csvs (filename, processed_at) VALUES (?, ?)`
	}
	if _, err := s.db.ExecContext(ctx, query, filename, at); err != nil {
		return fmt.Errorf("mark %q processed: %w", filename, err)
	}
	return nil
}

func (s *sqlStore) ProcessedFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM processed_csvs ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan processed file: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return names, nil
}

func (s *sqlStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close item store: %w", err)
	}
	return nil
}
