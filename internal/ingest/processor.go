package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avesk/pickboard/internal/adapters/repository"
	"github.com/avesk/pickboard/internal/directory"
	"github.com/avesk/pickboard/internal/domain/model"
	"github.com/avesk/pickboard/pkg/logger"
	"github.com/avesk/pickboard/pkg/metrics"
)

// ErrMissingColumns is returned when a CSV header lacks required columns.
var ErrMissingColumns = errors.New("csv header missing required columns")

const defaultBatchSize = 500

// Timestamp layouts seen in warehouse exports. Most rows carry whole
// seconds; some warehouses emit fractional seconds.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
}

var requiredColumns = []string{
	"source_warehouse",
	"picker_ldap",
	"item_status",
	"external_picklist_id",
	"location_bin_id",
	"updated_at",
}

// Summary reports the outcome of ingesting one CSV file.
type Summary struct {
	BatchID      string
	Filename     string
	RowsInserted int
	RowsSkipped  int
	PickersAdded int
}

// Processor parses item CSV exports and writes them to the store in batches.
type Processor struct {
	store     repository.Store
	dir       directory.Directory
	batchSize int
	log       logger.Logger
	clock     func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBatchSize sets how many rows are buffered per store insert.
func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewProcessor creates a processor writing to store and registering pickers
// in dir.
func NewProcessor(store repository.Store, dir directory.Directory, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:     store,
		dir:       dir,
		batchSize: defaultBatchSize,
		log:       logger.Named("ingest"),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile opens and ingests one CSV file from disk.
func (p *Processor) ProcessFile(ctx context.Context, path, filename string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()
	return p.Process(ctx, f, filename)
}

// Process ingests one CSV export. Malformed rows are skipped and counted,
// never fatal; a bad header or store failure aborts the file.
func (p *Processor) Process(ctx context.Context, r io.Reader, filename string) (Summary, error) {
	start := p.clock()
	summary := Summary{
		BatchID:  uuid.New().String(),
		Filename: filename,
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return summary, fmt.Errorf("read header of %s: %w", filename, err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return summary, fmt.Errorf("%s: %w", filename, err)
	}

	batch := make([]model.ItemEvent, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := p.store.InsertEvents(ctx, batch)
		if err != nil {
			return fmt.Errorf("insert batch from %s: %w", filename, err)
		}
		summary.RowsInserted += n
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			summary.RowsSkipped++
			continue
		}
		event, ok := p.parseRow(ctx, row, cols, filename, &summary)
		if !ok {
			summary.RowsSkipped++
			continue
		}
		batch = append(batch, event)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	if err := p.store.MarkFileProcessed(ctx, filename, p.clock()); err != nil {
		return summary, fmt.Errorf("mark %s processed: %w", filename, err)
	}

	elapsed := p.clock().Sub(start)
	metrics.RecordRowsIngested(summary.RowsInserted)
	metrics.RecordRowsSkipped(summary.RowsSkipped)
	metrics.RecordFileProcessed()
	metrics.RecordIngestLatency(float64(elapsed.Milliseconds()))
	metrics.RecordPickersRegistered(summary.PickersAdded)

	p.log.Info(ctx, "csv file ingested",
		logger.String("file", filename),
		logger.String("batch_id", summary.BatchID),
		logger.Int("rows_inserted", summary.RowsInserted),
		logger.Int("rows_skipped", summary.RowsSkipped),
		logger.Int("pickers_added", summary.PickersAdded),
		logger.Duration("elapsed", elapsed))
	return summary, nil
}

func (p *Processor) parseRow(ctx context.Context, row []string, cols map[string]int, filename string, summary *Summary) (model.ItemEvent, bool) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	pickerID := get("picker_ldap")
	status := get("item_status")
	updatedAtRaw := get("updated_at")
	if pickerID == "" || status == "" || updatedAtRaw == "" {
		return model.ItemEvent{}, false
	}

	updatedAt, err := parseTimestamp(updatedAtRaw)
	if err != nil {
		return model.ItemEvent{}, false
	}

	if _, known := p.dir.Lookup(ctx, pickerID); !known {
		summary.PickersAdded++
	}
	p.dir.Register(ctx, pickerID, updatedAt)

	return model.ItemEvent{
		PickerID:   pickerID,
		Warehouse:  get("source_warehouse"),
		Status:     model.ItemStatus(strings.ToUpper(status)),
		PicklistID: get("external_picklist_id"),
		BinID:      get("location_bin_id"),
		Sequence:   get("location_sequence"),
		DispatchBy: get("dispatch_by_date"),
		UpdatedAt:  updatedAt,
		SourceFile: filename,
	}, true
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
