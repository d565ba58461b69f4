// Package app wires the ingestion pipeline and the ranking engine into one
// service behind the HTTP handlers.
package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/avesk/pickboard/internal/adapters/repository"
	"github.com/avesk/pickboard/internal/directory"
	"github.com/avesk/pickboard/internal/domain/aggregate"
	"github.com/avesk/pickboard/internal/domain/dedupe"
	"github.com/avesk/pickboard/internal/domain/leaderboard"
	"github.com/avesk/pickboard/internal/domain/rank"
	"github.com/avesk/pickboard/internal/domain/scoring"
	"github.com/avesk/pickboard/internal/domain/types"
	"github.com/avesk/pickboard/internal/domain/window"
	"github.com/avesk/pickboard/internal/ingest"
	"github.com/avesk/pickboard/pkg/logger"
	"github.com/avesk/pickboard/pkg/metrics"
)

// ErrNotStarted is returned by operations that need the ingestion pipeline
// before Start has run.
var ErrNotStarted = errors.New("service not started")

// Service owns the item store, the picker directory, and the ingestion
// pipeline, and computes leaderboard views on demand.
type Service struct {
	store repository.Store
	dir   directory.Directory
	clock func() time.Time
	log   logger.Logger

	leaderboardSize int
	dropDir         string
	scanInterval    time.Duration
	workerCount     int
	queueSize       int
	batchSize       int

	tracker dedupe.Tracker
	queue   *ingest.InMemoryQueue
	proc    *ingest.Processor
	pool    *ingest.Pool
	cancel  context.CancelFunc
}

// New creates a Service with defaults overridden by opts. The zero
// configuration runs fully in memory.
func New(opts ...Option) *Service {
	s := &Service{
		store:           repository.NewMemoryStore(),
		dir:             directory.NewInMemoryDirectory(),
		clock:           time.Now,
		log:             logger.Named("app"),
		leaderboardSize: leaderboard.DefaultTopN,
		dropDir:         "csv_uploads",
		scanInterval:    10 * time.Minute,
		workerCount:     2,
		queueSize:       100,
		batchSize:       500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start brings up the ingestion pipeline: the dedupe tracker seeded from the
// store, the file queue, the worker pool, and the drop-directory watcher.
func (s *Service) Start(ctx context.Context) error {
	processed, err := s.store.ProcessedFiles(ctx)
	if err != nil {
		return fmt.Errorf("load processed files: %w", err)
	}
	s.tracker = dedupe.NewInMemoryTracker(processed...)
	s.queue = ingest.NewInMemoryQueue(ingest.WithCapacity(s.queueSize))
	s.proc = ingest.NewProcessor(s.store, s.dir,
		ingest.WithBatchSize(s.batchSize),
		ingest.WithClock(s.clock))
	s.pool = ingest.NewPool(s.workerCount, s.queue, s.proc, s.tracker)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	watcher := ingest.NewWatcher(s.dropDir, s.queue, s.tracker, s.scanInterval)
	go func() {
		if err := watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error(runCtx, "watcher stopped", logger.Error(err))
		}
	}()

	s.log.Info(ctx, "ingestion pipeline started",
		logger.String("drop_dir", s.dropDir),
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("seeded_files", len(processed)))
	return nil
}

// Stop shuts down the ingestion pipeline and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	s.log.Info(ctx, "service stopped")
	return s.store.Close()
}

// snapshot is one window's fully computed ranking state.
type snapshot struct {
	filter   window.Filter
	entries  []rank.Entry
	cls      scoring.Classifier
	dailyAvg float64
	pickers  int
}

// compute resolves the filter, loads the window's events, and runs the full
// aggregate-score-rank chain.
func (s *Service) compute(ctx context.Context, rawFilter string, scope aggregate.CohortScope) (*snapshot, error) {
	start := s.clock()

	filter, err := window.ParseFilter(rawFilter)
	if err != nil {
		return nil, err
	}
	rng, err := window.Resolve(filter, s.clock())
	if err != nil {
		return nil, err
	}

	events, err := s.store.EventsBetween(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	res := aggregate.Reduce(ctx, events, rng, scope, s.dir)
	dailyAvg := scoring.DailyAverage(res)
	entries := rank.Order(res)

	metrics.RecordLeaderboardRequest()
	metrics.RecordLeaderboardLatency(float64(s.clock().Sub(start).Milliseconds()))

	return &snapshot{
		filter:   filter,
		entries:  entries,
		cls:      scoring.NewClassifier(filter, dailyAvg),
		dailyAvg: dailyAvg,
		pickers:  res.Pickers(),
	}, nil
}

// parseCohort maps a raw cohort label to a scope. Empty and "all" mean every
// cohort. Unparseable and non-positive labels scope to a cohort nobody
// belongs to, which yields an empty result rather than an error; cohort 0 in
// particular marks an unassigned profile, never a queryable group.
func parseCohort(raw string) aggregate.CohortScope {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "all" {
		return aggregate.AllCohorts
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return aggregate.CohortScope(-1)
	}
	return aggregate.CohortScope(n)
}

// GetPickerStats returns the picker-facing dashboard payload.
func (s *Service) GetPickerStats(ctx context.Context, pickerID, filter string) (types.PickerStats, error) {
	snap, err := s.compute(ctx, filter, aggregate.AllCohorts)
	if err != nil {
		return types.PickerStats{}, err
	}
	builder := leaderboard.NewBuilder(s.dir)
	return builder.PickerStats(ctx, snap.entries, snap.cls, snap.dailyAvg, pickerID, s.leaderboardSize, s.clock()), nil
}

// GetRankings returns the supervisor rankings, optionally scoped to one
// cohort. An unknown cohort label returns an empty view.
func (s *Service) GetRankings(ctx context.Context, filter, cohort string) (types.RankingsView, error) {
	snap, err := s.compute(ctx, filter, parseCohort(cohort))
	if err != nil {
		return types.RankingsView{}, err
	}
	builder := leaderboard.NewBuilder(s.dir)
	view := builder.Rankings(ctx, snap.entries, snap.cls, snap.dailyAvg, 0, s.clock())
	view.Cohort = strings.TrimSpace(cohort)
	return view, nil
}

// GetPickerDetail returns a picker's raw events in the window, newest first.
func (s *Service) GetPickerDetail(ctx context.Context, pickerID, filter string) (types.PickerDetail, error) {
	f, err := window.ParseFilter(filter)
	if err != nil {
		return types.PickerDetail{}, err
	}
	rng, err := window.Resolve(f, s.clock())
	if err != nil {
		return types.PickerDetail{}, err
	}

	events, err := s.store.EventsForPicker(ctx, pickerID, rng.Start, rng.End)
	if err != nil {
		return types.PickerDetail{}, fmt.Errorf("load picker events: %w", err)
	}

	detail := types.PickerDetail{
		PickerID: pickerID,
		Name:     "-",
		Cohort:   "-",
		Details:  make([]types.DetailRow, 0, len(events)),
	}
	if profile, ok := s.dir.Lookup(ctx, pickerID); ok {
		if profile.Name != "" {
			detail.Name = profile.Name
		}
		if profile.Cohort > 0 {
			detail.Cohort = strconv.Itoa(profile.Cohort)
		}
		if !profile.JoinedAt.IsZero() {
			age := int(s.clock().Sub(profile.JoinedAt).Hours() / 24)
			if age < 0 {
				age = 0
			}
			detail.AgeInDays = &age
		}
	}
	for i := range events {
		detail.Details = append(detail.Details, types.DetailRow{
			PicklistID: events[i].PicklistID,
			BinID:      events[i].BinID,
			Status:     string(events[i].Status),
			UpdatedAt:  events[i].UpdatedAt,
		})
	}
	return detail, nil
}

// BuildReport writes the rankings as CSV to w and returns the suggested
// download filename.
func (s *Service) BuildReport(ctx context.Context, filter, cohort string, w io.Writer) (string, error) {
	view, err := s.GetRankings(ctx, filter, cohort)
	if err != nil {
		return "", err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Rank", "Picker ID", "Picklists", "Items Picked", "Items Lost", "Score"}); err != nil {
		return "", fmt.Errorf("write report header: %w", err)
	}
	for _, row := range view.Rankings {
		record := []string{
			strconv.Itoa(row.Rank),
			row.PickerID,
			strconv.Itoa(row.UniquePicklists),
			strconv.Itoa(row.ItemsPicked),
			strconv.Itoa(row.ItemsLost),
			strconv.Itoa(row.Score),
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("write report row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush report: %w", err)
	}

	label := strings.TrimSpace(strings.ToLower(cohort))
	if label == "" || label == "all" {
		label = "all"
	}
	f, _ := window.ParseFilter(filter)
	filename := fmt.Sprintf("cohort%s_rankings_%s_%s.csv",
		label, string(f), s.clock().Format("20060102_150405"))
	return filename, nil
}

// IngestUpload ingests an uploaded CSV directly, bypassing the drop
// directory. Already-processed filenames are rejected as duplicates.
func (s *Service) IngestUpload(ctx context.Context, r io.Reader, filename string) (ingest.Summary, bool, error) {
	if s.tracker == nil || s.proc == nil {
		return ingest.Summary{}, false, ErrNotStarted
	}
	if s.tracker.SeenAndRecord(ctx, filename) {
		metrics.RecordFileDuplicate()
		return ingest.Summary{Filename: filename}, true, nil
	}
	summary, err := s.proc.Process(ctx, r, filename)
	if err != nil {
		s.tracker.Unrecord(ctx, filename)
		return summary, false, err
	}
	return summary, false, nil
}

// ImportCohorts loads a cohort roster CSV into the directory.
func (s *Service) ImportCohorts(ctx context.Context, r io.Reader) (directory.ImportSummary, error) {
	d, ok := s.dir.(*directory.InMemoryDirectory)
	if !ok {
		return directory.ImportSummary{}, errors.New("directory does not support cohort import")
	}
	return d.ImportCohortCSV(ctx, r, s.clock())
}

// GetStats returns operational counters for the /stats endpoint.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"total_pickers": s.dir.Count(ctx),
	}
	if n, err := s.store.CountEvents(ctx); err == nil {
		stats["total_events"] = n
	}
	if s.queue != nil {
		stats["queue_size"] = s.queue.Size()
		stats["queue_capacity"] = s.queue.Capacity()
	}
	if s.tracker != nil {
		stats["processed_files"] = s.tracker.Size()
	}
	return stats
}

// UpdateServiceMetrics publishes gauge metrics derived from current state.
// Called periodically from main.
func (s *Service) UpdateServiceMetrics(ctx context.Context) {
	metrics.UpdateTotalPickers(s.dir.Count(ctx))
	if n, err := s.store.CountEvents(ctx); err == nil {
		metrics.UpdateTotalEvents(n)
	}
	if s.queue != nil {
		metrics.UpdateQueueSize(s.queue.Size())
		if c := s.queue.Capacity(); c > 0 {
			metrics.UpdateQueueUtilization(float64(s.queue.Size()) / float64(c))
		}
	}
}
