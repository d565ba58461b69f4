// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/avesk/pickboard/internal/directory"
	"github.com/avesk/pickboard/internal/domain/types"
	"github.com/avesk/pickboard/internal/domain/window"
	"github.com/avesk/pickboard/internal/ingest"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the application service.
type Dependencies interface {
	// GetPickerStats returns the picker-facing dashboard payload.
	GetPickerStats(ctx context.Context, pickerID, filter string) (types.PickerStats, error)

	// GetRankings returns the supervisor rankings, optionally cohort-scoped.
	GetRankings(ctx context.Context, filter, cohort string) (types.RankingsView, error)

	// GetPickerDetail returns a picker's raw events in the window.
	GetPickerDetail(ctx context.Context, pickerID, filter string) (types.PickerDetail, error)

	// BuildReport streams the rankings as CSV and returns the filename.
	BuildReport(ctx context.Context, filter, cohort string, w io.Writer) (string, error)

	// IngestUpload ingests an uploaded CSV. duplicate is true when the
	// filename was already processed.
	IngestUpload(ctx context.Context, r io.Reader, filename string) (summary ingest.Summary, duplicate bool, err error)

	// ImportCohorts loads a cohort roster CSV into the directory.
	ImportCohorts(ctx context.Context, r io.Reader) (directory.ImportSummary, error)
}

// StatsProvider exposes operational counters for GET /stats.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	pickerHandler   *PickerHandler
	rankingsHandler *RankingsHandler
	reportHandler   *ReportHandler
	uploadHandler   *UploadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		pickerHandler:   NewPickerHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		reportHandler:   NewReportHandler(deps),
		uploadHandler:   NewUploadHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("/api/report", MetricsMiddleware(s.reportHandler.HandleGetReport, "report"))
	mux.HandleFunc("/api/upload", MetricsMiddleware(s.uploadHandler.HandlePostUpload, "upload"))
	mux.HandleFunc("/api/picker/", MetricsMiddleware(s.pickerHandler.HandlePicker, "picker"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates engine errors to HTTP responses. An invalid
// time filter is the caller's fault; everything else is a server error.
func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, window.ErrInvalidFilter) {
		writeError(w, http.StatusBadRequest, "invalid_filter", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}
