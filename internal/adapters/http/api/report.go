package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
)

// ReportHandler handles CSV report downloads.
type ReportHandler struct {
	deps Dependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleGetReport handles GET /api/report?filter=&cohort= requests. The
// report is built into memory first so headers can still carry an error
// status when the build fails.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	filter := r.URL.Query().Get("filter")
	cohort := r.URL.Query().Get("cohort")

	var buf bytes.Buffer
	filename, err := h.deps.BuildReport(r.Context(), filter, cohort, &buf)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
