package api

import (
	"net/http"
	"path/filepath"
	"strings"
)

// maxUploadBytes caps multipart uploads; daily exports run a few megabytes.
const maxUploadBytes = 64 << 20

// UploadHandler handles manual CSV uploads.
type UploadHandler struct {
	deps Dependencies
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps Dependencies) *UploadHandler {
	return &UploadHandler{deps: deps}
}

type uploadResponse struct {
	Success      bool   `json:"success"`
	Duplicate    bool   `json:"duplicate"`
	Filename     string `json:"filename"`
	RowsInserted int    `json:"rows_inserted"`
	RowsSkipped  int    `json:"rows_skipped"`
	PickersAdded int    `json:"pickers_added"`
}

// HandlePostUpload handles POST /api/upload requests carrying a multipart
// form with a csv_file field.
func (h *UploadHandler) HandlePostUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	file, header, err := r.FormFile("csv_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", ErrMissingFile)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		writeError(w, http.StatusBadRequest, "not_csv", ErrNotCSV)
		return
	}

	summary, duplicate, err := h.deps.IngestUpload(r.Context(), file, filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingest_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:      true,
		Duplicate:    duplicate,
		Filename:     filename,
		RowsInserted: summary.RowsInserted,
		RowsSkipped:  summary.RowsSkipped,
		PickersAdded: summary.PickersAdded,
	})
}
