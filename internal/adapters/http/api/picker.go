package api

import (
	"net/http"
	"strings"
)

// PickerHandler handles the per-picker routes.
type PickerHandler struct {
	deps Dependencies
}

// NewPickerHandler creates a new picker handler.
func NewPickerHandler(deps Dependencies) *PickerHandler {
	return &PickerHandler{deps: deps}
}

// HandlePicker routes GET /api/picker/{picker_id}/stats and
// GET /api/picker/{picker_id}/detail.
func (h *PickerHandler) HandlePicker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/picker/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	pickerID, action := parts[0], parts[1]
	filter := r.URL.Query().Get("filter")

	switch action {
	case "stats":
		stats, err := h.deps.GetPickerStats(r.Context(), pickerID, filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case "detail":
		detail, err := h.deps.GetPickerDetail(r.Context(), pickerID, filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	default:
		http.NotFound(w, r)
	}
}
