package api

import "net/http"

// RankingsHandler handles supervisor ranking requests.
type RankingsHandler struct {
	deps Dependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps Dependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleGetRankings handles GET /api/rankings?filter=&cohort= requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	filter := r.URL.Query().Get("filter")
	cohort := r.URL.Query().Get("cohort")

	view, err := h.deps.GetRankings(r.Context(), filter, cohort)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
