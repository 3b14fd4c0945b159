package api

import (
	"net/http"

	"renttrack/internal/store"
)

// SummaryHandler serves the profit/loss overview.
type SummaryHandler struct {
	Store *store.Store
}

// Get handles GET /api/summary.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	summary, err := h.Store.GetSummary(r.Context(), claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	jsonResponse(w, http.StatusOK, summary)
}
