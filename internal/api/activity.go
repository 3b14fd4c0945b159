package api

import (
	"net/http"
	"strconv"

	"renttrack/internal/model"
	"renttrack/internal/store"
)

// ActivityHandler serves the append-only activity log.
type ActivityHandler struct {
	Store *store.Store
}

// List handles GET /api/activity. The optional "item" query parameter narrows
// the log to one item's trail; "limit" caps the unfiltered list.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var entries []model.ActivityLog
	var err error
	if itemID := r.URL.Query().Get("item"); itemID != "" {
		entries, err = h.Store.ListItemActivity(r.Context(), claims.UserID, itemID)
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err = h.Store.ListActivity(r.Context(), claims.UserID, limit)
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	if entries == nil {
		entries = []model.ActivityLog{}
	}

	jsonResponse(w, http.StatusOK, entries)
}
