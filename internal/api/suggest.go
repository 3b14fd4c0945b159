package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"renttrack/internal/suggest"
)

// SuggestHandler proxies end-date suggestions to the configured model.
type SuggestHandler struct {
	Client *suggest.Client
}

type suggestRequest struct {
	Description string `json:"description"`
}

// Suggest handles POST /api/suggest. Upstream failures come back as a generic
// retryable error; the date is advisory and the client falls back to manual
// entry.
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		jsonError(w, http.StatusBadRequest, "description required")
		return
	}

	result, err := h.Client.Suggest(r.Context(), req.Description)
	if errors.Is(err, suggest.ErrDisabled) {
		jsonError(w, http.StatusServiceUnavailable, "suggestions not configured")
		return
	}
	if err != nil {
		zap.S().Warnw("suggestion failed", "err", err)
		jsonError(w, http.StatusBadGateway, "could not get a suggestion, try again")
		return
	}

	jsonResponse(w, http.StatusOK, result)
}
