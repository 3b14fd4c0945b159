package api

import (
	"errors"
	"net/http"

	"renttrack/internal/cache"
	"renttrack/internal/model"
	"renttrack/internal/store"
)

// ItemsHandler handles item CRUD and status endpoints.
type ItemsHandler struct {
	Store *store.Store
	Cache *cache.ItemsCache
}

type createItemRequest struct {
	Name          string   `json:"name"`
	ParentID      string   `json:"parent_id"`
	Username      string   `json:"username"`
	Password      string   `json:"password"`
	PIN           string   `json:"pin"`
	Notes         string   `json:"notes"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Status        string   `json:"status"`
	Category      string   `json:"category"`
	ContactName   string   `json:"contact_name"`
	ContactPhone  string   `json:"contact_phone"`
	PurchasePrice *float64 `json:"purchase_price"`
}

type updateItemRequest struct {
	Name          *string  `json:"name"`
	Username      *string  `json:"username"`
	Password      *string  `json:"password"`
	PIN           *string  `json:"pin"`
	Notes         *string  `json:"notes"`
	StartDate     *string  `json:"start_date"`
	EndDate       *string  `json:"end_date"`
	Category      *string  `json:"category"`
	ContactName   *string  `json:"contact_name"`
	ContactPhone  *string  `json:"contact_phone"`
	PurchasePrice *float64 `json:"purchase_price"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// storeError maps store sentinels to HTTP statuses.
func storeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrPermissionDenied):
		jsonPermissionDenied(w)
	case errors.Is(err, store.ErrInvalidStatus):
		jsonError(w, http.StatusBadRequest, "invalid status")
	case errors.Is(err, store.ErrNotArchived):
		jsonError(w, http.StatusConflict, "item must be archived first")
	default:
		jsonError(w, http.StatusInternalServerError, fallback)
	}
}

func validDate(s string) bool {
	if s == "" {
		return true
	}
	return model.ValidDate(s)
}

// List handles GET /api/items. The Redis cache, when configured, fronts this
// read; every mutation invalidates it through the change event bus.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	if items, ok := h.Cache.Get(r.Context(), claims.UserID); ok {
		jsonResponse(w, http.StatusOK, items)
		return
	}

	items, err := h.Store.ListItems(r.Context(), claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	h.Cache.Set(r.Context(), claims.UserID, items)
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if !validDate(req.StartDate) || !validDate(req.EndDate) {
		jsonError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}

	item, err := h.Store.CreateItem(r.Context(), claims.UserID, &model.Item{
		Name:          req.Name,
		ParentID:      req.ParentID,
		Username:      req.Username,
		Password:      req.Password,
		PIN:           req.PIN,
		Notes:         req.Notes,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        req.Status,
		Category:      req.Category,
		ContactName:   req.ContactName,
		ContactPhone:  req.ContactPhone,
		PurchasePrice: req.PurchasePrice,
	})
	if err != nil {
		storeError(w, err, "failed to create item")
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, err := h.Store.GetItem(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Update handles PATCH /api/items/{id}. Absent fields are left untouched.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil && *req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if (req.StartDate != nil && !validDate(*req.StartDate)) ||
		(req.EndDate != nil && !validDate(*req.EndDate)) {
		jsonError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}

	item, err := h.Store.UpdateItem(r.Context(), claims.UserID, r.PathValue("id"), store.ItemUpdate{
		Name:          req.Name,
		Username:      req.Username,
		Password:      req.Password,
		PIN:           req.PIN,
		Notes:         req.Notes,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Category:      req.Category,
		ContactName:   req.ContactName,
		ContactPhone:  req.ContactPhone,
		PurchasePrice: req.PurchasePrice,
	})
	if err != nil {
		storeError(w, err, "failed to update item")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// UpdateStatus handles PUT /api/items/{id}/status, the board's drop endpoint.
func (h *ItemsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Store.UpdateItemStatus(r.Context(), claims.UserID, r.PathValue("id"), req.Status)
	if err != nil {
		storeError(w, err, "failed to update status")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Archive handles POST /api/items/{id}/archive.
func (h *ItemsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, err := h.Store.ArchiveItem(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "failed to archive item")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Unarchive handles POST /api/items/{id}/unarchive.
func (h *ItemsHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, err := h.Store.UnarchiveItem(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "failed to unarchive item")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Duplicate handles POST /api/items/{id}/duplicate.
func (h *ItemsHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, err := h.Store.DuplicateItem(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "failed to duplicate item")
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Delete handles DELETE /api/items/{id}. Only archived items can be deleted.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	if err := h.Store.DeleteItem(r.Context(), claims.UserID, r.PathValue("id")); err != nil {
		storeError(w, err, "failed to delete item")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}
