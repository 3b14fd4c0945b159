package api

import (
	"net/http"

	"renttrack/internal/cache"
	"renttrack/internal/live"
	"renttrack/internal/store"
	"renttrack/internal/suggest"
)

// Deps carries everything the router needs. Cache and Suggest may be nil.
type Deps struct {
	Store     *store.Store
	Hub       *live.Hub
	Cache     *cache.ItemsCache
	Suggest   *suggest.Client
	JWTSecret string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Store: deps.Store, JWTSecret: deps.JWTSecret}
	itemsHandler := &ItemsHandler{Store: deps.Store, Cache: deps.Cache}
	activityHandler := &ActivityHandler{Store: deps.Store}
	summaryHandler := &SummaryHandler{Store: deps.Store}
	suggestHandler := &SuggestHandler{Client: deps.Suggest}
	watchHandler := &WatchHandler{Hub: deps.Hub}

	authMW := AuthMiddleware(deps.JWTSecret, deps.Store)
	approved := RequireApproved(deps.Store)

	// gated wraps a handler with auth plus the approval check.
	gated := func(h http.HandlerFunc) http.Handler {
		return authMW(approved(h))
	}

	// Public: register and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated regardless of approval status.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Items require an approved account.
	mux.Handle("GET /api/items", gated(itemsHandler.List))
	mux.Handle("POST /api/items", gated(itemsHandler.Create))
	mux.Handle("GET /api/items/watch", gated(watchHandler.Watch))
	mux.Handle("GET /api/items/{id}", gated(itemsHandler.Get))
	mux.Handle("PATCH /api/items/{id}", gated(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", gated(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/status", gated(itemsHandler.UpdateStatus))
	mux.Handle("POST /api/items/{id}/archive", gated(itemsHandler.Archive))
	mux.Handle("POST /api/items/{id}/unarchive", gated(itemsHandler.Unarchive))
	mux.Handle("POST /api/items/{id}/duplicate", gated(itemsHandler.Duplicate))

	mux.Handle("GET /api/activity", gated(activityHandler.List))
	mux.Handle("GET /api/summary", gated(summaryHandler.Get))
	mux.Handle("POST /api/suggest", gated(suggestHandler.Suggest))

	return mux
}
