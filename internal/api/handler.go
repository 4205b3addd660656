// Package api exposes the HTTP surface: the inbound webhook, the
// thread read API, and the WebSocket notification endpoint.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mailfold/mailfold/internal/blob"
	"github.com/mailfold/mailfold/internal/config"
	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/provider"
	"github.com/mailfold/mailfold/internal/provider/jsonhook"
	"github.com/mailfold/mailfold/internal/provider/rawmime"
	ws "github.com/mailfold/mailfold/internal/websocket"
)

// Handler contains shared dependencies for all HTTP handlers. The
// write path (webhook) goes through the ingestion engine; the read
// path queries Postgres directly.
type Handler struct {
	pool         *pgxpool.Pool
	apiToken     string
	storeTimeout time.Duration
	scopes       *ingest.ScopeResolver
	coordinator  *ingest.Coordinator
	associator   *ingest.Associator
	adapters     map[string]provider.Adapter
	hub          *ws.Hub
	logger       zerolog.Logger
}

// NewHandler creates a Handler. cache may be nil; hub may be nil when
// notifications are not wired.
func NewHandler(pool *pgxpool.Pool, store ingest.Store, cache ingest.ScopeCache, blobs blob.Store, hub *ws.Hub, cfg *config.Config, logger zerolog.Logger) *Handler {
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 30 * time.Second
	}

	return &Handler{
		pool:         pool,
		apiToken:     cfg.APIToken,
		storeTimeout: storeTimeout,
		scopes:      ingest.NewScopeResolver(store, cache),
		coordinator: ingest.NewCoordinator(store, store, logger),
		associator:  ingest.NewAssociator(store, blobs, logger),
		adapters: map[string]provider.Adapter{
			"message/rfc822":   rawmime.New(),
			"application/json": jsonhook.New(),
		},
		hub:    hub,
		logger: logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			h.Error(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parsePagination parses page and limit query parameters, falling back
// to page 1 and defaultLimit when missing or invalid.
func parsePagination(r *http.Request, defaultLimit int) (limit, offset int) {
	page := 1
	limit = defaultLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	return limit, (page - 1) * limit
}
