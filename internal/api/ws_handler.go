package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mailfold/mailfold/internal/auth"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. The server is expected to run behind a
		// reverse proxy in a trusted environment.
		return true
	},
}

// WebSocket handles GET /api/v1/ws?owner=...&token=... and streams
// new-message events for the owner's scopes. The token comes from a
// query parameter because browsers cannot set headers on WebSocket
// connections; the Authorization header works as a fallback.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r)
	}
	if token == "" || !auth.TokensEqual(token, h.apiToken) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ownerID := r.URL.Query().Get("owner")
	if ownerID == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("websocket upgrade failed")
		return
	}

	client := h.hub.Register(ownerID, conn)
	if client == nil {
		return
	}

	h.logger.Info().Str("owner_id", ownerID).Msg("websocket connected")

	// Read loop keeps the connection open and detects disconnects.
	go func() {
		for {
			if _, _, err := client.Conn().ReadMessage(); err != nil {
				break
			}
		}
		h.hub.Unregister(ownerID, client)
	}()
}
