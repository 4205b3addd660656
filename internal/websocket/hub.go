package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client wraps a WebSocket connection.
type Client struct {
	conn *websocket.Conn
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// Hub manages active WebSocket connections per owner. An owner may hold
// several connections at once (e.g. multiple tabs).
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]map[*Client]struct{} // ownerID -> set of clients
	maxPerOwner int
	logger      zerolog.Logger
}

// NewHub creates a new Hub with a per-owner connection limit.
func NewHub(maxPerOwner int, logger zerolog.Logger) *Hub {
	if maxPerOwner <= 0 {
		maxPerOwner = 10
	}
	return &Hub{
		clients:     make(map[string]map[*Client]struct{}),
		maxPerOwner: maxPerOwner,
		logger:      logger,
	}
}

// Register adds a WebSocket connection for the given owner. If the
// per-owner limit is exceeded, the new connection is closed and nil is
// returned.
func (h *Hub) Register(ownerID string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	ownerClients, ok := h.clients[ownerID]
	if !ok {
		ownerClients = make(map[*Client]struct{})
		h.clients[ownerID] = ownerClients
	}

	if len(ownerClients) >= h.maxPerOwner {
		h.logger.Warn().Str("owner_id", ownerID).Int("max", h.maxPerOwner).
			Msg("owner exceeded max websocket connections, closing new connection")
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			// Zero deadline means best effort.
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	ownerClients[client] = struct{}{}
	return client
}

// Unregister removes a client for the given owner and closes the connection.
func (h *Hub) Unregister(ownerID string, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ownerClients, ok := h.clients[ownerID]
	if !ok {
		_ = client.conn.Close()
		return
	}

	delete(ownerClients, client)

	if len(ownerClients) == 0 {
		delete(h.clients, ownerID)
	}

	_ = client.conn.Close()
}

// Send broadcasts a message to all active clients for the owner.
func (h *Hub) Send(ownerID string, msg []byte) {
	h.mu.RLock()
	ownerClients := h.clients[ownerID]
	h.mu.RUnlock()

	if len(ownerClients) == 0 {
		return
	}

	for client := range ownerClients {
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("websocket write failed")
			// Best-effort cleanup: unregister this client.
			go h.Unregister(ownerID, client)
		}
	}
}

// ActiveConnections returns the number of active connections for an owner.
func (h *Hub) ActiveConnections(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[ownerID])
}
