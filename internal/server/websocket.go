package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades requests on /ws and hands the connection to the
// hub, which owns it from then on.
type WebSocketHandler struct {
	log      *slog.Logger
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the upgrade handler. Upgrades are gated by the
// same origin policy as the request surface.
func NewWebSocketHandler(log *slog.Logger, hub *Hub, policy *OriginPolicy) *WebSocketHandler {
	return &WebSocketHandler{
		log: log,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.CheckOrigin,
		},
	}
}

// ServeHTTP validates that the request uses the GET method, upgrades the
// connection and registers a new client for it.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	if !h.hub.Register(client) {
		h.log.Info("Hub stopped; rejecting connection", "addr", r.RemoteAddr)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		client.closeConn()
	}
}
