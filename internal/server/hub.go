package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/rooms"
)

const welcomeText = "Connected to roomchat server"

// Hub owns the lifecycle of websocket sessions: it registers new clients with
// the coordinator, starts their pumps, and runs the disconnect cleanup when a
// connection ends.
type Hub struct {
	log         *slog.Logger
	cfg         Config
	coordinator *rooms.Coordinator
	registry    *Registry
	register    chan *Client
	unregister  chan *Client
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewHub creates a Hub. Run must be started before clients are registered.
func NewHub(log *slog.Logger, cfg Config, coordinator *rooms.Coordinator, registry *Registry) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:         log,
		cfg:         sanitizeConfig(cfg),
		coordinator: coordinator,
		registry:    registry,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Register hands a new client to the hub. It returns false once the hub has
// shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Run starts the hub's event loop. It returns after Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("Received nil client registration; skipping")
				continue
			}
			h.connect(client)

		case client := <-h.unregister:
			h.release(client)
		}
	}
}

func (h *Hub) connect(client *Client) {
	if _, err := h.coordinator.Connect(client.sessionID); err != nil {
		h.log.Error("Failed to create session", "session_id", client.sessionID, "error", err)
		client.closeConn()
		return
	}
	clientCount := h.registry.add(client)
	client.setState(stateConnected)
	h.registry.sendTo(client, encodeFrame(string(chat.EventWelcome), "", chat.Welcome{
		Message:   welcomeText,
		SessionID: client.sessionID,
	}))
	h.log.Info("Client registered", "session_id", client.sessionID, "addr", client.addr, "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// release moves the client to its terminal state and cleans up its session.
// It is safe to call more than once.
func (h *Hub) release(client *Client) {
	if client.setState(stateDisconnected) == stateDisconnected {
		return
	}
	h.registry.remove(client)
	h.coordinator.Disconnect(client.sessionID)
	h.log.Info("Client unregistered", "session_id", client.sessionID, "addr", client.addr, "clients", h.registry.Count())
}

// disconnect is called by a read pump when its connection ends.
func (h *Hub) disconnect(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		h.release(client)
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	clients := h.registry.snapshot()
	for _, client := range clients {
		client.closeConn()
	}

	h.log.Info("Closed client connections", "clients", len(clients))
}

// Shutdown stops the event loop, closes every connection and waits for the
// pumps to finish, or for the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
