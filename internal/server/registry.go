package server

import (
	"log/slog"
	"sync"

	"github.com/Tyrowin/roomchat/internal/rooms"
)

// Registry maps session ids to live clients and delivers room notifications
// to them. It is the rooms.Notifier of the running server.
type Registry struct {
	log     *slog.Logger
	mutex   sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:     log,
		clients: make(map[string]*Client),
	}
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}

func (r *Registry) add(client *Client) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	client.closed = false
	r.clients[client.sessionID] = client
	return len(r.clients)
}

// remove unregisters the client and closes its send channel. It reports
// false when the client was already gone.
func (r *Registry) remove(client *Client) bool {
	r.mutex.Lock()
	if current, ok := r.clients[client.sessionID]; !ok || current != client {
		r.mutex.Unlock()
		return false
	}
	delete(r.clients, client.sessionID)
	client.closed = true
	r.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	return true
}

// Notify encodes the notification once and queues it for every member that
// is still connected. Members whose buffers are full are dropped.
func (r *Registry) Notify(n rooms.Notification) {
	payload := encodeFrame(string(n.Type), "", n.Payload)
	if payload == nil {
		return
	}

	var failed []*Client
	for _, id := range n.Members {
		client, ok := r.lookup(id)
		if !ok {
			continue
		}
		if !r.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}

	r.log.Debug("Notification delivered", "type", n.Type, "room", n.Room,
		"member_count", len(n.Members), "failed", len(failed))
	r.removeFailedClients(failed)
}

func (r *Registry) lookup(sessionID string) (*Client, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	client, ok := r.clients[sessionID]
	return client, ok
}

// sendTo queues a private frame for one client.
func (r *Registry) sendTo(client *Client, payload []byte) bool {
	return r.safeSend(client, payload)
}

func (r *Registry) safeSend(client *Client, message []byte) bool {
	// Hold the read lock for the whole send: channels are only closed under
	// the write lock.
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if current, exists := r.clients[client.sessionID]; !exists || current != client || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// removeFailedClients drops slow consumers. Closing their send channel makes
// the write pump close the connection, and the read pump then runs the
// session cleanup.
func (r *Registry) removeFailedClients(clients []*Client) {
	for _, client := range clients {
		if r.remove(client) {
			r.log.Warn("Client removed due to full send buffer", "session_id", client.sessionID, "addr", client.addr)
		}
	}
}

func (r *Registry) snapshot() []*Client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}
