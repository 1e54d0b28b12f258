// Package gateway manages WebSocket subscribers for live alerts. Every
// client is tagged with one feedKey at connect time; alert fan-out is
// best-effort, at-most-once per connected client, and never blocks the
// producing session.
package gateway

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub tracks connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	// OnDrop is called when a slow client misses an alert.
	OnDrop func(feedKey string)

	// OnCountChange, if set, observes the connected-client count after
	// every connect and disconnect.
	OnCountChange func(n int)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// ServeWS upgrades the request and registers the client under the
// feedKey query parameter. The tag is written once and never mutated.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 64),
		hub:     h,
		feedKey: r.URL.Query().Get("feedKey"),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected for feedKey %s (%d total)", client.feedKey, count)
	if h.OnCountChange != nil {
		h.OnCountChange(count)
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastAlert delivers a payload to every client tagged with feedKey.
// Full send buffers drop the alert for that client; delivery is
// fire-and-forget. Returns the number of clients the payload was queued
// for.
func (h *Hub) BroadcastAlert(feedKey string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.clients {
		if client.feedKey != feedKey {
			continue
		}
		select {
		case client.send <- payload:
			delivered++
		default:
			if h.OnDrop != nil {
				h.OnDrop(feedKey)
			} else {
				log.Printf("[gateway] client for feedKey %s too slow, dropping alert", feedKey)
			}
		}
	}
	return delivered
}

// removeClient unregisters a client and closes its send channel.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	if h.OnCountChange != nil {
		h.OnCountChange(count)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
