// Package statusfeed broadcasts the controller's per-cycle status over
// WebSocket: a register/unregister/broadcast channel trio with a
// write/read pump goroutine per client. The composition root publishes a
// StatusEvent after every Clock call; this is the transport only, no
// dashboard rendering.
package statusfeed

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// StatusEvent is the JSON payload broadcast after every cycle.
type StatusEvent struct {
	CycleSeq int64   `json:"cycle_seq"`
	Mode     string  `json:"mode"`
	Failure  string  `json:"failure"`
	Water    float64 `json:"water_level"`
	Steam    float64 `json:"steam_level"`
	Active   int     `json:"active_pumps"`
}

// Hub manages WebSocket client connections and broadcasts status events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	registerCh   chan *client
	unregisterCh chan *client
	broadcastCh  chan []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a new status feed hub.
func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*client]bool),
		registerCh:   make(chan *client, 16),
		unregisterCh: make(chan *client, 16),
		broadcastCh:  make(chan []byte, 256),
	}
}

// Run processes register, unregister, and broadcast events. Blocks until
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.registerCh:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregisterCh:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()

		case data := <-h.broadcastCh:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends raw data to all connected clients. Safe to call from
// any goroutine.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcastCh <- data:
	default:
	}
}

// BroadcastStatus marshals a StatusEvent and broadcasts it. Called by the
// composition root once per Controller.Clock invocation.
func (h *Hub) BroadcastStatus(evt StatusEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("statusfeed: marshal event: %v", err)
		return
	}
	h.Broadcast(data)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket is an HTTP handler that upgrades to WebSocket.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // LAN-only dashboard, no browser origin to enforce
	})
	if err != nil {
		log.Printf("statusfeed: accept failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.registerCh <- c

	go h.writePump(r.Context(), c)
	h.readPump(r.Context(), c)
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() { h.unregisterCh <- c }()

	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
