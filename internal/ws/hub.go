package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks the live stream connections by capture session. Streams are
// point-to-point (one client drives one challenge), so the hub exists for
// accounting and graceful shutdown, not broadcast.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Conn
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]*Conn),
	}
}

// Register tracks a connection. A second connection for the same session
// replaces the first in the registry; the engine of the first keeps its own
// lifecycle.
func (h *Hub) Register(sessionID uuid.UUID, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[sessionID] = conn
}

// Unregister drops a connection from the registry
func (h *Hub) Unregister(sessionID uuid.UUID, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[sessionID] == conn {
		delete(h.sessions, sessionID)
	}
}

// Get returns the connection for a session, if any
func (h *Hub) Get(sessionID uuid.UUID) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.sessions[sessionID]
	return conn, ok
}

// Count returns the number of active streams
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// CloseAll closes every active stream. Used during graceful shutdown so no
// challenge is left mid-capture with the device held. The engine is owned by
// the connection's read goroutine, so shutdown only closes the socket; the
// read loop's deferred Abort then releases the device on that goroutine.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.sessions))
	for _, conn := range h.sessions {
		conns = append(conns, conn)
	}
	h.sessions = make(map[uuid.UUID]*Conn)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
