package ws

import (
	"encoding/json"
	"sync"

	"github.com/crewboard/backend/internal/infrastructure/logger"
	"github.com/crewboard/backend/pkg/wire"
	"github.com/gofiber/contrib/websocket"
)

// Conn is the write side of one viewer connection. *websocket.Conn satisfies
// it; tests register fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub is the live registry of reachable viewers and the broadcaster over
// them. It is owned by the composition root and injected into whatever needs
// to publish; there is no package-level connection state.
type Hub struct {
	log *logger.Logger

	mu    sync.RWMutex
	conns map[Conn]*connState
}

// connState serializes writes to one connection so every viewer observes
// events in publish order.
type connState struct {
	mu sync.Mutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[Conn]*connState),
	}
}

// Register adds a connection; no-op if already present.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		return
	}
	h.conns[conn] = &connState{}
	h.log.Infow("ws_conn_registered", "total", len(h.conns))
}

// Unregister removes a connection; safe to call any number of times.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	h.log.Infow("ws_conn_unregistered", "total", len(h.conns))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast serializes msg once and writes it to every registered
// connection. A failing peer is dropped and closed; it never blocks or
// aborts delivery to the others.
func (h *Hub) Broadcast(msg wire.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorw("ws_broadcast_marshal_failed", "kind", msg.Kind(), "error", err)
		return
	}

	h.mu.RLock()
	targets := make(map[Conn]*connState, len(h.conns))
	for conn, state := range h.conns {
		targets[conn] = state
	}
	h.mu.RUnlock()

	for conn, state := range targets {
		if err := h.write(conn, state, payload); err != nil {
			h.log.Warnw("ws_write_failed", "kind", msg.Kind(), "error", err)
			h.Unregister(conn)
			conn.Close()
		}
	}
}

// Send writes msg to a single registered connection, under the same write
// lock broadcasts use so per-connection ordering holds.
func (h *Hub) Send(conn Conn, msg wire.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	state, ok := h.conns[conn]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := h.write(conn, state, payload); err != nil {
		h.Unregister(conn)
		conn.Close()
		return err
	}
	return nil
}

func (h *Hub) write(conn Conn, state *connState, payload []byte) error {
	state.mu.Lock()
	defer state.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}
