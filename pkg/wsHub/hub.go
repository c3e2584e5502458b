package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/Temutjin2k/driver-engine/pkg/metrics"
	"github.com/google/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub keeps the open UI connections.
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

func (h *ConnectionHub) Add(c *Conn) error {
	if c == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnectionsGauge.Set(float64(n))
	return nil
}

// Delete closes and forgets the connection.
func (h *ConnectionHub) Delete(id uuid.UUID) error {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	metrics.WebSocketConnectionsGauge.Set(float64(n))
	return c.Close()
}

// Broadcast queues msg on every connection. Connections that cannot keep up
// are dropped.
func (h *ConnectionHub) Broadcast(msg any) {
	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			h.l.Warn(context.Background(), "dropping websocket client", "conn_id", c.id.String(), "error", err.Error())
			_ = h.Delete(c.id)
		}
	}
}

func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every connection.
func (h *ConnectionHub) Close() {
	h.mu.Lock()
	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		_ = h.Delete(id)
	}
	h.l.Info(context.Background(), "all websocket connections closed")
}
