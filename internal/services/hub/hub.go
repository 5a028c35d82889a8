// Package hub tracks live push connections per user and fans
// server-originated events out to them.
package hub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vibesocial/backend/domain"
)

// Conn is the slice of a websocket connection the hub needs. Writes on the
// same Conn must not be concurrent; the hub serializes them under its lock.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Frame is the tagged payload sent over the push channel.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub is the per-user connection registry. A user may hold several
// connections (multiple tabs/devices); dead connections are dropped on the
// first failed write.
type Hub struct {
	mu     sync.Mutex
	conns  map[string][]Conn
	logger *zap.Logger
}

// New builds an empty hub.
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:  make(map[string][]Conn),
		logger: logger,
	}
}

// Register adds a connection for the user.
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], conn)
	total := len(h.conns[userID])
	h.mu.Unlock()
	h.logger.Info("push connection registered",
		zap.String("user_id", userID), zap.Int("connections", total))
}

// Unregister removes a connection for the user; the last removal drops the
// user's entry entirely.
func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.conns[userID]
	for i, c := range list {
		if c == conn {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(h.conns, userID)
		return
	}
	h.conns[userID] = list
}

// SendNotification pushes a notification frame to every connection of the
// recipient. Returns false when the user has no live connection.
func (h *Hub) SendNotification(userID string, n *domain.Notification) bool {
	return h.send(userID, Frame{Type: "notification", Data: n})
}

// Broadcast pushes a frame to every connected user.
func (h *Hub) Broadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID := range h.conns {
		h.sendLocked(userID, frame)
	}
}

// IsUserConnected reports whether the user has at least one live connection.
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID]) > 0
}

// ConnectionCount returns the total number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, list := range h.conns {
		total += len(list)
	}
	return total
}

func (h *Hub) send(userID string, frame Frame) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns[userID]) == 0 {
		return false
	}
	h.sendLocked(userID, frame)
	return len(h.conns[userID]) > 0
}

// sendLocked writes the frame to every connection of the user and prunes
// the ones that fail.
func (h *Hub) sendLocked(userID string, frame Frame) {
	list := h.conns[userID]
	alive := list[:0]
	for _, conn := range list {
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Warn("push write failed, dropping connection",
				zap.String("user_id", userID), zap.Error(err))
			conn.Close()
			continue
		}
		alive = append(alive, conn)
	}
	if len(alive) == 0 {
		delete(h.conns, userID)
		return
	}
	h.conns[userID] = alive
}
