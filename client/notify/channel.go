// Package notify maintains the client side of the realtime push channel:
// one websocket connection per authenticated identity, fixed-delay
// reconnection, and in-order fan-out of inbound events to subscribers.
package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vibesocial/backend/domain"
)

// DefaultReconnectDelay is how long the channel waits after an unexpected
// closure before redialing. Retries are unbounded; availability is favored
// over backoff sophistication.
const DefaultReconnectDelay = 3 * time.Second

// Event is the tagged payload received on the channel.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Listener receives every inbound event, in arrival order.
type Listener func(Event)

// Alerter raises platform-level user alerts for notification events, when
// the host has been granted permission to do so.
type Alerter interface {
	Alert(n *domain.Notification)
}

// Config tunes the channel.
type Config struct {
	// BaseURL is the websocket origin, e.g. "ws://localhost:8000".
	BaseURL string
	// ReconnectDelay defaults to DefaultReconnectDelay.
	ReconnectDelay time.Duration
	// HandshakeTimeout bounds the dial; zero means the dialer default.
	HandshakeTimeout time.Duration
	// Alerter is optional.
	Alerter Alerter
	Logger  *zap.Logger
}

type listener struct {
	id int
	fn Listener
}

// Channel is the live push connection plus its subscriber list. At most one
// connection is open per (user id, token) pair at a time.
type Channel struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	userID    string
	token     string
	connected bool
	closed    bool
	gen       int
	retry     *time.Timer

	listeners  []listener
	nextListID int
}

// NewChannel builds a disconnected channel.
func NewChannel(cfg Config) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger,
	}
}

// Connect opens the connection for the given identity. Calling Connect
// again while a connection for the same identity is open is a no-op. A
// dial failure schedules a retry and is also reported to the caller.
func (c *Channel) Connect(userID, token string) error {
	c.mu.Lock()
	if c.connected && c.userID == userID && c.token == token {
		c.mu.Unlock()
		return nil
	}
	if c.conn != nil {
		// Identity changed: drop the old connection first.
		c.conn.Close()
		c.conn = nil
		c.connected = false
	}
	c.cancelRetryLocked()
	c.closed = false
	c.userID = userID
	c.token = token
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/ws/%s?token=%s", c.cfg.BaseURL, userID, url.QueryEscape(token))
	conn, _, err := c.dialer.Dial(endpoint, nil)
	if err != nil {
		c.logger.Warn("push channel dial failed", zap.Error(err))
		c.scheduleReconnect(gen)
		return err
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("push channel connected", zap.String("user_id", userID))
	go c.readLoop(conn, gen)
	return nil
}

// Disconnect closes the connection and cancels any pending reconnect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	c.cancelRetryLocked()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// IsConnected reflects current socket readiness. It is a UI status signal,
// not a correctness input.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// AddListener registers a subscriber and returns its deregistration
// function. Event order per listener matches arrival order; order across
// listeners is unspecified.
func (c *Channel) AddListener(fn Listener) func() {
	c.mu.Lock()
	id := c.nextListID
	c.nextListID++
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn, gen int) {
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			c.mu.Lock()
			stale := gen != c.gen
			closed := c.closed
			if !stale {
				c.connected = false
				c.conn = nil
			}
			c.mu.Unlock()

			if stale || closed {
				return
			}
			c.logger.Warn("push channel closed unexpectedly", zap.Error(err))
			c.scheduleReconnect(gen)
			return
		}
		c.dispatch(ev)
	}
}

// dispatch fans one event out to the listener snapshot. A listener removing
// itself during delivery affects future events only; the remaining
// listeners still receive the current one exactly once.
func (c *Channel) dispatch(ev Event) {
	if ev.Type != "notification" {
		return
	}

	c.mu.Lock()
	snapshot := make([]listener, len(c.listeners))
	copy(snapshot, c.listeners)
	c.mu.Unlock()

	for _, l := range snapshot {
		l.fn(ev)
	}

	if c.cfg.Alerter != nil {
		var n domain.Notification
		if err := json.Unmarshal(ev.Data, &n); err == nil {
			c.cfg.Alerter.Alert(&n)
		}
	}
}

// scheduleReconnect arms exactly one retry for the last-known identity,
// unless Disconnect was called or a newer connection superseded this one.
func (c *Channel) scheduleReconnect(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen || c.retry != nil {
		return
	}
	userID, token := c.userID, c.token
	c.retry = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		c.retry = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.logger.Info("push channel reconnecting", zap.String("user_id", userID))
		_ = c.Connect(userID, token)
	})
}

func (c *Channel) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}
