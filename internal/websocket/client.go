// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB

	// Inbound rate limit per connection. State updates arrive on every
	// swipe so the ceiling is generous; it exists to stop floods, not to
	// shape normal traffic.
	inboundRate  = rate.Limit(20)
	inboundBurst = 40
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// DETERMINISM: This ensures clients can be sorted in a consistent order for
// broadcast operations, eliminating non-deterministic map iteration order.
var clientIDCounter atomic.Uint64

// Inbound is a frame read from the connection. Data stays raw so the
// dispatcher can decode it per message type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Dispatcher receives decoded frames and the disconnect signal for a
// client. Implemented by Handler.
type Dispatcher interface {
	HandleMessage(c *Client, msg Inbound)
	HandleDisconnect(c *Client)
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	// id is a unique identifier for this client, used for deterministic
	// ordering. Assigned from an atomic counter.
	id         uint64
	sessionID  string
	hub        *Hub
	conn       *websocket.Conn
	send       chan Message
	limiter    *rate.Limiter
	dispatcher Dispatcher

	// sendMu guards closed and serializes Send against closeSend. The hub
	// closes the queue while the read pump may still be dispatching
	// handlers that call Send.
	sendMu sync.Mutex
	closed bool
}

// NewClient creates a new Client bound to a session ID.
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, dispatcher Dispatcher) *Client {
	return &Client{
		id:         clientIDCounter.Add(1),
		sessionID:  sessionID,
		hub:        hub,
		conn:       conn,
		send:       make(chan Message, 256),
		limiter:    rate.NewLimiter(inboundRate, inboundBurst),
		dispatcher: dispatcher,
	}
}

// ID returns the client's unique identifier for deterministic ordering.
func (c *Client) ID() uint64 {
	return c.id
}

// SessionID returns the viewer session this connection belongs to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Send queues a message for this client without blocking. Full queues
// drop the message; the write pump will catch up or the connection dies
// on the next ping. Sends after the hub has closed the queue are no-ops.
func (c *Client) Send(event string, data interface{}) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- Message{Type: event, Data: data}:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().
			Str("session_id", c.sessionID).
			Str("message_type", event).
			Msg("client send queue full, dropping message")
	}
}

// closeSend closes the outbound queue exactly once. Later Send calls
// return without touching the closed channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps messages from the websocket connection to the dispatcher.
func (c *Client) readPump() {
	defer func() {
		if c.dispatcher != nil {
			c.dispatcher.HandleDisconnect(c)
		}
		c.hub.Unregister <- c
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("session_id", c.sessionID).Msg("unexpected websocket close error")
			}
			break
		}

		if !c.limiter.Allow() {
			metrics.WSMessagesDropped.Inc()
			logging.Warn().
				Str("session_id", c.sessionID).
				Str("message_type", msg.Type).
				Msg("inbound rate limit exceeded, dropping message")
			continue
		}

		metrics.WSMessagesReceived.WithLabelValues(msg.Type).Inc()
		if c.dispatcher != nil {
			c.dispatcher.HandleMessage(c, msg)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
