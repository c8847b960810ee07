// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
	"github.com/tomtom215/storefront/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256

	// Inbound messages per second per client, with a small burst.
	inboundRate  = 5
	inboundBurst = 10
)

var (
	ErrClientClosed = errors.New("websocket client closed")
	ErrSlowConsumer = errors.New("websocket send buffer full")
)

// inbound is what a client may send. Only "ping" is acted on.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is one authenticated socket. It implements notify.Connection.
type Client struct {
	id      string
	userID  string
	role    string
	hub     *Hub
	conn    *websocket.Conn
	send    chan notify.Envelope
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, role string) *Client {
	return &Client{
		id:      uuid.NewString(),
		userID:  userID,
		role:    role,
		hub:     hub,
		conn:    conn,
		send:    make(chan notify.Envelope, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }
func (c *Client) Role() string   { return c.role }

// Send queues env without blocking.
func (c *Client) Send(env notify.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- env:
		return nil
	default:
		metrics.WSErrors.WithLabelValues("slow_consumer").Inc()
		return ErrSlowConsumer
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Start runs the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Str("user_id", c.userID).Msg("unexpected websocket close")
				metrics.WSErrors.WithLabelValues("read").Inc()
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		if !c.limiter.Allow() {
			metrics.WSErrors.WithLabelValues("rate_limited").Inc()
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.WSErrors.WithLabelValues("malformed").Inc()
			continue
		}
		if msg.Type == "ping" {
			_ = c.Send(notify.Envelope{Event: notify.EventPong, Timestamp: time.Now().UTC()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			payload, err := json.Marshal(env)
			if err != nil {
				logging.Error().Err(err).Str("event", env.Event).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
