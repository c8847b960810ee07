// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package websocket is the real-time transport for notifications. The Hub
// owns client lifecycles and keeps the notify.ConnectionRegistry in step
// with them; delivery goes straight from notify.Service to each Client.
package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
	"github.com/tomtom215/storefront/internal/notify"
)

// ErrHubStopped is returned by Register after shutdown.
var ErrHubStopped = errors.New("websocket hub stopped")

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub serializes connect and disconnect so registry mutation happens on one
// goroutine.
type Hub struct {
	registry notify.ConnectionRegistry

	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]struct{}

	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewHub(registry notify.ConnectionRegistry) *Hub {
	return &Hub{
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Register hands a connected client to the hub. It fails once the hub has
// shut down.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// RunWithContext processes lifecycle events until ctx is canceled, then
// closes every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Shutdown wins over pending lifecycle events.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.registry.Register(c)
	metrics.WSConnections.Inc()

	_ = c.Send(notify.Envelope{
		Event: notify.EventConnected,
		Data: map[string]string{
			"userId": c.UserID(),
			"role":   c.Role(),
		},
		Timestamp: h.now().UTC(),
	})

	logging.Info().
		Str("user_id", c.UserID()).
		Str("role", c.Role()).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.registry.Unregister(c)
	c.close()
	metrics.WSConnections.Dec()

	logging.Info().
		Str("user_id", c.UserID()).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, c := range clients {
		h.registry.Unregister(c)
		c.close()
		metrics.WSConnections.Dec()
	}

	reason := ShutdownReasonContextCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
