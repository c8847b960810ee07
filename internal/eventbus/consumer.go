// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/storefront/internal/cache"
	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
	"github.com/tomtom215/storefront/internal/notify"
)

// Notifier is the part of notify.Service the consumer drives.
type Notifier interface {
	Create(ctx context.Context, n *notify.Notification) (*notify.Notification, error)
	Broadcast(ctx context.Context, role string, tmpl notify.Notification) (int, error)
}

const (
	dedupCapacity = 10000
	dedupWindow   = 10 * time.Minute
)

// Consumer turns domain events into notifications.
type Consumer struct {
	bus      *Bus
	notifier Notifier

	// nackDelay throttles redelivery after a failed handle.
	nackDelay time.Duration

	// processed remembers recently handled event IDs so a redelivered
	// event does not notify twice.
	processed *cache.LRU[struct{}]

	ready     chan struct{}
	readyOnce sync.Once
}

func NewConsumer(bus *Bus, notifier Notifier) *Consumer {
	return &Consumer{
		bus:       bus,
		notifier:  notifier,
		nackDelay: time.Second,
		processed: cache.NewLRU[struct{}](dedupCapacity, dedupWindow),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the first subscription is in place.
func (c *Consumer) Ready() <-chan struct{} { return c.ready }

// RunWithContext consumes until ctx is canceled or the subscription closes.
func (c *Consumer) RunWithContext(ctx context.Context) error {
	messages, err := c.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.bus.Topic(), err)
	}

	c.readyOnce.Do(func() { close(c.ready) })
	logging.Info().Str("topic", c.bus.Topic()).Msg("domain event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", c.bus.Topic())
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	e, err := decode(msg.Payload)
	if err == nil {
		err = e.Validate()
	}
	if err != nil {
		// Redelivering a malformed event cannot succeed.
		metrics.DomainEventsConsumed.WithLabelValues("invalid").Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping invalid domain event")
		msg.Ack()
		return
	}

	if c.processed.Contains(e.EventID) {
		metrics.DomainEventsConsumed.WithLabelValues("duplicate").Inc()
		logging.Debug().Str("event_id", e.EventID).Msg("skipping duplicate domain event")
		msg.Ack()
		return
	}

	if err := c.Handle(ctx, e); err != nil {
		metrics.DomainEventsConsumed.WithLabelValues("failed").Inc()
		logging.Error().Err(err).
			Str("event_id", e.EventID).
			Str("event_type", e.Type).
			Msg("domain event handling failed")
		select {
		case <-time.After(c.nackDelay):
		case <-ctx.Done():
		}
		msg.Nack()
		return
	}

	if e.EventID != "" {
		c.processed.Add(e.EventID, struct{}{})
	}
	metrics.DomainEventsConsumed.WithLabelValues("processed").Inc()
	msg.Ack()
}

// Handle persists and pushes the notification for one event.
func (c *Consumer) Handle(ctx context.Context, e *DomainEvent) error {
	n := e.Notification()
	if e.RecipientID != "" {
		_, err := c.notifier.Create(ctx, &n)
		return err
	}
	delivered, err := c.notifier.Broadcast(ctx, e.Role, n)
	if err != nil {
		return err
	}
	logging.Debug().
		Str("role", e.Role).
		Int("recipients", delivered).
		Str("event_type", e.Type).
		Msg("domain event broadcast to role")
	return nil
}
