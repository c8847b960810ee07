// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/storefront/internal/breaker"
	"github.com/tomtom215/storefront/internal/config"
	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
)

const (
	TransportMemory = "memory"
	TransportNATS   = "nats"

	metaEventType = "event_type"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus closed")

// Bus pairs a watermill publisher and subscriber on one topic.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	cb         *gobreaker.CircuitBreaker[struct{}]

	mu     sync.RWMutex
	closed bool
}

// New connects the configured transport. For nats, url overrides
// cfg.NATSURL when non-empty (the embedded server's client URL).
func New(cfg config.EventsConfig, url string) (*Bus, error) {
	logger := logging.NewWatermillAdapter()

	var (
		pub message.Publisher
		sub message.Subscriber
	)

	switch cfg.Transport {
	case TransportMemory, "":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		pub, sub = ch, ch

	case TransportNATS:
		if url == "" {
			url = cfg.NATSURL
		}
		var err error
		pub, sub, err = newNATS(url, cfg.QueueGroup, logger)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.Transport)
	}

	return &Bus{
		publisher:  pub,
		subscriber: sub,
		topic:      cfg.Topic,
		cb:         breaker.New(breaker.DefaultConfig("eventbus-publish")),
	}, nil
}

func newNATS(url, queueGroup string, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("storefront"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	// Notifications are transient: core NATS, no JetStream streams.
	js := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   js,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		CloseTimeout:     10 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        js,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	return pub, sub, nil
}

func (b *Bus) Topic() string { return b.topic }

// Publish validates e and sends it through the circuit breaker.
func (b *Bus) Publish(ctx context.Context, e DomainEvent) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if err := e.Validate(); err != nil {
		metrics.DomainEventsPublished.WithLabelValues("invalid").Inc()
		return err
	}
	if e.EventID == "" {
		e.EventID = watermill.NewUUID()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	payload, err := encode(&e)
	if err != nil {
		return fmt.Errorf("encode domain event: %w", err)
	}
	msg := message.NewMessage(e.EventID, payload)
	msg.Metadata.Set(metaEventType, e.Type)
	msg.SetContext(ctx)

	err = breaker.Run(b.cb, func() error {
		return b.publisher.Publish(b.topic, msg)
	})
	switch {
	case err == nil:
		metrics.DomainEventsPublished.WithLabelValues("success").Inc()
	case breaker.IsRejected(err):
		metrics.DomainEventsPublished.WithLabelValues("rejected").Inc()
		return fmt.Errorf("publish %s: %w", e.Type, err)
	default:
		metrics.DomainEventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	logging.Ctx(ctx).Debug().
		Str("event_id", e.EventID).
		Str("event_type", e.Type).
		Msg("domain event published")
	return nil
}

// Subscribe returns the raw message stream for the bus topic.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, b.topic)
}

// Close shuts the publisher and subscriber down. It is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	errs := []error{b.publisher.Close()}
	// gochannel serves as both ends.
	if any(b.subscriber) != any(b.publisher) {
		errs = append(errs, b.subscriber.Close())
	}
	return errors.Join(errs...)
}
