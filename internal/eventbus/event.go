// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package eventbus carries commerce domain events (order created, quote
// requested, inventory low, ...) from the services that raise them to the
// notification fan-out. Production runs over core NATS through watermill;
// single-process deployments use watermill's in-process gochannel.
package eventbus

import (
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/storefront/internal/notify"
	"github.com/tomtom215/storefront/internal/validation"
)

// ErrNoAudience is returned for events naming neither a recipient nor a role.
var ErrNoAudience = errors.New("domain event needs a recipientId or a role")

// DomainEvent asks for a notification. RecipientID targets one user; Role
// fans out to every online member of that role.
type DomainEvent struct {
	EventID     string    `json:"eventId,omitempty"`
	Type        string    `json:"type" validate:"required,max=64"`
	RecipientID string    `json:"recipientId,omitempty" validate:"omitempty,max=128"`
	Role        string    `json:"role,omitempty" validate:"omitempty,max=64"`
	Sender      string    `json:"sender,omitempty"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Message     string    `json:"message" validate:"required,max=2000"`
	Link        string    `json:"link,omitempty" validate:"omitempty,max=512"`
	Priority    string    `json:"priority,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Validate checks field constraints and the notification type.
func (e *DomainEvent) Validate() error {
	if verr := validation.ValidateStruct(e); verr != nil {
		return verr
	}
	if !notify.Type(e.Type).Valid() {
		return notify.ErrInvalidType
	}
	if e.RecipientID == "" && e.Role == "" {
		return ErrNoAudience
	}
	return nil
}

// Notification builds the record a consumer persists for this event.
func (e *DomainEvent) Notification() notify.Notification {
	return notify.Notification{
		Recipient: e.RecipientID,
		Sender:    e.Sender,
		Type:      notify.Type(e.Type),
		Title:     e.Title,
		Message:   e.Message,
		Link:      e.Link,
		Priority:  notify.ParsePriority(e.Priority),
	}
}

func encode(e *DomainEvent) ([]byte, error) {
	return json.Marshal(e)
}

func decode(payload []byte) (*DomainEvent, error) {
	var e DomainEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
