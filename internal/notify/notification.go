// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package notify stores user notifications and pushes real-time events to the
// live connections of a user or a role. Live connections are tracked by a
// ConnectionRegistry so the in-process map can be replaced by a shared one
// without touching callers.
package notify

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("notification not found")
	ErrForbidden   = errors.New("notification belongs to another user")
	ErrInvalidType = errors.New("unknown notification type")
	ErrNoRecipient = errors.New("notification recipient is required")
)

// Type is the closed set of domain events that produce notifications.
type Type string

const (
	TypeOrderCreated       Type = "ORDER_CREATED"
	TypeOrderStatusChanged Type = "ORDER_STATUS_CHANGED"
	TypeQuoteRequested     Type = "QUOTE_REQUESTED"
	TypeQuoteResponded     Type = "QUOTE_RESPONDED"
	TypeWarrantySubmitted  Type = "WARRANTY_SUBMITTED"
	TypeWarrantyApproved   Type = "WARRANTY_APPROVED"
	TypeWarrantyRejected   Type = "WARRANTY_REJECTED"
	TypeInvoiceIssued      Type = "INVOICE_ISSUED"
	TypeInventoryLow       Type = "INVENTORY_LOW"
	TypeSystem             Type = "SYSTEM"
)

var validTypes = map[Type]bool{
	TypeOrderCreated:       true,
	TypeOrderStatusChanged: true,
	TypeQuoteRequested:     true,
	TypeQuoteResponded:     true,
	TypeWarrantySubmitted:  true,
	TypeWarrantyApproved:   true,
	TypeWarrantyRejected:   true,
	TypeInvoiceIssued:      true,
	TypeInventoryLow:       true,
	TypeSystem:             true,
}

func (t Type) Valid() bool { return validTypes[t] }

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ParsePriority is case-insensitive; anything unrecognized is MEDIUM.
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p
	default:
		return PriorityMedium
	}
}

// Real-time event names.
const (
	EventConnected        = "connected"
	EventNotification     = "notification"
	EventNotificationRead = "notification:read"
	EventAllRead          = "notifications:all-read"
	EventPong             = "pong"
)

// Notification is owned by Recipient. Only the read state changes after
// creation.
type Notification struct {
	ID        string     `json:"id" bson:"_id"`
	Recipient string     `json:"recipient" bson:"recipient"`
	// Role is the audience of a role broadcast; empty for direct messages.
	Role      string     `json:"role,omitempty" bson:"role,omitempty"`
	Sender    string     `json:"sender,omitempty" bson:"sender,omitempty"`
	Type      Type       `json:"type" bson:"type"`
	Title     string     `json:"title" bson:"title"`
	Message   string     `json:"message" bson:"message"`
	Link      string     `json:"link,omitempty" bson:"link,omitempty"`
	Priority  Priority   `json:"priority" bson:"priority"`
	IsRead    bool       `json:"isRead" bson:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty" bson:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}

// Envelope is one real-time message. Timestamp is set when it is sent.
type Envelope struct {
	Event     string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
