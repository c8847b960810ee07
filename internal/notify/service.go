// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Recipient is one user a role broadcast is stored for.
type Recipient struct {
	UserID string
	Role   string
}

// RoleResolver lists every known user holding a role, connected or not.
type RoleResolver interface {
	Recipients(role string) []Recipient
}

// RoleResolverFunc adapts a function to RoleResolver.
type RoleResolverFunc func(role string) []Recipient

func (f RoleResolverFunc) Recipients(role string) []Recipient { return f(role) }

// Option configures a Service.
type Option func(*Service)

// WithRoleResolver lets Broadcast reach role members who are offline.
func WithRoleResolver(r RoleResolver) Option {
	return func(s *Service) { s.resolver = r }
}

// Service combines persistence with real-time delivery.
type Service struct {
	registry ConnectionRegistry
	store    Store
	resolver RoleResolver
	now      func() time.Time
}

func NewService(registry ConnectionRegistry, store Store, opts ...Option) *Service {
	s := &Service{registry: registry, store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyUser sends event to every live connection of userID and returns how
// many accepted it. A user with no connections is a silent no-op.
func (s *Service) NotifyUser(ctx context.Context, userID, event string, payload interface{}) int {
	return s.deliver(ctx, s.registry.ConnectionsOf(userID), event, payload)
}

// NotifyRoleGroup sends event to every live connection whose role is role.
func (s *Service) NotifyRoleGroup(ctx context.Context, role, event string, payload interface{}) int {
	return s.deliver(ctx, s.registry.MembersOf(role), event, payload)
}

func (s *Service) IsOnline(userID string) bool {
	return s.registry.IsOnline(userID)
}

func (s *Service) deliver(ctx context.Context, conns []Connection, event string, payload interface{}) int {
	if len(conns) == 0 {
		return 0
	}
	env := Envelope{Event: event, Data: payload, Timestamp: s.now().UTC()}

	delivered := 0
	for _, c := range conns {
		if err := c.Send(env); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("connection_id", c.ID()).
				Str("user_id", c.UserID()).
				Str("event", event).
				Msg("Dropped real-time event")
			continue
		}
		delivered++
	}
	metrics.NotificationsDelivered.WithLabelValues(event).Add(float64(delivered))
	return delivered
}

// Create validates and stores n, then pushes it to the recipient. ID,
// CreatedAt and a default priority are filled in.
func (s *Service) Create(ctx context.Context, n *Notification) (*Notification, error) {
	n.Recipient = strings.TrimSpace(n.Recipient)
	if n.Recipient == "" {
		return nil, ErrNoRecipient
	}
	if err := s.insert(ctx, n); err != nil {
		return nil, err
	}
	s.NotifyUser(ctx, n.Recipient, EventNotification, n)
	return n, nil
}

func (s *Service) insert(ctx context.Context, n *Notification) error {
	if !n.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, n.Type)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Priority = ParsePriority(string(n.Priority))
	n.IsRead = false
	n.ReadAt = nil
	n.CreatedAt = s.now().UTC()

	if err := s.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	return nil
}

// Broadcast stores one notification for every user holding role, including
// users who are offline, and returns how many were stored. The live members
// of each recipient role then get the template through NotifyRoleGroup; it
// carries the audience role but no ID, so clients reload their inbox.
// Without a RoleResolver only connected members are known.
func (s *Service) Broadcast(ctx context.Context, role string, tmpl Notification) (int, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return 0, ErrNoRecipient
	}
	if !tmpl.Type.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, tmpl.Type)
	}

	created := 0
	liveRoles := make(map[string]struct{})
	for _, rc := range s.recipientsOf(role) {
		n := tmpl
		n.ID = ""
		n.Recipient = rc.UserID
		n.Role = role
		if err := s.insert(ctx, &n); err != nil {
			return created, err
		}
		created++
		liveRoles[rc.Role] = struct{}{}
	}
	if created == 0 {
		logging.Ctx(ctx).Debug().Str("role", role).Msg("Role broadcast has no recipients")
		return 0, nil
	}

	push := tmpl
	push.ID = ""
	push.Recipient = ""
	push.Role = role
	push.Priority = ParsePriority(string(push.Priority))
	push.CreatedAt = s.now().UTC()

	roles := make([]string, 0, len(liveRoles))
	for r := range liveRoles {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	for _, r := range roles {
		s.NotifyRoleGroup(ctx, r, EventNotification, &push)
	}
	return created, nil
}

// recipientsOf merges the resolver's users with connected members of role.
func (s *Service) recipientsOf(role string) []Recipient {
	var out []Recipient
	seen := make(map[string]bool)
	if s.resolver != nil {
		for _, rc := range s.resolver.Recipients(role) {
			if rc.UserID == "" || seen[rc.UserID] {
				continue
			}
			seen[rc.UserID] = true
			out = append(out, rc)
		}
	}
	for _, c := range s.registry.MembersOf(role) {
		if seen[c.UserID()] {
			continue
		}
		seen[c.UserID()] = true
		out = append(out, Recipient{UserID: c.UserID(), Role: c.Role()})
	}
	return out
}

// Page is one page of a recipient's notifications.
type Page struct {
	Items      []Notification `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

func (s *Service) List(ctx context.Context, recipient string, unreadOnly bool, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	items, total, err := s.store.List(ctx, recipient, unreadOnly, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

func (s *Service) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	return s.store.UnreadCount(ctx, recipient)
}

// MarkAsRead flags one notification owned by recipient.
func (s *Service) MarkAsRead(ctx context.Context, recipient, id string) (*Notification, error) {
	n, err := s.owned(ctx, recipient, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}

	at := s.now().UTC()
	if err := s.store.MarkRead(ctx, id, at); err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &at

	s.NotifyUser(ctx, recipient, EventNotificationRead, map[string]interface{}{"id": id})
	return n, nil
}

// MarkAllAsRead returns how many notifications changed state.
func (s *Service) MarkAllAsRead(ctx context.Context, recipient string) (int64, error) {
	changed, err := s.store.MarkAllRead(ctx, recipient, s.now().UTC())
	if err != nil {
		return 0, err
	}
	s.NotifyUser(ctx, recipient, EventAllRead, map[string]interface{}{"count": changed})
	return changed, nil
}

// Delete removes a notification; only its recipient may do so.
func (s *Service) Delete(ctx context.Context, recipient, id string) error {
	if _, err := s.owned(ctx, recipient, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, recipient, id string) (*Notification, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Recipient != recipient {
		return nil, ErrForbidden
	}
	return n, nil
}
