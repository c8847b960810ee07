// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/storefront/internal/auth"
	"github.com/tomtom215/storefront/internal/authz"
	"github.com/tomtom215/storefront/internal/eventbus"
	"github.com/tomtom215/storefront/internal/notify"
	"github.com/tomtom215/storefront/internal/validation"
)

const maxJSONBody = 64 * 1024

// RoleRecipients resolves a role broadcast to every configured user whose
// role is, or inherits, the target role.
func RoleRecipients(users *auth.Directory, enforcer *authz.Enforcer) notify.RoleResolver {
	return notify.RoleResolverFunc(func(role string) []notify.Recipient {
		members := users.Members(func(userRole string) bool {
			return enforcer.HasRole(userRole, role)
		})
		out := make([]notify.Recipient, 0, len(members))
		for _, u := range members {
			out = append(out, notify.Recipient{UserID: u.ID, Role: u.Role})
		}
		return out
	})
}

func intParam(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func (h *Handler) notifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notify.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Notification not found", nil)
	case errors.Is(err, notify.ErrForbidden):
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "Notification belongs to another user", nil)
	case errors.Is(err, notify.ErrInvalidType), errors.Is(err, notify.ErrNoRecipient), errors.Is(err, eventbus.ErrNoAudience):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Notification request failed", err)
	}
}

// ListNotifications handles GET /api/v1/notifications?page=&limit=&unreadOnly=.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	subject := auth.SubjectFromContext(r.Context())
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))

	page, err := h.notifications.List(r.Context(), subject.ID, unreadOnly,
		intParam(r, "page", 1), intParam(r, "limit", notify.DefaultPageSize))
	if err != nil {
		h.notifyError(w, r, err)
		return
	}
	respondPage(w, r, page.Items, PaginationMeta{
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// UnreadCount handles GET /api/v1/notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.UnreadCount(r.Context(), auth.SubjectFromContext(r.Context()).ID)
	if err != nil {
		h.notifyError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]int64{"count": n})
}

// MarkNotificationRead handles PATCH /api/v1/notifications/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkAsRead(r.Context(), auth.SubjectFromContext(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		h.notifyError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, n)
}

// MarkAllNotificationsRead handles PATCH /api/v1/notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	changed, err := h.notifications.MarkAllAsRead(r.Context(), auth.SubjectFromContext(r.Context()).ID)
	if err != nil {
		h.notifyError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]int64{"count": changed})
}

// DeleteNotification handles DELETE /api/v1/notifications/{id}.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.notifications.Delete(r.Context(), auth.SubjectFromContext(r.Context()).ID, id); err != nil {
		h.notifyError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]string{"id": id})
}

// SendNotificationRequest targets one recipient or every online member of a
// role.
type SendNotificationRequest struct {
	RecipientID string `json:"recipientId" validate:"max=128"`
	Role        string `json:"role" validate:"max=64"`
	Type        string `json:"type" validate:"required"`
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Message     string `json:"message" validate:"required,max=2000"`
	Link        string `json:"link" validate:"max=512"`
	Priority    string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT low medium high urgent"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Request body must be a JSON object", nil)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, r, http.StatusBadRequest, &APIError{Code: ErrCodeValidation, Message: apiErr.Message, Details: apiErr.Details})
		return false
	}
	return true
}

// SendNotification handles POST /api/v1/notifications.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n := notify.Notification{
		Recipient: req.RecipientID,
		Sender:    auth.SubjectFromContext(r.Context()).ID,
		Type:      notify.Type(req.Type),
		Title:     req.Title,
		Message:   req.Message,
		Link:      req.Link,
		Priority:  notify.ParsePriority(req.Priority),
	}

	switch {
	case req.RecipientID != "":
		created, err := h.notifications.Create(r.Context(), &n)
		if err != nil {
			h.notifyError(w, r, err)
			return
		}
		respondData(w, r, http.StatusCreated, created)
	case req.Role != "":
		delivered, err := h.notifications.Broadcast(r.Context(), req.Role, n)
		if err != nil {
			h.notifyError(w, r, err)
			return
		}
		respondData(w, r, http.StatusCreated, map[string]interface{}{"role": req.Role, "delivered": delivered})
	default:
		h.notifyError(w, r, notify.ErrNoRecipient)
	}
}

// PublishEvent handles POST /api/v1/events: it puts a domain event on the bus
// for the notification consumer.
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "Event bus is not configured", nil)
		return
	}
	var e eventbus.DomainEvent
	if !decodeJSON(w, r, &e) {
		return
	}
	if e.Sender == "" {
		e.Sender = auth.SubjectFromContext(r.Context()).ID
	}

	if err := h.events.Publish(r.Context(), e); err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			apiErr := verr.ToAPIError()
			respondErrorDetails(w, r, http.StatusBadRequest, &APIError{Code: ErrCodeValidation, Message: apiErr.Message, Details: apiErr.Details})
			return
		}
		if errors.Is(err, notify.ErrInvalidType) || errors.Is(err, eventbus.ErrNoAudience) {
			h.notifyError(w, r, err)
			return
		}
		respondError(w, r, http.StatusServiceUnavailable, ErrCodePublishFailed, "Event could not be published", err)
		return
	}
	respondData(w, r, http.StatusAccepted, map[string]string{"type": e.Type})
}
