// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"net/http"

	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/websocket"
)

// WebSocket handles GET /api/v1/ws. The token comes from ?token= or the
// Authorization header and is checked before the upgrade.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "Real-time notifications are not available", nil)
		return
	}

	subject, err := h.authn.SubjectFromRequest(r, true)
	if err != nil {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, subject.ID, subject.Role)
	if err := h.hub.Register(client); err != nil {
		_ = conn.Close()
		return
	}
	client.Start()
}
