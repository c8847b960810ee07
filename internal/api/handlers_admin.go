// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"net/http"

	"github.com/tomtom215/storefront/internal/audit"
)

// AdminAccept acknowledges anything under /api/v1/admin/ with 202. The
// business services behind the admin console live elsewhere; this group
// exists so the gateway can forward their mutations here to be recorded.
func (h *Handler) AdminAccept(w http.ResponseWriter, r *http.Request) {
	c := h.classifier.Classify(&audit.Input{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
	})
	respondData(w, r, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
		"action":   c.Action,
		"entity":   c.Entity,
		"entityId": c.EntityID,
	})
}
