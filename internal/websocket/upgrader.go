// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/storefront/internal/logging"
)

// NewUpgrader only accepts browser origins listed in allowed ("*" allows
// any). Requests without an Origin header are rejected.
func NewUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
				return false
			}
			for _, a := range allowed {
				if a == "*" || strings.EqualFold(a, origin) {
					return true
				}
			}
			logging.Warn().Str("origin", strings.ReplaceAll(origin, "\n", "")).Msg("WebSocket connection rejected from unauthorized origin")
			return false
		},
	}
}
