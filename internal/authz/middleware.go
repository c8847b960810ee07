// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package authz

import (
	"net/http"

	"github.com/tomtom215/storefront/internal/auth"
	"github.com/tomtom215/storefront/internal/logging"
)

// Middleware gates routes on casbin decisions. It must run after
// auth.Middleware.Authenticate.
type Middleware struct {
	enforcer *Enforcer
	respond  auth.ErrorResponder
}

func NewMiddleware(enforcer *Enforcer, respond auth.ErrorResponder) *Middleware {
	if respond == nil {
		respond = func(w http.ResponseWriter, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, respond: respond}
}

// Require returns chi-compatible middleware allowing only subjects whose role
// may perform action on object.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				m.respond(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			allowed, err := m.enforcer.Enforce(subject.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				m.respond(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Debug().
					Str("role", subject.Role).
					Str("object", object).
					Str("action", action).
					Msg("Access denied")
				m.respond(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
