// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
)

// ErrorResponder writes an error body; the api package supplies one that
// renders its JSON envelope.
type ErrorResponder func(w http.ResponseWriter, status int, code, message string)

// Middleware validates bearer tokens.
type Middleware struct {
	jwt     *JWTManager
	respond ErrorResponder
}

func NewMiddleware(jwt *JWTManager, respond ErrorResponder) *Middleware {
	if respond == nil {
		respond = func(w http.ResponseWriter, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{jwt: jwt, respond: respond}
}

// Authenticate rejects requests without a valid token with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.SubjectFromRequest(r, false)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			m.respond(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// SubjectFromRequest validates the request's token. allowQuery also accepts
// ?token=, which browsers need for WebSocket handshakes.
func (m *Middleware) SubjectFromRequest(r *http.Request, allowQuery bool) (*Subject, error) {
	token := TokenFromRequest(r, allowQuery)
	if token == "" {
		return nil, ErrNoCredentials
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		if errors.Is(err, ErrExpiredCredentials) {
			metrics.LoginAttempts.WithLabelValues("expired_token").Inc()
		}
		return nil, err
	}
	return SubjectFromClaims(claims), nil
}

// TokenFromRequest prefers ?token= (when allowed), then the Authorization
// bearer header, then the "token" cookie.
func TokenFromRequest(r *http.Request, allowQuery bool) string {
	if allowQuery {
		if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
			return t
		}
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}
