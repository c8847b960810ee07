// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/auth"
	"github.com/tomtom215/storefront/internal/metrics"
	"github.com/tomtom215/storefront/internal/middleware"
	"github.com/tomtom215/storefront/internal/validation"
)

const (
	tokenCookie  = "token"
	maxLoginBody = 4 * 1024
	authEntity   = "Auth"
)

// LoginRequest accepts either login or email as the account name.
type LoginRequest struct {
	Login    string `json:"login" validate:"max=254"`
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

func (l *LoginRequest) account() string {
	if s := strings.TrimSpace(l.Login); s != "" {
		return s
	}
	return strings.TrimSpace(l.Email)
}

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *auth.Subject `json:"user"`
}

// Login handles POST /api/v1/auth/login. Every attempt leaves a LOGIN record;
// failures are WARNING and never include the password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Request body must be a JSON object", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, r, http.StatusBadRequest, &APIError{Code: ErrCodeValidation, Message: apiErr.Message, Details: apiErr.Details})
		return
	}
	account := req.account()
	if account == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "login or email is required", nil)
		return
	}

	user, err := h.users.Verify(account, req.Password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		h.recordAuth(r, nil, audit.ActionLogin, audit.SeverityWarning,
			fmt.Sprintf("login failed for %q: %s", account, failureReason(err)))
		respondError(w, r, http.StatusUnauthorized, ErrCodeInvalidLogin, "Invalid credentials", nil)
		return
	}

	token, expires, err := h.jwt.GenerateToken(user)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue token", err)
		return
	}

	subject := user.Subject()
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.recordAuth(r, subject, audit.ActionLogin, audit.SeverityInfo, "login succeeded")

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil || h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	respondData(w, r, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires, User: subject})
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so this
// clears the cookie and records the event.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	subject := auth.SubjectFromContext(r.Context())
	h.recordAuth(r, subject, audit.ActionLogout, audit.SeverityInfo, "logout")

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil || h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	respondData(w, r, http.StatusOK, map[string]bool{"loggedOut": true})
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, auth.SubjectFromContext(r.Context()))
}

func failureReason(err error) string {
	if errors.Is(err, auth.ErrNoCredentials) {
		return "missing credentials"
	}
	return "invalid credentials"
}

func (h *Handler) recordAuth(r *http.Request, s *auth.Subject, action string, sev audit.Severity, text string) {
	if !h.cfg.Audit.Enabled {
		return
	}
	rec := &audit.Record{
		Action:    action,
		Entity:    authEntity,
		Severity:  sev,
		Details:   audit.NewTextDetails(text),
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if s != nil {
		rec.ActorID = s.ID
		rec.ActorName = s.Name
		rec.ActorEmail = s.Email
		rec.ActorRole = s.Role
		rec.EntityID = s.ID
	}
	_ = h.recorder.Log(r.Context(), rec)
}
