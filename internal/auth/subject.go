// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package auth authenticates admin and staff users: bcrypt-checked logins
// against the configured user directory, HS256 session tokens, and the
// middleware that puts the resulting Subject on the request context.
package auth

import (
	"context"
	"errors"
)

var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Subject is the authenticated actor of a request.
type Subject struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// HasAnyRole reports whether the subject's role is one of roles.
func (s *Subject) HasAnyRole(roles ...string) bool {
	if s == nil || s.Role == "" {
		return false
	}
	for _, r := range roles {
		if r == s.Role {
			return true
		}
	}
	return false
}

// SubjectFromClaims maps validated token claims to a Subject.
func SubjectFromClaims(c *Claims) *Subject {
	if c == nil {
		return nil
	}
	return &Subject{ID: c.Subject, Name: c.Name, Email: c.Email, Role: c.Role}
}

type contextKey struct{}

func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SubjectFromContext returns nil for anonymous requests.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(contextKey{}).(*Subject)
	return s
}
