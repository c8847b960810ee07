// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/storefront/internal/logging"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type APIMeta struct {
	RequestID  string          `json:"requestId,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidFormat    = "INVALID_FORMAT"
	ErrCodeInvalidDate      = "INVALID_DATE"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInvalidLogin     = "INVALID_CREDENTIALS"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeExportFailed     = "EXPORT_FAILED"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodePublishFailed    = "PUBLISH_FAILED"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// sanitizeLogValue escapes control characters so client input cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func meta(r *http.Request) *APIMeta {
	m := &APIMeta{Timestamp: time.Now().UTC()}
	if r != nil {
		m.RequestID = logging.RequestIDFromContext(r.Context())
	}
	return m
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, status, &APIResponse{Success: true, Data: data, Meta: meta(r)})
}

func respondPage(w http.ResponseWriter, r *http.Request, data interface{}, p PaginationMeta) {
	m := meta(r)
	m.Pagination = &p
	respondJSON(w, http.StatusOK, &APIResponse{Success: true, Data: data, Meta: m})
}

// respondError writes the error envelope. err is logged, never sent.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		ev := logging.Error()
		if r != nil {
			ev = logging.Ctx(r.Context()).Error()
		}
		ev.Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	}
	respondJSON(w, status, &APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    meta(r),
	})
}

func respondErrorDetails(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	respondJSON(w, status, &APIResponse{Success: false, Error: apiErr, Meta: meta(r)})
}

// errorResponder adapts respondError to auth.ErrorResponder for middleware
// that has no request in hand.
func errorResponder(w http.ResponseWriter, status int, code, message string) {
	respondError(w, nil, status, code, message, nil)
}
