// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package middleware

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/auth"
)

// maxAuditBody is the largest request body decoded into audit details.
const maxAuditBody = 64 * 1024

// Audit records requests made by elevated actors. It must run after
// authentication so the subject is in the context.
type Audit struct {
	recorder   audit.Recorder
	classifier *audit.Classifier
	elevated   []string
}

func NewAudit(recorder audit.Recorder, classifier *audit.Classifier, elevatedRoles []string) *Audit {
	if classifier == nil {
		classifier = audit.NewClassifier()
	}
	return &Audit{recorder: recorder, classifier: classifier, elevated: elevatedRoles}
}

// Handler wraps next. The record is built after next returns and queued
// without waiting for the store.
func (a *Audit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := auth.SubjectFromContext(r.Context())
		if !a.shouldRecord(r, subject) {
			next.ServeHTTP(w, r)
			return
		}

		body := captureBody(r)
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		c := a.classifier.Classify(&audit.Input{
			Method:      r.Method,
			Path:        r.URL.Path,
			RouteParams: routeParams(r),
			Query:       r.URL.Query(),
			Body:        body,
			StatusCode:  rec.status,
		})

		// The writer reports its own failures; the response is already out.
		_ = a.recorder.Log(r.Context(), &audit.Record{
			ActorID:    subject.ID,
			ActorName:  subject.Name,
			ActorEmail: subject.Email,
			ActorRole:  subject.Role,
			Action:     c.Action,
			Entity:     c.Entity,
			EntityID:   c.EntityID,
			Severity:   audit.SeverityInfo,
			Details:    c.Details,
			IPAddress:  ClientIP(r),
			UserAgent:  r.UserAgent(),
		})
	})
}

func (a *Audit) shouldRecord(r *http.Request, s *auth.Subject) bool {
	if s == nil || !s.HasAnyRole(a.elevated...) {
		return false
	}
	if audit.IsAuthPath(r.URL.Path) {
		return false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return audit.HasExportMarker(r.URL.Path)
	}
	return true
}

// captureBody decodes a JSON object body and puts the bytes back for the
// handler. Anything else yields nil.
func captureBody(r *http.Request) map[string]interface{} {
	if r.Body == nil || r.Body == http.NoBody || !isJSON(r) {
		return nil
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBody+1))
	if err != nil {
		return nil
	}
	r.Body = readCloser{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if len(buf) > maxAuditBody {
		return nil
	}

	var body map[string]interface{}
	if err := json.Unmarshal(buf, &body); err != nil {
		return nil
	}
	return body
}

// routeParams reads chi's URL params. chi fills the shared route context
// while routing, so they are available once next has returned.
func routeParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.URLParams.Keys) == 0 {
		return nil
	}
	out := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		if k == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		out[k] = rctx.URLParams.Values[i]
	}
	return out
}

// ClientIP returns the remote address without its port. The router's RealIP
// middleware has already applied X-Forwarded-For / X-Real-IP.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
