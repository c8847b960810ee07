// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/storefront/internal/authz"
	"github.com/tomtom215/storefront/internal/middleware"
)

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.chi.CORS())
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Sanitize)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Route("/health", func(r chi.Router) {
			r.Use(h.chi.RateLimitHealth())
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.With(h.chi.RateLimitLogin()).Post("/auth/login", h.Login)

		// The socket authenticates itself so it can accept ?token=.
		r.With(h.chi.RateLimit()).Get("/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(h.chi.RateLimit())
			r.Use(h.authn.Authenticate)
			if h.cfg.Audit.Enabled {
				r.Use(h.audit.Handler)
			}

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)

			r.Route("/logs", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(h.authz.Require(authz.ObjectLogs, authz.ActionRead))
					r.Get("/", h.ListLogs)
					r.Get("/stats", h.LogStats)
					r.Get("/export", h.ExportLogs)
					r.Get("/{id}", h.GetLog)
				})
				r.With(h.authz.Require(authz.ObjectLogs, authz.ActionDelete)).Delete("/clear", h.ClearLogs)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Get("/unread-count", h.UnreadCount)
				r.Patch("/read-all", h.MarkAllNotificationsRead)
				r.Patch("/{id}/read", h.MarkNotificationRead)
				r.Delete("/{id}", h.DeleteNotification)
				r.With(h.authz.Require(authz.ObjectNotificationsSend, authz.ActionWrite)).Post("/", h.SendNotification)
			})

			r.With(h.authz.Require(authz.ObjectNotificationsSend, authz.ActionWrite)).Post("/events", h.PublishEvent)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.authz.Require(authz.ObjectAdminAPI, authz.ActionWrite))
				r.HandleFunc("/*", h.AdminAccept)
			})
		})
	})

	return r
}
