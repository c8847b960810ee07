// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package api is the HTTP surface: admin log browsing and export, login and
// logout, notifications and their WebSocket stream, health checks, and the
// audited admin route group.
package api

import (
	"context"
	"errors"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/auth"
	"github.com/tomtom215/storefront/internal/authz"
	"github.com/tomtom215/storefront/internal/cache"
	"github.com/tomtom215/storefront/internal/config"
	"github.com/tomtom215/storefront/internal/eventbus"
	"github.com/tomtom215/storefront/internal/middleware"
	"github.com/tomtom215/storefront/internal/notify"
	"github.com/tomtom215/storefront/internal/websocket"
)

// Stats are short-lived; ClearLogs purges them.
const (
	statsCacheSize = 128
	statsCacheTTL  = 10 * time.Second
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Dependencies are the collaborators a Handler needs. Events and Hub may be
// nil; the routes that use them then answer 503.
type Dependencies struct {
	Config        *config.Config
	AuditStore    audit.Store
	Recorder      audit.Recorder
	Notifications *notify.Service
	Users         *auth.Directory
	JWT           *auth.JWTManager
	Enforcer      *authz.Enforcer
	Hub           *websocket.Hub
	Events        *eventbus.Bus
	Checks        map[string]ReadinessCheck
}

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	cfg           *config.Config
	store         audit.Store
	recorder      audit.Recorder
	notifications *notify.Service
	users         *auth.Directory
	jwt           *auth.JWTManager
	hub           *websocket.Hub
	events        *eventbus.Bus
	checks        map[string]ReadinessCheck
	classifier    *audit.Classifier
	stats         *cache.LRU[LogStats]

	authn    *auth.Middleware
	authz    *authz.Middleware
	audit    *middleware.Audit
	chi      *ChiMiddleware
	upgrader *gorillaws.Upgrader

	startTime time.Time
	now       func() time.Time
}

func NewHandler(deps Dependencies) (*Handler, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("api: config is required")
	case deps.AuditStore == nil || deps.Recorder == nil:
		return nil, errors.New("api: audit store and recorder are required")
	case deps.Notifications == nil:
		return nil, errors.New("api: notification service is required")
	case deps.Users == nil || deps.JWT == nil || deps.Enforcer == nil:
		return nil, errors.New("api: users, jwt and enforcer are required")
	}

	cfg := deps.Config
	classifier := audit.NewClassifier(cfg.Audit.SensitiveKeys...)

	h := &Handler{
		cfg:           cfg,
		store:         deps.AuditStore,
		recorder:      deps.Recorder,
		notifications: deps.Notifications,
		users:         deps.Users,
		jwt:           deps.JWT,
		hub:           deps.Hub,
		events:        deps.Events,
		checks:        deps.Checks,
		classifier:    classifier,
		stats:         cache.NewLRU[LogStats](statsCacheSize, statsCacheTTL),
		authn:         auth.NewMiddleware(deps.JWT, errorResponder),
		authz:         authz.NewMiddleware(deps.Enforcer, errorResponder),
		chi:           NewChiMiddleware(ChiMiddlewareConfigFrom(cfg.Security)),
		upgrader:      websocket.NewUpgrader(cfg.Security.CORSOrigins),
		audit:         middleware.NewAudit(deps.Recorder, classifier, cfg.Audit.ElevatedRoles),
		startTime:     time.Now(),
		now:           time.Now,
	}
	return h, nil
}
