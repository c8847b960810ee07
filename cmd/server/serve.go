// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/storefront/internal/api"
	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/auth"
	"github.com/tomtom215/storefront/internal/authz"
	"github.com/tomtom215/storefront/internal/config"
	"github.com/tomtom215/storefront/internal/eventbus"
	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
	"github.com/tomtom215/storefront/internal/notify"
	"github.com/tomtom215/storefront/internal/supervisor"
	"github.com/tomtom215/storefront/internal/supervisor/services"
	"github.com/tomtom215/storefront/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var policyPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket hub and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg, policyPath)
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "casbin policy file (defaults to the built-in policy)")
	return cmd
}

//nolint:gocyclo // sequential wiring
func serve(ctx context.Context, cfg *config.Config, policyPath string) error {
	logging.Info().
		Str("addr", cfg.Addr()).
		Str("storage", cfg.Storage.Backend).
		Str("events", cfg.Events.Transport).
		Bool("audit", cfg.Audit.Enabled).
		Msg("Starting storefront")

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		st.close(closeCtx)
	}()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{ShutdownTimeout: shutdownTimeout})

	// Audit pipeline.
	writer := audit.NewWriter(st.audit, audit.WriterConfig{
		BufferSize:   cfg.Audit.BufferSize,
		WriteTimeout: cfg.Audit.WriteTimeout,
	})
	writer.OnResult(func(_ *audit.Record, werr *audit.AuditWriteError) {
		if werr != nil {
			metrics.RecordAuditLoss(string(werr.Kind))
		}
	})
	st.checks["audit-writer"] = writer.Check
	tree.AddDataService(services.NewRunnerService("audit-writer", writer))
	if cfg.Audit.RetentionDays > 0 {
		tree.AddDataService(services.NewRunnerService("audit-retention",
			audit.NewRetention(st.audit, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval)))
	}

	// Notifications and the real-time hub.
	users := auth.NewDirectory(&cfg.Security)
	enforcer, err := authz.NewEnforcer(authz.Config{PolicyPath: policyPath})
	if err != nil {
		return err
	}
	registry := notify.NewMemoryRegistry()
	notifications := notify.NewService(registry, st.notifications,
		notify.WithRoleResolver(api.RoleRecipients(users, enforcer)))
	hub := websocket.NewHub(registry)
	tree.AddMessagingService(services.NewRunnerService("websocket-hub", hub))

	// Domain events.
	natsURL := ""
	if cfg.Events.Transport == eventbus.TransportNATS && cfg.Events.EmbeddedServer {
		ns, err := eventbus.StartEmbeddedServer(cfg.Events.EmbeddedPort)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := ns.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS server shutdown incomplete")
			}
		}()
		natsURL = ns.ClientURL()
	}
	bus, err := eventbus.New(cfg.Events, natsURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}()
	tree.AddMessagingService(services.NewRunnerService("event-consumer", eventbus.NewConsumer(bus, notifications)))

	// HTTP.
	jwt, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}

	handler, err := api.NewHandler(api.Dependencies{
		Config:        cfg,
		AuditStore:    st.audit,
		Recorder:      writer,
		Notifications: notifications,
		Users:         users,
		JWT:           jwt,
		Enforcer:      enforcer,
		Hub:           hub,
		Events:        bus,
		Checks:        st.checks,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Exports stream for longer than ordinary requests.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
		return err
	}
	logging.Info().Msg("Storefront stopped")
	return nil
}
