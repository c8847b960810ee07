// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/storefront/internal/api"
	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/config"
	"github.com/tomtom215/storefront/internal/database"
	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/notify"
)

// stores is the persistence selected by storage.backend.
type stores struct {
	audit         audit.Store
	notifications notify.Store
	checks        map[string]api.ReadinessCheck
	close         func(ctx context.Context)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Backend {
	case "mongo":
		m, err := database.ConnectMongo(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database, cfg.Storage.Mongo.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		auditStore := audit.NewMongoStore(m.DB)
		notifyStore := notify.NewMongoStore(m.DB)
		if err := auditStore.EnsureIndexes(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to create audit indexes")
		}
		if err := notifyStore.EnsureIndexes(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to create notification indexes")
		}
		return &stores{
			audit:         auditStore,
			notifications: notifyStore,
			checks:        map[string]api.ReadinessCheck{"mongo": m.Ping},
			close: func(ctx context.Context) {
				if err := m.Close(ctx); err != nil {
					logging.Error().Err(err).Msg("Error closing MongoDB client")
				}
			},
		}, nil

	case "duckdb":
		db, err := database.OpenDuckDB(ctx, cfg.Storage.DuckDB.Path)
		if err != nil {
			return nil, err
		}
		auditStore := audit.NewDuckDBStore(db)
		if err := auditStore.CreateTable(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create audit table: %w", err)
		}
		return &stores{
			audit:         auditStore,
			notifications: notify.NewMemoryStore(),
			checks:        map[string]api.ReadinessCheck{"duckdb": pinger(db)},
			close: func(context.Context) {
				if err := db.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing DuckDB")
				}
			},
		}, nil

	case "memory":
		logging.Warn().Msg("Using in-memory storage: audit records and notifications are lost on restart")
		return &stores{
			audit:         audit.NewMemoryStore(),
			notifications: notify.NewMemoryStore(),
			close:         func(context.Context) {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func pinger(db *sql.DB) api.ReadinessCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}
