// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package database opens the storage backends: a MongoDB client for the
// document store and an embedded DuckDB file for single-node deployments.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver

	"github.com/tomtom215/storefront/internal/logging"
)

// OpenDuckDB opens (or creates) the database at path. ":memory:" gives a
// throwaway in-process database.
func OpenDuckDB(ctx context.Context, path string) (*sql.DB, error) {
	// Auto-install is off so startup never blocks on the network.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, runtime.NumCPU())
	if path == ":memory:" {
		connStr = ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false"
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	logging.Info().Str("path", path).Msg("DuckDB opened")
	return conn, nil
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close duckdb after open error")
	}
}
