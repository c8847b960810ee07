// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package config loads the service configuration from built-in defaults, an
// optional YAML file and environment variables (in that order of precedence,
// lowest first) using koanf.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration tree.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Audit    AuditConfig    `koanf:"audit"`
	Security SecurityConfig `koanf:"security"`
	Events   EventsConfig   `koanf:"events"`
	Export   ExportConfig   `koanf:"export"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// StorageConfig selects the audit/notification backend.
//
// Backends:
//   - mongo: document database, the production default
//   - duckdb: embedded single-node file, audit records only (notifications stay in memory)
//   - memory: process memory, lost on restart
type StorageConfig struct {
	Backend string       `koanf:"backend"`
	Mongo   MongoConfig  `koanf:"mongo"`
	DuckDB  DuckDBConfig `koanf:"duckdb"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type DuckDBConfig struct {
	Path string `koanf:"path"`
}

// AuditConfig controls the admin activity log.
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`

	// BufferSize bounds the number of records waiting to be persisted.
	// When full, new records are rejected with a BufferFull write error.
	BufferSize int `koanf:"buffer_size"`

	WriteTimeout time.Duration `koanf:"write_timeout"`

	// RetentionDays of 0 disables the periodic purge.
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// ElevatedRoles are the actor roles whose requests are recorded.
	ElevatedRoles []string `koanf:"elevated_roles"`

	// SensitiveKeys are masked in recorded request bodies in addition to
	// password and token.
	SensitiveKeys []string `koanf:"sensitive_keys"`
}

type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// Admin is the bootstrap account, typically injected through env vars.
	Admin UserConfig `koanf:"admin"`

	// Users lists additional accounts (YAML only).
	Users []UserConfig `koanf:"users"`
}

// UserConfig is one login account. PasswordHash is a bcrypt hash.
type UserConfig struct {
	ID           string `koanf:"id"`
	Name         string `koanf:"name"`
	Email        string `koanf:"email"`
	Role         string `koanf:"role"`
	PasswordHash string `koanf:"password_hash"`
}

// EventsConfig configures the domain event bus feeding notifications.
type EventsConfig struct {
	Transport      string `koanf:"transport"` // memory or nats
	NATSURL        string `koanf:"nats_url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedPort   int    `koanf:"embedded_port"`
	Topic          string `koanf:"topic"`
	QueueGroup     string `koanf:"queue_group"`
}

type ExportConfig struct {
	MaxRows        int    `koanf:"max_rows"`
	// PDFMaxRows caps PDF exports, which are assembled in memory before
	// the first byte is sent. Zero means MaxRows applies.
	PDFMaxRows     int    `koanf:"pdf_max_rows"`
	PDFTitle       string `koanf:"pdf_title"`
	FilenamePrefix string `koanf:"filename_prefix"`
}

// RowLimit is the row cap for one export format.
func (e ExportConfig) RowLimit(format string) int {
	if format == "pdf" && e.PDFMaxRows > 0 && e.PDFMaxRows < e.MaxRows {
		return e.PDFMaxRows
	}
	return e.MaxRows
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction reports whether internal error detail must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Storage.Backend {
	case "mongo":
		if c.Storage.Mongo.URI == "" {
			errs = append(errs, errors.New("storage.mongo.uri is required for the mongo backend"))
		}
		if c.Storage.Mongo.Database == "" {
			errs = append(errs, errors.New("storage.mongo.database is required for the mongo backend"))
		}
	case "duckdb":
		if c.Storage.DuckDB.Path == "" {
			errs = append(errs, errors.New("storage.duckdb.path is required for the duckdb backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q must be mongo, duckdb or memory", c.Storage.Backend))
	}

	if c.Audit.BufferSize <= 0 {
		errs = append(errs, errors.New("audit.buffer_size must be positive"))
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, errors.New("audit.retention_days cannot be negative"))
	}
	if c.Audit.RetentionDays > 0 && c.Audit.CleanupInterval <= 0 {
		errs = append(errs, errors.New("audit.cleanup_interval must be positive when retention is enabled"))
	}

	if len(c.Security.JWTSecret) < 32 {
		errs = append(errs, errors.New("security.jwt_secret must be at least 32 characters"))
	}

	switch c.Events.Transport {
	case "memory":
	case "nats":
		if c.Events.NATSURL == "" && !c.Events.EmbeddedServer {
			errs = append(errs, errors.New("events.nats_url is required unless events.embedded_server is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.transport %q must be memory or nats", c.Events.Transport))
	}

	if c.Export.MaxRows <= 0 {
		errs = append(errs, errors.New("export.max_rows must be positive"))
	}
	if c.Export.PDFMaxRows < 0 {
		errs = append(errs, errors.New("export.pdf_max_rows must not be negative"))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	return errors.Join(errs...)
}
