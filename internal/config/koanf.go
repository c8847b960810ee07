// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/storefront/config.yaml",
}

// ConfigPathEnvVar overrides the search.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     60 * time.Second,
			Environment: "development",
		},
		Storage: StorageConfig{
			Backend: "mongo",
			Mongo: MongoConfig{
				URI:            "mongodb://localhost:27017",
				Database:       "storefront",
				ConnectTimeout: 10 * time.Second,
			},
			DuckDB: DuckDBConfig{Path: "/data/storefront-audit.duckdb"},
		},
		Audit: AuditConfig{
			Enabled:         true,
			BufferSize:      1000,
			WriteTimeout:    5 * time.Second,
			RetentionDays:   0,
			CleanupInterval: 24 * time.Hour,
			ElevatedRoles:   []string{"admin", "superadmin", "manager"},
			SensitiveKeys:   []string{"newPassword", "confirmPassword", "accessToken", "refreshToken"},
		},
		Security: SecurityConfig{
			SessionTimeout:  24 * time.Hour,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			Admin: UserConfig{
				ID:   "admin",
				Name: "Administrator",
				Role: "admin",
			},
		},
		Events: EventsConfig{
			Transport:    "memory",
			NATSURL:      "nats://127.0.0.1:4222",
			EmbeddedPort: 4222,
			Topic:        "storefront.domain",
			QueueGroup:   "notifications",
		},
		Export: ExportConfig{
			MaxRows:        50000,
			PDFMaxRows:     5000,
			PDFTitle:       "Admin Activity Log",
			FilenamePrefix: "admin-logs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. An empty path falls back to CONFIG_PATH and
// then DefaultConfigPaths; a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from env vars as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"audit.elevated_roles",
	"audit.sensitive_keys",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings is the complete list of recognized environment variables.
// Anything else in the environment is ignored.
var envMappings = map[string]string{
	"http_host":       "server.host",
	"http_port":       "server.port",
	"server_timeout":  "server.timeout",
	"environment":     "server.environment",
	"storage_backend": "storage.backend",

	"mongo_uri":             "storage.mongo.uri",
	"mongo_database":        "storage.mongo.database",
	"mongo_connect_timeout": "storage.mongo.connect_timeout",
	"duckdb_path":           "storage.duckdb.path",

	"audit_enabled":          "audit.enabled",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_write_timeout":    "audit.write_timeout",
	"audit_retention_days":   "audit.retention_days",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_elevated_roles":   "audit.elevated_roles",
	"audit_sensitive_keys":   "audit.sensitive_keys",

	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"admin_id":            "security.admin.id",
	"admin_name":          "security.admin.name",
	"admin_email":         "security.admin.email",
	"admin_password_hash": "security.admin.password_hash",

	"events_transport":    "events.transport",
	"nats_url":            "events.nats_url",
	"nats_embedded":       "events.embedded_server",
	"nats_embedded_port":  "events.embedded_port",
	"events_topic":        "events.topic",
	"events_queue_group":  "events.queue_group",

	"export_max_rows":        "export.max_rows",
	"export_pdf_max_rows":    "export.pdf_max_rows",
	"export_pdf_title":       "export.pdf_title",
	"export_filename_prefix": "export.filename_prefix",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
