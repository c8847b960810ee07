// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "mongo" {
		t.Errorf("Storage.Backend = %q, want mongo", cfg.Storage.Backend)
	}
	if cfg.Audit.BufferSize != 1000 {
		t.Errorf("Audit.BufferSize = %d, want 1000", cfg.Audit.BufferSize)
	}
	if len(cfg.Audit.ElevatedRoles) != 3 {
		t.Errorf("Audit.ElevatedRoles = %v", cfg.Audit.ElevatedRoles)
	}
	if cfg.Events.Topic != "storefront.domain" {
		t.Errorf("Events.Topic = %q", cfg.Events.Topic)
	}
	if cfg.Export.FilenamePrefix != "admin-logs" {
		t.Errorf("Export.FilenamePrefix = %q", cfg.Export.FilenamePrefix)
	}
	if cfg.Export.PDFMaxRows != 5000 {
		t.Errorf("Export.PDFMaxRows = %d, want 5000", cfg.Export.PDFMaxRows)
	}
}

func TestExportRowLimit(t *testing.T) {
	e := ExportConfig{MaxRows: 100, PDFMaxRows: 10}
	if got := e.RowLimit("pdf"); got != 10 {
		t.Errorf("pdf limit = %d, want 10", got)
	}
	if got := e.RowLimit("csv"); got != 100 {
		t.Errorf("csv limit = %d, want 100", got)
	}
	e.PDFMaxRows = 0
	if got := e.RowLimit("pdf"); got != 100 {
		t.Errorf("uncapped pdf limit = %d, want 100", got)
	}
	e.PDFMaxRows = 500
	if got := e.RowLimit("pdf"); got != 100 {
		t.Errorf("pdf cap above max_rows = %d, want 100", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("AUDIT_ELEVATED_ROLES", "admin, auditor ,")
	t.Setenv("AUDIT_WRITE_TIMEOUT", "2s")
	t.Setenv("DISABLE_RATE_LIMIT", "true")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if got := strings.Join(cfg.Audit.ElevatedRoles, "|"); got != "admin|auditor" {
		t.Errorf("Audit.ElevatedRoles = %q", got)
	}
	if cfg.Audit.WriteTimeout != 2*time.Second {
		t.Errorf("Audit.WriteTimeout = %v", cfg.Audit.WriteTimeout)
	}
	if !cfg.Security.RateLimitDisabled {
		t.Error("RateLimitDisabled should be true")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7000
storage:
  backend: duckdb
  duckdb:
    path: /tmp/audit.duckdb
security:
  jwt_secret: ` + testSecret + `
  users:
    - id: u-2
      name: Manager
      email: manager@example.com
      role: manager
      password_hash: "$2a$10$abc"
export:
  pdf_title: Activity
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "7001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("env should override file, port = %d", cfg.Server.Port)
	}
	if cfg.Storage.DuckDB.Path != "/tmp/audit.duckdb" {
		t.Errorf("DuckDB.Path = %q", cfg.Storage.DuckDB.Path)
	}
	if len(cfg.Security.Users) != 1 || cfg.Security.Users[0].Role != "manager" {
		t.Errorf("Users = %+v", cfg.Security.Users)
	}
	if cfg.Export.PDFTitle != "Activity" {
		t.Errorf("PDFTitle = %q", cfg.Export.PDFTitle)
	}
	if cfg.Export.MaxRows != 50000 {
		t.Errorf("defaults should survive, MaxRows = %d", cfg.Export.MaxRows)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		c.Security.JWTSecret = testSecret
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "jwt_secret"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"mongo without uri", func(c *Config) { c.Storage.Mongo.URI = "" }, "mongo.uri"},
		{"zero buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "buffer_size"},
		{"bad transport", func(c *Config) { c.Events.Transport = "kafka" }, "events.transport"},
		{"nats without url", func(c *Config) {
			c.Events.Transport = "nats"
			c.Events.NATSURL = ""
		}, "nats_url"},
		{"nats embedded", func(c *Config) {
			c.Events.Transport = "nats"
			c.Events.NATSURL = ""
			c.Events.EmbeddedServer = true
		}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	if got := envTransformFunc("MONGO_URI"); got != "storage.mongo.uri" {
		t.Errorf("MONGO_URI -> %q", got)
	}
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("PATH should be ignored, got %q", got)
	}
}
