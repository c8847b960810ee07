// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package authz

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/storefront/internal/auth"
	"github.com/tomtom215/storefront/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(Config{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	return e
}

func TestEmbeddedPolicy(t *testing.T) {
	e := newTestEnforcer(t)

	tests := []struct {
		role, object, action string
		want                 bool
	}{
		{"admin", ObjectLogs, ActionRead, true},
		{"admin", ObjectLogs, ActionDelete, true},
		{"superadmin", ObjectLogs, ActionRead, true},
		{"manager", ObjectLogs, ActionRead, false},
		{"staff", ObjectLogs, ActionRead, false},
		{"manager", ObjectAdminAPI, ActionWrite, true},
		{"admin", ObjectAdminAPI, ActionDelete, true},
		{"superadmin", ObjectAdminAPI, ActionWrite, true},
		{"staff", ObjectAdminAPI, ActionWrite, false},
		{"admin", ObjectNotificationsSend, ActionWrite, true},
		{"manager", ObjectNotificationsSend, ActionWrite, false},
		{"", ObjectLogs, ActionRead, false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.role, tt.object, tt.action)
		if err != nil {
			t.Fatalf("Enforce(%s, %s, %s) error = %v", tt.role, tt.object, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%q, %s, %s) = %v, want %v", tt.role, tt.object, tt.action, got, tt.want)
		}
		// Second call is served from the cache and must agree.
		if again, _ := e.Enforce(tt.role, tt.object, tt.action); again != got {
			t.Errorf("cached decision differs for %s/%s/%s", tt.role, tt.object, tt.action)
		}
	}
}

func TestRolesWith(t *testing.T) {
	e := newTestEnforcer(t)
	got := e.RolesWith([]string{"staff", "manager", "admin", "superadmin"}, ObjectLogs, ActionRead)
	if len(got) != 2 || got[0] != "admin" || got[1] != "superadmin" {
		t.Errorf("RolesWith = %v", got)
	}
}

func TestHasRole(t *testing.T) {
	e := newTestEnforcer(t)
	tests := []struct {
		userRole, role string
		want           bool
	}{
		{"admin", "admin", true},
		{"superadmin", "admin", true},
		{"superadmin", "manager", true},
		{"admin", "manager", true},
		{"manager", "admin", false},
		{"staff", "manager", false},
	}
	for _, tt := range tests {
		if got := e.HasRole(tt.userRole, tt.role); got != tt.want {
			t.Errorf("HasRole(%q, %q) = %v, want %v", tt.userRole, tt.role, got, tt.want)
		}
	}
}

func TestPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(path, []byte("p, auditor, logs, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewEnforcer(Config{PolicyPath: path})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	if ok, _ := e.Enforce("auditor", ObjectLogs, ActionRead); !ok {
		t.Error("auditor should read logs")
	}
	if ok, _ := e.Enforce("admin", ObjectLogs, ActionRead); ok {
		t.Error("file policy replaces the embedded one")
	}

	if _, err := NewEnforcer(Config{PolicyPath: filepath.Join(t.TempDir(), "missing.csv")}); err == nil {
		t.Error("expected error for missing policy file")
	}
}

func TestRequireMiddleware(t *testing.T) {
	m := NewMiddleware(newTestEnforcer(t), nil)
	h := m.Require(ObjectLogs, ActionRead)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name    string
		subject *auth.Subject
		want    int
	}{
		{"admin", &auth.Subject{ID: "a", Role: "admin"}, http.StatusOK},
		{"manager", &auth.Subject{ID: "m", Role: "manager"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
			if tt.subject != nil {
				req = req.WithContext(auth.ContextWithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestInvalidateDropsCachedDecisions(t *testing.T) {
	e := newTestEnforcer(t)
	if ok, _ := e.Enforce("admin", ObjectLogs, ActionRead); !ok {
		t.Fatal("admin should read logs")
	}
	if e.decisions.Len() != 1 {
		t.Fatalf("cached decisions = %d", e.decisions.Len())
	}
	e.Invalidate()
	if e.decisions.Len() != 0 {
		t.Fatal("Invalidate kept cached decisions")
	}
}
