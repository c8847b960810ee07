// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package authz decides which roles may reach which admin resources using a
// casbin RBAC model. The model and default policy are embedded; an operator
// may point at a policy file instead.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/storefront/internal/cache"
	"github.com/tomtom215/storefront/internal/metrics"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Resources and actions referenced by the router.
const (
	ObjectLogs              = "logs"
	ObjectNotificationsSend = "notifications:send"
	ObjectAdminAPI          = "admin-api"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Config selects the policy source. Empty PolicyPath uses the embedded policy.
type Config struct {
	PolicyPath string
	CacheTTL   time.Duration
}

// Enforcer wraps a synced casbin enforcer with a small decision cache.
// Decisions are keyed by role, so the key space stays tiny.
type Enforcer struct {
	enforcer  *casbin.SyncedEnforcer
	decisions *cache.LRU[bool]
}

const decisionCacheSize = 1024

func NewEnforcer(cfg Config) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var e *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" {
		if _, statErr := os.Stat(cfg.PolicyPath); statErr != nil {
			return nil, fmt.Errorf("policy file: %w", statErr)
		}
		e, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		e, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(e, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Enforcer{enforcer: e, decisions: cache.NewLRU[bool](decisionCacheSize, ttl)}, nil
}

// loadPolicy reads "p, ..." and "g, ..." lines.
func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := e.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := e.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	key := role + "|" + object + "|" + action

	if allowed, ok := e.decisions.Get(key); ok {
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	e.decisions.Add(key, allowed)

	result := "denied"
	if allowed {
		result = "allowed"
	}
	metrics.AuthzDecisions.WithLabelValues(object, result).Inc()
	return allowed, nil
}

// RolesWith lists every role (including inherited ones) allowed to perform
// action on object.
func (e *Enforcer) RolesWith(candidates []string, object, action string) []string {
	var out []string
	for _, role := range candidates {
		if ok, err := e.Enforce(role, object, action); err == nil && ok {
			out = append(out, role)
		}
	}
	return out
}

// HasRole reports whether userRole is role or inherits it through the
// grouping rules.
func (e *Enforcer) HasRole(userRole, role string) bool {
	if userRole == role {
		return true
	}
	roles, err := e.enforcer.GetImplicitRolesForUser(userRole)
	if err != nil {
		return false
	}
	return slices.Contains(roles, role)
}

// Invalidate drops cached decisions after a policy change.
func (e *Enforcer) Invalidate() {
	e.decisions.Purge()
}
