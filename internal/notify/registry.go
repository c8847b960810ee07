// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package notify

import (
	"sort"
	"sync"
)

// Connection is one live client session.
type Connection interface {
	ID() string
	UserID() string
	Role() string
	// Send must not block; a slow consumer returns an error instead.
	Send(Envelope) error
}

// ConnectionRegistry maps users and roles to their live connections.
type ConnectionRegistry interface {
	Register(conn Connection)
	Unregister(conn Connection)
	MembersOf(role string) []Connection
	ConnectionsOf(userID string) []Connection
	IsOnline(userID string) bool
}

// MemoryRegistry is the single-process registry. Empty per-user and per-role
// sets are removed as soon as their last connection leaves.
type MemoryRegistry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]Connection
	byRole map[string]map[string]Connection
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byUser: make(map[string]map[string]Connection),
		byRole: make(map[string]map[string]Connection),
	}
}

func (r *MemoryRegistry) Register(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	add(r.byUser, conn.UserID(), conn)
	if role := conn.Role(); role != "" {
		add(r.byRole, role, conn)
	}
}

func (r *MemoryRegistry) Unregister(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	remove(r.byUser, conn.UserID(), conn.ID())
	remove(r.byRole, conn.Role(), conn.ID())
}

func (r *MemoryRegistry) MembersOf(role string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byRole[role])
}

func (r *MemoryRegistry) ConnectionsOf(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byUser[userID])
}

func (r *MemoryRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

func add(index map[string]map[string]Connection, key string, conn Connection) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]Connection)
		index[key] = set
	}
	set[conn.ID()] = conn
}

func remove(index map[string]map[string]Connection, key, id string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}

// snapshot copies the set in ID order so callers can send without holding
// the lock.
func snapshot(set map[string]Connection) []Connection {
	if len(set) == 0 {
		return nil
	}
	out := make([]Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
