// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists notifications. Implementations return ErrNotFound for
// unknown ids.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	// List returns the recipient's notifications newest first.
	List(ctx context.Context, recipient string, unreadOnly bool, page, pageSize int) ([]Notification, int64, error)
	UnreadCount(ctx context.Context, recipient string) (int64, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, recipient string, at time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is used in development and tests, and by the duckdb backend
// which only covers audit records.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Notification)}
}

func (s *MemoryStore) Insert(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.items[n.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, recipient string, unreadOnly bool, page, pageSize int) ([]Notification, int64, error) {
	s.mu.RLock()
	matched := make([]Notification, 0)
	for _, n := range s.items {
		if n.Recipient != recipient || (unreadOnly && n.IsRead) {
			continue
		}
		matched = append(matched, *n)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []Notification{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) UnreadCount(_ context.Context, recipient string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.items {
		if n.Recipient == recipient && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
	}
	return nil
}

func (s *MemoryStore) MarkAllRead(_ context.Context, recipient string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.items {
		if n.Recipient == recipient && !n.IsRead {
			n.IsRead = true
			readAt := at
			n.ReadAt = &readAt
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}
