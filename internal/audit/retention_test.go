// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetention_PurgeOnce(t *testing.T) {
	store := NewMemoryStore()
	seedRecords(t, store, 48) // two days of hourly records

	r := NewRetention(store, 1, time.Hour)
	r.now = func() time.Time { return baseTime.Add(48 * time.Hour) }

	n, err := r.PurgeOnce(context.Background())
	if err != nil {
		t.Fatalf("PurgeOnce() error = %v", err)
	}
	if n != 24 {
		t.Errorf("purged %d, want 24", n)
	}
	if store.Len() != 24 {
		t.Errorf("remaining %d, want 24", store.Len())
	}
}

func TestRetention_RunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	seedRecords(t, store, 3)
	r := NewRetention(store, 1, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunWithContext(ctx) }()

	waitFor(t, func() bool { return store.Len() == 0 })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retention loop did not stop")
	}
}
