// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

//go:build integration

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/storefront/internal/config"
	"github.com/tomtom215/storefront/internal/notify"
)

func TestNATSTransportWithEmbeddedServer(t *testing.T) {
	srv, err := StartEmbeddedServer(-1)
	if err != nil {
		t.Fatalf("StartEmbeddedServer() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if !srv.IsRunning() {
		t.Fatal("server should be running")
	}

	cfg := config.EventsConfig{
		Transport:  TransportNATS,
		Topic:      "storefront.domain.test",
		QueueGroup: "notifications",
	}
	bus, err := New(cfg, srv.ClientURL())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer bus.Close()

	reg := notify.NewMemoryRegistry()
	conn := &fakeConn{id: "c1", user: "u-1", role: "admin"}
	reg.Register(conn)
	store := notify.NewMemoryStore()
	startConsumer(t, bus, notify.NewService(reg, store))

	// Core NATS drops messages published before the subscription reaches
	// the server, so publish until one lands.
	deadline := time.Now().Add(5 * time.Second)
	for conn.count() == 0 && time.Now().Before(deadline) {
		if err := bus.Publish(context.Background(), orderEvent("u-1")); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if conn.count() == 0 {
		t.Fatal("no notification delivered over NATS")
	}

	_, total, err := store.List(context.Background(), "u-1", false, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total < 1 {
		t.Errorf("stored notifications = %d", total)
	}
}
