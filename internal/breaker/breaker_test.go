// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package breaker

import (
	"errors"
	"io"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/storefront/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New(Config{Name: "test-open", FailureThreshold: 2, Timeout: time.Hour})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := Run(cb, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v, want boom", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	called := false
	err := Run(cb, func() error { called = true; return nil })
	if !IsRejected(err) {
		t.Errorf("err = %v, want rejection", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestBreakerPassesSuccess(t *testing.T) {
	cb := New(DefaultConfig("test-ok"))
	if err := Run(cb, func() error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if IsRejected(errors.New("other")) {
		t.Error("plain errors are not rejections")
	}
}
