// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_PageBeyondEnd(t *testing.T) {
	s := NewMemoryStore()
	seedRecords(t, s, 2)
	page, err := s.Query(context.Background(), Filter{}, PageRequest{Page: 5, PageSize: 10})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(page.Records) != 0 || page.Total != 2 || page.TotalPages != 1 {
		t.Errorf("page = %+v", page)
	}
	if page.Records == nil {
		t.Error("records should be an empty slice, not nil")
	}
}

func TestMemoryStore_NilRecord(t *testing.T) {
	if err := NewMemoryStore().Append(context.Background(), nil); err == nil {
		t.Error("nil record should be rejected")
	}
}
