// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/tomtom215/storefront/internal/export"
)

func TestExportRowsPagesThroughStore(t *testing.T) {
	s := NewMemoryStore()
	seedRecords(t, s, 1203)

	rows, truncated, err := ExportRows(context.Background(), s, Filter{}, 5000)
	if err != nil {
		t.Fatalf("ExportRows() error = %v", err)
	}
	if truncated || len(rows) != 1203 {
		t.Fatalf("rows = %d truncated = %v, want 1203 false", len(rows), truncated)
	}
	first, last := rows[0]["timestamp"].(time.Time), rows[len(rows)-1]["timestamp"].(time.Time)
	if !first.After(last) {
		t.Errorf("rows should be newest first: %v .. %v", first, last)
	}

	rows, truncated, err = ExportRows(context.Background(), s, Filter{}, 700)
	if err != nil {
		t.Fatal(err)
	}
	if !truncated || len(rows) != 700 {
		t.Errorf("rows = %d truncated = %v, want 700 true", len(rows), truncated)
	}
}

func TestExportRowsRespectsFilter(t *testing.T) {
	s := NewMemoryStore()
	seedRecords(t, s, 30)

	rows, _, err := ExportRows(context.Background(), s, Filter{ActorID: "u-2"}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 10 {
		t.Errorf("rows = %d, want 10", len(rows))
	}
	for _, r := range rows {
		if r["actorId"] != "u-2" {
			t.Errorf("unexpected actor %v", r["actorId"])
		}
	}
}

func TestExportColumnsRenderCSV(t *testing.T) {
	s := NewMemoryStore()
	recs := seedRecords(t, s, 3)
	bare := Record{ID: "bare", Timestamp: baseTime.Add(-time.Hour)}
	if err := s.Append(context.Background(), &bare); err != nil {
		t.Fatal(err)
	}

	rows, _, err := ExportRows(context.Background(), s, Filter{}, 10)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	cols := ExportColumns()
	if err := export.Write(&buf, export.FormatCSV, rows, cols, export.Options{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("csv lines = %d, want header + 4", len(got))
	}
	if len(got[0]) != len(cols) || got[0][0] != "Timestamp (UTC)" {
		t.Errorf("header = %v", got[0])
	}

	newest := recs[2]
	if got[1][0] != newest.Timestamp.Format("2006-01-02 15:04:05") {
		t.Errorf("timestamp cell = %q", got[1][0])
	}
	if got[1][1] != newest.ActorName || got[1][8] != "200" {
		t.Errorf("row = %v", got[1])
	}

	// A record with only a timestamp degrades to the missing sentinel.
	for i, cell := range got[4][1:] {
		if cell != export.Missing {
			t.Errorf("bare record column %q = %q, want %q", cols[i+1].Header, cell, export.Missing)
		}
	}
}
