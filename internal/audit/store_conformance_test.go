// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/storefront/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// seedRecords appends n records one hour apart starting at baseTime, cycling
// through actors, actions and severities.
func seedRecords(t *testing.T, s Store, n int) []Record {
	t.Helper()
	actors := []struct{ id, name, email string }{
		{"u-1", "Alice Admin", "alice@example.com"},
		{"u-2", "Bob Manager", "bob@shop.example"},
		{"u-3", "Carol Ops", "carol@example.com"},
	}
	actions := []string{ActionCreate, ActionUpdate, ActionDelete, ActionExport}
	entities := []string{"Products", "Orders"}
	severities := []Severity{SeverityInfo, SeverityWarning, SeverityError}

	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		a := actors[i%len(actors)]
		rec := Record{
			ID:         fmt.Sprintf("rec-%03d", i),
			ActorID:    a.id,
			ActorName:  a.name,
			ActorEmail: a.email,
			ActorRole:  "admin",
			Action:     actions[i%len(actions)],
			Entity:     entities[i%len(entities)],
			EntityID:   fmt.Sprintf("ent-%d", i),
			Severity:   severities[i%len(severities)],
			Details:    NewHTTPDetails(map[string]string{"i": fmt.Sprint(i)}, map[string]interface{}{"name": "X"}, 200, "OK"),
			IPAddress:  "10.0.0.1",
			UserAgent:  "test",
			Timestamp:  baseTime.Add(time.Duration(i) * time.Hour),
		}
		if err := s.Append(context.Background(), &rec); err != nil {
			t.Fatalf("Append(%s) error = %v", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out
}

// runStoreConformance exercises the Store contract against any backend.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Get", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 3)
		rec, err := s.Get(context.Background(), "rec-001")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec.ActorName != "Bob Manager" || rec.Action != ActionUpdate {
			t.Errorf("unexpected record %+v", rec)
		}
		if rec.Details == nil || rec.Details.Kind != DetailsHTTP || rec.Details.StatusCode != 200 {
			t.Errorf("details not round-tripped: %+v", rec.Details)
		}
		if !rec.Timestamp.Equal(baseTime.Add(time.Hour)) {
			t.Errorf("timestamp = %v", rec.Timestamp)
		}
		if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing id error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DefaultOrderNewestFirst", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 5)
		page, err := s.Query(context.Background(), Filter{}, PageRequest{})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if page.Total != 5 || len(page.Records) != 5 {
			t.Fatalf("total=%d len=%d", page.Total, len(page.Records))
		}
		for i := 1; i < len(page.Records); i++ {
			if page.Records[i].Timestamp.After(page.Records[i-1].Timestamp) {
				t.Fatalf("records not in descending timestamp order at %d", i)
			}
		}
	})

	t.Run("InclusiveDateRange", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 10)
		start := baseTime.Add(2 * time.Hour)
		end := baseTime.Add(5 * time.Hour)
		page, err := s.Query(context.Background(), Filter{StartTime: &start, EndTime: &end}, PageRequest{PageSize: 100})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if page.Total != 4 {
			t.Fatalf("total = %d, want 4 (both bounds inclusive)", page.Total)
		}
		for _, r := range page.Records {
			if r.Timestamp.Before(start) || r.Timestamp.After(end) {
				t.Errorf("record %s at %v outside window", r.ID, r.Timestamp)
			}
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 7)
		page, err := s.Query(context.Background(), Filter{}, PageRequest{Page: 2, PageSize: 3, SortBy: SortTimestamp, SortAsc: true})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if page.TotalPages != 3 || page.Page != 2 || page.PageSize != 3 {
			t.Errorf("page meta = %+v", page)
		}
		if len(page.Records) != 3 || page.Records[0].ID != "rec-003" {
			t.Errorf("page 2 starts with %v", page.Records)
		}
		last, _ := s.Query(context.Background(), Filter{}, PageRequest{Page: 3, PageSize: 3, SortAsc: true})
		if len(last.Records) != 1 {
			t.Errorf("last page has %d records, want 1", len(last.Records))
		}
	})

	t.Run("Filters", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 12)
		ctx := context.Background()

		tests := []struct {
			name   string
			filter Filter
			want   int64
		}{
			{"actor", Filter{ActorID: "u-2"}, 4},
			{"action", Filter{Action: ActionExport}, 3},
			{"entity", Filter{Entity: "Orders"}, 6},
			{"min severity", Filter{MinSeverity: SeverityWarning}, 8},
			{"search name case-insensitive", Filter{Search: "alice"}, 4},
			{"search email", Filter{Search: "SHOP.EXAMPLE"}, 4},
			{"search no match", Filter{Search: "zed"}, 0},
			{"combined", Filter{ActorID: "u-1", Entity: "Products"}, 2},
		}
		for _, tt := range tests {
			page, err := s.Query(ctx, tt.filter, PageRequest{PageSize: 100})
			if err != nil {
				t.Fatalf("%s: Query() error = %v", tt.name, err)
			}
			if page.Total != tt.want {
				t.Errorf("%s: total = %d, want %d", tt.name, page.Total, tt.want)
			}
		}
	})

	t.Run("SortBySeverity", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 6)
		page, err := s.Query(context.Background(), Filter{}, PageRequest{PageSize: 10, SortBy: SortSeverity})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if page.Records[0].Severity != SeverityError {
			t.Errorf("first severity = %s, want ERROR", page.Records[0].Severity)
		}
	})

	t.Run("AggregateByDimension", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 9)
		buckets, err := s.AggregateByDimension(context.Background(), DimensionAction, Filter{})
		if err != nil {
			t.Fatalf("AggregateByDimension() error = %v", err)
		}
		counts := map[string]int64{}
		var sum int64
		for _, b := range buckets {
			counts[b.Key] = b.Count
			sum += b.Count
		}
		if sum != 9 || counts[ActionCreate] != 3 || counts[ActionExport] != 2 {
			t.Errorf("buckets = %+v", buckets)
		}
		if buckets[0].Count < buckets[len(buckets)-1].Count {
			t.Error("buckets must be sorted by count descending")
		}

		filtered, err := s.AggregateByDimension(context.Background(), DimensionEntity, Filter{ActorID: "u-1"})
		if err != nil {
			t.Fatalf("AggregateByDimension() error = %v", err)
		}
		var fsum int64
		for _, b := range filtered {
			fsum += b.Count
		}
		if fsum != 3 {
			t.Errorf("filtered total = %d, want 3", fsum)
		}

		if _, err := s.AggregateByDimension(context.Background(), Dimension("ipAddress"), Filter{}); err == nil {
			t.Error("unknown dimension should fail")
		}
	})

	t.Run("PurgeOlderThan", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s, 10)
		ctx := context.Background()
		cutoff := baseTime.Add(4 * time.Hour)

		n, err := s.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			t.Fatalf("PurgeOlderThan() error = %v", err)
		}
		if n != 4 {
			t.Errorf("purged %d, want 4", n)
		}

		page, _ := s.Query(ctx, Filter{}, PageRequest{PageSize: 100})
		if page.Total != 6 {
			t.Errorf("remaining = %d, want 6", page.Total)
		}
		for _, r := range page.Records {
			if r.Timestamp.Before(cutoff) {
				t.Errorf("record %s older than cutoff survived", r.ID)
			}
		}

		again, err := s.PurgeOlderThan(ctx, cutoff)
		if err != nil || again != 0 {
			t.Errorf("second purge = %d, %v; want 0, nil", again, err)
		}
	})
}
