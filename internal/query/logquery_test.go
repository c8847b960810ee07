// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package query

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/validation"
)

func TestParseLogQuery_Defaults(t *testing.T) {
	q, err := ParseLogQuery(url.Values{})
	if err != nil {
		t.Fatalf("ParseLogQuery() error = %v", err)
	}
	if q.Page != 1 || q.Limit != audit.DefaultPageSize {
		t.Errorf("page=%d limit=%d", q.Page, q.Limit)
	}
	pr := q.PageRequest()
	if pr.SortAsc {
		t.Error("default order should be descending")
	}
	f := q.Filter()
	if f.StartTime != nil || f.EndTime != nil || f.MinSeverity != "" {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestParseLogQuery_AllFields(t *testing.T) {
	v := url.Values{
		"page":      {"3"},
		"limit":     {"25"},
		"sortBy":    {"actorName"},
		"sortOrder": {"ASC"},
		"startDate": {"2024-01-01"},
		"endDate":   {"2024-01-31"},
		"actorId":   {"u-1"},
		"action":    {"update"},
		"entity":    {"Products"},
		"severity":  {"warning"},
		"search":    {" alice "},
		"format":    {"CSV"},
	}
	q, err := ParseLogQuery(v)
	if err != nil {
		t.Fatalf("ParseLogQuery() error = %v", err)
	}

	if q.Page != 3 || q.Limit != 25 || q.SortBy != "actorName" || q.SortOrder != "asc" {
		t.Errorf("paging = %+v", q)
	}
	if q.Action != "UPDATE" || q.Severity != "WARNING" || q.Format != "csv" || q.Search != "alice" {
		t.Errorf("normalization = %+v", q)
	}

	f := q.Filter()
	if !f.StartTime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartTime = %v", f.StartTime)
	}
	wantEnd := time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC)
	if !f.EndTime.Equal(wantEnd) {
		t.Errorf("EndTime = %v, want %v", f.EndTime, wantEnd)
	}
	if f.MinSeverity != audit.SeverityWarning {
		t.Errorf("MinSeverity = %q", f.MinSeverity)
	}

	pr := q.PageRequest()
	if pr.Page != 3 || pr.PageSize != 25 || !pr.SortAsc {
		t.Errorf("PageRequest = %+v", pr)
	}
}

func TestParseLogQuery_InvalidDatesDropped(t *testing.T) {
	q, err := ParseLogQuery(url.Values{
		"startDate": {"yesterday"},
		"endDate":   {"2024-13-45"},
	})
	if err != nil {
		t.Fatalf("invalid dates must not error: %v", err)
	}
	if q.StartDate != nil || q.EndDate != nil {
		t.Errorf("dates should be dropped: %+v", q)
	}
}

func TestParseLogQuery_RFC3339EndIsExact(t *testing.T) {
	q, err := ParseLogQuery(url.Values{"endDate": {"2024-01-31T10:00:00+02:00"}})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)
	if !q.EndDate.Equal(want) {
		t.Errorf("EndDate = %v, want %v", q.EndDate, want)
	}
}

func TestParseLogQuery_UnknownKeysIgnored(t *testing.T) {
	q, err := ParseLogQuery(url.Values{
		"$where":        {"1==1"},
		"details.body":  {"x"},
		"actorId":       {"u-2"},
		"unexpectedKey": {"value"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if q.ActorID != "u-2" {
		t.Errorf("ActorID = %q", q.ActorID)
	}
}

func TestParseLogQuery_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"malformed page", "page", "two", "page"},
		{"zero page", "page", "0", "page"},
		{"limit too high", "limit", "501", "limit"},
		{"limit fraction", "limit", "1.5", "limit"},
		{"bad sort order", "sortOrder", "sideways", "sortOrder"},
		{"bad sort field", "sortBy", "password", "sortBy"},
		{"oversized format", "format", strings.Repeat("x", 17), "format"},
		{"bad severity", "severity", "LOUD", "severity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLogQuery(url.Values{tt.key: {tt.value}})
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want RequestValidationError", err)
			}
			apiErr := verr.ToAPIError()
			if apiErr.Code != "VALIDATION_ERROR" {
				t.Errorf("Code = %q", apiErr.Code)
			}
			if got := verr.Errors()[0].Field(); got != tt.field {
				t.Errorf("field = %q, want %q", got, tt.field)
			}
		})
	}
}

func TestParseLogQuery_FormatPassesThrough(t *testing.T) {
	q, err := ParseLogQuery(url.Values{"format": {" DOCX "}})
	if err != nil {
		t.Fatalf("unknown format should be left to the exporter, got %v", err)
	}
	if q.Format != "docx" {
		t.Errorf("Format = %q", q.Format)
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := ParseDate("", false); ok {
		t.Error("empty string should not parse")
	}
	start, ok := ParseDate("2024-02-29", false)
	if !ok || start.Hour() != 0 {
		t.Errorf("start = %v, %v", start, ok)
	}
	end, _ := ParseDate("2024-02-29", true)
	if end.Day() != 29 || end.Hour() != 23 {
		t.Errorf("end = %v", end)
	}
}
