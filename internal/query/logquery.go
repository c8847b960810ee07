// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package query turns partially-trusted query strings into store filters.
// Only the keys listed in AllowedKeys are read; anything else a client sends
// is dropped here and never reaches a store.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/validation"
)

// AllowedKeys lists every query parameter ParseLogQuery reads.
var AllowedKeys = []string{
	"page", "limit", "sortBy", "sortOrder",
	"startDate", "endDate",
	"actorId", "action", "entity", "severity", "search",
	"format",
}

const dateOnly = "2006-01-02"

// rawLogQuery holds the string form so malformed numbers surface as
// validation errors instead of being silently defaulted.
type rawLogQuery struct {
	Page  string `json:"page" validate:"omitempty,numeric"`
	Limit string `json:"limit" validate:"omitempty,numeric"`
}

// LogQuery is the validated, typed form of a /logs request.
type LogQuery struct {
	Page      int        `json:"page" validate:"min=1"`
	Limit     int        `json:"limit" validate:"min=1,max=500"`
	SortBy    string     `json:"sortBy" validate:"omitempty,oneof=timestamp action entity actorName severity"`
	SortOrder string     `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	ActorID   string     `json:"actorId" validate:"max=128"`
	Action    string     `json:"action" validate:"max=32"`
	Entity    string     `json:"entity" validate:"max=128"`
	Severity  string     `json:"severity" validate:"omitempty,oneof=DEBUG INFO NOTICE WARNING ERROR CRITICAL ALERT EMERGENCY"`
	Search    string     `json:"search" validate:"max=200"`
	// Format is checked by export.ParseFormat so an unknown value surfaces
	// as INVALID_FORMAT rather than a generic validation error.
	Format    string     `json:"format" validate:"max=16"`
}

// ParseLogQuery reads the allow-listed keys from values. Dates that do not
// parse are dropped. A malformed number or an out-of-range value returns a
// *validation.RequestValidationError.
func ParseLogQuery(values url.Values) (LogQuery, error) {
	raw := rawLogQuery{
		Page:  strings.TrimSpace(values.Get("page")),
		Limit: strings.TrimSpace(values.Get("limit")),
	}
	if verr := validation.ValidateStruct(&raw); verr != nil {
		return LogQuery{}, verr
	}

	q := LogQuery{
		Page:      1,
		Limit:     audit.DefaultPageSize,
		SortBy:    strings.TrimSpace(values.Get("sortBy")),
		SortOrder: strings.ToLower(strings.TrimSpace(values.Get("sortOrder"))),
		ActorID:   strings.TrimSpace(values.Get("actorId")),
		Action:    strings.ToUpper(strings.TrimSpace(values.Get("action"))),
		Entity:    strings.TrimSpace(values.Get("entity")),
		Severity:  strings.ToUpper(strings.TrimSpace(values.Get("severity"))),
		Search:    strings.TrimSpace(values.Get("search")),
		Format:    strings.ToLower(strings.TrimSpace(values.Get("format"))),
	}
	if raw.Page != "" {
		q.Page, _ = strconv.Atoi(raw.Page)
	}
	if raw.Limit != "" {
		q.Limit, _ = strconv.Atoi(raw.Limit)
	}

	if t, ok := ParseDate(values.Get("startDate"), false); ok {
		q.StartDate = &t
	}
	if t, ok := ParseDate(values.Get("endDate"), true); ok {
		q.EndDate = &t
	}

	if verr := validation.ValidateStruct(&q); verr != nil {
		return LogQuery{}, verr
	}
	return q, nil
}

// ParseDate accepts RFC 3339 timestamps and bare dates. A bare date is the
// start of that day in UTC, or its last nanosecond when endOfDay is set so an
// upper bound includes the whole day.
func ParseDate(s string, endOfDay bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, true
}

// Filter converts the query into the store filter.
func (q LogQuery) Filter() audit.Filter {
	f := audit.Filter{
		StartTime: q.StartDate,
		EndTime:   q.EndDate,
		ActorID:   q.ActorID,
		Action:    q.Action,
		Entity:    q.Entity,
		Search:    q.Search,
	}
	if q.Severity != "" {
		f.MinSeverity = audit.ParseSeverity(q.Severity)
	}
	return f
}

// PageRequest converts the paging and sort keys. Sorting defaults to
// timestamp descending.
func (q LogQuery) PageRequest() audit.PageRequest {
	return audit.PageRequest{
		Page:     q.Page,
		PageSize: q.Limit,
		SortBy:   q.SortBy,
		SortAsc:  q.SortOrder == "asc",
	}
}
