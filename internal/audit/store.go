// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record has the id.
var ErrNotFound = errors.New("audit record not found")

// Store persists audit records. There is no update path: records are only
// appended and removed in bulk by age.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)

	// Query returns one page of matching records. Pagination is offset based
	// and is not stable while records are being inserted concurrently.
	Query(ctx context.Context, filter Filter, page PageRequest) (*Page, error)

	// AggregateByDimension counts matching records grouped by dim, largest
	// group first.
	AggregateByDimension(ctx context.Context, dim Dimension, filter Filter) ([]Bucket, error)

	// PurgeOlderThan deletes records with timestamp < cutoff.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Filter narrows a query. Zero values match everything. StartTime and
// EndTime are both inclusive.
type Filter struct {
	StartTime   *time.Time
	EndTime     *time.Time
	ActorID     string
	Action      string
	Entity      string
	MinSeverity Severity

	// Search is a case-insensitive substring over actor name or email.
	Search string
}

// Sort fields accepted by PageRequest.SortBy.
const (
	SortTimestamp = "timestamp"
	SortAction    = "action"
	SortEntity    = "entity"
	SortActorName = "actorName"
	SortSeverity  = "severity"
)

var sortFields = map[string]bool{
	SortTimestamp: true,
	SortAction:    true,
	SortEntity:    true,
	SortActorName: true,
	SortSeverity:  true,
}

// ValidSortField reports whether field may be used for ordering.
func ValidSortField(field string) bool {
	return sortFields[field]
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PageRequest selects one page of a log query. Page is 1-based and the
// query parser keeps PageSize within MaxPageSize.
type PageRequest struct {
	Page     int
	PageSize int
	SortBy   string
	SortAsc  bool
}

// normalize fills defaults. Unknown sort fields fall back to timestamp, and
// the default order is newest first.
func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if !ValidSortField(p.SortBy) {
		p.SortBy = SortTimestamp
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of matching records. TotalPages is zero when nothing
// matched.
type Page struct {
	Records    []Record `json:"records"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}

func newPage(records []Record, total int64, req PageRequest) *Page {
	if records == nil {
		records = []Record{}
	}
	pages := 0
	if total > 0 {
		pages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	}
	return &Page{
		Records:    records,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: pages,
	}
}

// Dimension is a groupable record field.
type Dimension string

const (
	DimensionAction   Dimension = "action"
	DimensionEntity   Dimension = "entity"
	DimensionActor    Dimension = "actorId"
	DimensionSeverity Dimension = "severity"
)

func (d Dimension) Valid() bool {
	switch d {
	case DimensionAction, DimensionEntity, DimensionActor, DimensionSeverity:
		return true
	}
	return false
}

type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}
