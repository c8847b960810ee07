// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/storefront/internal/export"
)

const exportTimestampLayout = "2006-01-02 15:04:05"

// ExportColumns is the column set for admin log downloads. Widths are sized
// for a landscape A4 page.
func ExportColumns() []export.Column {
	return []export.Column{
		{Header: "Timestamp (UTC)", Path: "timestamp", Width: 34, Format: formatTimestamp},
		{Header: "Actor", Path: "actorName", Width: 30},
		{Header: "Email", Path: "actorEmail", Width: 42},
		{Header: "Role", Path: "actorRole", Width: 18},
		{Header: "Action", Path: "action", Width: 18, Align: export.AlignCenter},
		{Header: "Entity", Path: "entity", Width: 24},
		{Header: "Entity ID", Path: "entityId", Width: 30},
		{Header: "Severity", Path: "severity", Width: 18, Align: export.AlignCenter},
		{Header: "Status", Path: "details.statusCode", Width: 14, Align: export.AlignRight},
		{Header: "IP Address", Path: "ipAddress", Width: 24},
		{Header: "Details", Path: "details.summary", Width: 50, Format: func(v interface{}) string {
			return export.Truncate(export.Stringify(v), 120)
		}},
	}
}

func formatTimestamp(v interface{}) string {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return export.Missing
	}
	return t.UTC().Format(exportTimestampLayout)
}

// ExportRows pages through every record matching filter, newest first, and
// stops after maxRows. truncated reports whether more records matched.
func ExportRows(ctx context.Context, store Store, filter Filter, maxRows int) (rows []map[string]interface{}, truncated bool, err error) {
	req := PageRequest{Page: 1, PageSize: MaxPageSize, SortBy: SortTimestamp}
	for {
		page, err := store.Query(ctx, filter, req)
		if err != nil {
			return nil, false, err
		}
		for i := range page.Records {
			if len(rows) >= maxRows {
				return rows, true, nil
			}
			rows = append(rows, page.Records[i].Row())
		}
		if req.Page >= page.TotalPages || len(page.Records) == 0 {
			return rows, false, nil
		}
		req.Page++
	}
}
