// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package export

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// writeJSON emits an array of objects keyed by column header, one element at
// a time.
func writeJSON(w io.Writer, rows []map[string]interface{}, columns []Column) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}

	for i, row := range rows {
		obj := make(map[string]string, len(columns))
		for _, col := range columns {
			obj[col.Header] = col.Text(row)
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		if i > 0 {
			b = append([]byte{','}, b...)
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("failed to write json row %d: %w", i, err)
		}
	}

	if _, err := io.WriteString(w, "]"); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}
