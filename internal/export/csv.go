// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// flushEvery bounds how much output is buffered before the sink sees it, so
// a disconnected client is noticed without rendering the whole result.
const flushEvery = 100

func writeCSV(w io.Writer, rows []map[string]interface{}, columns []Column) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(headers(columns)); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			record[j] = col.Text(row)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
		if (i+1)%flushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return fmt.Errorf("failed to flush csv: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
