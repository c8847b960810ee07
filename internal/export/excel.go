// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/storefront/internal/logging"
)

const (
	defaultSheet      = "Sheet1"
	defaultExcelWidth = 18.0
	maxSheetName      = 31
)

// writeExcel builds a single-sheet workbook through the stream writer, which
// keeps row data out of the in-memory cell model.
func writeExcel(w io.Writer, rows []map[string]interface{}, columns []Column, opts Options) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close workbook")
		}
	}()

	sheet := defaultSheet
	if opts.Title != "" {
		sheet = sheetName(opts.Title)
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1F4E78"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	// Widths must be set before the first SetRow.
	for i, col := range columns {
		width := col.Width
		if width <= 0 {
			width = defaultExcelWidth
		}
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: col.Header}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for r, row := range rows {
		values := make([]interface{}, len(columns))
		for i, col := range columns {
			values[i] = col.Text(row)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetName strips the characters Excel forbids in sheet names.
func sheetName(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == maxSheetName {
			break
		}
	}
	if len(out) == 0 {
		return defaultSheet
	}
	return string(out)
}
