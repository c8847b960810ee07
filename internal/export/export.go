// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Package export renders plain row maps as CSV, PDF, an Excel workbook or
// JSON. Rows are described by a list of Columns; the same column set drives
// every format.
//
// Renderers never fail on a row that lacks an optional field: missing values
// become the "-" sentinel. The only input errors are an unknown format
// selector (ErrUnsupportedFormat) and an empty column list.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrUnsupportedFormat is returned for an unknown format selector.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrNoColumns is returned when Write is called without columns.
	ErrNoColumns = errors.New("export requires at least one column")
)

// Format selects a renderer.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
)

// ParseFormat accepts the format names used in query strings. "xlsx" is an
// alias for excel.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType is the MIME type sent with an export in format f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

// Align is used by the tabular renderers (PDF).
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Column describes one output field. Accessor wins over Path when both are
// set. Width is in millimetres for PDF and characters for Excel; zero picks a
// default.
type Column struct {
	Header   string
	Path     string
	Accessor func(row map[string]interface{}) interface{}
	Format   func(v interface{}) string
	Width    float64
	Align    Align
}

// Options carries document-level settings.
type Options struct {
	// Title is printed above the PDF table and names the Excel sheet.
	Title string

	// GeneratedAt is shown in the PDF footer. Zero means now.
	GeneratedAt time.Time
}

func (o Options) generatedAt() time.Time {
	if o.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return o.GeneratedAt
}

// Write renders rows to w. A write error from w stops rendering and is
// returned.
func Write(w io.Writer, format Format, rows []map[string]interface{}, columns []Column, opts Options) error {
	if len(columns) == 0 {
		return ErrNoColumns
	}
	switch format {
	case FormatCSV:
		return writeCSV(w, rows, columns)
	case FormatPDF:
		_, err := writePDF(w, rows, columns, opts)
		return err
	case FormatExcel:
		return writeExcel(w, rows, columns, opts)
	case FormatJSON:
		return writeJSON(w, rows, columns)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Value resolves a column against a row without formatting.
func (c Column) Value(row map[string]interface{}) interface{} {
	if c.Accessor != nil {
		return c.Accessor(row)
	}
	return Lookup(row, c.Path)
}

// Text resolves and formats a column to its display string.
func (c Column) Text(row map[string]interface{}) string {
	v := c.Value(row)
	if c.Format != nil {
		return c.Format(v)
	}
	return Stringify(v)
}

func headers(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}
