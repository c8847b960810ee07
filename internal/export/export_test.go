// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/storefront/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

var testColumns = []Column{
	{Header: "Order", Path: "number", Width: 25},
	{Header: "Customer", Path: "customer.name"},
	{Header: "Total", Path: "total", Format: Currency, Align: AlignRight},
	{Header: "Paid", Path: "paid", Format: YesNo},
	{Header: "Note", Accessor: func(row map[string]interface{}) interface{} {
		return row["note"]
	}},
}

func testRows(n int) []map[string]interface{} {
	rows := make([]map[string]interface{}, n)
	for i := range rows {
		rows[i] = map[string]interface{}{
			"number":   fmt.Sprintf("SO-%04d", i+1),
			"customer": map[string]interface{}{"name": fmt.Sprintf("Customer %d", i+1)},
			"total":    float64(i) * 10.5,
			"paid":     i%2 == 0,
			"note":     fmt.Sprintf(`says "hi", row %d`, i+1),
		}
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{"PDF", FormatPDF},
		{"excel", FormatExcel},
		{"xlsx", FormatExcel},
		{" json ", FormatJSON},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := ParseFormat("docx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ParseFormat(docx) error = %v", err)
	}
	if FormatExcel.Extension() != "xlsx" || FormatCSV.ContentType() != "text/csv; charset=utf-8" {
		t.Error("unexpected format metadata")
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(io.Discard, Format("docx"), nil, testColumns, Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v", err)
	}
	if err := Write(io.Discard, FormatCSV, nil, nil, Options{}); !errors.Is(err, ErrNoColumns) {
		t.Errorf("error = %v", err)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rows := testRows(250)
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, rows, testColumns, Options{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != len(rows)+1 {
		t.Fatalf("got %d records, want %d", len(records), len(rows)+1)
	}
	if strings.Join(records[0], "|") != "Order|Customer|Total|Paid|Note" {
		t.Errorf("header = %v", records[0])
	}
	for i, row := range rows {
		for j, col := range testColumns {
			if got, want := records[i+1][j], col.Text(row); got != want {
				t.Fatalf("row %d col %q = %q, want %q", i, col.Header, got, want)
			}
		}
	}
	if records[2][4] != `says "hi", row 2` {
		t.Errorf("quoted field = %q", records[2][4])
	}
}

func TestCSV_MissingFieldsDegrade(t *testing.T) {
	var buf bytes.Buffer
	rows := []map[string]interface{}{{"number": "SO-1"}}
	if err := Write(&buf, FormatCSV, rows, testColumns, Options{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	records, _ := csv.NewReader(&buf).ReadAll()
	want := []string{"SO-1", "-", "-", "No", "-"}
	if strings.Join(records[1], "|") != strings.Join(want, "|") {
		t.Errorf("row = %v, want %v", records[1], want)
	}
}

type failingWriter struct {
	after  int
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	if f.writes > f.after {
		return 0, errors.New("client went away")
	}
	return len(p), nil
}

func TestCSV_SinkErrorStops(t *testing.T) {
	sink := &failingWriter{after: 1}
	err := Write(sink, FormatCSV, testRows(1000), testColumns, Options{})
	if err == nil {
		t.Fatal("expected sink error")
	}
	if sink.writes > 3 {
		t.Errorf("renderer kept writing after failure: %d writes", sink.writes)
	}
}

func TestPDF_HeaderRepeatsOnEveryPage(t *testing.T) {
	rows := testRows(137)
	var buf bytes.Buffer
	stats, err := writePDF(&buf, rows, testColumns, Options{
		Title:       "Orders",
		GeneratedAt: time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("writePDF() error = %v", err)
	}
	if stats.Pages < 2 {
		t.Fatalf("expected several pages, got %d", stats.Pages)
	}
	if stats.HeaderDraws != stats.Pages {
		t.Errorf("header drawn %d times over %d pages", stats.HeaderDraws, stats.Pages)
	}
	if stats.Rows != len(rows) {
		t.Errorf("rendered %d rows, want %d", stats.Rows, len(rows))
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

func TestPDF_EmptyResult(t *testing.T) {
	var buf bytes.Buffer
	stats, err := writePDF(&buf, nil, testColumns, Options{})
	if err != nil {
		t.Fatalf("writePDF() error = %v", err)
	}
	if stats.Pages != 1 || stats.HeaderDraws != 1 || stats.Rows != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPDF_FitClipsWithEllipsis(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("wide text ", 30)
	rows := []map[string]interface{}{{"number": long}}
	if _, err := writePDF(&buf, rows, testColumns[:1], Options{}); err != nil {
		t.Fatal(err)
	}

	r := &pdfRenderer{}
	r.pdf = newTestPDF()
	r.tr = r.pdf.UnicodeTranslatorFromDescriptor("")
	got := r.fit(long, 25)
	if got == r.tr(long) {
		t.Fatal("text was not clipped")
	}
	if !strings.HasSuffix(got, r.tr("…")) {
		t.Errorf("clipped text %q lacks ellipsis", got)
	}
	if w := r.pdf.GetStringWidth(got); w > 25-2*pdfCellPadding {
		t.Errorf("clipped width %.2f overflows", w)
	}
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths([]Column{{Width: 50}, {}, {}}, 250)
	if widths[0] != 50 || widths[1] != 100 || widths[2] != 100 {
		t.Errorf("widths = %v", widths)
	}
	widths = columnWidths([]Column{{Width: 200}, {Width: 200}}, 100)
	if widths[0] != 50 || widths[1] != 50 {
		t.Errorf("overflow not scaled: %v", widths)
	}
}

func TestExcel(t *testing.T) {
	rows := testRows(20)
	var buf bytes.Buffer
	if err := Write(&buf, FormatExcel, rows, testColumns, Options{Title: "Orders: Jan/Feb"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Orders JanFeb" {
		t.Fatalf("sheets = %v", sheets)
	}
	got, err := f.GetRows(sheets[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(rows)+1 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0][1] != "Customer" || got[3][2] != "21.00" {
		t.Errorf("unexpected cells: %v / %v", got[0], got[3])
	}
	width, err := f.GetColWidth(sheets[0], "A")
	if err != nil || width != 25 {
		t.Errorf("column A width = %v, %v", width, err)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, testRows(3), testColumns, Options{}); err != nil {
		t.Fatal(err)
	}
	var out []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %s: %v", buf.String(), err)
	}
	if len(out) != 3 || out[1]["Total"] != "10.50" || out[0]["Paid"] != "Yes" {
		t.Errorf("out = %v", out)
	}

	buf.Reset()
	if err := Write(&buf, FormatJSON, nil, testColumns, Options{}); err != nil || buf.String() != "[]" {
		t.Errorf("empty = %q, %v", buf.String(), err)
	}
}
