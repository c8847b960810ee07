// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Page geometry in millimetres (A4 landscape).
const (
	pdfMarginLeft   = 10.0
	pdfMarginTop    = 12.0
	pdfMarginRight  = 10.0
	pdfFooterHeight = 15.0
	pdfRowHeight    = 6.0
	pdfHeaderHeight = 7.0
	pdfCellPadding  = 1.0

	// ruleEvery draws a light separator under every Nth data row.
	ruleEvery = 5
)

type pdfStats struct {
	Pages       int
	HeaderDraws int
	Rows        int
}

type pdfRenderer struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	columns []Column
	widths  []float64
	// breakY is the cursor position past which the next row starts a new page.
	breakY float64
	stats  pdfStats
}

func writePDF(w io.Writer, rows []map[string]interface{}, columns []Column, opts Options) (pdfStats, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMarginLeft, pdfMarginTop, pdfMarginRight)
	// Page breaks are driven by the renderer so the header can be redrawn.
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("storefront", true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}

	pageW, pageH := pdf.GetPageSize()
	r := &pdfRenderer{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		columns: columns,
		widths:  columnWidths(columns, pageW-pdfMarginLeft-pdfMarginRight),
		breakY:  pageH - pdfFooterHeight - pdfRowHeight,
	}

	generated := opts.generatedAt().Format("2006-01-02 15:04:05 MST")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfFooterHeight + 3)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, r.tr(fmt.Sprintf("Generated %s · Page %d", generated, pdf.PageNo())),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	if opts.Title != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 9, r.tr(opts.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d records", len(rows)), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	r.drawHeader()

	for i, row := range rows {
		if pdf.GetY() > r.breakY {
			pdf.AddPage()
			r.drawHeader()
		}
		r.drawRow(row)
		if (i+1)%ruleEvery == 0 {
			r.drawRule()
		}
		if pdf.Err() {
			return r.stats, fmt.Errorf("failed to render pdf: %w", pdf.Error())
		}
	}

	r.stats.Pages = pdf.PageNo()
	if err := pdf.Output(w); err != nil {
		return r.stats, fmt.Errorf("failed to write pdf: %w", err)
	}
	return r.stats, nil
}

func (r *pdfRenderer) drawHeader() {
	p := r.pdf
	p.SetFont("Helvetica", "B", 8)
	p.SetFillColor(230, 230, 230)
	p.SetTextColor(0, 0, 0)
	p.SetDrawColor(160, 160, 160)
	for i, col := range r.columns {
		p.CellFormat(r.widths[i], pdfHeaderHeight, r.fit(col.Header, r.widths[i]), "1", 0, "C", true, 0, "")
	}
	p.Ln(-1)
	r.stats.HeaderDraws++
}

func (r *pdfRenderer) drawRow(row map[string]interface{}) {
	p := r.pdf
	p.SetFont("Helvetica", "", 8)
	p.SetTextColor(30, 30, 30)
	for i, col := range r.columns {
		align := string(col.Align)
		if align == "" {
			align = string(AlignLeft)
		}
		p.CellFormat(r.widths[i], pdfRowHeight, r.fit(col.Text(row), r.widths[i]), "", 0, align, false, 0, "")
	}
	p.Ln(-1)
	r.stats.Rows++
}

func (r *pdfRenderer) drawRule() {
	p := r.pdf
	left, _, right, _ := p.GetMargins()
	pageW, _ := p.GetPageSize()
	y := p.GetY()
	p.SetDrawColor(215, 215, 215)
	p.SetLineWidth(0.1)
	p.Line(left, y, pageW-right, y)
}

// fit clips text so it fits the column, appending an ellipsis when cut.
func (r *pdfRenderer) fit(text string, width float64) string {
	avail := width - 2*pdfCellPadding
	s := r.tr(text)
	if r.pdf.GetStringWidth(s) <= avail {
		return s
	}
	runes := []rune(text)
	ell := r.tr("…")
	for n := len(runes) - 1; n > 0; n-- {
		candidate := r.tr(string(runes[:n])) + ell
		if r.pdf.GetStringWidth(candidate) <= avail {
			return candidate
		}
	}
	return ell
}

// columnWidths honors configured widths, shares the remaining space between
// unsized columns and scales everything down if the total overflows.
func columnWidths(columns []Column, usable float64) []float64 {
	widths := make([]float64, len(columns))
	fixed, unsized := 0.0, 0
	for i, c := range columns {
		if c.Width > 0 {
			widths[i] = c.Width
			fixed += c.Width
		} else {
			unsized++
		}
	}
	if unsized > 0 {
		share := (usable - fixed) / float64(unsized)
		if share < 15 {
			share = 15
		}
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > usable {
		scale := usable / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}
