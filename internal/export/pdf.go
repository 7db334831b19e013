package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/JonMunkholm/dados/internal/core"
)

// Page geometry for PDF exports, in millimetres unless noted.
const (
	pdfOrientation = "P"
	pdfUnit        = "mm"
	pdfSize        = "A4"
	pdfMargin      = 10.0
	pdfFont        = "Helvetica"
	pdfFontSizePt  = 12.0
)

// gridLayout is the result of the layout pass: how rows are distributed over
// pages. Row indexes refer to table records; the header is drawn above the
// first page's records.
type gridLayout struct {
	ColWidth    float64
	RowHeight   float64
	RowsPerPage int
	Pages       []pageSpan
}

// pageSpan is the half-open record range [Start, End) drawn on one page.
type pageSpan struct {
	Start, End int
}

// planGrid decides page breaks before anything is drawn. Every page holds
// RowsPerPage grid rows; the header takes one slot on the first page. A
// table with no records still yields one page carrying the header.
func planGrid(records, columns int, printableW, printableH, rowHeight float64) (gridLayout, error) {
	if columns <= 0 {
		return gridLayout{}, fmt.Errorf("table has no columns")
	}
	perPage := int(printableH / rowHeight)
	if perPage < 2 {
		return gridLayout{}, fmt.Errorf("page height %.1f fits fewer than two rows of %.1f", printableH, rowHeight)
	}

	layout := gridLayout{
		ColWidth:    printableW / float64(columns),
		RowHeight:   rowHeight,
		RowsPerPage: perPage,
	}

	first := min(records, perPage-1)
	layout.Pages = append(layout.Pages, pageSpan{Start: 0, End: first})
	for start := first; start < records; start += perPage {
		layout.Pages = append(layout.Pages, pageSpan{Start: start, End: min(start+perPage, records)})
	}
	return layout, nil
}

// RenderPDF writes t as a bordered grid on A4 portrait pages: the header
// row on the first page, then one row per record. Text is drawn in
// Helvetica, which only covers Windows-1252; other characters are an error.
// Long text is neither wrapped nor truncated and may overflow its cell.
func RenderPDF(t core.Table) ([]byte, error) {
	pdf, err := buildPDF(t)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, pdfErr(err)
	}
	return buf.Bytes(), nil
}

func buildPDF(t core.Table) (*fpdf.Fpdf, error) {
	header, err := encodeRow(t.Columns)
	if err != nil {
		return nil, pdfErr(fmt.Errorf("header: %w", err))
	}
	rows := make([][]string, len(t.Rows))
	for i, rec := range t.Rows {
		cells := rec.Cells()
		text := make([]string, len(cells))
		for j, c := range cells {
			text[j] = cellText(c)
		}
		if rows[i], err = encodeRow(text); err != nil {
			return nil, pdfErr(fmt.Errorf("row %d: %w", i+1, err))
		}
	}

	pdf := fpdf.New(pdfOrientation, pdfUnit, pdfSize, "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetFont(pdfFont, "", pdfFontSizePt)

	pageW, pageH := pdf.GetPageSize()
	_, fontSize := pdf.GetFontSize()
	layout, err := planGrid(len(rows), len(header),
		pageW-2*pdfMargin, pageH-2*pdfMargin, 2*fontSize)
	if err != nil {
		return nil, pdfErr(err)
	}

	for p, span := range layout.Pages {
		pdf.AddPage()
		if p == 0 {
			drawRow(pdf, header, layout)
		}
		for _, row := range rows[span.Start:span.End] {
			drawRow(pdf, row, layout)
		}
	}
	if err := pdf.Error(); err != nil {
		return nil, pdfErr(err)
	}
	return pdf, nil
}

func drawRow(pdf *fpdf.Fpdf, cells []string, layout gridLayout) {
	for _, c := range cells {
		pdf.CellFormat(layout.ColWidth, layout.RowHeight, c, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(layout.RowHeight)
}

// encodeRow converts UTF-8 cell text to the Windows-1252 bytes the core
// fonts expect.
func encodeRow(cells []string) ([]string, error) {
	enc := charmap.Windows1252.NewEncoder()
	out := make([]string, len(cells))
	for i, c := range cells {
		s, err := enc.String(c)
		if err != nil {
			return nil, fmt.Errorf("cell %q cannot be encoded: %w", c, err)
		}
		out[i] = s
	}
	return out, nil
}

func pdfErr(err error) error {
	return &core.RenderError{Format: string(FormatPDF), Err: err}
}
