package export

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/dados/internal/core"
)

// SheetName is the name of the only worksheet in an XLSX export.
const SheetName = "Dados"

// RenderXLSX writes t as a workbook with one sheet: a header row of column
// names followed by one row per record. Value cells are numeric.
func RenderXLSX(t core.Table) ([]byte, error) {
	if err := checkXLSX(t); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, xlsxErr(err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, xlsxErr(err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, xlsxErr(err)
	}

	for i, rec := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, xlsxErr(err)
		}
		if err := sw.SetRow(cell, rec.Cells()); err != nil {
			return nil, xlsxErr(err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, xlsxErr(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, xlsxErr(err)
	}
	return buf.Bytes(), nil
}

// checkXLSX rejects content the format cannot carry: characters outside
// the XML 1.0 character range, cells over the per-cell length limit, and
// non-finite numbers.
func checkXLSX(t core.Table) error {
	if len(t.Rows)+1 > excelize.TotalRows {
		return xlsxErr(fmt.Errorf("%d rows exceed the sheet limit of %d", len(t.Rows), excelize.TotalRows-1))
	}
	for _, c := range t.Columns {
		if err := checkXLSXText(c); err != nil {
			return xlsxErr(fmt.Errorf("header %q: %w", c, err))
		}
	}
	for i, rec := range t.Rows {
		for _, s := range []string{rec.Column1, rec.Column2} {
			if err := checkXLSXText(s); err != nil {
				return xlsxErr(fmt.Errorf("row %d: %w", i+1, err))
			}
		}
		if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) {
			return xlsxErr(fmt.Errorf("row %d: value %v is not a finite number", i+1, rec.Value))
		}
	}
	return nil
}

func checkXLSXText(s string) error {
	if n := utf8.RuneCountInString(s); n > excelize.TotalCellChars {
		return fmt.Errorf("cell has %d characters, limit is %d", n, excelize.TotalCellChars)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("character %U cannot be stored in a spreadsheet", r)
		}
	}
	return nil
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func xlsxErr(err error) error {
	return &core.RenderError{Format: string(FormatXLSX), Err: err}
}
