package export

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/dados/internal/core"
)

func scenarioTable() core.Table {
	return core.NewTable([]core.Record{
		{ID: 1, Column1: "a", Column2: "x", Value: 1},
		{ID: 2, Column1: "b", Column2: "y", Value: 2},
		{ID: 3, Column1: "a", Column2: "y", Value: 3},
	})
}

func tableOf(n int) core.Table {
	rows := make([]core.Record, n)
	for i := range rows {
		rows[i] = core.Record{ID: int64(i + 1), Column1: "c1", Column2: "c2", Value: float64(i)}
	}
	return core.NewTable(rows)
}

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestRenderXLSX_RoundTrip(t *testing.T) {
	data, err := RenderXLSX(scenarioTable())
	require.NoError(t, err)

	rows := readSheet(t, data)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"column1", "column2", "value"}, rows[0])
	assert.Equal(t, []string{"a", "x", "1"}, rows[1])
	assert.Equal(t, []string{"a", "y", "3"}, rows[3])
}

func TestRenderXLSX_ValueCellsAreNumeric(t *testing.T) {
	data, err := RenderXLSX(core.NewTable([]core.Record{{Column1: "a", Column2: "x", Value: 2.5}}))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	numeric := []excelize.CellType{excelize.CellTypeUnset, excelize.CellTypeNumber}

	typ, err := f.GetCellType(SheetName, "C2")
	require.NoError(t, err)
	assert.Contains(t, numeric, typ)

	typ, err = f.GetCellType(SheetName, "A2")
	require.NoError(t, err)
	assert.NotContains(t, numeric, typ)
}

func TestRenderXLSX_EmptyTable(t *testing.T) {
	data, err := RenderXLSX(core.NewTable(nil))
	require.NoError(t, err)

	rows := readSheet(t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, core.Columns, rows[0])
}

func TestRenderXLSX_Unencodable(t *testing.T) {
	tests := []struct {
		name string
		rec  core.Record
	}{
		{"control character", core.Record{Column1: "bell\x07", Column2: "x"}},
		{"oversized cell", core.Record{Column1: strings.Repeat("a", excelize.TotalCellChars+1), Column2: "x"}},
		{"not a number", core.Record{Column1: "a", Column2: "x", Value: math.NaN()}},
		{"infinity", core.Record{Column1: "a", Column2: "x", Value: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderXLSX(core.NewTable([]core.Record{tt.rec}))
			var renderErr *core.RenderError
			require.ErrorAs(t, err, &renderErr)
			assert.Equal(t, "xlsx", renderErr.Format)
		})
	}
}

func TestRenderXLSX_AcceptsUnicode(t *testing.T) {
	data, err := RenderXLSX(core.NewTable([]core.Record{{Column1: "São Paulo", Column2: "日本", Value: 1}}))
	require.NoError(t, err)

	rows := readSheet(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, "São Paulo", rows[1][0])
	assert.Equal(t, "日本", rows[1][1])
}

func TestPlanGrid(t *testing.T) {
	tests := []struct {
		name      string
		records   int
		wantPages []pageSpan
	}{
		{"empty table", 0, []pageSpan{{0, 0}}},
		{"one record", 1, []pageSpan{{0, 1}}},
		{"fills first page", 9, []pageSpan{{0, 9}}},
		{"spills one row", 10, []pageSpan{{0, 9}, {9, 10}}},
		{"several pages", 35, []pageSpan{{0, 9}, {9, 19}, {19, 29}, {29, 35}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := planGrid(tt.records, 3, 180, 100, 10)
			require.NoError(t, err)
			assert.Equal(t, 10, layout.RowsPerPage)
			assert.InDelta(t, 60.0, layout.ColWidth, 1e-9)
			assert.Equal(t, tt.wantPages, layout.Pages)
		})
	}
}

func TestPlanGrid_CoversEveryRow(t *testing.T) {
	for n := 0; n <= 200; n++ {
		layout, err := planGrid(n, 3, 190, 277, 8.4667)
		require.NoError(t, err)

		next := 0
		for i, span := range layout.Pages {
			require.Equal(t, next, span.Start, "n=%d page %d starts at the wrong row", n, i)
			capacity := layout.RowsPerPage
			if i == 0 {
				capacity--
			}
			require.LessOrEqual(t, span.End-span.Start, capacity, "n=%d page %d overflows", n, i)
			next = span.End
		}
		require.Equal(t, n, next, "n=%d rows not all placed", n)
	}
}

func TestPlanGrid_Errors(t *testing.T) {
	_, err := planGrid(1, 0, 190, 277, 8)
	assert.Error(t, err)

	_, err = planGrid(1, 3, 190, 10, 8)
	assert.Error(t, err)
}

func TestRenderPDF(t *testing.T) {
	tests := []struct {
		name      string
		table     core.Table
		wantPages int
	}{
		{"empty table", core.NewTable(nil), 1},
		{"scenario", scenarioTable(), 1},
		{"first page full", tableOf(31), 1},
		{"second page", tableOf(32), 2},
		{"many pages", tableOf(100), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf, err := buildPDF(tt.table)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, pdf.PageCount())

			data, err := RenderPDF(tt.table)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "missing PDF signature")
		})
	}
}

// drawnPDF renders t uncompressed so the content stream can be inspected.
func drawnPDF(t *testing.T, table core.Table) string {
	t.Helper()
	pdf, err := buildPDF(table)
	require.NoError(t, err)
	pdf.SetCompression(false)

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.String()
}

func TestRenderPDF_DrawsBorderedGrid(t *testing.T) {
	tests := []struct {
		name  string
		table core.Table
	}{
		{"filtered scenario", core.Apply(scenarioTable(), core.FilterSpec{core.ColumnOne: "a"})},
		{"scenario", scenarioTable()},
		{"first page full", tableOf(31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := drawnPDF(t, tt.table)

			cells := (tt.table.Len() + 1) * len(tt.table.Columns)
			assert.Equal(t, cells, strings.Count(out, " re S"), "bordered cell count")

			for _, col := range tt.table.Columns {
				assert.Contains(t, out, "("+col+")Tj")
			}
			for i, rec := range tt.table.Rows {
				for _, c := range rec.Cells() {
					assert.Contains(t, out, "("+cellText(c)+")Tj", "row %d", i+1)
				}
			}
		})
	}
}

func TestRenderPDF_FilteredScenarioCells(t *testing.T) {
	out := drawnPDF(t, core.Apply(scenarioTable(), core.FilterSpec{core.ColumnOne: "a"}))

	assert.Equal(t, 9, strings.Count(out, " re S"))
	for _, text := range []string{"column1", "column2", "value", "a", "x", "y", "1", "3"} {
		assert.Contains(t, out, "("+text+")Tj")
	}
	assert.NotContains(t, out, "(b)Tj")
}

func TestRenderPDF_Latin1Text(t *testing.T) {
	_, err := RenderPDF(core.NewTable([]core.Record{{Column1: "Ação", Column2: "€uro", Value: 1}}))
	require.NoError(t, err)
}

func TestRenderPDF_Unencodable(t *testing.T) {
	_, err := RenderPDF(core.NewTable([]core.Record{{Column1: "日本", Column2: "x", Value: 1}}))

	var renderErr *core.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "pdf", renderErr.Format)
}

func TestRender(t *testing.T) {
	art, err := Render("xlsx", scenarioTable())
	require.NoError(t, err)
	assert.Equal(t, "dados.xlsx", art.Filename)
	assert.Equal(t, xlsxMIME, art.MIMEType)
	assert.NotEmpty(t, art.Data)

	art, err = Render("PDF", scenarioTable())
	require.NoError(t, err)
	assert.Equal(t, "dados.pdf", art.Filename)
	assert.Equal(t, "application/pdf", art.MIMEType)

	_, err = Render("docx", scenarioTable())
	assert.True(t, errors.Is(err, core.ErrUnknownFormat), "got %v", err)
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"xlsx", " XLSX ", "pdf"} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseFormat("csv")
	var renderErr *core.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "csv", renderErr.Format)
}
