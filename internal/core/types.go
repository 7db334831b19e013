package core

import "strconv"

// Column names of the in-memory table, in table order.
const (
	ColumnOne   = "column1"
	ColumnTwo   = "column2"
	ColumnValue = "value"
)

// All is the FilterSpec sentinel for "no constraint on this column".
const All = "all"

// Columns lists the table columns in table order.
var Columns = []string{ColumnOne, ColumnTwo, ColumnValue}

// Record is one row of the dados table.
// ID is assigned by the store and carries no meaning for callers.
type Record struct {
	ID      int64
	Column1 string
	Column2 string
	Value   float64
}

// Field returns the textual value of the named column.
// The value column is rendered with FormatValue so it compares exactly
// against filter constraints.
func (r Record) Field(column string) (string, bool) {
	switch column {
	case ColumnOne:
		return r.Column1, true
	case ColumnTwo:
		return r.Column2, true
	case ColumnValue:
		return FormatValue(r.Value), true
	default:
		return "", false
	}
}

// Cells returns the record's values in column order with their native types.
func (r Record) Cells() []any {
	return []any{r.Column1, r.Column2, r.Value}
}

// Table is an ordered snapshot of the store contents.
// It is a copy: filtering or rendering never writes back to the store.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable returns a table with the standard columns holding rows.
func NewTable(rows []Record) Table {
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	if rows == nil {
		rows = []Record{}
	}
	return Table{Columns: cols, Rows: rows}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// FilterSpec maps a column name to the single value accepted for it.
// A missing key or the value All means no constraint. Constraints AND together.
type FilterSpec map[string]string

// Active reports whether at least one column is constrained.
func (s FilterSpec) Active() bool {
	for _, v := range s {
		if v != All {
			return true
		}
	}
	return false
}

// ExportArtifact is a rendered export: the complete payload plus its
// download metadata. It is built once per request and never persisted.
type ExportArtifact struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Size returns the payload length in bytes.
func (a ExportArtifact) Size() int {
	return len(a.Data)
}

// FormatValue renders a numeric value in its shortest exact decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
