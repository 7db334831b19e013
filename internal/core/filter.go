package core

import "fmt"

// ValidateFilter rejects specs that name a column the table does not have.
// Without it a typo would silently produce an empty view.
func ValidateFilter(spec FilterSpec) error {
	for col := range spec {
		if !isColumn(col) {
			return &ParseError{Reason: fmt.Sprintf("filter column %q", col), Err: ErrUnknownColumn}
		}
	}
	return nil
}

// Apply returns the rows of t that satisfy every constraint in spec.
//
// Matching is exact: no trimming, case folding or partial matches. A value
// that never occurs yields an empty view, not an error. The input table is
// never modified; the result always has its own row slice.
func Apply(t Table, spec FilterSpec) Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)

	rows := make([]Record, 0, len(t.Rows))
	for _, rec := range t.Rows {
		if matches(rec, spec) {
			rows = append(rows, rec)
		}
	}
	return Table{Columns: cols, Rows: rows}
}

func matches(rec Record, spec FilterSpec) bool {
	for col, want := range spec {
		if want == All {
			continue
		}
		got, ok := rec.Field(col)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Distinct returns the distinct values of column in first-seen order.
// These are the options offered for a column filter.
func Distinct(t Table, column string) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for _, rec := range t.Rows {
		v, ok := rec.Field(column)
		if !ok {
			return values
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

func isColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}
