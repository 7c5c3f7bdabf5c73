// Package source reads the raw spreadsheet exports the warehouse ETL consumes.
//
// Exports from different vintages disagree on column naming and casing, and
// some files may be missing entirely. This package only promises to deliver
// whatever is there as a RecordSet; reconciling column names is the
// transform layer's job.
package source

import "strings"

// RecordSet is an ordered collection of named string fields, the in-memory
// form of one spreadsheet export. Cells hold raw source text; the empty
// string means the cell was empty in the export.
type RecordSet struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the set has no data rows.
func (rs *RecordSet) Empty() bool { return rs == nil || len(rs.Rows) == 0 }

// NumRows returns the data row count.
func (rs *RecordSet) NumRows() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// ColumnIndex returns the position of an exactly-named column, or -1.
func (rs *RecordSet) ColumnIndex(name string) int {
	if rs == nil {
		return -1
	}
	for i, c := range rs.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of an exactly-named column, or nil when absent.
// Rows shorter than the header pad out as empty strings.
func (rs *RecordSet) Column(name string) []string {
	i := rs.ColumnIndex(name)
	if i < 0 {
		return nil
	}
	out := make([]string, len(rs.Rows))
	for r, row := range rs.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out
}

// TrimColumnNames strips surrounding whitespace from every column name in
// place. Exports produced by hand-edited spreadsheets routinely carry
// trailing spaces in headers.
func (rs *RecordSet) TrimColumnNames() {
	if rs == nil {
		return
	}
	for i, c := range rs.Columns {
		rs.Columns[i] = strings.TrimSpace(c)
	}
}
