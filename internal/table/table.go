package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Row is one record: column name to text value, "" meaning missing.
// Everything is text; legacy exports and reference extracts carry no types.
type Row map[string]string

// Table is an ordered set of columns plus rows read from or destined for CSV.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Read loads a CSV file into a Table. A missing or unreadable file is an
// error carrying the path; required inputs are fatal to the caller.
func Read(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", path)
	}

	t := &Table{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Write saves the table as CSV, creating the parent directory if needed.
func (t *Table) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	for _, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			rec[i] = row[col]
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// EnsureColumns appends any columns the table is missing, empty-valued.
// Output tables must carry every catalog column even when nothing computed
// a value for it.
func (t *Table) EnsureColumns(names ...string) {
	for _, name := range names {
		if !t.HasColumn(name) {
			t.Columns = append(t.Columns, name)
		}
	}
}

// Select reorders the table to exactly the given columns, in order.
// Columns the table never carried come out empty.
func (t *Table) Select(columns []string) {
	t.Columns = append([]string(nil), columns...)
}

// Filter keeps only the rows the predicate accepts, preserving order.
func (t *Table) Filter(keep func(Row) bool) {
	filtered := t.Rows[:0]
	for _, row := range t.Rows {
		if keep(row) {
			filtered = append(filtered, row)
		}
	}
	t.Rows = filtered
}

// Apply rewrites one column through fn on every row. Tables without the
// column are left untouched, so loaders can run cleaners unconditionally.
func (t *Table) Apply(column string, fn func(string) string) {
	if !t.HasColumn(column) {
		return
	}
	for _, row := range t.Rows {
		row[column] = fn(row[column])
	}
}

// Clone returns a deep copy; transformations produce new tables rather than
// mutating inputs shared between pipeline stages.
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		clone := make(Row, len(row))
		for k, v := range row {
			clone[k] = v
		}
		out.Rows[i] = clone
	}
	return out
}

// Legacy export timestamp layouts, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTime parses a legacy timestamp. ok is false for empty or
// unparseable values; callers treat those as missing, never as errors.
func ParseTime(val string) (time.Time, bool) {
	if val == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, val); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
