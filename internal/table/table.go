// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package table is the in-memory tabular result every backend adapter
// produces and every join folds. Columns are ordered and named; all cell
// sequences in a table share one length.
package table

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neosun100/querygraph/internal/qerr"
)

// Column is one named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []any
}

// Table is an ordered list of equal-length columns.
type Table struct {
	columns []Column
	index   map[string]int
}

var invalidNameChar = regexp.MustCompile(`[^A-Za-z0-9_]`)
var leadingDigit = regexp.MustCompile(`^[0-9]`)

// NormalizeName replaces any character outside [A-Za-z0-9_] with '_' and
// prefixes the result with '_' if it would otherwise start with a digit.
func NormalizeName(name string) string {
	n := invalidNameChar.ReplaceAllString(name, "_")
	if leadingDigit.MatchString(n) {
		n = "_" + n
	}
	return n
}

// New builds a Table from columns, normalizing column names and validating
// that every column has the same number of cells.
func New(columns []Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	rows := -1
	for i, c := range columns {
		name := NormalizeName(c.Name)
		if rows == -1 {
			rows = len(c.Cells)
		} else if len(c.Cells) != rows {
			return nil, qerr.Newf(qerr.KindExecution, "column %q has %d cells, want %d", name, len(c.Cells), rows)
		}
		if _, exists := t.index[name]; exists {
			return nil, qerr.Newf(qerr.KindExecution, "duplicate column %q after normalization", name)
		}
		t.columns[i] = Column{Name: name, Cells: c.Cells}
		t.index[name] = i
	}
	return t, nil
}

// Empty returns a zero-column, zero-row table.
func Empty() *Table {
	t, _ := New(nil)
	return t
}

// FromRows builds a Table from an ordered field list and a sequence of rows
// keyed by (unnormalized) field name, the shape most document/NoSQL adapters
// naturally produce.
func FromRows(fields []string, rows []map[string]any) (*Table, error) {
	columns := make([]Column, len(fields))
	for i, f := range fields {
		cells := make([]any, len(rows))
		for r, row := range rows {
			cells[r] = row[f]
		}
		columns[i] = Column{Name: f, Cells: cells}
	}
	return New(columns)
}

// Columns returns the table's columns in order.
func (t *Table) Columns() []Column {
	if t == nil {
		return nil
	}
	return t.columns
}

// ColumnNames returns the normalized column names in order.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column and whether it exists. name is normalized
// before lookup, matching how it was stored.
func (t *Table) Column(name string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	idx, ok := t.index[NormalizeName(name)]
	if !ok {
		return Column{}, false
	}
	return t.columns[idx], true
}

// NumRows returns the number of rows (cells per column); 0 for a table with
// no columns.
func (t *Table) NumRows() int {
	if t == nil || len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Cells)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// IsEmpty reports whether the table has zero rows.
func (t *Table) IsEmpty() bool {
	return t.NumRows() == 0
}

// Row returns row i as a name->value map.
func (t *Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.columns))
	for _, c := range t.columns {
		row[c.Name] = c.Cells[i]
	}
	return row
}

// Rows returns every row as a name->value map, in order.
func (t *Table) Rows() []map[string]any {
	rows := make([]map[string]any, t.NumRows())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// SampleRows returns up to n rows rendered as [][]any aligned to
// ColumnNames(), for use by execution-log sinks.
func (t *Table) SampleRows(n int) [][]any {
	rows := t.NumRows()
	if n < rows {
		rows = n
	}
	out := make([][]any, rows)
	for i := 0; i < rows; i++ {
		row := make([]any, len(t.columns))
		for c, col := range t.columns {
			row[c] = col.Cells[i]
		}
		out[i] = row
	}
	return out
}

// String renders the table as a simple aligned text grid, useful for CLI
// output and debugging.
func (t *Table) String() string {
	var b strings.Builder
	names := t.ColumnNames()
	b.WriteString(strings.Join(names, "\t"))
	b.WriteByte('\n')
	for i := 0; i < t.NumRows(); i++ {
		vals := make([]string, len(t.columns))
		for c, col := range t.columns {
			vals[c] = fmt.Sprintf("%v", col.Cells[i])
		}
		b.WriteString(strings.Join(vals, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}
