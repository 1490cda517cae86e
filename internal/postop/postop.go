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

// Package postop holds the per-node optional result post-processing hook
// (spec §4.8). A post-op's grammar is deliberately not part of this
// package: it is an opaque table->table transformation, only ever invoked
// by the engine when the fetched table is non-empty.
package postop

import (
	"fmt"

	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

// Op is one opaque table transformation.
type Op func(*table.Table) (*table.Table, error)

// Run applies ops in order, wrapping any failure as an execution error per
// spec §4.8.
func Run(t *table.Table, ops []Op) (*table.Table, error) {
	cur := t
	for i, op := range ops {
		next, err := op(cur)
		if err != nil {
			return nil, qerr.Wrap(qerr.KindExecution, fmt.Sprintf("post-op #%d", i), err)
		}
		cur = next
	}
	return cur, nil
}

// DropColumns returns an Op removing the named columns, a minimal built-in
// useful for demos and tests; the engine treats it the same as any other
// opaque Op.
func DropColumns(names ...string) Op {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[table.NormalizeName(n)] = true
	}
	return func(t *table.Table) (*table.Table, error) {
		kept := make([]table.Column, 0, t.NumCols())
		for _, c := range t.Columns() {
			if !drop[c.Name] {
				kept = append(kept, c)
			}
		}
		return table.New(kept)
	}
}

// RenameColumn returns an Op renaming a single column.
func RenameColumn(from, to string) Op {
	return func(t *table.Table) (*table.Table, error) {
		cols := t.Columns()
		out := make([]table.Column, len(cols))
		copy(out, cols)
		found := false
		normFrom := table.NormalizeName(from)
		for i, c := range out {
			if c.Name == normFrom {
				out[i] = table.Column{Name: to, Cells: c.Cells}
				found = true
			}
		}
		if !found {
			return nil, qerr.Newf(qerr.KindExecution, "rename: no column %q", from)
		}
		return table.New(out)
	}
}
