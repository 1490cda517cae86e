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

// Package join merges a child node's table into its parent's table on the
// column correspondences declared by that child's join context.
package join

import (
	"fmt"
	"strings"
	"time"

	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

// Kind is the join semantics applied between a child and its parent.
type Kind string

const (
	Inner Kind = "inner"
	Left  Kind = "left"
	Right Kind = "right"
	Outer Kind = "outer"
)

// Pair is one (child_column, parent_column) correspondence.
type Pair struct {
	ChildColumn  string
	ParentColumn string
}

// Context is a child's declarative record of how it joins into its parent.
type Context struct {
	Pairs []Pair
	Kind  Kind
}

// Validate rejects an empty pair list, which spec §3 calls invalid for any
// non-root child.
func (c Context) Validate() error {
	if len(c.Pairs) == 0 {
		return qerr.New(qerr.KindJoin, "join context has no column pairs")
	}
	switch c.Kind {
	case Inner, Left, Right, Outer:
	default:
		return qerr.Newf(qerr.KindJoin, "unknown join kind %q", c.Kind)
	}
	return nil
}

// Apply performs the join described by ctx between parent and child,
// folding child into parent. childName is used to disambiguate colliding
// non-key column names (they are suffixed "_<childName>").
func Apply(parent, child *table.Table, ctx Context, childName string) (*table.Table, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}

	parentCols := make([]string, len(ctx.Pairs))
	childCols := make([]string, len(ctx.Pairs))
	for i, p := range ctx.Pairs {
		pc, ok := parent.Column(p.ParentColumn)
		if !ok {
			return nil, qerr.Newf(qerr.KindJoin, "parent table has no column %q", p.ParentColumn)
		}
		cc, ok := child.Column(p.ChildColumn)
		if !ok {
			return nil, qerr.Newf(qerr.KindJoin, "child table %q has no column %q", childName, p.ChildColumn)
		}
		if err := checkCompatible(pc.Cells, cc.Cells); err != nil {
			return nil, qerr.Wrap(qerr.KindJoin, fmt.Sprintf("key columns %q/%q", p.ParentColumn, p.ChildColumn), err)
		}
		parentCols[i] = table.NormalizeName(p.ParentColumn)
		childCols[i] = table.NormalizeName(p.ChildColumn)
	}

	// Index child rows by key tuple for an O(n+m) join.
	childIndex := make(map[string][]int, child.NumRows())
	for r := 0; r < child.NumRows(); r++ {
		key, ok := rowKey(child, childCols, r)
		if !ok {
			continue
		}
		childIndex[key] = append(childIndex[key], r)
	}
	matchedChild := make([]bool, child.NumRows())

	type matchedRow struct {
		parentRow int // -1 if absent (right/outer unmatched child row)
		childRow  int // -1 if absent (left/outer unmatched parent row)
	}
	var matches []matchedRow

	for r := 0; r < parent.NumRows(); r++ {
		key, ok := rowKey(parent, parentCols, r)
		var childRows []int
		if ok {
			childRows = childIndex[key]
		}
		if len(childRows) == 0 {
			if ctx.Kind == Left || ctx.Kind == Outer {
				matches = append(matches, matchedRow{parentRow: r, childRow: -1})
			}
			continue
		}
		for _, cr := range childRows {
			matches = append(matches, matchedRow{parentRow: r, childRow: cr})
			matchedChild[cr] = true
		}
	}
	if ctx.Kind == Right || ctx.Kind == Outer {
		for cr := 0; cr < child.NumRows(); cr++ {
			if !matchedChild[cr] {
				matches = append(matches, matchedRow{parentRow: -1, childRow: cr})
			}
		}
	}

	childKeySet := make(map[string]bool, len(childCols))
	for _, c := range childCols {
		childKeySet[c] = true
	}
	parentColSet := make(map[string]bool, parent.NumCols())
	for _, c := range parent.Columns() {
		parentColSet[c.Name] = true
	}

	outNames := make([]string, 0, parent.NumCols()+child.NumCols())
	outNames = append(outNames, parent.ColumnNames()...)
	occupied := make(map[string]bool, len(outNames))
	for _, n := range outNames {
		occupied[n] = true
	}
	// sharedKeyChildIdx maps a parent column name to the child column index
	// carrying the same key, for key columns dropped from the child's output
	// because the parent already has a column of that name. An unmatched
	// right/outer child row has no parent row to take that value from, so
	// the parent column must fall back to the child's cell instead of nil.
	sharedKeyChildIdx := make(map[string]int, len(childCols))
	childColumns := child.Columns()
	childOutNames := make([]string, child.NumCols())
	for i, c := range childColumns {
		if childKeySet[c.Name] && parentColSet[c.Name] {
			childOutNames[i] = "" // dropped: represented by the parent's copy
			sharedKeyChildIdx[c.Name] = i
			continue
		}
		name := c.Name
		if occupied[name] {
			name = name + "_" + childName
		}
		childOutNames[i] = name
		occupied[name] = true
		outNames = append(outNames, name)
	}

	columns := make([]table.Column, 0, len(outNames))
	for _, pc := range parent.Columns() {
		childIdx, dropped := sharedKeyChildIdx[pc.Name]
		cells := make([]any, len(matches))
		for i, m := range matches {
			if m.parentRow != -1 {
				cells[i] = pc.Cells[m.parentRow]
				continue
			}
			if dropped && m.childRow != -1 {
				cells[i] = childColumns[childIdx].Cells[m.childRow]
				continue
			}
			cells[i] = nil
		}
		columns = append(columns, table.Column{Name: pc.Name, Cells: cells})
	}
	for ci, cc := range child.Columns() {
		if childOutNames[ci] == "" {
			continue
		}
		cells := make([]any, len(matches))
		for i, m := range matches {
			if m.childRow == -1 {
				cells[i] = nil
				continue
			}
			cells[i] = cc.Cells[m.childRow]
		}
		columns = append(columns, table.Column{Name: childOutNames[ci], Cells: cells})
	}

	return table.New(columns)
}

// rowKey builds a canonical join-key string for row r across cols; ok is
// false if any key cell is nil (a null key never matches anything).
func rowKey(t *table.Table, cols []string, r int) (string, bool) {
	parts := make([]string, len(cols))
	for i, name := range cols {
		col, _ := t.Column(name)
		v := col.Cells[r]
		if v == nil {
			return "", false
		}
		parts[i] = canon(v)
	}
	return strings.Join(parts, "\x1f"), true
}

// canon renders v into a string such that numerically-equal ints and floats
// produce identical keys, and otherwise-typed values never collide with
// them.
func canon(v any) string {
	if f, ok := asFloat(v); ok {
		return "n:" + formatFloat(f)
	}
	switch t := v.(type) {
	case string:
		return "s:" + t
	case bool:
		return fmt.Sprintf("b:%t", t)
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("?:%v", t)
	}
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// checkCompatible rejects joining key columns whose non-nil value
// categories (numeric, string, bool, time) disagree in a way no coercion
// resolves. int<->float is tolerated since canon() normalizes both to the
// same numeric key.
func checkCompatible(a, b []any) error {
	ca, aok := firstCategory(a)
	cb, bok := firstCategory(b)
	if !aok || !bok {
		return nil // all-null column, nothing to check
	}
	if ca != cb {
		return fmt.Errorf("incompatible key types: %s vs %s", ca, cb)
	}
	return nil
}

func firstCategory(cells []any) (string, bool) {
	for _, v := range cells {
		if v == nil {
			continue
		}
		if _, ok := asFloat(v); ok {
			return "numeric", true
		}
		switch v.(type) {
		case string:
			return "string", true
		case bool:
			return "bool", true
		case time.Time:
			return "time", true
		}
		return fmt.Sprintf("%T", v), true
	}
	return "", false
}
