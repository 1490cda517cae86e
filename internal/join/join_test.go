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

package join

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

func TestApplyInnerJoin(t *testing.T) {
	parent, err := table.New([]table.Column{
		{Name: "id", Cells: []any{1, 2}},
		{Name: "x", Cells: []any{10, 20}},
	})
	if err != nil {
		t.Fatalf("table.New(parent): %v", err)
	}
	child, err := table.New([]table.Column{
		{Name: "id", Cells: []any{1, 2}},
		{Name: "y", Cells: []any{100, 200}},
	})
	if err != nil {
		t.Fatalf("table.New(child): %v", err)
	}

	out, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "id", ParentColumn: "id"}}, Kind: Inner}, "child")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "x", "y"}, out.ColumnNames()); diff != "" {
		t.Errorf("ColumnNames mismatch (-want +got):\n%s", diff)
	}
	idCol, _ := out.Column("id")
	xCol, _ := out.Column("x")
	yCol, _ := out.Column("y")
	if diff := cmp.Diff([]any{1, 2}, idCol.Cells); diff != "" {
		t.Errorf("id mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{10, 20}, xCol.Cells); diff != "" {
		t.Errorf("x mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{100, 200}, yCol.Cells); diff != "" {
		t.Errorf("y mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyLeftJoinFillsNullForUnmatched(t *testing.T) {
	parent, _ := table.New([]table.Column{
		{Name: "id", Cells: []any{1, 2}},
	})
	child, _ := table.New([]table.Column{
		{Name: "pid", Cells: []any{1}},
		{Name: "y", Cells: []any{100}},
	})
	out, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "pid", ParentColumn: "id"}}, Kind: Left}, "child")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", out.NumRows())
	}
	yCol, _ := out.Column("y")
	if yCol.Cells[0] != 100 || yCol.Cells[1] != nil {
		t.Errorf("y cells = %v, want [100, nil]", yCol.Cells)
	}
}

func TestApplyOuterJoinKeepsChildKeyForUnmatchedChildRow(t *testing.T) {
	parent, _ := table.New([]table.Column{
		{Name: "id", Cells: []any{1}},
		{Name: "x", Cells: []any{10}},
	})
	child, _ := table.New([]table.Column{
		{Name: "id", Cells: []any{1, 2}},
		{Name: "y", Cells: []any{100, 200}},
	})
	out, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "id", ParentColumn: "id"}}, Kind: Outer}, "child")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", out.NumRows())
	}
	idCol, _ := out.Column("id")
	xCol, _ := out.Column("x")
	yCol, _ := out.Column("y")

	// Row for child id=2 has no parent match: x must be nil, but the merged
	// "id" column must still carry the child's own key value, not nil.
	found := false
	for i, v := range idCol.Cells {
		if v == 2 {
			found = true
			if xCol.Cells[i] != nil {
				t.Errorf("expected x=nil for the unmatched child row, got %v", xCol.Cells[i])
			}
			if yCol.Cells[i] != 200 {
				t.Errorf("expected y=200 for the unmatched child row, got %v", yCol.Cells[i])
			}
		}
	}
	if !found {
		t.Fatalf("expected the merged id column to carry the unmatched child row's key (2), got %v", idCol.Cells)
	}
}

func TestApplyRightJoinKeepsChildKeyForUnmatchedChildRow(t *testing.T) {
	parent, _ := table.New([]table.Column{
		{Name: "id", Cells: []any{1}},
		{Name: "x", Cells: []any{10}},
	})
	child, _ := table.New([]table.Column{
		{Name: "id", Cells: []any{1, 3}},
		{Name: "y", Cells: []any{100, 300}},
	})
	out, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "id", ParentColumn: "id"}}, Kind: Right}, "child")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", out.NumRows())
	}
	idCol, _ := out.Column("id")
	var sawUnmatchedKey bool
	for _, v := range idCol.Cells {
		if v == 3 {
			sawUnmatchedKey = true
		}
	}
	if !sawUnmatchedKey {
		t.Fatalf("expected the merged id column to carry the unmatched child row's key (3), got %v", idCol.Cells)
	}
}

func TestApplyCollidingColumnNameIsSuffixed(t *testing.T) {
	parent, _ := table.New([]table.Column{
		{Name: "id", Cells: []any{1}},
		{Name: "name", Cells: []any{"parent-name"}},
	})
	child, _ := table.New([]table.Column{
		{Name: "parent_id", Cells: []any{1}},
		{Name: "name", Cells: []any{"child-name"}},
	})
	out, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "parent_id", ParentColumn: "id"}}, Kind: Inner}, "kids")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	nameCol, ok := out.Column("name")
	if !ok || nameCol.Cells[0] != "parent-name" {
		t.Errorf("expected parent's \"name\" column preserved, got %v", nameCol.Cells)
	}
	suffixed, ok := out.Column("name_kids")
	if !ok || suffixed.Cells[0] != "child-name" {
		t.Errorf("expected child's \"name\" column suffixed as name_kids, got ok=%v cells=%v", ok, suffixed.Cells)
	}
}

func TestApplyMissingKeyColumnIsJoinError(t *testing.T) {
	parent, _ := table.New([]table.Column{{Name: "id", Cells: []any{1}}})
	child, _ := table.New([]table.Column{{Name: "y", Cells: []any{1}}})
	_, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "id", ParentColumn: "id"}}, Kind: Inner}, "child")
	if qerr.KindOf(err) != qerr.KindJoin {
		t.Fatalf("expected a join error for a missing child key column, got %v", err)
	}
}

func TestApplyIncompatibleKeyTypesIsJoinError(t *testing.T) {
	parent, _ := table.New([]table.Column{{Name: "id", Cells: []any{1}}})
	child, _ := table.New([]table.Column{{Name: "id", Cells: []any{"not-a-number"}}})
	_, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "id", ParentColumn: "id"}}, Kind: Inner}, "child")
	if qerr.KindOf(err) != qerr.KindJoin {
		t.Fatalf("expected a join error for incompatible key types, got %v", err)
	}
}

func TestApplyIntFloatKeyCoercion(t *testing.T) {
	parent, _ := table.New([]table.Column{{Name: "id", Cells: []any{1}}})
	child, _ := table.New([]table.Column{
		{Name: "id", Cells: []any{1.0}},
		{Name: "y", Cells: []any{"matched"}},
	})
	out, err := Apply(parent, child, Context{Pairs: []Pair{{ChildColumn: "id", ParentColumn: "id"}}, Kind: Inner}, "child")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("expected int 1 to match float 1.0, got %d rows", out.NumRows())
	}
}

func TestValidateRejectsEmptyPairs(t *testing.T) {
	if err := (Context{Kind: Inner}).Validate(); qerr.KindOf(err) != qerr.KindJoin {
		t.Fatalf("expected a join error for an empty pair list, got %v", err)
	}
}
