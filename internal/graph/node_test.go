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

package graph

import (
	"context"
	"testing"

	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/join"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

type stubAdapter struct{ name string }

func (s stubAdapter) Name() string                  { return s.name }
func (s stubAdapter) FieldsAccepted() bool           { return false }
func (s stubAdapter) Converter() convert.Converter   { return convert.Default{} }
func (s stubAdapter) Execute(ctx context.Context, q string, fields []string) (*table.Table, error) {
	return table.Empty(), nil
}

func mustNode(t *testing.T, name string) *Node {
	t.Helper()
	n, err := New(name, "SELECT 1", stubAdapter{name: "stub"})
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	return n
}

func simpleJoinCtx() join.Context {
	return join.Context{Pairs: []join.Pair{{ChildColumn: "id", ParentColumn: "id"}}, Kind: join.Inner}
}

func TestAddChildRejectsCycle(t *testing.T) {
	a := mustNode(t, "A")
	b := mustNode(t, "B")
	c := mustNode(t, "C")

	if err := a.AddChild(b, simpleJoinCtx()); err != nil {
		t.Fatalf("a.AddChild(b): %v", err)
	}
	if err := b.AddChild(c, simpleJoinCtx()); err != nil {
		t.Fatalf("b.AddChild(c): %v", err)
	}

	err := c.AddChild(a, simpleJoinCtx())
	if qerr.KindOf(err) != qerr.KindCycle {
		t.Fatalf("expected a cycle error, got %v", err)
	}

	// topology must be unchanged: a must still have exactly one child, b.
	if got := a.Children(); len(got) != 1 || got[0] != b {
		t.Fatalf("a's children changed after a rejected AddChild: %v", got)
	}
	if a.Parent() != nil {
		t.Fatalf("a gained a parent after a rejected AddChild")
	}
}

func TestAddChildRejectsDuplicateParent(t *testing.T) {
	a := mustNode(t, "A")
	b := mustNode(t, "B")
	c := mustNode(t, "C")

	if err := a.AddChild(c, simpleJoinCtx()); err != nil {
		t.Fatalf("a.AddChild(c): %v", err)
	}
	err := b.AddChild(c, simpleJoinCtx())
	if err == nil {
		t.Fatal("expected an error attaching a node that already has a parent")
	}
}

func TestAddChildRejectsEmptyJoinContext(t *testing.T) {
	a := mustNode(t, "A")
	b := mustNode(t, "B")
	err := a.AddChild(b, join.Context{})
	if qerr.KindOf(err) != qerr.KindJoin {
		t.Fatalf("expected a join error for an empty join context, got %v", err)
	}
}

func TestIterateIsPreOrderParentFirst(t *testing.T) {
	a := mustNode(t, "A")
	b := mustNode(t, "B")
	c := mustNode(t, "C")
	if err := a.AddChild(b, simpleJoinCtx()); err != nil {
		t.Fatal(err)
	}
	if err := a.AddChild(c, simpleJoinCtx()); err != nil {
		t.Fatal(err)
	}

	seq := a.Iterate()
	if len(seq) != 3 || seq[0] != a {
		t.Fatalf("Iterate() = %v, want a first", names(seq))
	}

	fold := a.FoldOrder()
	want := reverse(seq)
	if len(fold) != len(want) {
		t.Fatalf("FoldOrder() = %v, want %v", names(fold), names(want))
	}
	for i := range fold {
		if fold[i] != want[i] {
			t.Fatalf("FoldOrder() = %v, want %v", names(fold), names(want))
		}
	}
	if fold[len(fold)-1] != a {
		t.Fatalf("FoldOrder() should end with the root, got %v", names(fold))
	}
}

func TestDetachClearsBothSides(t *testing.T) {
	a := mustNode(t, "A")
	b := mustNode(t, "B")
	if err := a.AddChild(b, simpleJoinCtx()); err != nil {
		t.Fatal(err)
	}
	a.Detach(b)
	if len(a.Children()) != 0 {
		t.Error("expected a to have no children after Detach")
	}
	if b.Parent() != nil {
		t.Error("expected b to have no parent after Detach")
	}
}

func names(ns []*Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Name
	}
	return out
}

func reverse(ns []*Node) []*Node {
	out := make([]*Node, len(ns))
	for i, n := range ns {
		out[len(ns)-1-i] = n
	}
	return out
}
