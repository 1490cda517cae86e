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

// Package graph is the node/edge model: construction, cycle prevention, and
// topological traversal. A node's parent is a non-owning back-reference —
// the tree owns nodes transitively via the root's child list; children only
// borrow their parent for the duration of render and fold (spec §9).
package graph

import (
	"sync"

	"github.com/neosun100/querygraph/internal/backend"
	"github.com/neosun100/querygraph/internal/join"
	"github.com/neosun100/querygraph/internal/postop"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
	"github.com/neosun100/querygraph/internal/template"
)

// State is a node's position in the per-node fetch/fold state machine.
type State int

const (
	Pending State = iota
	Fetching
	Fetched
	FoldedIntoParent
	Failed
)

// Node is one query in the graph.
type Node struct {
	Name     string
	Backend  backend.Adapter
	Fields   []string
	PostOps  []postop.Op
	Template *template.Template

	mu       sync.Mutex
	parent   *Node
	children []*Node
	joinCtx  join.Context // meaningful only once parent != nil

	state       State
	resultTable *table.Table
}

// New constructs a node from a raw template string, parsing it once.
func New(name, templateStr string, b backend.Adapter, fields ...string) (*Node, error) {
	tmpl, err := template.Parse(templateStr)
	if err != nil {
		return nil, qerr.WithNode(err, name)
	}
	return &Node{
		Name:     name,
		Backend:  b,
		Fields:   fields,
		Template: tmpl,
		state:    Pending,
	}, nil
}

// Parent returns the node's current parent, or nil for a root.
func (n *Node) Parent() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

// Children returns a snapshot of the node's children in order.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// JoinContext returns the context this node (as a child) joins into its
// parent with.
func (n *Node) JoinContext() join.Context {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.joinCtx
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// ResultTable returns the node's fetched table, or nil before it has one.
func (n *Node) ResultTable() *table.Table {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resultTable
}

// SetResultTable publishes a node's fetched table. Exported so the engine
// (a separate package) can write the one shared mutable slot the
// concurrency model allows (spec §5).
func (n *Node) SetResultTable(t *table.Table) {
	n.mu.Lock()
	n.resultTable = t
	n.state = Fetched
	n.mu.Unlock()
}

// MarkFailed transitions the node to Failed.
func (n *Node) MarkFailed() {
	n.setState(Failed)
}

// MarkFetching transitions the node to Fetching.
func (n *Node) MarkFetching() {
	n.setState(Fetching)
}

// MarkFolded transitions the node to FoldedIntoParent.
func (n *Node) MarkFolded() {
	n.setState(FoldedIntoParent)
}

// CreatesCycle reports whether attaching candidateChild as a child of n
// would create a cycle, i.e. whether n is already reachable from
// candidateChild.
func (n *Node) CreatesCycle(candidateChild *Node) bool {
	return candidateChild.canReach(n)
}

func (n *Node) canReach(target *Node) bool {
	if n == target {
		return true
	}
	for _, c := range n.Children() {
		if c.canReach(target) {
			return true
		}
	}
	return false
}

// AddChild wires child under n with the given join context. It rejects a
// cycle, a child that already has a parent, and an empty join context.
// Both sides of the edge are updated atomically.
func (n *Node) AddChild(child *Node, jc join.Context) error {
	if err := jc.Validate(); err != nil {
		return qerr.WithNode(err, child.Name)
	}
	if n.CreatesCycle(child) {
		return qerr.Newf(qerr.KindCycle, "attaching %q under %q would create a cycle", child.Name, n.Name)
	}

	child.mu.Lock()
	if child.parent != nil {
		existingParent := child.parent.Name
		child.mu.Unlock()
		return qerr.Newf(qerr.KindCycle, "node %q already has a parent %q; a node has at most one parent", child.Name, existingParent)
	}
	child.parent = n
	child.joinCtx = jc
	child.mu.Unlock()

	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()
	return nil
}

// Detach removes child from n's children and clears its parent pointer,
// updating both sides atomically.
func (n *Node) Detach(child *Node) {
	n.mu.Lock()
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	child.mu.Lock()
	child.parent = nil
	child.joinCtx = join.Context{}
	child.mu.Unlock()
}

// Iterate yields n then every descendant in pre-order (parent before any
// child) — a valid topological order.
func (n *Node) Iterate() []*Node {
	out := []*Node{n}
	for _, c := range n.Children() {
		out = append(out, c.Iterate()...)
	}
	return out
}

// FoldOrder returns Iterate() reversed — a valid fold order (every child
// before its parent).
func (n *Node) FoldOrder() []*Node {
	seq := n.Iterate()
	out := make([]*Node, len(seq))
	for i, v := range seq {
		out[len(seq)-1-i] = v
	}
	return out
}
