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

// Package engine is the concurrent scheduler described in spec §4.6: a
// forward fetch phase that fans independent subtrees out across a bounded
// worker pool, followed by a single-threaded reverse-topological fold phase
// that joins every child's table into its parent.
package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neosun100/querygraph/internal/execlog"
	"github.com/neosun100/querygraph/internal/graph"
	"github.com/neosun100/querygraph/internal/join"
	"github.com/neosun100/querygraph/internal/postop"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
	"github.com/neosun100/querygraph/internal/telemetry"
)

// Options configures a single Execute call.
type Options struct {
	// Workers bounds fetch-phase concurrency. <= 0 defaults to the number
	// of CPU cores.
	Workers int
	// Timeout, if > 0, bounds each node's individual fetch.
	Timeout time.Duration
	// Log receives node-scoped progress and error events. Defaults to
	// execlog.Nop{}.
	Log execlog.Sink
	// Tracer provides the spans wrapping each node's fetch and fold.
	// Defaults to telemetry.Tracer().
	Tracer trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Log == nil {
		o.Log = execlog.Nop{}
	}
	if o.Tracer == nil {
		o.Tracer = telemetry.Tracer()
	}
	return o
}

// Execute fetches every node in root's subtree (root first, sequentially;
// independent siblings fanned out across opts.Workers) and then folds
// descendants into their parents in reverse topological order, returning
// root's table as the final artifact.
func Execute(ctx context.Context, root *graph.Node, params map[string]any, opts Options) (*table.Table, error) {
	opts = opts.withDefaults()

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	recordErr := func(err error) {
		if err == nil {
			return
		}
		if qerr.KindOf(err) == qerr.KindCancelled {
			return
		}
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	var scheduleChildren func(n *graph.Node)
	scheduleChildren = func(n *graph.Node) {
		parentTable := n.ResultTable()
		for _, child := range n.Children() {
			wg.Add(1)
			go func(child *graph.Node) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
				case <-execCtx.Done():
					opts.Log.NodeError(child.Name, "cancelled before fetch started")
					return
				}
				defer func() { <-sem }()

				if execCtx.Err() != nil {
					opts.Log.NodeError(child.Name, "cancelled before fetch started")
					return
				}

				if parentTable.IsEmpty() {
					child.SetResultTable(table.Empty())
					opts.Log.NodeInfo(child.Name, "parent table empty; fetch skipped")
					scheduleChildren(child)
					return
				}

				if err := fetchNode(execCtx, child, params, opts); err != nil {
					child.MarkFailed()
					recordErr(qerr.WithNode(err, child.Name))
					return
				}
				scheduleChildren(child)
			}(child)
		}
	}

	if err := fetchNode(execCtx, root, params, opts); err != nil {
		root.MarkFailed()
		return nil, qerr.WithNode(err, root.Name)
	}
	scheduleChildren(root)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return fold(root, opts)
}

// fetchNode renders n's template, executes it, normalizes and post-processes
// the result, and publishes it via n.SetResultTable.
func fetchNode(ctx context.Context, n *graph.Node, params map[string]any, opts Options) error {
	n.MarkFetching()

	fetchCtx := ctx
	var cancelTimeout context.CancelFunc
	if opts.Timeout > 0 {
		fetchCtx, cancelTimeout = context.WithTimeout(ctx, opts.Timeout)
		defer cancelTimeout()
	}

	fetchCtx, span := opts.Tracer.Start(fetchCtx, "fetch:"+n.Name)
	defer span.End()
	span.SetAttributes(
		attribute.String("node.name", n.Name),
		attribute.String("node.backend", n.Backend.Name()),
	)

	var parentTable *table.Table
	if p := n.Parent(); p != nil {
		parentTable = p.ResultTable()
	}

	query, err := n.Template.Render(parentTable, params, n.Backend.Converter())
	if err != nil {
		span.RecordError(err)
		opts.Log.NodeError(n.Name, err.Error())
		return err
	}

	opts.Log.NodeInfo(n.Name, "executing query")
	tbl, err := n.Backend.Execute(fetchCtx, query, n.Fields)
	if err != nil {
		err = classifyFetchErr(ctx, fetchCtx, err)
		span.RecordError(err)
		opts.Log.NodeError(n.Name, err.Error())
		return err
	}

	if !tbl.IsEmpty() && len(n.PostOps) > 0 {
		tbl, err = postop.Run(tbl, n.PostOps)
		if err != nil {
			span.RecordError(err)
			opts.Log.NodeError(n.Name, err.Error())
			return err
		}
	}

	n.SetResultTable(tbl)
	opts.Log.NodeTableHeader(n.Name, tbl.ColumnNames(), tbl.SampleRows(5))
	return nil
}

// classifyFetchErr distinguishes a node's own timeout (a real execution
// error) from an abort triggered by a sibling's failure tripping the shared
// cancellation token (suppressed in favor of the primary error).
func classifyFetchErr(execCtx, fetchCtx context.Context, err error) error {
	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		return qerr.Wrap(qerr.KindExecution, "fetch timed out", err)
	}
	if execCtx.Err() != nil {
		return qerr.Wrap(qerr.KindCancelled, "fetch aborted", err)
	}
	return err
}

// fold visits nodes in reverse topological order, joining every non-root
// node into its parent.
func fold(root *graph.Node, opts Options) (*table.Table, error) {
	for _, n := range root.FoldOrder() {
		parent := n.Parent()
		if parent == nil {
			continue
		}
		// A parent whose own fetch was skipped (empty upstream result, §9)
		// never had this child fetched either: nothing to join, and the
		// parent's empty table already is the correct folded result.
		if parent.ResultTable().IsEmpty() {
			n.MarkFolded()
			continue
		}
		_, span := opts.Tracer.Start(context.Background(), "fold:"+n.Name)
		joined, err := join.Apply(parent.ResultTable(), n.ResultTable(), n.JoinContext(), n.Name)
		span.End()
		if err != nil {
			return nil, qerr.WithNode(err, n.Name)
		}
		parent.SetResultTable(joined)
		n.MarkFolded()
	}
	return root.ResultTable(), nil
}
