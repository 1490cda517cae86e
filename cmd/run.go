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

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neosun100/querygraph/internal/backend"
	"github.com/neosun100/querygraph/internal/engine"
	"github.com/neosun100/querygraph/internal/execlog/zaplog"
	"github.com/neosun100/querygraph/internal/graph"
	"github.com/neosun100/querygraph/internal/join"
	"go.uber.org/zap"
)

// nodeFlags holds the flags describing one node of the demo graph.
type nodeFlags struct {
	kind     string
	dsn      string
	template string
	fields   []string
}

func newRunCmd(root *Command) *cobra.Command {
	var (
		rootFlags  nodeFlags
		childFlags nodeFlags
		childJoin  string // "childColumn=parentColumn[,childColumn=parentColumn...]"
		joinKind   string
		workers    int
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a small demo query graph (a root node and an optional child) against live backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemoGraph(root, rootFlags, childFlags, childJoin, joinKind, workers, timeout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&rootFlags.kind, "root-kind", "", "Backend kind for the root node (postgres, mysql, mongodb, cassandra, clickhouse, neo4j)")
	flags.StringVar(&rootFlags.dsn, "root-dsn", "", "Connection string for the root node's backend")
	flags.StringVar(&rootFlags.template, "root-template", "", "Query template for the root node")
	flags.StringSliceVar(&rootFlags.fields, "root-fields", nil, "Projected field names for the root node (required for document backends)")

	flags.StringVar(&childFlags.kind, "child-kind", "", "Backend kind for the child node (omit to run a single-node graph)")
	flags.StringVar(&childFlags.dsn, "child-dsn", "", "Connection string for the child node's backend")
	flags.StringVar(&childFlags.template, "child-template", "", "Query template for the child node")
	flags.StringSliceVar(&childFlags.fields, "child-fields", nil, "Projected field names for the child node")
	flags.StringVar(&childJoin, "child-join", "", `Join column pairs, e.g. "id=customer_id"`)
	flags.StringVar(&joinKind, "join-kind", "inner", "Join kind: inner, left, right, or outer")

	flags.IntVar(&workers, "workers", 0, "Fetch-phase worker pool size (0 = number of CPUs)")
	flags.DurationVar(&timeout, "timeout", 0, "Per-node fetch timeout (0 = no timeout)")

	return cmd
}

func runDemoGraph(root *Command, rootFlags, childFlags nodeFlags, childJoin, joinKind string, workers int, timeout time.Duration) error {
	if rootFlags.kind == "" || rootFlags.dsn == "" || rootFlags.template == "" {
		return fmt.Errorf("--root-kind, --root-dsn, and --root-template are required")
	}

	rootAdapter, err := backend.New(rootFlags.kind, rootFlags.dsn)
	if err != nil {
		return err
	}
	rootNode, err := graph.New("root", rootFlags.template, rootAdapter, rootFlags.fields...)
	if err != nil {
		return err
	}

	if childFlags.kind != "" {
		childAdapter, err := backend.New(childFlags.kind, childFlags.dsn)
		if err != nil {
			return err
		}
		childNode, err := graph.New("child", childFlags.template, childAdapter, childFlags.fields...)
		if err != nil {
			return err
		}
		jctx, err := parseJoin(childJoin, joinKind)
		if err != nil {
			return err
		}
		if err := rootNode.AddChild(childNode, jctx); err != nil {
			return err
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("unable to initialize logger: %w", err)
	}
	defer logger.Sync()

	result, err := engine.Execute(root.Context(), rootNode, nil, engine.Options{
		Workers: workers,
		Timeout: timeout,
		Log:     zaplog.New(logger),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(root.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result.Rows())
}

// parseJoin turns "childCol=parentCol[,childCol=parentCol...]" plus a kind
// name into a join.Context.
func parseJoin(spec, kindName string) (join.Context, error) {
	if spec == "" {
		return join.Context{}, fmt.Errorf("--child-join is required when --child-kind is set")
	}
	var kind join.Kind
	switch strings.ToLower(kindName) {
	case "inner":
		kind = join.Inner
	case "left":
		kind = join.Left
	case "right":
		kind = join.Right
	case "outer":
		kind = join.Outer
	default:
		return join.Context{}, fmt.Errorf("unknown join kind %q", kindName)
	}

	var pairs []join.Pair
	for _, pair := range strings.Split(spec, ",") {
		childCol, parentCol, ok := strings.Cut(pair, "=")
		if !ok {
			return join.Context{}, fmt.Errorf("malformed join pair %q, want childCol=parentCol", pair)
		}
		pairs = append(pairs, join.Pair{ChildColumn: childCol, ParentColumn: parentCol})
	}
	return join.Context{Pairs: pairs, Kind: kind}, nil
}
