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

// Package cmd is the querygraph CLI: a thin, optional consumer of
// internal/engine that wires a small demo graph against live backends and
// prints the folded result. Blank-importing the six backend packages here,
// rather than from internal/engine, keeps the core package free of any
// particular driver.
package cmd

import (
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	_ "github.com/neosun100/querygraph/internal/backend/cassandra"
	_ "github.com/neosun100/querygraph/internal/backend/clickhouse"
	_ "github.com/neosun100/querygraph/internal/backend/mongodb"
	_ "github.com/neosun100/querygraph/internal/backend/mysql"
	_ "github.com/neosun100/querygraph/internal/backend/neo4j"
	_ "github.com/neosun100/querygraph/internal/backend/postgres"
)

// versionString indicates the version of this library.
//
//go:embed version.txt
var versionString string

func init() {
	versionString = strings.TrimSpace(versionString)
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command represents an invocation of the CLI.
type Command struct {
	*cobra.Command

	outStream io.Writer
	errStream io.Writer
}

// Option configures a Command returned by NewCommand.
type Option func(*Command)

// WithStreams overrides the default stdout/stderr, primarily for tests.
func WithStreams(out, err io.Writer) Option {
	return func(c *Command) {
		c.outStream = out
		c.errStream = err
	}
}

// NewCommand returns a Command object representing an invocation of the CLI.
func NewCommand(opts ...Option) *Command {
	baseCmd := &cobra.Command{
		Use:           "querygraph",
		Version:       versionString,
		SilenceErrors: true,
	}
	cmd := &Command{
		Command:   baseCmd,
		outStream: os.Stdout,
		errStream: os.Stderr,
	}
	for _, o := range opts {
		o(cmd)
	}
	baseCmd.SetOut(cmd.outStream)
	baseCmd.SetErr(cmd.errStream)

	cmd.AddCommand(newRunCmd(cmd))
	return cmd
}
