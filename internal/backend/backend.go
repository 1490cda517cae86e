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

// Package backend defines the adapter contract the engine consumes from
// drivers (spec §4.1) and a registry individual backend packages register
// themselves into, mirroring the teacher's tools.Register/sources.Register
// pattern. The registry replaces the source project's probe-at-load-time
// sentinel substitution (spec §9): an unregistered kind fails loudly with a
// configuration error instead of resolving to a latent stand-in.
package backend

import (
	"context"
	"fmt"

	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

// Adapter is the interface the engine consumes from a backend driver.
type Adapter interface {
	// Name is the adapter's stable identifier, e.g. "postgres".
	Name() string
	// FieldsAccepted is true for backends that need an explicit projection
	// list to build a table out of non-relational documents.
	FieldsAccepted() bool
	// Converter is this backend's value converter.
	Converter() convert.Converter
	// Execute runs the rendered query and returns the resulting table.
	// Errors must be classified: qerr.KindConnection when the backend is
	// unreachable, qerr.KindExecution when it rejects the query or returns
	// malformed data.
	Execute(ctx context.Context, query string, fields []string) (*table.Table, error)
}

// Factory builds an Adapter from a connection string. Each backend package
// registers one from an init().
type Factory func(dsn string) (Adapter, error)

var registry = make(map[string]Factory)

// Register associates a backend kind with a factory. It returns false if
// the kind was already registered, mirroring tools.Register.
func Register(kind string, factory Factory) bool {
	if _, exists := registry[kind]; exists {
		return false
	}
	registry[kind] = factory
	return true
}

// New looks up kind's factory and constructs an Adapter from dsn. An
// unregistered kind is a configuration error, not a silently-substituted
// sentinel.
func New(kind, dsn string) (Adapter, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, qerr.Newf(qerr.KindConfiguration, "no backend registered for kind %q", kind)
	}
	a, err := factory(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize backend %q: %w", kind, err)
	}
	return a, nil
}

// Registered reports whether kind has a registered factory, without
// constructing an adapter.
func Registered(kind string) bool {
	_, ok := registry[kind]
	return ok
}
