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

package backend

import (
	"context"
	"testing"

	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

type stubAdapter struct{}

func (stubAdapter) Name() string                { return "stub" }
func (stubAdapter) FieldsAccepted() bool         { return false }
func (stubAdapter) Converter() convert.Converter { return convert.Default{} }
func (stubAdapter) Execute(context.Context, string, []string) (*table.Table, error) {
	return table.Empty(), nil
}

func TestRegisterRejectsDuplicateKind(t *testing.T) {
	const kind = "test-stub-kind"
	factory := func(string) (Adapter, error) { return stubAdapter{}, nil }

	if !Register(kind, factory) {
		t.Fatal("first Register() should succeed")
	}
	if Register(kind, factory) {
		t.Fatal("second Register() for the same kind should fail")
	}
}

func TestNewUnregisteredKindIsConfigurationError(t *testing.T) {
	_, err := New("no-such-backend-kind", "dsn")
	if qerr.KindOf(err) != qerr.KindConfiguration {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestNewDelegatesToRegisteredFactory(t *testing.T) {
	const kind = "test-stub-kind-2"
	if !Register(kind, func(dsn string) (Adapter, error) { return stubAdapter{}, nil }) {
		t.Fatal("Register() should succeed for a fresh kind")
	}
	a, err := New(kind, "dsn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Name() != "stub" {
		t.Errorf("Name() = %q, want stub", a.Name())
	}
	if !Registered(kind) {
		t.Error("Registered() should report true after Register")
	}
}
