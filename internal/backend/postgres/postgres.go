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

// Package postgres is the relational backend adapter over pgx, the same
// driver the teacher's internal/sources/postgres source wraps in a
// *pgxpool.Pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neosun100/querygraph/internal/backend"
	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

const Kind = "postgres"

func init() {
	if !backend.Register(Kind, New) {
		panic(fmt.Sprintf("backend kind %q already registered", Kind))
	}
}

// Adapter executes fully-rendered SQL statements over a pgx connection pool.
// Unlike the teacher's tool, a query graph node never binds positional
// parameters: the template package has already substituted every value into
// the statement text, so Execute takes no argument slice.
type Adapter struct {
	pool *pgxpool.Pool
}

var _ backend.Adapter = (*Adapter)(nil)

// New opens a pool against dsn, a standard "postgres://" connection string.
func New(dsn string) (backend.Adapter, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, qerr.Wrap(qerr.KindConnection, "unable to create postgres pool", err)
	}
	return &Adapter{pool: pool}, nil
}

func (a *Adapter) Name() string                { return Kind }
func (a *Adapter) FieldsAccepted() bool         { return false }
func (a *Adapter) Converter() convert.Converter { return convert.Default{} }

func (a *Adapter) Execute(ctx context.Context, query string, fields []string) (*table.Table, error) {
	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "postgres query failed", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}

	var records []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, qerr.Wrap(qerr.KindExecution, "unable to decode postgres row", err)
		}
		row := make(map[string]any, len(names))
		for i, n := range names {
			row[n] = values[i]
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "postgres row iteration failed", err)
	}

	return table.FromRows(names, records)
}
