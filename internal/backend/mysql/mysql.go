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

// Package mysql is the relational backend adapter over database/sql with the
// teacher's MySQL driver, go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/neosun100/querygraph/internal/backend"
	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

const Kind = "mysql"

func init() {
	if !backend.Register(Kind, New) {
		panic(fmt.Sprintf("backend kind %q already registered", Kind))
	}
}

// Adapter executes fully-rendered SQL statements over database/sql's
// connection pool, using the MySQL wire protocol.
type Adapter struct {
	db *sql.DB
}

var _ backend.Adapter = (*Adapter)(nil)

// New opens a pool against dsn, a go-sql-driver/mysql DSN
// ("user:pass@tcp(host:port)/dbname").
func New(dsn string) (backend.Adapter, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, qerr.Wrap(qerr.KindConnection, "unable to open mysql connection", err)
	}
	if err := db.Ping(); err != nil {
		return nil, qerr.Wrap(qerr.KindConnection, "unable to reach mysql", err)
	}
	return &Adapter{db: db}, nil
}

func (a *Adapter) Name() string                { return Kind }
func (a *Adapter) FieldsAccepted() bool         { return false }
func (a *Adapter) Converter() convert.Converter { return convert.Default{} }

func (a *Adapter) Execute(ctx context.Context, query string, fields []string) (*table.Table, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "mysql query failed", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "unable to read mysql column names", err)
	}

	var records []map[string]any
	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, qerr.Wrap(qerr.KindExecution, "unable to decode mysql row", err)
		}
		row := make(map[string]any, len(names))
		for i, n := range names {
			row[n] = raw[i]
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "mysql row iteration failed", err)
	}

	return table.FromRows(names, records)
}
