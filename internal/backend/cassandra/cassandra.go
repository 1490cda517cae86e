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

// Package cassandra is the column-family backend adapter over
// github.com/apache/cassandra-gocql-driver/v2, the teacher's CQL driver.
package cassandra

import (
	"context"
	"fmt"
	"strings"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/neosun100/querygraph/internal/backend"
	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

const Kind = "cassandra"

func init() {
	if !backend.Register(Kind, New) {
		panic(fmt.Sprintf("backend kind %q already registered", Kind))
	}
}

// Adapter executes fully-rendered CQL statements over a gocql session.
type Adapter struct {
	session *gocql.Session
}

var _ backend.Adapter = (*Adapter)(nil)

// New connects a gocql session against dsn, formatted as
// "host1,host2/keyspace".
func New(dsn string) (backend.Adapter, error) {
	hostsPart, keyspace, _ := strings.Cut(dsn, "/")
	if keyspace == "" {
		return nil, qerr.Newf(qerr.KindConfiguration, "cassandra dsn %q must be \"hosts/keyspace\"", dsn)
	}
	cluster := gocql.NewCluster(strings.Split(hostsPart, ",")...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, qerr.Wrap(qerr.KindConnection, "unable to create cassandra session", err)
	}
	return &Adapter{session: session}, nil
}

func (a *Adapter) Name() string                { return Kind }
func (a *Adapter) FieldsAccepted() bool         { return false }
func (a *Adapter) Converter() convert.Converter { return Converter{} }

func (a *Adapter) Execute(ctx context.Context, query string, fields []string) (*table.Table, error) {
	iter := a.session.Query(query).WithContext(ctx).Iter()

	columnInfo := iter.Columns()
	names := make([]string, len(columnInfo))
	for i, c := range columnInfo {
		names[i] = c.Name
	}

	var records []map[string]any
	row := make(map[string]any)
	for iter.MapScan(row) {
		copied := make(map[string]any, len(row))
		for k, v := range row {
			copied[k] = v
		}
		records = append(records, copied)
		clear(row)
	}
	if err := iter.Close(); err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "cassandra query failed", err)
	}

	return table.FromRows(names, records)
}

// Converter renders template values as CQL literals: bracketed lists instead
// of the relational default's parenthesized tuples, otherwise identical to
// convert.Default.
type Converter struct {
	convert.Default
}

func (Converter) Name() string { return Kind }

func (c Converter) List(t convert.Type, vs []any) (string, error) {
	return convert.RenderList(c.Default, t, vs, "[", "]")
}
