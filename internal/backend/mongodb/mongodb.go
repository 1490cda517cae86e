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

// Package mongodb is the document-store backend adapter over
// go.mongodb.org/mongo-driver/v2, the teacher's MongoDB driver. Because a
// document has no fixed column set, a mongodb node's Fields list is
// mandatory (backend.Adapter.FieldsAccepted reports true) and doubles as the
// tabular projection: one column per requested field, missing keys yielding
// nil cells.
package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/neosun100/querygraph/internal/backend"
	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

const Kind = "mongodb"

func init() {
	if !backend.Register(Kind, New) {
		panic(fmt.Sprintf("backend kind %q already registered", Kind))
	}
}

// Adapter runs a Find against one database, selecting the target collection
// out of each node's rendered query text.
type Adapter struct {
	client   *mongo.Client
	database string
}

var _ backend.Adapter = (*Adapter)(nil)

// New connects to uri (a standard "mongodb://" connection string whose path
// component names the default database).
func New(uri string) (backend.Adapter, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, qerr.Wrap(qerr.KindConnection, "unable to create mongodb client", err)
	}
	if err := client.Ping(context.Background(), nil); err != nil {
		return nil, qerr.Wrap(qerr.KindConnection, "unable to reach mongodb", err)
	}
	db, err := databaseFromURI(uri)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, database: db}, nil
}

// databaseFromURI extracts the default database from a "mongodb://" URI's
// path component, the same place the driver's own connection-string parser
// reads it from.
func databaseFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", qerr.Wrap(qerr.KindConfiguration, "invalid mongodb uri", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", qerr.Newf(qerr.KindConfiguration, "mongodb uri %q has no default database path", uri)
	}
	return db, nil
}

func (a *Adapter) Name() string                { return Kind }
func (a *Adapter) FieldsAccepted() bool         { return true }
func (a *Adapter) Converter() convert.Converter { return Converter{} }

// Execute interprets query as "<collection> <extended-JSON filter>" — the
// collection name, a single space, then a MongoDB extended-JSON document
// produced by rendering the node's template with Converter.
func (a *Adapter) Execute(ctx context.Context, query string, fields []string) (*table.Table, error) {
	collection, filterJSON, err := splitQuery(query)
	if err != nil {
		return nil, err
	}

	var filter bson.M
	if err := bson.UnmarshalExtJSON([]byte(filterJSON), true, &filter); err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "malformed mongodb filter", err)
	}

	cur, err := a.client.Database(a.database).Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "mongodb find failed", err)
	}
	defer cur.Close(ctx)

	var records []map[string]any
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, qerr.Wrap(qerr.KindExecution, "unable to decode mongodb document", err)
		}
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			row[f] = doc[f]
		}
		records = append(records, row)
	}
	if err := cur.Err(); err != nil {
		return nil, qerr.Wrap(qerr.KindExecution, "mongodb cursor iteration failed", err)
	}

	return table.FromRows(fields, records)
}

func splitQuery(query string) (collection, filterJSON string, err error) {
	parts := strings.SplitN(strings.TrimSpace(query), " ", 2)
	if len(parts) != 2 {
		return "", "", qerr.Newf(qerr.KindExecution, "mongodb query must be \"<collection> <filter>\", got %q", query)
	}
	return parts[0], parts[1], nil
}

// Converter renders template values as MongoDB extended JSON: double-quoted
// strings, ISODate(...) wrappers for temporal types, and bracketed lists.
type Converter struct{}

func (Converter) Name() string { return Kind }

func (Converter) Scalar(t convert.Type, v any) (string, error) {
	switch t {
	case convert.TypeDate, convert.TypeDateTime, convert.TypeTime:
		inner, err := (convert.Default{}).Scalar(t, v)
		if err != nil {
			return "", err
		}
		return "ISODate(" + inner + ")", nil
	case convert.TypeString:
		s, ok := v.(string)
		if !ok {
			return "", qerr.Newf(qerr.KindConversion, "value %v (%T) does not match declared type %q", v, v, t)
		}
		b, err := bsonMarshalString(s)
		if err != nil {
			return "", err
		}
		return b, nil
	default:
		return (convert.Default{}).Scalar(t, v)
	}
}

func (c Converter) List(t convert.Type, vs []any) (string, error) {
	return convert.RenderList(c, t, vs, "[", "]")
}

func bsonMarshalString(s string) (string, error) {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`, nil
}
