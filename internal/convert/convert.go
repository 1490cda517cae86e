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

// Package convert holds the per-backend value converter contract: mapping a
// typed scalar or list value to the literal fragment a backend's query
// syntax expects.
package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/neosun100/querygraph/internal/qerr"
)

// Type is a declared template-parameter value type.
type Type string

const (
	TypeInt      Type = "int"
	TypeFloat    Type = "float"
	TypeString   Type = "str"
	TypeBool     Type = "bool"
	TypeDate     Type = "date"
	TypeDateTime Type = "datetime"
	TypeTime     Type = "time"
)

// ParseType validates a type annotation token from a template.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeInt, TypeFloat, TypeString, TypeBool, TypeDate, TypeDateTime, TypeTime:
		return Type(s), true
	}
	return "", false
}

// Converter is the per-backend value serializer described in spec §4.2.
// Implementations must be pure and must fail loudly (a *qerr.Error with
// Kind == qerr.KindConversion) on a declared-type/actual-value mismatch
// rather than silently coerce.
type Converter interface {
	// Name identifies the backend this converter renders literals for.
	Name() string
	// Scalar renders a single value of the declared type.
	Scalar(t Type, v any) (string, error)
	// List renders a slice of values of the declared element type as a
	// single list literal.
	List(t Type, vs []any) (string, error)
}

// Default implements the baseline relational rendering table from spec
// §4.2: bare numeric/bool literals, single-quoted strings with doubled-quote
// escaping, quoted ISO dates, and parenthesized comma lists. Backends embed
// Default and override only the cells of the table they render differently.
type Default struct{}

func (Default) Name() string { return "default" }

func (Default) Scalar(t Type, v any) (string, error) {
	switch t {
	case TypeInt:
		n, ok := asInt(v)
		if !ok {
			return "", typeMismatch(t, v)
		}
		return fmt.Sprintf("%d", n), nil
	case TypeFloat:
		f, ok := asFloat(v)
		if !ok {
			return "", typeMismatch(t, v)
		}
		return fmt.Sprintf("%v", f), nil
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return "", typeMismatch(t, v)
		}
		return fmt.Sprintf("%t", b), nil
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return "", typeMismatch(t, v)
		}
		return quoteString(s, "''"), nil
	case TypeDate:
		tv, ok := asTime(v)
		if !ok {
			return "", typeMismatch(t, v)
		}
		return "'" + tv.Format("2006-01-02") + "'", nil
	case TypeDateTime:
		tv, ok := asTime(v)
		if !ok {
			return "", typeMismatch(t, v)
		}
		return "'" + tv.Format("2006-01-02 15:04:05") + "'", nil
	case TypeTime:
		tv, ok := asTime(v)
		if !ok {
			return "", typeMismatch(t, v)
		}
		return "'" + tv.Format("15:04:05") + "'", nil
	}
	return "", qerr.Newf(qerr.KindConversion, "unknown declared type %q", t)
}

func (d Default) List(t Type, vs []any) (string, error) {
	return renderList(d, t, vs, "(", ")")
}

// RenderList is exposed for other backends' converters: given any scalar
// renderer, join its per-element output between open and shut.
func RenderList(scalar interface{ Scalar(Type, any) (string, error) }, t Type, vs []any, open, shut string) (string, error) {
	return renderList(scalar, t, vs, open, shut)
}

// renderList is shared by every converter: it renders each element with the
// given scalar renderer and wraps the comma-joined result in open/shut.
func renderList(scalar interface{ Scalar(Type, any) (string, error) }, t Type, vs []any, open, shut string) (string, error) {
	parts := make([]string, len(vs))
	for i, v := range vs {
		s, err := scalar.Scalar(t, v)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return open + strings.Join(parts, ", ") + shut, nil
}

// quoteString wraps s in quote's first character and replaces every embedded
// instance of that character with quote (e.g. "''" doubles single quotes for
// SQL).
func quoteString(s, quote string) string {
	q := quote[:1]
	escaped := strings.ReplaceAll(s, q, quote)
	return q + escaped + q
}

func typeMismatch(t Type, v any) error {
	return qerr.Newf(qerr.KindConversion, "value %v (%T) does not match declared type %q", v, v, t)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	}
	return time.Time{}, false
}
