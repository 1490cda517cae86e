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

// Package template parses query templates containing {{ name |type }} and
// {{ parent_column |type|list }} parameter references and renders them
// against a parent table and a caller-supplied parameter map.
//
// Parameter kind (independent vs. dependent) is not fixed by syntax — both
// forms share the grammar in spec §6 — it is resolved per render: a caller
// value for the identifier wins if present, otherwise the identifier is
// looked up as a column of the parent table. An identifier found in
// neither place is a parameter error.
package template

import (
	"fmt"
	"strings"

	"github.com/neosun100/querygraph/internal/convert"
	"github.com/neosun100/querygraph/internal/qerr"
	"github.com/neosun100/querygraph/internal/table"
)

// Param is a parsed parameter reference.
type Param struct {
	Ident string
	Type  convert.Type
	List  bool
}

type segment struct {
	lit   string
	param *Param
}

// Template is a parsed, cacheable query template.
type Template struct {
	raw      string
	segments []segment
	Params   []Param
}

// Parse parses raw once, caching its parameter descriptors. Unmatched
// braces are a parse error.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}
	var lit strings.Builder

	i := 0
	for i < len(raw) {
		if strings.HasPrefix(raw[i:], "{{{{") {
			lit.WriteString("{{")
			i += 4
			continue
		}
		if strings.HasPrefix(raw[i:], "}}}}") {
			lit.WriteString("}}")
			i += 4
			continue
		}
		if strings.HasPrefix(raw[i:], "{{") {
			end := strings.Index(raw[i:], "}}")
			if end == -1 {
				return nil, qerr.New(qerr.KindParse, "unterminated '{{' in template")
			}
			inner := raw[i+2 : i+end]
			p, err := parseParam(inner)
			if err != nil {
				return nil, err
			}
			t.segments = append(t.segments, segment{lit: lit.String(), param: p})
			lit.Reset()
			t.Params = append(t.Params, *p)
			i += end + 2
			continue
		}
		if strings.HasPrefix(raw[i:], "}}") {
			return nil, qerr.New(qerr.KindParse, "unmatched '}}' in template")
		}
		lit.WriteByte(raw[i])
		i++
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, segment{lit: lit.String()})
	}
	return t, nil
}

func parseParam(inner string) (*Param, error) {
	parts := strings.Split(inner, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 0 || parts[0] == "" {
		return nil, qerr.Newf(qerr.KindParse, "empty parameter identifier in {{%s}}", inner)
	}
	ident := parts[0]
	if !isValidIdent(ident) {
		return nil, qerr.Newf(qerr.KindParse, "invalid parameter identifier %q", ident)
	}

	p := &Param{Ident: ident, Type: convert.TypeString}
	typeSeen := false
	for _, tok := range parts[1:] {
		switch tok {
		case "list":
			p.List = true
		case "":
			// tolerate a stray trailing '|'
		default:
			typ, ok := convert.ParseType(tok)
			if !ok {
				return nil, qerr.Newf(qerr.KindParse, "unknown type annotation %q in {{%s}}", tok, inner)
			}
			if typeSeen {
				return nil, qerr.Newf(qerr.KindParse, "duplicate type annotation in {{%s}}", inner)
			}
			p.Type = typ
			typeSeen = true
		}
	}
	return p, nil
}

func isValidIdent(s string) bool {
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if i > 0 && !isLetter && !isDigit {
			return false
		}
	}
	return len(s) > 0
}

// Render substitutes every parameter reference and returns the final query
// string. parentTable may be nil for a root node. params is the caller's
// independent-parameter map.
func (t *Template) Render(parentTable *table.Table, params map[string]any, conv convert.Converter) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		b.WriteString(seg.lit)
		if seg.param == nil {
			continue
		}
		lit, err := t.renderParam(*seg.param, parentTable, params, conv)
		if err != nil {
			return "", err
		}
		b.WriteString(lit)
	}
	return b.String(), nil
}

func (t *Template) renderParam(p Param, parentTable *table.Table, params map[string]any, conv convert.Converter) (string, error) {
	if v, ok := params[p.Ident]; ok {
		return renderValue(p, v, conv)
	}

	if parentTable == nil {
		return "", qerr.Newf(qerr.KindParameter, "parameter %q not supplied and no parent table to resolve it as a dependent column", p.Ident)
	}
	col, ok := parentTable.Column(p.Ident)
	if !ok {
		return "", qerr.Newf(qerr.KindParameter, "parameter %q is neither a supplied independent parameter nor a column of the parent table", p.Ident)
	}

	if p.List {
		return conv.List(p.Type, col.Cells)
	}
	if parentTable.NumRows() != 1 {
		return "", qerr.Newf(qerr.KindParameter, "dependent parameter %q without |list requires exactly one parent row, got %d", p.Ident, parentTable.NumRows())
	}
	return conv.Scalar(p.Type, col.Cells[0])
}

func renderValue(p Param, v any, conv convert.Converter) (string, error) {
	var (
		lit string
		err error
	)
	if p.List {
		vs, ok := v.([]any)
		if !ok {
			return "", qerr.Newf(qerr.KindParameter, "parameter %q declared |list but supplied value is %T, not a slice", p.Ident, v)
		}
		lit, err = conv.List(p.Type, vs)
	} else {
		lit, err = conv.Scalar(p.Type, v)
	}
	if err != nil {
		return "", reclassifyIndependentParamErr(p.Ident, err)
	}
	return lit, nil
}

// reclassifyIndependentParamErr promotes a converter's type-mismatch error to
// qerr.KindParameter: spec §4.3 step 2 treats a wrong-type value supplied for
// an independent parameter as a parameter error, not a conversion error —
// conversion errors are reserved for the dependent-column path, where the
// value came from the parent table rather than the caller.
func reclassifyIndependentParamErr(ident string, err error) error {
	qe, ok := err.(*qerr.Error)
	if !ok || qe.Kind != qerr.KindConversion {
		return err
	}
	return &qerr.Error{Kind: qerr.KindParameter, Node: qe.Node, Msg: fmt.Sprintf("parameter %q: %s", ident, qe.Msg), Err: qe.Err}
}
