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

package convert

import (
	"testing"
	"time"

	"github.com/neosun100/querygraph/internal/qerr"
)

func TestDefaultScalar(t *testing.T) {
	d := Default{}
	cases := []struct {
		typ  Type
		in   any
		want string
	}{
		{TypeInt, 7, "7"},
		{TypeFloat, 1.5, "1.5"},
		{TypeBool, true, "true"},
		{TypeString, "it's", "'it''s'"},
		{TypeDate, time.Date(2009, 1, 6, 0, 0, 0, 0, time.UTC), "'2009-01-06'"},
		{TypeDateTime, time.Date(2009, 1, 6, 3, 4, 5, 0, time.UTC), "'2009-01-06 03:04:05'"},
		{TypeTime, time.Date(2009, 1, 6, 3, 4, 5, 0, time.UTC), "'03:04:05'"},
	}
	for _, c := range cases {
		got, err := d.Scalar(c.typ, c.in)
		if err != nil {
			t.Errorf("Scalar(%v, %v) error: %v", c.typ, c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Scalar(%v, %v) = %q, want %q", c.typ, c.in, got, c.want)
		}
	}
}

func TestDefaultScalarTypeMismatch(t *testing.T) {
	d := Default{}
	_, err := d.Scalar(TypeInt, "not an int")
	if qerr.KindOf(err) != qerr.KindConversion {
		t.Fatalf("expected a conversion error, got %v", err)
	}
}

func TestDefaultList(t *testing.T) {
	d := Default{}
	got, err := d.List(TypeInt, []any{1, 2, 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := "(1, 2, 3)"; got != want {
		t.Errorf("List() = %q, want %q", got, want)
	}
}
