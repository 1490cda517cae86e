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

package neo4j

import (
	"testing"
	"time"

	"github.com/neosun100/querygraph/internal/convert"
)

func TestConverterScalarWrapsTemporalTypes(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	got, err := (Converter{}).Scalar(convert.TypeDate, d)
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	if got != "date('2024-03-15')" {
		t.Errorf("Scalar() = %q, want date('2024-03-15')", got)
	}
}

func TestConverterListUsesBrackets(t *testing.T) {
	got, err := (Converter{}).List(convert.TypeString, []any{"a", "b"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got != "['a', 'b']" {
		t.Errorf("List() = %q, want ['a', 'b']", got)
	}
}
