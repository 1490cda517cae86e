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

// Package zaplog implements execlog.Sink on top of zap, the teacher's
// structured-logging dependency.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/neosun100/querygraph/internal/execlog"
)

const sampleRowCap = 5

// Sink logs execution events through a *zap.Logger. zap.Logger is safe for
// concurrent use, satisfying execlog.Sink's concurrency requirement.
type Sink struct {
	logger *zap.Logger
}

var _ execlog.Sink = (*Sink)(nil)

// New wraps logger as an execlog.Sink.
func New(logger *zap.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) NodeInfo(name, message string) {
	s.logger.Info(message, zap.String("node", name))
}

func (s *Sink) NodeError(name, message string) {
	s.logger.Error(message, zap.String("node", name))
}

func (s *Sink) NodeTableHeader(name string, columns []string, sampleRows [][]any) {
	rows := sampleRows
	if len(rows) > sampleRowCap {
		rows = rows[:sampleRowCap]
	}
	s.logger.Debug("fetched table",
		zap.String("node", name),
		zap.Strings("columns", columns),
		zap.Int("sample_rows", len(rows)),
	)
}
