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

// Package qerr defines the tagged error kinds shared across the template,
// join, graph, and engine packages.
package qerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the engine needs to react to it.
type Kind string

const (
	KindParse         Kind = "parse"
	KindParameter     Kind = "parameter"
	KindConversion    Kind = "conversion"
	KindConnection    Kind = "connection"
	KindExecution     Kind = "execution"
	KindJoin          Kind = "join"
	KindCycle         Kind = "cycle"
	KindCancelled     Kind = "cancelled"
	KindConfiguration Kind = "configuration"
)

// Error is the single error type raised by the core; Kind tells the caller
// which row of the error table (spec §7) it corresponds to, Node is filled
// in by the engine once the offending node is known.
type Error struct {
	Kind Kind
	Node string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Node != "" {
		prefix = fmt.Sprintf("%s[%s]", e.Kind, e.Node)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error carrying an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithNode annotates err with the node name that produced it, if err is (or
// wraps) a *Error. Other errors are returned unchanged.
func WithNode(err error, node string) error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) && qe.Node == "" {
		qe.Node = node
	}
	return err
}

// KindOf returns the Kind carried by err, or "" if err is not a *Error.
func KindOf(err error) Kind {
	if qe, ok := err.(*Error); ok {
		return qe.Kind
	}
	return ""
}
