/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package jiterr defines the error taxonomy shared by every pass in the
// pipeline: fatal per-function errors that the driver aggregates (§7) and
// an Internal panic value for invariant violations, caught once at the
// driver's recover point.
package jiterr

import (
	"fmt"
	"runtime"
)

// Kind classifies a fatal error so the driver can report which stage failed.
type Kind string

const (
	KindUndefinedLocal  Kind = "undefined_local"
	KindArity           Kind = "arity"
	KindRuleNotFound    Kind = "rule_not_found"
	KindNontermNotFound Kind = "nterm_not_found"
	KindRegAllocFailed  Kind = "regalloc_failed"
	KindBufferAlloc     Kind = "buffer_alloc"
	KindCorruptInput    Kind = "corrupt_input"
	KindInternal        Kind = "internal"
)

// FuncError is a fatal error scoped to one handler's compilation. The
// driver attaches Function and Line (from the bytecode IP-to-line table)
// when available, then records it instead of propagating past the
// function boundary (§7: "per-function errors never affect other
// functions in the same unit").
type FuncError struct {
	Kind     Kind
	Function string
	Line     int // -1 if no line mapping available
	Message  string
	Cause    error
}

func (e *FuncError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Function, e.Line, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Function, e.Kind, e.Message)
}

func (e *FuncError) Unwrap() error { return e.Cause }

func New(kind Kind, function, message string) *FuncError {
	return &FuncError{Kind: kind, Function: function, Line: -1, Message: message}
}

func Wrap(kind Kind, function string, cause error) *FuncError {
	return &FuncError{Kind: kind, Function: function, Line: -1, Message: cause.Error(), Cause: cause}
}

// Internal is the value panicked for assertions that should never fail
// given a verified input CFG. It is caught at the driver's single recover
// point (mirroring jit_amd64.go's jitCompileExprBody recover pattern) and
// turned into a FuncError with KindInternal.
type Internal struct {
	File    string
	Line    int
	Message string
}

func (i *Internal) Error() string {
	return fmt.Sprintf("%s:%d: internal: %s", i.File, i.Line, i.Message)
}

// Assert panics with an *Internal carrying the caller's file/line if cond
// is false.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}
	panic(&Internal{File: file, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Recover turns a panicked *Internal (or any other panic) into a
// *FuncError of KindInternal. Intended to be called from a deferred
// function at the driver's per-handler compile boundary:
//
//	defer func() { err = jiterr.Recover(recover(), functionName, &err) }()
func Recover(r any, function string, errp *error) error {
	if r == nil {
		return *errp
	}
	if in, ok := r.(*Internal); ok {
		return &FuncError{Kind: KindInternal, Function: function, Line: -1, Message: in.Error()}
	}
	return &FuncError{Kind: KindInternal, Function: function, Line: -1, Message: fmt.Sprint(r)}
}
