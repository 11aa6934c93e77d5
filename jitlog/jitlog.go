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

// Package jitlog records one compilation's passes as a Chrome
// trace-event-format JSON stream, the per-pass analogue of
// scm/trace.go's Tracefile: where the teacher times whole Scheme
// expression evaluations, a Trace here times one pipeline pass
// (dominance, SSA construction, instruction selection, register
// allocation, ...) of one compiled function, so a debug build's
// timeline viewer shows where a compile actually spent its time.
package jitlog

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// event is one Chrome trace-event-format record, the same five fields
// scm/trace.go's EventFull writes by hand; jitlog marshals through
// encoding/json instead of hand-building the object, since a Trace's
// event rate (one pair per pass, not per expression) never needs
// trace.go's byte-level control.
type event struct {
	Name string `json:"name"`
	Cat  string `json:"cat"`
	Ph   string `json:"ph"`
	TS   int64  `json:"ts"`
	PID  int    `json:"pid"`
	TID  int    `json:"tid"`
	Args any    `json:"args,omitempty"`
}

// Trace is one JSON array of events, safe for concurrent use the same
// way Tracefile is (driver.CompileUnits compiles units concurrently, so
// every unit's Trace may be written to from a different goroutine
// without external locking).
type Trace struct {
	mu      sync.Mutex
	w       io.Writer
	start   time.Time
	first   bool
	sinks   []Sink
}

// Sink receives a copy of every event a Trace writes, the hook a debug
// CLI uses to additionally stream events live (§ jitlog's websocket
// sink) without the core Trace type depending on any transport.
type Sink interface {
	Write(name, cat, phase string, pid, tid int)
}

// New opens a Trace that writes a Chrome-trace JSON array to w as
// events arrive; Close must be called to terminate the array.
func New(w io.Writer) *Trace {
	io.WriteString(w, "[")
	return &Trace{w: w, start: time.Now(), first: true}
}

// AddSink registers an additional live sink (e.g. a websocket
// broadcaster); sinks are notified in registration order, after the
// event has been appended to the JSON array.
func (t *Trace) AddSink(s Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, s)
}

// Close terminates the JSON array, then closes the underlying writer if
// it is an io.Closer (e.g. a file, or Compressed's lz4 frame writer). A
// Trace must not be used afterward.
func (t *Trace) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.w, "]"); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Pass records one pass's begin/end pair around f, the per-pass
// equivalent of Tracefile.Duration; pid identifies the compilation
// unit and tid the function within it (both chosen by the caller), so
// a multi-unit trace's
// timeline separates unrelated units into distinct tracks.
func (t *Trace) Pass(pid, tid int, funcName, passName string, f func()) {
	t.emit(funcName, passName, "B", pid, tid)
	defer t.emit(funcName, passName, "E", pid, tid)
	f()
}

func (t *Trace) emit(name, cat, phase string, pid, tid int) {
	ts := time.Since(t.start).Microseconds()
	t.mu.Lock()
	if t.first {
		t.first = false
	} else {
		io.WriteString(t.w, ",\n")
	}
	b, _ := json.Marshal(event{Name: name, Cat: cat, Ph: phase, TS: ts, PID: pid, TID: tid})
	t.w.Write(b)
	sinks := t.sinks
	t.mu.Unlock()

	for _, s := range sinks {
		s.Write(name, cat, phase, pid, tid)
	}
}
