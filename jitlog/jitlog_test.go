package jitlog

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestPassEmitsBeginAndEndEvents(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf)
	ran := false
	tr.Pass(0, 0, "sum", "ssa-construct", func() { ran = true })
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !ran {
		t.Fatalf("expected the traced function to run")
	}

	var events []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &events); err != nil {
		t.Fatalf("trace output is not a valid JSON array: %v\n%s", err, buf.String())
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (B, E), got %d", len(events))
	}
	if events[0]["ph"] != "B" || events[1]["ph"] != "E" {
		t.Fatalf("expected begin then end, got %+v", events)
	}
	if events[0]["name"] != "sum" || events[0]["cat"] != "ssa-construct" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
}

type recordingSink struct {
	names []string
}

func (s *recordingSink) Write(name, cat, phase string, pid, tid int) {
	s.names = append(s.names, name+":"+phase)
}

func TestAddSinkReceivesEveryEvent(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf)
	sink := &recordingSink{}
	tr.AddSink(sink)
	tr.Pass(1, 2, "classify", "dce", func() {})
	tr.Close()

	if len(sink.names) != 2 || sink.names[0] != "classify:B" || sink.names[1] != "classify:E" {
		t.Fatalf("unexpected sink events: %v", sink.names)
	}
}
