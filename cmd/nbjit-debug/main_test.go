package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/launix-de/nbjit/bytecode"
)

func writeSampleSegment(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "handler.nbc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	seg := &bytecode.Segment{
		Name:       "classifier_push",
		LocalsSize: 4,
		Code:       []byte{0x01, 0x02},
		PushOffset: 0,
		Exports:    []bytecode.Export{{Name: "_push", Offset: 0}},
		LineMap:    []bytecode.LineEntry{{IP: 0, Line: 7}},
	}
	if err := bytecode.Write(f, seg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestDispatchLoadThenInfo(t *testing.T) {
	path := writeSampleSegment(t, t.TempDir())
	s := &session{}
	var buf bytes.Buffer

	dispatch(s, &buf, "load "+path)
	if !strings.Contains(buf.String(), "classifier_push") {
		t.Fatalf("expected load to report the segment name, got %s", buf.String())
	}

	buf.Reset()
	dispatch(s, &buf, "lines")
	if !strings.Contains(buf.String(), "ip 0 -> line 7") {
		t.Fatalf("expected the line map entry, got %s", buf.String())
	}
}

func TestDispatchInfoWithoutLoadReportsGuidance(t *testing.T) {
	s := &session{}
	var buf bytes.Buffer
	dispatch(s, &buf, "info")
	if !strings.Contains(buf.String(), "no segment loaded") {
		t.Fatalf("expected guidance to load first, got %s", buf.String())
	}
}

func TestDispatchDotRendersSampleGraph(t *testing.T) {
	s := &session{}
	var buf bytes.Buffer
	dispatch(s, &buf, "dot")
	if !strings.Contains(buf.String(), "digraph G {") {
		t.Fatalf("expected dot output, got %s", buf.String())
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := &session{}
	var buf bytes.Buffer
	dispatch(s, &buf, "bogus")
	if !strings.Contains(buf.String(), "unknown command") {
		t.Fatalf("expected an unknown-command message, got %s", buf.String())
	}
}
