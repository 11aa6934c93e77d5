package cfgdump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

func diamond() *mir.Func {
	f := mir.NewFunc("diamond", mir.NewSymbolTable(), regspace.NewManager())
	a := f.NewBlock()
	b := f.NewBlock()
	c := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, f.Exit)
	f.AddEdge(c, f.Exit)
	return f
}

func TestWriteDotRendersEveryEdge(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDot(&buf, diamond()); err != nil {
		t.Fatalf("WriteDot: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph G {") {
		t.Fatalf("expected dot output to open with digraph G {, got %q", out)
	}
	if !strings.Contains(out, "0 -> 2;") {
		t.Fatalf("expected an edge from entry to the first block, got %s", out)
	}
}

func TestWriteDomInfoReportsUnknownIdomAsQuestionMarks(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDomInfo(&buf, diamond()); err != nil {
		t.Fatalf("WriteDomInfo: %v", err)
	}
	if !strings.Contains(buf.String(), "IDOM: ??") {
		t.Fatalf("expected an unset IDOM to print as ??, got %s", buf.String())
	}
}
