package csource

import (
	"strings"
	"testing"

	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

func reg(name uint32) regspace.Register {
	return regspace.Register{Space: regspace.SpaceMachine, Name: name}
}

func TestEncodeBinaryAlwaysFails(t *testing.T) {
	tgt := Target{}
	if err := tgt.EncodeBinary(nil, &lir.Instr{Mnemonic: "ADD"}, nil); err == nil {
		t.Fatalf("expected csource to reject binary emission")
	}
}

func TestEncodeTextRendersAddTemplate(t *testing.T) {
	tgt := Target{}
	var sb strings.Builder
	in := lir.Instr{
		Mnemonic: "ADD",
		Def:      reg(1),
		HasDef:   true,
		Operands: []lir.Operand{lir.Reg(reg(2)), lir.Reg(reg(3))},
	}
	if err := tgt.EncodeText(&sb, &in); err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	want := "v1 = v2 + v3;"
	if !strings.Contains(sb.String(), want) {
		t.Fatalf("expected %q in output, got %q", want, sb.String())
	}
}

func TestEncodeTextFallsBackForUnknownMnemonic(t *testing.T) {
	tgt := Target{}
	var sb strings.Builder
	if err := tgt.EncodeText(&sb, &lir.Instr{Mnemonic: "FROB"}); err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	if !strings.Contains(sb.String(), "unsupported") {
		t.Fatalf("expected a placeholder comment, got %q", sb.String())
	}
}

func TestEmitPrecompileHeaderDeclaresEveryPEsHandlers(t *testing.T) {
	var sb strings.Builder
	if err := EmitPrecompileHeader(&sb, "UNIT_PRECOMPILE_H", []string{"classifier", "counter"}); err != nil {
		t.Fatalf("EmitPrecompileHeader: %v", err)
	}
	out := sb.String()
	for _, want := range []string{
		"#ifndef UNIT_PRECOMPILE_H",
		"classifier_init(",
		"classifier_push(",
		"counter_init(",
		"counter_push(",
		"#endif",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in header, got %q", want, out)
		}
	}
}
