package netproc

import (
	"testing"

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

func reg(name uint32) regspace.Register {
	return regspace.Register{Space: regspace.SpaceMachine, Name: name}
}

func TestEncodeBinaryProducesOneWordPerMicroOp(t *testing.T) {
	buf := codegen.NewBuffer()
	tgt := Target{}

	movi := lir.Instr{Mnemonic: "MOVI", Def: reg(0), Operands: []lir.Operand{lir.Imm(9)}}
	cop := lir.Instr{Mnemonic: "COPROC", Operands: []lir.Operand{lir.Imm(3)}}
	ret := lir.Instr{Mnemonic: "RET"}
	for _, in := range []*lir.Instr{&movi, &cop, &ret} {
		if err := tgt.EncodeBinary(buf, in, nil); err != nil {
			t.Fatalf("EncodeBinary %s: %v", in.Mnemonic, err)
		}
	}
	if len(buf.Bytes()) != 12 {
		t.Fatalf("expected 3 4-byte micro-ops, got %d bytes", len(buf.Bytes()))
	}
}

func TestEncodeBinaryRejectsUnknownMnemonic(t *testing.T) {
	buf := codegen.NewBuffer()
	tgt := Target{}
	if err := tgt.EncodeBinary(buf, &lir.Instr{Mnemonic: "FROB"}, nil); err == nil {
		t.Fatalf("expected an error for an unencodable mnemonic")
	}
}

func TestPrologueEpilogueAreEmpty(t *testing.T) {
	tgt := Target{}
	if len(tgt.Prologue(codegen.Frame{})) != 0 || len(tgt.Epilogue(codegen.Frame{})) != 0 {
		t.Fatalf("expected no prologue/epilogue instructions for the coprocessor target")
	}
}
