package arm64

import (
	"testing"

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

func reg(name uint32) regspace.Register {
	return regspace.Register{Space: regspace.SpaceMachine, Name: name}
}

func TestEncodeBinaryEmitsFourByteWords(t *testing.T) {
	buf := codegen.NewBuffer()
	tgt := Target{}

	movi := lir.Instr{Mnemonic: "MOVI", Def: reg(X0), Operands: []lir.Operand{lir.Imm(7)}}
	if err := tgt.EncodeBinary(buf, &movi, nil); err != nil {
		t.Fatalf("EncodeBinary MOVI: %v", err)
	}
	ret := lir.Instr{Mnemonic: "RET"}
	if err := tgt.EncodeBinary(buf, &ret, nil); err != nil {
		t.Fatalf("EncodeBinary RET: %v", err)
	}

	code := buf.Bytes()
	if len(code)%4 != 0 {
		t.Fatalf("expected every A64 instruction to be 4 bytes, got %d total bytes", len(code))
	}
	if len(code) != 8 {
		t.Fatalf("expected exactly two 4-byte instructions, got %d bytes", len(code))
	}
}

func TestEncodeBinaryRejectsUnknownMnemonic(t *testing.T) {
	buf := codegen.NewBuffer()
	tgt := Target{}
	if err := tgt.EncodeBinary(buf, &lir.Instr{Mnemonic: "FROB"}, nil); err == nil {
		t.Fatalf("expected an error for an unencodable mnemonic")
	}
}

func TestPrologueEpilogueSymmetric(t *testing.T) {
	tgt := Target{}
	fr := codegen.Frame{CalleeSaved: []regspace.Register{reg(19), reg(20)}, SpillBytes: 16}
	pro := tgt.Prologue(fr)
	epi := tgt.Epilogue(fr)
	if len(pro) != 3 {
		t.Fatalf("expected 3 prologue instructions, got %d", len(pro))
	}
	if len(epi) != 4 || epi[len(epi)-1].Mnemonic != "RET" {
		t.Fatalf("expected 4 epilogue instructions ending in RET, got %+v", epi)
	}
}
