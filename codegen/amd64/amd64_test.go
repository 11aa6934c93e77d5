package amd64

import (
	"strings"
	"testing"

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

func reg(name uint32) regspace.Register {
	return regspace.Register{Space: regspace.SpaceMachine, Name: name}
}

func TestEncodeBinaryMovImmAndRet(t *testing.T) {
	buf := codegen.NewBuffer()
	tgt := Target{}

	movi := lir.Instr{Mnemonic: "MOVI", Def: reg(RAX), Operands: []lir.Operand{lir.Imm(42)}}
	if err := tgt.EncodeBinary(buf, &movi, nil); err != nil {
		t.Fatalf("EncodeBinary MOVI: %v", err)
	}
	ret := lir.Instr{Mnemonic: "RET"}
	if err := tgt.EncodeBinary(buf, &ret, nil); err != nil {
		t.Fatalf("EncodeBinary RET: %v", err)
	}

	code := buf.Bytes()
	// REX.W + MOV RAX, imm64 + imm64 (8 bytes) + RET
	if len(code) != 2+8+1 {
		t.Fatalf("unexpected code length %d: % x", len(code), code)
	}
	if code[0] != 0x48 || code[1] != 0xB8 {
		t.Fatalf("expected REX.W MOV RAX,imm64 prefix, got % x", code[:2])
	}
	if code[len(code)-1] != 0xC3 {
		t.Fatalf("expected trailing RET opcode, got %x", code[len(code)-1])
	}
}

func TestEncodeBinaryRejectsUnknownMnemonic(t *testing.T) {
	buf := codegen.NewBuffer()
	tgt := Target{}
	if err := tgt.EncodeBinary(buf, &lir.Instr{Mnemonic: "FROB"}, nil); err == nil {
		t.Fatalf("expected an error for an unencodable mnemonic")
	}
}

func TestEncodeTextFormatsOperands(t *testing.T) {
	var sb strings.Builder
	tgt := Target{}
	in := lir.Instr{
		Mnemonic: "ADD",
		Def:      reg(RAX),
		HasDef:   true,
		Operands: []lir.Operand{lir.Reg(reg(RAX)), lir.Reg(reg(RBX))},
	}
	if err := tgt.EncodeText(&sb, &in); err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	if !strings.Contains(sb.String(), "ADD") {
		t.Fatalf("expected mnemonic in text output, got %q", sb.String())
	}
}

func TestPrologueEpiloguePairCalleeSaved(t *testing.T) {
	tgt := Target{}
	fr := codegen.Frame{CalleeSaved: []regspace.Register{reg(RBX), reg(R12)}, SpillBytes: 32}

	pro := tgt.Prologue(fr)
	epi := tgt.Epilogue(fr)

	if len(pro) != 3 { // push rbx, push r12, sub rsp
		t.Fatalf("expected 3 prologue instructions, got %d: %+v", len(pro), pro)
	}
	if len(epi) != 4 { // add rsp, pop r12, pop rbx, ret
		t.Fatalf("expected 4 epilogue instructions, got %d: %+v", len(epi), epi)
	}
	if epi[len(epi)-1].Mnemonic != "RET" {
		t.Fatalf("expected epilogue to end in RET, got %+v", epi[len(epi)-1])
	}
}
