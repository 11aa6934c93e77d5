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

// Package amd64 implements codegen.Target for the amd64 backend: a small
// mnemonic table mapping lir.Instr to x86-64 encodings, grounded on
// jit_emit_amd64.go's hand-written byte sequences and register constants.
package amd64

import (
	"fmt"
	"io"

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

// Register constants for regspace.SpaceMachine register Name values, in
// x86-64 hardware encoding order (the numbers ModRM and the +r opcode
// forms use), so RCX is 1 and RBX is 3.
const (
	RAX uint32 = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// CalleeSaved lists the registers a prologue/epilogue must save/restore
// if the allocator actually assigned them (System V AMD64 ABI).
var CalleeSaved = []uint32{RBX, RBP, R12, R13, R14, R15}

type Target struct{}

func (Target) Name() string { return "amd64" }

func regOf(r regspace.Register) (uint32, error) {
	if r.Space != regspace.SpaceMachine {
		return 0, fmt.Errorf("amd64: register %v is not a machine register", r)
	}
	return r.Name, nil
}

// modrmReg encodes a ModRM byte for two register operands in "reg/reg"
// form (mod=11).
func modrmReg(op, rm uint32) byte {
	return 0xC0 | byte((op&7)<<3) | byte(rm&7)
}

func (Target) EncodeBinary(buf *codegen.Buffer, in *lir.Instr, label func(lir.BlockID) int) error {
	switch in.Mnemonic {
	case "MOVI": // MOV reg, imm64
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		if dst >= R8 {
			buf.Emit(0x49)
		} else {
			buf.Emit(0x48)
		}
		buf.Emit(0xB8 | byte(dst&7))
		buf.Emit(byte(in.Operands[0].Imm), byte(in.Operands[0].Imm>>8), byte(in.Operands[0].Imm>>16), byte(in.Operands[0].Imm>>24),
			byte(in.Operands[0].Imm>>32), byte(in.Operands[0].Imm>>40), byte(in.Operands[0].Imm>>48), byte(in.Operands[0].Imm>>56))
		return nil

	case "MOV": // MOV dst, src (register-register)
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		src, err := regOf(in.Operands[0].Reg)
		if err != nil {
			return err
		}
		buf.Emit(0x48, 0x89, modrmReg(src, dst))
		return nil

	case "ADD":
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		src, err := regOf(in.Operands[1].Reg)
		if err != nil {
			return err
		}
		buf.Emit(0x48, 0x01, modrmReg(src, dst))
		return nil

	case "SUB":
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		src, err := regOf(in.Operands[1].Reg)
		if err != nil {
			return err
		}
		buf.Emit(0x48, 0x29, modrmReg(src, dst))
		return nil

	case "SUBI": // SUB reg, imm32 (stack-pointer adjustment)
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		rex := byte(0x48)
		if dst >= R8 {
			rex = 0x49
		}
		buf.Emit(rex, 0x81, 0xE8|byte(dst&7))
		buf.EmitInt32(int32(in.Operands[1].Imm))
		return nil

	case "ADDI": // ADD reg, imm32
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		rex := byte(0x48)
		if dst >= R8 {
			rex = 0x49
		}
		buf.Emit(rex, 0x81, 0xC0|byte(dst&7))
		buf.EmitInt32(int32(in.Operands[1].Imm))
		return nil

	case "JMP":
		buf.Emit(0xE9)
		pos := buf.Pos()
		buf.EmitInt32(0)
		buf.AddFixup(pos, label(in.Operands[0].Block), 4, true)
		return nil

	case "PUSH_REG":
		r, err := regOf(in.Operands[0].Reg)
		if err != nil {
			return err
		}
		if r >= R8 {
			buf.Emit(0x41)
		}
		buf.Emit(0x50 | byte(r&7))
		return nil

	case "POP_REG":
		r, err := regOf(in.Operands[0].Reg)
		if err != nil {
			return err
		}
		if r >= R8 {
			buf.Emit(0x41)
		}
		buf.Emit(0x58 | byte(r&7))
		return nil

	case "RET":
		buf.Emit(0xC3)
		return nil

	default:
		return fmt.Errorf("amd64: no binary encoding for mnemonic %q", in.Mnemonic)
	}
}

func (Target) EncodeText(out io.Writer, in *lir.Instr) error {
	ops := ""
	for i, op := range in.Operands {
		if i > 0 {
			ops += ", "
		}
		switch op.Kind {
		case lir.OperandReg:
			ops += op.Reg.String()
		case lir.OperandImm:
			ops += fmt.Sprintf("%d", op.Imm)
		case lir.OperandBlock:
			ops += fmt.Sprintf("block%v", op.Block)
		}
	}
	var err error
	if in.HasDef {
		_, err = fmt.Fprintf(out, "\t%s %s, %s\n", in.Mnemonic, in.Def, ops)
	} else {
		_, err = fmt.Fprintf(out, "\t%s %s\n", in.Mnemonic, ops)
	}
	return err
}

// Prologue pushes every callee-saved machine register the allocator
// actually used and reserves the spill area (§4.9: "save callee-saves
// actually used, establish frame, reserve spill area").
func (Target) Prologue(fr codegen.Frame) []lir.Instr {
	var out []lir.Instr
	for _, r := range fr.CalleeSaved {
		out = append(out, lir.Instr{Mnemonic: "PUSH_REG", Operands: []lir.Operand{lir.Reg(r)}})
	}
	if fr.SpillBytes > 0 {
		out = append(out, lir.Instr{
			Mnemonic: "SUBI",
			Def:      regspace.Register{Space: regspace.SpaceMachine, Name: RSP},
			Operands: []lir.Operand{lir.Reg(regspace.Register{Space: regspace.SpaceMachine, Name: RSP}), lir.Imm(int64(fr.SpillBytes))},
		})
	}
	return out
}

// Epilogue is the symmetric restore: reverse order from Prologue so
// pushes/pops nest correctly, then RET.
func (Target) Epilogue(fr codegen.Frame) []lir.Instr {
	var out []lir.Instr
	if fr.SpillBytes > 0 {
		out = append(out, lir.Instr{
			Mnemonic: "ADDI",
			Def:      regspace.Register{Space: regspace.SpaceMachine, Name: RSP},
			Operands: []lir.Operand{lir.Reg(regspace.Register{Space: regspace.SpaceMachine, Name: RSP}), lir.Imm(int64(fr.SpillBytes))},
		})
	}
	for i := len(fr.CalleeSaved) - 1; i >= 0; i-- {
		out = append(out, lir.Instr{Mnemonic: "POP_REG", Operands: []lir.Operand{lir.Reg(fr.CalleeSaved[i])}})
	}
	out = append(out, lir.Instr{Mnemonic: "RET"})
	return out
}
