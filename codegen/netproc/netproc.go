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

// Package netproc implements codegen.Target for a network-processor
// coprocessor target, grounded on
// original_source/netbee/src/nbnetvm/jit/octeon/octeon-backend.cpp's
// native-Octeon backend: micro-ops are plain MIPS-like words, and
// coprocessor accesses (§4.6's IsCoproc instructions) must already be
// block-final by the time EncodeBinary sees them — lir.SplitCoprocBlocks
// enforces that upstream, so this target never needs to reason about it
// itself.
package netproc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

// micro-op opcodes, a small closed set standing in for the coprocessor's
// actual microcode ISA.
const (
	opMovI  = 0x01
	opAdd   = 0x02
	opSub   = 0x03
	opCop   = 0x04 // coprocessor dispatch
	opJmp   = 0x05
	opRet   = 0x06
)

type Target struct{}

func (Target) Name() string { return "netproc" }

func regOf(r regspace.Register) (uint32, error) {
	if r.Space != regspace.SpaceMachine {
		return 0, fmt.Errorf("netproc: register %v is not a machine register", r)
	}
	return r.Name, nil
}

// word packs a 32-bit micro-op as opcode(8) | dst(8) | src(8) | flags(8).
func word(op, dst, src, flags uint32) uint32 {
	return op<<24 | (dst&0xFF)<<16 | (src&0xFF)<<8 | (flags & 0xFF)
}

func (Target) EncodeBinary(buf *codegen.Buffer, in *lir.Instr, label func(lir.BlockID) int) error {
	var w uint32
	switch in.Mnemonic {
	case "MOVI":
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		w = word(opMovI, dst, 0, uint32(in.Operands[0].Imm))
	case "ADD":
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		src, err := regOf(in.Operands[1].Reg)
		if err != nil {
			return err
		}
		w = word(opAdd, dst, src, 0)
	case "SUB":
		dst, err := regOf(in.Def)
		if err != nil {
			return err
		}
		src, err := regOf(in.Operands[1].Reg)
		if err != nil {
			return err
		}
		w = word(opSub, dst, src, 0)
	case "COPROC":
		w = word(opCop, 0, 0, uint32(in.Operands[0].Imm))
	case "JMP":
		pos := buf.Pos()
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], word(opJmp, 0, 0, 0))
		buf.Emit(b[0], b[1], b[2], b[3])
		buf.AddFixup(pos, label(in.Operands[0].Block), 4, true)
		return nil
	case "RET":
		w = word(opRet, 0, 0, 0)
	default:
		return fmt.Errorf("netproc: no binary encoding for mnemonic %q", in.Mnemonic)
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], w)
	buf.Emit(b[0], b[1], b[2], b[3])
	return nil
}

func (Target) EncodeText(out io.Writer, in *lir.Instr) error {
	ops := ""
	for i, op := range in.Operands {
		if i > 0 {
			ops += ", "
		}
		switch op.Kind {
		case lir.OperandReg:
			ops += fmt.Sprintf("r%d", op.Reg.Name)
		case lir.OperandImm:
			ops += fmt.Sprintf("%d", op.Imm)
		case lir.OperandBlock:
			ops += fmt.Sprintf("block%v", op.Block)
		}
	}
	var err error
	if in.HasDef {
		_, err = fmt.Fprintf(out, "\t%s r%d, %s\n", in.Mnemonic, in.Def.Name, ops)
	} else {
		_, err = fmt.Fprintf(out, "\t%s %s\n", in.Mnemonic, ops)
	}
	return err
}

// Prologue/Epilogue are empty: the coprocessor's calling convention
// fixes registers by dispatch slot rather than a stack frame, so there
// is nothing for layout-driven callee-save bookkeeping to do here.
func (Target) Prologue(fr codegen.Frame) []lir.Instr { return nil }
func (Target) Epilogue(fr codegen.Frame) []lir.Instr { return nil }
