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

// Package lir implements the low-level, target-specific instruction
// representation instruction selection emits into (§4.6), plus the
// selector itself. Unlike mir.Node (a tree), an Instr is a flat,
// already-linearized machine-ish operation: instruction selection's job
// is exactly to turn each MIR statement tree into a sequence of these.
package lir

import "github.com/launix-de/nbjit/regspace"
import "github.com/launix-de/nbjit/mir"

// BlockID is shared verbatim with mir.BlockID: §4.6 requires "block
// boundaries, edges, and handler tags are preserved exactly" across the
// CFG-copy that precedes selection, so a LIR block and the MIR block it
// was selected from always carry the same identity.
type BlockID = mir.BlockID

type InstrID int32

const NoInstr InstrID = 0

// OperandKind distinguishes what an Operand names.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandReg
	OperandImm
	OperandBlock
)

// Operand is a reference an Instr reads: a register, an immediate, or
// (for control-flow instructions) a target block.
type Operand struct {
	Kind  OperandKind
	Reg   regspace.Register
	Imm   int64
	Block BlockID
}

func Reg(r regspace.Register) Operand  { return Operand{Kind: OperandReg, Reg: r} }
func Imm(v int64) Operand              { return Operand{Kind: OperandImm, Imm: v} }
func BlockOperand(b BlockID) Operand   { return Operand{Kind: OperandBlock, Block: b} }

// Instr is one target instruction. Mnemonic is backend-defined free text
// (e.g. "MOVQ", "ADD", a netproc micro-op name, or a C statement
// template key) — §4.9's emitters are the only code that interprets it.
type Instr struct {
	Mnemonic string
	Def      regspace.Register
	HasDef   bool
	Operands []Operand

	// IsCoproc marks an instruction that may transfer control implicitly
	// (§4.6: "some targets require coprocessor accesses to be the last
	// instruction of a block"); the splitter in split.go acts on it.
	IsCoproc bool

	// IsMove marks a register-to-register copy (the LIR-level analogue
	// of mir's OpReg-rooted copy statement) whose single source operand
	// is Operands[0]. regalloc's coalescing phase (§4.7) only considers
	// move-related pairs at instructions with this flag set.
	IsMove bool

	// IsBranch marks a control-transfer instruction whose target is the
	// OperandBlock among Operands and whose encoded size depends on the
	// displacement to that target (§4.8's short/long classification).
	IsBranch bool

	// Long records that layout's branch classifier measured a
	// displacement too large for the short encoding; codegen reads this
	// to pick the instruction's long form instead of its default form.
	Long bool
}

// Block mirrors mir.Block's CFG-relevant fields exactly, per §4.6's
// preservation requirement — Preds/Succs/HandlerTag are copied from the
// source MIR block by CopyCFG and never independently recomputed here.
type Block struct {
	ID         BlockID
	Instrs     []InstrID
	Preds      []BlockID
	Succs      []BlockID
	HandlerTag string
}

// Func is the LIR arena, structured like mir.Func: an index-addressed
// instruction slice plus a block map, so a Func can be freed by simply
// dropping it.
type Func struct {
	Name   string
	Instrs []Instr
	blocks map[BlockID]*Block
	order  []BlockID // block IDs in the order CopyCFG encountered them
	Entry  BlockID
	Exit   BlockID
}

func newFunc(name string) *Func {
	return &Func{Name: name, Instrs: make([]Instr, 1), blocks: make(map[BlockID]*Block)}
}

func (f *Func) NewInstr(in Instr) InstrID {
	id := InstrID(len(f.Instrs))
	f.Instrs = append(f.Instrs, in)
	return id
}

func (f *Func) Instr(id InstrID) *Instr { return &f.Instrs[id] }

func (f *Func) Block(id BlockID) *Block { return f.blocks[id] }

func (f *Func) BlockIDs() []BlockID {
	out := make([]BlockID, len(f.order))
	copy(out, f.order)
	return out
}

// CopyCFG pre-creates a LIR Func whose blocks mirror src's block graph
// exactly (§4.6: "the corresponding LIR block that the CFG-copy pass
// pre-created"), with no instructions yet — Select populates them.
func CopyCFG(src *mir.Func) *Func {
	f := newFunc("")
	for _, id := range src.BlockIDs() {
		sb := src.Block(id)
		nb := &Block{ID: id, HandlerTag: sb.HandlerTag}
		nb.Preds = append(nb.Preds, sb.Preds...)
		nb.Succs = append(nb.Succs, sb.Succs...)
		f.blocks[id] = nb
		f.order = append(f.order, id)
	}
	f.Entry = src.Entry
	f.Exit = src.Exit
	return f
}

func (b *Block) AppendInstr(f *Func, id InstrID) {
	b.Instrs = append(b.Instrs, id)
}

// InsertBefore splices id into b's instruction list immediately before
// the instruction at position i (the spiller uses this to insert
// fresh-virtual loads/stores around spilled uses/defs, §4.7).
func (b *Block) InsertBefore(i int, id InstrID) {
	b.Instrs = append(b.Instrs, NoInstr)
	copy(b.Instrs[i+1:], b.Instrs[i:])
	b.Instrs[i] = id
}

// InsertAfter splices id into b's instruction list immediately after the
// instruction at position i.
func (b *Block) InsertAfter(i int, id InstrID) {
	b.InsertBefore(i+1, id)
}
