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

package tablegen

import (
	"fmt"

	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// opByName maps the DSL's opcode identifiers (the mir.Op constant name
// with its "Op" prefix dropped) to the opcode itself. Kept local to
// tablegen rather than added to mir.Op.String(), which names opcodes for
// diagnostics in a different, dot-separated spelling (§7).
var opByName = map[string]mir.Op{
	"ConstInt": mir.OpConstInt, "ConstFloat": mir.OpConstFloat,
	"ConstString": mir.OpConstString, "ConstSymbol": mir.OpConstSymbol,
	"Reg": mir.OpReg,
	"Add": mir.OpAdd, "Sub": mir.OpSub, "Mul": mir.OpMul, "Div": mir.OpDiv, "Mod": mir.OpMod,
	"And": mir.OpAnd, "Or": mir.OpOr, "Xor": mir.OpXor, "Shl": mir.OpShl, "Shr": mir.OpShr,
	"Neg": mir.OpNeg, "Not": mir.OpNot,
	"CmpEq": mir.OpCmpEq, "CmpNe": mir.OpCmpNe, "CmpLt": mir.OpCmpLt,
	"CmpLe": mir.OpCmpLe, "CmpGt": mir.OpCmpGt, "CmpGe": mir.OpCmpGe,
	"LoadPacket": mir.OpLoadPacket, "LoadInfo": mir.OpLoadInfo, "LoadData": mir.OpLoadData,
	"LoadShared": mir.OpLoadShared, "LoadExchange": mir.OpLoadExchange,
	"StorePacket": mir.OpStorePacket, "StoreInfo": mir.OpStoreInfo, "StoreData": mir.OpStoreData,
	"StoreShared": mir.OpStoreShared, "StoreExchange": mir.OpStoreExchange,
	"LoadBase": mir.OpLoadBase, "LoadFlat": mir.OpLoadFlat, "StoreFlat": mir.OpStoreFlat,
	"Jump": mir.OpJump, "Branch": mir.OpBranch, "Switch": mir.OpSwitch, "Phi": mir.OpPhi,
	"Call": mir.OpCall, "SendPacket": mir.OpSendPacket, "Return": mir.OpReturn,
	"LookupGet": mir.OpLookupGet, "LookupSet": mir.OpLookupSet,
}

// Load parses src and builds a lir.Table of mechanical rules: each
// production gets the simplest Emit a backend could want for an
// arity-preserving op — a single Instr named after the rule's mnemonic,
// fed the already-reduced kid operands verbatim, defining a fresh virtual
// register from regs unless the rule says void.
//
// regs is the same per-unit regspace.Manager the driver hands every
// compile (the scoping §5 requires, so concurrent units never collide on
// a dense virtual name); Load's closures capture it directly, the same
// role a hand-written Emit's call to regs.New would play.
//
// Load covers the common case. A rule whose Emit must inspect more than
// "one instruction, kids verbatim, maybe a fresh def" — multi-instruction
// lowerings, operand reordering, target-specific addressing-mode
// matching — still needs a hand-written Rule added to the resulting
// Table directly; Load's Table is an ordinary *lir.Table, so a backend
// can always Table.Add further rules after loading the mechanical ones.
func Load(src string, regs *regspace.Manager) (*lir.Table, error) {
	decls, err := Parse(src)
	if err != nil {
		return nil, err
	}

	table := lir.NewTable()
	for _, d := range decls {
		op, ok := opByName[d.Op]
		if !ok {
			return nil, fmt.Errorf("tablegen: line %d: unknown opcode %q", d.Line, d.Op)
		}
		goals := make([]lir.NonTerm, len(d.KidGoals))
		for i, g := range d.KidGoals {
			goals[i] = lir.NonTerm(g)
		}
		table.Add(lir.Rule{
			NonTerm:  lir.NonTerm(d.NonTerm),
			Op:       op,
			KidGoals: goals,
			Cost:     d.Cost,
			Emit:     mechanicalEmit(op, d.Mnemonic, d.Void, regs),
		})
	}
	return table, nil
}

// mechanicalEmit builds the generic Emit a DSL rule declaration gets: a
// leaf constant reduces to an immediate with no instruction at all (the
// same shortcut driver's own hand-written OpConstInt rule takes); OpReg
// reduces to the register the node already names, since it is by
// definition "reference to an already-defined register" (mir/node.go);
// every other op emits one Instr named mnemonic, operands exactly the
// reduced kids in order, defining a fresh virtual unless void.
func mechanicalEmit(op mir.Op, mnemonic string, void bool, regs *regspace.Manager) lir.EmitFunc {
	return func(target *lir.Func, bb lir.BlockID, n *mir.Node, kids []lir.Operand) (lir.Operand, error) {
		switch op {
		case mir.OpConstInt:
			return lir.Imm(n.ConstInt), nil
		case mir.OpReg:
			return lir.Reg(n.Def), nil
		}

		in := lir.Instr{Mnemonic: mnemonic, Operands: kids}
		if void {
			id := target.NewInstr(in)
			target.Block(bb).AppendInstr(target, id)
			return lir.Operand{}, nil
		}

		dst := regs.New(regspace.SpaceVirtual)
		in.Def = dst
		in.HasDef = true
		id := target.NewInstr(in)
		target.Block(bb).AppendInstr(target, id)
		return lir.Reg(dst), nil
	}
}
