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

package regalloc

import (
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

// DenseMapLIR remaps every register f uses (other than the kept spaces,
// typically already-precolored machine registers and compile-time
// constants) into target with dense, consecutive names — the precondition
// §4.7's bit-vector liveness and interference graph rely on. Returns the
// number of dense names now in use.
func DenseMapLIR(f *lir.Func, target regspace.Space, keep map[regspace.Space]bool) int {
	regspace.DenseMap(target, keep, func(mapper func(regspace.Register) regspace.Register) {
		for _, id := range f.BlockIDs() {
			blk := f.Block(id)
			for _, iid := range blk.Instrs {
				instr := f.Instr(iid)
				if instr.HasDef {
					instr.Def = mapper(instr.Def)
				}
				for i := range instr.Operands {
					if instr.Operands[i].Kind == lir.OperandReg {
						instr.Operands[i].Reg = mapper(instr.Operands[i].Reg)
					}
				}
			}
		}
	})

	n := 0
	scan := func(r regspace.Register) {
		if r.Space == target && int(r.Name)+1 > n {
			n = int(r.Name) + 1
		}
	}
	for _, id := range f.BlockIDs() {
		blk := f.Block(id)
		for _, iid := range blk.Instrs {
			instr := f.Instr(iid)
			if instr.HasDef {
				scan(instr.Def)
			}
			for _, op := range instr.Operands {
				if op.Kind == lir.OperandReg {
					scan(op.Reg)
				}
			}
		}
	}
	return n
}
