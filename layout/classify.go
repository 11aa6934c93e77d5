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

package layout

import "github.com/launix-de/nbjit/lir"

// SizeOf returns the byte length an instruction would occupy once
// emitted. For an lir.Instr with IsBranch set, it must consult in.Long to
// return the short- or long-form size accordingly.
type SizeOf func(in *lir.Instr) int

// branchTarget returns the block id an IsBranch instruction targets.
func branchTarget(in *lir.Instr) (lir.BlockID, bool) {
	for _, op := range in.Operands {
		if op.Kind == lir.OperandBlock {
			return op.Block, true
		}
	}
	return 0, false
}

// ClassifyBranches measures, in order, iterates to a fixed point over
// the displacement every IsBranch instruction in f would have once
// blocks are placed at the byte offsets order and size imply, flipping
// an instruction's Long flag on whenever its displacement exceeds
// shortRange. Flipping a branch to its long form can itself grow a
// block's size and push every later block's offset further out, which
// is why this runs to a fixed point rather than in a single pass — the
// same reason real assemblers relax branches iteratively.
func ClassifyBranches(f *lir.Func, order []lir.BlockID, size SizeOf, shortRange int) {
	blockStart := make(map[lir.BlockID]int, len(order))
	for changed := true; changed; {
		changed = false

		offset := 0
		for _, id := range order {
			blockStart[id] = offset
			for _, iid := range f.Block(id).Instrs {
				offset += size(f.Instr(iid))
			}
		}

		for _, id := range order {
			pc := blockStart[id]
			for _, iid := range f.Block(id).Instrs {
				in := f.Instr(iid)
				sz := size(in)
				if in.IsBranch {
					if target, ok := branchTarget(in); ok {
						disp := blockStart[target] - (pc + sz)
						if disp < 0 {
							disp = -disp
						}
						if disp > shortRange && !in.Long {
							in.Long = true
							changed = true
						}
					}
				}
				pc += sz
			}
		}
	}
}
