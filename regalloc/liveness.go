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

// Liveness holds, per block, the live-in/live-out bit sets over the
// dense names of one register space — §4.7: "LiveOut(B) = union of
// LiveIn(S) over successors S; LiveIn(B) = Uses(B) ∪ (LiveOut(B) \
// Defs(B))". Computed at block granularity only, same as optimize's
// pre-allocation Liveness; regalloc's own interference-graph build
// (graph.go) is what refines this to per-instruction precision by
// walking each block backward from its LiveOut.
type Liveness struct {
	Space   regspace.Space
	N       int
	LiveIn  map[lir.BlockID]BitSet
	LiveOut map[lir.BlockID]BitSet
}

func regsOf(in *lir.Instr, space regspace.Space, visit func(name uint32)) {
	for _, op := range in.Operands {
		if op.Kind == lir.OperandReg && op.Reg.Space == space {
			visit(op.Reg.Name)
		}
	}
}

func defOf(in *lir.Instr, space regspace.Space) (uint32, bool) {
	if in.HasDef && in.Def.Space == space {
		return in.Def.Name, true
	}
	return 0, false
}

// Compute runs the block-level fixed point over every block of f,
// considering only registers of the given (already dense-mapped) space;
// n is the number of dense names DenseMap assigned.
func Compute(f *lir.Func, space regspace.Space, n int) *Liveness {
	lv := &Liveness{
		Space:   space,
		N:       n,
		LiveIn:  make(map[lir.BlockID]BitSet),
		LiveOut: make(map[lir.BlockID]BitSet),
	}
	ids := f.BlockIDs()
	for _, id := range ids {
		lv.LiveIn[id] = NewBitSet(n)
		lv.LiveOut[id] = NewBitSet(n)
	}
	for changed := true; changed; {
		changed = false
		for i := len(ids) - 1; i >= 0; i-- {
			id := ids[i]
			blk := f.Block(id)
			out := NewBitSet(n)
			for _, s := range blk.Succs {
				out.Union(lv.LiveIn[s])
			}
			in := out.Clone()
			for i2 := len(blk.Instrs) - 1; i2 >= 0; i2-- {
				instr := f.Instr(blk.Instrs[i2])
				if d, ok := defOf(instr, space); ok {
					in.Clear(d)
				}
				regsOf(instr, space, func(name uint32) { in.Set(name) })
			}
			if !out.Equal(lv.LiveOut[id]) {
				lv.LiveOut[id] = out
				changed = true
			}
			if !in.Equal(lv.LiveIn[id]) {
				lv.LiveIn[id] = in
				changed = true
			}
		}
	}
	return lv
}
