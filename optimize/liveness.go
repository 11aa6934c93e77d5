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

package optimize

import (
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// Liveness holds per-block LiveIn/LiveOut register sets (§4.7
// "Liveness"), computed here at block granularity as a precondition for
// CopyFold. regalloc computes its own bit-vector, dense-name version of
// the same fixed point once virtuals are mapped (§4.1 Register_Mapping);
// this copy exists because copy folding runs earlier, before any
// dense-mapping pass has assigned the contiguous names that bit vectors
// need.
type Liveness struct {
	LiveIn  map[mir.BlockID]map[regspace.Register]bool
	LiveOut map[mir.BlockID]map[regspace.Register]bool
}

// ComputeLiveness runs LiveOut(B) = ∪ LiveIn(S) over successors;
// LiveIn(B) = Uses(B) ∪ (LiveOut(B) \ Defs(B)), iterated to a fixed
// point (§4.7).
func ComputeLiveness(f *mir.Func) *Liveness {
	blocks := f.BlockIDs()
	uses := make(map[mir.BlockID]map[regspace.Register]bool, len(blocks))
	defs := make(map[mir.BlockID]map[regspace.Register]bool, len(blocks))
	for _, b := range blocks {
		u, d := make(map[regspace.Register]bool), make(map[regspace.Register]bool)
		for _, nid := range f.Block(b).Stmts {
			n := f.Node(nid)
			collectUses(f, n, func(r regspace.Register) {
				if !d[r] {
					u[r] = true
				}
			})
			if n.HasDef {
				d[n.Def] = true
			}
		}
		uses[b], defs[b] = u, d
	}
	liveIn := make(map[mir.BlockID]map[regspace.Register]bool, len(blocks))
	liveOut := make(map[mir.BlockID]map[regspace.Register]bool, len(blocks))
	for _, b := range blocks {
		liveIn[b] = make(map[regspace.Register]bool)
		liveOut[b] = make(map[regspace.Register]bool)
	}
	for {
		changed := false
		for _, b := range blocks {
			out := make(map[regspace.Register]bool)
			for _, s := range f.Block(b).Succs {
				for r := range liveIn[s] {
					out[r] = true
				}
			}
			in := make(map[regspace.Register]bool, len(uses[b]))
			for r := range uses[b] {
				in[r] = true
			}
			for r := range out {
				if !defs[b][r] {
					in[r] = true
				}
			}
			if !setEqual(in, liveIn[b]) || !setEqual(out, liveOut[b]) {
				changed = true
			}
			liveIn[b] = in
			liveOut[b] = out
		}
		if !changed {
			break
		}
	}
	return &Liveness{LiveIn: liveIn, LiveOut: liveOut}
}

func setEqual(a, b map[regspace.Register]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func collectUses(f *mir.Func, n *mir.Node, fn func(regspace.Register)) {
	for _, k := range n.Kids {
		collectUseKid(f, k, fn)
	}
	if n.Extra != nil {
		for _, a := range n.Extra.PhiArgs {
			collectUseKid(f, a, fn)
		}
	}
}

func collectUseKid(f *mir.Func, nid mir.NodeID, fn func(regspace.Register)) {
	if nid == mir.NoNode {
		return
	}
	n := f.Node(nid)
	if n.Op == mir.OpReg {
		fn(n.Def)
		return
	}
	for _, k := range n.Kids {
		collectUseKid(f, k, fn)
	}
}
