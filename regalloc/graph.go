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
)

// Graph is the register interference graph (RIG): adjacency over dense
// virtual-register names, plus a parallel move-adjacency used for
// coalescing (§4.7 "build: interference graph from per-block liveness
// computed in reverse order, plus move edges"), grounded on the
// reference allocator's node.neighbours/calcLivenessFunc shape,
// generalized from a per-node neighbour slice to bitset adjacency rows
// sized to the dense name count.
type Graph struct {
	n      int
	adj    []BitSet
	move   []BitSet
	degree []int
}

func NewGraph(n int) *Graph {
	g := &Graph{n: n, adj: make([]BitSet, n), move: make([]BitSet, n), degree: make([]int, n)}
	for i := range g.adj {
		g.adj[i] = NewBitSet(n)
		g.move[i] = NewBitSet(n)
	}
	return g
}

func (g *Graph) AddEdge(a, b uint32) {
	if a == b || a >= uint32(g.n) || b >= uint32(g.n) {
		return
	}
	if !g.adj[a].Has(b) {
		g.adj[a].Set(b)
		g.adj[b].Set(a)
		g.degree[a]++
		g.degree[b]++
	}
}

func (g *Graph) AddMove(a, b uint32) {
	if a == b || a >= uint32(g.n) || b >= uint32(g.n) {
		return
	}
	g.move[a].Set(b)
	g.move[b].Set(a)
}

func (g *Graph) RemoveMove(a, b uint32) {
	g.move[a].Clear(b)
	g.move[b].Clear(a)
}

func (g *Graph) Interferes(a, b uint32) bool { return g.adj[a].Has(b) }

func (g *Graph) Degree(a uint32) int { return g.degree[a] }

func (g *Graph) Neighbors(a uint32) []uint32 {
	var out []uint32
	g.adj[a].ForEach(func(i uint32) { out = append(out, i) })
	return out
}

func (g *Graph) MoveRelated(a uint32) bool { return g.move[a].Count() > 0 }

func (g *Graph) MovePartners(a uint32) []uint32 {
	var out []uint32
	g.move[a].ForEach(func(i uint32) { out = append(out, i) })
	return out
}

// Build walks every block backward from its LiveOut (§4.7's "per-block
// liveness computed in reverse order"), maintaining the precise
// live-at-this-point set and recording an interference edge between a
// definition and every other simultaneously live name — except the
// single source of a move instruction's own destination, which instead
// becomes a move edge, so coalescing can still merge them later.
func Build(f *lir.Func, lv *Liveness) *Graph {
	g := NewGraph(lv.N)
	for _, id := range f.BlockIDs() {
		blk := f.Block(id)
		live := lv.LiveOut[id].Clone()
		for i := len(blk.Instrs) - 1; i >= 0; i-- {
			instr := f.Instr(blk.Instrs[i])
			d, hasDef := defOf(instr, lv.Space)
			var moveSrc uint32
			isMove := false
			if hasDef && instr.IsMove && len(instr.Operands) > 0 {
				if op := instr.Operands[0]; op.Kind == lir.OperandReg && op.Reg.Space == lv.Space {
					moveSrc = op.Reg.Name
					isMove = true
				}
			}
			if hasDef {
				live.ForEach(func(l uint32) {
					if isMove && l == moveSrc {
						return
					}
					g.AddEdge(d, l)
				})
				if isMove {
					g.AddMove(d, moveSrc)
				}
				live.Clear(d)
			}
			regsOf(instr, lv.Space, func(name uint32) { live.Set(name) })
		}
	}
	return g
}
