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

// coloring assigns a node to a machine register once colorOnce commits
// the select stack.
type coloring struct {
	color map[uint32]regspace.Register
	alias map[uint32]uint32 // coalesced-away node -> its surviving representative
}

func (c *coloring) resolve(n uint32) uint32 {
	for {
		r, ok := c.alias[n]
		if !ok {
			return n
		}
		n = r
	}
}

// colorOnce runs one build→simplify→coalesce→freeze→select pass to
// completion (§4.7): simplify removes low-degree non-move nodes to a
// select stack; when no node is simplifiable, a coalescable move pair is
// merged if the conservative Briggs test allows it; when no coalesce
// applies either, the lowest-degree move-related node is frozen (its
// move edges dropped, making it simplify-eligible); when nothing else
// applies, the highest-degree remaining node is optimistically pushed as
// a potential spill. Select then pops the stack, assigning each node the
// lowest available color not used by an already-colored neighbour; a
// node with no available color is reported as an actual spill.
func colorOnce(g *Graph, n int, colors []regspace.Register, allowed map[uint32][]regspace.Register) (*coloring, []uint32) {
	k := len(colors)
	removed := make([]bool, n)
	alias := make(map[uint32]uint32)
	degree := make([]int, n)
	for i := 0; i < n; i++ {
		degree[i] = g.Degree(uint32(i))
	}

	activeNeighbors := func(a uint32) []uint32 {
		var out []uint32
		for _, b := range g.Neighbors(a) {
			if !removed[b] && g.resolveAlive(alias, b) == b {
				out = append(out, b)
			}
		}
		return out
	}

	var stack []uint32
	remaining := n
	for remaining > 0 {
		progressed := false

		// simplify: any non-move-related node with degree < k
		for i := 0; i < n; i++ {
			u := uint32(i)
			if removed[u] || g.resolveAlive(alias, u) != u {
				continue
			}
			if g.MoveRelated(u) {
				continue
			}
			if k > 0 && len(activeNeighbors(u)) < k {
				stack = append(stack, u)
				removed[u] = true
				remaining--
				progressed = true
			}
		}
		if progressed {
			continue
		}

		// coalesce: merge a move-related pair under the conservative
		// Briggs test (the combined node has fewer than k neighbours of
		// degree >= k), consulting allowed-color intersection instead of
		// a space-compatibility predicate (dense mapping already erased
		// space distinctions among candidates).
		coalesced := false
		for i := 0; i < n && !coalesced; i++ {
			u := uint32(i)
			if removed[u] || g.resolveAlive(alias, u) != u {
				continue
			}
			for _, v := range g.MovePartners(u) {
				v = g.resolveAlive(alias, v)
				if v == u || removed[v] {
					continue
				}
				if g.Interferes(u, v) {
					continue
				}
				if !allowedCompatible(allowed, u, v) {
					continue
				}
				if briggsSafe(g, alias, removed, u, v, k) {
					mergeNodes(g, alias, u, v)
					// v is now an alias of u, not a separately-active
					// node — account for it the same way a stack push
					// would, even though it never occupies the stack
					// itself (its color is resolved from u's at the end).
					remaining--
					coalesced = true
					break
				}
			}
		}
		if coalesced {
			progressed = true
			continue
		}

		// freeze: drop the move edges of the lowest-degree move-related
		// node so a later simplify round can take it.
		bestFreeze := -1
		bestDeg := 1 << 30
		for i := 0; i < n; i++ {
			u := uint32(i)
			if removed[u] || g.resolveAlive(alias, u) != u || !g.MoveRelated(u) {
				continue
			}
			d := len(activeNeighbors(u))
			if d < bestDeg {
				bestDeg = d
				bestFreeze = i
			}
		}
		if bestFreeze >= 0 {
			u := uint32(bestFreeze)
			for _, v := range g.MovePartners(u) {
				g.RemoveMove(u, v)
			}
			progressed = true
			continue
		}

		// select-spill: push the highest-degree remaining node as an
		// optimistic potential spill (heuristic: raw interference
		// degree; a loop-depth-aware heuristic is a natural target-side
		// refinement via a supplied degree bias, not modeled here).
		bestSpill := -1
		bestSpillDeg := -1
		for i := 0; i < n; i++ {
			u := uint32(i)
			if removed[u] || g.resolveAlive(alias, u) != u {
				continue
			}
			d := len(activeNeighbors(u))
			if d > bestSpillDeg {
				bestSpillDeg = d
				bestSpill = i
			}
		}
		if bestSpill < 0 {
			break
		}
		u := uint32(bestSpill)
		stack = append(stack, u)
		removed[u] = true
		remaining--
	}

	col := &coloring{color: make(map[uint32]regspace.Register), alias: alias}
	var spills []uint32
	for i := len(stack) - 1; i >= 0; i-- {
		u := stack[i]
		used := map[regspace.Register]bool{}
		for _, v := range g.Neighbors(u) {
			rv := g.resolveAlive(alias, v)
			if c, ok := col.color[rv]; ok {
				used[c] = true
			}
		}
		pool := colors
		if a, ok := allowed[u]; ok {
			pool = a
		}
		assigned := false
		for _, c := range pool {
			if !used[c] {
				col.color[u] = c
				assigned = true
				break
			}
		}
		if !assigned {
			spills = append(spills, u)
		}
	}
	// every coalesced-away node shares its representative's color.
	for i := 0; i < n; i++ {
		u := uint32(i)
		if r := col.resolve(u); r != u {
			if c, ok := col.color[r]; ok {
				col.color[u] = c
			}
		}
	}
	return col, spills
}

func (g *Graph) resolveAlive(alias map[uint32]uint32, n uint32) uint32 {
	for {
		r, ok := alias[n]
		if !ok {
			return n
		}
		n = r
	}
}

func allowedCompatible(allowed map[uint32][]regspace.Register, a, b uint32) bool {
	pa, oka := allowed[a]
	pb, okb := allowed[b]
	if !oka || !okb {
		return true
	}
	set := make(map[regspace.Register]bool, len(pa))
	for _, c := range pa {
		set[c] = true
	}
	for _, c := range pb {
		if set[c] {
			return true
		}
	}
	return false
}

// briggsSafe implements the conservative Briggs coalescing test: merging
// u and v is safe if the number of neighbours (of either, deduplicated)
// with degree >= k is itself less than k.
func briggsSafe(g *Graph, alias map[uint32]uint32, removed []bool, u, v uint32, k int) bool {
	seen := map[uint32]bool{}
	significant := 0
	count := func(x uint32) {
		for _, nb := range g.Neighbors(x) {
			r := g.resolveAlive(alias, nb)
			if removed[r] || seen[r] {
				continue
			}
			seen[r] = true
			deg := len(func() []uint32 {
				var out []uint32
				for _, w := range g.Neighbors(r) {
					rw := g.resolveAlive(alias, w)
					if !removed[rw] {
						out = append(out, rw)
					}
				}
				return out
			}())
			if deg >= k {
				significant++
			}
		}
	}
	count(u)
	count(v)
	return significant < k
}

// mergeNodes folds v into u in the graph: every edge v had becomes an
// edge of u, and v is aliased to u for the remainder of this pass.
func mergeNodes(g *Graph, alias map[uint32]uint32, u, v uint32) {
	for _, w := range g.Neighbors(v) {
		rw := g.resolveAlive(alias, w)
		if rw != u {
			g.AddEdge(u, rw)
		}
	}
	for _, w := range g.MovePartners(v) {
		rw := g.resolveAlive(alias, w)
		if rw != u {
			g.AddMove(u, rw)
		}
	}
	alias[v] = u
}

// commit rewrites every dense-name occurrence of space in f's instructions
// to the machine register colorOnce assigned it — the same in-place
// Def/Operands walk DenseMapLIR uses to install its dense names in the
// first place, run in reverse to remove them. regs.Rename also records the
// mapping in §4.1's rename table, so anything still holding a pre-color
// regspace.SpaceVirtual reference (a debug dump, a pending diagnostic)
// resolves to where the register actually ended up.
func commit(f *lir.Func, space regspace.Space, col *coloring, regs *regspace.Manager) map[regspace.Register]bool {
	used := make(map[regspace.Register]bool)
	for i, c := range col.color {
		regs.Rename(regspace.Register{Space: space, Name: i}, c.Space, c.Name)
		used[c] = true
	}

	for _, id := range f.BlockIDs() {
		blk := f.Block(id)
		for _, iid := range blk.Instrs {
			instr := f.Instr(iid)
			if instr.HasDef && instr.Def.Space == space {
				if c, ok := col.color[instr.Def.Name]; ok {
					instr.Def = c
				}
			}
			for i := range instr.Operands {
				if instr.Operands[i].Kind == lir.OperandReg && instr.Operands[i].Reg.Space == space {
					if c, ok := col.color[instr.Operands[i].Reg.Name]; ok {
						instr.Operands[i].Reg = c
					}
				}
			}
		}
	}

	return used
}
