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

// Package graph implements the CFG-independent graph algorithms of §4.2:
// traversal orders, dominance (Cooper-Harvey-Kennedy), natural-loop
// analysis via back edges, and critical-edge splitting. It is grounded on
// netvm_ir/cfgdom.h and cfg_loop_analyzer.h from original_source/: the
// original's GraphNumberer (reverse-postorder numbering via a visitor with
// ExecuteOnNodeFrom) becomes the plain Numbering function below, and the
// IDom_IterationFunctor's "finger" walk becomes intersect.
package graph

import "github.com/launix-de/nbjit/mir"

// Numbering assigns each reachable block a reverse-postorder number,
// required by ComputeDominance (the "finger" intersection walk needs a
// numbering where every block's number is greater than all of its
// dominator-tree ancestors').
func Numbering(f *mir.Func) map[mir.BlockID]int32 {
	num := make(map[mir.BlockID]int32)
	var n int32
	f.Walk(mir.ReversePostorder, true, func(b mir.BlockID) {
		num[b] = n
		f.Block(b).PostOrderNum = n
		n++
		num[b] = n - 1
	})
	return num
}

// Dominance holds, per reachable block, its immediate dominator. Use
// DomChildren/DomFrontier (computed by ComputeDominance, which also
// writes them onto Block.IDom/DomChildren/DomFrontier directly) for the
// dominator tree and dominance frontier.
type Dominance struct {
	IDom map[mir.BlockID]mir.BlockID
}

// ComputeDominance implements the iterative Cooper-Harvey-Kennedy
// algorithm (§4.2 "Dominance"): number blocks in reverse postorder,
// initialize idom to undefined except for Entry (idom=itself), then
// iterate until no block's idom changes, taking at each step the
// intersection of all processed predecessors' current idoms by walking
// up via postorder numbers. It also populates Block.IDom, DomChildren and
// DomFrontier on every live block.
func ComputeDominance(f *mir.Func) *Dominance {
	rpo := Numbering(f)
	order := make([]mir.BlockID, 0, len(rpo))
	f.Walk(mir.ReversePostorder, true, func(b mir.BlockID) { order = append(order, b) })

	idom := make(map[mir.BlockID]mir.BlockID)
	idom[f.Entry] = f.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == f.Entry {
				continue
			}
			var newIdom mir.BlockID = mir.NoBlock
			first := true
			for _, p := range f.Block(b).Preds {
				if _, ok := idom[p]; !ok {
					continue // predecessor not yet processed this pass
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(idom, rpo, newIdom, p)
			}
			if newIdom != mir.NoBlock && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range order {
		d, ok := idom[b]
		f.Block(b).IDom = mir.NoBlock
		f.Block(b).DomChildren = nil
		if ok {
			f.Block(b).IDom = d
		}
	}
	for _, b := range order {
		if b == f.Entry {
			continue
		}
		d := idom[b]
		if d != mir.NoBlock {
			f.Block(d).DomChildren = append(f.Block(d).DomChildren, b)
		}
	}
	computeDominanceFrontier(f, idom, order)

	return &Dominance{IDom: idom}
}

// intersect walks two candidate idoms up the (partially built) dominator
// tree using postorder/rpo numbers until they agree, the "finger"
// technique cfgDom.h's IDom_IterationFunctor uses.
func intersect(idom map[mir.BlockID]mir.BlockID, rpo map[mir.BlockID]int32, a, b mir.BlockID) mir.BlockID {
	for a != b {
		for rpo[a] > rpo[b] {
			a = idom[a]
		}
		for rpo[b] > rpo[a] {
			b = idom[b]
		}
	}
	return a
}

// computeDominanceFrontier walks, for every block with >=2 predecessors,
// up the dominator tree from each predecessor until (but not including)
// the block's idom (§4.2).
func computeDominanceFrontier(f *mir.Func, idom map[mir.BlockID]mir.BlockID, order []mir.BlockID) {
	for _, b := range order {
		f.Block(b).DomFrontier = nil
	}
	for _, b := range order {
		preds := f.Block(b).Preds
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			if _, ok := idom[p]; !ok {
				continue
			}
			runner := p
			for runner != idom[b] {
				fr := f.Block(runner)
				if !containsBlock(fr.DomFrontier, b) {
					fr.DomFrontier = append(fr.DomFrontier, b)
				}
				next, ok := idom[runner]
				if !ok || next == runner {
					break
				}
				runner = next
			}
		}
	}
}

func containsBlock(s []mir.BlockID, v mir.BlockID) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// DominatorPreorder walks the dominator tree (built by ComputeDominance)
// in preorder, as SSA renaming requires (§4.3 "Renaming").
func DominatorPreorder(f *mir.Func, visit func(mir.BlockID)) {
	var walk func(mir.BlockID)
	walk = func(b mir.BlockID) {
		visit(b)
		for _, c := range f.Block(b).DomChildren {
			walk(c)
		}
	}
	walk(f.Entry)
}

// Dominates reports whether a dominates b (inclusive: a dominates a).
func Dominates(f *mir.Func, idom map[mir.BlockID]mir.BlockID, a, b mir.BlockID) bool {
	for {
		if a == b {
			return true
		}
		next, ok := idom[b]
		if !ok || next == b {
			return false
		}
		b = next
	}
}
