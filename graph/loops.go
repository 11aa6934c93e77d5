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

package graph

import "github.com/launix-de/nbjit/mir"

// Edge is a directed CFG edge (u,v), used both for back edges and for the
// critical-edge splitter below.
type Edge struct {
	From, To mir.BlockID
}

// BackEdges returns every edge (u,v) such that v dominates u (§4.2 "Graph
// utilities"), given the idom map ComputeDominance produced.
func BackEdges(f *mir.Func, idom map[mir.BlockID]mir.BlockID) []Edge {
	var edges []Edge
	for _, u := range f.BlockIDs() {
		for _, v := range f.Block(u).Succs {
			if Dominates(f, idom, v, u) {
				edges = append(edges, Edge{From: u, To: v})
			}
		}
	}
	return edges
}

// ComputeNaturalLoops implements §4.2 "Loop analysis": for every back edge
// (u,v), collects every block that can reach u without passing through v;
// that set plus {v} is the natural loop. Every block in the loop has its
// Block.LoopLevel incremented once per loop it belongs to.
func ComputeNaturalLoops(f *mir.Func, backEdges []Edge) {
	for _, be := range backEdges {
		loop := naturalLoop(f, be)
		for b := range loop {
			f.Block(b).LoopLevel++
		}
	}
}

func naturalLoop(f *mir.Func, be Edge) map[mir.BlockID]bool {
	loop := map[mir.BlockID]bool{be.To: true, be.From: true}
	if be.From == be.To {
		return loop // self loop
	}
	stack := []mir.BlockID{be.From}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range f.Block(b).Preds {
			if p == be.To {
				continue // don't cross the loop header again
			}
			if !loop[p] {
				loop[p] = true
				stack = append(stack, p)
			}
		}
	}
	return loop
}

// SplitCriticalEdges inserts an empty block on every edge (u,v) where u
// has multiple successors and v has multiple predecessors (§4.2 "Critical
// edge splitting"). It is a precondition of SSA destruction (§4.3). The
// new block's HandlerTag is copied from u, matching "propagate the
// handler tag" in §4.2.
func SplitCriticalEdges(f *mir.Func) int {
	split := 0
	for _, u := range f.BlockIDs() {
		if !f.Block(u).HasMultipleSuccessors() {
			continue
		}
		for _, v := range append([]mir.BlockID(nil), f.Block(u).Succs...) {
			if !f.Block(v).HasMultiplePredecessors() {
				continue
			}
			w := f.NewBlock()
			f.Block(w).HandlerTag = f.Block(u).HandlerTag
			f.DeleteEdge(u, v)
			f.AddEdge(u, w)
			f.AddEdge(w, v)
			retargetTerminator(f, u, v, w)
			split++
		}
	}
	return split
}

// retargetTerminator rewrites u's terminator so any target referencing
// `from` now references `to`, keeping the IR's explicit jump targets in
// sync with the edge list AddEdge/DeleteEdge maintain.
func retargetTerminator(f *mir.Func, u, from, to mir.BlockID) {
	b := f.Block(u)
	if len(b.Stmts) == 0 {
		return
	}
	term := f.Node(b.Stmts[len(b.Stmts)-1])
	if term.Extra == nil {
		return
	}
	for i, t := range term.Extra.Targets {
		if t == from {
			term.Extra.Targets[i] = to
		}
	}
}

// HasCriticalEdges reports whether any edge still connects a
// multi-successor block to a multi-predecessor block (used by tests and
// by SSA destruction's precondition check).
func HasCriticalEdges(f *mir.Func) bool {
	for _, u := range f.BlockIDs() {
		if !f.Block(u).HasMultipleSuccessors() {
			continue
		}
		for _, v := range f.Block(u).Succs {
			if f.Block(v).HasMultiplePredecessors() {
				return true
			}
		}
	}
	return false
}
