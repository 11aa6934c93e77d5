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

// Package layout implements the trace builder and terminator normalizer
// (§4.8): it chooses a linear emission order for a function's blocks,
// then rewrites each block's control transfer to match that order —
// dropping a jump that would just fall through, inverting a branch whose
// true-target is already next, or patching in an explicit jump where
// neither successor lands next.
package layout

import (
	"sort"

	"github.com/carli2/hybridsort"
	"github.com/launix-de/nbjit/lir"
)

// Weigher returns the estimated execution weight of the edge from->to,
// used to prefer the heavier successor as the fall-through candidate.
// A nil Weigher treats every edge as equally weighted, falling back to
// successor order as the tie-break (the teacher's CFG already stores
// successors in a stable order).
type Weigher func(from, to lir.BlockID) float64

// Handler receives each laid-out block in emission order, mirroring
// original_source/netbee's TraceBuilder virtual dispatch on successor
// count (handle_no_succ_bb/handle_one_succ_bb/handle_two_succ_bb) — one
// callback per successor-count case, so a target supplies only the
// control-transfer shape it actually needs to rewrite.
type Handler interface {
	// HandleExit rewrites a no-successor block's terminator (return, or
	// a target-specific exit sequence).
	HandleExit(f *lir.Func, b lir.BlockID)

	// HandleFallthrough rewrites a one-successor block. next is the
	// block immediately following b in layout order (zero value if b is
	// last); isFallthrough reports whether next already is that one
	// successor, in which case any explicit jump to it should be
	// dropped rather than kept.
	HandleFallthrough(f *lir.Func, b lir.BlockID, succ lir.BlockID, next lir.BlockID, isFallthrough bool)

	// HandleBranch rewrites a two-successor (conditional) block. next is
	// the block immediately following b in layout order. If trueTarget
	// == next the handler should invert the condition and target
	// falseTarget instead, leaving the fall-through implicit; if
	// falseTarget == next it can leave the branch as is; otherwise it
	// must pick one target to fall through to and patch an unconditional
	// jump to the other.
	HandleBranch(f *lir.Func, b lir.BlockID, trueTarget, falseTarget, next lir.BlockID)
}

// BuildTrace picks an emission order for every block in f, starting from
// f.Entry (original_source's build_trace always begins there before
// sweeping the remaining unvisited blocks in list order). At each step
// the heaviest not-yet-placed successor of the current block is placed
// next; when the current trace runs out of unplaced successors, a new
// trace begins at the next unvisited block, chosen in f.BlockIDs() order
// (original_source's bbs_ptr sweep) rather than by weight, since at that
// point there is no "current" edge left to weigh.
func BuildTrace(f *lir.Func, weigh Weigher) []lir.BlockID {
	all := f.BlockIDs()
	visited := make(map[lir.BlockID]bool, len(all))
	var order []lir.BlockID

	beginTrace := func(start lir.BlockID) {
		b := start
		for !visited[b] {
			order = append(order, b)
			visited[b] = true

			succs := f.Block(b).Succs
			next, ok := heaviestUnvisited(b, succs, visited, weigh)
			if !ok {
				return
			}
			b = next
		}
	}

	beginTrace(f.Entry)
	for _, id := range all {
		if !visited[id] {
			beginTrace(id)
		}
	}
	return order
}

// heaviestUnvisited picks the not-yet-visited successor of b with the
// greatest weigh(b, succ), sorted via hybridsort the same way the
// teacher's bundled fast sort orders scan candidates — here ordering the
// (typically small) successor set by descending weight instead of a
// linear max-scan, so a target supplying per-edge profile weights for a
// wide switch block still gets a single consistent ordering rule.
func heaviestUnvisited(b lir.BlockID, succs []lir.BlockID, visited map[lir.BlockID]bool, weigh Weigher) (lir.BlockID, bool) {
	var candidates []lir.BlockID
	for _, s := range succs {
		if !visited[s] {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	if len(candidates) == 1 || weigh == nil {
		return candidates[0], true
	}
	weight := func(s lir.BlockID) float64 { return weigh(b, s) }
	hybridsort.Sort(bySuccessorWeight{ids: candidates, weight: weight})
	return candidates[0], true
}

type bySuccessorWeight struct {
	ids    []lir.BlockID
	weight func(lir.BlockID) float64
}

func (s bySuccessorWeight) Len() int { return len(s.ids) }
func (s bySuccessorWeight) Less(i, j int) bool {
	return s.weight(s.ids[i]) > s.weight(s.ids[j]) // heaviest first
}
func (s bySuccessorWeight) Swap(i, j int) { s.ids[i], s.ids[j] = s.ids[j], s.ids[i] }

var _ sort.Interface = bySuccessorWeight{}

// Normalize walks order (as BuildTrace produced it) and, for every block,
// dispatches to h according to its successor count (§4.8's one/two/zero
// successor cases), telling the handler which block lands immediately
// next in the chosen layout.
func Normalize(f *lir.Func, order []lir.BlockID, h Handler) {
	for i, id := range order {
		var next lir.BlockID
		hasNext := i+1 < len(order)
		if hasNext {
			next = order[i+1]
		}
		blk := f.Block(id)
		switch len(blk.Succs) {
		case 0:
			h.HandleExit(f, id)
		case 1:
			succ := blk.Succs[0]
			h.HandleFallthrough(f, id, succ, next, hasNext && succ == next)
		default:
			// a two-way conditional; wider fan-out (switches) is left to
			// the target's own jump-table lowering before layout runs.
			h.HandleBranch(f, id, blk.Succs[0], blk.Succs[1], next)
		}
	}
}
