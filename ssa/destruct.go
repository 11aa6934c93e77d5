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

package ssa

import (
	"github.com/launix-de/nbjit/graph"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// Destruct lowers every φ of the form x_k = φ(x_i from P1, x_j from P2, ...)
// into a copy x_k <- x_i at the tail of Pi (before the terminator), for
// every predecessor, then removes the φ (§4.3 "Destruction"). Precondition:
// no critical edges (graph.SplitCriticalEdges must have already run), so
// inserting a copy at the tail of a predecessor can never affect any other
// successor of that predecessor.
func Destruct(f *mir.Func) error {
	if graph.HasCriticalEdges(f) {
		return errCriticalEdges
	}
	for _, b := range f.BlockIDs() {
		blk := f.Block(b)
		var phis []mir.NodeID
		i := 0
		for ; i < len(blk.Stmts); i++ {
			n := f.Node(blk.Stmts[i])
			if n.Op != mir.OpPhi {
				break
			}
			phis = append(phis, blk.Stmts[i])
		}
		blk.Stmts = blk.Stmts[i:]
		for idx, pred := range blk.Preds {
			for _, phiID := range phis {
				phi := f.Node(phiID)
				argID := phi.Extra.PhiArgs[idx]
				if argID == mir.NoNode {
					continue // undefined argument: path never observes this value (§4.3)
				}
				copyNode := f.NewNode(mir.Node{
					Op:     mir.OpReg,
					Def:    phi.Def,
					HasDef: true,
					Kids:   [2]mir.NodeID{argID, mir.NoNode},
				})
				insertBeforeTerminator(f, pred, copyNode)
			}
		}
	}
	f.SSA = false
	return nil
}

var errCriticalEdges = &destructError{"cannot destruct SSA: critical edges present"}

type destructError struct{ msg string }

func (e *destructError) Error() string { return e.msg }

func insertBeforeTerminator(f *mir.Func, b mir.BlockID, stmt mir.NodeID) {
	blk := f.Block(b)
	if len(blk.Stmts) == 0 {
		blk.Stmts = append(blk.Stmts, stmt)
		return
	}
	last := f.Node(blk.Stmts[len(blk.Stmts)-1])
	if last.Op.IsTerminator() {
		blk.Stmts = append(blk.Stmts[:len(blk.Stmts)-1], stmt, blk.Stmts[len(blk.Stmts)-1])
	} else {
		blk.Stmts = append(blk.Stmts, stmt)
	}
}

// PruneDeadPhis repeatedly removes any φ whose result register is never
// used, since a removal can render another φ's only use dead in turn
// (§4.3 "Spurious φ removal"). Registers are value-identified
// (space,name,version), so "used" is tracked as a register set rather
// than a NodeID use-list.
func PruneDeadPhis(f *mir.Func) int {
	removed := 0
	for {
		used := make(map[regspace.Register]bool)
		for _, b := range f.BlockIDs() {
			for _, nid := range f.Block(b).Stmts {
				markUses(f, nid, used)
			}
		}
		changedThisRound := false
		for _, b := range f.BlockIDs() {
			blk := f.Block(b)
			kept := blk.Stmts[:0]
			for _, nid := range blk.Stmts {
				n := f.Node(nid)
				if n.Op == mir.OpPhi && !used[n.Def] {
					removed++
					changedThisRound = true
					continue
				}
				kept = append(kept, nid)
			}
			blk.Stmts = kept
		}
		if !changedThisRound {
			break
		}
	}
	return removed
}

// markUses marks every register a statement (nid) reads. A statement's own
// Def is never itself "a use" merely by virtue of the statement existing
// (an OpReg-rooted copy "d <- e" reads e, not d) — OpReg only denotes a use
// when encountered at a kid/φ-arg position, so the statement root and its
// kid positions are walked with different rules via markUseKid.
func markUses(f *mir.Func, nid mir.NodeID, used map[regspace.Register]bool) {
	if nid == mir.NoNode {
		return
	}
	n := f.Node(nid)
	markUseKid(f, n.Kids[0], used)
	markUseKid(f, n.Kids[1], used)
	if n.Extra != nil {
		for _, a := range n.Extra.PhiArgs {
			markUseKid(f, a, used)
		}
	}
}

func markUseKid(f *mir.Func, nid mir.NodeID, used map[regspace.Register]bool) {
	if nid == mir.NoNode {
		return
	}
	n := f.Node(nid)
	if n.Op == mir.OpReg {
		used[n.Def] = true
		return
	}
	markUseKid(f, n.Kids[0], used)
	markUseKid(f, n.Kids[1], used)
}
