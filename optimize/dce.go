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

// DCE implements §4.4 "dead-code elimination": delete any statement that
// has no side effects, is not a jump, defines at least one register, and
// whose defined registers are used nowhere. A φ is useful only if it
// transitively reaches a non-φ use; since every round recomputes "used"
// from the statements that survived the previous round, a chain of
// phi-only uses collapses to the fixed point in a handful of rounds,
// exactly as ssa.PruneDeadPhis does for the φ-only special case.
type DCE struct{}

func (DCE) Name() string { return "dead-code-elimination" }

func (DCE) Run(f *mir.Func) (bool, error) {
	anyChanged := false
	for {
		used := computeUsed(f)
		changedThisRound := false
		for _, b := range f.BlockIDs() {
			blk := f.Block(b)
			kept := blk.Stmts[:0]
			for _, nid := range blk.Stmts {
				n := f.Node(nid)
				if isDeletable(n) && !used[n.Def] {
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
		anyChanged = true
	}
	return anyChanged, nil
}

func isDeletable(n *mir.Node) bool {
	if n.Op.IsTerminator() {
		return false
	}
	if hasSideEffect(n.Op) {
		return false
	}
	return n.HasDef
}

func hasSideEffect(op mir.Op) bool {
	switch op {
	case mir.OpStorePacket, mir.OpStoreInfo, mir.OpStoreData, mir.OpStoreShared, mir.OpStoreExchange,
		mir.OpStoreFlat, mir.OpCall, mir.OpSendPacket, mir.OpLookupSet:
		return true
	default:
		return false
	}
}

// computeUsed marks every register read by any statement currently
// present in f. A statement's own Def is never itself "a use" (an
// OpReg-rooted copy "d <- e" reads e, not d); only kid/φ-arg positions
// are checked for OpReg.
func computeUsed(f *mir.Func) map[regspace.Register]bool {
	used := make(map[regspace.Register]bool)
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			n := f.Node(nid)
			markUseKid(f, n.Kids[0], used)
			markUseKid(f, n.Kids[1], used)
			if n.Extra != nil {
				for _, a := range n.Extra.PhiArgs {
					markUseKid(f, a, used)
				}
			}
		}
	}
	return used
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
