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
	"github.com/launix-de/nbjit/graph"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// BoundsCheckElim implements §4.4 "bounds-check elimination": a guard
// block's Branch on an offset-vs-bound comparison is treated as proving
// that comparison true along its safe (Targets[0]) edge; any
// dominator-tree descendant re-testing the identical comparison is
// folded straight to the safe edge. Runs over the dominator tree so a
// guard proven on one path never leaks into a sibling path that never
// took it.
type BoundsCheckElim struct{}

func (BoundsCheckElim) Name() string { return "bounds-check-elimination" }

func (BoundsCheckElim) Run(f *mir.Func) (bool, error) {
	graph.ComputeDominance(f) // populates Block.DomChildren, consumed below
	changed := false
	var walk func(b mir.BlockID, proven map[guardKey]mir.BlockID)
	walk = func(b mir.BlockID, proven map[guardKey]mir.BlockID) {
		blk := f.Block(b)
		local := proven
		if len(blk.Stmts) > 0 {
			term := f.Node(blk.Stmts[len(blk.Stmts)-1])
			if term.Op == mir.OpBranch {
				if key, ok := guardKeyOf(f, term); ok {
					if _, known := proven[key]; known {
						rewriteToJump(f, b, term, term.Extra.Targets[0], term.Extra.Targets[1])
						changed = true
					} else {
						local = cloneGuards(proven)
						local[key] = term.Extra.Targets[0]
					}
				}
			}
		}
		for _, c := range blk.DomChildren {
			walk(c, local)
		}
	}
	walk(f.Entry, map[guardKey]mir.BlockID{})
	return changed, nil
}

type operandKey struct {
	isConst  bool
	constVal int64
	reg      regspace.Register
}

type guardKey struct {
	op    mir.Op
	left  operandKey
	right operandKey
}

func keyOfOperand(f *mir.Func, nid mir.NodeID) (operandKey, bool) {
	if nid == mir.NoNode {
		return operandKey{}, false
	}
	n := f.Node(nid)
	switch n.Op {
	case mir.OpConstInt:
		return operandKey{isConst: true, constVal: n.ConstInt}, true
	case mir.OpReg:
		return operandKey{reg: n.Def}, true
	default:
		return operandKey{}, false
	}
}

func guardKeyOf(f *mir.Func, term *mir.Node) (guardKey, bool) {
	if term.Kids[0] == mir.NoNode {
		return guardKey{}, false
	}
	cond := f.Node(term.Kids[0])
	if !isComparison(cond.Op) {
		return guardKey{}, false
	}
	l, lok := keyOfOperand(f, cond.Kids[0])
	r, rok := keyOfOperand(f, cond.Kids[1])
	if !lok || !rok {
		return guardKey{}, false
	}
	return guardKey{op: cond.Op, left: l, right: r}, true
}

func isComparison(op mir.Op) bool {
	switch op {
	case mir.OpCmpEq, mir.OpCmpNe, mir.OpCmpLt, mir.OpCmpLe, mir.OpCmpGt, mir.OpCmpGe:
		return true
	default:
		return false
	}
}

func otherTarget(term *mir.Node, safe mir.BlockID) mir.BlockID {
	if term.Extra.Targets[0] == safe {
		return term.Extra.Targets[1]
	}
	return term.Extra.Targets[0]
}

func cloneGuards(m map[guardKey]mir.BlockID) map[guardKey]mir.BlockID {
	out := make(map[guardKey]mir.BlockID, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
