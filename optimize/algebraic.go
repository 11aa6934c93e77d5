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

import "github.com/launix-de/nbjit/mir"

// Algebraic folds identity and annihilator patterns where only one
// operand, not both, is constant — the case ConstantFold cannot reach
// (§4.4 "algebraic simplification"). A simplified node is rewritten into
// an OpReg pass-through to the surviving subtree, reusing the same
// statement-is-a-copy convention ssa.Destruct uses when lowering a φ.
type Algebraic struct{}

func (Algebraic) Name() string { return "algebraic-simplification" }

func (Algebraic) Run(f *mir.Func) (bool, error) {
	changed := false
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			if simplifyTree(f, nid) {
				changed = true
			}
		}
	}
	return changed, nil
}

func simplifyTree(f *mir.Func, nid mir.NodeID) bool {
	if nid == mir.NoNode {
		return false
	}
	n := f.Node(nid)
	changed := false
	if simplifyTree(f, n.Kids[0]) {
		changed = true
	}
	if simplifyTree(f, n.Kids[1]) {
		changed = true
	}
	passThrough, becomesZero := simplify(f, n)
	switch {
	case passThrough != mir.NoNode:
		n.Op = mir.OpReg
		n.Kids = [2]mir.NodeID{passThrough, mir.NoNode}
		changed = true
	case becomesZero:
		n.Op = mir.OpConstInt
		n.ConstInt = 0
		n.Kids = [2]mir.NodeID{mir.NoNode, mir.NoNode}
		changed = true
	}
	return changed
}

// simplify inspects a binary node and reports either a surviving subtree
// to pass through, or that the node always evaluates to the constant 0.
func simplify(f *mir.Func, n *mir.Node) (passThrough mir.NodeID, becomesZero bool) {
	l, lok := constOf(f, n.Kids[0])
	r, rok := constOf(f, n.Kids[1])
	switch n.Op {
	case mir.OpAdd:
		if rok && r == 0 {
			return n.Kids[0], false
		}
		if lok && l == 0 {
			return n.Kids[1], false
		}
	case mir.OpSub:
		if rok && r == 0 {
			return n.Kids[0], false
		}
	case mir.OpMul:
		if rok && r == 1 {
			return n.Kids[0], false
		}
		if lok && l == 1 {
			return n.Kids[1], false
		}
		if (rok && r == 0) || (lok && l == 0) {
			return mir.NoNode, true
		}
	case mir.OpDiv:
		if rok && r == 1 {
			return n.Kids[0], false
		}
	case mir.OpAnd:
		if (rok && r == 0) || (lok && l == 0) {
			return mir.NoNode, true
		}
	case mir.OpOr:
		if rok && r == 0 {
			return n.Kids[0], false
		}
		if lok && l == 0 {
			return n.Kids[1], false
		}
	case mir.OpXor:
		if rok && r == 0 {
			return n.Kids[0], false
		}
		if lok && l == 0 {
			return n.Kids[1], false
		}
	case mir.OpShl, mir.OpShr:
		if rok && r == 0 {
			return n.Kids[0], false
		}
	}
	return mir.NoNode, false
}
