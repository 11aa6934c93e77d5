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

// ConstantFold evaluates any binary operator both of whose operands are
// already OpConstInt leaves (§4.4 "constant folding"), grounded on the
// kanso ConstantFolding pass's two-pass "identify then fold" shape, here
// collapsed into one bottom-up tree walk since MIR expressions are owned
// trees rather than a flat instruction list.
type ConstantFold struct{}

func (ConstantFold) Name() string { return "constant-folding" }

func (ConstantFold) Run(f *mir.Func) (bool, error) {
	changed := false
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			if foldTree(f, nid) {
				changed = true
			}
		}
	}
	return changed, nil
}

func foldTree(f *mir.Func, nid mir.NodeID) bool {
	if nid == mir.NoNode {
		return false
	}
	n := f.Node(nid)
	changed := false
	if foldTree(f, n.Kids[0]) {
		changed = true
	}
	if foldTree(f, n.Kids[1]) {
		changed = true
	}
	l, lok := constOf(f, n.Kids[0])
	r, rok := constOf(f, n.Kids[1])
	if lok && rok {
		if v, ok := evalBinary(n.Op, l, r); ok {
			n.Op = mir.OpConstInt
			n.ConstInt = v
			n.Kids = [2]mir.NodeID{mir.NoNode, mir.NoNode}
			changed = true
		}
	}
	return changed
}

func constOf(f *mir.Func, nid mir.NodeID) (int64, bool) {
	if nid == mir.NoNode || f.Node(nid).Op != mir.OpConstInt {
		return 0, false
	}
	return f.Node(nid).ConstInt, true
}

func evalBinary(op mir.Op, l, r int64) (int64, bool) {
	switch op {
	case mir.OpAdd:
		return l + r, true
	case mir.OpSub:
		return l - r, true
	case mir.OpMul:
		return l * r, true
	case mir.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case mir.OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case mir.OpAnd:
		return l & r, true
	case mir.OpOr:
		return l | r, true
	case mir.OpXor:
		return l ^ r, true
	case mir.OpShl:
		return l << uint(r), true
	case mir.OpShr:
		return l >> uint(r), true
	case mir.OpCmpEq:
		return boolInt(l == r), true
	case mir.OpCmpNe:
		return boolInt(l != r), true
	case mir.OpCmpLt:
		return boolInt(l < r), true
	case mir.OpCmpLe:
		return boolInt(l <= r), true
	case mir.OpCmpGt:
		return boolInt(l > r), true
	case mir.OpCmpGe:
		return boolInt(l >= r), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
