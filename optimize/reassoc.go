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

// Redistribute canonicalizes commutative operators so a constant operand
// sits on the right (§4.4 "operand redistribution"), exposing patterns
// that Algebraic and Reassociate both assume.
type Redistribute struct{}

func (Redistribute) Name() string { return "operand-redistribution" }

func (Redistribute) Run(f *mir.Func) (bool, error) {
	changed := false
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			if redistributeTree(f, nid) {
				changed = true
			}
		}
	}
	return changed, nil
}

func redistributeTree(f *mir.Func, nid mir.NodeID) bool {
	if nid == mir.NoNode {
		return false
	}
	n := f.Node(nid)
	changed := false
	if redistributeTree(f, n.Kids[0]) {
		changed = true
	}
	if redistributeTree(f, n.Kids[1]) {
		changed = true
	}
	if !isCommutative(n.Op) {
		return changed
	}
	_, lconst := constOf(f, n.Kids[0])
	_, rconst := constOf(f, n.Kids[1])
	if lconst && !rconst {
		n.Kids[0], n.Kids[1] = n.Kids[1], n.Kids[0]
		changed = true
	}
	return changed
}

func isCommutative(op mir.Op) bool {
	switch op {
	case mir.OpAdd, mir.OpMul, mir.OpAnd, mir.OpOr, mir.OpXor, mir.OpCmpEq, mir.OpCmpNe:
		return true
	default:
		return false
	}
}

// Reassociate flattens (x op c1) op c2 into x op (c1 combined c2) for
// associative operators, so constants separated by a non-constant
// regroup into a single one that ConstantFold can then collapse (§4.4:
// "then run reassociation; repeat the whole sequence if reassociation
// changed anything").
type Reassociate struct{}

func (Reassociate) Name() string { return "reassociation" }

func (Reassociate) Run(f *mir.Func) (bool, error) {
	changed := false
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			if reassociateTree(f, nid) {
				changed = true
			}
		}
	}
	return changed, nil
}

func reassociateTree(f *mir.Func, nid mir.NodeID) bool {
	if nid == mir.NoNode {
		return false
	}
	n := f.Node(nid)
	changed := false
	if reassociateTree(f, n.Kids[0]) {
		changed = true
	}
	if reassociateTree(f, n.Kids[1]) {
		changed = true
	}
	if !isAssociative(n.Op) {
		return changed
	}
	c2, ok := constOf(f, n.Kids[1])
	if !ok {
		return changed
	}
	left := f.Node(n.Kids[0])
	if left.Op != n.Op {
		return changed
	}
	c1, ok := constOf(f, left.Kids[1])
	if !ok {
		return changed
	}
	v, ok := evalBinary(n.Op, c1, c2)
	if !ok {
		return changed
	}
	n.Kids[0] = left.Kids[0]
	n.Kids[1] = f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: v})
	return true
}

func isAssociative(op mir.Op) bool {
	switch op {
	case mir.OpAdd, mir.OpMul, mir.OpAnd, mir.OpOr, mir.OpXor:
		return true
	default:
		return false
	}
}
