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

// ConstProp implements §4.4 "constant propagation". While the function is
// in SSA form every register denotes exactly one definition, so a single
// pass collecting "register -> its OpConstInt value" (for registers
// defined directly by a constant leaf) is already a valid reaching-value
// map; replacing every OpReg use of such a register with a copy of the
// constant is then sound everywhere that register is still in scope.
// Leaves the (now likely dead) constant-defining statement for DCE to
// remove.
type ConstProp struct{}

func (ConstProp) Name() string { return "constant-propagation" }

func (ConstProp) Run(f *mir.Func) (bool, error) {
	consts := make(map[regspace.Register]int64)
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			n := f.Node(nid)
			if n.HasDef && n.Op == mir.OpConstInt {
				consts[n.Def] = n.ConstInt
			}
		}
	}
	if len(consts) == 0 {
		return false, nil
	}
	changed := false
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			if propagateInto(f, nid, consts) {
				changed = true
			}
		}
	}
	return changed, nil
}

func propagateInto(f *mir.Func, nid mir.NodeID, consts map[regspace.Register]int64) bool {
	if nid == mir.NoNode {
		return false
	}
	n := f.Node(nid)
	changed := false
	for i := range n.Kids {
		if propagateKid(f, &n.Kids[i], consts) {
			changed = true
		}
	}
	if n.Extra != nil {
		for i := range n.Extra.PhiArgs {
			if propagateKid(f, &n.Extra.PhiArgs[i], consts) {
				changed = true
			}
		}
	}
	return changed
}

func propagateKid(f *mir.Func, slot *mir.NodeID, consts map[regspace.Register]int64) bool {
	k := *slot
	if k == mir.NoNode {
		return false
	}
	kn := f.Node(k)
	if kn.Op == mir.OpReg {
		if v, ok := consts[kn.Def]; ok {
			kn.Op = mir.OpConstInt
			kn.ConstInt = v
			kn.Kids = [2]mir.NodeID{mir.NoNode, mir.NoNode}
			return true
		}
		return false
	}
	return propagateInto(f, k, consts)
}
