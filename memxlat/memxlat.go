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

// Package memxlat implements the memory translator (§4.5): it rewrites
// typed load-from-X / store-to-X opcodes into the flat base+offset form
// instruction selection's BURG table expects, mirroring
// mem_translator.{h,cpp}'s MemTranslator::operator() tree rewrite.
//
// Translate expects post-SSA-destruction MIR (it runs after scalar
// optimization and SSA destruction, before instruction selection, per
// §4 component ordering) since it synthesizes fresh expression-only
// subtrees with no SSA version tracking of their own.
package memxlat

import (
	"github.com/launix-de/nbjit/mir"
)

// Space identifies which address space a typed load/store targets. It is
// stamped onto the OpLoadBase leaf Translate synthesizes (Node.ConstInt)
// so a single generic base-loading opcode stays parameterized by the
// space it addresses — the table-driven instruction selector switches on
// it the way the original's getBaseCode switched on MEM_PACKET/MEM_INFO/
// MEM_DATA/MEM_SHARED (extended here with MEM_EXCHANGE, since mir's Op
// enum already carries a typed Exchange load/store pair §4.5 names).
type Space int64

const (
	SpacePacket Space = iota
	SpaceInfo
	SpaceData
	SpaceShared
	SpaceExchange
)

// spaceOf maps a typed load/store opcode to the address space it
// accesses and the flat opcode it reduces to, mirroring getMemCode/
// getBaseCode's two parallel switches.
func spaceOf(op mir.Op) (Space, mir.Op, bool) {
	switch op {
	case mir.OpLoadPacket:
		return SpacePacket, mir.OpLoadFlat, true
	case mir.OpLoadInfo:
		return SpaceInfo, mir.OpLoadFlat, true
	case mir.OpLoadData:
		return SpaceData, mir.OpLoadFlat, true
	case mir.OpLoadShared:
		return SpaceShared, mir.OpLoadFlat, true
	case mir.OpLoadExchange:
		return SpaceExchange, mir.OpLoadFlat, true
	case mir.OpStorePacket:
		return SpacePacket, mir.OpStoreFlat, true
	case mir.OpStoreInfo:
		return SpaceInfo, mir.OpStoreFlat, true
	case mir.OpStoreData:
		return SpaceData, mir.OpStoreFlat, true
	case mir.OpStoreShared:
		return SpaceShared, mir.OpStoreFlat, true
	case mir.OpStoreExchange:
		return SpaceExchange, mir.OpStoreFlat, true
	default:
		return 0, mir.OpInvalid, false
	}
}

// Translate rewrites every typed memory access reachable from a
// statement root in f into the flat base+offset form, in place.
func Translate(f *mir.Func) {
	for _, b := range f.BlockIDs() {
		blk := f.Block(b)
		for _, nid := range blk.Stmts {
			translateTree(f, nid)
		}
	}
}

// translateTree walks a statement's expression tree bottom-up (kids
// first, exactly as MemTranslator::operator() recurses into both kids
// before inspecting the node itself) and rewrites any memory-access node
// it finds.
func translateTree(f *mir.Func, nid mir.NodeID) {
	if nid == mir.NoNode {
		return
	}
	n := f.Node(nid)
	translateTree(f, n.Kids[0])
	translateTree(f, n.Kids[1])
	if n.Extra != nil {
		for _, a := range n.Extra.PhiArgs {
			translateTree(f, a)
		}
	}

	space, flat, ok := spaceOf(n.Op)
	if !ok {
		return
	}

	// Offset is always kid 0, for both loads and stores (the original's
	// comment on offset_kid notes this was once opcode-dependent and is
	// now fixed at 0 for every memory opcode).
	offset := n.Kids[0]

	base := f.NewNode(mir.Node{Op: mir.OpLoadBase, ConstInt: int64(space)})
	add := f.NewNode(mir.Node{Op: mir.OpAdd, Kids: [2]mir.NodeID{base, offset}})

	n.Kids[0] = add
	n.Op = flat
}
