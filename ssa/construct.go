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

// Package ssa implements minimal-SSA construction and destruction (§4.3),
// grounded on original_source/netbee/src/nbnetvm/netvm_ir/cfg_ssa.h.
package ssa

import (
	"sort"

	"github.com/launix-de/nbjit/jiterr"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// Construct places φ nodes via dominance frontiers and renames every
// register reference into SSA form (§4.3 "Placement", "Renaming"). Callers
// must have already run graph.ComputeDominance on f.
func Construct(f *mir.Func, regs *regspace.Manager, idom map[mir.BlockID]mir.BlockID) error {
	defsites, orig := collectDefsites(f)
	placePhis(f, defsites, orig)
	renamer{f: f, regs: regs}.rename(f.Entry)
	f.SSA = true
	if live := liveInOfEntry(f); len(live) > 0 {
		return jiterr.New(jiterr.KindUndefinedLocal, f.Name, "undefined local variables present at entry")
	}
	return nil
}

// collectDefsites returns, for every storage location (space,name),
// the set of blocks that define it, and for every block, the set of
// storages it defines (orig(B) in §4.3).
func collectDefsites(f *mir.Func) (map[storage][]mir.BlockID, map[mir.BlockID]map[storage]bool) {
	defsites := make(map[storage][]mir.BlockID)
	orig := make(map[mir.BlockID]map[storage]bool)
	for _, b := range f.BlockIDs() {
		set := make(map[storage]bool)
		for _, nid := range f.Block(b).Stmts {
			n := f.Node(nid)
			if n.HasDef {
				s := storageOf(n.Def)
				if !set[s] {
					set[s] = true
					defsites[s] = append(defsites[s], b)
				}
			}
		}
		orig[b] = set
	}
	return defsites, orig
}

type storage struct {
	space regspace.Space
	name  uint32
}

func storageOf(r regspace.Register) storage { return storage{space: r.Space, name: r.Name} }

// placePhis runs the iterate-to-fixed-point φ-placement algorithm of
// §4.3 "Placement".
func placePhis(f *mir.Func, defsites map[storage][]mir.BlockID, orig map[mir.BlockID]map[storage]bool) {
	hasPhi := make(map[mir.BlockID]map[storage]bool)
	for _, b := range f.BlockIDs() {
		hasPhi[b] = make(map[storage]bool)
	}
	for s, defs := range defsites {
		worklist := append([]mir.BlockID(nil), defs...)
		onList := make(map[mir.BlockID]bool)
		for _, b := range defs {
			onList[b] = true
		}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			onList[b] = false
			for _, fb := range f.Block(b).DomFrontier {
				if hasPhi[fb][s] {
					continue
				}
				insertPhi(f, fb, s)
				hasPhi[fb][s] = true
				if !orig[fb][s] && !onList[fb] {
					worklist = append(worklist, fb)
					onList[fb] = true
				}
			}
		}
	}
}

func insertPhi(f *mir.Func, b mir.BlockID, s storage) {
	args := make([]mir.NodeID, len(f.Block(b).Preds))
	for i := range args {
		args[i] = mir.NoNode
	}
	phi := f.NewNode(mir.Node{
		Op:     mir.OpPhi,
		Def:    regspace.Register{Space: s.space, Name: s.name},
		HasDef: true,
		Extra:  &mir.StmtExtra{PhiArgs: args},
	})
	blk := f.Block(b)
	blk.Stmts = append([]mir.NodeID{phi}, blk.Stmts...)
}

// renamer implements §4.3 "Renaming": a dominator-tree preorder walk with
// a per-storage counter (next fresh version) and stack (current reaching
// version).
type renamer struct {
	f      *mir.Func
	regs   *regspace.Manager
	stacks map[storage][]uint32
	counts map[storage]uint32
}

func (r renamer) rename(entry mir.BlockID) {
	r.stacks = make(map[storage][]uint32)
	r.counts = make(map[storage]uint32)
	// renameBlock recurses into its own dominator-tree children at step
	// (4), so a single call here already visits the whole tree in
	// preorder; driving it a second time through graph.DominatorPreorder
	// would rename every non-entry block twice.
	r.renameBlock(entry)
}

func (r renamer) fresh(s storage) uint32 {
	v := r.counts[s]
	r.counts[s] = v + 1
	r.stacks[s] = append(r.stacks[s], v)
	return v
}

func (r renamer) top(s storage) (uint32, bool) {
	st := r.stacks[s]
	if len(st) == 0 {
		return 0, false
	}
	return st[len(st)-1], true
}

func (r renamer) pop(s storage) {
	st := r.stacks[s]
	if len(st) > 0 {
		r.stacks[s] = st[:len(st)-1]
	}
}

func (r renamer) renameBlock(b mir.BlockID) {
	pushed := make([]storage, 0, 4)
	f := r.f
	blk := f.Block(b)

	// (1) rename φ definitions
	for _, nid := range blk.Stmts {
		n := f.Node(nid)
		if n.Op != mir.OpPhi {
			break
		}
		s := storageOf(n.Def)
		v := r.fresh(s)
		n.Def.Version = v
		pushed = append(pushed, s)
	}

	// (2) rename uses then defs for each non-phi statement
	for _, nid := range blk.Stmts {
		n := f.Node(nid)
		if n.Op == mir.OpPhi {
			continue
		}
		renameUses(f, nid, r)
		if n.HasDef {
			s := storageOf(n.Def)
			v := r.fresh(s)
			n.Def.Version = v
			pushed = append(pushed, s)
		}
	}

	// (3) fill phi arg slots in each successor at this block's position
	for _, succ := range blk.Succs {
		sb := f.Block(succ)
		pos := predPosition(sb, b)
		for _, nid := range sb.Stmts {
			n := f.Node(nid)
			if n.Op != mir.OpPhi {
				break
			}
			s := storageOf(n.Def)
			if v, ok := r.top(s); ok {
				arg := f.NewNode(mir.Node{Op: mir.OpReg, Def: regspace.Register{Space: s.space, Name: s.name, Version: v}, HasDef: true})
				n.Extra.PhiArgs[pos] = arg
			} // else: left as NoNode, an "invalid" undefined argument (§4.3 Destruction)
		}
	}

	// (4) recurse into dominator-tree children
	for _, c := range blk.DomChildren {
		r.renameBlock(c)
	}

	// (5) pop versions pushed at steps (2) and (1)
	for i := len(pushed) - 1; i >= 0; i-- {
		r.pop(pushed[i])
	}
}

func predPosition(b *mir.Block, pred mir.BlockID) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return 0
}

func renameUses(f *mir.Func, nid mir.NodeID, r renamer) {
	n := f.Node(nid)
	for i, k := range n.Kids {
		if k == mir.NoNode {
			continue
		}
		kn := f.Node(k)
		if kn.Op == mir.OpReg {
			s := storageOf(kn.Def)
			if v, ok := r.top(s); ok {
				kn.Def.Version = v
			}
		} else {
			renameUses(f, k, r)
		}
		_ = i
	}
}

// liveInOfEntry returns, sorted by space then name, the storages that
// some statement reads (every OpReg walkUses reaches, a statement whose
// root is an OpReg included) and that no statement in f defines in any
// version; Construct surfaces them as "undefined local variables: ..."
// (§4.11). Versions are not compared, so a storage defined on only some
// of the paths to a use is not reported.
func liveInOfEntry(f *mir.Func) []storage {
	defined := make(map[storage]bool)
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			n := f.Node(nid)
			if n.HasDef {
				defined[storageOf(n.Def)] = true
			}
		}
	}
	var undefined []storage
	seen := make(map[storage]bool)
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			walkUses(f, nid, func(reg regspace.Register) {
				s := storageOf(reg)
				if !defined[s] && !seen[s] {
					seen[s] = true
					undefined = append(undefined, s)
				}
			})
		}
	}
	sort.Slice(undefined, func(i, j int) bool {
		if undefined[i].space != undefined[j].space {
			return undefined[i].space < undefined[j].space
		}
		return undefined[i].name < undefined[j].name
	})
	return undefined
}

func walkUses(f *mir.Func, nid mir.NodeID, fn func(regspace.Register)) {
	if nid == mir.NoNode {
		return
	}
	n := f.Node(nid)
	if n.Op == mir.OpReg {
		fn(n.Def)
		return
	}
	walkUses(f, n.Kids[0], fn)
	walkUses(f, n.Kids[1], fn)
}
