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

// CompatiblePredicate lets a target veto a coalesce (§4.4: "a pluggable
// compatibility check may refuse a coalesce, e.g. different register
// spaces, coprocessor-bank constraints"). regalloc's own coalescer
// (build/coalesce phases, §4.7) takes no predicate; it refuses a
// coalesce when the two nodes' Allowed register lists do not intersect.
type CompatiblePredicate func(a, b regspace.Register) bool

// DefaultCompatible refuses to coalesce across spaces; a target wiring a
// coprocessor bank with extra placement constraints supplies its own.
func DefaultCompatible(a, b regspace.Register) bool { return a.Space == b.Space }

// CopyFold implements §4.4 "copy folding": collect `a <- b` copy pairs
// (an OpReg-rooted statement whose sole kid is itself an OpReg leaf —
// the same statement-is-a-copy shape ssa.Destruct produces when
// lowering a φ), close them under transitive non-interfering coalescing,
// and rewrite every use of a folded variable to its representative.
type CopyFold struct {
	Compatible CompatiblePredicate
}

func NewCopyFold() *CopyFold { return &CopyFold{Compatible: DefaultCompatible} }

func (p *CopyFold) Name() string { return "copy-folding" }

func (p *CopyFold) Run(f *mir.Func) (bool, error) {
	compat := p.Compatible
	if compat == nil {
		compat = DefaultCompatible
	}
	live := ComputeLiveness(f)
	uf := newUnionFind()
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			n := f.Node(nid)
			if n.Op != mir.OpReg || !n.HasDef || n.Kids[0] == mir.NoNode {
				continue
			}
			src := f.Node(n.Kids[0])
			if src.Op != mir.OpReg {
				continue
			}
			a, b2 := n.Def, src.Def
			if a.SameStorage(b2) || !compat(a, b2) || interferes(live, f, a, b2) {
				continue
			}
			uf.union(a, b2)
		}
	}
	if len(uf.parent) == 0 {
		return false, nil
	}
	changed := false
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			if rewriteToRepresentative(f, nid, uf) {
				changed = true
			}
		}
	}
	return changed, nil
}

// interferes conservatively reports whether a and b are ever live
// simultaneously, approximated at block granularity (both present in the
// same block's LiveOut set): this never under-reports an interference,
// though it may refuse a coalesce a finer-grained, per-statement
// liveness would have allowed.
func interferes(live *Liveness, f *mir.Func, a, b regspace.Register) bool {
	if a.SameStorage(b) {
		return false
	}
	for _, blk := range f.BlockIDs() {
		if live.LiveOut[blk][a] && live.LiveOut[blk][b] {
			return true
		}
	}
	return false
}

func rewriteToRepresentative(f *mir.Func, nid mir.NodeID, uf *unionFind) bool {
	if nid == mir.NoNode {
		return false
	}
	n := f.Node(nid)
	changed := false
	for i := range n.Kids {
		if rewriteKidRepr(f, &n.Kids[i], uf) {
			changed = true
		}
	}
	if n.Extra != nil {
		for i := range n.Extra.PhiArgs {
			if rewriteKidRepr(f, &n.Extra.PhiArgs[i], uf) {
				changed = true
			}
		}
	}
	return changed
}

func rewriteKidRepr(f *mir.Func, slot *mir.NodeID, uf *unionFind) bool {
	k := *slot
	if k == mir.NoNode {
		return false
	}
	kn := f.Node(k)
	if kn.Op == mir.OpReg {
		rep := uf.find(kn.Def)
		if rep != kn.Def {
			kn.Def = rep
			return true
		}
		return false
	}
	return rewriteToRepresentative(f, k, uf)
}

type unionFind struct {
	parent map[regspace.Register]regspace.Register
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[regspace.Register]regspace.Register)}
}

func (u *unionFind) find(r regspace.Register) regspace.Register {
	p, ok := u.parent[r]
	if !ok {
		return r
	}
	root := u.find(p)
	u.parent[r] = root
	return root
}

func (u *unionFind) union(a, b regspace.Register) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	u.parent[ra] = rb
}
