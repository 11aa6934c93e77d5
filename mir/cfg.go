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

package mir

import "github.com/google/btree"

// orderKey is the element type of Func.order, the CFG's "iteration cache
// (sorted orders)" (§3). It keys blocks by their last-computed reverse
// postorder number so repeated consumers (liveness, trace layout) don't
// recompute a sort already paid for by dominance numbering. Using a
// generic BTreeG here (the same structure storage/index.go's deltaBtree
// uses for its ordered delta index) keeps ascend/descend range queries
// cheap without hand-rolling a balanced tree.
type orderKey struct {
	rpoNum int32
	block  BlockID
}

func orderKeyLess(a, b orderKey) bool {
	if a.rpoNum != b.rpoNum {
		return a.rpoNum < b.rpoNum
	}
	return a.block < b.block
}

func (f *Func) invalidateOrder() { f.order = nil }

// CacheOrder populates the iteration cache from a caller-supplied reverse
// postorder numbering (graph.Numbering numbers blocks as a
// byproduct of dominance computation). Later calls to CachedRPO reuse it
// until the next structural edit invalidates it.
func (f *Func) CacheOrder(rpoNum map[BlockID]int32) {
	t := btree.NewG(32, orderKeyLess)
	for id, num := range rpoNum {
		t.ReplaceOrInsert(orderKey{rpoNum: num, block: id})
	}
	f.order = t
}

// CachedRPO returns the cached reverse-postorder block sequence, or false
// if no cache is populated (a structural edit happened since CacheOrder).
func (f *Func) CachedRPO() ([]BlockID, bool) {
	if f.order == nil {
		return nil, false
	}
	out := make([]BlockID, 0, f.order.Len())
	f.order.Ascend(func(k orderKey) bool {
		out = append(out, k.block)
		return true
	})
	return out, true
}

// AddEdge adds a successor/predecessor edge pair from -> to, preserving
// the "edges are consistent in both directions" invariant (§3).
func (f *Func) AddEdge(from, to BlockID) {
	fb, tb := f.Block(from), f.Block(to)
	fb.Succs = append(fb.Succs, to)
	tb.Preds = append(tb.Preds, from)
	f.invalidateOrder()
}

// DeleteEdge removes one instance of the from->to edge in both
// directions. No-op if the edge does not exist.
func (f *Func) DeleteEdge(from, to BlockID) {
	fb, tb := f.Block(from), f.Block(to)
	fb.Succs = removeOne(fb.Succs, to)
	tb.Preds = removeOne(tb.Preds, from)
	f.invalidateOrder()
}

func removeOne(s []BlockID, v BlockID) []BlockID {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// DeleteNode marks a block deleted, severing every edge that touched it.
// Entry/exit may not be deleted. The block's id is never reused.
func (f *Func) DeleteNode(id BlockID) {
	if id == f.Entry || id == f.Exit {
		panic("mir: cannot delete entry/exit block")
	}
	b := f.Block(id)
	for _, p := range append([]BlockID(nil), b.Preds...) {
		f.DeleteEdge(p, id)
	}
	for _, s := range append([]BlockID(nil), b.Succs...) {
		f.DeleteEdge(id, s)
	}
	b.deleted = true
	f.invalidateOrder()
}

// VisitOrder selects which block order a CFG walk is performed in.
type VisitOrder int

const (
	Preorder VisitOrder = iota
	Postorder
	ReversePostorder
)

// Walk visits every block reachable from Entry in the requested order,
// calling visit(block) once per block. Two tie-break policies for
// ReversePostorder are available via the stable flag: stable=true breaks
// ties by ascending BlockID (used by the dominance pass, which requires a
// reproducible numbering); stable=false uses arbitrary successor-list
// order (faster, used by passes that don't care).
func (f *Func) Walk(order VisitOrder, stable bool, visit func(BlockID)) {
	visited := make(map[BlockID]bool)
	var post []BlockID
	var pre []BlockID
	var dfs func(BlockID)
	dfs = func(b BlockID) {
		if visited[b] || !f.Live(b) {
			return
		}
		visited[b] = true
		pre = append(pre, b)
		succs := f.Block(b).Succs
		if stable {
			succs = append([]BlockID(nil), succs...)
			sortBlockIDs(succs)
		}
		for _, s := range succs {
			dfs(s)
		}
		post = append(post, b)
	}
	dfs(f.Entry)

	switch order {
	case Preorder:
		for _, b := range pre {
			visit(b)
		}
	case Postorder:
		for _, b := range post {
			visit(b)
		}
	case ReversePostorder:
		for i := len(post) - 1; i >= 0; i-- {
			visit(post[i])
		}
	}
}

func sortBlockIDs(s []BlockID) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
