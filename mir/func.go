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

import (
	"github.com/google/btree"
	"github.com/launix-de/nbjit/regspace"
)

// Func is a CFG (§3 "Control-flow graph") plus the arena that owns every
// Node and Block transitively reachable from it. Deleting a Func (letting
// it go out of scope — Go's GC performs the "delete cascade" the original
// did manually) frees every Block and Node it contains, since nothing
// outside Func holds Node/Block pointers: all cross-references are
// NodeID/BlockID indices into Func's own slices.
type Func struct {
	Name string
	SSA  bool

	Nodes  []Node // arena; index 0 reserved (NoNode)
	Blocks []Block

	Entry BlockID
	Exit  BlockID

	Symbols *SymbolTable
	Regs    *regspace.Manager

	order *btree.BTreeG[orderKey] // iteration cache: sorted orders (§3 CFG)
}

// SymbolTable is an alias kept distinct from Table to read naturally from
// call sites (mir.NewFunc(..., mir.NewSymbolTable())).
type SymbolTable = Table

func NewSymbolTable() *SymbolTable { return NewTable() }

func NewFunc(name string, symbols *SymbolTable, regs *regspace.Manager) *Func {
	f := &Func{
		Name:    name,
		Nodes:   []Node{{}}, // reserve NoNode
		Symbols: symbols,
		Regs:    regs,
	}
	f.Blocks = append(f.Blocks, newBlock(EntryBlock))
	f.Blocks = append(f.Blocks, newBlock(ExitBlock))
	f.Entry = EntryBlock
	f.Exit = ExitBlock
	return f
}

// NewNode allocates a node in the arena and returns its id.
func (f *Func) NewNode(n Node) NodeID {
	id := NodeID(len(f.Nodes))
	f.Nodes = append(f.Nodes, n)
	return id
}

func (f *Func) Node(id NodeID) *Node { return &f.Nodes[id] }

// CloneTree deep-copies the subtree rooted at id (§3: "copying a node
// deep-copies its subtree" — child trees are exclusively owned).
func (f *Func) CloneTree(id NodeID) NodeID {
	if id == NoNode {
		return NoNode
	}
	src := f.Nodes[id]
	clone := src
	if src.Extra != nil {
		extra := *src.Extra
		extra.Targets = append([]BlockID(nil), src.Extra.Targets...)
		extra.Cases = append([]int64(nil), src.Extra.Cases...)
		extra.PhiArgs = append([]NodeID(nil), src.Extra.PhiArgs...)
		clone.Extra = &extra
	}
	clone.Kids[0] = f.CloneTree(src.Kids[0])
	clone.Kids[1] = f.CloneTree(src.Kids[1])
	clone.Props = nil
	return f.NewNode(clone)
}

// NewBlock allocates a fresh, unconnected block.
func (f *Func) NewBlock() BlockID {
	id := BlockID(len(f.Blocks))
	f.Blocks = append(f.Blocks, newBlock(id))
	f.invalidateOrder()
	return id
}

func (f *Func) Block(id BlockID) *Block { return &f.Blocks[id] }

// Live reports whether a block id still denotes a non-deleted block.
func (f *Func) Live(id BlockID) bool {
	return int(id) < len(f.Blocks) && !f.Blocks[id].deleted
}

// BlockIDs returns every live block id. Callers that need an "owning
// list" in the original's sense (GetBBList) should treat the returned
// slice as theirs to mutate/sort freely; it shares no backing array with
// Func state that later mutation would corrupt.
func (f *Func) BlockIDs() []BlockID {
	out := make([]BlockID, 0, len(f.Blocks))
	for i := range f.Blocks {
		if !f.Blocks[i].deleted {
			out = append(out, BlockID(i))
		}
	}
	return out
}
