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

// BlockID indexes into Func.Blocks. Reserved IDs 0 and 1 are the unique
// entry and exit blocks (§3: "Reserved identifiers mark the unique entry
// and exit blocks").
type BlockID int32

const (
	NoBlock    BlockID = -1
	EntryBlock BlockID = 0
	ExitBlock  BlockID = 1
)

// Block owns an ordered list of statement roots plus typed, non-owning
// edges to predecessor/successor blocks (edges are weak BlockID links;
// only the Func arena owns the Block and Node values themselves, per the
// REDESIGN FLAGS arena-ownership guidance).
type Block struct {
	ID    BlockID
	Stmts []NodeID
	Preds []BlockID
	Succs []BlockID

	// HandlerTag identifies which source handler (init/push/pull of a PE)
	// this block originated from; propagated by every CFG transformation
	// (§3 Basic block invariant).
	HandlerTag string

	// Hot per-block analysis results (REDESIGN FLAGS: fixed struct fields
	// for hot properties instead of a generic string-keyed map).
	IDom        BlockID
	DomChildren []BlockID
	DomFrontier []BlockID
	LoopLevel   int
	PostOrderNum int32

	// Layout result: next block in emission order, or NoBlock if this
	// block has not been placed on a trace yet (§4.8 "Trace").
	LayoutNext BlockID

	// Props is the side table for rare, per-block facts (debug
	// annotations, the original's ad hoc "postOrderPosition"-style keys
	// that don't merit a dedicated field).
	Props PropSideTable

	deleted bool
}

func newBlock(id BlockID) Block {
	return Block{ID: id, IDom: NoBlock, LayoutNext: NoBlock}
}

// HasMultipleSuccessors / HasMultiplePredecessors back the critical-edge
// definition (§3, GLOSSARY "Critical edge").
func (b *Block) HasMultipleSuccessors() bool   { return len(b.Succs) > 1 }
func (b *Block) HasMultiplePredecessors() bool { return len(b.Preds) > 1 }

func (b *Block) Terminator(f *Func) NodeID {
	if len(b.Stmts) == 0 {
		return NoNode
	}
	return b.Stmts[len(b.Stmts)-1]
}
