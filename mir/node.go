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

// Package mir implements the medium-level tree IR and the CFG that owns it
// (Data Model §3, §4.2). Per the REDESIGN FLAGS guidance this replaces the
// original's template-heavy node hierarchy with one sum type (Op) over a
// single Node struct, and replaces raw pointer graphs with arena-indexed
// handles: a Func owns a growable slice of Nodes and a growable slice of
// Blocks; children, block membership and symbol references are indices
// into those slices, never pointers, so destroying a Func frees everything
// transitively by simply dropping the arena.
package mir

import "github.com/launix-de/nbjit/regspace"

// NodeID indexes into Func.Nodes. The zero value NodeID(0) is never a
// valid node (Func reserves index 0 as "no node"), mirroring Invalid for
// registers.
type NodeID int32

const NoNode NodeID = 0

// Op enumerates every MIR opcode. Expression opcodes produce a value in
// Node.Def; statement opcodes (Jump, Branch, Switch, Phi, Call, Load,
// Store, Return) additionally use the Extra fields below.
type Op uint16

const (
	OpInvalid Op = iota
	// leaves
	OpConstInt
	OpConstFloat
	OpConstString
	OpConstSymbol
	OpReg // reference to an already-defined register (φ arg, use)
	// arithmetic / logic (two kids)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg
	OpNot
	// comparisons (two kids), define a flags-space or bool result
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	// memory, pre-canonicalization (typed load/store by source/dest X)
	OpLoadPacket
	OpLoadInfo
	OpLoadData
	OpLoadShared
	OpLoadExchange
	OpStorePacket
	OpStoreInfo
	OpStoreData
	OpStoreShared
	OpStoreExchange
	// memory, post-canonicalization (§4.5)
	OpLoadBase  // loads the base pointer for an address space into Def
	OpLoadFlat  // load_or_store(size) at (base + offset)
	OpStoreFlat
	// statement-level nodes
	OpJump       // unconditional jump, Extra.Targets[0]
	OpBranch     // conditional jump, kid 0 = condition, Targets[0]=true Targets[1]=false
	OpSwitch     // switch on kid 0, Extra.Cases + Extra.Targets, last target = default
	OpPhi        // Extra.PhiArgs, one per predecessor, same order as CFG.Preds
	OpCall       // call to a symbol or coprocessor, Extra.Symbol / CoprocID/CoprocOp
	OpSendPacket // send-to-port statement, target PE/port resolved by the driver's linker
	OpReturn     // returns kid 0 (or no value)
	OpLookupGet
	OpLookupSet
)

// Node is one MIR tree node. Statement roots own a chain of expression
// kids; expression nodes are exclusively owned by their parent (deep-copy
// on Clone, never aliased). Kids are NodeIDs into the same Func arena.
type Node struct {
	Op       Op
	Kids     [2]NodeID // NoNode for unused slots
	Def      regspace.Register
	HasDef   bool
	ConstInt int64
	ConstFlt float64
	ConstStr string
	Sym      SymbolID

	Extra *StmtExtra // non-nil only for statement-level opcodes

	Props PropSideTable
}

// StmtExtra carries the fields statement-level nodes need beyond the
// generic kid list, matching §3's "Statement-level nodes ... extend a
// generic node with extra fields".
type StmtExtra struct {
	Targets  []BlockID // jump/branch/switch targets; Phi: unused
	Cases    []int64   // switch: one per non-default target, same order
	PhiArgs  []NodeID  // phi: one per predecessor block, NoNode = undefined
	Symbol   SymbolID  // call target / lookup-table descriptor
	CoprocID int32     // coprocessor access: (id, op) pair, §6
	CoprocOp int32
}

// PropSideTable is the rare-property side table the REDESIGN FLAGS call
// for: hot per-node facts live as dedicated fields (none needed yet at
// node granularity beyond Def/Extra); anything else goes here.
type PropSideTable map[string]any

func (p *PropSideTable) Set(key string, v any) {
	if *p == nil {
		*p = make(PropSideTable)
	}
	(*p)[key] = v
}

func (p PropSideTable) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	return v, ok
}

var opNames = map[Op]string{
	OpInvalid: "invalid", OpConstInt: "const.int", OpConstFloat: "const.float",
	OpConstString: "const.string", OpConstSymbol: "const.symbol", OpReg: "reg",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	OpNeg: "neg", OpNot: "not",
	OpCmpEq: "cmp.eq", OpCmpNe: "cmp.ne", OpCmpLt: "cmp.lt", OpCmpLe: "cmp.le",
	OpCmpGt: "cmp.gt", OpCmpGe: "cmp.ge",
	OpLoadPacket: "load.packet", OpLoadInfo: "load.info", OpLoadData: "load.data",
	OpLoadShared: "load.shared", OpLoadExchange: "load.exchange",
	OpStorePacket: "store.packet", OpStoreInfo: "store.info", OpStoreData: "store.data",
	OpStoreShared: "store.shared", OpStoreExchange: "store.exchange",
	OpLoadBase: "load.base", OpLoadFlat: "load.flat", OpStoreFlat: "store.flat",
	OpJump: "jump", OpBranch: "branch", OpSwitch: "switch", OpPhi: "phi",
	OpCall: "call", OpSendPacket: "send.packet", OpReturn: "return",
	OpLookupGet: "lookup.get", OpLookupSet: "lookup.set",
}

// String names the opcode the way the original's CodeName table did,
// for diagnostics (§7 error messages name the failing opcode).
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "op?"
}

// IsTerminator reports whether op ends a basic block (§3: "blocks never
// contain more than one terminator, which is always the last statement").
func (op Op) IsTerminator() bool {
	switch op {
	case OpJump, OpBranch, OpSwitch, OpReturn:
		return true
	default:
		return false
	}
}

// DefinesRegister reports whether op's class permits a Node.Def (§3
// invariant: "a node has one defined register only if its opcode class
// permits definitions").
func (op Op) DefinesRegister() bool {
	switch op {
	case OpJump, OpBranch, OpSwitch, OpReturn, OpSendPacket,
		OpStorePacket, OpStoreInfo, OpStoreData, OpStoreShared, OpStoreExchange,
		OpStoreFlat, OpLookupSet:
		return false
	default:
		return true
	}
}
