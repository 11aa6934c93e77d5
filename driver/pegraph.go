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

package driver

import (
	"fmt"
	"sort"

	"github.com/launix-de/nbjit/jiterr"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// PE is one processing element: a compilation unit's node in the graph
// §4.10 traverses. Init runs once at load time (FlagInit), Push handles
// an arriving packet, Pull services an output port pulling for data; a
// PE need not define all three.
type PE struct {
	Name string
	Init *mir.Func
	Push *mir.Func
	Pull *mir.Func

	// OutPorts names this PE's send-capable ports, in the order a
	// front end assigned them (§6 port numbering).
	OutPorts []string
}

// Link connects an output port of one PE to another PE's Push handler,
// the only kind of connection inlining or per-PE dispatch-table wiring
// needs to know about (§6 "NetVM bytecode section contract").
type Link struct {
	FromPE, FromPort string
	ToPE             string
}

// Graph is one compilation unit's PE graph: every PE plus how their
// ports connect, §4.10's "PE graph construction and postorder
// traversal" input.
type Graph struct {
	PEs   map[string]*PE
	Links []Link
}

func NewGraph() *Graph {
	return &Graph{PEs: make(map[string]*PE)}
}

func (g *Graph) AddPE(pe *PE) { g.PEs[pe.Name] = pe }

func (g *Graph) Connect(fromPE, fromPort, toPE string) {
	g.Links = append(g.Links, Link{FromPE: fromPE, FromPort: fromPort, ToPE: toPE})
}

func (g *Graph) outEdges(pe string) []string {
	var out []string
	for _, l := range g.Links {
		if l.FromPE == pe {
			out = append(out, l.ToPE)
		}
	}
	sort.Strings(out)
	return out
}

// Postorder visits every PE in postorder over the Links graph (§4.10:
// "per-PE compile mode ... postorder PE traversal"), so a PE compiles
// only after every PE it sends to has already compiled — the register-
// model counters a later PE's compile seeds from can reuse the earlier
// PE's symbol table layout. PE names are visited in sorted order at each
// branch point for determinism.
func (g *Graph) Postorder() []string {
	var names []string
	for name := range g.PEs {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool, len(names))
	var order []string
	var visit func(string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, to := range g.outEdges(name) {
			visit(to)
		}
		order = append(order, name)
	}
	for _, name := range names {
		visit(name)
	}
	return order
}

// PEResult bundles a compiled PE's up-to-three handler Results, keyed by
// handler role, mirroring the function-pointer triple the runtime
// dispatch state (§6) publishes per PE.
type PEResult struct {
	Init, Push, Pull *Result
}

// CompilePEGraph runs per-PE compile mode (§4.10): every PE's handlers
// compile as their own function, in postorder, and the per-function
// failures §4.11 describes are collected without aborting PEs that
// already succeeded.
func CompilePEGraph(g *Graph, t Target, opts TargetOptions) (map[string]*PEResult, []error) {
	results := make(map[string]*PEResult, len(g.PEs))
	var errs []error

	for _, name := range g.Postorder() {
		pe := g.PEs[name]
		pr := &PEResult{}
		compileHandler := func(cfg *mir.Func, handlerOpts TargetOptions) *Result {
			if cfg == nil {
				return nil
			}
			res, err := CompileFunc(cfg, t, handlerOpts)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", pe.Name, err))
				return nil
			}
			return res
		}
		initOpts := opts
		initOpts.Flags |= FlagInit
		pr.Init = compileHandler(pe.Init, initOpts)
		pr.Push = compileHandler(pe.Push, opts)
		pr.Pull = compileHandler(pe.Pull, opts)
		results[name] = pr
	}
	return results, errs
}

// CompileInline implements §4.10's inline compile mode: every PE's Push
// handler (the only role that can send packets onward; Init and Pull
// handlers are left out of the merged function and are not compiled by
// CompileInline) is concatenated into one global MIR CFG, send-to-port
// statements are iteratively rewritten into direct jumps to the
// destination PE's entry block (rewriting can itself expose further
// sends if a destination handler was only discovered through another
// rewrite), and newly-unreachable blocks left behind by the synthetic
// per-handler entries are pruned before the unit compiles as one
// function.
func CompileInline(g *Graph, unitName string, t Target, opts TargetOptions) (*Result, error) {
	merged := mir.NewFunc(unitName, mir.NewSymbolTable(), regspace.NewManager())

	entryOf := make(map[string]mir.BlockID)
	exitOf := make(map[string]mir.BlockID)
	tables := make(map[string]*mir.Table)

	for _, name := range g.Postorder() {
		pe := g.PEs[name]
		if pe.Push == nil {
			continue
		}
		blockMap, err := mergeHandler(merged, pe.Push)
		if err != nil {
			return nil, jiterr.Wrap(jiterr.KindCorruptInput, unitName, err)
		}
		entryOf[name] = blockMap[pe.Push.Entry]
		exitOf[name] = blockMap[pe.Push.Exit]
		tables[pe.Push.Name] = pe.Push.Symbols
	}

	// wire the unit's synthetic entry to every PE with no inbound link
	// (a PE nothing sends to is a packet-arrival point for this unit).
	hasInbound := make(map[string]bool)
	for _, l := range g.Links {
		hasInbound[l.ToPE] = true
	}
	for _, name := range g.Postorder() {
		if entry, ok := entryOf[name]; ok && !hasInbound[name] {
			merged.AddEdge(merged.Entry, entry)
		}
	}

	rewriteSends(merged, entryOf, tables)
	pruneUnreachable(merged)

	return CompileFunc(merged, t, opts)
}

// mergeHandler copies every node and block of src into dst's arena and
// reproduces src's block graph inside dst, returning the BlockID
// remapping so the caller can stitch inter-handler edges on afterward.
// Node Kids are assumed to always reference an already-lower NodeID
// (true of every construction path in this codebase, mir.Node arenas are
// only ever appended to bottom-up), so a single ascending pass suffices
// for node remapping; block-valued Extra fields are fixed up in a second
// pass once every block in src has a counterpart in dst.
func mergeHandler(dst *mir.Func, src *mir.Func) (map[mir.BlockID]mir.BlockID, error) {
	nodeMap := map[mir.NodeID]mir.NodeID{mir.NoNode: mir.NoNode}
	for id := mir.NodeID(1); int(id) < len(src.Nodes); id++ {
		n := src.Nodes[id]
		n.Kids[0] = nodeMap[n.Kids[0]]
		n.Kids[1] = nodeMap[n.Kids[1]]
		if n.Extra != nil {
			cp := *n.Extra
			cp.PhiArgs = append([]mir.NodeID(nil), n.Extra.PhiArgs...)
			for i, a := range cp.PhiArgs {
				cp.PhiArgs[i] = nodeMap[a]
			}
			n.Extra = &cp
		}
		nodeMap[id] = dst.NewNode(n)
	}

	blockMap := make(map[mir.BlockID]mir.BlockID, len(src.Blocks))
	for _, id := range src.BlockIDs() {
		var nb mir.BlockID
		switch id {
		case src.Entry:
			nb = dst.NewBlock()
		case src.Exit:
			nb = dst.NewBlock()
		default:
			nb = dst.NewBlock()
		}
		blockMap[id] = nb
	}
	for _, id := range src.BlockIDs() {
		sb := src.Block(id)
		nb := dst.Block(blockMap[id])
		nb.HandlerTag = sb.HandlerTag
		if nb.HandlerTag == "" {
			nb.HandlerTag = src.Name
		}
		for _, s := range sb.Stmts {
			nb.Stmts = append(nb.Stmts, nodeMap[s])
		}
	}
	for _, id := range src.BlockIDs() {
		for _, succ := range src.Block(id).Succs {
			dst.AddEdge(blockMap[id], blockMap[succ])
		}
	}
	for _, id := range src.BlockIDs() {
		nb := dst.Block(blockMap[id])
		for _, s := range nb.Stmts {
			n := dst.Node(s)
			if n.Extra == nil {
				continue
			}
			for i, t := range n.Extra.Targets {
				n.Extra.Targets[i] = blockMap[t]
			}
		}
	}
	return blockMap, nil
}

// rewriteSends turns every OpSendPacket statement in f whose destination
// symbol names a PE present in entryOf into a direct jump to that PE's
// entry block, removing the edge to the handler's own local exit and
// adding one to the destination. A send naming a PE this unit doesn't
// know (an external port, or one outside the inlined set) is left as-is;
// the runtime dispatch table (§6) still handles it at the old out-of-
// line call site.
func rewriteSends(f *mir.Func, entryOf map[string]mir.BlockID, tables map[string]*mir.Table) {
	for changed := true; changed; {
		changed = false
		for _, id := range f.BlockIDs() {
			b := f.Block(id)
			table := tables[b.HandlerTag]
			for i, s := range b.Stmts {
				n := f.Node(s)
				if n.Op != mir.OpSendPacket || n.Extra == nil {
					continue
				}
				dest, ok := entryOf[symbolName(table, n.Extra.Symbol)]
				if !ok {
					continue
				}
				n.Op = mir.OpJump
				n.Extra.Targets = []mir.BlockID{dest}
				for _, succ := range append([]mir.BlockID(nil), b.Succs...) {
					f.DeleteEdge(id, succ)
				}
				f.AddEdge(id, dest)
				b.Stmts = b.Stmts[:i+1]
				changed = true
				break
			}
		}
	}
}

func symbolName(table *mir.Table, sym mir.SymbolID) string {
	if table == nil || sym == mir.NoSymbol {
		return ""
	}
	if s := table.Get(sym); s != nil {
		return s.Name
	}
	return ""
}

// pruneUnreachable deletes every block f.Walk can't reach from f.Entry,
// the "prune newly-unreachable edges from synthetic entry" step §4.10
// calls for after send-statement rewriting changes the CFG's shape.
func pruneUnreachable(f *mir.Func) {
	reached := make(map[mir.BlockID]bool)
	f.Walk(mir.ReversePostorder, true, func(b mir.BlockID) { reached[b] = true })
	for _, id := range f.BlockIDs() {
		if !reached[id] && id != f.Entry && id != f.Exit {
			f.DeleteNode(id)
		}
	}
}
