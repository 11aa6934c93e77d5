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

package lir

import (
	"github.com/launix-de/nbjit/jiterr"
	"github.com/launix-de/nbjit/mir"
)

// NonTerm is a BURG goal symbol (e.g. "stmt", "reg", "addr"). Unlike the
// original's burg-generated enum, rule tables here are built at runtime
// from a Table a backend assembles in Go (tablegen, a later package,
// additionally supports loading one from the textual BURG DSL), so
// NonTerm is just a comparable string.
type NonTerm string

// EmitFunc appends the instructions realizing one MIR node to bb,
// given the already-reduced operands of its kids (in rule Kid order),
// and returns the operand downstream rules should use to reference this
// node's result (§4.6: "may create fresh virtual LIR registers").
type EmitFunc func(target *Func, bb BlockID, n *mir.Node, kids []Operand) (Operand, error)

// Rule is one BURG production: "node of opcode Op reduces to NonTerm,
// given its kids reduce to KidGoals, at Cost". A rule whose len(KidGoals)
// differs from the node's actual kid count never matches it; if that
// leaves the requested goal uncovered, Select reports jiterr.KindArity.
type Rule struct {
	NonTerm  NonTerm
	Op       mir.Op
	KidGoals []NonTerm
	Cost     int
	Emit     EmitFunc
}

// Table collects the rules a backend's instruction selector matches
// against, indexed by MIR opcode the way the burg-generated
// netvm_burg_rule switch does.
type Table struct {
	byOp map[mir.Op][]*Rule
}

func NewTable() *Table { return &Table{byOp: make(map[mir.Op][]*Rule)} }

func (t *Table) Add(r Rule) {
	rc := r
	t.byOp[r.Op] = append(t.byOp[r.Op], &rc)
}

type labelState struct {
	cost int
	rule *Rule
}

// Selector runs the two-phase BURG algorithm (§4.6): Label computes, at
// every node, the minimum-cost rule for every non-terminal reachable
// from that node (bottom-up, memoized); Select then walks goal-down from
// each statement root, picking the cheapest rule for the requested goal,
// recursing into kids with the rule's own kid goals, and calling the
// rule's Emit function — mirroring insselector.h's label-then-reduce
// split (netvm_burg_label / InsSelector::reduce).
type Selector struct {
	table  *Table
	src    *mir.Func
	states map[mir.NodeID]map[NonTerm]labelState
}

func NewSelector(table *Table, src *mir.Func) *Selector {
	return &Selector{table: table, src: src, states: make(map[mir.NodeID]map[NonTerm]labelState)}
}

func kidCount(n *mir.Node) int {
	c := 0
	for _, k := range n.Kids {
		if k != mir.NoNode {
			c++
		}
	}
	return c
}

// label computes, and memoizes, the minimum-cost rule for every
// non-terminal a rule of nid's opcode can produce, recursing into kids
// first (bottom-up, as burg's dynamic-programming labeling pass does).
func (s *Selector) label(nid mir.NodeID) (map[NonTerm]labelState, error) {
	if st, ok := s.states[nid]; ok {
		return st, nil
	}
	n := s.src.Node(nid)
	for _, k := range n.Kids {
		if k != mir.NoNode {
			if _, err := s.label(k); err != nil {
				return nil, err
			}
		}
	}

	rules := s.table.byOp[n.Op]
	states := make(map[NonTerm]labelState)
	arity := kidCount(n)
	for _, r := range rules {
		if len(r.KidGoals) != arity {
			continue // not applicable to this node's shape; not an arity error yet
		}
		cost := r.Cost
		ok := true
		for i, goal := range r.KidGoals {
			kidStates, err := s.label(n.Kids[i])
			if err != nil {
				return nil, err
			}
			ks, found := kidStates[goal]
			if !found {
				ok = false
				break
			}
			cost += ks.cost
		}
		if !ok {
			continue
		}
		if existing, found := states[r.NonTerm]; !found || cost < existing.cost {
			states[r.NonTerm] = labelState{cost: cost, rule: r}
		}
	}
	s.states[nid] = states
	return states, nil
}

// reduce picks the cheapest rule for goal at nid, recurses into kids
// with that rule's own kid goals, then emits.
func (s *Selector) reduce(nid mir.NodeID, target *Func, bb BlockID, goal NonTerm) (Operand, error) {
	states, err := s.label(nid)
	if err != nil {
		return Operand{}, err
	}
	n := s.src.Node(nid)
	if len(s.table.byOp[n.Op]) == 0 {
		return Operand{}, jiterr.New(jiterr.KindRuleNotFound, target.Name, "no rule covers opcode "+n.Op.String())
	}
	st, ok := states[goal]
	if !ok {
		for _, r := range s.table.byOp[n.Op] {
			if r.NonTerm == goal && len(r.KidGoals) != kidCount(n) {
				return Operand{}, jiterr.New(jiterr.KindArity, target.Name, "rule kid arity mismatch for opcode "+n.Op.String())
			}
		}
		return Operand{}, jiterr.New(jiterr.KindNontermNotFound, target.Name, "no state for goal "+string(goal))
	}
	r := st.rule
	if len(r.KidGoals) != kidCount(n) {
		return Operand{}, jiterr.New(jiterr.KindArity, target.Name, "rule kid arity mismatch for opcode "+n.Op.String())
	}
	kidVals := make([]Operand, len(r.KidGoals))
	for i, kg := range r.KidGoals {
		v, err := s.reduce(n.Kids[i], target, bb, kg)
		if err != nil {
			return Operand{}, err
		}
		kidVals[i] = v
	}
	return r.Emit(target, bb, n, kidVals)
}

// Select runs instruction selection over the whole source function,
// walking blocks in preorder and reducing every root statement of each
// MIR block in order into the corresponding LIR block target.CopyCFG
// pre-created, per §4.6's ordering requirement. Blocks not reachable
// from the entry are not visited.
func Select(src *mir.Func, table *Table, target *Func, goal NonTerm) error {
	sel := NewSelector(table, src)
	var err error
	src.Walk(mir.Preorder, true, func(id BlockID) {
		if err != nil {
			return
		}
		for _, stmt := range src.Block(id).Stmts {
			if _, err = sel.reduce(stmt, target, id, goal); err != nil {
				return
			}
		}
	})
	return err
}
