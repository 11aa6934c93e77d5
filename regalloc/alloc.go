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

// Package regalloc implements the graph-coloring register allocator
// (§4.7): liveness, interference-graph construction, the
// simplify/coalesce/freeze/select-spill/rewrite loop, and the spiller
// contract targets implement, grounded on
// other_examples/dadb54de_hhramberg-go-vslc's liveness-then-colour
// register allocator (its node/RIG shape, generalized from an
// adjacency-list-per-node to bitset adjacency so §4.7's "bit-vector sets
// indexed by dense register names" precondition is satisfied directly).
package regalloc

import (
	"github.com/launix-de/nbjit/jiterr"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

// Spiller inserts the loads/stores a failed coloring attempt requires
// (§4.7 "rewrite"): "allocates a stack slot per spilled virtual and, per
// use/def in the LIR, inserts a fresh-virtual load before a use and a
// fresh-virtual store after a def". The rewritten function is re-run
// through the whole build→select loop, since spilling can itself create
// new interferences.
type Spiller interface {
	Spill(f *lir.Func, regs *regspace.Manager, space regspace.Space, victims []uint32) error
}

// Allocator bundles the inputs §4.7 lists: a candidate machine-register
// pool, optional per-node placement restrictions (coprocessor-bank
// constraints, calling-convention pins), and a spiller.
type Allocator struct {
	Colors  []regspace.Register
	Allowed map[uint32][]regspace.Register
	Spiller Spiller

	// MaxRetries bounds the build→select→spill loop so a pathological
	// input (more live ranges than any spiller rewrite can shrink) fails
	// instead of looping forever; 0 means use a sane default.
	MaxRetries int
}

// Run allocates registers for every virtual in space, mutating f's LIR
// in place and recording the final machine-register assignment in regs
// (§4.1's rename table). Returns the set of machine registers actually
// used, so the prologue/epilogue emitter only saves/restores those.
func (a *Allocator) Run(f *lir.Func, regs *regspace.Manager, space regspace.Space) (map[regspace.Register]bool, error) {
	retries := a.MaxRetries
	if retries == 0 {
		retries = 64
	}
	keep := map[regspace.Space]bool{regspace.SpaceMachine: true, regspace.SpaceConstant: true, regspace.SpaceSpill: true}

	for attempt := 0; attempt < retries; attempt++ {
		n := DenseMapLIR(f, space, keep)
		if n == 0 {
			return nil, nil
		}
		lv := Compute(f, space, n)
		g := Build(f, lv)
		col, spills := colorOnce(g, n, a.Colors, a.Allowed)
		if len(spills) == 0 {
			return commit(f, space, col, regs), nil
		}
		if a.Spiller == nil {
			return nil, jiterr.New(jiterr.KindRegAllocFailed, f.Name, "coloring needs spilling but no spiller is configured")
		}
		if err := a.Spiller.Spill(f, regs, space, spills); err != nil {
			return nil, jiterr.Wrap(jiterr.KindRegAllocFailed, f.Name, err)
		}
	}
	return nil, jiterr.New(jiterr.KindRegAllocFailed, f.Name, "coloring did not converge within the retry budget")
}
