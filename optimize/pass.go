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

// Package optimize implements the fixed-point scalar optimizer (§4.4):
// constant folding, algebraic simplification, φ-aware dead-code
// elimination, constant propagation, control-flow simplification,
// reassociation, copy folding, and bounds-check elimination. Grounded on
// the driver/pass-pipeline shape of scm/optimizer.go (here made real
// instead of a stub) and on the pass-interface pattern of
// other_examples/5b2eae19_kanso-lang-kanso (OptimizationPass,
// OptimizationPipeline), adapted from "virtual run()" objects to the
// REDESIGN FLAGS guidance: a plain interface and an explicit driver loop,
// no class hierarchy.
package optimize

import "github.com/launix-de/nbjit/mir"

// Pass is a single scalar-optimizer transformation. Run reports whether it
// changed f, matching the kanso pipeline's "Apply(program) bool" contract
// generalized to our MIR and to return an error instead of panicking.
type Pass interface {
	Name() string
	Run(f *mir.Func) (changed bool, err error)
}
