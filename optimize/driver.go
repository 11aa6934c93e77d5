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

import "github.com/launix-de/nbjit/mir"

// Run drives the core sequence to a fixed point (§4.4 "Driver"): repeat
// constant folding, algebraic simplification, DCE, constant propagation,
// CFG simplification, operand redistribution, then run reassociation and
// repeat the whole sequence again if reassociation changed anything.
//
// Copy folding and bounds-check elimination are deliberately not part of
// this loop: §4.4 describes copy folding as "used also
// post-register-allocation" (it needs a Liveness snapshot taken at a
// specific point, not recomputed every round) and bounds-check
// elimination as a dominance-driven one-shot pass a driver runs once
// per compilation, not to a fixed point alongside the others. Callers
// that want them invoke RunCopyFold / RunBoundsCheckElim explicitly.
func Run(f *mir.Func) (bool, error) {
	core := []Pass{
		ConstantFold{},
		Algebraic{},
		DCE{},
		ConstProp{},
		CFGSimplify{},
		Redistribute{},
	}
	reassoc := Reassociate{}

	anyChanged := false
	for {
		roundChanged := false
		for _, p := range core {
			changed, err := p.Run(f)
			if err != nil {
				return anyChanged, err
			}
			if changed {
				roundChanged = true
			}
		}
		changed, err := reassoc.Run(f)
		if err != nil {
			return anyChanged, err
		}
		if changed {
			roundChanged = true
		}
		if roundChanged {
			anyChanged = true
		} else {
			break
		}
	}
	return anyChanged, nil
}

// RunCopyFold runs copy folding once with the default compatibility
// predicate. Targets with extra placement constraints (coprocessor
// banks, etc.) should construct a *CopyFold directly with their own
// CompatiblePredicate instead.
func RunCopyFold(f *mir.Func) (bool, error) {
	return NewCopyFold().Run(f)
}

// RunBoundsCheckElim runs bounds-check elimination once.
func RunBoundsCheckElim(f *mir.Func) (bool, error) {
	return BoundsCheckElim{}.Run(f)
}
