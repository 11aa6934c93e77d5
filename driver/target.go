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
	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/layout"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regalloc"
	"github.com/launix-de/nbjit/regspace"
)

// Target bundles everything one of the four backends (§4.10: 32-bit and
// 64-bit register machines, netproc, csource) contributes to a compile:
// the codegen.Target and layout.Handler every backend already implements,
// plus the instruction-selection table, register-allocation pool and the
// branch-size model layout.ClassifyBranches needs. A driver.Target value
// is stateless and safe to share across concurrently compiling units.
type Target interface {
	codegen.Target
	layout.Handler

	// Goal is the BURG goal non-terminal instruction selection reduces
	// a statement root to (§4.6), e.g. "stmt".
	Goal() lir.NonTerm

	// SelectionTable returns this target's BURG rule table. Built once
	// per target value and reused across every function it compiles.
	SelectionTable() *lir.Table

	// Colors is the candidate machine-register pool regalloc.Allocator
	// colors virtuals from.
	Colors() []regspace.Register

	// Allowed optionally restricts which of Colors a given virtual (by
	// dense name) may resolve to; nil means every virtual may use any
	// color.
	Allowed() map[uint32][]regspace.Register

	// Spiller rewrites spilled virtuals into stack-slot load/store
	// pairs when coloring runs out of registers.
	Spiller() regalloc.Spiller

	// Weigh estimates the execution weight of the edge from->to, fed to
	// layout.BuildTrace.
	Weigh(from, to lir.BlockID) float64

	// SizeOf returns the encoded byte length of an instruction, fed to
	// layout.ClassifyBranches.
	SizeOf(in *lir.Instr) int

	// ShortBranchRange is the largest displacement (in bytes) this
	// target's short branch encoding reaches; layout.ClassifyBranches
	// flips a branch to its long form past this.
	ShortBranchRange() int

	// Init runs target-specific MIR-level preparation before the shared
	// pipeline starts (§4.10's per-target init(cfg) hook), e.g.
	// registering coprocessor-aware passes. A target with nothing to do
	// returns nil.
	Init(cfg *mir.Func) error

	// PostSelect runs after instruction selection, before register
	// allocation, for targets that need LIR-level restructuring first —
	// a target whose coprocessor accesses must end their block calls
	// lir.SplitCoprocBlocks here. A target with nothing to do returns nil.
	PostSelect(lf *lir.Func) error
}
