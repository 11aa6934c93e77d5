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

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/graph"
	"github.com/launix-de/nbjit/jiterr"
	"github.com/launix-de/nbjit/layout"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/memxlat"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/optimize"
	"github.com/launix-de/nbjit/regalloc"
	"github.com/launix-de/nbjit/regspace"
	"github.com/launix-de/nbjit/ssa"
)

// Result is what CompileFunc hands back: whichever of the two output
// forms TargetOptions.Flags requested.
type Result struct {
	FunctionName string
	Page         *codegen.ExecPage // non-nil iff FlagNative
	UsedRegs     map[regspace.Register]bool
}

// CompileFunc runs the full pipeline (dominance → optional bounds-check
// elimination → critical-edge splitting → SSA construct → scalar
// optimization → SSA destruct → copy folding → memxlat → instruction
// selection → register allocation → layout → codegen) over one handler's
// MIR CFG and produces native code, assembly text, or both. It is the
// per-function compile step both per-PE mode (one call per handler) and
// inline mode (one call over the concatenated unit) share.
func CompileFunc(cfg *mir.Func, t Target, opts TargetOptions) (res *Result, err error) {
	defer func() { err = jiterr.Recover(recover(), cfg.Name, &err) }()

	if err := t.Init(cfg); err != nil {
		return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
	}

	cfg.CacheOrder(graph.Numbering(cfg))
	dom := graph.ComputeDominance(cfg)
	backEdges := graph.BackEdges(cfg, dom.IDom)
	graph.ComputeNaturalLoops(cfg, backEdges)

	if opts.OptLevel >= 2 || opts.Flags&FlagBoundsCheck != 0 {
		if _, err := optimize.RunBoundsCheckElim(cfg); err != nil {
			return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
		}
	}

	graph.SplitCriticalEdges(cfg)
	if err := ssa.Construct(cfg, cfg.Regs, dom.IDom); err != nil {
		return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
	}

	if opts.OptLevel >= 1 {
		if _, err := optimize.Run(cfg); err != nil {
			return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
		}
	}

	if err := ssa.Destruct(cfg); err != nil {
		return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
	}
	ssa.PruneDeadPhis(cfg)

	if opts.OptLevel >= 1 {
		if _, err := optimize.RunCopyFold(cfg); err != nil {
			return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
		}
	}

	memxlat.Translate(cfg)

	lf := lir.CopyCFG(cfg)
	if err := lir.Select(cfg, t.SelectionTable(), lf, t.Goal()); err != nil {
		return nil, err
	}
	if err := t.PostSelect(lf); err != nil {
		return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
	}

	alloc := regalloc.Allocator{Colors: t.Colors(), Allowed: t.Allowed(), Spiller: t.Spiller()}
	used, err := alloc.Run(lf, cfg.Regs, regspace.SpaceVirtual)
	if err != nil {
		return nil, err
	}

	order := layout.BuildTrace(lf, t.Weigh)
	layout.Normalize(lf, order, t)
	layout.ClassifyBranches(lf, order, t.SizeOf, t.ShortBranchRange())

	fr := codegen.Frame{CalleeSaved: usedList(used), SpillBytes: spillBytes(lf)}

	res = &Result{FunctionName: cfg.Name, UsedRegs: used}

	if opts.Flags&FlagNative != 0 {
		buf := codegen.NewBuffer()
		if err := codegen.EmitBinary(buf, lf, order, t, fr); err != nil {
			return nil, jiterr.Wrap(jiterr.KindBufferAlloc, cfg.Name, err)
		}
		if cap, capErr := opts.codeBufferCapBytes(); capErr == nil && cap >= 0 && int64(len(buf.Bytes())) > cap {
			return nil, jiterr.New(jiterr.KindBufferAlloc, cfg.Name, fmt.Sprintf("emitted %d bytes exceeds configured cap %d", len(buf.Bytes()), cap))
		}
		page, err := buf.MakeExecutable()
		if err != nil {
			return nil, jiterr.Wrap(jiterr.KindBufferAlloc, cfg.Name, err)
		}
		res.Page = page
	}

	if opts.Flags&FlagAssembly != 0 {
		out, closeFn, err := opts.openFileWriter(cfg.Name)
		if err != nil {
			return nil, jiterr.Wrap(jiterr.KindBufferAlloc, cfg.Name, err)
		}
		if out == nil {
			return nil, jiterr.New(jiterr.KindBufferAlloc, cfg.Name, "FlagAssembly set but no output sink configured")
		}
		defer closeFn()
		if err := codegen.EmitText(out, lf, order, t, fr); err != nil {
			return nil, jiterr.Wrap(jiterr.KindInternal, cfg.Name, err)
		}
	}

	return res, nil
}

func usedList(used map[regspace.Register]bool) []regspace.Register {
	var out []regspace.Register
	for r, ok := range used {
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// spillBytes sums the stack space DefaultSpiller (or any Spiller
// following the same convention) reserved, tracked as SpaceSpill
// register names: each spill slot is one machine word.
func spillBytes(lf *lir.Func) int {
	maxName := -1
	for _, id := range lf.BlockIDs() {
		for _, iid := range lf.Block(id).Instrs {
			in := lf.Instr(iid)
			if in.HasDef && in.Def.Space == regspace.SpaceSpill && int(in.Def.Name) > maxName {
				maxName = int(in.Def.Name)
			}
			for _, op := range in.Operands {
				if op.Kind == lir.OperandReg && op.Reg.Space == regspace.SpaceSpill && int(op.Reg.Name) > maxName {
					maxName = int(op.Reg.Name)
				}
			}
		}
	}
	return (maxName + 1) * 8
}
