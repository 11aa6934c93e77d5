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

package codegen

import (
	"fmt"
	"io"

	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

// Frame describes what a target's prologue/epilogue need to know:
// which machine registers this function's allocation used (the driver
// passes every used machine register, callee-saved or not, and the
// prologue/epilogue save and restore each one) and how large its spill
// area is.
type Frame struct {
	CalleeSaved []regspace.Register
	SpillBytes  int
}

// Target is what each backend (amd64, arm64, netproc, csource) supplies.
// Binary and text modes are optional independently — csource has no
// binary form, and a netproc micro-op target may have no standalone text
// mnemonic worth printing — so a target that doesn't support a mode
// returns a descriptive error from it rather than implementing it.
type Target interface {
	Name() string

	// EncodeBinary appends in's machine-code encoding to buf at the
	// buffer's current position. label(b) resolves a successor block to
	// the Buffer label EmitBinary already allocated for it, for branch
	// operands.
	EncodeBinary(buf *Buffer, in *lir.Instr, label func(lir.BlockID) int) error

	// EncodeText writes in's textual form to out, e.g. "ADD R1, R2, R3".
	EncodeText(out io.Writer, in *lir.Instr) error

	// Prologue/Epilogue return the instructions to prepend/append around
	// a function's body given its Frame (§4.9: "save callee-saves
	// actually used, establish frame, reserve spill area ... symmetric
	// restore, return").
	Prologue(fr Frame) []lir.Instr
	Epilogue(fr Frame) []lir.Instr
}

// EmitBinary walks order (as layout.BuildTrace/Normalize produced it) and
// encodes every instruction into buf, resolving forward branch fixups
// only after every block's label is placed — the same first-pass-lays-
// out-blocks, second-pass-patches-displacements structure §4.9 specifies,
// generalized from jit_writer.go's single-function scratch buffer to a
// whole compiled unit.
func EmitBinary(buf *Buffer, f *lir.Func, order []lir.BlockID, t Target, fr Frame) error {
	labels := make(map[lir.BlockID]int, len(order))
	for _, id := range order {
		labels[id] = buf.NewLabel()
	}
	label := func(b lir.BlockID) int { return labels[b] }

	for _, in := range t.Prologue(fr) {
		if err := t.EncodeBinary(buf, &in, label); err != nil {
			return fmt.Errorf("codegen: prologue: %w", err)
		}
	}
	for _, id := range order {
		buf.MarkLabel(labels[id])
		for _, iid := range f.Block(id).Instrs {
			if err := t.EncodeBinary(buf, f.Instr(iid), label); err != nil {
				return fmt.Errorf("codegen: %s block %v: %w", f.Name, id, err)
			}
		}
	}
	for _, in := range t.Epilogue(fr) {
		if err := t.EncodeBinary(buf, &in, label); err != nil {
			return fmt.Errorf("codegen: epilogue: %w", err)
		}
	}
	buf.ResolveFixups()
	return nil
}

// EmitText walks order and prints every block as a labelled sequence of
// instructions, sharing the same ordering EmitBinary consumes (§4.9:
// "two modes, sharing the trace walker").
func EmitText(out io.Writer, f *lir.Func, order []lir.BlockID, t Target, fr Frame) error {
	for _, in := range t.Prologue(fr) {
		if err := t.EncodeText(out, &in); err != nil {
			return err
		}
	}
	for _, id := range order {
		if _, err := fmt.Fprintf(out, "%s_%v:\n", f.Name, id); err != nil {
			return err
		}
		for _, iid := range f.Block(id).Instrs {
			if err := t.EncodeText(out, f.Instr(iid)); err != nil {
				return err
			}
		}
	}
	for _, in := range t.Epilogue(fr) {
		if err := t.EncodeText(out, &in); err != nil {
			return err
		}
	}
	return nil
}
