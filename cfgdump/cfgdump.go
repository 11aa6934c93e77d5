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

// Package cfgdump pretty-prints a mir.Func's CFG for interactive
// debugging — Graphviz dot output and dominator-tree dumps, the Go
// equivalent of cfg_printer.h's DotPrint/InfoPrinter effectors. Debug
// tooling only; nothing in the compile pipeline imports this package.
package cfgdump

import (
	"fmt"
	"io"

	"github.com/launix-de/nbjit/mir"
)

// WriteDot renders f's CFG in Graphviz dot notation: one edge line per
// successor, one label node per block, mirroring DotPrint<T>::printNode
// exactly ("BB -> succ" edges then a labeled node for BB itself).
func WriteDot(w io.Writer, f *mir.Func) error {
	if _, err := fmt.Fprintln(w, "digraph G {"); err != nil {
		return err
	}
	for _, id := range f.BlockIDs() {
		b := f.Block(id)
		for _, succ := range b.Succs {
			if _, err := fmt.Fprintf(w, "\t%d -> %d;\n", id, succ); err != nil {
				return err
			}
		}
		label := fmt.Sprintf("lbl%d (%d stmts)", id, len(b.Stmts))
		if b.HandlerTag != "" {
			label += " [" + b.HandlerTag + "]"
		}
		if _, err := fmt.Fprintf(w, "\t%d [label=%q];\n", id, label); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// WriteDomInfo dumps each block's immediate dominator, dominator-tree
// children and dominator frontier, the Go analogue of DumpInfo<IR>'s
// "IDOM / DomSuccessors / Dom Frontier" report.
func WriteDomInfo(w io.Writer, f *mir.Func) error {
	for _, id := range f.BlockIDs() {
		b := f.Block(id)
		if _, err := fmt.Fprintf(w, "BB ID: %d\n", id); err != nil {
			return err
		}
		if b.IDom == mir.NoBlock {
			fmt.Fprintln(w, "IDOM: ??")
		} else {
			fmt.Fprintf(w, "IDOM: %d\n", b.IDom)
		}
		fmt.Fprintf(w, "DomSuccessors: %v\n", b.DomChildren)
		fmt.Fprintf(w, "Dom Frontier: %v\n\n", b.DomFrontier)
	}
	return nil
}
