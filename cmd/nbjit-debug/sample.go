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

package main

import (
	"github.com/launix-de/nbjit/graph"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// sampleFunc builds a small diamond-shaped CFG with dominance computed,
// standing in for "the handler currently loaded" so dot/domtree have
// something to render before a bytecode-to-MIR CFG builder exists
// upstream of this module (see the bytecode package's own doc comment).
func sampleFunc() *mir.Func {
	f := mir.NewFunc("sample", mir.NewSymbolTable(), regspace.NewManager())
	a := f.NewBlock()
	b := f.NewBlock()
	c := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, f.Exit)
	f.AddEdge(c, f.Exit)
	graph.ComputeDominance(f)
	return f
}
