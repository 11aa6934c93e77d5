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

// Package audit statically checks a codegen backend's source for machine
// register discipline: only a Prologue, Epilogue or regOf function is
// allowed to construct a regspace.Register literal in
// regspace.SpaceMachine directly.
// Everywhere else a machine register should arrive already assigned by the
// register allocator, never hand-picked in backend source. This is the
// AST-walking half of the scan cmd/nbjit-audit runs; it mirrors how
// tools/jitgen/main.go's collectOperators walks a package's syntax trees
// looking for a specific call shape.
package audit

import (
	"fmt"
	"go/ast"
	"go/token"
)

// Violation is one disallowed regspace.Register{Space: regspace.SpaceMachine, ...}
// literal found outside an allowed function.
type Violation struct {
	Func string
	Pos  token.Position
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: function %s constructs a machine register directly", v.Pos, v.Func)
}

// allowed names functions that may construct machine registers by hand:
// the prologue/epilogue pair and regOf, which only reads back a register
// a rule already produced rather than inventing one.
var allowed = map[string]bool{
	"Prologue": true,
	"Epilogue": true,
	"regOf":    true,
}

// ScanFile walks one parsed source file and reports every disallowed
// regspace.SpaceMachine composite literal, attributing each to the
// enclosing top-level function or method.
func ScanFile(fset *token.FileSet, f *ast.File) []Violation {
	var out []Violation
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		name := fn.Name.Name
		if allowed[name] {
			continue
		}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			lit, ok := n.(*ast.CompositeLit)
			if !ok {
				return true
			}
			sel, ok := lit.Type.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "Register" {
				return true
			}
			if pkgIdent, ok := sel.X.(*ast.Ident); !ok || pkgIdent.Name != "regspace" {
				return true
			}
			for _, elt := range lit.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				key, ok := kv.Key.(*ast.Ident)
				if !ok || key.Name != "Space" {
					continue
				}
				val, ok := kv.Value.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				pkgIdent, ok := val.X.(*ast.Ident)
				if ok && pkgIdent.Name == "regspace" && val.Sel.Name == "SpaceMachine" {
					out = append(out, Violation{Func: name, Pos: fset.Position(lit.Pos())})
				}
			}
			return true
		})
	}
	return out
}
