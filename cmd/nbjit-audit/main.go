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

// Command nbjit-audit loads a codegen backend package and checks it for
// machine-register discipline (audit.ScanFile), the same load-then-walk
// shape as tools/jitgen/main.go: packages.Load for type-checked syntax,
// ssautil.AllPackages for an SSA form the -dump flag can print block by
// block. Where jitgen turns operator bodies into JIT closures, nbjit-audit
// only reads; it never rewrites source.
//
// Usage:
//
//	go run ./cmd/nbjit-audit ./codegen/amd64
//	go run ./cmd/nbjit-audit -dump=EncodeBinary ./codegen/amd64
package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/launix-de/nbjit/audit"
)

func main() {
	var dumpFunc string
	var pkgPath string
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-dump=") {
			dumpFunc = arg[len("-dump="):]
		} else {
			pkgPath = arg
		}
	}
	if pkgPath == "" {
		fmt.Fprintln(os.Stderr, "usage: nbjit-audit [-dump=FuncName] <package path>")
		os.Exit(1)
	}

	cfg := &packages.Config{
		Mode: packages.NeedFiles | packages.NeedSyntax | packages.NeedTypes |
			packages.NeedTypesInfo | packages.NeedDeps | packages.NeedImports | packages.NeedName,
	}
	pkgs, err := packages.Load(cfg, pkgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load package: %v\n", err)
		os.Exit(1)
	}
	if len(pkgs) == 0 {
		fmt.Fprintln(os.Stderr, "no packages found")
		os.Exit(1)
	}
	pkg := pkgs[0]
	for _, e := range pkg.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", e)
	}

	var violations int
	for _, f := range pkg.Syntax {
		for _, v := range audit.ScanFile(pkg.Fset, f) {
			fmt.Println(v.String())
			violations++
		}
	}

	if dumpFunc != "" {
		prog, _ := ssautil.AllPackages(pkgs, 0)
		prog.Build()
		for fn := range ssautil.AllFunctions(prog) {
			if fn.Name() == dumpFunc {
				dumpSSA(fn)
			}
		}
	}

	if violations > 0 {
		fmt.Fprintf(os.Stderr, "%d machine-register violation(s)\n", violations)
		os.Exit(1)
	}
}

func dumpSSA(fn *ssa.Function) {
	fmt.Printf("\nSSA for %s (%d blocks):\n", fn.Name(), len(fn.Blocks))
	for _, block := range fn.Blocks {
		fmt.Printf("  BB%d:\n", block.Index)
		for _, instr := range block.Instrs {
			fmt.Printf("    %-60s %T\n", instr, instr)
		}
	}
}
