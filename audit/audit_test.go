package audit

import (
	"go/parser"
	"go/token"
	"testing"
)

const sampleSrc = `package amd64

import "github.com/launix-de/nbjit/regspace"

func Prologue() regspace.Register {
	return regspace.Register{Space: regspace.SpaceMachine, Name: 4}
}

func EncodeBinary() regspace.Register {
	return regspace.Register{Space: regspace.SpaceMachine, Name: 5}
}
`

func TestScanFileFlagsOnlyDisallowedFunctions(t *testing.T) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "sample.go", sampleSrc, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	violations := ScanFile(fset, f)
	if len(violations) != 1 {
		t.Fatalf("expected exactly one violation, got %d: %v", len(violations), violations)
	}
	if violations[0].Func != "EncodeBinary" {
		t.Fatalf("expected the violation to name EncodeBinary, got %s", violations[0].Func)
	}
}

const cleanSrc = `package amd64

import "github.com/launix-de/nbjit/regspace"

func regOf(r regspace.Register) uint32 {
	return r.Name
}

func EncodeBinary(r regspace.Register) uint32 {
	return r.Name
}
`

func TestScanFileAllowsReadingAnAlreadyAssignedRegister(t *testing.T) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "clean.go", cleanSrc, 0)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if violations := ScanFile(fset, f); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}
