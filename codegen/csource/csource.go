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

// Package csource implements codegen.Target for the C-source backend:
// every instruction lowers to one C statement instead of machine bytes,
// grounded on
// original_source/netbee/src/nbnetvm/jit/octeonc/octeonc-backend.cpp's
// octeoncBackend (the teacher's own pipeline emits a target's code
// through a textual path when the target has no binary JIT, exactly
// this target's situation: EncodeBinary is always an error, text is the
// only real output).
package csource

import (
	"fmt"
	"io"

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/lir"
)

// Template maps a mnemonic to a fmt-style C statement template; %[1]s is
// the destination variable name, %[2]s.. the operand expressions in
// order. A mnemonic with no template falls back to a commented-out
// placeholder rather than failing the whole unit's text emission.
type Template map[string]string

var DefaultTemplates = Template{
	"MOVI": "%[1]s = %[2]s;",
	"MOV":  "%[1]s = %[2]s;",
	"ADD":  "%[1]s = %[2]s + %[3]s;",
	"SUB":  "%[1]s = %[2]s - %[3]s;",
	"JMP":  "goto %[2]s;",
	"RET":  "return %[2]s;",
}

type Target struct {
	Templates Template
}

func (Target) Name() string { return "csource" }

func (Target) EncodeBinary(buf *codegen.Buffer, in *lir.Instr, label func(lir.BlockID) int) error {
	return fmt.Errorf("csource: %s has no binary form, only generated C text", in.Mnemonic)
}

func varName(n uint32) string { return fmt.Sprintf("v%d", n) }

func operandExpr(op lir.Operand) string {
	switch op.Kind {
	case lir.OperandReg:
		return varName(op.Reg.Name)
	case lir.OperandImm:
		return fmt.Sprintf("%d", op.Imm)
	case lir.OperandBlock:
		return fmt.Sprintf("block%v", op.Block)
	default:
		return "0"
	}
}

func (t Target) EncodeText(out io.Writer, in *lir.Instr) error {
	templates := t.Templates
	if templates == nil {
		templates = DefaultTemplates
	}
	tpl, ok := templates[in.Mnemonic]
	if !ok {
		_, err := fmt.Fprintf(out, "\t/* unsupported: %s */\n", in.Mnemonic)
		return err
	}
	args := []any{varName(in.Def.Name)}
	for _, op := range in.Operands {
		args = append(args, operandExpr(op))
	}
	// pad so a short-arity template (e.g. RET's single operand) never
	// indexes past the end of args.
	for len(args) < 4 {
		args = append(args, "")
	}
	_, err := fmt.Fprintf(out, "\t"+tpl+"\n", args...)
	return err
}

// Prologue/Epilogue are both empty: generated C has no machine stack
// frame to manage — every virtual is just a local variable the host C
// compiler allocates.
func (Target) Prologue(fr codegen.Frame) []lir.Instr { return nil }
func (Target) Epilogue(fr codegen.Frame) []lir.Instr { return nil }

// EmitPrecompileHeader writes the auxiliary header a csource-compiled
// unit's generated .c files all include, declaring every PE's _init and
// _push entry points and its _data extern before any of them
// are actually compiled — reproducing
// octeonc-backend.cpp's octeoncTargetDriver::precompile, which writes
// this same header once up front from the PE graph rather than having
// each per-PE translation unit forward-declare its peers itself.
func EmitPrecompileHeader(out io.Writer, guard string, peNames []string) error {
	if _, err := fmt.Fprintf(out, "#ifndef %s\n#define %s\n\n", guard, guard); err != nil {
		return err
	}
	for _, name := range peNames {
		if _, err := fmt.Fprintf(out,
			"int32_t %s_init(void **exbuf, uint32_t n, void *state);\n"+
				"int32_t %s_push(void **exbuf, uint32_t n, void *state);\n"+
				"extern uint8_t %s_data[];\n\n",
			name, name, name); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "#endif\n")
	return err
}
