package tablegen

import (
	"testing"

	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

const sampleDSL = `
rule reg <- ConstInt cost 1
rule reg <- Add(reg, reg) cost 1 mnemonic ADD
rule stmt <- Return(reg) cost 1 void mnemonic RET
`

func TestParseReadsEveryRuleInOrder(t *testing.T) {
	decls, err := Parse(sampleDSL)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(decls) != 3 {
		t.Fatalf("expected 3 rule declarations, got %d", len(decls))
	}
	if decls[1].Op != "Add" || len(decls[1].KidGoals) != 2 || decls[1].Mnemonic != "ADD" {
		t.Fatalf("unexpected second rule: %+v", decls[1])
	}
	if !decls[2].Void || decls[2].Mnemonic != "RET" {
		t.Fatalf("expected the return rule to be void with mnemonic RET: %+v", decls[2])
	}
}

func TestParseRejectsUnknownTrailingInput(t *testing.T) {
	if _, err := Parse("rule reg <- ConstInt cost 1\ngarbage"); err == nil {
		t.Fatalf("expected an error for trailing unparsed input")
	}
}

func TestLoadBuildsATableSelectCanUse(t *testing.T) {
	regs := regspace.NewManager()
	table, err := Load(sampleDSL, regs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// (return (add 1 2))
	src := mir.NewFunc("sum", mir.NewSymbolTable(), regspace.NewManager())
	one := src.NewNode(mir.Node{Op: mir.OpConstInt, Kids: [2]mir.NodeID{mir.NoNode, mir.NoNode}, ConstInt: 1})
	two := src.NewNode(mir.Node{Op: mir.OpConstInt, Kids: [2]mir.NodeID{mir.NoNode, mir.NoNode}, ConstInt: 2})
	add := src.NewNode(mir.Node{Op: mir.OpAdd, Kids: [2]mir.NodeID{one, two}})
	ret := src.NewNode(mir.Node{Op: mir.OpReturn, Kids: [2]mir.NodeID{add, mir.NoNode}, Extra: &mir.StmtExtra{}})
	src.Block(src.Entry).Stmts = append(src.Block(src.Entry).Stmts, ret)

	target := lir.CopyCFG(src)
	if err := lir.Select(src, table, target, "stmt"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	instrs := target.Block(src.Entry).Instrs
	if len(instrs) != 2 {
		t.Fatalf("expected 2 emitted instructions (ADD, RET), got %d", len(instrs))
	}
	addInstr := target.Instr(instrs[0])
	if addInstr.Mnemonic != "ADD" || !addInstr.HasDef {
		t.Fatalf("unexpected add instruction: %+v", addInstr)
	}
	if addInstr.Operands[0].Imm != 1 || addInstr.Operands[1].Imm != 2 {
		t.Fatalf("expected the add's operands to be the constant immediates, got %+v", addInstr.Operands)
	}
	retInstr := target.Instr(instrs[1])
	if retInstr.Mnemonic != "RET" || retInstr.HasDef {
		t.Fatalf("expected a void RET instruction, got %+v", retInstr)
	}
	if retInstr.Operands[0].Kind != lir.OperandReg || retInstr.Operands[0].Reg != addInstr.Def {
		t.Fatalf("expected RET to consume the ADD's result register, got %+v", retInstr.Operands)
	}
}

func TestLoadRejectsUnknownOpcode(t *testing.T) {
	if _, err := Load("rule reg <- Frobnicate cost 1", regspace.NewManager()); err == nil {
		t.Fatalf("expected an error for an unknown opcode name")
	}
}
