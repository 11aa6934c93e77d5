package lir

import (
	"testing"

	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

func newTestSrc() (*mir.Func, *regspace.Manager) {
	regs := regspace.NewManager()
	f := mir.NewFunc("t", mir.NewSymbolTable(), regs)
	return f, regs
}

const (
	goalStmt NonTerm = "stmt"
	goalReg  NonTerm = "reg"
)

func buildTable() *Table {
	tbl := NewTable()
	tbl.Add(Rule{
		NonTerm: goalReg, Op: mir.OpConstInt, KidGoals: nil, Cost: 1,
		Emit: func(target *Func, bb BlockID, n *mir.Node, kids []Operand) (Operand, error) {
			return Imm(n.ConstInt), nil
		},
	})
	tbl.Add(Rule{
		NonTerm: goalStmt, Op: mir.OpAdd, KidGoals: []NonTerm{goalReg, goalReg}, Cost: 1,
		Emit: func(target *Func, bb BlockID, n *mir.Node, kids []Operand) (Operand, error) {
			dst := regspace.Register{Space: regspace.SpaceVirtual, Name: 99}
			id := target.NewInstr(Instr{Mnemonic: "ADD", Def: dst, HasDef: true, Operands: kids})
			target.Block(bb).AppendInstr(target, id)
			return Reg(dst), nil
		},
	})
	return tbl
}

func TestSelectReducesAddIntoOneInstruction(t *testing.T) {
	f, _ := newTestSrc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)

	stmt := f.NewNode(mir.Node{
		Op: mir.OpAdd,
		Kids: [2]mir.NodeID{
			f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 2}),
			f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 3}),
		},
	})
	f.Block(a).Stmts = append(f.Block(a).Stmts, stmt)

	target := CopyCFG(f)
	if err := Select(f, buildTable(), target, goalStmt); err != nil {
		t.Fatalf("Select: %v", err)
	}
	instrs := target.Block(a).Instrs
	if len(instrs) != 1 {
		t.Fatalf("expected one emitted instruction, got %d", len(instrs))
	}
	in := target.Instr(instrs[0])
	if in.Mnemonic != "ADD" || len(in.Operands) != 2 {
		t.Fatalf("unexpected instruction: %+v", in)
	}
}

func TestSelectReportsRuleNotFound(t *testing.T) {
	f, _ := newTestSrc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)
	stmt := f.NewNode(mir.Node{Op: mir.OpReturn})
	f.Block(a).Stmts = append(f.Block(a).Stmts, stmt)

	target := CopyCFG(f)
	if err := Select(f, buildTable(), target, goalStmt); err == nil {
		t.Fatalf("expected a rule-not-found error for an uncovered opcode")
	}
}

func TestSplitCoprocBlocksSeparatesTrailingInstructions(t *testing.T) {
	f, _ := newTestSrc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)

	target := CopyCFG(f)
	coproc := target.NewInstr(Instr{Mnemonic: "COPROC", IsCoproc: true})
	after := target.NewInstr(Instr{Mnemonic: "NOP"})
	target.Block(a).Instrs = []InstrID{coproc, after}

	SplitCoprocBlocks(target)

	if len(target.Block(a).Instrs) != 1 {
		t.Fatalf("expected the coprocessor access to become the block's last instruction")
	}
	if len(target.Block(a).Succs) != 1 {
		t.Fatalf("expected the block to now fall through to a single new successor")
	}
	tailID := target.Block(a).Succs[0]
	tail := target.Block(tailID)
	if len(tail.Instrs) != 1 || target.Instr(tail.Instrs[0]).Mnemonic != "NOP" {
		t.Fatalf("expected the trailing instruction moved into the new tail block")
	}
}
