package optimize

import (
	"testing"

	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

func newTestFunc() (*mir.Func, *regspace.Manager) {
	regs := regspace.NewManager()
	return mir.NewFunc("t", mir.NewSymbolTable(), regs), regs
}

func TestConstantFoldCollapsesArithmetic(t *testing.T) {
	f, regs := newTestFunc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)
	x := regs.New(regspace.SpaceVirtual)
	sum := f.NewNode(mir.Node{
		Op:   mir.OpAdd,
		Def:  x,
		HasDef: true,
		Kids: [2]mir.NodeID{
			f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 2}),
			f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 3}),
		},
	})
	f.Block(a).Stmts = append(f.Block(a).Stmts, sum)

	changed, err := (ConstantFold{}).Run(f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	n := f.Node(sum)
	if n.Op != mir.OpConstInt || n.ConstInt != 5 {
		t.Fatalf("expected constant 5, got op=%v val=%d", n.Op, n.ConstInt)
	}
}

func TestAlgebraicSimplifiesAddZero(t *testing.T) {
	f, regs := newTestFunc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)
	src := regs.New(regspace.SpaceVirtual)
	dst := regs.New(regspace.SpaceVirtual)
	use := f.NewNode(mir.Node{Op: mir.OpReg, Def: src, HasDef: true})
	stmt := f.NewNode(mir.Node{
		Op:     mir.OpAdd,
		Def:    dst,
		HasDef: true,
		Kids:   [2]mir.NodeID{use, f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 0})},
	})
	f.Block(a).Stmts = append(f.Block(a).Stmts, stmt)

	changed, err := (Algebraic{}).Run(f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	n := f.Node(stmt)
	if n.Op != mir.OpReg || n.Kids[0] != use {
		t.Fatalf("expected pass-through to %d, got op=%v kid0=%d", use, n.Op, n.Kids[0])
	}
}

func TestDCERemovesUnusedDefinitionAndIsIdempotent(t *testing.T) {
	f, regs := newTestFunc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)
	dead := regs.New(regspace.SpaceVirtual)
	stmt := f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 7, Def: dead, HasDef: true})
	f.Block(a).Stmts = append(f.Block(a).Stmts, stmt)

	changed, err := (DCE{}).Run(f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !changed {
		t.Fatalf("expected the dead statement to be removed")
	}
	if len(f.Block(a).Stmts) != 0 {
		t.Fatalf("expected empty block, got %v", f.Block(a).Stmts)
	}
	changed, err = (DCE{}).Run(f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if changed {
		t.Fatalf("expected a second DCE pass to report no change (idempotence)")
	}
}

func TestCFGSimplifyFoldsConstantBranchAndPrunesDeadSide(t *testing.T) {
	f, _ := newTestFunc()
	a := f.NewBlock()
	b := f.NewBlock()
	c := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, f.Exit)
	f.AddEdge(c, f.Exit)

	cond := f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 1})
	term := f.NewNode(mir.Node{
		Op:    mir.OpBranch,
		Kids:  [2]mir.NodeID{cond, mir.NoNode},
		Extra: &mir.StmtExtra{Targets: []mir.BlockID{b, c}},
	})
	f.Block(a).Stmts = append(f.Block(a).Stmts, term)

	changed, err := (CFGSimplify{}).Run(f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	if f.Node(term).Op != mir.OpJump {
		t.Fatalf("expected term to become a Jump, got %v", f.Node(term).Op)
	}
	if f.Live(c) {
		t.Fatalf("expected the untaken branch target to become unreachable and be removed")
	}
}
