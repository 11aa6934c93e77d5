package ssa

import (
	"testing"

	"github.com/launix-de/nbjit/graph"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// buildDiamondWithAssign builds: entry -> a; a -> b, a -> c; b -> d; c -> d; d -> exit
// where b defines x=1, c defines x=2, and d uses x. After SSA construction
// d's use must be served by a phi with one argument per predecessor.
func buildDiamondWithAssign(t *testing.T) (*mir.Func, *regspace.Manager, regspace.Register) {
	t.Helper()
	regs := regspace.NewManager()
	f := mir.NewFunc("diamond", mir.NewSymbolTable(), regs)
	x := regs.New(regspace.SpaceVirtual)

	a := f.NewBlock()
	b := f.NewBlock()
	c := f.NewBlock()
	d := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, d)
	f.AddEdge(c, d)
	f.AddEdge(d, f.Exit)

	defIn := func(blk mir.BlockID, val int64) {
		n := f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: val, Def: x, HasDef: true})
		f.Block(blk).Stmts = append(f.Block(blk).Stmts, n)
	}
	defIn(b, 1)
	defIn(c, 2)

	use := f.NewNode(mir.Node{Op: mir.OpReg, Def: x, HasDef: true})
	f.Block(d).Stmts = append(f.Block(d).Stmts, use)

	return f, regs, x
}

func TestSSAConstructionInsertsPhiAtMergeBlock(t *testing.T) {
	f, regs, x := buildDiamondWithAssign(t)
	dom := graph.ComputeDominance(f)
	if err := Construct(f, regs, dom.IDom); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	a := f.Block(f.Entry).Succs[0]
	b := f.Block(a).Succs[0]
	merge := f.Block(b).Succs[0] // b's successor is d, the merge block
	found := false
	for _, nid := range f.Block(merge).Stmts {
		n := f.Node(nid)
		if n.Op == mir.OpPhi && n.Def.SameStorage(x) {
			found = true
			if len(n.Extra.PhiArgs) != len(f.Block(merge).Preds) {
				t.Fatalf("phi arg count %d != predecessor count %d", len(n.Extra.PhiArgs), len(f.Block(merge).Preds))
			}
		}
	}
	if !found {
		t.Fatalf("expected a phi for x at the merge block")
	}
}

func TestSSADestructionRemovesAllPhisAndInsertsCopies(t *testing.T) {
	f, regs, _ := buildDiamondWithAssign(t)
	dom := graph.ComputeDominance(f)
	if err := Construct(f, regs, dom.IDom); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	graph.SplitCriticalEdges(f)
	if err := Destruct(f); err != nil {
		t.Fatalf("Destruct: %v", err)
	}
	for _, b := range f.BlockIDs() {
		for _, nid := range f.Block(b).Stmts {
			if f.Node(nid).Op == mir.OpPhi {
				t.Fatalf("found leftover phi in block %d after destruction", b)
			}
		}
	}
}

func TestPruneDeadPhisIsIdempotent(t *testing.T) {
	f, regs, _ := buildDiamondWithAssign(t)
	dom := graph.ComputeDominance(f)
	if err := Construct(f, regs, dom.IDom); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	PruneDeadPhis(f)
	second := PruneDeadPhis(f)
	if second != 0 {
		t.Fatalf("expected pruning to reach a fixed point, second pass removed %d", second)
	}
}
