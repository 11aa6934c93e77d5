package memxlat

import (
	"testing"

	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

func newTestFunc() (*mir.Func, *regspace.Manager) {
	regs := regspace.NewManager()
	return mir.NewFunc("t", mir.NewSymbolTable(), regs), regs
}

func TestTranslateRewritesLoadPacketToFlatBasePlusOffset(t *testing.T) {
	f, regs := newTestFunc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)

	dst := regs.New(regspace.SpaceVirtual)
	offset := f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 14})
	load := f.NewNode(mir.Node{
		Op:     mir.OpLoadPacket,
		Def:    dst,
		HasDef: true,
		Kids:   [2]mir.NodeID{offset, mir.NoNode},
	})
	f.Block(a).Stmts = append(f.Block(a).Stmts, load)

	Translate(f)

	n := f.Node(load)
	if n.Op != mir.OpLoadFlat {
		t.Fatalf("expected OpLoadFlat, got %v", n.Op)
	}
	if n.Def != dst {
		t.Fatalf("translation must not disturb the original definition")
	}
	add := f.Node(n.Kids[0])
	if add.Op != mir.OpAdd {
		t.Fatalf("expected an address computation, got %v", add.Op)
	}
	base := f.Node(add.Kids[0])
	if base.Op != mir.OpLoadBase || Space(base.ConstInt) != SpacePacket {
		t.Fatalf("expected a packet-space base leaf, got op=%v space=%d", base.Op, base.ConstInt)
	}
	if add.Kids[1] != offset {
		t.Fatalf("expected the original offset preserved as the add's right kid")
	}
}

func TestTranslateRewritesStoreDataPreservingValueKid(t *testing.T) {
	f, _ := newTestFunc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)

	offset := f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 4})
	value := f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 1})
	store := f.NewNode(mir.Node{
		Op:   mir.OpStoreData,
		Kids: [2]mir.NodeID{offset, value},
	})
	f.Block(a).Stmts = append(f.Block(a).Stmts, store)

	Translate(f)

	n := f.Node(store)
	if n.Op != mir.OpStoreFlat {
		t.Fatalf("expected OpStoreFlat, got %v", n.Op)
	}
	if n.Kids[1] != value {
		t.Fatalf("expected the stored value kid untouched, got %d", n.Kids[1])
	}
	base := f.Node(f.Node(n.Kids[0]).Kids[0])
	if Space(base.ConstInt) != SpaceData {
		t.Fatalf("expected a data-space base leaf, got space=%d", base.ConstInt)
	}
}

func TestTranslateIgnoresNonMemoryStatements(t *testing.T) {
	f, regs := newTestFunc()
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)

	x := regs.New(regspace.SpaceVirtual)
	sum := f.NewNode(mir.Node{
		Op:     mir.OpAdd,
		Def:    x,
		HasDef: true,
		Kids: [2]mir.NodeID{
			f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 1}),
			f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: 2}),
		},
	})
	f.Block(a).Stmts = append(f.Block(a).Stmts, sum)

	Translate(f)

	n := f.Node(sum)
	if n.Op != mir.OpAdd {
		t.Fatalf("expected untouched arithmetic node, got %v", n.Op)
	}
}
