package regalloc

import (
	"testing"

	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

func newTestTarget() (*lir.Func, *regspace.Manager, mir.BlockID) {
	regs := regspace.NewManager()
	f := mir.NewFunc("t", mir.NewSymbolTable(), regs)
	a := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, f.Exit)
	target := lir.CopyCFG(f)
	return target, regs, a
}

func TestAllocatorColorsTwoNonInterferingVirtuals(t *testing.T) {
	target, regs, a := newTestTarget()

	x := regs.New(regspace.SpaceVirtual)
	y := regs.New(regspace.SpaceVirtual)
	defX := target.NewInstr(lir.Instr{Mnemonic: "MOV", Def: x, HasDef: true, Operands: []lir.Operand{lir.Imm(1)}})
	useX := target.NewInstr(lir.Instr{Mnemonic: "USE", Operands: []lir.Operand{lir.Reg(x)}})
	defY := target.NewInstr(lir.Instr{Mnemonic: "MOV", Def: y, HasDef: true, Operands: []lir.Operand{lir.Imm(2)}})
	useY := target.NewInstr(lir.Instr{Mnemonic: "USE", Operands: []lir.Operand{lir.Reg(y)}})
	target.Block(a).Instrs = []lir.InstrID{defX, useX, defY, useY}

	alloc := &Allocator{
		Colors: []regspace.Register{
			{Space: regspace.SpaceMachine, Name: 0},
			{Space: regspace.SpaceMachine, Name: 1},
		},
	}
	used, err := alloc.Run(target, regs, regspace.SpaceVirtual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(used) == 0 {
		t.Fatalf("expected at least one machine register to be reported used")
	}
	rx := regs.Resolve(regspace.Register{Space: regspace.SpaceVirtual, Name: 0})
	ry := regs.Resolve(regspace.Register{Space: regspace.SpaceVirtual, Name: 1})
	if rx.Space != regspace.SpaceMachine || ry.Space != regspace.SpaceMachine {
		t.Fatalf("expected both virtuals committed to machine registers, got %v %v", rx, ry)
	}

	// The Manager's rename table is bookkeeping; what codegen actually
	// reads is the lir.Func itself, so the coloring must land there too.
	if got := target.Instr(defX).Def; got.Space != regspace.SpaceMachine {
		t.Fatalf("expected defX's Def rewritten to a machine register in the LIR, got %v", got)
	}
	if got := target.Instr(useX).Operands[0].Reg; got.Space != regspace.SpaceMachine {
		t.Fatalf("expected useX's operand rewritten to a machine register in the LIR, got %v", got)
	}
}

func TestAllocatorSpillsWhenColorsExhausted(t *testing.T) {
	target, regs, a := newTestTarget()

	// Three virtuals simultaneously live (all defined, then all used),
	// only one colour available: must spill at least one. Each use reads
	// a single register, since an instruction reading all three at once
	// could not fit one colour however much is spilled.
	x := regs.New(regspace.SpaceVirtual)
	y := regs.New(regspace.SpaceVirtual)
	z := regs.New(regspace.SpaceVirtual)
	defX := target.NewInstr(lir.Instr{Mnemonic: "MOV", Def: x, HasDef: true, Operands: []lir.Operand{lir.Imm(1)}})
	defY := target.NewInstr(lir.Instr{Mnemonic: "MOV", Def: y, HasDef: true, Operands: []lir.Operand{lir.Imm(2)}})
	defZ := target.NewInstr(lir.Instr{Mnemonic: "MOV", Def: z, HasDef: true, Operands: []lir.Operand{lir.Imm(3)}})
	useX := target.NewInstr(lir.Instr{Mnemonic: "USE", Operands: []lir.Operand{lir.Reg(x)}})
	useY := target.NewInstr(lir.Instr{Mnemonic: "USE", Operands: []lir.Operand{lir.Reg(y)}})
	useZ := target.NewInstr(lir.Instr{Mnemonic: "USE", Operands: []lir.Operand{lir.Reg(z)}})
	target.Block(a).Instrs = []lir.InstrID{defX, defY, defZ, useX, useY, useZ}

	alloc := &Allocator{
		Colors:  []regspace.Register{{Space: regspace.SpaceMachine, Name: 0}},
		Spiller: DefaultSpiller{},
	}
	_, err := alloc.Run(target, regs, regspace.SpaceVirtual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, iid := range target.Block(a).Instrs {
		mn := target.Instr(iid).Mnemonic
		if mn == "STORE_SPILL" || mn == "LOAD_SPILL" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected spill code to have been inserted")
	}
}

func TestBitSetUnionAndEqual(t *testing.T) {
	a := NewBitSet(70)
	b := NewBitSet(70)
	a.Set(3)
	a.Set(65)
	b.Set(65)
	if changed := b.Union(a); !changed {
		t.Fatalf("expected Union to report a change")
	}
	if !b.Has(3) || !b.Has(65) {
		t.Fatalf("expected union to carry over both bits")
	}
	if !a.Equal(b) {
		t.Fatalf("expected a and b to be equal after union")
	}
	if changed := b.Union(a); changed {
		t.Fatalf("expected a repeated union to report no change")
	}
}
