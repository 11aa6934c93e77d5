package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/launix-de/nbjit/codegen"
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regalloc"
	"github.com/launix-de/nbjit/regspace"
)

const (
	goalStmt lir.NonTerm = "stmt"
	goalReg  lir.NonTerm = "reg"
)

func buildSelectionTable() *lir.Table {
	tbl := lir.NewTable()
	tbl.Add(lir.Rule{
		NonTerm: goalReg, Op: mir.OpConstInt, KidGoals: nil, Cost: 1,
		Emit: func(target *lir.Func, bb lir.BlockID, n *mir.Node, kids []lir.Operand) (lir.Operand, error) {
			return lir.Imm(n.ConstInt), nil
		},
	})
	tbl.Add(lir.Rule{
		NonTerm: goalStmt, Op: mir.OpAdd, KidGoals: []lir.NonTerm{goalReg, goalReg}, Cost: 1,
		Emit: func(target *lir.Func, bb lir.BlockID, n *mir.Node, kids []lir.Operand) (lir.Operand, error) {
			dst := regspace.Register{Space: regspace.SpaceVirtual, Name: 50}
			id := target.NewInstr(lir.Instr{Mnemonic: "ADD", Def: dst, HasDef: true, Operands: kids})
			target.Block(bb).AppendInstr(target, id)
			return lir.Reg(dst), nil
		},
	})
	return tbl
}

// fakeTarget is a minimal driver.Target sufficient to drive the whole
// pipeline without committing the test to any real machine encoding,
// the same role codegen_test.go's textTarget plays for the codegen
// package alone.
type fakeTarget struct {
	table *lir.Table
}

func (fakeTarget) Name() string            { return "faketarget" }
func (fakeTarget) Goal() lir.NonTerm       { return goalStmt }
func (t fakeTarget) SelectionTable() *lir.Table { return t.table }
func (fakeTarget) Colors() []regspace.Register {
	return []regspace.Register{
		{Space: regspace.SpaceMachine, Name: 0},
		{Space: regspace.SpaceMachine, Name: 1},
	}
}
func (fakeTarget) Allowed() map[uint32][]regspace.Register { return nil }
func (fakeTarget) Spiller() regalloc.Spiller                { return regalloc.DefaultSpiller{} }
func (fakeTarget) Weigh(from, to lir.BlockID) float64        { return 1 }
func (fakeTarget) SizeOf(in *lir.Instr) int                  { return 1 }
func (fakeTarget) ShortBranchRange() int                     { return 256 }
func (fakeTarget) Init(cfg *mir.Func) error                  { return nil }
func (fakeTarget) PostSelect(lf *lir.Func) error             { return nil }

// EncodeBinary stands in for a real backend's encoder, but still enforces
// the one contract every real backend (codegen/amd64, codegen/arm64,
// codegen/netproc) also checks through its regOf helper: by the time
// an instruction reaches encoding, every register it touches must already
// be a machine register, never a pre-allocation virtual. This is the same
// discipline cmd/nbjit-audit checks statically in backend source; here it
// is checked dynamically against whatever regalloc actually produced.
func (fakeTarget) EncodeBinary(buf *codegen.Buffer, in *lir.Instr, label func(lir.BlockID) int) error {
	if in.HasDef && in.Def.Space != regspace.SpaceMachine {
		return fmt.Errorf("faketarget: instruction %q reached encoding with a non-machine def %v", in.Mnemonic, in.Def)
	}
	for _, op := range in.Operands {
		if op.Kind == lir.OperandReg && op.Reg.Space != regspace.SpaceMachine {
			return fmt.Errorf("faketarget: instruction %q reached encoding with a non-machine operand %v", in.Mnemonic, op.Reg)
		}
	}
	buf.Emit(0x90)
	return nil
}
func (fakeTarget) EncodeText(out io.Writer, in *lir.Instr) error {
	_, err := io.WriteString(out, "\t"+in.Mnemonic+"\n")
	return err
}
func (fakeTarget) Prologue(fr codegen.Frame) []lir.Instr { return nil }
func (fakeTarget) Epilogue(fr codegen.Frame) []lir.Instr { return nil }

func (fakeTarget) HandleExit(f *lir.Func, b lir.BlockID) {}
func (fakeTarget) HandleFallthrough(f *lir.Func, b, succ, next lir.BlockID, isFallthrough bool) {}
func (fakeTarget) HandleBranch(f *lir.Func, b, trueTarget, falseTarget, next lir.BlockID) {}

func newTestFunc(t *testing.T, name string) *mir.Func {
	t.Helper()
	regs := regspace.NewManager()
	f := mir.NewFunc(name, mir.NewSymbolTable(), regs)
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
	return f
}

func TestCompileFuncProducesExecutablePage(t *testing.T) {
	f := newTestFunc(t, "addconst")
	tgt := fakeTarget{table: buildSelectionTable()}
	res, err := CompileFunc(f, tgt, TargetOptions{OptLevel: 1, Flags: FlagNative})
	if err != nil {
		t.Fatalf("CompileFunc: %v", err)
	}
	if res.Page == nil {
		t.Fatalf("expected a mapped executable page")
	}
	if res.Page.Addr() == 0 {
		t.Fatalf("expected a non-zero page address")
	}
	if err := res.Page.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestCompileFuncEmitsAssemblyText(t *testing.T) {
	f := newTestFunc(t, "addconst2")
	tgt := fakeTarget{table: buildSelectionTable()}
	var sb bytes.Buffer
	_, err := CompileFunc(f, tgt, TargetOptions{OptLevel: 1, Flags: FlagAssembly, AssemblyStream: &sb})
	if err != nil {
		t.Fatalf("CompileFunc: %v", err)
	}
	if sb.Len() == 0 {
		t.Fatalf("expected assembly text output")
	}
}

func TestPEGraphPostorderVisitsSinksBeforeSources(t *testing.T) {
	g := NewGraph()
	g.AddPE(&PE{Name: "A"})
	g.AddPE(&PE{Name: "B"})
	g.Connect("A", "out0", "B")

	order := g.Postorder()
	posA, posB := -1, -1
	for i, n := range order {
		if n == "A" {
			posA = i
		}
		if n == "B" {
			posB = i
		}
	}
	if posA < 0 || posB < 0 || posB > posA {
		t.Fatalf("expected B (the sink) before A in postorder, got %v", order)
	}
}

func TestCompilePEGraphCompilesEveryHandler(t *testing.T) {
	g := NewGraph()
	g.AddPE(&PE{Name: "only", Push: newTestFunc(t, "only_push")})
	tgt := fakeTarget{table: buildSelectionTable()}

	results, errs := CompilePEGraph(g, tgt, TargetOptions{OptLevel: 1, Flags: FlagNative})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	pr, ok := results["only"]
	if !ok || pr.Push == nil || pr.Push.Page == nil {
		t.Fatalf("expected a compiled push handler, got %+v", pr)
	}
}

func TestCompileInlineRewritesSendIntoJump(t *testing.T) {
	g := NewGraph()

	sink := newTestFunc(t, "sink")
	source := mir.NewFunc("source", mir.NewSymbolTable(), regspace.NewManager())
	a := source.NewBlock()
	source.AddEdge(source.Entry, a)
	source.AddEdge(a, source.Exit)
	portSym := source.Symbols.Define(mir.Symbol{Kind: mir.SymField, Name: "sink"})
	send := source.NewNode(mir.Node{Op: mir.OpSendPacket, Extra: &mir.StmtExtra{Symbol: portSym}})
	source.Block(a).Stmts = append(source.Block(a).Stmts, send)

	g.AddPE(&PE{Name: "sink", Push: sink})
	g.AddPE(&PE{Name: "source", Push: source, OutPorts: []string{"sink"}})
	g.Connect("source", "sink", "sink")

	tgt := fakeTarget{table: buildSelectionTable()}
	res, err := CompileInline(g, "unit", tgt, TargetOptions{OptLevel: 0, Flags: FlagNative})
	if err != nil {
		t.Fatalf("CompileInline: %v", err)
	}
	if res == nil || res.Page == nil {
		t.Fatalf("expected inline compile to produce native code")
	}
}

func TestCompileUnitsRunsConcurrently(t *testing.T) {
	g := NewGraph()
	g.AddPE(&PE{Name: "only", Push: newTestFunc(t, "cu_push")})
	tgt := fakeTarget{table: buildSelectionTable()}

	units := []Unit{
		{Name: "u1", Graph: g, Target: tgt, Options: TargetOptions{OptLevel: 1, Flags: FlagNative}},
	}
	results, err := CompileUnits(context.Background(), units)
	if err != nil {
		t.Fatalf("CompileUnits: %v", err)
	}
	if len(results) != 1 || results[0].Name != "u1" || results[0].ID == "" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(results[0].Errors) != 0 {
		t.Fatalf("unexpected per-unit errors: %v", results[0].Errors)
	}
}
