package layout

import (
	"testing"

	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/mir"
	"github.com/launix-de/nbjit/regspace"
)

// newDiamond builds entry -> a -> {b, c} -> exit, with b and c both
// falling into exit, mirroring a typical if/else CFG shape.
func newDiamond(t *testing.T) (*lir.Func, mir.BlockID, mir.BlockID, mir.BlockID) {
	t.Helper()
	regs := regspace.NewManager()
	f := mir.NewFunc("t", mir.NewSymbolTable(), regs)
	a := f.NewBlock()
	b := f.NewBlock()
	c := f.NewBlock()
	f.AddEdge(f.Entry, a)
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, f.Exit)
	f.AddEdge(c, f.Exit)
	return lir.CopyCFG(f), a, b, c
}

func TestBuildTraceVisitsEveryBlockOnce(t *testing.T) {
	target, a, b, c := newDiamond(t)
	order := BuildTrace(target, nil)

	seen := make(map[lir.BlockID]int)
	for _, id := range order {
		seen[id]++
	}
	for _, id := range []lir.BlockID{target.Entry, a, b, c, target.Exit} {
		if seen[id] != 1 {
			t.Fatalf("block %v visited %d times, want 1", id, seen[id])
		}
	}
}

func TestBuildTracePrefersHeavierSuccessor(t *testing.T) {
	target, a, b, c := newDiamond(t)
	weigh := func(from, to lir.BlockID) float64 {
		if from == a && to == c {
			return 100
		}
		return 1
	}
	order := BuildTrace(target, weigh)

	posA, posC := -1, -1
	for i, id := range order {
		if id == a {
			posA = i
		}
		if id == c {
			posC = i
		}
	}
	if posC != posA+1 {
		t.Fatalf("expected c to immediately follow a in the trace, got order %v (a=%d c=%d)", order, posA, posC)
	}
	_ = b
}

type recordingHandler struct {
	exits         []lir.BlockID
	fallthroughs  map[lir.BlockID]bool
	branchedNexts map[lir.BlockID]lir.BlockID
}

func (r *recordingHandler) HandleExit(f *lir.Func, b lir.BlockID) {
	r.exits = append(r.exits, b)
}

func (r *recordingHandler) HandleFallthrough(f *lir.Func, b, succ, next lir.BlockID, isFallthrough bool) {
	if r.fallthroughs == nil {
		r.fallthroughs = make(map[lir.BlockID]bool)
	}
	r.fallthroughs[b] = isFallthrough
}

func (r *recordingHandler) HandleBranch(f *lir.Func, b, trueTarget, falseTarget, next lir.BlockID) {
	if r.branchedNexts == nil {
		r.branchedNexts = make(map[lir.BlockID]lir.BlockID)
	}
	r.branchedNexts[b] = next
}

func TestNormalizeDispatchesBySuccessorCount(t *testing.T) {
	target, a, _, _ := newDiamond(t)
	order := BuildTrace(target, nil)
	h := &recordingHandler{}
	Normalize(target, order, h)

	if _, ok := h.branchedNexts[a]; !ok {
		t.Fatalf("expected the two-successor block to dispatch through HandleBranch")
	}
	if len(h.exits) != 1 || h.exits[0] != target.Exit {
		t.Fatalf("expected exactly the exit block to dispatch through HandleExit, got %v", h.exits)
	}
}

func TestClassifyBranchesFlagsLongDisplacement(t *testing.T) {
	target, a, b, c := newDiamond(t)

	branch := target.NewInstr(lir.Instr{Mnemonic: "JCC", IsBranch: true, Operands: []lir.Operand{lir.BlockOperand(c)}})
	target.Block(a).Instrs = []lir.InstrID{branch}
	// pad b with enough instructions that c ends up far away in byte terms.
	var padded []lir.InstrID
	for i := 0; i < 8; i++ {
		padded = append(padded, target.NewInstr(lir.Instr{Mnemonic: "NOP"}))
	}
	target.Block(b).Instrs = padded

	order := []lir.BlockID{target.Entry, a, b, c, target.Exit}
	size := func(in *lir.Instr) int {
		if in.IsBranch {
			if in.Long {
				return 6
			}
			return 2
		}
		return 4
	}
	ClassifyBranches(target, order, size, 4)

	if !target.Instr(branch).Long {
		t.Fatalf("expected the branch over b to have been classified long")
	}
}
