package regspace

import "testing"

func TestManagerDenseNaming(t *testing.T) {
	m := NewManager()
	a := m.New(SpaceVirtual)
	b := m.New(SpaceVirtual)
	if a.Name != 0 || b.Name != 1 {
		t.Fatalf("expected dense names 0,1; got %d,%d", a.Name, b.Name)
	}
	if latest, ok := m.LatestName(SpaceVirtual); !ok || latest != 1 {
		t.Fatalf("LatestName = %d,%v; want 1,true", latest, ok)
	}
}

func TestManagerRenameCommitsThroughAllHolders(t *testing.T) {
	m := NewManager()
	v := m.New(SpaceVirtual)
	m.Rename(v, SpaceMachine, 3)
	got := m.Resolve(v)
	want := Register{Space: SpaceMachine, Name: 3}
	if got != want {
		t.Fatalf("Resolve(%v) = %v, want %v", v, got, want)
	}
}

func TestSameStorageIgnoresVersion(t *testing.T) {
	a := Register{Space: SpaceVirtual, Name: 5, Version: 1}
	b := Register{Space: SpaceVirtual, Name: 5, Version: 2}
	if !a.SameStorage(b) {
		t.Fatalf("expected same storage across SSA versions")
	}
	if a == b {
		t.Fatalf("expected distinct SSA values to compare unequal")
	}
}

func TestDenseMapSkipsKeptSpaces(t *testing.T) {
	regs := []Register{
		{Space: SpaceVirtual, Name: 40},
		{Space: SpaceConstant, Name: 2},
		{Space: SpaceVirtual, Name: 41},
		{Space: SpaceVirtual, Name: 40}, // repeat occurrence
	}
	DenseMap(SpaceMachine, map[Space]bool{SpaceConstant: true}, func(mapReg func(Register) Register) {
		for i, r := range regs {
			regs[i] = mapReg(r)
		}
	})
	if regs[1].Space != SpaceConstant || regs[1].Name != 2 {
		t.Fatalf("constant register should be untouched, got %v", regs[1])
	}
	if regs[0] != regs[3] {
		t.Fatalf("repeat occurrences of the same register must map identically, got %v vs %v", regs[0], regs[3])
	}
	if regs[0].Space != SpaceMachine || regs[2].Space != SpaceMachine || regs[0].Name == regs[2].Name {
		t.Fatalf("expected two distinct dense machine names, got %v and %v", regs[0], regs[2])
	}
}
