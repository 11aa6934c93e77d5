package runtimeabi

import "testing"

func TestConnTablePublishAndLookup(t *testing.T) {
	ct := NewConnTable()
	called := false
	ct.Publish("sink", 0, func(exbuf []*ExchangeBuffer, n int32, state *HandlerState) int32 {
		called = true
		return 1
	})

	fn := ct.Lookup("sink", 0)
	if fn == nil {
		t.Fatalf("expected a published handler")
	}
	fn(nil, 0, nil)
	if !called {
		t.Fatalf("expected the published handler to run")
	}
}

func TestConnTableLookupMissingPortReturnsNil(t *testing.T) {
	ct := NewConnTable()
	if fn := ct.Lookup("nobody", 3); fn != nil {
		t.Fatalf("expected nil for an unpublished port")
	}
}

func TestConnTableUnpublishClearsEntry(t *testing.T) {
	ct := NewConnTable()
	ct.Publish("pe", 1, func(exbuf []*ExchangeBuffer, n int32, state *HandlerState) int32 { return 0 })
	ct.Unpublish("pe", 1)
	if fn := ct.Lookup("pe", 1); fn != nil {
		t.Fatalf("expected lookup to miss after unpublish")
	}
}

func TestConnTableRepublishReplacesHandler(t *testing.T) {
	ct := NewConnTable()
	ct.Publish("pe", 0, func(exbuf []*ExchangeBuffer, n int32, state *HandlerState) int32 { return 1 })
	ct.Publish("pe", 0, func(exbuf []*ExchangeBuffer, n int32, state *HandlerState) int32 { return 2 })

	fn := ct.Lookup("pe", 0)
	if got := fn(nil, 0, nil); got != 2 {
		t.Fatalf("expected the second publish to win, got %d", got)
	}
}

func TestCoprocDispatchTableDispatchesRegisteredCoprocessor(t *testing.T) {
	tbl := NewCoprocDispatchTable()
	tbl.Register(7, func(op int32, state *HandlerState, operands []uint32) ([]uint32, error) {
		return []uint32{operands[0] + 1}, nil
	}, []CoprocRegInfo{{CoprocID: 7, Register: 0, Flags: CoregRead | CoregWrite}})

	out, err := tbl.Dispatch(7, 0, nil, []uint32{41})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(out) != 1 || out[0] != 42 {
		t.Fatalf("unexpected dispatch result: %v", out)
	}

	flags := tbl.RegFlags(7)
	if len(flags) != 1 || flags[0].Flags != CoregRead|CoregWrite {
		t.Fatalf("unexpected reg flags: %v", flags)
	}
}

func TestCoprocDispatchTableUnregisteredCoprocessorErrors(t *testing.T) {
	tbl := NewCoprocDispatchTable()
	if _, err := tbl.Dispatch(99, 0, nil, nil); err == nil {
		t.Fatalf("expected an error for an unregistered coprocessor")
	}
	if flags := tbl.RegFlags(99); flags != nil {
		t.Fatalf("expected nil reg flags for an unregistered coprocessor")
	}
}
