/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package runtimeabi is the boundary §6 describes between a compiled
// handler and the runtime that owns it: the exchange-buffer/handler-state
// shapes a handler function actually receives, the connection table a
// driver publishes compiled function pointers into, and the coprocessor
// dispatch table with the register-flag bits published per coprocessor
// register (the register allocator in this module does not read them).
// None of this is IR; it is the ABI the
// emitted code and the host process agree on.
package runtimeabi

import "unsafe"

// ExchangeBuffer is the per-packet scratch area a handler reads and
// writes through OpLoadExchange/OpStoreExchange; the runtime allocates
// and owns the backing memory, the JIT only ever sees an opaque pointer
// to it, matching §6's "Lookup tables and coprocessor state are owned by
// the runtime; the JIT references them by symbolic descriptor only."
type ExchangeBuffer struct {
	Data unsafe.Pointer
	Len  int32
}

// HandlerState is the third argument every compiled handler receives,
// carrying whatever per-connection state the runtime threads through
// repeated invocations of the same handler (its owning PE's port table,
// lookup-table handles, coprocessor dispatch table). The JIT treats its
// layout as opaque and only ever passes the pointer through.
type HandlerState struct {
	Opaque unsafe.Pointer
}

// HandlerFunc is the exact signature §6 fixes for a compiled push/init/
// pull handler: "a function pointer of type
// int32 (*)(ExchangeBuffer**, int, HandlerState*)". n is the number of
// exchange buffers in the exbuf array (a handler may be invoked with more
// than one in flight when the runtime batches packets).
type HandlerFunc func(exbuf []*ExchangeBuffer, n int32, state *HandlerState) int32

// RegFlag is one bit describing how a coprocessor op uses one of its
// registers, per §6: "Register-flag bits (COPREG_READ, COPREG_WRITE)
// published per coprocessor register describe which banks are used and
// defined by each op; the allocator consumes these to build the correct
// live-set."
type RegFlag uint8

const (
	CoregRead RegFlag = 1 << iota
	CoregWrite
)

// CoprocRegInfo is what the runtime publishes for one (coprocessor,
// register) pair: which ops touch it and how.
type CoprocRegInfo struct {
	CoprocID int32
	Register uint32
	Flags    RegFlag
}
