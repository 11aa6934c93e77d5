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

package runtimeabi

import (
	"fmt"

	nlrm "github.com/launix-de/NonLockingReadMap"
)

// portEntry is one published connection: a peer's port now has a
// compiled function pointer to call. Key is "<pe>#<port>" so the
// underlying map's ordered binary search stays a single comparable key
// rather than a composite one, matching how jit_interface.cpp's
// connectFunctionToHandler writes CtdHandlerFunct into one flat
// ConnTable[port] array per PE.
type portEntry struct {
	key     string
	peName  string
	port    uint32
	handler HandlerFunc
}

func (e *portEntry) GetKey() string { return e.key }

// ComputeSize is an approximation; the entry holds no heap data besides
// the closure itself, whose size NonLockingReadMap cannot introspect.
func (e *portEntry) ComputeSize() uint { return 64 }

func portKey(peName string, port uint32) string {
	return fmt.Sprintf("%s#%d", peName, port)
}

// ConnTable is the runtime's published connection table §6 describes:
// "the runtime wires connected PE ports together by storing handler
// pointers in peer PEs' port tables." It is read very often (every
// packet routed through a push handler that sends to a peer) and written
// very rarely (once per compiled handler, at link time), exactly the
// access pattern NonLockingReadMap is built for — grounded on the
// teacher's own use of the same map for a mutating table read
// concurrently by many goroutines.
type ConnTable struct {
	m nlrm.NonLockingReadMap[portEntry, string]
}

// NewConnTable returns an empty, ready-to-use table.
func NewConnTable() *ConnTable {
	m := nlrm.New[portEntry, string]()
	return &ConnTable{m: m}
}

// Publish installs fn as the handler a peer PE's port now calls,
// replacing whatever was previously wired there (including nil, for a
// port that was never connected). It is the Go analogue of
// connectFunctionToHandler's "CtdPE->PEState->ConnTable[n].CtdHandlerFunct
// = functPushBuffer" assignment, generalized from a single raw pointer
// write to a lock-free published map entry so readers never observe a
// torn pointer.
func (c *ConnTable) Publish(peName string, port uint32, fn HandlerFunc) {
	c.m.Set(&portEntry{key: portKey(peName, port), peName: peName, port: port, handler: fn})
}

// Lookup returns the handler currently wired to a peer's port, or nil if
// that port has never been connected or was only ever assembled (never
// natively compiled) — §6: "leaves it null if only assembly was
// requested."
func (c *ConnTable) Lookup(peName string, port uint32) HandlerFunc {
	e := c.m.Get(portKey(peName, port))
	if e == nil {
		return nil
	}
	return e.handler
}

// Unpublish clears a previously wired port, e.g. when the PE graph is
// torn down and destroying the runtime unmaps the handler's code buffer
// (§5's "destroying the runtime unmaps and releases the buffer").
func (c *ConnTable) Unpublish(peName string, port uint32) {
	c.m.Remove(portKey(peName, port))
}
