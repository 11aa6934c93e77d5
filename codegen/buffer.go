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

// Package codegen implements the binary and text-assembly emitters
// (§4.9): a page-aligned machine-code buffer with label/fixup
// bookkeeping, a text-assembly sink, and the trace walker both modes
// share, plus prologue/epilogue injection. Per-target instruction
// encoding lives in codegen/amd64, codegen/arm64, codegen/netproc, and
// codegen/csource.
package codegen

import (
	"sync"
	"syscall"
	"unsafe"

	"github.com/dc0d/onexit"
)

// Fixup records a forward reference into a Buffer that must be patched
// once every block's address is known, generalizing jit_writer.go's
// fixed JITFixup array into a growable slice (a whole-program compile
// unit has far more labels than the teacher's single hand-written
// snippet ever did).
type Fixup struct {
	CodePos  int    // byte offset into Buffer.code
	Label    int    // target label id
	Size     uint8  // 1, 4, or 8 byte patch field
	Relative bool   // PC-relative (displacement) vs absolute
}

// Buffer is a growable, page-backed machine-code buffer. Code is
// accumulated into a plain Go slice (so instruction encoders never deal
// with raw pointers); MakeExecutable copies the final bytes into an
// mmap'd page and flips its protection, mirroring jit.go's
// allocExec/makeRX pair generalized from a single fixed-size scratch
// buffer to however many pages the final code needs.
type Buffer struct {
	code   []byte
	labels []int // label id -> byte offset, -1 until placed
	fixups []Fixup
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Pos returns the current write position.
func (b *Buffer) Pos() int { return len(b.code) }

// Emit appends raw bytes at the current position.
func (b *Buffer) Emit(bytes ...byte) { b.code = append(b.code, bytes...) }

// EmitInt32 appends v little-endian, reserving a 4-byte immediate/
// displacement field (callers needing a fixup there should take Pos
// first, emit zero here, and record a Fixup at that position).
func (b *Buffer) EmitInt32(v int32) {
	b.Emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// NewLabel allocates a fresh, as-yet-unplaced label id.
func (b *Buffer) NewLabel() int {
	id := len(b.labels)
	b.labels = append(b.labels, -1)
	return id
}

// MarkLabel records label's position as the buffer's current write
// offset (called once per block, at the start of its first instruction).
func (b *Buffer) MarkLabel(label int) {
	b.labels[label] = len(b.code)
}

// AddFixup records a size-byte reference field at codePos (a field the
// caller already emitted) pointing at label, to be patched by
// ResolveFixups once every label is placed.
func (b *Buffer) AddFixup(codePos, label int, size uint8, relative bool) {
	b.fixups = append(b.fixups, Fixup{CodePos: codePos, Label: label, Size: size, Relative: relative})
}

// ResolveFixups patches every recorded forward reference now that every
// label has a final position, the same two-phase emit-then-patch
// structure jit_writer.go's ResolveFixups uses.
func (b *Buffer) ResolveFixups() {
	for _, f := range b.fixups {
		target := b.labels[f.Label]
		var value int64
		if f.Relative {
			value = int64(target - (f.CodePos + int(f.Size)))
		} else {
			value = int64(target)
		}
		for i := uint8(0); i < f.Size; i++ {
			b.code[f.CodePos+int(i)] = byte(value >> (8 * i))
		}
	}
}

// Bytes returns the accumulated code. Call after ResolveFixups.
func (b *Buffer) Bytes() []byte { return b.code }

// ExecPage is a writable-then-executable mmap'd mapping holding the
// final patched code, mirroring jit.go's execBuf/allocExec/makeRX: pages
// start PROT_READ|PROT_WRITE so the code can be copied in, then flip to
// PROT_READ|PROT_EXEC once fixups are resolved.
type ExecPage struct {
	mem []byte
}

// livePages tracks every ExecPage still mapped so the process-exit hook
// below can unmap them; a driver that forgets to Release a page (a
// compile that failed downstream of MakeExecutable, or a unit the host
// simply never unloads) would otherwise leak the mapping for the life of
// the process.
var (
	livePagesMu sync.Mutex
	livePages   = map[*ExecPage]struct{}{}
	registerExitOnce sync.Once
)

func trackPage(p *ExecPage) {
	registerExitOnce.Do(func() {
		onexit.Register(func() {
			livePagesMu.Lock()
			defer livePagesMu.Unlock()
			for p := range livePages {
				syscall.Munmap(p.mem)
			}
		})
	})
	livePagesMu.Lock()
	livePages[p] = struct{}{}
	livePagesMu.Unlock()
}

func untrackPage(p *ExecPage) {
	livePagesMu.Lock()
	delete(livePages, p)
	livePagesMu.Unlock()
}

// MakeExecutable copies b's resolved bytes into a fresh mmap'd page and
// flips its protection from write+read to read+execute.
func (b *Buffer) MakeExecutable() (*ExecPage, error) {
	page := syscall.Getpagesize()
	n := (len(b.code) + page - 1) &^ (page - 1)
	if n == 0 {
		n = page
	}
	mem, err := syscall.Mmap(-1, 0, n, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, err
	}
	copy(mem, b.code)
	if err := syscall.Mprotect(mem, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		syscall.Munmap(mem)
		return nil, err
	}
	page2 := &ExecPage{mem: mem}
	trackPage(page2)
	return page2, nil
}

// Addr returns the page's base address as a function pointer callers
// cast to the compiled function's actual Go signature.
func (p *ExecPage) Addr() uintptr {
	if len(p.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p.mem[0]))
}

// Release unmaps the page (the unit was dropped, recompiled, or failed
// to compile after pages were already reserved).
func (p *ExecPage) Release() error {
	untrackPage(p)
	if p.mem == nil {
		return nil
	}
	err := syscall.Munmap(p.mem)
	p.mem = nil
	return err
}
