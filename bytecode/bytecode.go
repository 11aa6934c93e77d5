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

// Package bytecode reads the NetVM bytecode input contract §6 fixes: "a
// sequence of typed sections (code, data, exports, init entry, push
// entry, pull entry)... The JIT consumes code-section bytes plus entry
// offsets plus a table mapping bytecode IP to source line... the JIT
// treats it as read-only input." This package owns none of the section
// layout's meaning beyond what it needs to hand a CFG builder a flat
// byte slice, entry offsets, and a line map; interpreting opcodes inside
// the code section is the CFG builder's job, not this one's.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SectionKind enumerates the typed sections §6 names: code, data,
// exports, and the init/push/pull entry points. Read/Write do not carry a
// data section; the entry points travel as offsets in the fixed header.
type SectionKind uint8

const (
	SectionCode SectionKind = iota
	SectionData
	SectionExports
	SectionInit
	SectionPush
	SectionPull
)

func (k SectionKind) String() string {
	switch k {
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionExports:
		return "exports"
	case SectionInit:
		return "init"
	case SectionPush:
		return "push"
	case SectionPull:
		return "pull"
	default:
		return fmt.Sprintf("section(%d)", uint8(k))
	}
}

// LineEntry maps one bytecode instruction pointer to a source line,
// mirroring jit_interface.cpp's Insn2LineTable (a flat stream of
// (ip uint32, line uint32) pairs read four bytes at a time).
type LineEntry struct {
	IP   uint32
	Line uint32
}

// Export is one named entry point a segment exposes to its PE's port
// table — a symbol name plus the code-section offset it starts at.
type Export struct {
	Name   string
	Offset uint32
}

// Segment is one compiled handler's bytecode plus everything the driver
// needs to locate its code and recover source line numbers for
// diagnostics, the in-memory form of §6's bytecode input contract.
type Segment struct {
	Name       string
	LocalsSize uint32
	MaxStack   uint32
	Code       []byte
	InitOffset uint32 // 0 if this segment has no init entry
	PushOffset uint32
	PullOffset uint32
	Exports    []Export
	LineMap    []LineEntry
}

// header is the fixed field order a segment's binary form stores ahead of
// its variable-length sections (name, code, exports, line map); this
// layout is defined by Read/Write in this package.
type header struct {
	NameLen    uint32
	LocalsSize uint32
	MaxStack   uint32
	CodeLen    uint32
	InitOffset uint32
	PushOffset uint32
	PullOffset uint32
	ExportLen  uint32
	LineMapLen uint32
}

// Read parses one Segment from r. It never validates bytecode opcode
// semantics — that is the CFG builder's job once it walks Code — only
// that the section framing itself is well-formed (every declared length
// has that many bytes actually present).
func Read(r io.Reader) (*Segment, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("bytecode: reading header: %w", err)
	}

	name := make([]byte, h.NameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("bytecode: reading name (%d bytes): %w", h.NameLen, err)
	}

	code := make([]byte, h.CodeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, fmt.Errorf("bytecode: reading code section (%d bytes): %w", h.CodeLen, err)
	}

	exports := make([]Export, h.ExportLen)
	for i := range exports {
		var nameLen, offset uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("bytecode: reading export %d name length: %w", i, err)
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, fmt.Errorf("bytecode: reading export %d name: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return nil, fmt.Errorf("bytecode: reading export %d offset: %w", i, err)
		}
		exports[i] = Export{Name: string(nameBuf), Offset: offset}
	}

	lineMap := make([]LineEntry, h.LineMapLen)
	for i := range lineMap {
		if err := binary.Read(r, binary.LittleEndian, &lineMap[i]); err != nil {
			return nil, fmt.Errorf("bytecode: reading line map entry %d: %w", i, err)
		}
	}

	return &Segment{
		Name:       string(name),
		LocalsSize: h.LocalsSize,
		MaxStack:   h.MaxStack,
		Code:       code,
		InitOffset: h.InitOffset,
		PushOffset: h.PushOffset,
		PullOffset: h.PullOffset,
		Exports:    exports,
		LineMap:    lineMap,
	}, nil
}

// Write serializes a Segment back to its binary form, the inverse of
// Read; used by test fixtures and by a host that wants to cache a
// compiled-from segment without re-running whatever upstream tool
// produced the original bytes.
func Write(w io.Writer, s *Segment) error {
	h := header{
		NameLen:    uint32(len(s.Name)),
		LocalsSize: s.LocalsSize,
		MaxStack:   s.MaxStack,
		CodeLen:    uint32(len(s.Code)),
		InitOffset: s.InitOffset,
		PushOffset: s.PushOffset,
		PullOffset: s.PullOffset,
		ExportLen:  uint32(len(s.Exports)),
		LineMapLen: uint32(len(s.LineMap)),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("bytecode: writing header: %w", err)
	}
	if _, err := io.WriteString(w, s.Name); err != nil {
		return fmt.Errorf("bytecode: writing name: %w", err)
	}
	if _, err := w.Write(s.Code); err != nil {
		return fmt.Errorf("bytecode: writing code section: %w", err)
	}
	for i, e := range s.Exports {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Name))); err != nil {
			return fmt.Errorf("bytecode: writing export %d name length: %w", i, err)
		}
		if _, err := io.WriteString(w, e.Name); err != nil {
			return fmt.Errorf("bytecode: writing export %d name: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, e.Offset); err != nil {
			return fmt.Errorf("bytecode: writing export %d offset: %w", i, err)
		}
	}
	for i, l := range s.LineMap {
		if err := binary.Write(w, binary.LittleEndian, &l); err != nil {
			return fmt.Errorf("bytecode: writing line map entry %d: %w", i, err)
		}
	}
	return nil
}

// LineFor returns the source line mapped to ip, or 0 if the segment
// carries no mapping for it (a synthesized block with no bytecode
// origin, e.g. one the inliner created).
func (s *Segment) LineFor(ip uint32) uint32 {
	// LineMap is small (one entry per basic block boundary, not per
	// instruction) and not assumed sorted, so a linear scan is simplest
	// and correct; this is a diagnostics path, never hot.
	for _, e := range s.LineMap {
		if e.IP == ip {
			return e.Line
		}
	}
	return 0
}

// Entry returns the code-section offset for the requested handler kind,
// and whether this segment actually has that entry.
func (s *Segment) Entry(kind SectionKind) (uint32, bool) {
	switch kind {
	case SectionInit:
		return s.InitOffset, s.InitOffset != 0 || s.hasExport("_init")
	case SectionPush:
		return s.PushOffset, s.PushOffset != 0 || s.hasExport("_push")
	case SectionPull:
		return s.PullOffset, s.PullOffset != 0 || s.hasExport("_pull")
	default:
		return 0, false
	}
}

func (s *Segment) hasExport(name string) bool {
	for _, e := range s.Exports {
		if e.Name == name {
			return true
		}
	}
	return false
}
