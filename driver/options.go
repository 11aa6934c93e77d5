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

// Package driver implements the JIT driver (§4.10): it orchestrates every
// other package into two compile modes (one function per processing
// element, or one inlined function per compilation unit), drives the
// compile of many independently-registered units concurrently, and owns
// the failure model of §4.11 (fatal per-function errors are aggregated
// rather than aborting the whole unit; no error kind aborts a per-PE
// compile, while an inline compile is one function, so its error is the
// unit's).
package driver

import (
	"io"

	units "github.com/docker/go-units"
)

// Flags is the bit-set jit_interface.cpp's target_options.flags packs:
// which output forms to produce and which optional passes to run.
type Flags uint32

const (
	// FlagNative requests binary machine code (codegen.EmitBinary,
	// loaded into an executable page).
	FlagNative Flags = 1 << iota
	// FlagAssembly requests textual assembly output (codegen.EmitText).
	FlagAssembly
	// FlagInit marks a compile as a PE's init handler; CompilePEGraph
	// sets it on every Init handler's options. CompileFunc does not read
	// it, so an init handler runs through the same pipeline as any other.
	FlagInit
	// FlagInline selects the inline compile mode: every handler in the
	// unit's PE graph is concatenated into one function and send
	// statements become direct jumps, instead of one function per PE.
	FlagInline
	// FlagBoundsCheck enables bounds-check elimination (optimize.BoundsCheckElim);
	// off by default since it is not sound without the guard-comparison
	// shape §4.4 assumes every target's front end produces.
	FlagBoundsCheck
)

// TargetOptions is the per-unit configuration §4.10 calls target_options:
// optimization aggressiveness, where compiled output goes, and which of
// the Flags above apply.
type TargetOptions struct {
	// OptLevel selects how aggressively optimize.Run's fixed-point loop
	// and the optional one-shot passes run: 0 skips optimization
	// entirely (debug builds), 1 runs the core fixed-point sequence, 2
	// additionally enables FlagBoundsCheck's pass.
	OptLevel int

	// OutputFilePrefix, when non-empty, makes assembly text land in
	// "<prefix><function-name>.s" instead of AssemblyStream, mirroring
	// jit_interface.cpp's per-function .s file naming.
	OutputFilePrefix string

	Flags Flags

	// AssemblyStream receives assembly text when OutputFilePrefix is
	// empty and FlagAssembly is set. Required in that case.
	AssemblyStream io.Writer

	// CodeBufferCap bounds a single function's emitted binary size; an
	// empty string means unbounded. Accepts a human-readable size
	// ("64KB", "2MiB"), parsed with docker/go-units the way a resource
	// limit would be read from a config file.
	CodeBufferCap string
}

// codeBufferCapBytes resolves CodeBufferCap to a byte count, or -1 if
// unset.
func (o TargetOptions) codeBufferCapBytes() (int64, error) {
	if o.CodeBufferCap == "" {
		return -1, nil
	}
	return units.RAMInBytes(o.CodeBufferCap)
}

func (o TargetOptions) openFileWriter(functionName string) (io.Writer, func() error, error) {
	if o.OutputFilePrefix == "" {
		return o.AssemblyStream, func() error { return nil }, nil
	}
	return newPrefixedFile(o.OutputFilePrefix, functionName)
}
