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

package regspace

import "sync"

// Manager owns the dense-name counters for every space of one compilation
// unit. §5 requires these counters be scoped per unit rather than
// process-wide, since the teacher's allocator-bitmap approach
// (jit_types.go's JITContext.FreeRegs) is only safe for a single function;
// each mir.Func carries the Manager it was built with (driver.CompileInline
// creates a fresh one for its merged function), so units built with
// separate Managers never collide.
type Manager struct {
	mu       sync.Mutex
	next     [6]uint32 // dense "next name" counter per Space
	rename   map[Register]*Register
	props    map[Register]*Props
}

func NewManager() *Manager {
	return &Manager{rename: make(map[Register]*Register), props: make(map[Register]*Props)}
}

// New returns a fresh register in the given space, version 0.
func (m *Manager) New(space Space) Register {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := m.next[space]
	m.next[space]++
	return Register{Space: space, Name: name}
}

// NewVersion returns r unchanged: the Manager keeps no per-name version
// counter, so no fresh SSA version is allocated here. ssa.Construct
// numbers SSA versions itself.
func (m *Manager) NewVersion(r Register) Register {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next[SpaceVirtual] = m.next[SpaceVirtual] // no-op; versions don't consume the name counter
	return r
}

// LatestName returns the highest dense name allocated so far in space.
// Returns -1 (as 0, ok=false) if none has been allocated.
func (m *Manager) LatestName(space Space) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next[space] == 0 {
		return 0, false
	}
	return m.next[space] - 1, true
}

// Rename rewrites the underlying model for r so that every live reference
// the manager knows about resolves to (newSpace, newName). Only the
// register allocator may target SpaceMachine; only the spiller may target
// SpaceSpill (§4.1 invariant).
func (m *Manager) Rename(r Register, newSpace Space, newName uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := Register{Space: newSpace, Name: newName, Version: 0}
	m.rename[r] = &target
}

// Resolve follows any rename chain recorded for r, returning the final
// register. Registers never renamed resolve to themselves.
func (m *Manager) Resolve(r Register) Register {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[Register]bool{}
	cur := r
	for {
		if seen[cur] {
			return cur // defensive: rename cycle, should never happen
		}
		seen[cur] = true
		next, ok := m.rename[cur]
		if !ok {
			return cur
		}
		cur = *next
	}
}

// PropsFor returns (creating if necessary) the property map for r.
func (m *Manager) PropsFor(r Register) *Props {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.props[r]
	if !ok {
		p = &Props{}
		m.props[r] = p
	}
	return p
}
