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

package mir

import (
	"encoding/binary"
	"hash/maphash"
)

// Validity selects whether a lookup table's contents are fixed at compile
// time or mutated by the running packet-processing graph (§3 "Lookup
// table").
type Validity uint8

const (
	ValidityStatic Validity = iota
	ValidityDynamic
)

// EntryMeta is the hidden per-entry metadata the runtime's lookup-table
// implementation maintains; the JIT only ever refers to it symbolically
// (§3: "actual storage lives in the runtime"), but the descriptor still
// carries the shape so instruction selection can size the coprocessor/call
// ABI for lookup_get/lookup_set correctly.
type EntryMeta struct {
	Flags     uint32
	Lifespan  int64 // nanoseconds; 0 = no expiry
	KeepTime  int64
	HitTime   int64
	NewHitTime int64
}

// LookupTable is the compile-time descriptor for a NetVM lookup table: a
// validity mode, parallel keys/values lists, and one EntryMeta per entry.
// Structurally this is the flat (key, value) pairs array plus a
// maphash-seeded hash index that assoc_fast.go's FastDict uses for O(1)
// amortized lookups, generalized from Scmer keys to the small fixed set of
// NetVM key encodings (int / string; there is no separate buffer key
// kind) and extended with the
// runtime's hidden metadata slots.
type LookupTable struct {
	Name     string
	Validity Validity

	keys   []Key
	values []SymbolID
	meta   []EntryMeta

	seed  maphash.Seed
	index map[uint64][]int
}

// Key is a lookup-table key: exactly one of the two key encodings
// (integer or string) is populated, selected by Kind.
type Key struct {
	Kind KeyKind
	Int  int64
	Str  string
}

type KeyKind uint8

const (
	KeyInt KeyKind = iota
	KeyString
)

func NewLookupTable(name string, validity Validity) *LookupTable {
	return &LookupTable{Name: name, Validity: validity, seed: maphash.MakeSeed(), index: make(map[uint64][]int)}
}

func hashKey(seed maphash.Seed, k Key) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	switch k.Kind {
	case KeyInt:
		h.WriteByte(0)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(k.Int))
		h.Write(b[:])
	case KeyString:
		h.WriteByte(1)
		h.WriteString(k.Str)
	}
	return h.Sum64()
}

func (t *LookupTable) findPos(k Key) (int, bool) {
	h := hashKey(t.seed, k)
	for _, pos := range t.index[h] {
		if t.keys[pos] == k {
			return pos, true
		}
	}
	return -1, false
}

// Get resolves a compile-time-known key against a static table. Dynamic
// tables never resolve at compile time; callers must check Validity first.
func (t *LookupTable) Get(k Key) (SymbolID, *EntryMeta, bool) {
	if pos, ok := t.findPos(k); ok {
		return t.values[pos], &t.meta[pos], true
	}
	return NoSymbol, nil, false
}

// Put inserts or overwrites an entry, used when building a static table
// from the front end's initializer data.
func (t *LookupTable) Put(k Key, v SymbolID) {
	h := hashKey(t.seed, k)
	if pos, ok := t.findPos(k); ok {
		t.values[pos] = v
		return
	}
	pos := len(t.keys)
	t.keys = append(t.keys, k)
	t.values = append(t.values, v)
	t.meta = append(t.meta, EntryMeta{})
	t.index[h] = append(t.index[h], pos)
}

func (t *LookupTable) Len() int { return len(t.keys) }

func (t *LookupTable) Entries() []Key { return t.keys }
