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

// DenseMap rewrites every register whose space is not in keep into target,
// assigning dense names starting at zero in first-seen order (§4.1
// Register_Mapping). Downstream passes (liveness, register allocation)
// assume names are dense within the space they scan; this pass is their
// precondition.
//
// visit is handed the mapping function; it must call it with every
// register occurrence in the function (defs and uses) and overwrite that
// occurrence in place with the returned mapped register.
func DenseMap(target Space, keep map[Space]bool, visit func(func(Register) Register)) {
	next := uint32(0)
	seen := make(map[Register]Register)
	mapper := func(r Register) Register {
		if keep[r.Space] {
			return r
		}
		if mapped, ok := seen[r]; ok {
			return mapped
		}
		mapped := Register{Space: target, Name: next, Version: r.Version}
		next++
		seen[r] = mapped
		return mapped
	}
	visit(mapper)
}
