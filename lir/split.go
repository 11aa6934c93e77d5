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

package lir

// SplitCoprocBlocks finds, for targets that need it, any block whose
// coprocessor access (Instr.IsCoproc) is not its last instruction and
// splits the block right after that access (§4.6: "a coprocessor call
// may transfer control implicitly"), preserving successor edges and the
// handler tag on both halves — mirrored from octeon-backend.cpp's own
// post-selection block splitting around coprocessor calls.
func SplitCoprocBlocks(f *Func) {
	next := BlockID(0)
	for _, id := range f.order {
		if int32(id) >= int32(next) {
			next = id + 1
		}
	}
	work := f.BlockIDs()
	var fresh []BlockID
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		blk := f.blocks[id]
		for i := 0; i < len(blk.Instrs)-1; i++ {
			in := f.Instr(blk.Instrs[i])
			if !in.IsCoproc {
				continue
			}
			newID := next
			next++
			tail := append([]InstrID(nil), blk.Instrs[i+1:]...)
			blk.Instrs = blk.Instrs[:i+1]

			tailBlock := &Block{
				ID:         newID,
				Instrs:     tail,
				Succs:      blk.Succs,
				Preds:      []BlockID{id},
				HandlerTag: blk.HandlerTag,
			}
			blk.Succs = []BlockID{newID}
			f.blocks[newID] = tailBlock
			fresh = append(fresh, newID)
			for _, s := range tailBlock.Succs {
				sb := f.blocks[s]
				for j, p := range sb.Preds {
					if p == id {
						sb.Preds[j] = newID
					}
				}
			}
			work = append(work, newID) // the tail may itself need further splitting
			break
		}
	}
	f.order = append(f.order, fresh...)
}
