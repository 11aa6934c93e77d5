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

package regalloc

import (
	"github.com/launix-de/nbjit/lir"
	"github.com/launix-de/nbjit/regspace"
)

// DefaultSpiller implements §4.7's "rewrite" phase directly: one
// SpaceSpill stack slot per victim, a fresh virtual loaded from its slot
// before every use, and a fresh virtual stored to its slot after every
// def — the new virtuals have deliberately short live ranges (spanning
// only the single instruction they were inserted for) so the next
// coloring attempt reliably succeeds for them. LoadMnemonic/StoreMnemonic
// default to a generic placeholder a target's emitter recognizes and
// lowers to its real stack-relative load/store; set them to the target's
// own mnemonics to skip that indirection.
type DefaultSpiller struct {
	LoadMnemonic  string
	StoreMnemonic string
}

func (s DefaultSpiller) Spill(f *lir.Func, regs *regspace.Manager, space regspace.Space, victims []uint32) error {
	loadMn := s.LoadMnemonic
	if loadMn == "" {
		loadMn = "LOAD_SPILL"
	}
	storeMn := s.StoreMnemonic
	if storeMn == "" {
		storeMn = "STORE_SPILL"
	}

	slots := make(map[uint32]regspace.Register, len(victims))
	for _, v := range victims {
		slots[v] = regs.New(regspace.SpaceSpill)
	}

	for _, id := range f.BlockIDs() {
		blk := f.Block(id)
		rebuilt := make([]lir.InstrID, 0, len(blk.Instrs))
		for _, iid := range blk.Instrs {
			instr := f.Instr(iid)

			for oi := range instr.Operands {
				op := &instr.Operands[oi]
				if op.Kind != lir.OperandReg || op.Reg.Space != space {
					continue
				}
				slot, ok := slots[op.Reg.Name]
				if !ok {
					continue
				}
				fresh := regs.New(space)
				loadID := f.NewInstr(lir.Instr{
					Mnemonic: loadMn,
					Def:      fresh,
					HasDef:   true,
					Operands: []lir.Operand{lir.Reg(slot)},
				})
				rebuilt = append(rebuilt, loadID)
				op.Reg = fresh
			}

			var storeID lir.InstrID = lir.NoInstr
			if instr.HasDef && instr.Def.Space == space {
				if slot, ok := slots[instr.Def.Name]; ok {
					fresh := regs.New(space)
					instr.Def = fresh
					storeID = f.NewInstr(lir.Instr{
						Mnemonic: storeMn,
						Operands: []lir.Operand{lir.Reg(fresh), lir.Reg(slot)},
					})
				}
			}

			rebuilt = append(rebuilt, iid)
			if storeID != lir.NoInstr {
				rebuilt = append(rebuilt, storeID)
			}
		}
		blk.Instrs = rebuilt
	}
	return nil
}
