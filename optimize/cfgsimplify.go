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

package optimize

import "github.com/launix-de/nbjit/mir"

// CFGSimplify implements §4.4's control-flow simplification paragraph plus
// its three named follow-up cleanups (empty-BB elimination, jump-to-jump
// elimination, unreachable-block removal), bundled as one pass since the
// driver always runs them together and each can expose opportunities for
// the next.
type CFGSimplify struct{}

func (CFGSimplify) Name() string { return "cfg-simplification" }

func (CFGSimplify) Run(f *mir.Func) (bool, error) {
	changed := false
	if simplifyConstantTerminators(f) {
		changed = true
	}
	if foldJumpToJump(f) {
		changed = true
	}
	if elideEmptyBlocks(f) {
		changed = true
	}
	if removeUnreachable(f) {
		changed = true
	}
	return changed, nil
}

// simplifyConstantTerminators rewrites a Branch both of whose paths are
// decided by a compile-time-constant condition into a Jump, a Switch on a
// constant into a Jump to the matching case (or default), and a Switch
// with only one non-default case into a Branch (§4.4).
func simplifyConstantTerminators(f *mir.Func) bool {
	changed := false
	for _, b := range f.BlockIDs() {
		blk := f.Block(b)
		if len(blk.Stmts) == 0 {
			continue
		}
		term := f.Node(blk.Stmts[len(blk.Stmts)-1])
		switch term.Op {
		case mir.OpBranch:
			if v, ok := constOf(f, term.Kids[0]); ok {
				taken := term.Extra.Targets[0]
				notTaken := term.Extra.Targets[1]
				if v == 0 {
					taken, notTaken = notTaken, taken
				}
				rewriteToJump(f, b, term, taken, notTaken)
				changed = true
			}
		case mir.OpSwitch:
			if v, ok := constOf(f, term.Kids[0]); ok {
				target := term.Extra.Targets[len(term.Extra.Targets)-1] // default
				for i, c := range term.Extra.Cases {
					if c == v {
						target = term.Extra.Targets[i]
						break
					}
				}
				dropped := make([]mir.BlockID, 0, len(term.Extra.Targets)-1)
				for _, t := range term.Extra.Targets {
					if t != target {
						dropped = append(dropped, t)
					}
				}
				rewriteToJumpDropping(f, b, term, target, dropped)
				changed = true
			} else if len(term.Extra.Cases) == 1 {
				caseTarget := term.Extra.Targets[0]
				defaultTarget := term.Extra.Targets[len(term.Extra.Targets)-1]
				cmp := f.NewNode(mir.Node{
					Op:   mir.OpCmpEq,
					Kids: [2]mir.NodeID{term.Kids[0], f.NewNode(mir.Node{Op: mir.OpConstInt, ConstInt: term.Extra.Cases[0]})},
				})
				term.Op = mir.OpBranch
				term.Kids = [2]mir.NodeID{cmp, mir.NoNode}
				term.Extra = &mir.StmtExtra{Targets: []mir.BlockID{caseTarget, defaultTarget}}
				changed = true
			}
		}
	}
	return changed
}

func rewriteToJump(f *mir.Func, b mir.BlockID, term *mir.Node, taken, notTaken mir.BlockID) {
	term.Op = mir.OpJump
	term.Kids = [2]mir.NodeID{mir.NoNode, mir.NoNode}
	term.Extra = &mir.StmtExtra{Targets: []mir.BlockID{taken}}
	if taken != notTaken {
		f.DeleteEdge(b, notTaken)
	}
}

func rewriteToJumpDropping(f *mir.Func, b mir.BlockID, term *mir.Node, target mir.BlockID, dropped []mir.BlockID) {
	term.Op = mir.OpJump
	term.Kids = [2]mir.NodeID{mir.NoNode, mir.NoNode}
	term.Extra = &mir.StmtExtra{Targets: []mir.BlockID{target}}
	for _, d := range dropped {
		f.DeleteEdge(b, d)
	}
}

// foldJumpToJump rewrites any Jump whose sole target is itself an
// unconditional Jump to point directly at the final target, to a fixed
// point (§4.4 "jump-to-jump elimination").
func foldJumpToJump(f *mir.Func) bool {
	changed := false
	for {
		roundChanged := false
		for _, b := range f.BlockIDs() {
			blk := f.Block(b)
			if len(blk.Stmts) == 0 {
				continue
			}
			term := f.Node(blk.Stmts[len(blk.Stmts)-1])
			if term.Op != mir.OpJump {
				continue
			}
			target := term.Extra.Targets[0]
			if target == b {
				continue
			}
			tblk := f.Block(target)
			if len(tblk.Stmts) != 1 {
				continue
			}
			tterm := f.Node(tblk.Stmts[0])
			if tterm.Op != mir.OpJump || tterm.Extra.Targets[0] == target {
				continue
			}
			final := tterm.Extra.Targets[0]
			f.DeleteEdge(b, target)
			f.AddEdge(b, final)
			term.Extra.Targets[0] = final
			roundChanged = true
		}
		if !roundChanged {
			break
		}
		changed = true
	}
	return changed
}

// elideEmptyBlocks removes a block with exactly one predecessor, one
// successor, and no statements, by redirecting its predecessor's
// terminator straight to its successor (§4.4 "empty-BB elimination").
func elideEmptyBlocks(f *mir.Func) bool {
	changed := false
	for _, b := range f.BlockIDs() {
		if b == f.Entry || b == f.Exit {
			continue
		}
		blk := f.Block(b)
		if len(blk.Stmts) != 0 || len(blk.Preds) != 1 || len(blk.Succs) != 1 {
			continue
		}
		pred, succ := blk.Preds[0], blk.Succs[0]
		retargetTerminatorTo(f, pred, b, succ)
		f.DeleteEdge(pred, b)
		f.DeleteEdge(b, succ)
		f.AddEdge(pred, succ)
		f.DeleteNode(b)
		changed = true
	}
	return changed
}

func retargetTerminatorTo(f *mir.Func, b, from, to mir.BlockID) {
	blk := f.Block(b)
	if len(blk.Stmts) == 0 {
		return
	}
	term := f.Node(blk.Stmts[len(blk.Stmts)-1])
	if term.Extra == nil {
		return
	}
	for i, t := range term.Extra.Targets {
		if t == from {
			term.Extra.Targets[i] = to
		}
	}
}

// removeUnreachable deletes every block no longer reachable from Entry
// (§4.4: "Unreachable blocks are then removed").
func removeUnreachable(f *mir.Func) bool {
	reachable := make(map[mir.BlockID]bool)
	f.Walk(mir.Preorder, false, func(b mir.BlockID) { reachable[b] = true })
	changed := false
	for _, b := range f.BlockIDs() {
		if b == f.Entry || b == f.Exit || reachable[b] {
			continue
		}
		f.DeleteNode(b)
		changed = true
	}
	return changed
}
