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

// Package tablegen reads the textual instruction-selection rule DSL
// select.go's own doc comment anticipates ("rule tables here are built
// at runtime from a Table a backend assembles in Go... tablegen, a
// later package, additionally supports loading one from the textual
// BURG DSL"), and turns it into either a ready-to-use lir.Table
// (Load, for a backend that wants mechanical rules with no custom Emit
// logic) or generated Go source declaring the same table as literal
// code (GenerateGo, for a backend that wants to commit the rules to a
// reviewable .go file and add custom Emit logic by hand afterward).
//
// One rule per line:
//
//	rule <nonterm> <- <MIROp> [( <kidgoal> , <kidgoal> ... )] cost <n> [void] [mnemonic <name>]
//
// void marks a statement-level production with no result operand
// (Jump, Branch, Return); mnemonic names the LIR instruction the
// mechanical emitter should produce (default: the MIR opcode's own
// name, uppercased by convention already used throughout codegen's
// template tables).
package tablegen

import (
	"fmt"
	"strconv"
	"strings"

	packrat "github.com/launix-de/go-packrat/v2"
)

// RuleDecl is one parsed rule declaration, the DSL's AST node — the
// direct analogue of the (nonterm op kidgoals cost emit) tuple
// scm/packrat.go's generator clause builds per parsed production, here
// fixed to this grammar's concrete shape rather than a generic Scheme
// form.
type RuleDecl struct {
	NonTerm  string
	Op       string
	KidGoals []string
	Cost     int
	Void     bool
	Mnemonic string
	Line     int
}

var (
	pIdent      = packrat.NewRegexParser(`[A-Za-z_][A-Za-z0-9_]*`, false, true)
	pNumber     = packrat.NewRegexParser(`[0-9]+`, false, true)
	pComma      = packrat.NewAtomParser(",", false, true)
	pLParen     = packrat.NewAtomParser("(", false, true)
	pRParen     = packrat.NewAtomParser(")", false, true)
	pArrow      = packrat.NewAtomParser("<-", false, true)
	pRuleKw     = packrat.NewAtomParser("rule", false, true)
	pCostKw     = packrat.NewAtomParser("cost", false, true)
	pVoidKw     = packrat.NewAtomParser("void", false, true)
	pMnemonicKw = packrat.NewAtomParser("mnemonic", false, true)

	pKidTail = packrat.NewKleeneParser(
		packrat.NewAndParser(pComma, pIdent),
		packrat.NewEmptyParser(),
	)
	pKidList = packrat.NewMaybeParser(
		packrat.NewAndParser(pLParen, pIdent, pKidTail, pRParen),
	)
	pMnemonicClause = packrat.NewMaybeParser(packrat.NewAndParser(pMnemonicKw, pIdent))
	pVoidClause     = packrat.NewMaybeParser(pVoidKw)

	pRuleDecl = packrat.NewAndParser(
		pRuleKw, pIdent, pArrow, pIdent, pKidList, pCostKw, pNumber, pVoidClause, pMnemonicClause,
	)

	pGrammar = packrat.NewAndParser(
		packrat.NewKleeneParser(pRuleDecl, packrat.NewEmptyParser()),
		packrat.NewEndParser(true),
	)
)

// lineOf counts newlines in src up to offset, 1-based, for error
// messages a rule-table author can actually act on.
func lineOf(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return 1 + strings.Count(src[:offset], "\n")
}

// Parse reads the whole DSL text into an ordered list of RuleDecl, in
// source order (the order Load uses to break Table.Add ties the same
// way a hand-written table's call order would).
func Parse(src string) ([]RuleDecl, error) {
	scanner := packrat.NewScanner(src, packrat.SkipWhitespaceAndCommentsRegex)
	root, err := packrat.Parse(pGrammar, scanner)
	if err != nil {
		return nil, fmt.Errorf("tablegen: %w", err)
	}

	// root.Children[0] is the Kleene match over rule declarations;
	// packrat.KleeneParser interleaves match/separator nodes the same
	// way scm/packrat.go's ExtractScmer walks them (every even index is
	// a real match, odd indices are separator matches - here always
	// empty since the separator is EmptyParser).
	kleene := root.Children[0]
	decls := make([]RuleDecl, 0, len(kleene.Children))
	for i := 0; i < len(kleene.Children); i += 2 {
		d, err := decodeRuleDecl(kleene.Children[i], src)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// decodeRuleDecl turns one pRuleDecl match's children into a RuleDecl.
// pRuleDecl's AndParser children are positional in declaration order:
// [rule, nonterm, <-, op, kidlist?, cost, n, void?, mnemonic?].
func decodeRuleDecl(n *packrat.Node, src string) (RuleDecl, error) {
	d := RuleDecl{
		NonTerm: n.Children[1].Matched,
		Op:      n.Children[3].Matched,
		Line:    lineOf(src, n.Start),
	}

	if kidlist := n.Children[4]; len(kidlist.Children) > 0 {
		seq := kidlist.Children[0] // the inner AndParser match: ( ident tail )
		d.KidGoals = append(d.KidGoals, seq.Children[1].Matched)
		tail := seq.Children[2]
		for i := 0; i < len(tail.Children); i += 2 {
			pair := tail.Children[i] // AndParser(comma, ident)
			d.KidGoals = append(d.KidGoals, pair.Children[1].Matched)
		}
	}

	cost, err := strconv.Atoi(n.Children[6].Matched)
	if err != nil {
		return RuleDecl{}, fmt.Errorf("tablegen: line %d: invalid cost %q: %w", d.Line, n.Children[6].Matched, err)
	}
	d.Cost = cost

	if voidNode := n.Children[7]; len(voidNode.Children) > 0 {
		d.Void = true
	}

	if mnemonicNode := n.Children[8]; len(mnemonicNode.Children) > 0 {
		seq := mnemonicNode.Children[0]
		d.Mnemonic = seq.Children[1].Matched
	}
	if d.Mnemonic == "" {
		d.Mnemonic = strings.ToUpper(strings.TrimPrefix(d.Op, "Op"))
	}

	return d, nil
}
