// Package scanner implements the scanner generator (spec component C8): each
// scanned terminal's regex AST (spec §4.6) is compiled through an NFA with
// epsilon moves, determinized by subset construction, minimized, and emitted
// as DFA-state bytecode using the VM's Scan* opcode family.
//
// Grounded structurally on
// _examples/original_source/cpp/libsrc/ScannerGenerator.H/.cpp, which runs
// exactly this Thompson-construction-then-subset-construction pipeline; the
// teacher's flyweight pool idiom (github.com/dekarrin/tunaq/internal/
// ictiobus/grammar) again supplies the shape for the per-generation NFA/DFA
// state pools.
package scanner

import (
	"fmt"
	"sort"

	"github.com/calderwood/hoshi/internal/grammar"
)

// runeRange is an inclusive codepoint range, the unit both character classes
// and DFA transitions are built from.
type runeRange struct {
	Lo, Hi rune
}

func single(r rune) runeRange { return runeRange{r, r} }

// fullRange spans every codepoint a ScanChar instruction might see; used as
// the expansion of a negated class or "." once its exclusions are known.
var fullRange = runeRange{0, 0x10FFFF}

// negate returns the complement of the given (sorted, non-overlapping)
// ranges within fullRange.
func negate(ranges []runeRange) []runeRange {
	var out []runeRange
	cursor := fullRange.Lo
	for _, r := range ranges {
		if r.Lo > cursor {
			out = append(out, runeRange{cursor, r.Lo - 1})
		}
		if r.Hi+1 > cursor {
			cursor = r.Hi + 1
		}
	}
	if cursor <= fullRange.Hi {
		out = append(out, runeRange{cursor, fullRange.Hi})
	}
	return out
}

var (
	digitRanges = []runeRange{{'0', '9'}}
	spaceRanges = []runeRange{{' ', ' '}, {'\t', '\t'}, {'\n', '\n'}, {'\r', '\r'}, {'\f', '\f'}, {'\v', '\v'}}
)

// parseClassLexeme parses the body of a "[...]" class (spec §4.6), e.g.
// "a-zA-Z0-9_" or an escape shorthand like "\s", "\d", into its ranges.
// Negation ("[^...]") is the caller's concern (RegexKindClassNegated); this
// always returns the positive ranges named by lexeme.
func parseClassLexeme(lexeme string) ([]runeRange, error) {
	switch lexeme {
	case `\d`:
		return digitRanges, nil
	case `\D`:
		return negate(digitRanges), nil
	case `\s`:
		return spaceRanges, nil
	case `\S`:
		return negate(spaceRanges), nil
	}

	runes := []rune(lexeme)
	var out []runeRange
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\\' && i+1 < len(runes) {
			i++
			out = append(out, single(unescape(runes[i])))
			continue
		}
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i+2] != '\\' {
			out = append(out, runeRange{c, runes[i+2]})
			i += 2
			continue
		}
		out = append(out, single(c))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty character class")
	}
	return out, nil
}

func unescape(c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

// precedenceWinner picks the accepting terminal to report when a DFA state
// accepts for more than one symbol (possible after unioning several
// terminals' NFAs): higher Symbol.Precedence wins (spec §4.6(ii)), grounded
// on ScannerGenerator.H's operator< plus ScannerGenerator.cpp's rbegin()-first
// walk over its ascending-keyed precedence map, both of which favor the
// larger precedence value; ties broken by declaration order (lower
// Symbol.Num).
func precedenceWinner(candidates []*grammar.Symbol) *grammar.Symbol {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Precedence > best.Precedence || (c.Precedence == best.Precedence && c.Num < best.Num) {
			best = c
		}
	}
	return best
}

// precedenceTies returns every candidate whose precedence equals the winning
// precedence, when there is more than one such candidate. A nil result means
// the winner was unambiguous. Regex is not compared here — two terminals
// tied on precedence are already known to overlap, since subset construction
// only merges accepting states when more than one terminal's NFA accepts
// the same input (spec §4.6(ii)).
func precedenceTies(candidates []*grammar.Symbol) []*grammar.Symbol {
	if len(candidates) < 2 {
		return nil
	}
	top := candidates[0].Precedence
	for _, c := range candidates[1:] {
		if c.Precedence > top {
			top = c.Precedence
		}
	}
	var tied []*grammar.Symbol
	for _, c := range candidates {
		if c.Precedence == top {
			tied = append(tied, c)
		}
	}
	if len(tied) < 2 {
		return nil
	}
	return tied
}

// sortByPrecedence returns candidates ordered highest-precedence-first (ties
// broken by declaration order), the order spec §4.6(iv) emits a DFA state's
// full accept-set cascade in: the code generator walks this list emitting a
// guarded ScanAccept per candidate so a lower-precedence token can still win
// at runtime when every higher candidate's guard evaluates false.
func sortByPrecedence(candidates []*grammar.Symbol) []*grammar.Symbol {
	out := make([]*grammar.Symbol, len(candidates))
	copy(out, candidates)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Precedence != out[j].Precedence {
			return out[i].Precedence > out[j].Precedence
		}
		return out[i].Num < out[j].Num
	})
	return out
}
