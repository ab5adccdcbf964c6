// Package lr builds an SLR(1) shift/reduce table from a grammar (spec's
// grammar.Options.Lookaheads/Conflicts fields and the LalrConflict diagnostic
// category presuppose exactly this kind of table-driven bottom-up parser).
//
// Grounded on _examples/dekarrin-tunaq/internal/ictiobus/parse/slr.go, which
// runs the textbook "Algorithm 4.46" this package reimplements directly
// against grammar.Grammar rather than adapting the teacher's generic
// string-keyed automaton.DFA machinery (see DESIGN.md).
package lr

import "github.com/calderwood/hoshi/internal/grammar"

// firstSets maps every symbol's FIRST set (by Num) to the set of terminal
// Nums (and, for nonterminals that can derive epsilon, the sentinel
// epsilonNum) it can start with.
type firstSets struct {
	g    *grammar.Grammar
	sets map[int]map[int]bool
}

const epsilonNum = -1

func computeFirst(g *grammar.Grammar) *firstSets {
	fs := &firstSets{g: g, sets: map[int]map[int]bool{}}
	for _, t := range g.Terminals() {
		fs.sets[t.Num] = map[int]bool{t.Num: true}
	}
	for _, nt := range g.Nonterminals() {
		fs.sets[nt.Num] = map[int]bool{}
	}

	changed := true
	for changed {
		changed = false
		for _, rule := range g.Rules() {
			lhs := fs.sets[rule.LHS.Num]
			if rule.IsEpsilon() {
				if !lhs[epsilonNum] {
					lhs[epsilonNum] = true
					changed = true
				}
				continue
			}
			allEps := true
			for _, sym := range rule.RHS {
				symFirst := fs.sets[sym.Num]
				for t := range symFirst {
					if t == epsilonNum {
						continue
					}
					if !lhs[t] {
						lhs[t] = true
						changed = true
					}
				}
				if !symFirst[epsilonNum] {
					allEps = false
					break
				}
			}
			if allEps && !lhs[epsilonNum] {
				lhs[epsilonNum] = true
				changed = true
			}
		}
	}
	return fs
}

// sequence returns FIRST of a symbol sequence: every terminal Num that can
// start it, plus epsilonNum if the whole sequence can vanish.
func (fs *firstSets) sequence(seq []*grammar.Symbol) map[int]bool {
	out := map[int]bool{}
	allEps := true
	for _, sym := range seq {
		for t := range fs.sets[sym.Num] {
			if t != epsilonNum {
				out[t] = true
			}
		}
		if !fs.sets[sym.Num][epsilonNum] {
			allEps = false
			break
		}
	}
	if allEps {
		out[epsilonNum] = true
	}
	return out
}

// followSets maps every nonterminal's Num to the set of terminal Nums that
// can immediately follow it in some derivation (spec's grammar DSL has no
// explicit FOLLOW concept; this is purely an SLR(1) table-construction
// device).
func computeFollow(g *grammar.Grammar, fs *firstSets) map[int]map[int]bool {
	follow := map[int]map[int]bool{}
	for _, nt := range g.Nonterminals() {
		follow[nt.Num] = map[int]bool{}
	}
	eof := g.Symbol(grammar.EOFName)
	follow[g.StartRule.LHS.Num][eof.Num] = true

	changed := true
	for changed {
		changed = false
		for _, rule := range g.Rules() {
			for i, sym := range rule.RHS {
				if !sym.IsNonterminal {
					continue
				}
				rest := rule.RHS[i+1:]
				firstRest := fs.sequence(rest)
				for t := range firstRest {
					if t == epsilonNum {
						continue
					}
					if !follow[sym.Num][t] {
						follow[sym.Num][t] = true
						changed = true
					}
				}
				if firstRest[epsilonNum] {
					for t := range follow[rule.LHS.Num] {
						if !follow[sym.Num][t] {
							follow[sym.Num][t] = true
							changed = true
						}
					}
				}
			}
		}
	}
	return follow
}
