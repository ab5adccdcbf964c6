// Package editor implements the grammar editor (spec component C9): five
// independent validation/cleanup passes that run after extraction and before
// any code emission. Grounded on
// _examples/original_source/cpp/libsrc/Editor.cpp, which runs the same
// passes in the same order over the same kind of flyweight symbol/rule
// tables.
package editor

import (
	"github.com/calderwood/hoshi/internal/collect"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/source"
)

// Run executes all five passes in order (spec §4.2). Warned-about symbols
// and rules are removed from g; if any pass records an error-severity
// diagnostic the generator must refuse to proceed (spec §4.2, §7), which
// Run reports via its bool return (true = safe to continue).
func Run(g *grammar.Grammar, sink *diag.Sink) bool {
	lhsNames, rhsRefs := collectReferences(g)

	undefinedNonterminals(g, sink, lhsNames, rhsRefs)
	unusedTerminals(g, sink, rhsRefs)
	unusedNonterminals(g, sink, lhsNames, rhsRefs)
	uselessNonterminals(g, sink)
	unreachableRules(g, sink)

	return !sink.HasErrors()
}

// collectReferences returns the set of nonterminal names that appear as some
// rule's LHS, and the set of all symbol names referenced anywhere in any
// rule's RHS (with their first reference location, for diagnostics).
func collectReferences(g *grammar.Grammar) (lhsNames collect.StringSet, rhsRefs map[string]int64) {
	lhsNames = collect.NewStringSet()
	rhsRefs = map[string]int64{}
	for _, r := range g.Rules() {
		lhsNames.Add(r.LHS.Name)
		for _, s := range r.RHS {
			if _, ok := rhsRefs[s.Name]; !ok {
				rhsRefs[s.Name] = r.Location
			}
		}
	}
	return lhsNames, rhsRefs
}

// undefinedNonterminals errors on any nonterminal referenced on some rhs but
// never appearing as a lhs (spec §4.2 pass 2, §8 scenario 4).
func undefinedNonterminals(g *grammar.Grammar, sink *diag.Sink, lhsNames collect.StringSet, rhsRefs map[string]int64) {
	for _, sym := range g.Nonterminals() {
		if !lhsNames.Has(sym.Name) {
			sink.Reportf(diag.UndefinedNonterm, rhsRefs[sym.Name], "nonterminal %q is never defined", sym.Name)
		}
	}
}

// unusedTerminals warns on any terminal that never appears on any rhs (spec
// §4.2 pass 1).
func unusedTerminals(g *grammar.Grammar, sink *diag.Sink, rhsRefs map[string]int64) {
	for _, sym := range g.Terminals() {
		if sym.Name == grammar.EOFName || sym.Name == grammar.ErrorName || sym.IsIgnored {
			continue
		}
		if _, ok := rhsRefs[sym.Name]; !ok {
			sink.Reportf(diag.UnusedTerm, source.NoLocation, "terminal %q is never used in any rule", sym.Name)
			g.RemoveSymbol(sym)
		}
	}
}

// unusedNonterminals warns on any nonterminal referenced nowhere but its own
// definitions (spec §4.2 pass 3) — i.e. it isn't the start symbol and no
// rule rhs names it.
func unusedNonterminals(g *grammar.Grammar, sink *diag.Sink, lhsNames collect.StringSet, rhsRefs map[string]int64) {
	for _, sym := range g.Nonterminals() {
		if g.StartRule != nil && sym == g.StartRule.LHS {
			continue
		}
		if _, ok := rhsRefs[sym.Name]; !ok {
			sink.Reportf(diag.UnusedNonterm, source.NoLocation, "nonterminal %q is never referenced", sym.Name)
			for _, r := range g.RulesFor(sym) {
				g.RemoveRule(r)
			}
			g.RemoveSymbol(sym)
		}
	}
}

// uselessNonterminals errors, by fixpoint, on any nonterminal that cannot
// derive any string of terminals (spec §4.2 pass 4). A nonterminal is
// "generating" if it has some rule all of whose rhs symbols are either
// terminals or already-known-generating nonterminals; epsilon rules make
// their lhs generating immediately.
func uselessNonterminals(g *grammar.Grammar, sink *diag.Sink) {
	generating := collect.NewStringSet()

	for {
		changed := false
		for _, r := range g.Rules() {
			if generating.Has(r.LHS.Name) {
				continue
			}
			ok := true
			for _, s := range r.RHS {
				if s.IsNonterminal && !generating.Has(s.Name) {
					ok = false
					break
				}
			}
			if ok {
				generating.Add(r.LHS.Name)
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, sym := range g.Nonterminals() {
		if !generating.Has(sym.Name) {
			sink.Reportf(diag.UselessNonterm, source.NoLocation, "nonterminal %q can never derive a terminal string", sym.Name)
		}
	}
}

// unreachableRules warns on any rule whose lhs is not reachable from the
// start symbol (spec §4.2 pass 5).
func unreachableRules(g *grammar.Grammar, sink *diag.Sink) {
	reachable := g.ReachableFromStart()
	for _, r := range g.Rules() {
		if !reachable.Has(r.LHS.Name) {
			sink.Reportf(diag.UselessRule, r.Location, "rule %q is unreachable from the start symbol", r.String())
			g.RemoveRule(r)
		}
	}
}
