package scanner

import (
	"sort"
	"strings"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/source"
)

// dfaState is one subset-construction state: the sorted set of NFA states it
// represents, its full accept-set (empty if non-accepting) ordered
// highest-precedence-first for the code generator's guard cascade (spec
// §4.6(iv)), and its outgoing range-guarded transitions.
type dfaState struct {
	nfaSet  []int
	accepts []*grammar.Symbol
	trans   []edge
}

// dfa is the unminimized automaton produced by subset construction over
// every scanned terminal's regex, unioned under one synthetic start state.
type dfa struct {
	states []*dfaState
	start  int
}

// build runs Thompson construction over every scanned terminal, then subset
// construction, producing one combined automaton (spec §4.6).
func build(g *grammar.Grammar, macros map[string]*ast.Node, sink *diag.Sink) *dfa {
	n := &nfa{}
	root := n.newState()
	for _, sym := range g.Terminals() {
		if !sym.IsScanned || sym.RegexAST == nil {
			continue
		}
		frag := buildTerminal(n, sym, macros, sink)
		n.addEps(root, frag.start)
	}
	return subsetConstruct(n, root, sink)
}

func epsilonClosure(n *nfa, seed []int) []int {
	seen := map[int]bool{}
	var stack, out []int
	for _, s := range seed {
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		stack = append(stack, n.states[s].eps...)
	}
	sort.Ints(out)
	return out
}

func setKey(set []int) string {
	b := make([]byte, 0, len(set)*5)
	for _, s := range set {
		b = append(b, byte(s), byte(s>>8), byte(s>>16), byte(s>>24), '|')
	}
	return string(b)
}

// resolveAccepts collects every accepting symbol for a DFA state representing
// the given NFA states, sorted highest-precedence-first (sortByPrecedence).
// The code generator walks this list in order, emitting a guarded ScanAccept
// per candidate (spec §4.6(iv)) so a lower-precedence token can still win at
// runtime if every higher candidate's guard evaluates false. Ties at the top
// precedence (more than one terminal's regex accepts here with nothing to
// distinguish them) are reported as a RegexConflict rather than silently
// resolved by precedenceWinner (spec §4.6(ii)); construction still returns
// the full sorted set so it can finish and collect any further diagnostics.
func resolveAccepts(n *nfa, set []int, sink *diag.Sink, reported map[string]bool) []*grammar.Symbol {
	var candidates []*grammar.Symbol
	for _, s := range set {
		if acc := n.states[s].accept; acc != nil {
			candidates = append(candidates, acc)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	if tied := precedenceTies(candidates); tied != nil {
		reportRegexConflict(sink, reported, tied)
	}
	return sortByPrecedence(candidates)
}

// reportRegexConflict records one RegexConflict diagnostic naming every
// symbol in tied, deduplicated by the set of names involved so that a
// conflict reachable from more than one DFA state is only reported once.
func reportRegexConflict(sink *diag.Sink, reported map[string]bool, tied []*grammar.Symbol) {
	names := make([]string, len(tied))
	for i, sym := range tied {
		names[i] = sym.Name
	}
	sort.Strings(names)
	key := strings.Join(names, ",")
	if reported[key] {
		return
	}
	reported[key] = true
	sink.Reportf(diag.RegexConflict, source.NoLocation,
		"tokens %s have overlapping regexes at the same precedence (%d); scanning cannot determine a winner",
		strings.Join(names, ", "), tied[0].Precedence)
}

// boundaries returns the sorted, deduplicated set of interval start points
// implied by every outgoing edge of the given NFA states: each edge
// contributes its Lo and Hi+1. Splitting the rune alphabet at exactly these
// points yields the coarsest partition where every edge is either wholly
// inside or wholly outside any one interval (spec §4.6's transition
// determinization).
func boundaries(n *nfa, set []int) []rune {
	pts := map[rune]bool{}
	for _, s := range set {
		for _, e := range n.states[s].trans {
			pts[e.Lo] = true
			if e.Hi < fullRange.Hi {
				pts[e.Hi+1] = true
			}
		}
	}
	out := make([]rune, 0, len(pts))
	for p := range pts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func subsetConstruct(n *nfa, nfaStart int, sink *diag.Sink) *dfa {
	startSet := epsilonClosure(n, []int{nfaStart})
	d := &dfa{}
	index := map[string]int{}
	reported := map[string]bool{}

	add := func(set []int) int {
		key := setKey(set)
		if i, ok := index[key]; ok {
			return i
		}
		i := len(d.states)
		index[key] = i
		d.states = append(d.states, &dfaState{nfaSet: set, accepts: resolveAccepts(n, set, sink, reported)})
		return i
	}

	d.start = add(startSet)
	worklist := []int{d.start}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		set := d.states[cur].nfaSet

		bounds := boundaries(n, set)
		for i := 0; i+1 <= len(bounds); i++ {
			lo := bounds[i]
			hi := fullRange.Hi
			if i+1 < len(bounds) {
				hi = bounds[i+1] - 1
			}
			var target []int
			for _, s := range set {
				for _, e := range n.states[s].trans {
					if e.Lo <= lo && hi <= e.Hi {
						target = append(target, e.to)
					}
				}
			}
			if len(target) == 0 {
				continue
			}
			closure := epsilonClosure(n, target)
			key := setKey(closure)
			_, existed := index[key]
			to := add(closure)
			d.states[cur].trans = append(d.states[cur].trans, edge{runeRange{lo, hi}, to})
			if !existed {
				worklist = append(worklist, to)
			}
		}
	}
	return d
}
