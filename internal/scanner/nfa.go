package scanner

import (
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
)

// edge is one character-range transition out of an NFA state.
type edge struct {
	runeRange
	to int
}

// nfaState is one Thompson-construction state: any number of epsilon moves
// plus any number of range-guarded moves.
type nfaState struct {
	eps   []int
	trans []edge

	// accept is non-nil if this state is an accepting state for a terminal,
	// set only on states built by buildTerminal at the top level.
	accept *grammar.Symbol
}

// nfa owns every state built during one build call (spec §4.6: the scanner
// generator builds one combined automaton from every scanned terminal's
// regex, rather than one automaton per terminal).
type nfa struct {
	states []*nfaState
}

func (n *nfa) newState() int {
	n.states = append(n.states, &nfaState{})
	return len(n.states) - 1
}

func (n *nfa) addEps(from, to int) {
	n.states[from].eps = append(n.states[from].eps, to)
}

func (n *nfa) addTrans(from int, rr runeRange, to int) {
	n.states[from].trans = append(n.states[from].trans, edge{rr, to})
}

// fragment is a sub-automaton's entry and exit state.
type fragment struct {
	start, accept int
}

// buildTerminal compiles one scanned terminal's regex AST into the shared
// nfa, marking its accept state with sym so DFA construction can recover
// which terminal(s) a given accepting DFA state satisfies.
func buildTerminal(n *nfa, sym *grammar.Symbol, macros map[string]*ast.Node, sink *diag.Sink) fragment {
	frag := buildRegex(n, sym.RegexAST, macros, sink)
	n.states[frag.accept].accept = sym
	return frag
}

func buildRegex(n *nfa, node *ast.Node, macros map[string]*ast.Node, sink *diag.Sink) fragment {
	switch node.Kind {
	case grammar.RegexKindEpsilon:
		s := n.newState()
		return fragment{s, s}

	case grammar.RegexKindChar:
		s, a := n.newState(), n.newState()
		n.addTrans(s, single([]rune(node.Lexeme)[0]), a)
		return fragment{s, a}

	case grammar.RegexKindAny:
		s, a := n.newState(), n.newState()
		for _, r := range negate([]runeRange{single('\n')}) {
			n.addTrans(s, r, a)
		}
		return fragment{s, a}

	case grammar.RegexKindConcat:
		left := buildRegex(n, node.Children[0], macros, sink)
		right := buildRegex(n, node.Children[1], macros, sink)
		n.addEps(left.accept, right.start)
		return fragment{left.start, right.accept}

	case grammar.RegexKindAlt:
		s, a := n.newState(), n.newState()
		left := buildRegex(n, node.Children[0], macros, sink)
		right := buildRegex(n, node.Children[1], macros, sink)
		n.addEps(s, left.start)
		n.addEps(s, right.start)
		n.addEps(left.accept, a)
		n.addEps(right.accept, a)
		return fragment{s, a}

	case grammar.RegexKindStar:
		s, a := n.newState(), n.newState()
		inner := buildRegex(n, node.Children[0], macros, sink)
		n.addEps(s, inner.start)
		n.addEps(s, a)
		n.addEps(inner.accept, inner.start)
		n.addEps(inner.accept, a)
		return fragment{s, a}

	case grammar.RegexKindPlus:
		s, a := n.newState(), n.newState()
		inner := buildRegex(n, node.Children[0], macros, sink)
		n.addEps(s, inner.start)
		n.addEps(inner.accept, inner.start)
		n.addEps(inner.accept, a)
		return fragment{s, a}

	case grammar.RegexKindOpt:
		s, a := n.newState(), n.newState()
		inner := buildRegex(n, node.Children[0], macros, sink)
		n.addEps(s, inner.start)
		n.addEps(inner.accept, a)
		n.addEps(s, a)
		return fragment{s, a}

	case grammar.RegexKindClass, grammar.RegexKindClassNegated:
		ranges, err := parseClassLexeme(node.Lexeme)
		if err != nil {
			sink.Reportf(diag.CharacterRange, node.Location, "invalid character class %q: %v", node.Lexeme, err)
			s := n.newState()
			return fragment{s, s}
		}
		if node.Kind == grammar.RegexKindClassNegated {
			ranges = negate(ranges)
		}
		s, a := n.newState(), n.newState()
		for _, r := range ranges {
			n.addTrans(s, r, a)
		}
		return fragment{s, a}

	case grammar.RegexKindMacroRef:
		def, ok := macros[node.Lexeme]
		if !ok {
			sink.Reportf(diag.UnknownMacro, node.Location, "undefined regex macro {%s}", node.Lexeme)
			s := n.newState()
			return fragment{s, s}
		}
		return buildRegex(n, def, macros, sink)

	default:
		panic("scanner: unhandled regex AST kind in buildRegex")
	}
}
