package lr

import (
	"fmt"
	"sort"

	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/source"
)

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		if k == epsilonNum {
			continue
		}
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// ActionKind is the verb of one ACTION table cell.
type ActionKind int

const (
	// ActionError is the zero value: no entry for (state, terminal), the
	// parser facade reports a syntax error.
	ActionError ActionKind = iota
	ActionShift
	ActionReduce
	ActionAccept
)

// Action is one ACTION table cell. For ActionShift, Target is the state to
// shift into; for ActionReduce, Target is the rule Num to reduce by.
type Action struct {
	Kind   ActionKind
	Target int
}

type stateSym struct {
	state int
	sym   int // symbol Num
}

// Table is a compiled SLR(1) shift/reduce/goto table (spec's parser facade
// needs exactly this to drive the VM's parse stack against scanned tokens).
type Table struct {
	g *grammar.Grammar

	NumStates  int
	StartState int
	action     map[stateSym]Action
	goTo       map[stateSym]int
}

// Action returns the ACTION table entry for (state, terminal), or the zero
// Action (ActionError) if there is none.
func (t *Table) Action(state int, terminalNum int) Action {
	return t.action[stateSym{state, terminalNum}]
}

// Goto returns the state to transition to after reducing to nonterminal
// ntNum while in state, or -1 if undefined.
func (t *Table) Goto(state int, ntNum int) int {
	if s, ok := t.goTo[stateSym{state, ntNum}]; ok {
		return s
	}
	return -1
}

// Build constructs the SLR(1) ACTION/GOTO table for g, reporting every
// shift/reduce and reduce/reduce conflict it finds via sink (spec's
// grammar.Options.Conflicts bounds how many are tolerated before the
// generate operation must fail; the facade decides that, not this
// package). allowAmbig resolves shift/reduce conflicts by preferring shift
// (the conventional "dangling else" resolution), matching
// _examples/dekarrin-tunaq/internal/ictiobus/parse/slr.go's
// constructSimpleLRParseTable.
func Build(g *grammar.Grammar, sink *diag.Sink, allowAmbig bool) *Table {
	if g.StartRule == nil {
		return emptyTable(g)
	}
	fs := computeFirst(g)
	follow := computeFollow(g, fs)

	t := &Table{
		g:      g,
		action: map[stateSym]Action{},
		goTo:   map[stateSym]int{},
	}

	start := t.closure([]item{{ruleNum: augmentRule, dot: 0}})
	states := [][]item{start}
	index := map[string]int{setKey(start): 0}

	symbols := g.Symbols()

	for i := 0; i < len(states); i++ {
		cur := states[i]
		for _, sym := range symbols {
			if sym == nil || sym.Name == grammar.EpsilonName {
				continue
			}
			moved := t.gotoSet(cur, sym)
			if len(moved) == 0 {
				continue
			}
			key := setKey(moved)
			j, ok := index[key]
			if !ok {
				j = len(states)
				index[key] = j
				states = append(states, moved)
			}
			if sym.IsTerminal {
				t.setAction(sink, i, sym, Action{Kind: ActionShift, Target: j}, allowAmbig)
			} else {
				t.goTo[stateSym{i, sym.Num}] = j
			}
		}

		for _, it := range cur {
			rhs := t.ruleRHS(it.ruleNum)
			if it.dot != len(rhs) {
				continue
			}
			if it.ruleNum == augmentRule {
				eof := g.Symbol(grammar.EOFName)
				t.setAction(sink, i, eof, Action{Kind: ActionAccept}, allowAmbig)
				continue
			}
			rule := t.ruleByNum(it.ruleNum)
			for _, termNum := range sortedKeys(follow[rule.LHS.Num]) {
				term := g.SymbolByNum(termNum)
				if term == nil {
					continue
				}
				t.setAction(sink, i, term, Action{Kind: ActionReduce, Target: rule.Num}, allowAmbig)
			}
		}
	}

	t.NumStates = len(states)
	t.StartState = 0
	return t
}

// emptyTable is the table for a grammar with zero rules: state 0 accepts
// immediately on eof and has no other entries, so Parse consumes no input
// and reports no diagnostics (spec's empty-grammar scenario). g has no
// StartRule in this case, so the normal augmented-grammar construction in
// Build never applies.
func emptyTable(g *grammar.Grammar) *Table {
	t := &Table{g: g, action: map[stateSym]Action{}, goTo: map[stateSym]int{}, NumStates: 1, StartState: 0}
	if eof := g.Symbol(grammar.EOFName); eof != nil {
		t.action[stateSym{0, eof.Num}] = Action{Kind: ActionAccept}
	}
	return t
}

// setAction installs want into the ACTION table at (state, sym), reporting
// a LalrConflict diagnostic if a different entry is already present. When
// allowAmbig is set, a shift/reduce conflict resolves in favor of the shift
// already present (or about to be installed) rather than the reduce.
func (t *Table) setAction(sink *diag.Sink, state int, sym *grammar.Symbol, want Action, allowAmbig bool) {
	key := stateSym{state, sym.Num}
	existing, ok := t.action[key]
	if !ok {
		t.action[key] = want
		return
	}
	if existing == want {
		return
	}

	kind := "reduce/reduce"
	if (existing.Kind == ActionShift) != (want.Kind == ActionShift) {
		kind = "shift/reduce"
	}

	if kind == "shift/reduce" {
		if resolved, ok := t.resolveByPrecedence(existing, want, sym); ok {
			t.action[key] = resolved
			return
		}
	}

	sink.Reportf(diag.LalrConflict, source.NoLocation,
		"%s conflict in state %d on %q: %s vs %s", kind, state, sym.Name,
		describeAction(existing), describeAction(want))

	if kind == "shift/reduce" && allowAmbig {
		if want.Kind == ActionShift {
			t.action[key] = want
		}
		// else keep the existing shift.
		return
	}
	// Without allowAmbig, or on a reduce/reduce conflict, keep whichever
	// entry was installed first (lowest rule number / first-seen shift),
	// matching the teacher's "earlier rule wins" tie-break.
}

// resolveByPrecedence applies the classic operator-precedence resolution a
// `::^` precedence/associativity block (spec §4.1) exists to enable: when
// the reducing rule carries precedence metadata (Rule.Precedence > 0, i.e.
// it came from such a block), compare it against lookahead's own
// Symbol.Precedence rather than reporting an ambiguity. Higher precedence
// wins outright; equal precedence defers to the rule's Assoc (left
// associates by reducing, right by shifting); a rule with no precedence
// metadata (Precedence == 0) reports ok == false so the caller falls back to
// its existing conflict handling.
func (t *Table) resolveByPrecedence(a, b Action, lookahead *grammar.Symbol) (Action, bool) {
	shift, reduce, ok := splitShiftReduce(a, b)
	if !ok {
		return Action{}, false
	}
	rule := t.ruleByNum(reduce.Target)
	if rule == nil || rule.Precedence <= 0 {
		return Action{}, false
	}
	switch {
	case rule.Precedence > lookahead.Precedence:
		return reduce, true
	case rule.Precedence < lookahead.Precedence:
		return shift, true
	default:
		switch rule.Assoc {
		case grammar.AssocLeft:
			return reduce, true
		case grammar.AssocRight:
			return shift, true
		default:
			return Action{}, false
		}
	}
}

func splitShiftReduce(a, b Action) (shift, reduce Action, ok bool) {
	switch {
	case a.Kind == ActionShift && b.Kind == ActionReduce:
		return a, b, true
	case b.Kind == ActionShift && a.Kind == ActionReduce:
		return b, a, true
	default:
		return Action{}, Action{}, false
	}
}

func describeAction(a Action) string {
	switch a.Kind {
	case ActionShift:
		return fmt.Sprintf("shift to state %d", a.Target)
	case ActionReduce:
		return fmt.Sprintf("reduce by rule %d", a.Target)
	case ActionAccept:
		return "accept"
	default:
		return "error"
	}
}
