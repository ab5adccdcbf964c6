package lr

import (
	"testing"

	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/source"
	"github.com/stretchr/testify/assert"
)

// exprGrammar builds the textbook unambiguous expression grammar:
//
//	E ::= E + T | T
//	T ::= T * F | F
//	F ::= ( E ) | id
func exprGrammar() *grammar.Grammar {
	g := grammar.New()
	id := g.GetOrCreateTerminal("id")
	plus := g.GetOrCreateTerminal("+")
	star := g.GetOrCreateTerminal("*")
	lparen := g.GetOrCreateTerminal("(")
	rparen := g.GetOrCreateTerminal(")")
	e := g.GetOrCreateNonterminal("E")
	t := g.GetOrCreateNonterminal("T")
	f := g.GetOrCreateNonterminal("F")

	g.AddRule(e, []*grammar.Symbol{e, plus, t})
	g.AddRule(e, []*grammar.Symbol{t})
	g.AddRule(t, []*grammar.Symbol{t, star, f})
	g.AddRule(t, []*grammar.Symbol{f})
	g.AddRule(f, []*grammar.Symbol{lparen, e, rparen})
	g.AddRule(f, []*grammar.Symbol{id})

	return g
}

func Test_Build_NoConflicts(t *testing.T) {
	assert := assert.New(t)

	g := exprGrammar()
	sink := diag.NewSink(source.New("test", ""))

	tbl := Build(g, sink, false)

	assert.False(sink.HasErrors(), "unambiguous grammar must not report conflicts")
	assert.Greater(tbl.NumStates, 0)
}

func Test_Build_AcceptsIdPlusIdTimesId(t *testing.T) {
	assert := assert.New(t)

	g := exprGrammar()
	sink := diag.NewSink(source.New("test", ""))
	tbl := Build(g, sink, false)

	id := g.Symbol("id")
	plus := g.Symbol("+")
	star := g.Symbol("*")
	eof := g.Symbol(grammar.EOFName)

	// Drive id + id * id $ through the table by hand, mirroring the shape
	// of the parser facade's shift/reduce loop.
	stack := []int{tbl.StartState}
	input := []*grammar.Symbol{id, plus, id, star, id, eof}
	pos := 0
	steps := 0

	for steps < 100 {
		steps++
		state := stack[len(stack)-1]
		tok := input[pos]
		act := tbl.Action(state, tok.Num)

		switch act.Kind {
		case ActionShift:
			stack = append(stack, act.Target)
			pos++
		case ActionReduce:
			rule := tbl.ruleByNum(act.Target)
			if len(rule.RHS) > 0 {
				stack = stack[:len(stack)-len(rule.RHS)]
			}
			top := stack[len(stack)-1]
			next := tbl.Goto(top, rule.LHS.Num)
			assert.GreaterOrEqual(next, 0, "missing goto for %s in state %d", rule.LHS.Name, top)
			stack = append(stack, next)
		case ActionAccept:
			return
		default:
			t.Fatalf("unexpected parse error at step %d, state %d, token %s", steps, state, tok.Name)
		}
	}
	t.Fatal("parse did not accept within step budget")
}
