package scanner

import (
	"testing"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/stretchr/testify/assert"
)

// charRegex builds a regex AST matching a single literal rune, the same
// shape grammar.literalRegexAST synthesizes for a bare string literal.
func charRegex(r rune) *ast.Node {
	return &ast.Node{Kind: grammar.RegexKindChar, Lexeme: string(r)}
}

func Test_resolveAccepts_SamePrecedenceOverlapReportsRegexConflict(t *testing.T) {
	g := grammar.New()
	a := g.GetOrCreateTerminal("A")
	a.IsScanned = true
	a.RegexAST = charRegex('x')
	b := g.GetOrCreateTerminal("B")
	b.IsScanned = true
	b.RegexAST = charRegex('x')

	sink := diag.NewSink(nil)
	build(g, nil, sink)

	all := sink.All()
	var found *diag.Diagnostic
	for i, d := range all {
		if d.Category == diag.RegexConflict {
			found = &all[i]
		}
	}
	assert.NotNil(t, found, "expected a RegexConflict diagnostic")
	assert.Contains(t, found.Short, "A")
	assert.Contains(t, found.Short, "B")
	assert.True(t, sink.HasErrors())
}

func Test_resolveAccepts_DifferentPrecedenceNoConflict(t *testing.T) {
	g := grammar.New()
	hi := g.GetOrCreateTerminal("HI")
	hi.IsScanned = true
	hi.Precedence = 200
	hi.RegexAST = charRegex('x')
	lo := g.GetOrCreateTerminal("LO")
	lo.IsScanned = true
	lo.Precedence = 50
	lo.RegexAST = charRegex('x')

	sink := diag.NewSink(nil)
	d := build(g, nil, sink)

	for _, d := range sink.All() {
		assert.NotEqual(t, diag.RegexConflict, d.Category)
	}

	var accepting *dfaState
	for _, st := range d.states {
		if len(st.accepts) > 0 {
			accepting = st
		}
	}
	if assert.NotNil(t, accepting) {
		assert.Equal(t, []*grammar.Symbol{hi, lo}, accepting.accepts)
	}
}

func Test_resolveAccepts_NonAcceptingStateHasNoAccepts(t *testing.T) {
	g := grammar.New()

	d := build(g, nil, diag.NewSink(nil))
	assert.Empty(t, d.states[d.start].accepts)
}
