package reduce

import (
	"testing"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opcodes(ins []*ic.Instruction) []ic.Opcode {
	out := make([]ic.Opcode, 0, len(ins))
	for _, i := range ins {
		if i.Opcode == ic.Label_ {
			continue
		}
		out = append(out, i.Opcode)
	}
	return out
}

func Test_GenerateRule_DefaultShapePushesEveryRHSChild(t *testing.T) {
	g := grammar.New()
	lhs := g.GetOrCreateNonterminal("expr")
	a := g.GetOrCreateTerminal("A")
	b := g.GetOrCreateTerminal("B")
	rule := g.AddRule(lhs, []*grammar.Symbol{a, b})

	km := ast.NewKindMap()
	sink := diag.NewSink(nil)
	bld := ic.NewBuilder()
	gen := New(bld, km, sink)

	label := gen.GenerateRule(rule)
	require.NotNil(t, label)
	assert.True(t, label.IsExtern)

	ops := opcodes(bld.Instructions())
	assert.Contains(t, ops, ic.AstStart)
	assert.Contains(t, ops, ic.AstForm)
	assert.Contains(t, ops, ic.AstFinish)

	pushes := 0
	for _, op := range ops {
		if op == ic.AstPushChild {
			pushes++
		}
	}
	assert.Equal(t, 2, pushes)
	assert.False(t, sink.HasErrors())
}

func Test_GenerateRule_FormerChildRefOutOfRangeReportsAstIndex(t *testing.T) {
	g := grammar.New()
	lhs := g.GetOrCreateNonterminal("expr")
	a := g.GetOrCreateTerminal("A")
	rule := g.AddRule(lhs, []*grammar.Symbol{a})
	rule.ASTFormerAST = &ast.Node{Kind: KindBuild, Children: []*ast.Node{
		{Kind: KindChildRef, Lexeme: "5"},
	}}

	km := ast.NewKindMap()
	sink := diag.NewSink(nil)
	bld := ic.NewBuilder()
	gen := New(bld, km, sink)

	gen.GenerateRule(rule)

	assert.True(t, sink.HasErrors())
	found := false
	for _, d := range sink.All() {
		if d.Category == diag.AstIndex {
			found = true
		}
	}
	assert.True(t, found, "expected an AstIndex diagnostic for the out-of-range former reference")
}

func Test_GenerateRule_ChildSliceEmitsAstSlice(t *testing.T) {
	g := grammar.New()
	lhs := g.GetOrCreateNonterminal("list")
	a := g.GetOrCreateTerminal("A")
	b := g.GetOrCreateTerminal("B")
	c := g.GetOrCreateTerminal("C")
	rule := g.AddRule(lhs, []*grammar.Symbol{a, b, c})
	rule.ASTFormerAST = &ast.Node{Kind: KindBuild, Lexeme: "List", Children: []*ast.Node{
		{Kind: KindChildSlice, Lexeme: "1_3"},
	}}

	km := ast.NewKindMap()
	sink := diag.NewSink(nil)
	bld := ic.NewBuilder()
	gen := New(bld, km, sink)

	gen.GenerateRule(rule)

	assert.Contains(t, opcodes(bld.Instructions()), ic.AstSlice)
	assert.False(t, sink.HasErrors())
}
