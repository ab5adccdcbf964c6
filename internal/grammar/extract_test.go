package grammar

import (
	"testing"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symRef(name string) *ast.Node {
	return &ast.Node{Kind: KindSymbolRef, Lexeme: name}
}

func alt(items ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: KindAlt, Children: items}
}

func Test_Extract_EBNFStarDesugarsToAuxLeftRecursiveNonterminal(t *testing.T) {
	root := &ast.Node{Kind: KindGrammarFile, Children: []*ast.Node{
		{Kind: KindTokensSection, Children: []*ast.Node{
			{Kind: KindTokenDecl, Lexeme: "ITEM"},
		}},
		{Kind: KindRulesSection, Children: []*ast.Node{
			{Kind: KindRuleDecl, Lexeme: "list", Children: []*ast.Node{
				alt(&ast.Node{Kind: KindEBNFStar, Children: []*ast.Node{symRef("ITEM")}}),
			}},
		}},
	}}

	sink := diag.NewSink(nil)
	g := Extract(root, sink)

	aux := g.Symbol("list:1")
	if assert.NotNil(t, aux) {
		rules := g.RulesFor(aux)
		assert.Len(t, rules, 2)
	}
	assert.False(t, sink.HasErrors())
}

func Test_Extract_PrecedenceBlockStampsRulesAndAssoc(t *testing.T) {
	root := &ast.Node{Kind: KindGrammarFile, Children: []*ast.Node{
		{Kind: KindTokensSection, Children: []*ast.Node{
			{Kind: KindTokenDecl, Lexeme: "PLUS"},
			{Kind: KindTokenDecl, Lexeme: "STAR"},
			{Kind: KindTokenDecl, Lexeme: "NUM"},
		}},
		{Kind: KindRulesSection, Children: []*ast.Node{
			{Kind: KindRuleDecl, Lexeme: "expr", Children: []*ast.Node{
				{Kind: KindRulePrecedenceList, Children: []*ast.Node{
					{Kind: KindRulePrecedenceSpec, Children: []*ast.Node{
						{Kind: KindRuleLeftAssoc},
						alt(symRef("expr"), symRef("PLUS"), symRef("expr")),
					}},
					{Kind: KindRulePrecedenceSpec, Children: []*ast.Node{
						{Kind: KindRuleLeftAssoc},
						alt(symRef("expr"), symRef("STAR"), symRef("expr")),
					}},
					{Kind: KindRulePrecedenceSpec, Children: []*ast.Node{
						alt(symRef("NUM")),
					}},
				}},
			}},
		}},
	}}

	sink := diag.NewSink(nil)
	g := Extract(root, sink)

	expr := g.Symbol("expr")
	require.NotNil(t, expr)
	rules := g.RulesFor(expr)
	require.Len(t, rules, 3)

	plusRule := rules[0]
	assert.Equal(t, 1, plusRule.Precedence)
	assert.Equal(t, AssocLeft, plusRule.Assoc)

	starRule := rules[1]
	assert.Equal(t, 2, starRule.Precedence)
	assert.Equal(t, AssocLeft, starRule.Assoc)

	numRule := rules[2]
	assert.Equal(t, 3, numRule.Precedence)
	assert.Equal(t, AssocNone, numRule.Assoc)

	assert.False(t, sink.HasErrors())
}

func Test_Extract_OrdinaryRuleHasZeroPrecedenceAndNoneAssoc(t *testing.T) {
	root := &ast.Node{Kind: KindGrammarFile, Children: []*ast.Node{
		{Kind: KindTokensSection, Children: []*ast.Node{
			{Kind: KindTokenDecl, Lexeme: "A"},
		}},
		{Kind: KindRulesSection, Children: []*ast.Node{
			{Kind: KindRuleDecl, Lexeme: "start", Children: []*ast.Node{
				alt(symRef("A")),
			}},
		}},
	}}

	g := Extract(root, diag.NewSink(nil))

	rules := g.RulesFor(g.Symbol("start"))
	if assert.Len(t, rules, 1) {
		assert.Equal(t, 0, rules[0].Precedence)
		assert.Equal(t, AssocNone, rules[0].Assoc)
	}
}
