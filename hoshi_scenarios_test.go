package hoshi

import (
	"testing"

	"github.com/calderwood/hoshi/internal/action"
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/reduce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helpers below build the grammar-description AST shapes that
// internal/grammar.Extract consumes (spec §4.1), matching the node literals
// internal/grammar/extract_test.go already uses for the same Kind constants.

func gSymRef(name string) *ast.Node { return &ast.Node{Kind: grammar.KindSymbolRef, Lexeme: name} }

func gAlt(items ...*ast.Node) *ast.Node { return &ast.Node{Kind: grammar.KindAlt, Children: items} }

func gIntLit(n string) *ast.Node { return &ast.Node{Kind: grammar.KindIntLiteral, Lexeme: n} }

func gTokenOpt(name string, val *ast.Node) *ast.Node {
	n := &ast.Node{Kind: grammar.KindTokenOption, Lexeme: name}
	if val != nil {
		n.Children = []*ast.Node{val}
	}
	return n
}

func gTokenDecl(name string, opts ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: grammar.KindTokenDecl, Lexeme: name, Children: opts}
}

func gRuleDecl(name string, alts ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: grammar.KindRuleDecl, Lexeme: name, Children: alts}
}

// gFormer wraps root (a reduce.KindBuild tree) the way the grammar
// description's own parser is expected to: one KindFormer node with the
// actual former as its single child (see extractAlt's unwrapping).
func gFormer(root *ast.Node) *ast.Node {
	return &ast.Node{Kind: grammar.KindFormer, Children: []*ast.Node{root}}
}

func gCharRegex(r byte) *ast.Node {
	return &ast.Node{Kind: grammar.RegexKindChar, Lexeme: string(rune(r))}
}

func gRoot(sections ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: grammar.KindGrammarFile, Children: sections}
}

func gTokens(decls ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: grammar.KindTokensSection, Children: decls}
}

func gRules(decls ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: grammar.KindRulesSection, Children: decls}
}

// buildKind is reduce.KindBuild: "(Kind, items...)".
func buildKind(kind string, items ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: reduce.KindBuild, Lexeme: kind, Children: items}
}

func childAll(rhs string) *ast.Node { return &ast.Node{Kind: reduce.KindChildAll, Lexeme: rhs} }

func actIdent(name string) *ast.Node { return &ast.Node{Kind: action.KindIdent, Lexeme: name} }
func actIntLit(n string) *ast.Node   { return &ast.Node{Kind: action.KindIntLit, Lexeme: n} }
func actAssign(name, val string) *ast.Node {
	return &ast.Node{Kind: action.KindAssign, Children: []*ast.Node{actIdent(name), actIntLit(val)}}
}
func actEq(name, val string) *ast.Node {
	return &ast.Node{Kind: action.KindEq, Children: []*ast.Node{actIdent(name), actIntLit(val)}}
}

// ---- scenario 1: empty grammar (spec §8) ---------------------------------

func Test_Scenario_EmptyGrammar_ParsesToNullWithNoDiagnostics(t *testing.T) {
	root := gRoot()

	gen := New()
	genSink, err := gen.Generate(root)
	require.NoError(t, err)
	require.False(t, genSink.HasErrors())
	require.True(t, gen.Ready())

	result, parseSink, err := gen.Parse("<empty>", "")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, ast.Null, result.Kind)
	assert.Empty(t, result.Children)
	assert.Empty(t, parseSink.All())
}

// ---- scenario 2: single-token scanner (spec §8) --------------------------

func Test_Scenario_SingleTokenScanner_PlusListSplicesEveryElement(t *testing.T) {
	// <id> : regex = one letter followed by zero or more letters/digits/'_'
	idRegex := &ast.Node{Kind: grammar.RegexKindConcat, Children: []*ast.Node{
		{Kind: grammar.RegexKindClass, Lexeme: "A-Za-z"},
		{Kind: grammar.RegexKindStar, Children: []*ast.Node{
			{Kind: grammar.RegexKindClass, Lexeme: "A-Za-z0-9_"},
		}},
	}}
	wsRegex := &ast.Node{Kind: grammar.RegexKindPlus, Children: []*ast.Node{gCharRegex(' ')}}

	root := gRoot(
		gTokens(
			gTokenDecl("id", gTokenOpt("regex", idRegex)),
			gTokenDecl("ws", gTokenOpt("regex", wsRegex), gTokenOpt("ignore", nil)),
		),
		gRules(
			gRuleDecl("r", gAlt(
				&ast.Node{Kind: grammar.KindEBNFPlus, Children: []*ast.Node{gSymRef("id")}},
				gFormer(buildKind("Id", childAll("1"))),
			)),
		),
	)

	gen := New()
	genSink, err := gen.Generate(root)
	require.NoError(t, err)
	require.False(t, genSink.HasErrors())

	result, parseSink, err := gen.Parse("<src>", "a b1 cd")
	require.NoError(t, err)
	require.False(t, parseSink.HasErrors())
	require.NotNil(t, result)

	assert.Equal(t, "Id", gen.KindName(result.Kind))
	if assert.Len(t, result.Children, 3) {
		assert.Equal(t, "a", result.Children[0].Lexeme)
		assert.Equal(t, "b1", result.Children[1].Lexeme)
		assert.Equal(t, "cd", result.Children[2].Lexeme)
	}
}

// ---- scenario 3: regex conflict (spec §8) --------------------------------

func Test_Scenario_RegexConflict_ReportedAtGenerate(t *testing.T) {
	// Two tokens at the same (default) precedence matching the identical
	// literal "x" can never be disambiguated by the DFA (spec §4.6(ii)).
	root := gRoot(
		gTokens(
			gTokenDecl("a", gTokenOpt("regex", gCharRegex('x'))),
			gTokenDecl("b", gTokenOpt("regex", gCharRegex('x'))),
		),
		gRules(
			// Both terminals must be referenced, or the editor's
			// unused-terminal pass (internal/grammar/editor/editor.go)
			// removes whichever terminal no rule mentions before
			// scanner.Generate ever runs, silently erasing the conflict
			// this test exists to catch.
			gRuleDecl("start", gAlt(gSymRef("a")), gAlt(gSymRef("b"))),
		),
	)

	gen := New()
	genSink, err := gen.Generate(root)
	require.NoError(t, err)
	require.True(t, genSink.HasErrors())
	require.False(t, gen.Ready())

	found := false
	for _, d := range genSink.All() {
		if d.Category == diag.RegexConflict {
			found = true
		}
	}
	assert.True(t, found, "expected a RegexConflict diagnostic, got %+v", genSink.All())
}

// ---- scenario 4: undefined nonterminal (spec §8) -------------------------

func Test_Scenario_UndefinedNonterminal_FailsGenerate(t *testing.T) {
	root := gRoot(
		gTokens(gTokenDecl("a", gTokenOpt("regex", gCharRegex('x')))),
		gRules(
			gRuleDecl("start", gAlt(gSymRef("missing"))),
		),
	)

	gen := New()
	genSink, err := gen.Generate(root)
	require.NoError(t, err)
	assert.True(t, genSink.HasErrors())
	assert.False(t, gen.Ready())
}

// ---- scenario 5: guarded tokens (spec §4.6(ii)/(iv), §8) -----------------

func Test_Scenario_GuardedToken_RegisterCarriesAcrossTokens(t *testing.T) {
	// TOGGLE ('!') sets in_guard := 1 as its token action. GUARDED ('x',
	// precedence 200) only wins the 'x' cascade once in_guard == 1; PLAIN
	// ('x', default precedence 100) has no guard. Each rule references one
	// of the candidates, so the editor's unused-terminal pass keeps both.
	// If GUARDED's guard never passed, the 'x' after TOGGLE would scan as
	// PLAIN; no rule accepts TOGGLE PLAIN, so Parse would hit a syntax error.
	root := gRoot(
		gTokens(
			gTokenDecl("toggle", gTokenOpt("regex", gCharRegex('!')), gTokenOpt("action", actAssign("in_guard", "1"))),
			gTokenDecl("guarded", gTokenOpt("regex", gCharRegex('x')), gTokenOpt("precedence", gIntLit("200")), gTokenOpt("guard", actEq("in_guard", "1"))),
			gTokenDecl("plain", gTokenOpt("regex", gCharRegex('x'))),
		),
		gRules(
			gRuleDecl("start",
				gAlt(gSymRef("toggle"), gSymRef("guarded")),
				gAlt(gSymRef("plain")),
			),
		),
	)

	gen := New()
	genSink, err := gen.Generate(root)
	require.NoError(t, err)
	require.False(t, genSink.HasErrors())

	result, parseSink, err := gen.Parse("<src>", "!x")
	require.NoError(t, err)
	assert.False(t, parseSink.HasErrors())
	require.NotNil(t, result)
	if assert.Len(t, result.Children, 2) {
		assert.Equal(t, "!", result.Children[0].Lexeme)
		assert.Equal(t, "x", result.Children[1].Lexeme)
	}

	// Without a preceding TOGGLE, in_guard is back to its reset value of 0
	// (a fresh vm.Machine per Parse call), so GUARDED's guard must fail and
	// the cascade must fall through to PLAIN. If the guard were ignored and
	// GUARDED's higher precedence won unconditionally, "start" has no rule
	// matching a lone GUARDED token and this Parse would report a syntax
	// error instead of succeeding.
	result2, parseSink2, err := gen.Parse("<src2>", "x")
	require.NoError(t, err)
	assert.False(t, parseSink2.HasErrors())
	require.NotNil(t, result2)
	if assert.Len(t, result2.Children, 1) {
		assert.Equal(t, "x", result2.Children[0].Lexeme)
	}
}

// ---- scenario 6: AST-former slice (spec §8) ------------------------------

func Test_Scenario_ASTFormerSlice_PushesOnlyTheNamedRange(t *testing.T) {
	root := gRoot(
		gTokens(
			gTokenDecl("a", gTokenOpt("regex", gCharRegex('a'))),
			gTokenDecl("b", gTokenOpt("regex", gCharRegex('b'))),
			gTokenDecl("c", gTokenOpt("regex", gCharRegex('c'))),
		),
		gRules(
			gRuleDecl("r", gAlt(
				gSymRef("a"), gSymRef("b"), gSymRef("c"),
				gFormer(buildKind("Middle", &ast.Node{Kind: reduce.KindChildSlice, Lexeme: "2_2"})),
			)),
		),
	)

	gen := New()
	genSink, err := gen.Generate(root)
	require.NoError(t, err)
	require.False(t, genSink.HasErrors())

	result, parseSink, err := gen.Parse("<src>", "abc")
	require.NoError(t, err)
	require.False(t, parseSink.HasErrors())
	require.NotNil(t, result)

	assert.Equal(t, "Middle", gen.KindName(result.Kind))
	if assert.Len(t, result.Children, 1) {
		assert.Equal(t, "b", result.Children[0].Lexeme)
	}
}
