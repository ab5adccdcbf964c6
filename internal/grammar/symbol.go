// Package grammar implements the grammar model (spec component C4): symbols,
// rules, and global options, flyweight-allocated with stable identities, plus
// the extraction pass that populates a Grammar from a parsed grammar
// description AST.
//
// Grounded on github.com/dekarrin/tunaq/internal/ictiobus/grammar (the
// teacher's LR0Item/LR1Item flyweight-by-string style) and on
// _examples/original_source/cpp/libsrc/Grammar.H, which this spec's symbol
// and rule shapes are distilled from.
package grammar

import "github.com/calderwood/hoshi/internal/ast"

// Symbol is a flyweight terminal or nonterminal, owned by a Grammar's symbol
// table and referenced elsewhere only by *Symbol (a stable, non-owning
// pointer into that table — spec §3, "Ownership discipline").
type Symbol struct {
	Num  int
	Name string

	IsTerminal    bool
	IsNonterminal bool
	IsScanned     bool
	IsIgnored     bool
	IsError       bool

	// IsASTSynthesized marks a terminal that was created implicitly from a
	// literal string appearing in a rule rhs rather than an explicit token
	// declaration (spec §4.1). Its RegexAST is owned by the symbol and freed
	// with it.
	IsASTSynthesized bool

	RegexAST     *ast.Node // scanner data: root of the token's regex, nil for nonterminals
	ActionAST    *ast.Node // token action sub-language, nil if none
	Guard        *ast.Node // token guard condition, nil if none
	Precedence   int
	LexemeNeeded bool
	ErrorMessage string
}

// DefaultPrecedence is the precedence assigned to a token that does not
// specify one explicitly (spec §3).
const DefaultPrecedence = 100

// NewTerminal returns a fresh terminal symbol with default precedence.
func NewTerminal(num int, name string) *Symbol {
	return &Symbol{Num: num, Name: name, IsTerminal: true, Precedence: DefaultPrecedence}
}

// NewNonterminal returns a fresh nonterminal symbol.
func NewNonterminal(num int, name string) *Symbol {
	return &Symbol{Num: num, Name: name, IsNonterminal: true}
}

// Predefined symbol names that always exist in a Grammar (spec §3).
const (
	EpsilonName = "epsilon"
	ErrorName   = "error"
	EOFName     = "eof"
	AcceptName  = "accept"
)
