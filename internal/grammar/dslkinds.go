package grammar

import "github.com/calderwood/hoshi/internal/ast"

// Kind values for the grammar-description AST that C4 (grammar extraction)
// walks. The grammar-description parser itself is out of scope (spec §1:
// "treated only as external collaborators ... the generator only consumes
// the AST it produces") — these constants document the shape that prior
// stage is assumed to emit, enough for Extract to dispatch on.
const (
	KindGrammarFile ast.Kind = iota + 2048 // root: children = options/tokens/rules sections, any order
	KindOptionsSection
	KindTokensSection
	KindRulesSection

	KindOption     // lexeme = option name, one child = value (literal or int)
	KindTokenDecl  // lexeme = token name, children = KindTokenOption*
	KindTokenOption // lexeme = option name ("regex","precedence","action","guard","lexeme","ignore","error","template","description")

	KindRuleDecl   // lexeme = lhs name, children = KindAlt* and/or KindRulePrecedenceList*
	KindAlt        // children = KindSymbolRef/KindLiteral/KindEBNF*, optional trailing KindFormer, optional KindGuard

	KindSymbolRef  // lexeme = referenced symbol name (terminal or nonterminal)
	KindLiteral    // lexeme = literal string matched verbatim, synthesizes a terminal
	KindEBNFOpt    // child = one alt-body element, meaning "?"
	KindEBNFStar   // child = one alt-body element, meaning "*"
	KindEBNFPlus   // child = one alt-body element, meaning "+"
	KindEBNFGroup  // children = KindAlt* (a parenthesized alternation block)

	// KindRulePrecedenceList is a `::^` operator-precedence/associativity
	// block (spec §4.1): a child of KindRuleDecl alongside any plain KindAlt
	// entries. Its children are KindRulePrecedenceSpec*, listed lowest-to-
	// highest precedence (later specs bind tighter), the same declaration
	// order classic yacc-style %left/%right tables use.
	KindRulePrecedenceList
	// KindRulePrecedenceSpec is one level of a KindRulePrecedenceList: an
	// optional leading KindRuleLeftAssoc or KindRuleRightAssoc direction
	// marker (absent means non-associative), followed by one or more KindAlt
	// children desugared into ordinary rules stamped with this level's
	// precedence and associativity instead of an auxiliary nonterminal.
	KindRulePrecedenceSpec
	KindRuleLeftAssoc  // leaf marker: `<<`, the enclosing spec's rules associate left
	KindRuleRightAssoc // leaf marker: `>>`, the enclosing spec's rules associate right

	KindFormer // the AST-former sub-tree (interpreted by internal/reduce)
	KindGuard  // the guard/action sub-tree (interpreted by internal/action)
	KindRegex  // the regex sub-tree (interpreted by internal/scanner)

	KindIntLiteral // lexeme = decimal integer text
	KindBoolLiteral
)

// Regex AST kinds (spec §4.6, §6 "Regex DSL"). Interpreted by
// internal/scanner's NFA builder; defined here (rather than in internal/ast
// or internal/scanner) so that grammar extraction can synthesize a regex AST
// for a bare literal terminal (spec §4.1) without importing the scanner
// package, which itself must import grammar.
const (
	RegexKindEpsilon ast.Kind = iota + 3072
	RegexKindChar             // lexeme = single character to match
	RegexKindAny              // "."
	RegexKindConcat           // children = [left, right]
	RegexKindAlt              // children = [left, right]
	RegexKindStar             // child = [inner]
	RegexKindPlus             // child = [inner]
	RegexKindOpt              // child = [inner]
	RegexKindClass            // lexeme encodes ranges, e.g. "a-zA-Z0-9_"; see scanner.ParseClassLexeme
	RegexKindClassNegated     // same lexeme shape, complemented
	RegexKindMacroRef         // lexeme = macro name, resolved against a macro table
)

// Unexported aliases used by grammar.literalRegexAST so the file reads
// naturally as "regex kinds" without the Regex prefix repeated everywhere.
const (
	regexKindEpsilon = RegexKindEpsilon
	regexKindChar    = RegexKindChar
	regexKindConcat  = RegexKindConcat
)
