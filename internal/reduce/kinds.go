// Package reduce implements the reduce/AST-former generator (spec component
// C7): for every grammar rule, emits the extern reduce-entry label and the
// IC sequence that builds the rule's AST node and runs its guard (spec
// §4.5).
//
// Grounded on _examples/original_source/cpp/libsrc/ParserGenerator.cpp's
// per-rule reduce-action emission, and on internal/action for the
// statement-context call used to run a rule's guard.
package reduce

import "github.com/calderwood/hoshi/internal/ast"

// Kind values for the AST-former sub-language (spec §4.5). A former AST is
// rooted at a KindBuild node; grammar.Rule.ASTFormerAST holds one of these,
// or nil if the rule has no explicit former.
const (
	// KindBuild is "(Kind, items...)". Lexeme is the literal kind name, or
	// "" if a KindModKind item among Children supplies it instead. Children
	// is the ordered list of child-phase items (KindChildRef, KindChildPath,
	// KindChildAll, KindChildSlice, nested KindBuild) followed by any
	// data-phase modifiers (KindModKind, KindModLoc, KindModLex).
	KindBuild ast.Kind = iota + 5120

	// KindChildRef is "$n": a single reference to rhs input n (1-based;
	// negative counts from the end). Lexeme is the signed integer text.
	KindChildRef

	// KindChildPath is "$n.m[.k...]": descent into a rhs input's children.
	// Lexeme is the dot-separated integer path, e.g. "1.2".
	KindChildPath

	// KindChildAll is "$n._": splices every child of rhs input n as
	// separate children of the node being formed. Lexeme is the rhs index.
	// The only former construct needing a runtime loop, since the input's
	// child count isn't known at generation time.
	KindChildAll

	// KindChildSlice is "$first_last": pushes rhs inputs first..last
	// (1-based, inclusive, both compile-time literals) as children, in
	// order. Lexeme is "first_last".
	KindChildSlice

	// KindModKind is "%expr": sets the node's kind to a copy of expr's own
	// kind. Children = [expr], where expr is a KindChildRef/KindChildPath/
	// nested KindBuild.
	KindModKind

	// KindModLoc is "@expr" or "@N": sets the node's location. Lexeme holds
	// a literal integer offset when Children is empty; otherwise Children =
	// [expr] and the location is copied from expr's own location.
	KindModLoc

	// KindModLex is "&expr" or "&\"text\"": sets the node's lexeme. Lexeme
	// holds the literal text when Children is empty; otherwise Children =
	// [expr] and the lexeme is copied from expr's own lexeme.
	KindModLex
)
