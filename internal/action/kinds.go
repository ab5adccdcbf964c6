// Package action implements the action generator (spec component C6): the
// translator from the action sub-language (token guards/actions, rule
// guards) into IC, shared across three syntactic contexts — statement,
// expression, and condition — each with its own handler table but one
// dispatcher architecture (spec §4.4).
//
// Grounded on _examples/original_source/cpp/libsrc/ActionGenerator.cpp,
// which keeps exactly this three-context split over one shared AST shape.
package action

import "github.com/calderwood/hoshi/internal/ast"

// Kind values for the action/guard AST. Defined here because this package is
// the sole interpreter of these subtrees; grammar.Symbol.Guard/ActionAST and
// grammar.Rule.ActionAST simply hold *ast.Node values of this shape.
const (
	KindSeq ast.Kind = iota + 4096 // statement list; children = statements
	KindAssign                    // children = [ident, expr]
	KindExprStmt                  // children = [expr], evaluated for side effect only

	KindIntLit // lexeme = decimal integer text
	KindIdent  // lexeme = register name, or a builtin ("token_count")

	KindAdd
	KindSub
	KindMul
	KindDiv
	KindNeg // unary minus; children = [expr]

	KindCall // lexeme = builtin name ("dump_stack", "error_count")

	KindAnd // children = [left, right]
	KindOr
	KindNot // children = [inner]

	KindEq
	KindNeq
	KindLt
	KindLe
	KindGt
	KindGe
)
