package grammar

import "github.com/calderwood/hoshi/internal/ast"

// Associativity directs how an operator-precedence rule (spec §4.1's
// precedence/associativity blocks) resolves a chain of same-precedence
// operators. AssocNone is the zero value: an ordinary rule that never went
// through a precedence block, or one that named no explicit direction.
type Associativity int

const (
	AssocNone Associativity = iota
	AssocLeft
	AssocRight
)

func (a Associativity) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	default:
		return "none"
	}
}

// Rule is a flyweight grammar production, owned by a Grammar's rule list.
type Rule struct {
	Num int
	LHS *Symbol
	RHS []*Symbol // possibly empty: the epsilon rule

	ASTFormerAST *ast.Node // nil if the rule has no AST-former
	ActionAST    *ast.Node // the reduce guard, nil if none
	Location     int64

	// Precedence and Assoc carry the metadata a precedence/associativity
	// block (spec §4.1) stamps onto the ordinary rules it desugars into.
	// Zero/AssocNone for a rule declared outside such a block.
	Precedence int
	Assoc      Associativity
}

// IsEpsilon reports whether this rule's rhs is empty.
func (r *Rule) IsEpsilon() bool {
	return len(r.RHS) == 0
}

// String renders the rule in "LHS ::= s1 s2 ..." form, for diagnostics and
// disassembly.
func (r *Rule) String() string {
	out := r.LHS.Name + " ::="
	if len(r.RHS) == 0 {
		return out + " epsilon"
	}
	for _, s := range r.RHS {
		out += " " + s.Name
	}
	return out
}
