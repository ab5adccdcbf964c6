package action

import (
	"fmt"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/ic"
)

// Generator translates action-language AST nodes into IC against one shared
// Builder (spec §4.4).
type Generator struct {
	B *ic.Builder
}

func New(b *ic.Builder) *Generator {
	return &Generator{B: b}
}

// internalError panics, naming the context and the AST kind that has no
// handler there; used by the default handlers for unrecognized AST kinds in
// a given context (spec §4.4, §9:
// "the default entry reports an internal-logic error"). The caller
// (internal/reduce, internal/scanner) is expected to have already validated
// the action AST's shape during a prior pass; reaching here indicates a
// genuine internal-logic bug, so we panic rather than silently miscompile.
func internalError(context string, n *ast.Node) {
	panic(fmt.Sprintf("action: no %s handler for AST kind %d at offset %d", context, n.Kind, n.Location))
}

// ---- statement context --------------------------------------------------

// Statement translates n as a side-effecting statement (spec §4.4).
func (g *Generator) Statement(n *ast.Node) {
	switch n.Kind {
	case KindSeq:
		for _, stmt := range n.Children {
			g.Statement(stmt)
		}
	case KindAssign:
		g.statementAssign(n)
	case KindExprStmt:
		r := g.Expression(n.Children[0], nil)
		g.B.FreeTemporary(r)
	case KindCall:
		g.statementCall(n)
	default:
		internalError("statement", n)
	}
}

func (g *Generator) statementAssign(n *ast.Node) {
	lhsNode, rhsNode := n.Children[0], n.Children[1]
	if lhsNode.Kind != KindIdent {
		internalError("statement (assign lhs)", lhsNode)
	}
	lhs := g.B.GetRegister(lhsNode.Lexeme, 0)

	// Copy-propagation at emission: if rhs's own target register already
	// equals lhs, skip emitting anything (spec §4.4).
	result := g.Expression(rhsNode, lhs)
	if result != lhs {
		g.B.Emit(ic.Assign, n.Location, ic.RegisterOperand(lhs), ic.RegisterOperand(result))
		g.B.FreeTemporary(result)
	}
}

func (g *Generator) statementCall(n *ast.Node) {
	switch n.Lexeme {
	case "dump_stack":
		g.B.Emit(ic.DumpStack, n.Location)
	default:
		// error_count/token_count are read-only builtins; calling them as a
		// bare statement has no side effect, so just evaluate and discard.
		r := g.Expression(n, nil)
		g.B.FreeTemporary(r)
	}
}

// ---- expression context -------------------------------------------------

// Expression translates n as a value-producing expression. If target is
// nil, a temporary is allocated and returned; callers own releasing the
// returned register with B.FreeTemporary once done with it (spec §4.4).
func (g *Generator) Expression(n *ast.Node, target *ic.Register) *ic.Register {
	switch n.Kind {
	case KindIntLit:
		return g.B.GetRegister(n.Lexeme, 0)
	case KindIdent:
		return g.exprIdent(n, target)
	case KindCall:
		return g.exprCall(n, target)
	case KindAdd, KindSub, KindMul, KindDiv:
		return g.exprBinary(n, target)
	case KindNeg:
		return g.exprUnary(n, target)
	case KindAnd, KindOr, KindNot, KindEq, KindNeq, KindLt, KindLe, KindGt, KindGe:
		return g.exprFromCondition(n, target)
	default:
		internalError("expression", n)
		return nil
	}
}

func (g *Generator) exprIdent(n *ast.Node, target *ic.Register) *ic.Register {
	src := g.B.GetRegister(n.Lexeme, 0)
	if target == nil {
		return src
	}
	if target != src {
		g.B.Emit(ic.Assign, n.Location, ic.RegisterOperand(target), ic.RegisterOperand(src))
	}
	return target
}

func (g *Generator) exprCall(n *ast.Node, target *ic.Register) *ic.Register {
	var src *ic.Register
	switch n.Lexeme {
	case "token_count":
		src = g.B.GetRegister("token_count", 0)
	case "error_count":
		src = g.B.GetRegister("error_count", 0)
	default:
		internalError("expression (call)", n)
	}
	if target == nil {
		return src
	}
	g.B.Emit(ic.Assign, n.Location, ic.RegisterOperand(target), ic.RegisterOperand(src))
	return target
}

var binaryOp = map[ast.Kind]ic.Opcode{
	KindAdd: ic.Add,
	KindSub: ic.Subtract,
	KindMul: ic.Multiply,
	KindDiv: ic.Divide,
}

func (g *Generator) exprBinary(n *ast.Node, target *ic.Register) *ic.Register {
	lhs := g.Expression(n.Children[0], nil)
	rhs := g.Expression(n.Children[1], nil)
	if target == nil {
		target = g.B.GetTemporary()
	}
	g.B.Emit(binaryOp[n.Kind], n.Location, ic.RegisterOperand(target), ic.RegisterOperand(lhs), ic.RegisterOperand(rhs))
	g.B.FreeTemporary(lhs)
	g.B.FreeTemporary(rhs)
	return target
}

func (g *Generator) exprUnary(n *ast.Node, target *ic.Register) *ic.Register {
	src := g.Expression(n.Children[0], nil)
	if target == nil {
		target = g.B.GetTemporary()
	}
	g.B.Emit(ic.UnaryMinus, n.Location, ic.RegisterOperand(target), ic.RegisterOperand(src))
	g.B.FreeTemporary(src)
	return target
}

// exprFromCondition handles "plain arithmetic in condition context" run the
// other way: a boolean-shaped expression used where a value is wanted.
// Materializes 1/0 via a short branch (spec §4.4 describes the inverse;
// this is its dual, needed because conditions and expressions share one
// grammar of operators).
func (g *Generator) exprFromCondition(n *ast.Node, target *ic.Register) *ic.Register {
	if target == nil {
		target = g.B.GetTemporary()
	}
	trueL := g.B.GetLabel("")
	falseL := g.B.GetLabel("")
	doneL := g.B.GetLabel("")
	g.Condition(n, trueL, falseL)
	g.B.EmitLabel(trueL)
	g.B.Emit(ic.Assign, n.Location, ic.RegisterOperand(target), ic.RegisterOperand(g.B.GetRegister("1", 1)))
	g.B.Emit(ic.Branch, n.Location, ic.LabelOperand(doneL))
	g.B.EmitLabel(falseL)
	g.B.Emit(ic.Assign, n.Location, ic.RegisterOperand(target), ic.RegisterOperand(g.B.GetRegister("0", 0)))
	g.B.EmitLabel(doneL)
	return target
}

// ---- condition context ---------------------------------------------------

var relOp = map[ast.Kind]ic.Opcode{
	KindEq:  ic.BranchEqual,
	KindNeq: ic.BranchNotEqual,
	KindLt:  ic.BranchLessThan,
	KindLe:  ic.BranchLessEqual,
	KindGt:  ic.BranchGreaterThan,
	KindGe:  ic.BranchGreaterEqual,
}

// Condition translates n as a boolean test, branching to trueLabel or
// falseLabel (spec §4.4).
func (g *Generator) Condition(n *ast.Node, trueLabel, falseLabel *ic.Label) {
	switch n.Kind {
	case KindAnd:
		mid := g.B.GetLabel("")
		g.Condition(n.Children[0], mid, falseLabel)
		g.B.EmitLabel(mid)
		g.Condition(n.Children[1], trueLabel, falseLabel)
	case KindOr:
		mid := g.B.GetLabel("")
		g.Condition(n.Children[0], trueLabel, mid)
		g.B.EmitLabel(mid)
		g.Condition(n.Children[1], trueLabel, falseLabel)
	case KindNot:
		g.Condition(n.Children[0], falseLabel, trueLabel)
	case KindEq, KindNeq, KindLt, KindLe, KindGt, KindGe:
		g.relationalCondition(n, trueLabel, falseLabel)
	default:
		// Plain arithmetic in condition context: evaluate, then branch on
		// != 0 (spec §4.4).
		v := g.Expression(n, nil)
		zero := g.B.GetRegister("0", 0)
		g.B.Emit(ic.BranchNotEqual, n.Location, ic.LabelOperand(trueLabel), ic.RegisterOperand(v), ic.RegisterOperand(zero))
		g.B.Emit(ic.Branch, n.Location, ic.LabelOperand(falseLabel))
		g.B.FreeTemporary(v)
	}
}

func (g *Generator) relationalCondition(n *ast.Node, trueLabel, falseLabel *ic.Label) {
	lhs := g.Expression(n.Children[0], nil)
	rhs := g.Expression(n.Children[1], nil)
	op := relOp[n.Kind]
	g.B.Emit(op, n.Location, ic.LabelOperand(trueLabel), ic.RegisterOperand(lhs), ic.RegisterOperand(rhs))
	g.B.Emit(ic.Branch, n.Location, ic.LabelOperand(falseLabel))
	g.B.FreeTemporary(lhs)
	g.B.FreeTemporary(rhs)
}
