package action

import (
	"testing"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/stretchr/testify/assert"
)

func ident(name string) *ast.Node { return &ast.Node{Kind: KindIdent, Lexeme: name} }
func intLit(v string) *ast.Node   { return &ast.Node{Kind: KindIntLit, Lexeme: v} }

func Test_Statement_AssignEmitsAssignWithCopyPropagationSkip(t *testing.T) {
	b := ic.NewBuilder()
	g := New(b)

	// in_guard := in_guard (rhs already targets lhs) emits nothing.
	g.Statement(&ast.Node{Kind: KindAssign, Children: []*ast.Node{ident("in_guard"), ident("in_guard")}})
	assert.Empty(t, b.Instructions())

	// in_guard := 1 emits a real Assign.
	g.Statement(&ast.Node{Kind: KindAssign, Children: []*ast.Node{ident("in_guard"), intLit("1")}})
	var sawAssign bool
	for _, ins := range b.Instructions() {
		if ins.Opcode == ic.Assign {
			sawAssign = true
		}
	}
	assert.True(t, sawAssign)
}

func Test_Condition_RelationalBranchesToTrueOrFalseLabel(t *testing.T) {
	b := ic.NewBuilder()
	g := New(b)
	trueL := b.GetLabel("true")
	falseL := b.GetLabel("false")

	cond := &ast.Node{Kind: KindEq, Children: []*ast.Node{ident("in_guard"), intLit("1")}}
	g.Condition(cond, trueL, falseL)

	var sawBranchEqual bool
	for _, ins := range b.Instructions() {
		if ins.Opcode == ic.BranchEqual {
			sawBranchEqual = true
		}
	}
	assert.True(t, sawBranchEqual)
}

func Test_Condition_AndShortCircuitsThroughMidLabel(t *testing.T) {
	b := ic.NewBuilder()
	g := New(b)
	trueL := b.GetLabel("true")
	falseL := b.GetLabel("false")

	cond := &ast.Node{Kind: KindAnd, Children: []*ast.Node{
		{Kind: KindEq, Children: []*ast.Node{ident("a"), intLit("1")}},
		{Kind: KindEq, Children: []*ast.Node{ident("b"), intLit("2")}},
	}}
	g.Condition(cond, trueL, falseL)

	count := 0
	for _, ins := range b.Instructions() {
		if ins.Opcode == ic.BranchEqual {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func Test_Expression_BinaryAddEmitsAdd(t *testing.T) {
	b := ic.NewBuilder()
	g := New(b)

	expr := &ast.Node{Kind: KindAdd, Children: []*ast.Node{intLit("2"), intLit("3")}}
	target := g.Expression(expr, nil)
	assert.NotNil(t, target)

	var sawAdd bool
	for _, ins := range b.Instructions() {
		if ins.Opcode == ic.Add {
			sawAdd = true
		}
	}
	assert.True(t, sawAdd)
}
