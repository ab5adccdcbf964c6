package vm

import (
	"testing"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/calderwood/hoshi/internal/source"
	"github.com/stretchr/testify/assert"
)

// Test_AstForm_NestedPreservesOuterWorkStack exercises the exact shape
// internal/reduce's evalBuildNested emits: an outer AstStart/AstForm pair
// whose work stack already holds one child when a nested AstStart/AstForm
// pair runs to build a second child. A naive AstStart/AstForm that clears or
// collapses the whole work stack (rather than the portion above its own
// baseReg snapshot) would corrupt the outer child list.
func Test_AstForm_NestedPreservesOuterWorkStack(t *testing.T) {
	assert := assert.New(t)

	b := ic.NewBuilder()
	empty := b.GetString("")

	leafKind := ast.Maximum
	innerKind := ast.Maximum + 1
	outerKind := ast.Maximum + 2

	entry := b.GetExternLabel("reduce:0")
	b.EmitLabel(entry)

	outerBase := b.GetTemporary()
	b.Emit(ic.AstStart, 0, ic.RegisterOperand(outerBase), ic.IntOperand(1))

	// Outer's first child comes straight from its one rhs input.
	b.Emit(ic.AstPushChild, 0, ic.ASTHandleOperand(0))

	// Nested (Kind, $1) former: its own AstStart/AstForm, sharing the rhs
	// input and the outer work stack.
	innerBase := b.GetTemporary()
	b.Emit(ic.AstStart, 0, ic.RegisterOperand(innerBase), ic.IntOperand(0))
	b.Emit(ic.AstPushChild, 0, ic.ASTHandleOperand(0))
	innerHandle := b.GetASTHandle()
	b.Emit(ic.AstForm, 0,
		ic.ASTHandleOperand(innerHandle), ic.RegisterOperand(innerBase),
		ic.KindOperand(int32(innerKind)), ic.IntOperand(0), ic.StringOperand(empty))
	b.FreeTemporary(innerBase)

	// Push the nested result as the outer's second child.
	b.Emit(ic.AstPushChild, 0, ic.ASTHandleOperand(innerHandle))

	outerHandle := b.GetASTHandle()
	b.Emit(ic.AstForm, 0,
		ic.ASTHandleOperand(outerHandle), ic.RegisterOperand(outerBase),
		ic.KindOperand(int32(outerKind)), ic.IntOperand(0), ic.StringOperand(empty))
	b.FreeTemporary(outerBase)

	b.Emit(ic.AstFinish, 0, ic.IntOperand(1), ic.ASTHandleOperand(outerHandle))
	b.Emit(ic.Return, 0)

	prog := b.Generate()

	pd := &ParserData{
		Strings:      prog.Strings,
		Instructions: prog.Instructions,
		Operands:     prog.Operands,
		ReduceEntry:  map[int]int{0: prog.ExternLabels["reduce:0"]},
	}
	for _, r := range prog.Registers {
		pd.Registers = append(pd.Registers, RegisterInfo{Name: r.Name, Initial: r.Initial})
	}

	m := New(pd)
	sink := diag.NewSink(source.New("test", ""))
	leaf := ast.NewLeaf(leafKind, "x", 0)

	root := m.reduce(0, []*ast.Node{leaf}, sink)

	assert.False(sink.HasErrors())
	assert.Equal(outerKind, root.Kind)
	if assert.Len(root.Children, 2, "outer form must keep both children despite the nested AstStart/AstForm") {
		assert.Same(leaf, root.Children[0])
		assert.Equal(innerKind, root.Children[1].Kind)
		if assert.Len(root.Children[1].Children, 1) {
			assert.Same(leaf, root.Children[1].Children[0])
		}
	}
}
