package ic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GetRegister_SameNameReturnsSameInstance(t *testing.T) {
	b := NewBuilder()
	a := b.GetRegister("x", 0)
	again := b.GetRegister("x", 99) // init ignored once the register exists
	assert.Same(t, a, again)
}

func Test_GetRegister_NumericNameIsAConstantRegardlessOfInit(t *testing.T) {
	b := NewBuilder()
	r := b.GetRegister("42", 0)
	assert.Equal(t, int64(42), r.Initial)

	neg := b.GetRegister("-7", 0)
	assert.Equal(t, int64(-7), neg.Initial)
}

func Test_GetTemporary_RecyclesFreedRegisters(t *testing.T) {
	b := NewBuilder()
	first := b.GetTemporary()
	b.FreeTemporary(first)
	second := b.GetTemporary()
	assert.Same(t, first, second)
}

func Test_FreeTemporary_IgnoresNonTemporaryRegister(t *testing.T) {
	b := NewBuilder()
	named := b.GetRegister("in_guard", 0)
	b.FreeTemporary(named)
	// A non-temporary register must never enter the recycled pool: the next
	// GetTemporary call should allocate fresh, not hand back "in_guard".
	temp := b.GetTemporary()
	assert.NotSame(t, named, temp)
}

func Test_GetExternLabel_SurvivesAndIsNamedInProgram(t *testing.T) {
	b := NewBuilder()
	entry := b.GetExternLabel("scan")
	b.EmitLabel(entry)
	b.Emit(Return, 0)

	prog := b.Generate()
	pc, ok := prog.ExternLabels["scan"]
	require.True(t, ok)
	assert.Equal(t, 0, pc)
}

func Test_Generate_LabelResolvesToFollowingInstructionPC(t *testing.T) {
	b := NewBuilder()
	target := b.GetLabel("")
	b.Emit(Branch, 0, LabelOperand(target))
	b.EmitLabel(target)
	b.Emit(Return, 0)

	prog := b.Generate()
	require.Len(t, prog.Instructions, 2)
	assert.Equal(t, Branch, prog.Instructions[0].Opcode)
	assert.Equal(t, Return, prog.Instructions[1].Opcode)

	branchOperand := prog.Operands[prog.Instructions[0].OperandOffset]
	assert.Equal(t, int64(1), branchOperand.Int)
}

func Test_Generate_StripsLabelPseudoInstructions(t *testing.T) {
	b := NewBuilder()
	l := b.GetLabel("")
	b.EmitLabel(l)
	b.Emit(Return, 0)

	prog := b.Generate()
	assert.Len(t, prog.Instructions, 1)
}

func Test_GetString_InternsByValue(t *testing.T) {
	b := NewBuilder()
	a := b.GetString("hello")
	again := b.GetString("hello")
	other := b.GetString("world")

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, other)
}

func Test_GetASTHandle_TracksHighWaterMarkAcrossFreeAllASTs(t *testing.T) {
	b := NewBuilder()
	b.GetASTHandle()
	b.GetASTHandle()
	b.GetASTHandle()
	assert.Equal(t, 3, b.MaxASTSlots())

	b.FreeAllASTs()
	b.GetASTHandle()
	assert.Equal(t, 3, b.MaxASTSlots(), "high-water mark must not shrink after a reset")
}
