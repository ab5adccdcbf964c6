package vm

import (
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/ic"
)

// astHandle dereferences an AST-handle operand's slot. Handles are allocated
// monotonically in generation order (ic.Builder.GetASTHandle), so by the time
// any instruction reads one its slot has already been set by an earlier
// AstStart/AstForm/AstNth in the same reduce action.
func (ctx *execContext) astHandle(h int) *ast.Node {
	return ctx.astSlots[h]
}

// setASTHandle stores n at handle h, growing the slot pool as needed. The
// pool is reset once per reduce-action invocation by the reduce driver, not
// by any Ast* opcode.
func (ctx *execContext) setASTHandle(h int, n *ast.Node) {
	for len(ctx.astSlots) <= h {
		ctx.astSlots = append(ctx.astSlots, nil)
	}
	ctx.astSlots[h] = n
}

// resolveKindOperand evaluates an AstForm kind operand: a literal ast.Kind,
// or (for a %expr modifier) the kind of an already-built AST handle.
func (ctx *execContext) resolveKindOperand(op ic.Operand) int32 {
	switch op.Kind {
	case ic.OperandKindTag:
		return int32(op.Int)
	case ic.OperandASTHandle:
		return int32(ctx.astHandle(op.AST).Kind)
	default:
		panic("vm: bad kind operand")
	}
}

// resolveIntOperand evaluates an AstForm location operand: a literal offset,
// or (for an @expr modifier) an already-built AST handle's own location.
func (ctx *execContext) resolveIntOperand(op ic.Operand) int64 {
	switch op.Kind {
	case ic.OperandInt:
		return op.Int
	case ic.OperandASTHandle:
		return ctx.astHandle(op.AST).Location
	default:
		panic("vm: bad int operand")
	}
}

// resolveStringOperand evaluates an AstForm lexeme operand: a string-pool
// index, or (for a &expr modifier) an already-built AST handle's own lexeme.
func (ctx *execContext) resolveStringOperand(op ic.Operand) string {
	switch op.Kind {
	case ic.OperandString:
		return ctx.m.pd.Strings[op.Str]
	case ic.OperandASTHandle:
		return ctx.astHandle(op.AST).Lexeme
	default:
		panic("vm: bad string operand")
	}
}

// resolveIndexOperand evaluates an AstNth index operand: an int literal, or
// the live value of a register (the splice-loop's running counter).
func (ctx *execContext) resolveIndexOperand(op ic.Operand) int {
	switch op.Kind {
	case ic.OperandInt:
		return int(op.Int)
	case ic.OperandRegister:
		return int(ctx.regVal(op))
	default:
		panic("vm: bad index operand")
	}
}

// branchTaken evaluates one of the six relational BranchXxx opcodes.
func branchTaken(op ic.Opcode, a, b int64) bool {
	switch op {
	case ic.BranchEqual:
		return a == b
	case ic.BranchNotEqual:
		return a != b
	case ic.BranchLessThan:
		return a < b
	case ic.BranchLessEqual:
		return a <= b
	case ic.BranchGreaterThan:
		return a > b
	case ic.BranchGreaterEqual:
		return a >= b
	default:
		panic("vm: not a branch opcode")
	}
}

// arith evaluates one of the four binary arithmetic opcodes. Division by
// zero reports as zero rather than panicking: register arithmetic has no
// diagnostic sink of its own, and a malformed former is a generation-time
// bug, not a runtime condition a source file can trigger.
func arith(op ic.Opcode, lhs, rhs int64) int64 {
	switch op {
	case ic.Add:
		return lhs + rhs
	case ic.Subtract:
		return lhs - rhs
	case ic.Multiply:
		return lhs * rhs
	case ic.Divide:
		if rhs == 0 {
			return 0
		}
		return lhs / rhs
	default:
		panic("vm: not an arithmetic opcode")
	}
}
