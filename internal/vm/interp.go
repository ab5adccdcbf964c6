package vm

import (
	"unicode/utf8"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/calderwood/hoshi/internal/source"
)

// Machine executes one ParserData's bytecode against a source buffer. Its
// register file persists for the Machine's lifetime (spec §4.7: "registers
// form a fixed-size per-VM vector"); everything else (AST slots, the AST
// work stack, the call stack) is scoped to one top-level Run (one scan call
// or one reduce call).
type Machine struct {
	pd   *ParserData
	regs []int64
}

// New returns a Machine over pd with its register file freshly initialized.
func New(pd *ParserData) *Machine {
	m := &Machine{pd: pd}
	m.ResetRegisters()
	return m
}

// ResetRegisters restores every register to its declared initial value
// (spec's facade re-attaches a grammar/source by discarding prior state).
func (m *Machine) ResetRegisters() {
	m.regs = make([]int64, len(m.pd.Registers))
	for i, r := range m.pd.Registers {
		m.regs[i] = r.Initial
	}
}

// runOutcome reports why one execContext.run invocation stopped.
type runOutcome struct {
	halted   bool
	returned bool
	token     *ast.Node // set when a scan run committed a token
	symbolNum int       // the committed token's terminal Num
	ignored   bool      // the committed token's terminal is IsIgnored
	lexError  bool      // a ScanError terminated this run
}

type execContext struct {
	m    *Machine
	buf  *source.Buffer
	sink *diag.Sink

	// Reduce-action scratch space (spec §4.3: "each reduce entry starts
	// with a fresh pool").
	astSlots  []*ast.Node
	workStack []*ast.Node
	rhsInputs []*ast.Node

	// Scan state, persists across tokens within one Parse session.
	cursor    int64
	scanStart int64
	hasAccept bool
	acceptPos int64
	acceptSym int
	acceptAct int

	callStack []int

	finished    *ast.Node
	finishedRHS int
}

func (ctx *execContext) operand(ins ic.FlatInstruction, i int) ic.Operand {
	return ctx.m.pd.Operands[ins.OperandOffset+i]
}

func (ctx *execContext) regVal(op ic.Operand) int64 {
	return ctx.m.regs[ctx.regIndex(op)]
}

// regIndex returns a register operand's stable index into Machine.regs.
// ic.Generate resolves every OperandRegister's Int field to this index (see
// that function's doc comment); the original *Register pointer does not
// survive an Encode/Decode round trip.
func (ctx *execContext) regIndex(op ic.Operand) int {
	return int(op.Int)
}

// run executes instructions starting at pc until a top-level Return (the
// call stack empties back past the depth recorded on entry), a Halt, or (for
// scan contexts) a ScanToken/ScanError terminal. Recording that depth rather
// than requiring an empty call stack lets a nested call (e.g. a token
// action's subroutine, invoked from within ScanToken's handler) run to its
// own Return without disturbing the outer call's bookkeeping.
func (ctx *execContext) run(start int) runOutcome {
	base := len(ctx.callStack)
	pc := start
	for {
		ins := ctx.m.pd.Instructions[pc]
		switch ins.Opcode {
		case ic.Halt:
			return runOutcome{halted: true}

		case ic.Call:
			target := int(ctx.operand(ins, 0).Int)
			ctx.callStack = append(ctx.callStack, pc+1)
			pc = target
			continue

		case ic.Return:
			if len(ctx.callStack) <= base {
				return runOutcome{returned: true}
			}
			pc = ctx.callStack[len(ctx.callStack)-1]
			ctx.callStack = ctx.callStack[:len(ctx.callStack)-1]
			continue

		case ic.Branch:
			pc = int(ctx.operand(ins, 0).Int)
			continue

		case ic.BranchEqual, ic.BranchNotEqual, ic.BranchLessThan,
			ic.BranchLessEqual, ic.BranchGreaterThan, ic.BranchGreaterEqual:
			label := int(ctx.operand(ins, 0).Int)
			a := ctx.regVal(ctx.operand(ins, 1))
			b := ctx.regVal(ctx.operand(ins, 2))
			if branchTaken(ins.Opcode, a, b) {
				pc = label
				continue
			}

		case ic.Assign:
			dst := ctx.regIndex(ctx.operand(ins, 0))
			src := ctx.regVal(ctx.operand(ins, 1))
			ctx.m.regs[dst] = src

		case ic.Add, ic.Subtract, ic.Multiply, ic.Divide:
			dst := ctx.regIndex(ctx.operand(ins, 0))
			lhs := ctx.regVal(ctx.operand(ins, 1))
			rhs := ctx.regVal(ctx.operand(ins, 2))
			ctx.m.regs[dst] = arith(ins.Opcode, lhs, rhs)

		case ic.UnaryMinus:
			dst := ctx.regIndex(ctx.operand(ins, 0))
			src := ctx.regVal(ctx.operand(ins, 1))
			ctx.m.regs[dst] = -src

		case ic.DumpStack:
			// debug aid only; nothing to do without a terminal attached.

		case ic.AstStart:
			// baseReg snapshots the work-stack depth rather than resetting
			// it: a nested former (internal/reduce's evalBuildNested) emits
			// its own AstStart/AstForm pair while the enclosing former's
			// work stack and AST slots already hold live entries, so
			// nothing here may clear either wholesale.
			baseIdx := ctx.regIndex(ctx.operand(ins, 0))
			ctx.m.regs[baseIdx] = int64(len(ctx.workStack))
			rhsLen := int(ctx.operand(ins, 1).Int)
			for i := 0; i < rhsLen && i < len(ctx.rhsInputs); i++ {
				ctx.setASTHandle(i, ctx.rhsInputs[i])
			}

		case ic.AstPushChild:
			handle := ctx.operand(ins, 0).AST
			ctx.workStack = append(ctx.workStack, ctx.astHandle(handle))

		case ic.AstForm:
			dst := ctx.operand(ins, 0).AST
			baseVal := int(ctx.m.regs[ctx.regIndex(ctx.operand(ins, 1))])
			kindOp := ctx.operand(ins, 2)
			locOp := ctx.operand(ins, 3)
			lexOp := ctx.operand(ins, 4)
			node := &ast.Node{
				Kind:     ast.Kind(ctx.resolveKindOperand(kindOp)),
				Location: ctx.resolveIntOperand(locOp),
				Lexeme:   ctx.resolveStringOperand(lexOp),
				Children: append([]*ast.Node(nil), ctx.workStack[baseVal:]...),
			}
			ctx.workStack = ctx.workStack[:baseVal]
			ctx.setASTHandle(dst, node)

		case ic.AstFinish:
			rhsLen := int(ctx.operand(ins, 0).Int)
			src := ctx.operand(ins, 1).AST
			ctx.finished = ctx.astHandle(src)
			ctx.finishedRHS = rhsLen

		case ic.AstNth:
			dst := ctx.operand(ins, 0).AST
			src := ctx.astHandle(ctx.operand(ins, 1).AST)
			idx := ctx.resolveIndexOperand(ctx.operand(ins, 2))
			if idx < 0 || idx >= len(src.Children) {
				ctx.sink.Reportf(diag.AstIndex, source.NoLocation,
					"child index %d out of range (0..%d)", idx, len(src.Children)-1)
				ctx.setASTHandle(dst, ast.NewNull())
			} else {
				ctx.setASTHandle(dst, src.Children[idx])
			}

		case ic.AstSlice:
			from := int(ctx.operand(ins, 0).Int)
			to := int(ctx.operand(ins, 1).Int)
			for i := from; i <= to; i++ {
				h := i - 1
				if h < 0 || h >= len(ctx.rhsInputs) {
					ctx.sink.Reportf(diag.AstIndex, source.NoLocation,
						"rhs index %d out of range (1..%d)", i, len(ctx.rhsInputs))
					continue
				}
				ctx.workStack = append(ctx.workStack, ctx.rhsInputs[h])
			}

		case ic.AstCount:
			dst := ctx.regIndex(ctx.operand(ins, 0))
			src := ctx.astHandle(ctx.operand(ins, 1).AST)
			ctx.m.regs[dst] = int64(len(src.Children))

		case ic.ScanStart:
			ctx.scanStart = ctx.cursor
			ctx.hasAccept = false

		case ic.ScanChar:
			elseLabel := int(ctx.operand(ins, 0).Int)
			if ctx.cursor >= int64(ctx.buf.Len()) {
				pc = elseLabel
				continue
			}
			r, size := utf8.DecodeRuneInString(ctx.buf.Text()[ctx.cursor:])
			matched := -1
			for i := 1; i+2 < ins.OperandCount; i += 3 {
				lo := ctx.operand(ins, i).Codepoint
				hi := ctx.operand(ins, i+1).Codepoint
				if r >= lo && r <= hi {
					matched = int(ctx.operand(ins, i+2).Int)
					break
				}
			}
			if matched < 0 {
				pc = elseLabel
				continue
			}
			ctx.cursor += int64(size)
			pc = matched
			continue

		case ic.ScanAccept:
			ctx.hasAccept = true
			ctx.acceptPos = ctx.cursor
			ctx.acceptSym = int(ctx.operand(ins, 0).Int)
			// actionLabel's pc, like every other label operand, was baked
			// into Int at generation time (ic.Generate); Lbl itself is a
			// live Builder pointer that would not survive a decode.
			ctx.acceptAct = int(ctx.operand(ins, 1).Int)

		case ic.ScanToken:
			if ctx.hasAccept {
				ctx.cursor = ctx.acceptPos
				lexeme := ctx.buf.Slice(ctx.scanStart, ctx.cursor)
				ctx.run(ctx.acceptAct) // run the token action subroutine
				kind := ast.Kind(ctx.m.pd.TerminalKind[ctx.acceptSym])
				tok := ast.NewLeaf(kind, lexeme, ctx.scanStart)
				ignored := false
				for _, s := range ctx.m.pd.Symbols {
					if s.Num == ctx.acceptSym {
						ignored = s.IsIgnored
						break
					}
				}
				return runOutcome{token: tok, symbolNum: ctx.acceptSym, ignored: ignored}
			}
			pc = int(ctx.operand(ins, 0).Int)
			continue

		case ic.ScanError:
			msgIdx := ctx.operand(ins, 0).Str
			msg := ""
			if msgIdx >= 0 && msgIdx < len(ctx.m.pd.Strings) {
				msg = ctx.m.pd.Strings[msgIdx]
			}
			ctx.sink.Report(diag.Lexical, ctx.cursor, msg, msg)
			if ctx.cursor < int64(ctx.buf.Len()) {
				_, size := utf8.DecodeRuneInString(ctx.buf.Text()[ctx.cursor:])
				ctx.cursor += int64(size)
			}
			return runOutcome{lexError: true}

		default:
			panic("vm: unhandled opcode " + ins.Opcode.String())
		}
		pc++
	}
}
