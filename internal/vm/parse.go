package vm

import (
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/lr"
	"github.com/calderwood/hoshi/internal/source"
)

// scannedToken is one significant (non-ignored) token produced by the scan
// driver, or the synthetic eof token at the end of input.
type scannedToken struct {
	symbolNum int
	node      *ast.Node
}

// stackEntry is one slot of the LR parse stack: the state shifted/goto'd
// into, and the subtree (or leaf) recognized to reach it.
type stackEntry struct {
	state     int
	symbolNum int
	node      *ast.Node
}

// Parse drives pd's SLR(1) table against buf, scanning tokens on demand and
// invoking the generated reduce entries to build the resulting AST (spec
// component C10's parse operation). It reports lexical and syntax
// diagnostics to sink and returns the root AST, or nil if the source could
// not be recovered from a syntax error.
//
// Grounded on the teacher's internal/ictiobus/parse/lr.go shift/reduce
// driver loop, adapted to call through the VM's bytecode (scan/reduce
// entries) instead of the teacher's in-process Go callbacks.
func (m *Machine) Parse(buf *source.Buffer, sink *diag.Sink) *ast.Node {
	table := m.pd.Table()
	eofNum := m.pd.symbolNum(grammar.EOFName)

	scanCtx := &execContext{m: m, buf: buf, sink: sink}
	tok := m.nextToken(scanCtx, eofNum)

	stack := []stackEntry{{state: table.StartState}}

	for {
		top := stack[len(stack)-1]
		action := table.Action(top.state, tok.symbolNum)

		switch action.Kind {
		case lr.ActionShift:
			stack = append(stack, stackEntry{state: action.Target, symbolNum: tok.symbolNum, node: tok.node})
			tok = m.nextToken(scanCtx, eofNum)

		case lr.ActionReduce:
			rule := m.pd.ruleInfo(action.Target)
			rhsLen := len(rule.RHS)
			rhs := make([]*ast.Node, rhsLen)
			for i := 0; i < rhsLen; i++ {
				rhs[i] = stack[len(stack)-rhsLen+i].node
			}
			stack = stack[:len(stack)-rhsLen]

			node := m.reduce(action.Target, rhs, sink)
			under := stack[len(stack)-1]
			next := table.Goto(under.state, rule.LHSNum)
			if next < 0 {
				sink.Reportf(diag.Syntax, source.NoLocation,
					"internal error: no goto for state %d on symbol %d", under.state, rule.LHSNum)
				return nil
			}
			stack = append(stack, stackEntry{state: next, symbolNum: rule.LHSNum, node: node})

		case lr.ActionAccept:
			node := stack[len(stack)-1].node
			if node == nil {
				// Only the empty-grammar table (spec's zero-rule case) ever
				// accepts without a single shift/reduce onto the stack.
				node = ast.NewNull()
			}
			return node

		default:
			if !m.recoverFromError(table, &stack, &tok, scanCtx, eofNum, sink) {
				return nil
			}
		}
	}
}

// nextToken runs the scanner until it commits a non-ignored token, or
// reports the synthetic eof token once the cursor reaches the end of buf.
// Lexical errors are reported and skipped in place (ScanError already
// advanced the cursor past the offending codepoint).
func (m *Machine) nextToken(ctx *execContext, eofNum int) scannedToken {
	for {
		if ctx.cursor >= int64(ctx.buf.Len()) {
			return scannedToken{symbolNum: eofNum}
		}
		outcome := ctx.run(m.pd.ScanEntryPC)
		if outcome.lexError {
			continue
		}
		if outcome.token != nil {
			if outcome.ignored {
				continue
			}
			return scannedToken{symbolNum: outcome.symbolNum, node: outcome.token}
		}
	}
}

// reduce runs ruleNum's reduce entry over rhs and returns the AST it builds.
// Each reduction gets a fresh AST slot pool and work stack (spec §4.3: "each
// reduce entry starts with a fresh pool"); the parse-level call stack is
// independent of any in-flight scan call, so a fresh execContext is used
// rather than reusing the scan driver's.
func (m *Machine) reduce(ruleNum int, rhs []*ast.Node, sink *diag.Sink) *ast.Node {
	entry, ok := m.pd.ReduceEntry[ruleNum]
	if !ok {
		return ast.NewNull()
	}
	ctx := &execContext{m: m, sink: sink, rhsInputs: rhs}
	ctx.run(entry)
	if ctx.finished == nil {
		return ast.NewNull()
	}
	return ctx.finished
}

// recoverFromError reports a syntax error at the current token and, if the
// grammar allows it, discards tokens until one the current stack top can
// shift or reduce on (or eof). It returns false when recovery is disabled
// or exhausts the input, in which case Parse should abort.
func (m *Machine) recoverFromError(table *lr.Table, stack *[]stackEntry, tok *scannedToken, ctx *execContext, eofNum int, sink *diag.Sink) bool {
	sink.Reportf(diag.Syntax, ctx.scanStart, "unexpected token %d in state %d", tok.symbolNum, (*stack)[len(*stack)-1].state)

	if !m.pd.ErrorRecovery {
		return false
	}

	top := (*stack)[len(*stack)-1].state
	for {
		if tok.symbolNum == eofNum {
			return false
		}
		*tok = m.nextToken(ctx, eofNum)
		if table.Action(top, tok.symbolNum).Kind != lr.ActionError {
			return true
		}
	}
}
