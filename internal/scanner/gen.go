package scanner

import (
	"github.com/calderwood/hoshi/internal/action"
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/calderwood/hoshi/internal/source"
)

// Generate compiles every scanned terminal's regex into one DFA and emits it
// as IC against b, following the ScanStart/ScanChar/ScanAccept/ScanToken/
// ScanError contract documented in internal/ic's opcode table (spec §4.6).
// Token actions (the grammar DSL's `action` token option) are generated via
// ag and wired as ScanAccept's actionLabel operand. It returns the extern
// label of the scanner's entry point.
func Generate(b *ic.Builder, g *grammar.Grammar, ag *action.Generator, macros map[string]*ast.Node, sink *diag.Sink) *ic.Label {
	d := minimize(build(g, macros, sink))

	stateLabels := make([]*ic.Label, len(d.states))
	for i := range d.states {
		stateLabels[i] = b.GetLabel("")
	}

	entry := b.GetExternLabel("scan")
	tokenL := b.GetLabel("")
	errorL := b.GetLabel("")
	noopAction := b.GetExternLabel("tokenaction:noop")
	actionDone := map[int]*ic.Label{}

	b.EmitLabel(entry)
	b.Emit(ic.ScanStart, source.NoLocation)
	b.Emit(ic.Branch, source.NoLocation, ic.LabelOperand(stateLabels[d.start]))

	b.EmitLabel(noopAction)
	b.Emit(ic.Return, source.NoLocation)

	for i, st := range d.states {
		b.EmitLabel(stateLabels[i])
		emitAccepts(b, ag, st.accepts, noopAction, actionDone)
		operands := make([]ic.Operand, 0, 1+3*len(st.trans))
		operands = append(operands, ic.LabelOperand(tokenL))
		for _, e := range st.trans {
			operands = append(operands,
				ic.CodepointOperand(e.Lo),
				ic.CodepointOperand(e.Hi),
				ic.LabelOperand(stateLabels[e.to]),
			)
		}
		b.Emit(ic.ScanChar, source.NoLocation, operands...)
	}

	b.EmitLabel(tokenL)
	b.Emit(ic.ScanToken, source.NoLocation, ic.LabelOperand(errorL))

	b.EmitLabel(errorL)
	msg := b.GetString("unexpected character")
	b.Emit(ic.ScanError, source.NoLocation, ic.StringOperand(msg))

	return entry
}

// emitAccepts emits a DFA state's accept-set cascade: accepts is already
// ordered highest-precedence-first (resolveAccepts/sortByPrecedence), and
// each candidate is tried in that order. An unguarded candidate always wins
// (spec §4.6(ii)'s "highest precedence wins"), so nothing lower in the list
// can ever be reached and the cascade stops there. A guarded candidate
// (Symbol.Guard != nil) only wins if its guard evaluates true at this point
// in the scan; on false, execution falls through to try the next,
// lower-precedence candidate — this is how a guard lets a lower-precedence
// token beat a higher one at runtime (spec §4.6(iv)).
func emitAccepts(b *ic.Builder, ag *action.Generator, accepts []*grammar.Symbol, noopAction *ic.Label, actionDone map[int]*ic.Label) {
	if len(accepts) == 0 {
		return
	}
	done := b.GetLabel("")
	for _, sym := range accepts {
		actionL := tokenActionLabel(b, ag, sym, noopAction, actionDone)
		if sym.Guard == nil {
			b.Emit(ic.ScanAccept, source.NoLocation, ic.IntOperand(int64(sym.Num)), ic.LabelOperand(actionL))
			b.Emit(ic.Branch, source.NoLocation, ic.LabelOperand(done))
			break
		}
		trueL := b.GetLabel("")
		falseL := b.GetLabel("")
		ag.Condition(sym.Guard, trueL, falseL)
		b.EmitLabel(trueL)
		b.Emit(ic.ScanAccept, source.NoLocation, ic.IntOperand(int64(sym.Num)), ic.LabelOperand(actionL))
		b.Emit(ic.Branch, source.NoLocation, ic.LabelOperand(done))
		b.EmitLabel(falseL)
	}
	b.EmitLabel(done)
}
