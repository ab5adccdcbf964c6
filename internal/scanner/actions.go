package scanner

import (
	"strconv"

	"github.com/calderwood/hoshi/internal/action"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/calderwood/hoshi/internal/source"
)

// tokenActionLabel returns the extern entry for sym's token action (spec's
// grammar DSL `action` token option), generating it the first time sym is
// seen. Terminals with no action share one no-op entry, so ScanAccept's
// actionLabel operand is never nil.
func tokenActionLabel(b *ic.Builder, ag *action.Generator, sym *grammar.Symbol, noop *ic.Label, done map[int]*ic.Label) *ic.Label {
	if sym.ActionAST == nil {
		return noop
	}
	if l, ok := done[sym.Num]; ok {
		return l
	}
	l := b.GetExternLabel("tokenaction:" + strconv.Itoa(sym.Num))
	b.EmitLabel(l)
	ag.Statement(sym.ActionAST)
	b.Emit(ic.Return, source.NoLocation)
	done[sym.Num] = l
	return l
}
