// Package vm implements the bytecode interpreter (spec component C10):
// it executes the flat instruction/operand arrays produced by internal/ic
// against a source buffer, driving the scanner opcodes to tokenize and an
// SLR(1) table (internal/lr) to shift/reduce, invoking internal/reduce's
// generated AST-former code on every reduction.
//
// Grounded structurally on _examples/original_source/cpp/libsrc/Interpreter.H
// (the register-file/stack-machine shape) and, for the overall
// generate-then-execute split, on the teacher's
// internal/ictiobus/parse/{lr,lrstack}.go driver loop.
package vm

import (
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/calderwood/hoshi/internal/lr"
	"github.com/calderwood/hoshi/internal/source"
)

// newDiscardSink returns a diagnostics sink rebuildGrammar's table
// reconstruction can report into. The grammar has already passed conflict
// checking once during generation; a second LalrConflict report here would
// only ever repeat that earlier finding, so callers outside this package
// never see it.
func newDiscardSink() *diag.Sink {
	return diag.NewSink(source.New("", ""))
}

// RegisterInfo is one entry of ParserData's register table.
type RegisterInfo struct {
	Name    string
	Initial int64
}

// SymbolInfo is one entry of ParserData's per-symbol metadata table (spec
// §3's ParserData section).
type SymbolInfo struct {
	Num           int
	Name          string
	IsTerminal    bool
	IsNonterminal bool
	IsScanned     bool
	IsIgnored     bool
	LexemeNeeded  bool
}

// RuleInfo is one entry of ParserData's per-rule metadata: just enough of
// grammar.Rule's shape (LHS/RHS symbol numbers) to let Decode reconstruct a
// skeleton grammar and re-derive the LR table deterministically, without
// persisting the table itself.
type RuleInfo struct {
	Num    int
	LHSNum int
	RHS    []int // symbol Nums, in order; empty for an epsilon rule
}

// ParserData is the serializable runtime artifact (spec §3): everything the
// VM needs to scan and parse a source buffer, independent of the grammar
// object that produced it.
type ParserData struct {
	KindNames map[int32]string

	Registers []RegisterInfo
	ASTSlots  int
	Strings   []string

	Instructions []ic.FlatInstruction
	Operands     []ic.Operand

	Symbols []SymbolInfo
	Rules   []RuleInfo

	StartRuleNum  int
	ScanEntryPC   int
	ErrorRecovery bool
	ReduceEntry   map[int]int   // rule Num -> pc
	TokenAction   map[int]int   // terminal Num -> action pc (terminals sharing the no-op action have no entry)
	TerminalKind  map[int]int32 // terminal Num -> ast.Kind of the leaf the scanner produces for it

	// table is rebuilt from Symbols/Rules on first use rather than
	// serialized; see Table().
	table *lr.Table
}

// NewParserData assembles a ParserData from one generation pass's outputs. g
// and km are consulted only here, at "freeze" time (spec §4.8's
// GrammarGood state); everything the VM subsequently needs is copied into
// plain data.
func NewParserData(prog *ic.Program, g *grammar.Grammar, km *ast.KindMap) *ParserData {
	pd := &ParserData{
		KindNames:    map[int32]string{},
		ASTSlots:     prog.ASTSlots,
		Strings:      prog.Strings,
		Instructions: prog.Instructions,
		Operands:     prog.Operands,
		ReduceEntry:  map[int]int{},
		TokenAction:  map[int]int{},
		TerminalKind: map[int]int32{},
	}

	for _, sym := range g.Symbols() {
		if sym == nil {
			continue
		}
		pd.Symbols = append(pd.Symbols, SymbolInfo{
			Num:           sym.Num,
			Name:          sym.Name,
			IsTerminal:    sym.IsTerminal,
			IsNonterminal: sym.IsNonterminal,
			IsScanned:     sym.IsScanned,
			IsIgnored:     sym.IsIgnored,
			LexemeNeeded:  sym.LexemeNeeded,
		})
		if pc, ok := prog.ExternLabels["tokenaction:"+itoa(sym.Num)]; ok {
			pd.TokenAction[sym.Num] = pc
		}
		if sym.IsTerminal {
			// Registered here (rather than left to whichever former first
			// names the terminal) so every scanned leaf's Kind is stable
			// and assigned exactly once per terminal.
			pd.TerminalKind[sym.Num] = int32(km.Get(sym.Name))
		}
	}

	for _, r := range g.Rules() {
		rhs := make([]int, len(r.RHS))
		for i, s := range r.RHS {
			rhs[i] = s.Num
		}
		pd.Rules = append(pd.Rules, RuleInfo{Num: r.Num, LHSNum: r.LHS.Num, RHS: rhs})
		if pc, ok := prog.ExternLabels["reduce:"+itoa(r.Num)]; ok {
			pd.ReduceEntry[r.Num] = pc
		}
	}

	for _, reg := range prog.Registers {
		pd.Registers = append(pd.Registers, RegisterInfo{Name: reg.Name, Initial: reg.Initial})
	}

	if g.StartRule != nil {
		pd.StartRuleNum = g.StartRule.Num
	}
	pd.ScanEntryPC = prog.ExternLabels["scan"]
	pd.ErrorRecovery = g.Options.ErrorRecovery

	for k, name := range km.All() {
		pd.KindNames[int32(k)] = name
	}

	pd.table = lr.Build(pd.rebuildGrammar(), newDiscardSink(), g.Options.Conflicts > 0)
	return pd
}

// Table lazily (re)builds the SLR(1) ACTION/GOTO table from the rule/symbol
// metadata, caching it. Decode populates a ParserData without ever running
// the generator pipeline, so the table must be reconstructible from data
// alone (spec's ParserData section lists no separate table section; its
// per-rule/per-symbol metadata is exactly the grammar skeleton lr.Build
// needs).
func (pd *ParserData) Table() *lr.Table {
	if pd.table == nil {
		pd.table = lr.Build(pd.rebuildGrammar(), newDiscardSink(), false)
	}
	return pd.table
}

// rebuildGrammar reconstructs just enough of a grammar.Grammar (symbols and
// rules, in their original Num order) for lr.Build to reproduce the same
// table it would have built from the original grammar object.
func (pd *ParserData) rebuildGrammar() *grammar.Grammar {
	g := grammar.New()
	bySym := map[int]*grammar.Symbol{}
	for _, s := range g.Symbols() {
		bySym[s.Num] = s
	}
	for _, info := range pd.Symbols {
		if _, ok := bySym[info.Num]; ok {
			continue // predefined symbol (epsilon/error/eof/accept), already present
		}
		var sym *grammar.Symbol
		if info.IsTerminal {
			sym = grammar.NewTerminal(info.Num, info.Name)
		} else {
			sym = grammar.NewNonterminal(info.Num, info.Name)
		}
		bySym[info.Num] = sym
		g.DefineSymbol(sym)
	}

	for _, r := range pd.Rules {
		lhs := bySym[r.LHSNum]
		rhs := make([]*grammar.Symbol, len(r.RHS))
		for i, num := range r.RHS {
			rhs[i] = bySym[num]
		}
		rule := &grammar.Rule{Num: r.Num, LHS: lhs, RHS: rhs}
		g.DefineRule(rule, r.Num == pd.StartRuleNum)
	}
	return g
}

// symbolNum returns the stable Num of the symbol named name, or -1 if no
// such symbol is recorded.
func (pd *ParserData) symbolNum(name string) int {
	for _, s := range pd.Symbols {
		if s.Name == name {
			return s.Num
		}
	}
	return -1
}

// ruleInfo returns the metadata for the rule numbered ruleNum, or nil if
// none is recorded (should not happen for any rule the table can reduce
// by).
func (pd *ParserData) ruleInfo(ruleNum int) *RuleInfo {
	for i := range pd.Rules {
		if pd.Rules[i].Num == ruleNum {
			return &pd.Rules[i]
		}
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
