package grammar

import "github.com/calderwood/hoshi/internal/collect"

// Options holds the global grammar options (spec §3).
type Options struct {
	Lookaheads     int
	Conflicts      int
	ErrorRecovery  bool
	KeepWhitespace bool
	CaseSensitive  bool
}

// DefaultOptions returns the options in force when a grammar does not
// override them.
func DefaultOptions() Options {
	return Options{
		Lookaheads:    1,
		ErrorRecovery: true,
		CaseSensitive: true,
	}
}

// Grammar owns the symbol table (by name), the ordered rule list, the start
// rule and the global options (spec §3).
type Grammar struct {
	Options Options

	symbolsByName map[string]*Symbol
	symbolsByNum  []*Symbol
	rules         []*Rule

	StartRule *Rule
}

// New returns a Grammar with the four predefined symbols already present
// (spec §3 invariant).
func New() *Grammar {
	g := &Grammar{
		Options:       DefaultOptions(),
		symbolsByName: map[string]*Symbol{},
	}
	g.addPredefined(EpsilonName, false, false)
	g.addPredefined(ErrorName, true, true)
	g.addPredefined(EOFName, true, false)
	g.addPredefined(AcceptName, false, false)
	return g
}

func (g *Grammar) addPredefined(name string, terminal, errSym bool) {
	sym := &Symbol{Num: len(g.symbolsByNum), Name: name}
	sym.IsTerminal = terminal
	sym.IsNonterminal = !terminal
	sym.IsError = errSym
	sym.IsScanned = terminal
	g.symbolsByNum = append(g.symbolsByNum, sym)
	g.symbolsByName[name] = sym
}

// Symbol returns the symbol named name, or nil if none exists.
func (g *Grammar) Symbol(name string) *Symbol {
	return g.symbolsByName[name]
}

// SymbolByNum returns the symbol with the given stable number.
func (g *Grammar) SymbolByNum(num int) *Symbol {
	if num < 0 || num >= len(g.symbolsByNum) {
		return nil
	}
	return g.symbolsByNum[num]
}

// Symbols returns every symbol in the grammar, in assignment order.
func (g *Grammar) Symbols() []*Symbol {
	return g.symbolsByNum
}

// GetOrCreateTerminal returns the terminal symbol named name, creating it
// (flagged is_terminal=true) if it does not yet exist (spec §4.1).
func (g *Grammar) GetOrCreateTerminal(name string) *Symbol {
	if sym, ok := g.symbolsByName[name]; ok {
		return sym
	}
	sym := NewTerminal(len(g.symbolsByNum), name)
	g.symbolsByNum = append(g.symbolsByNum, sym)
	g.symbolsByName[name] = sym
	return sym
}

// GetOrCreateNonterminal returns the nonterminal symbol named name, creating
// it if it does not yet exist.
func (g *Grammar) GetOrCreateNonterminal(name string) *Symbol {
	if sym, ok := g.symbolsByName[name]; ok {
		return sym
	}
	sym := NewNonterminal(len(g.symbolsByNum), name)
	g.symbolsByNum = append(g.symbolsByNum, sym)
	g.symbolsByName[name] = sym
	return sym
}

// AddRule appends a new rule to the grammar and returns it.
func (g *Grammar) AddRule(lhs *Symbol, rhs []*Symbol) *Rule {
	r := &Rule{Num: len(g.rules), LHS: lhs, RHS: rhs}
	g.rules = append(g.rules, r)
	if g.StartRule == nil {
		g.StartRule = r
	}
	return r
}

// DefineSymbol inserts sym at its own Num, growing the symbol table as
// needed. Used by internal/vm to reconstruct a grammar skeleton from
// ParserData's serialized per-symbol metadata, where exact Num values (not
// just names) must be preserved for a rebuilt LR table to match the
// original.
func (g *Grammar) DefineSymbol(sym *Symbol) {
	for len(g.symbolsByNum) <= sym.Num {
		g.symbolsByNum = append(g.symbolsByNum, nil)
	}
	g.symbolsByNum[sym.Num] = sym
	g.symbolsByName[sym.Name] = sym
}

// DefineRule appends r unconditionally (preserving whatever Num the caller
// set), optionally marking it the start rule. Used alongside DefineSymbol
// for grammar reconstruction from serialized metadata.
func (g *Grammar) DefineRule(r *Rule, isStart bool) {
	g.rules = append(g.rules, r)
	if isStart {
		g.StartRule = r
	}
}

// Rules returns every rule in the grammar, in definition order.
func (g *Grammar) Rules() []*Rule {
	return g.rules
}

// RemoveSymbol deletes a symbol discovered unused/unreachable by the editor
// (spec §4.2). It does not renumber remaining symbols; SymbolByNum on a
// removed slot returns nil.
func (g *Grammar) RemoveSymbol(sym *Symbol) {
	delete(g.symbolsByName, sym.Name)
	if sym.Num >= 0 && sym.Num < len(g.symbolsByNum) {
		g.symbolsByNum[sym.Num] = nil
	}
}

// RemoveRule deletes a rule discovered unreachable by the editor. Remaining
// rules keep their Num; the rule list is compacted.
func (g *Grammar) RemoveRule(r *Rule) {
	out := g.rules[:0]
	for _, existing := range g.rules {
		if existing != r {
			out = append(out, existing)
		}
	}
	g.rules = out
}

// Terminals returns every terminal symbol (excluding nil holes left by
// RemoveSymbol).
func (g *Grammar) Terminals() []*Symbol {
	var out []*Symbol
	for _, s := range g.symbolsByNum {
		if s != nil && s.IsTerminal {
			out = append(out, s)
		}
	}
	return out
}

// Nonterminals returns every nonterminal symbol.
func (g *Grammar) Nonterminals() []*Symbol {
	var out []*Symbol
	for _, s := range g.symbolsByNum {
		if s != nil && s.IsNonterminal {
			out = append(out, s)
		}
	}
	return out
}

// RulesFor returns every rule whose LHS is sym, in definition order.
func (g *Grammar) RulesFor(sym *Symbol) []*Rule {
	var out []*Rule
	for _, r := range g.rules {
		if r.LHS == sym {
			out = append(out, r)
		}
	}
	return out
}

// ReachableFromStart returns the set of nonterminal names reachable from the
// start rule's LHS via rule productions, used by the editor's unreachable-
// rule pass.
func (g *Grammar) ReachableFromStart() collect.StringSet {
	reached := collect.NewStringSet()
	if g.StartRule == nil {
		return reached
	}
	work := []string{g.StartRule.LHS.Name}
	reached.Add(g.StartRule.LHS.Name)
	for len(work) > 0 {
		name := work[len(work)-1]
		work = work[:len(work)-1]
		sym := g.Symbol(name)
		if sym == nil {
			continue
		}
		for _, r := range g.RulesFor(sym) {
			for _, s := range r.RHS {
				if s.IsNonterminal && !reached.Has(s.Name) {
					reached.Add(s.Name)
					work = append(work, s.Name)
				}
			}
		}
	}
	return reached
}
