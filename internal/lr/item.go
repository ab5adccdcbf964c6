package lr

import (
	"sort"
	"strconv"

	"github.com/calderwood/hoshi/internal/grammar"
)

// item is one LR(0) item: the dot's position (0..len(RHS)) within one rule.
// ruleNum is -1 for the synthetic augmenting rule S' -> StartSymbol, whose
// RHS is exactly one symbol (the grammar's real start symbol); every other
// method on Table treats ruleNum -1 as that single-symbol production.
type item struct {
	ruleNum int
	dot     int
}

// ruleByNum looks a rule up by its stable Num rather than by slice index,
// since Grammar.RemoveRule compacts the rule list without renumbering
// survivors.
func (t *Table) ruleByNum(ruleNum int) *grammar.Rule {
	for _, r := range t.g.Rules() {
		if r.Num == ruleNum {
			return r
		}
	}
	return nil
}

func (t *Table) ruleRHS(ruleNum int) []*grammar.Symbol {
	if ruleNum == augmentRule {
		return []*grammar.Symbol{t.g.StartRule.LHS}
	}
	return t.ruleByNum(ruleNum).RHS
}

const augmentRule = -1

// itemKey gives a deterministic, comparable key for an item, for use as a
// map key and for building the stable setKey of an item set.
func itemKey(it item) string {
	return strconv.Itoa(it.ruleNum) + ":" + strconv.Itoa(it.dot)
}

// dotSymbol returns the symbol immediately after the dot, or nil if the dot
// is at the end of the production.
func (t *Table) dotSymbol(it item) *grammar.Symbol {
	rhs := t.ruleRHS(it.ruleNum)
	if it.dot >= len(rhs) {
		return nil
	}
	return rhs[it.dot]
}

// closure computes the closure of a seed set of items: for every item with
// the dot before a nonterminal B, add (rule, 0) for every rule with LHS B,
// to a fixpoint (spec-free textbook LR(0) closure; see slr.go's Build).
func (t *Table) closure(seed []item) []item {
	seen := map[string]item{}
	var work []item
	add := func(it item) {
		k := itemKey(it)
		if _, ok := seen[k]; !ok {
			seen[k] = it
			work = append(work, it)
		}
	}
	for _, it := range seed {
		add(it)
	}
	for i := 0; i < len(work); i++ {
		sym := t.dotSymbol(work[i])
		if sym == nil || !sym.IsNonterminal {
			continue
		}
		for _, r := range t.g.RulesFor(sym) {
			add(item{ruleNum: r.Num, dot: 0})
		}
	}
	out := make([]item, 0, len(seen))
	for _, it := range seen {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ruleNum != out[j].ruleNum {
			return out[i].ruleNum < out[j].ruleNum
		}
		return out[i].dot < out[j].dot
	})
	return out
}

// gotoSet advances every item in items whose dot-symbol is sym, then takes
// the closure of the result (textbook GOTO).
func (t *Table) gotoSet(items []item, sym *grammar.Symbol) []item {
	var moved []item
	for _, it := range items {
		if t.dotSymbol(it) == sym {
			moved = append(moved, item{ruleNum: it.ruleNum, dot: it.dot + 1})
		}
	}
	if len(moved) == 0 {
		return nil
	}
	return t.closure(moved)
}

func setKey(items []item) string {
	var b []byte
	for _, it := range items {
		b = append(b, []byte(itemKey(it))...)
		b = append(b, '|')
	}
	return string(b)
}
