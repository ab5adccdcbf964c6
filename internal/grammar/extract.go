package grammar

import (
	"fmt"
	"strconv"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
)

// handler is one entry of the table-driven dispatch used throughout C4, C6,
// C7 and C8 (spec §9: "Table-driven dispatch by AST kind ... maps to a
// fixed-size array indexed by kind discriminant"). Go has no fixed-size
// array indexed by an arbitrary int32 discriminant that stays cheap to
// extend, so extraction keeps its table as a map[ast.Kind]handler;
// internal/action, internal/reduce and internal/scanner dispatch with a
// switch on the kind instead.
type handler func(x *extractor, n *ast.Node)

type extractor struct {
	g      *Grammar
	sink   *diag.Sink
	auxSeq map[string]int // per-base-name counter for EBNF-desugared auxiliary nonterminals
}

var extractDispatch = map[ast.Kind]handler{
	KindOptionsSection: extractOptionsSection,
	KindTokensSection:  extractTokensSection,
	KindRulesSection:   extractRulesSection,
}

// Extract walks root (the grammar-description AST) once, populating and
// returning a fresh Grammar. Diagnostics are recorded in sink; duplicate
// options/tokens are non-fatal (spec §4.1) and extraction continues.
func Extract(root *ast.Node, sink *diag.Sink) *Grammar {
	x := &extractor{g: New(), sink: sink, auxSeq: map[string]int{}}
	for _, child := range root.Children {
		if h, ok := extractDispatch[child.Kind]; ok {
			h(x, child)
		} else {
			x.sink.Reportf(diag.Syntax, child.Location, "unexpected top-level grammar section (kind %d)", child.Kind)
		}
	}
	return x.g
}

func extractOptionsSection(x *extractor, n *ast.Node) {
	seen := map[string]bool{}
	for _, opt := range n.Children {
		if opt.Kind != KindOption {
			continue
		}
		name := opt.Lexeme
		if seen[name] {
			x.sink.Reportf(diag.DupGrammarOption, opt.Location, "duplicate grammar option %q", name)
			continue
		}
		seen[name] = true
		applyGrammarOption(x, opt)
	}
}

func applyGrammarOption(x *extractor, opt *ast.Node) {
	var val *ast.Node
	if len(opt.Children) > 0 {
		val = opt.Children[0]
	}
	switch opt.Lexeme {
	case "lookaheads":
		x.g.Options.Lookaheads = intLiteral(val)
	case "conflicts":
		x.g.Options.Conflicts = intLiteral(val)
	case "error_recovery":
		x.g.Options.ErrorRecovery = boolLiteral(val)
	case "keep_whitespace":
		x.g.Options.KeepWhitespace = boolLiteral(val)
	case "case_sensitive":
		x.g.Options.CaseSensitive = boolLiteral(val)
	default:
		x.sink.Reportf(diag.DupGrammarOption, opt.Location, "unknown grammar option %q", opt.Lexeme)
	}
}

func intLiteral(n *ast.Node) int {
	if n == nil {
		return 0
	}
	v, err := strconv.Atoi(n.Lexeme)
	if err != nil {
		return 0
	}
	return v
}

func boolLiteral(n *ast.Node) bool {
	if n == nil {
		return true
	}
	return n.Lexeme == "true" || n.Lexeme == "1"
}

func extractTokensSection(x *extractor, n *ast.Node) {
	for _, tok := range n.Children {
		if tok.Kind != KindTokenDecl {
			continue
		}
		extractTokenDecl(x, tok)
	}
}

func extractTokenDecl(x *extractor, tok *ast.Node) {
	name := tok.Lexeme
	existing, existed := x.g.symbolsByName[name]
	if existed && existing.IsScanned && !existing.IsASTSynthesized {
		x.sink.Reportf(diag.DupToken, tok.Location, "token %q already declared", name)
	}
	sym := x.g.GetOrCreateTerminal(name)
	if sym.IsNonterminal {
		// A rule referenced this name before its declaration was seen.
		sym.IsNonterminal = false
		sym.IsTerminal = true
		sym.Precedence = DefaultPrecedence
	}
	sym.IsScanned = true
	sym.IsASTSynthesized = false

	seenOpts := map[string]bool{}
	for _, opt := range tok.Children {
		if opt.Kind != KindTokenOption {
			continue
		}
		if seenOpts[opt.Lexeme] {
			x.sink.Reportf(diag.DupTokenOption, opt.Location, "duplicate option %q on token %q", opt.Lexeme, name)
			continue
		}
		seenOpts[opt.Lexeme] = true
		applyTokenOption(x, sym, opt)
	}
}

func applyTokenOption(x *extractor, sym *Symbol, opt *ast.Node) {
	var val *ast.Node
	if len(opt.Children) > 0 {
		val = opt.Children[0]
	}
	switch opt.Lexeme {
	case "regex":
		sym.RegexAST = val
	case "precedence":
		sym.Precedence = intLiteral(val)
	case "action":
		sym.ActionAST = val
	case "guard":
		sym.Guard = val
	case "lexeme":
		sym.LexemeNeeded = boolLiteral(val)
	case "ignore":
		sym.IsIgnored = true
	case "error":
		sym.IsError = true
		if val != nil {
			sym.ErrorMessage = val.Lexeme
		}
	case "description", "template":
		// documentation-only; no model effect.
	default:
		x.sink.Reportf(diag.DupTokenOption, opt.Location, "unknown token option %q", opt.Lexeme)
	}
}

func extractRulesSection(x *extractor, n *ast.Node) {
	for _, rd := range n.Children {
		if rd.Kind != KindRuleDecl {
			continue
		}
		lhs := x.g.GetOrCreateNonterminal(rd.Lexeme)
		for _, alt := range rd.Children {
			switch alt.Kind {
			case KindAlt:
				extractAlt(x, lhs, alt)
			case KindRulePrecedenceList:
				extractRulePrecedenceList(x, lhs, alt)
			}
		}
	}
}

// extractAlt desugars one rule alternative's rhs (expanding EBNF operators
// into auxiliary nonterminals, spec §4.1) and appends the resulting rule to
// the grammar, returning it so a caller such as
// extractRulePrecedenceSpec can stamp it with precedence metadata.
func extractAlt(x *extractor, lhs *Symbol, alt *ast.Node) *Rule {
	var rhs []*Symbol
	var former, guard *ast.Node
	first := x.g.StartRule == nil

	for _, item := range alt.Children {
		switch item.Kind {
		case KindFormer:
			// item wraps the actual former root (a reduce.KindBuild tree)
			// as its one child, same "one child = value" shape KindOption
			// uses; reduce.GenerateRule rejects anything but KindBuild at
			// its root, so the wrapper itself must never reach it.
			if len(item.Children) > 0 {
				former = item.Children[0]
			}
		case KindGuard:
			// Same unwrapping as KindFormer: item's one child is the
			// actual action-statement root action.Generator.Statement
			// expects.
			if len(item.Children) > 0 {
				guard = item.Children[0]
			}
		default:
			rhs = append(rhs, extractRHSItem(x, lhs.Name, item))
		}
	}

	r := x.g.AddRule(lhs, rhs)
	if first {
		// Desugaring the rhs above may already have added auxiliary rules;
		// the start rule is still the first rule the grammar declares.
		x.g.StartRule = r
	}
	r.ASTFormerAST = former
	r.ActionAST = guard
	r.Location = alt.Location
	return r
}

// extractRulePrecedenceList desugars one `::^` operator-precedence block
// (spec §4.1) attached to lhs. Each KindRulePrecedenceSpec child names one
// precedence level, specs given lowest-to-highest in declaration order
// (classic yacc-style %left/%right table order, later binds tighter); every
// KindAlt nested under a spec becomes an ordinary rule for lhs, same as
// extractAlt produces directly, plus the level's precedence and
// associativity instead of an auxiliary nonterminal.
func extractRulePrecedenceList(x *extractor, lhs *Symbol, list *ast.Node) {
	level := 0
	for _, spec := range list.Children {
		if spec.Kind != KindRulePrecedenceSpec {
			continue
		}
		level++
		extractRulePrecedenceSpec(x, lhs, spec, level)
	}
}

// extractRulePrecedenceSpec handles one level of a precedence block: an
// optional leading KindRuleLeftAssoc/KindRuleRightAssoc direction marker,
// then the KindAlt alternatives that belong to this level.
func extractRulePrecedenceSpec(x *extractor, lhs *Symbol, spec *ast.Node, level int) {
	assoc := AssocNone
	items := spec.Children
	if len(items) > 0 {
		switch items[0].Kind {
		case KindRuleLeftAssoc:
			assoc = AssocLeft
			items = items[1:]
		case KindRuleRightAssoc:
			assoc = AssocRight
			items = items[1:]
		}
	}
	for _, alt := range items {
		if alt.Kind != KindAlt {
			continue
		}
		r := extractAlt(x, lhs, alt)
		r.Precedence = level
		r.Assoc = assoc
	}
}

// extractRHSItem resolves (or synthesizes) a single rhs symbol, desugaring
// EBNF operators into an auxiliary nonterminal named "<base>:<n>" (spec
// §4.1) whose own rules are appended to the grammar immediately.
func extractRHSItem(x *extractor, base string, item *ast.Node) *Symbol {
	switch item.Kind {
	case KindSymbolRef:
		if sym := x.g.Symbol(item.Lexeme); sym != nil {
			return sym
		}
		// Reference resolution can't yet tell terminal from nonterminal
		// without seeing a declaration; default to nonterminal and let the
		// editor's "undefined nonterminal" pass catch true errors (spec
		// §4.2). A later token declaration for the same name promotes it.
		return x.g.GetOrCreateNonterminal(item.Lexeme)

	case KindLiteral:
		return x.literalTerminal(item)

	case KindEBNFOpt:
		return x.desugarOpt(base, item)
	case KindEBNFStar:
		return x.desugarStar(base, item)
	case KindEBNFPlus:
		return x.desugarPlus(base, item)
	case KindEBNFGroup:
		return x.desugarGroup(base, item)

	default:
		x.sink.Reportf(diag.Syntax, item.Location, "unexpected rhs item kind %d", item.Kind)
		return x.g.Symbol(ErrorName)
	}
}

// literalTerminal returns the terminal for a literal string appearing
// directly in a rule rhs, synthesizing one with a regex matching it verbatim
// if no explicit declaration exists yet (spec §4.1).
func (x *extractor) literalTerminal(item *ast.Node) *Symbol {
	name := "\"" + item.Lexeme + "\""
	if sym := x.g.Symbol(name); sym != nil {
		return sym
	}
	sym := x.g.GetOrCreateTerminal(name)
	sym.IsScanned = true
	sym.IsASTSynthesized = true
	sym.Precedence = DefaultPrecedence
	sym.RegexAST = literalRegexAST(item.Lexeme, item.Location)
	return sym
}

// literalRegexAST builds a regex AST matching lit verbatim: a chain of
// single-character matches. Uses the scanner generator's own regex Kind
// values so the synthesized tree is indistinguishable from a hand-written
// one (spec §4.6's NFA builder walks Char/Concat the same way either way).
func literalRegexAST(lit string, loc int64) *ast.Node {
	runes := []rune(lit)
	if len(runes) == 0 {
		return &ast.Node{Kind: regexKindEpsilon, Location: loc}
	}
	var n *ast.Node
	for _, r := range runes {
		ch := &ast.Node{Kind: regexKindChar, Lexeme: string(r), Location: loc}
		if n == nil {
			n = ch
		} else {
			n = &ast.Node{Kind: regexKindConcat, Location: loc, Children: []*ast.Node{n, ch}}
		}
	}
	return n
}

func (x *extractor) nextAuxName(base string) string {
	x.auxSeq[base]++
	return fmt.Sprintf("%s:%d", base, x.auxSeq[base])
}

// desugarOpt expands "item?" into an auxiliary nonterminal with two rules:
// one deriving item, one deriving epsilon (spec §4.1).
func (x *extractor) desugarOpt(base string, item *ast.Node) *Symbol {
	auxName := x.nextAuxName(base)
	aux := x.g.GetOrCreateNonterminal(auxName)
	inner := extractRHSItem(x, base, item.Children[0])
	x.g.AddRule(aux, []*Symbol{inner})
	x.g.AddRule(aux, nil)
	return aux
}

// recurListFormer builds the former for an EBNF list aux's recursive rule
// "aux -> aux inner": splice rhs 1's already-flattened children (by
// induction, every aux node holds a flat list) and append rhs 2 as one more
// child, so the list stays flat at every nesting depth instead of growing a
// left-recursive chain of 2-child aux nodes (spec §8 scenario 2/6's "$1._"
// former needs to see every element, not just the outermost one).
func recurListFormer(auxName string) *ast.Node {
	return &ast.Node{Kind: formerKindBuild, Lexeme: auxName, Children: []*ast.Node{
		{Kind: formerKindChildAll, Lexeme: "1"},
		{Kind: formerKindChildRef, Lexeme: "2"},
	}}
}

// baseListFormer builds the former for an EBNF list aux's one-element base
// rule "aux -> inner": a flat list of exactly that one child.
func baseListFormer(auxName string) *ast.Node {
	return &ast.Node{Kind: formerKindBuild, Lexeme: auxName, Children: []*ast.Node{
		{Kind: formerKindChildRef, Lexeme: "1"},
	}}
}

// Former node kinds used by recurListFormer and baseListFormer. They hold
// the same values as internal/reduce's KindBuild, KindChildRef and
// KindChildAll, which this package cannot import (reduce imports grammar).
const (
	formerKindBuild    ast.Kind = 5120
	formerKindChildRef ast.Kind = 5121
	formerKindChildAll ast.Kind = 5123
)

// desugarStar expands "item*" into an auxiliary nonterminal that is either
// empty or itself followed by one more item (left-recursive, matching the
// teacher's LALR-friendly desugaring style); its former keeps the resulting
// node a flat list regardless of recursion depth (see recurListFormer).
func (x *extractor) desugarStar(base string, item *ast.Node) *Symbol {
	auxName := x.nextAuxName(base)
	aux := x.g.GetOrCreateNonterminal(auxName)
	inner := extractRHSItem(x, base, item.Children[0])
	x.g.AddRule(aux, []*Symbol{aux, inner}).ASTFormerAST = recurListFormer(auxName)
	x.g.AddRule(aux, nil)
	return aux
}

// desugarPlus expands "item+" into an auxiliary nonterminal requiring at
// least one occurrence; see recurListFormer for why its rules carry explicit
// formers instead of the default shape.
func (x *extractor) desugarPlus(base string, item *ast.Node) *Symbol {
	auxName := x.nextAuxName(base)
	aux := x.g.GetOrCreateNonterminal(auxName)
	inner := extractRHSItem(x, base, item.Children[0])
	x.g.AddRule(aux, []*Symbol{aux, inner}).ASTFormerAST = recurListFormer(auxName)
	x.g.AddRule(aux, []*Symbol{inner}).ASTFormerAST = baseListFormer(auxName)
	return aux
}

// desugarGroup expands "(alt1 | alt2 | ...)" into an auxiliary nonterminal
// with one rule per alternative.
func (x *extractor) desugarGroup(base string, group *ast.Node) *Symbol {
	auxName := x.nextAuxName(base)
	aux := x.g.GetOrCreateNonterminal(auxName)
	for _, alt := range group.Children {
		var rhs []*Symbol
		for _, item := range alt.Children {
			if item.Kind == KindFormer || item.Kind == KindGuard {
				continue
			}
			rhs = append(rhs, extractRHSItem(x, base, item))
		}
		x.g.AddRule(aux, rhs)
	}
	return aux
}
