package reduce

import (
	"strconv"
	"strings"

	"github.com/calderwood/hoshi/internal/action"
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/ic"
)

// Generator translates grammar rules into reduce-entry IC (spec §4.5): one
// extern label per rule, building the rule's AST node from its former (or a
// default shape if none is given) and then running its guard.
type Generator struct {
	B      *ic.Builder
	KM     *ast.KindMap
	Sink   *diag.Sink
	Action *action.Generator
}

func New(b *ic.Builder, km *ast.KindMap, sink *diag.Sink) *Generator {
	return &Generator{B: b, KM: km, Sink: sink, Action: action.New(b)}
}

// Entries maps a rule's Num to the extern label of its reduce entry.
type Entries map[int]*ic.Label

// Generate emits a reduce entry for every rule in g.
func (gen *Generator) Generate(g *grammar.Grammar) Entries {
	entries := make(Entries)
	for _, rule := range g.Rules() {
		entries[rule.Num] = gen.GenerateRule(rule)
	}
	return entries
}

// GenerateRule emits the five-step reduce-entry sequence of spec §4.5 for one
// rule and returns its extern label.
func (gen *Generator) GenerateRule(rule *grammar.Rule) *ic.Label {
	b := gen.B
	label := b.GetExternLabel("reduce:" + strconv.Itoa(rule.Num))
	rhsLen := len(rule.RHS)

	b.FreeAllASTs()
	base := b.GetTemporary()
	b.Emit(ic.AstStart, rule.Location, ic.RegisterOperand(base), ic.IntOperand(int64(rhsLen)))

	kindOp, locOp, lexOp := gen.buildRoot(rule, rhsLen)

	result := b.GetASTHandle()
	b.Emit(ic.AstForm, rule.Location, ic.ASTHandleOperand(result), ic.RegisterOperand(base), kindOp, locOp, lexOp)
	b.FreeTemporary(base)

	if rule.ActionAST != nil {
		gen.Action.Statement(rule.ActionAST)
	}

	b.Emit(ic.AstFinish, rule.Location, ic.IntOperand(int64(rhsLen)), ic.ASTHandleOperand(result))
	b.Emit(ic.Return, rule.Location)
	return label
}

// buildRoot walks rule's former (or synthesizes the default shape, one child
// per rhs symbol under the LHS's own kind, when the rule has none) and
// returns the operands for the rule's top-level AstForm.
func (gen *Generator) buildRoot(rule *grammar.Rule, rhsLen int) (kindOp, locOp, lexOp ic.Operand) {
	if rule.ASTFormerAST == nil {
		for i := 1; i <= rhsLen; i++ {
			gen.B.Emit(ic.AstPushChild, rule.Location, ic.ASTHandleOperand(rhsHandle(i)))
		}
		return ic.KindOperand(int32(gen.KM.Get(rule.LHS.Name))), ic.IntOperand(rule.Location), ic.StringOperand(gen.B.GetString(""))
	}

	root := rule.ASTFormerAST
	if root.Kind != KindBuild {
		gen.internalError("former root", root)
	}
	children, modifiers := splitItems(root.Children)
	for _, item := range children {
		gen.emitChildItem(item, rule.String(), rhsLen)
	}
	defaultKind := root.Lexeme
	if defaultKind == "" {
		defaultKind = rule.LHS.Name
	}
	kindOp, locOp, lexOp = gen.dataPhase(rule.String(), rule.Location, rhsLen, defaultKind, modifiers)
	return
}

func (gen *Generator) internalError(context string, n *ast.Node) {
	panic("reduce: no " + context + " handler for AST kind " + strconv.Itoa(int(n.Kind)) + " at offset " + strconv.FormatInt(n.Location, 10))
}

// splitItems separates a build node's items into children-phase items
// (pushed onto the AST work stack) and data-phase modifiers (%,@,&), per the
// two-phase walk of spec §4.5.
func splitItems(items []*ast.Node) (children, modifiers []*ast.Node) {
	for _, it := range items {
		switch it.Kind {
		case KindModKind, KindModLoc, KindModLex:
			modifiers = append(modifiers, it)
		default:
			children = append(children, it)
		}
	}
	return
}

// rhsHandle converts a 1-based rhs position into its preloaded AST handle
// (handles 0..rhsLen-1 hold the rule's rhs inputs, loaded by AstStart).
func rhsHandle(pos int) int { return pos - 1 }

// resolveRhsIndex parses a former index literal (1-based, negative counts
// from the end) against rhsLen, returning the 1-based position and whether
// it is in range.
func resolveRhsIndex(lexeme string, rhsLen int) (int, bool) {
	n, err := strconv.Atoi(lexeme)
	if err != nil {
		return 0, false
	}
	pos := n
	if n < 0 {
		pos = rhsLen + n + 1
	}
	return pos, pos >= 1 && pos <= rhsLen
}

func (gen *Generator) emitChildItem(item *ast.Node, ruleDesc string, rhsLen int) {
	switch item.Kind {
	case KindChildRef:
		pos, ok := resolveRhsIndex(item.Lexeme, rhsLen)
		if !ok {
			gen.Sink.Reportf(diag.AstIndex, item.Location, "former index $%s out of range for %d rhs symbols in %q", item.Lexeme, rhsLen, ruleDesc)
			return
		}
		gen.B.Emit(ic.AstPushChild, item.Location, ic.ASTHandleOperand(rhsHandle(pos)))
	case KindChildPath:
		handle, ok := gen.evalPath(item, ruleDesc, rhsLen)
		if ok {
			gen.B.Emit(ic.AstPushChild, item.Location, ic.ASTHandleOperand(handle))
		}
	case KindChildAll:
		gen.emitSpliceAll(item, ruleDesc, rhsLen)
	case KindChildSlice:
		gen.emitSlice(item, ruleDesc, rhsLen)
	case KindBuild:
		handle := gen.evalBuildNested(item, rhsLen)
		gen.B.Emit(ic.AstPushChild, item.Location, ic.ASTHandleOperand(handle))
	default:
		gen.internalError("former child item", item)
	}
}

// evalPath resolves "$n.m[.k...]" to a single handle via repeated AstNth
// descent; each segment after the first is a 1-based child index.
func (gen *Generator) evalPath(item *ast.Node, ruleDesc string, rhsLen int) (int, bool) {
	segments := strings.Split(item.Lexeme, ".")
	pos, ok := resolveRhsIndex(segments[0], rhsLen)
	if !ok {
		gen.Sink.Reportf(diag.AstIndex, item.Location, "former index $%s out of range for %d rhs symbols in %q", segments[0], rhsLen, ruleDesc)
		return 0, false
	}
	handle := rhsHandle(pos)
	for _, seg := range segments[1:] {
		idx, err := strconv.Atoi(seg)
		if err != nil {
			gen.internalError("former path segment", item)
		}
		dst := gen.B.GetASTHandle()
		gen.B.Emit(ic.AstNth, item.Location, ic.ASTHandleOperand(dst), ic.ASTHandleOperand(handle), ic.IntOperand(int64(idx-1)))
		handle = dst
	}
	return handle, true
}

// emitSlice handles "$first_last": both bounds are compile-time literals, so
// a single AstSlice pushes the whole range in one instruction.
func (gen *Generator) emitSlice(item *ast.Node, ruleDesc string, rhsLen int) {
	parts := strings.SplitN(item.Lexeme, "_", 2)
	if len(parts) != 2 {
		gen.internalError("former slice", item)
	}
	from, ok1 := resolveRhsIndex(parts[0], rhsLen)
	to, ok2 := resolveRhsIndex(parts[1], rhsLen)
	if !ok1 || !ok2 {
		gen.Sink.Reportf(diag.AstIndex, item.Location, "former slice $%s out of range for %d rhs symbols in %q", item.Lexeme, rhsLen, ruleDesc)
		return
	}
	gen.B.Emit(ic.AstSlice, item.Location, ic.IntOperand(int64(from)), ic.IntOperand(int64(to)))
}

// emitSpliceAll handles "$n._": the referenced input's child count is a
// runtime quantity, so this is the one former construct needing an emitted
// loop rather than compile-time unrolling.
func (gen *Generator) emitSpliceAll(item *ast.Node, ruleDesc string, rhsLen int) {
	pos, ok := resolveRhsIndex(item.Lexeme, rhsLen)
	if !ok {
		gen.Sink.Reportf(diag.AstIndex, item.Location, "former index $%s out of range for %d rhs symbols in %q", item.Lexeme, rhsLen, ruleDesc)
		return
	}
	src := rhsHandle(pos)
	b := gen.B
	count := b.GetTemporary()
	i := b.GetTemporary()
	b.Emit(ic.AstCount, item.Location, ic.RegisterOperand(count), ic.ASTHandleOperand(src))
	b.Emit(ic.Assign, item.Location, ic.RegisterOperand(i), ic.RegisterOperand(b.GetRegister("0", 0)))

	loop := b.GetLabel("")
	done := b.GetLabel("")
	b.EmitLabel(loop)
	b.Emit(ic.BranchGreaterEqual, item.Location, ic.LabelOperand(done), ic.RegisterOperand(i), ic.RegisterOperand(count))
	child := b.GetASTHandle()
	b.Emit(ic.AstNth, item.Location, ic.ASTHandleOperand(child), ic.ASTHandleOperand(src), ic.RegisterOperand(i))
	b.Emit(ic.AstPushChild, item.Location, ic.ASTHandleOperand(child))
	b.Emit(ic.Add, item.Location, ic.RegisterOperand(i), ic.RegisterOperand(i), ic.RegisterOperand(b.GetRegister("1", 1)))
	b.Emit(ic.Branch, item.Location, ic.LabelOperand(loop))
	b.EmitLabel(done)

	b.FreeTemporary(count)
	b.FreeTemporary(i)
}

// evalBuildNested evaluates a nested "(Kind, items...)" former as one child
// value: its own AstStart/AstForm pair, sharing the outer work stack but
// introducing no new rhs inputs of its own.
func (gen *Generator) evalBuildNested(item *ast.Node, rhsLen int) int {
	b := gen.B
	base := b.GetTemporary()
	b.Emit(ic.AstStart, item.Location, ic.RegisterOperand(base), ic.IntOperand(0))

	children, modifiers := splitItems(item.Children)
	for _, child := range children {
		gen.emitChildItem(child, "nested former", rhsLen)
	}
	kindOp, locOp, lexOp := gen.dataPhase("nested former", item.Location, rhsLen, item.Lexeme, modifiers)

	dst := b.GetASTHandle()
	b.Emit(ic.AstForm, item.Location, ic.ASTHandleOperand(dst), ic.RegisterOperand(base), kindOp, locOp, lexOp)
	b.FreeTemporary(base)
	return dst
}

// dataPhase computes the kind/location/lexeme operands for one AstForm call,
// applying the modifiers and defaulting per spec §4.5 ("if no kind is
// specified, the LHS symbol's name is registered as a kind and used").
// defaultKind is the enclosing rule's LHS name (root former) or the nested
// build's own literal kind name; it may be "" if a %expr modifier is
// expected to supply the kind instead.
func (gen *Generator) dataPhase(ruleDesc string, loc int64, rhsLen int, defaultKind string, modifiers []*ast.Node) (kindOp, locOp, lexOp ic.Operand) {
	if defaultKind != "" {
		kindOp = ic.KindOperand(int32(gen.KM.Get(defaultKind)))
	} else {
		kindOp = ic.KindOperand(int32(ast.Null))
	}
	locOp = ic.IntOperand(loc)
	lexOp = ic.StringOperand(gen.B.GetString(""))

	var kindSet, locSet, lexSet bool
	for _, m := range modifiers {
		switch m.Kind {
		case KindModKind:
			if kindSet {
				gen.Sink.Reportf(diag.DupAstItem, m.Location, "duplicate kind assignment in former for %q", ruleDesc)
				continue
			}
			kindSet = true
			if len(m.Children) == 0 {
				kindOp = ic.KindOperand(int32(gen.KM.Get(m.Lexeme)))
			} else if h, ok := gen.evalExprHandle(m.Children[0], ruleDesc, rhsLen); ok {
				kindOp = ic.ASTHandleOperand(h)
			}
		case KindModLoc:
			if locSet {
				gen.Sink.Reportf(diag.DupAstItem, m.Location, "duplicate location assignment in former for %q", ruleDesc)
				continue
			}
			locSet = true
			if len(m.Children) == 0 {
				n, err := strconv.ParseInt(m.Lexeme, 10, 64)
				if err != nil {
					gen.internalError("former location literal", m)
				}
				locOp = ic.IntOperand(n)
			} else if h, ok := gen.evalExprHandle(m.Children[0], ruleDesc, rhsLen); ok {
				locOp = ic.ASTHandleOperand(h)
			}
		case KindModLex:
			if lexSet {
				gen.Sink.Reportf(diag.DupAstItem, m.Location, "duplicate lexeme assignment in former for %q", ruleDesc)
				continue
			}
			lexSet = true
			if len(m.Children) == 0 {
				lexOp = ic.StringOperand(gen.B.GetString(m.Lexeme))
			} else if h, ok := gen.evalExprHandle(m.Children[0], ruleDesc, rhsLen); ok {
				lexOp = ic.ASTHandleOperand(h)
			}
		default:
			gen.internalError("former modifier", m)
		}
	}
	return
}

// evalExprHandle resolves a %/@/& modifier's expr operand (a $n reference,
// a $n.m path, or a nested former) to the handle it produces.
func (gen *Generator) evalExprHandle(expr *ast.Node, ruleDesc string, rhsLen int) (int, bool) {
	switch expr.Kind {
	case KindChildRef:
		pos, ok := resolveRhsIndex(expr.Lexeme, rhsLen)
		if !ok {
			gen.Sink.Reportf(diag.AstIndex, expr.Location, "former index $%s out of range for %d rhs symbols in %q", expr.Lexeme, rhsLen, ruleDesc)
			return 0, false
		}
		return rhsHandle(pos), true
	case KindChildPath:
		return gen.evalPath(expr, ruleDesc, rhsLen)
	case KindBuild:
		return gen.evalBuildNested(expr, rhsLen), true
	default:
		gen.internalError("former modifier expr", expr)
		return 0, false
	}
}
