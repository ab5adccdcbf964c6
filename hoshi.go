// Package hoshi is the parser facade (spec component C11): a state machine
// that turns a grammar-description AST into a ParserData artifact (generate,
// encode, decode) and drives that artifact against source text (parse),
// refusing any call that is not legal in the current state.
//
// Grounded structurally on _examples/original_source/cpp/libsrc/Generator.H
// (the Invalid -> KindMapGood -> GrammarGood|GrammarBad -> SourceGood|SourceBad
// state progression spec §4.8 describes) and, for the Go idiom of a typed
// illegal-state error distinct from domain diagnostics, on the split the
// teacher keeps between server/serr.Error (programming-style) and in-game
// user-facing messages.
package hoshi

import (
	"errors"
	"fmt"

	"github.com/calderwood/hoshi/internal/action"
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/calderwood/hoshi/internal/grammar/editor"
	"github.com/calderwood/hoshi/internal/ic"
	"github.com/calderwood/hoshi/internal/reduce"
	"github.com/calderwood/hoshi/internal/scanner"
	"github.com/calderwood/hoshi/internal/source"
	"github.com/calderwood/hoshi/internal/vm"
)

// state is the facade's position in the spec §4.8 state machine.
type state int

const (
	stateInvalid state = iota
	stateGrammarGood
	stateGrammarBad
	stateSourceGood
	stateSourceBad
)

// Sentinel causes for LogicError, checkable with errors.Is. These mark a
// caller mistake (an illegal state transition, a corrupt blob) rather than a
// domain diagnostic (a malformed grammar or source file), which is reported
// through a Sink instead.
var (
	ErrWrongState  = errors.New("hoshi: operation not legal in the current state")
	ErrCorruptBlob = errors.New("hoshi: corrupt ParserData blob")
)

// LogicError wraps one of the sentinels above with the detail of what was
// attempted, so callers can both errors.Is it and print something useful.
type LogicError struct {
	cause error
	detail string
}

func (e *LogicError) Error() string {
	if e.detail == "" {
		return e.cause.Error()
	}
	return e.cause.Error() + ": " + e.detail
}

func (e *LogicError) Unwrap() error { return e.cause }

func wrongState(detail string) error {
	return &LogicError{cause: ErrWrongState, detail: detail}
}

// Generator is the facade. The zero value is ready to use (state Invalid).
type Generator struct {
	st state

	km      *ast.KindMap
	g       *grammar.Grammar
	pd      *vm.ParserData
	sink    *diag.Sink
	builder *ic.Builder

	lastAST  *ast.Node
	lastBuf  *source.Buffer
	lastSink *diag.Sink
}

// New returns an unused Generator.
func New() *Generator {
	return &Generator{st: stateInvalid}
}

// Generate walks root (a grammar-description AST — see internal/grammar's
// Extract; producing that AST from textual grammar source is out of this
// facade's scope, per spec §1) through extraction, editing, and full IC
// generation for every component (C4 through C8), then freezes the result
// into a ParserData (spec §4.8's GrammarGood state).
//
// It is legal from any state; a prior artifact is discarded before anything
// else runs. Generate always returns a Sink (even on failure, so callers can
// render why), and its error is always nil: a grammar that fails shows up as
// error-severity diagnostics in the Sink and leaves the facade in GrammarBad.
func (gen *Generator) Generate(root *ast.Node) (*diag.Sink, error) {
	gen.km, gen.g, gen.pd, gen.builder = nil, nil, nil, nil
	sink := diag.NewSink(source.New("", ""))

	g := grammar.Extract(root, sink)
	if sink.HasErrors() {
		gen.st = stateGrammarBad
		gen.sink = sink
		return sink, nil
	}

	if ok := editor.Run(g, sink); !ok {
		gen.st = stateGrammarBad
		gen.sink = sink
		return sink, nil
	}

	km := ast.NewKindMap()
	registerReservedKinds(g, km)

	b := ic.NewBuilder()
	ag := action.New(b)
	rg := reduce.New(b, km, sink)

	scanner.Generate(b, g, ag, map[string]*ast.Node{}, sink)
	rg.Generate(g)

	if sink.HasErrors() {
		gen.st = stateGrammarBad
		gen.sink = sink
		return sink, nil
	}

	b.Optimize()
	prog := b.Generate()

	gen.km = km
	gen.g = g
	gen.pd = vm.NewParserData(prog, g, km)
	gen.sink = sink
	gen.builder = b
	gen.st = stateGrammarGood
	return sink, nil
}

// Disassemble renders the optimized, pre-layout IC for the most recent
// Generate call as text (cmd/hoshigen's -dump-ic flag). Unavailable after
// Decode, since no Builder exists for an artifact loaded from a blob.
func (gen *Generator) Disassemble() (string, error) {
	if gen.builder == nil {
		return "", wrongState("Disassemble called with no Builder (artifact came from Decode, or Generate has not run)")
	}
	return gen.builder.Disassemble(), nil
}

// registerReservedKinds assigns one reserved ast.Kind per nonterminal and
// per AST-synthesized (literal) terminal, using the symbol's own stable Num
// as the kind value — deterministic and independent of former-generation
// order. Generate calls it after extraction and editing and before any
// former is generated, so every reserved kind is in place before a former
// names a kind explicitly.
func registerReservedKinds(g *grammar.Grammar, km *ast.KindMap) {
	for _, sym := range g.Symbols() {
		if sym == nil {
			continue
		}
		if sym.IsNonterminal || sym.IsASTSynthesized {
			km.RegisterReserved(sym.Name, ast.Kind(sym.Num))
		}
	}
}

// Parse runs the frozen ParserData against src (spec §4.8's SourceGood /
// SourceBad transition). Legal only once Generate has produced a
// diagnostic-free artifact, or Decode has loaded one.
func (gen *Generator) Parse(name, src string) (*ast.Node, *diag.Sink, error) {
	if gen.st != stateGrammarGood && gen.st != stateSourceGood && gen.st != stateSourceBad {
		return nil, nil, wrongState("Parse called before a grammar was generated or decoded")
	}

	buf := source.New(name, src)
	sink := diag.NewSink(buf)
	m := vm.New(gen.pd)

	root := m.Parse(buf, sink)
	gen.lastAST = root
	gen.lastBuf = buf
	gen.lastSink = sink

	if root == nil || sink.HasErrors() {
		gen.st = stateSourceBad
	} else {
		gen.st = stateSourceGood
	}
	return root, sink, nil
}

// Encode serializes the current ParserData to the opaque text blob format
// (spec §6). Legal only once a diagnostic-free artifact exists.
func (gen *Generator) Encode() (string, error) {
	if gen.pd == nil {
		return "", wrongState("Encode called with no generated or decoded ParserData")
	}
	return gen.pd.Encode(), nil
}

// Decode loads a previously-encoded blob, skipping straight to GrammarGood
// without re-running extraction/generation. Legal from any state.
func (gen *Generator) Decode(blob string) error {
	pd, err := vm.Decode(blob)
	if err != nil {
		return &LogicError{cause: ErrCorruptBlob, detail: err.Error()}
	}
	gen.pd = pd
	gen.km = nil
	gen.g = nil
	gen.sink = nil
	gen.builder = nil
	gen.st = stateGrammarGood
	return nil
}

// Diagnostics returns the sink from the most recent Generate call, or nil if
// Generate has never run or Decode has run since (the artifact came from a
// blob).
func (gen *Generator) Diagnostics() *diag.Sink {
	return gen.sink
}

// LastParseDiagnostics returns the sink from the most recent Parse call.
func (gen *Generator) LastParseDiagnostics() *diag.Sink {
	return gen.lastSink
}

// Ready reports whether the facade holds a usable (diagnostic-free)
// ParserData, i.e. Parse/Encode are legal to call.
func (gen *Generator) Ready() bool {
	return gen.pd != nil && (gen.st == stateGrammarGood || gen.st == stateSourceGood || gen.st == stateSourceBad)
}

// KindName returns the name registered for an ast.Kind in the current
// artifact, or "" if unknown. Useful for rendering a parsed tree back to a
// human without the caller needing its own copy of the kind map.
func (gen *Generator) KindName(k ast.Kind) string {
	if gen.pd == nil {
		return ""
	}
	return gen.pd.KindNames[int32(k)]
}

// String renders the facade's state for debugging.
func (gen *Generator) String() string {
	names := map[state]string{
		stateInvalid:     "Invalid",
		stateGrammarGood: "GrammarGood",
		stateGrammarBad:  "GrammarBad",
		stateSourceGood:  "SourceGood",
		stateSourceBad:   "SourceBad",
	}
	return fmt.Sprintf("hoshi.Generator{state: %s}", names[gen.st])
}
