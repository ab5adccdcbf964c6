// Package diag implements the diagnostics sink (spec component C1): a
// collector of typed, located diagnostics, classified by severity, with the
// sorting and rendering behavior spec'd in section 7.
//
// The sort order (unlocated first, then by offset, then by insertion order)
// and the fatal/nonfatal split follow Hoshi's ErrorHandler.cpp, which this
// package is grounded on, more closely than the distilled spec states.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/calderwood/hoshi/internal/source"
)

// Category names a diagnostic kind, per spec §6.
type Category string

const (
	UnknownMacro      Category = "UnknownMacro"
	DupGrammarOption  Category = "DupGrammarOption"
	DupToken          Category = "DupToken"
	DupTokenOption    Category = "DupTokenOption"
	UnusedTerm        Category = "UnusedTerm"
	UndefinedNonterm  Category = "UndefinedNonterm"
	UnusedNonterm     Category = "UnusedNonterm"
	UselessNonterm    Category = "UselessNonterm"
	UselessRule       Category = "UselessRule"
	ReadsCycle        Category = "ReadsCycle"
	SymbolSelfProduce Category = "SymbolSelfProduce"
	LalrConflict      Category = "LalrConflict"
	WordOverflow      Category = "WordOverflow"
	CharacterRange    Category = "CharacterRange"
	RegexConflict     Category = "RegexConflict"
	DupAstItem        Category = "DupAstItem"
	Syntax            Category = "Syntax"
	Lexical           Category = "Lexical"
	AstIndex          Category = "AstIndex"
)

// Severity is a diagnostic's numeric severity. Per spec §6, the threshold
// between warning and error is 100; everything below is a warning, 100 and
// above is an error.
type Severity int

const ErrorThreshold Severity = 100

// IsError reports whether sev is at or above the error threshold.
func (sev Severity) IsError() bool { return sev >= ErrorThreshold }

// defaultSeverity gives each category's baseline severity. Config (see
// internal/config) may override these per-grammar.
var defaultSeverity = map[Category]Severity{
	UnknownMacro:      100,
	DupGrammarOption:  50,
	DupToken:          50,
	DupTokenOption:    50,
	UnusedTerm:        10,
	UndefinedNonterm:  100,
	UnusedNonterm:     10,
	UselessNonterm:    100,
	UselessRule:       10,
	ReadsCycle:        100,
	SymbolSelfProduce: 100,
	LalrConflict:      100,
	WordOverflow:      100,
	CharacterRange:    100,
	RegexConflict:     100,
	DupAstItem:        100,
	Syntax:            100,
	Lexical:           100,
	AstIndex:          100,
}

// DefaultSeverity returns the baseline severity for a category.
func DefaultSeverity(c Category) Severity {
	if sev, ok := defaultSeverity[c]; ok {
		return sev
	}
	return ErrorThreshold
}

// Diagnostic is one recorded problem.
type Diagnostic struct {
	Category Category
	Severity Severity
	Location int64
	Short    string
	Long     string

	// seq preserves insertion order for diagnostics that tie on location.
	seq int
}

// Line and Col return the 1-based position of the diagnostic in buf, or
// (0, 0) if the diagnostic has no location.
func (d Diagnostic) Line(buf *source.Buffer) int {
	l, _ := buf.LineCol(d.Location)
	return l
}

func (d Diagnostic) Col(buf *source.Buffer) int {
	_, c := buf.LineCol(d.Location)
	return c
}

// Sink accumulates diagnostics across one generation or parse pass.
type Sink struct {
	buf   *source.Buffer
	items []Diagnostic
	next  int
	overrides map[Category]Severity
}

// NewSink returns an empty Sink reporting locations against buf. buf may be
// nil for passes that never attach a location (e.g. grammar-file I/O
// failures happen before a source buffer even exists).
func NewSink(buf *source.Buffer) *Sink {
	return &Sink{buf: buf}
}

// SetOverride changes the severity used for subsequently-recorded
// diagnostics of category c; this is how internal/config's severity
// overrides are threaded through.
func (s *Sink) SetOverride(c Category, sev Severity) {
	if s.overrides == nil {
		s.overrides = map[Category]Severity{}
	}
	s.overrides[c] = sev
}

func (s *Sink) severityFor(c Category) Severity {
	if s.overrides != nil {
		if sev, ok := s.overrides[c]; ok {
			return sev
		}
	}
	return DefaultSeverity(c)
}

// Report records a diagnostic at the given category/location with a short
// (one-line) and long (multi-sentence) message.
func (s *Sink) Report(c Category, location int64, short, long string) {
	s.items = append(s.items, Diagnostic{
		Category: c,
		Severity: s.severityFor(c),
		Location: location,
		Short:    short,
		Long:     long,
		seq:      s.next,
	})
	s.next++
}

// Reportf is Report with the short message produced by Sprintf, and the long
// message equal to the short message.
func (s *Sink) Reportf(c Category, location int64, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.Report(c, location, msg, msg)
}

// HasErrors reports whether any recorded diagnostic is at or above the error
// threshold.
func (s *Sink) HasErrors() bool {
	for _, d := range s.items {
		if d.Severity.IsError() {
			return true
		}
	}
	return false
}

// All returns every recorded diagnostic, sorted per spec §7: diagnostics with
// no location (NoLocation) first, then by ascending location, then by
// insertion order for ties.
func (s *Sink) All() []Diagnostic {
	out := make([]Diagnostic, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aNone := a.Location == source.NoLocation
		bNone := b.Location == source.NoLocation
		if aNone != bNone {
			return aNone
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.seq < b.seq
	})
	return out
}

// Reset discards all recorded diagnostics, keeping the severity overrides.
func (s *Sink) Reset() {
	s.items = nil
	s.next = 0
}

// ErrorMessages renders get_error_messages (spec §7): one formatted line per
// diagnostic, sorted per All, each wrapped to a reasonable width and prefixed
// with its location if one is known.
func (s *Sink) ErrorMessages(width int) []string {
	if width <= 0 {
		width = 100
	}
	msgs := make([]string, 0, len(s.items))
	for _, d := range s.All() {
		prefix := "?:?"
		if s.buf != nil && d.Location != source.NoLocation {
			line, col := s.buf.LineCol(d.Location)
			prefix = fmt.Sprintf("%s:%d:%d", s.buf.Name(), line, col)
		}
		body := fmt.Sprintf("[%s] %s: %s", prefix, d.Category, d.Long)
		wrapped := rosed.Edit(body).
			Wrap(width).
			String()
		msgs = append(msgs, wrapped)
	}
	return msgs
}

// DumpSource renders dump_source (spec §7): the full source buffer
// interleaved with caret-pointed excerpts for every diagnostic on each line.
func (s *Sink) DumpSource() string {
	if s.buf == nil {
		return ""
	}
	byLine := map[int][]Diagnostic{}
	for _, d := range s.All() {
		l := d.Line(s.buf)
		byLine[l] = append(byLine[l], d)
	}

	var sb strings.Builder
	for line := 1; line <= s.buf.LineCount(); line++ {
		fmt.Fprintf(&sb, "%4d| %s\n", line, s.buf.LineText(line))
		for _, d := range byLine[line] {
			_, col := s.buf.LineCol(d.Location)
			fmt.Fprintf(&sb, "    | %*s^ %s: %s\n", col-1, "", d.Category, d.Short)
		}
	}
	return sb.String()
}
