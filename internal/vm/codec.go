package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calderwood/hoshi/internal/ic"
)

// Encode serializes pd to the opaque text blob format: `|`-delimited fields
// within a record, one record per line, sectioned by `}1`, `}2`, ... markers
// (spec §6). A field's `` ` `` and `|` characters are backtick-escaped so the
// delimiter is unambiguous regardless of string-table payload content.
//
// decode(encode(P)) reproduces P exactly except for pd.table, which Decode
// leaves nil to be lazily rebuilt by Table() the same way NewParserData
// builds it.
func (pd *ParserData) Encode() string {
	var b strings.Builder

	writeCountedSection(&b, 1, len(pd.Strings), func(w *strings.Builder) {
		for _, s := range pd.Strings {
			writeRecord(w, escapeField(s))
		}
	})

	writeCountedSection(&b, 2, len(pd.KindNames), func(w *strings.Builder) {
		for k, name := range pd.KindNames {
			writeRecord(w, itoa(int(k)), escapeField(name))
		}
	})

	writeCountedSection(&b, 3, len(pd.Registers), func(w *strings.Builder) {
		for _, r := range pd.Registers {
			writeRecord(w, escapeField(r.Name), itoa(int(r.Initial)))
		}
	})

	// Section 4 is a single bare value, no count prefix.
	writeRecord(&b, itoa(pd.ASTSlots))
	b.WriteString("}4\n")

	writeCountedSection(&b, 5, len(pd.Symbols), func(w *strings.Builder) {
		for _, s := range pd.Symbols {
			writeRecord(w,
				itoa(s.Num), escapeField(s.Name),
				boolField(s.IsTerminal), boolField(s.IsNonterminal),
				boolField(s.IsScanned), boolField(s.IsIgnored), boolField(s.LexemeNeeded))
		}
	})

	writeCountedSection(&b, 6, len(pd.Rules), func(w *strings.Builder) {
		for _, r := range pd.Rules {
			fields := []string{itoa(r.Num), itoa(r.LHSNum), itoa(len(r.RHS))}
			for _, num := range r.RHS {
				fields = append(fields, itoa(num))
			}
			writeRecord(w, fields...)
		}
	})

	writeCountedSection(&b, 7, len(pd.ReduceEntry), func(w *strings.Builder) {
		for rule, pc := range pd.ReduceEntry {
			writeRecord(w, itoa(rule), itoa(pc))
		}
	})

	writeCountedSection(&b, 8, len(pd.TokenAction), func(w *strings.Builder) {
		for sym, pc := range pd.TokenAction {
			writeRecord(w, itoa(sym), itoa(pc))
		}
	})

	writeCountedSection(&b, 9, len(pd.TerminalKind), func(w *strings.Builder) {
		for sym, k := range pd.TerminalKind {
			writeRecord(w, itoa(sym), itoa(int(k)))
		}
	})

	writeCountedSection(&b, 10, len(pd.Instructions), func(w *strings.Builder) {
		for _, ins := range pd.Instructions {
			writeRecord(w, itoa(int(ins.Opcode)), itoa(int(ins.Location)), itoa(ins.OperandOffset), itoa(ins.OperandCount))
		}
	})

	writeCountedSection(&b, 11, len(pd.Operands), func(w *strings.Builder) {
		for _, op := range pd.Operands {
			writeRecord(w, itoa(int(op.Kind)), itoa(int(op.Int)), itoa(int(op.Codepoint)), itoa(op.Str), itoa(op.AST))
		}
	})

	// Section 12 is a single bare record, no count prefix.
	writeRecord(&b, itoa(pd.StartRuleNum), itoa(pd.ScanEntryPC), boolField(pd.ErrorRecovery))
	b.WriteString("}12\n")

	return b.String()
}

func writeCountedSection(b *strings.Builder, marker, count int, body func(*strings.Builder)) {
	writeRecord(b, itoa(count))
	body(b)
	b.WriteString("}")
	b.WriteString(itoa(marker))
	b.WriteString("\n")
}

// Decode parses a blob produced by Encode back into a ParserData. It never
// runs the generator pipeline; pd.Table() reconstructs the LR table lazily
// from the decoded symbol/rule metadata on first use.
func Decode(blob string) (*ParserData, error) {
	sections, err := splitSections(blob, 12)
	if err != nil {
		return nil, err
	}

	pd := &ParserData{
		KindNames:    map[int32]string{},
		ReduceEntry:  map[int]int{},
		TokenAction:  map[int]int{},
		TerminalKind: map[int]int32{},
	}

	if err := readCountedSection(sections[0], func(rec []string) error {
		pd.Strings = append(pd.Strings, rec[0])
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 1 (strings): %w", err)
	}

	if err := readCountedSection(sections[1], func(rec []string) error {
		k, err := atoi(rec[0])
		if err != nil {
			return err
		}
		pd.KindNames[int32(k)] = rec[1]
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 2 (kind names): %w", err)
	}

	if err := readCountedSection(sections[2], func(rec []string) error {
		initial, err := atoi(rec[1])
		if err != nil {
			return err
		}
		pd.Registers = append(pd.Registers, RegisterInfo{Name: rec[0], Initial: int64(initial)})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 3 (registers): %w", err)
	}

	{
		lines := splitLines(sections[3])
		if len(lines) != 1 {
			return nil, fmt.Errorf("vm: section 4 (ast slots): expected 1 line, found %d", len(lines))
		}
		slots, err := atoi(unescapeFields(lines[0])[0])
		if err != nil {
			return nil, fmt.Errorf("vm: section 4 (ast slots): %w", err)
		}
		pd.ASTSlots = slots
	}

	if err := readCountedSection(sections[4], func(rec []string) error {
		num, err := atoi(rec[0])
		if err != nil {
			return err
		}
		pd.Symbols = append(pd.Symbols, SymbolInfo{
			Num: num, Name: rec[1],
			IsTerminal: rec[2] == "1", IsNonterminal: rec[3] == "1",
			IsScanned: rec[4] == "1", IsIgnored: rec[5] == "1", LexemeNeeded: rec[6] == "1",
		})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 5 (symbols): %w", err)
	}

	if err := readCountedSection(sections[5], func(rec []string) error {
		num, err := atoi(rec[0])
		if err != nil {
			return err
		}
		lhs, err := atoi(rec[1])
		if err != nil {
			return err
		}
		rhsLen, err := atoi(rec[2])
		if err != nil {
			return err
		}
		rhs := make([]int, rhsLen)
		for j := 0; j < rhsLen; j++ {
			v, err := atoi(rec[3+j])
			if err != nil {
				return err
			}
			rhs[j] = v
		}
		pd.Rules = append(pd.Rules, RuleInfo{Num: num, LHSNum: lhs, RHS: rhs})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 6 (rules): %w", err)
	}

	if err := readCountedSection(sections[6], func(rec []string) error {
		rule, err := atoi(rec[0])
		if err != nil {
			return err
		}
		pc, err := atoi(rec[1])
		if err != nil {
			return err
		}
		pd.ReduceEntry[rule] = pc
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 7 (reduce entries): %w", err)
	}

	if err := readCountedSection(sections[7], func(rec []string) error {
		sym, err := atoi(rec[0])
		if err != nil {
			return err
		}
		pc, err := atoi(rec[1])
		if err != nil {
			return err
		}
		pd.TokenAction[sym] = pc
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 8 (token actions): %w", err)
	}

	if err := readCountedSection(sections[8], func(rec []string) error {
		sym, err := atoi(rec[0])
		if err != nil {
			return err
		}
		k, err := atoi(rec[1])
		if err != nil {
			return err
		}
		pd.TerminalKind[sym] = int32(k)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 9 (terminal kinds): %w", err)
	}

	if err := readCountedSection(sections[9], func(rec []string) error {
		op, err := atoi(rec[0])
		if err != nil {
			return err
		}
		loc, err := atoi(rec[1])
		if err != nil {
			return err
		}
		off, err := atoi(rec[2])
		if err != nil {
			return err
		}
		cnt, err := atoi(rec[3])
		if err != nil {
			return err
		}
		pd.Instructions = append(pd.Instructions, ic.FlatInstruction{
			Opcode: ic.Opcode(op), Location: int64(loc), OperandOffset: off, OperandCount: cnt,
		})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 10 (instructions): %w", err)
	}

	if err := readCountedSection(sections[10], func(rec []string) error {
		kind, err := atoi(rec[0])
		if err != nil {
			return err
		}
		val, err := atoi(rec[1])
		if err != nil {
			return err
		}
		cp, err := atoi(rec[2])
		if err != nil {
			return err
		}
		str, err := atoi(rec[3])
		if err != nil {
			return err
		}
		ast, err := atoi(rec[4])
		if err != nil {
			return err
		}
		pd.Operands = append(pd.Operands, ic.Operand{
			Kind: ic.OperandKind(kind), Int: int64(val), Codepoint: rune(cp), Str: str, AST: ast,
		})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("vm: section 11 (operands): %w", err)
	}

	{
		lines := splitLines(sections[11])
		if len(lines) != 1 {
			return nil, fmt.Errorf("vm: section 12 (trailer): expected 1 line, found %d", len(lines))
		}
		rec := unescapeFields(lines[0])
		start, err := atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("vm: section 12 (trailer): %w", err)
		}
		scanPC, err := atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("vm: section 12 (trailer): %w", err)
		}
		pd.StartRuleNum = start
		pd.ScanEntryPC = scanPC
		pd.ErrorRecovery = rec[2] == "1"
	}

	return pd, nil
}

// splitSections splits blob on its "}N" markers and returns exactly want
// section bodies (everything before the next marker, marker digits
// stripped). Markers must appear in order 1..want with nothing following the
// last one.
func splitSections(blob string, want int) ([]string, error) {
	sections := make([]string, 0, want)
	rest := blob
	for i := 1; i <= want; i++ {
		marker := "}" + itoa(i) + "\n"
		idx := strings.Index(rest, marker)
		if idx < 0 {
			return nil, fmt.Errorf("vm: corrupt blob: missing section marker }%d", i)
		}
		sections = append(sections, rest[:idx])
		rest = rest[idx+len(marker):]
	}
	if rest != "" {
		return nil, fmt.Errorf("vm: corrupt blob: trailing data after final section")
	}
	return sections, nil
}

// readCountedSection parses a section whose first line is a record count,
// followed by that many records, and invokes fn with each record's
// unescaped fields.
func readCountedSection(body string, fn func(rec []string) error) error {
	lines := splitLines(body)
	if len(lines) == 0 {
		return fmt.Errorf("missing count record")
	}
	n, err := atoi(unescapeFields(lines[0])[0])
	if err != nil {
		return err
	}
	if len(lines)-1 != n {
		return fmt.Errorf("count says %d records, found %d", n, len(lines)-1)
	}
	for i := 0; i < n; i++ {
		if err := fn(unescapeFields(lines[1+i])); err != nil {
			return err
		}
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func writeRecord(b *strings.Builder, fields ...string) {
	b.WriteString(strings.Join(fields, "|"))
	b.WriteByte('\n')
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func atoi(s string) (int, error) {
	return strconv.Atoi(s)
}

// escapeField backtick-escapes a field so embedded `|`, `` ` ``, and raw
// newlines (a string payload may legitimately contain one) survive both the
// record's `|`-join and the blob's line-per-record structure.
func escapeField(s string) string {
	s = strings.ReplaceAll(s, "`", "``")
	s = strings.ReplaceAll(s, "|", "`|")
	s = strings.ReplaceAll(s, "\n", "`n")
	return s
}

// unescapeFields splits one record line on unescaped `|` and undoes
// escapeField on each resulting field.
func unescapeFields(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if escaped {
			switch c {
			case 'n':
				cur.WriteByte('\n')
			default:
				cur.WriteByte(c)
			}
			escaped = false
			continue
		}
		switch c {
		case '`':
			escaped = true
		case '|':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
