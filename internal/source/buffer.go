// Package source holds the immutable input buffer that every later stage of
// the pipeline (scanner, VM, diagnostics) refers to by byte offset.
package source

import "strings"

// NoLocation is the sentinel offset meaning "no location available", used for
// diagnostics that are not tied to a specific place in the source (e.g. an
// I/O failure reading the grammar file).
const NoLocation int64 = -1

// Buffer is an immutable, fully materialized source document plus a
// precomputed offset -> (line, column) index. Offsets are byte offsets
// (matching the slicing semantics of the Go string under the hood); Line and
// Column are both 1-based.
type Buffer struct {
	name string
	text string

	// lineStarts[i] is the byte offset of the first byte of line i+1.
	lineStarts []int
}

// New builds a Buffer over text, named name for use in diagnostics (usually
// the grammar or input file path).
func New(name, text string) *Buffer {
	b := &Buffer{name: name, text: text, lineStarts: []int{0}}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			b.lineStarts = append(b.lineStarts, i+1)
		}
	}
	return b
}

// Name returns the buffer's display name.
func (b *Buffer) Name() string { return b.name }

// Text returns the full source text.
func (b *Buffer) Text() string { return b.text }

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int { return len(b.text) }

// At returns the byte at offset. It panics if offset is out of range; callers
// that may be at EOF should check against Len first.
func (b *Buffer) At(offset int64) byte {
	return b.text[offset]
}

// Slice returns text[start:end]. Both bounds are byte offsets.
func (b *Buffer) Slice(start, end int64) string {
	return b.text[start:end]
}

// LineCol converts a byte offset into a 1-based (line, column) pair. An
// offset of NoLocation, or one outside the buffer, returns (0, 0).
func (b *Buffer) LineCol(offset int64) (line, col int) {
	if offset == NoLocation || offset < 0 || int(offset) > len(b.text) {
		return 0, 0
	}
	// binary search for the line whose start is <= offset
	lo, hi := 0, len(b.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lineStarts[mid] <= int(offset) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo + 1
	col = int(offset) - b.lineStarts[lo] + 1
	return line, col
}

// LineText returns the full text of the given 1-based line number, without
// its trailing newline.
func (b *Buffer) LineText(line int) string {
	if line < 1 || line > len(b.lineStarts) {
		return ""
	}
	start := b.lineStarts[line-1]
	end := len(b.text)
	if line < len(b.lineStarts) {
		end = b.lineStarts[line] - 1
	}
	if end > len(b.text) {
		end = len(b.text)
	}
	if end < start {
		end = start
	}
	return strings.TrimSuffix(b.text[start:end], "\n")
}

// LineCount returns the number of lines in the buffer.
func (b *Buffer) LineCount() int {
	return len(b.lineStarts)
}

// Caret returns a two-line excerpt: the source line containing offset,
// followed by a line with a caret (^) under the referenced column. Used by
// dump_source (spec §7).
func (b *Buffer) Caret(offset int64) string {
	line, col := b.LineCol(offset)
	if line == 0 {
		return ""
	}
	text := b.LineText(line)
	pad := make([]byte, 0, col)
	for i := 1; i < col; i++ {
		if i-1 < len(text) && text[i-1] == '\t' {
			pad = append(pad, '\t')
		} else {
			pad = append(pad, ' ')
		}
	}
	return text + "\n" + string(pad) + "^"
}
