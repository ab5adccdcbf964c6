package hoshi

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/rosed"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/diag"
	"github.com/calderwood/hoshi/internal/input"
)

const consoleOutputWidth = 80

// lineReader is the subset of internal/input's two reader types a REPL
// needs: just enough to read one snippet at a time, blank lines included.
type lineReader interface {
	ReadCommand() (string, error)
	AllowBlank(allow bool)
	Close() error
}

// REPL drives an interactive "try a source snippet against the loaded
// grammar" session: each line read is parsed against a Generator, and either
// the resulting AST or its diagnostics is written back out.
//
// Grounded on this package's former root-level driver (tunaq's Engine,
// adapted here from a game command loop to a parse loop): the same choice
// between a readline-backed interactive reader and a direct line reader
// depending on whether the process is attached to a real terminal.
type REPL struct {
	gen         *Generator
	in          lineReader
	out         *bufio.Writer
	forceDirect bool
	running     bool
}

// NewREPL builds a REPL bound to gen, reading from inputStream (stdin if
// nil) and writing to outputStream (stdout if nil). Unless forceDirectInput
// is set, a readline-backed reader is used when both streams are the
// process's own stdin/stdout.
func NewREPL(gen *Generator, inputStream io.Reader, outputStream io.Writer, forceDirectInput bool) (*REPL, error) {
	if inputStream == nil {
		inputStream = os.Stdin
	}
	if outputStream == nil {
		outputStream = os.Stdout
	}

	r := &REPL{
		gen:         gen,
		out:         bufio.NewWriter(outputStream),
		forceDirect: forceDirectInput,
	}

	useReadline := !forceDirectInput && inputStream == os.Stdin && outputStream == os.Stdout
	if useReadline {
		icr, err := input.NewInteractiveReader()
		if err != nil {
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
		icr.SetPrompt("hoshi> ")
		r.in = icr
	} else {
		r.in = input.NewDirectReader(inputStream)
	}

	return r, nil
}

// Close tears down any readline resources the REPL created.
func (r *REPL) Close() error {
	if r.running {
		return fmt.Errorf("cannot close a running REPL")
	}
	if err := r.in.Close(); err != nil {
		return fmt.Errorf("close command reader: %w", err)
	}
	return nil
}

// RunUntilQuit reads source snippets until EOF or a bare ".quit" line,
// parsing each against the REPL's Generator and printing either the
// resulting AST or its diagnostics.
func (r *REPL) RunUntilQuit() error {
	if !r.gen.Ready() {
		return wrongState("RunUntilQuit called before the REPL's grammar was generated or decoded")
	}

	intro := "hoshi interactive parser\n=========================\n\n"
	intro += "Enter a source snippet to parse; \".quit\" to exit.\n"
	if err := r.write(intro); err != nil {
		return err
	}

	r.running = true
	defer func() { r.running = false }()

	for n := 1; r.running; n++ {
		r.in.AllowBlank(true)
		line, err := r.in.ReadCommand()
		r.in.AllowBlank(false)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read snippet: %w", err)
		}

		if line == ".quit" {
			break
		}
		if line == "" {
			continue
		}

		root, sink, parseErr := r.gen.Parse(fmt.Sprintf("<repl:%d>", n), line)
		if parseErr != nil {
			if err := r.write(parseErr.Error() + "\n"); err != nil {
				return err
			}
			continue
		}

		out := rosed.Edit(formatResult(root, sink, r.gen)).Wrap(consoleOutputWidth).String()
		if err := r.write(out + "\n"); err != nil {
			return err
		}
	}

	return r.write("Goodbye\n")
}

func (r *REPL) write(s string) error {
	if _, err := r.out.WriteString(s); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	return r.out.Flush()
}

// formatResult renders a parse's AST, or its diagnostics if it failed, as
// plain text for the REPL's output stream.
func formatResult(root *ast.Node, sink *diag.Sink, gen *Generator) string {
	if root == nil || sink.HasErrors() {
		out := "parse failed:\n"
		for _, m := range sink.ErrorMessages(consoleOutputWidth) {
			out += m + "\n"
		}
		return out
	}
	return dumpAST(root, gen, 0)
}

// dumpAST renders an ast.Node tree indented by depth, naming each node by
// its registered kind rather than a bare numeric Kind value.
func dumpAST(n *ast.Node, gen *Generator, depth int) string {
	if n == nil {
		return ""
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	name := gen.KindName(n.Kind)
	if name == "" {
		name = fmt.Sprintf("kind(%d)", n.Kind)
	}

	out := indent + name
	if len(n.Children) == 0 {
		out += fmt.Sprintf(" %q", n.Lexeme)
	}
	out += "\n"

	for _, child := range n.Children {
		out += dumpAST(child, gen, depth+1)
	}
	return out
}
