package ic

import (
	"fmt"
	"strings"
)

// Disassemble renders the builder's current (pre- or post-optimization)
// instruction list as one line per instruction, labels inline. Grounded on
// _examples/original_source/cpp/libsrc/CodeGenerator.cpp's debug dump of
// its own IC, exposed to callers via cmd/hoshigen's -dump-ic flag.
func (b *Builder) Disassemble() string {
	var sb strings.Builder
	for _, ins := range b.instructions {
		if ins.deleted {
			continue
		}
		if ins.Opcode == Label_ {
			l := ins.Operands[0].Lbl
			name := l.Name
			if name == "" {
				name = fmt.Sprintf("L%d", l.ID)
			}
			fmt.Fprintf(&sb, "%s:\n", name)
			continue
		}
		fmt.Fprintf(&sb, "    %-18s", ins.Opcode.String())
		for i, op := range ins.Operands {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(disasmOperand(op))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func disasmOperand(op Operand) string {
	switch op.Kind {
	case OperandInt:
		return fmt.Sprintf("%d", op.Int)
	case OperandCodepoint:
		return fmt.Sprintf("%q", op.Codepoint)
	case OperandString:
		return fmt.Sprintf("str#%d", op.Str)
	case OperandRegister:
		return op.Reg.Name
	case OperandASTHandle:
		return fmt.Sprintf("ast#%d", op.AST)
	case OperandLabel:
		name := op.Lbl.Name
		if name == "" {
			name = fmt.Sprintf("L%d", op.Lbl.ID)
		}
		return name
	case OperandKindTag:
		return fmt.Sprintf("kind#%d", op.Int)
	default:
		return "?"
	}
}
