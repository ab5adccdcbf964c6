package ic

// FlatInstruction is one post-layout bytecode instruction: an opcode, a
// source location (for runtime diagnostics) and a span into the flat operand
// array (spec §6: "instructions: [{handler, location, operand_offset}]").
type FlatInstruction struct {
	Opcode        Opcode
	Location      int64
	OperandOffset int
	OperandCount  int
}

// Program is the fully laid-out output of Generate: flat instructions whose
// label operands have been resolved to pc values, plus the register,
// string and AST-slot tables needed to execute them.
type Program struct {
	Instructions []FlatInstruction
	Operands     []Operand
	Registers    []*Register
	Strings      []string
	ASTSlots     int

	// ExternLabels maps an extern label's name to its resolved pc, for the
	// facade and VM to find the Scan/Prolog/reduce entry points (spec §3).
	ExternLabels map[string]int
}

// Generate assigns a pc to every surviving instruction, resolves label
// operands to those pcs, and emits the flat instruction/operand arrays (spec
// §4.3). Optimize should be called first; Generate does not optimize.
//
// Per spec §9's open question, this implementation emits a fresh array
// rather than mutating in place; either satisfies §8 ("the post-layout pc in
// every label equals the index of the immediately following non-label
// instruction").
func (b *Builder) Generate() *Program {
	live := b.Instructions()

	// First pass: assign each label's pc to the index (within the non-label
	// instruction stream) of the next non-label instruction, and strip Label
	// pseudo-instructions out of the stream entirely.
	var flatSrc []*Instruction
	for i := 0; i < len(live); i++ {
		ins := live[i]
		if ins.Opcode == Label_ {
			l := ins.Operands[0].Lbl
			l.PC = len(flatSrc)
			continue
		}
		flatSrc = append(flatSrc, ins)
	}

	prog := &Program{
		Registers:    b.regOrder,
		Strings:      b.strings,
		ASTSlots:     b.maxASTSlots,
		ExternLabels: map[string]int{},
	}

	regIndex := make(map[*Register]int, len(b.regOrder))
	for i, r := range b.regOrder {
		regIndex[r] = i
	}

	for _, ins := range flatSrc {
		ins.pc = len(prog.Instructions)
		offset := len(prog.Operands)
		for _, op := range ins.Operands {
			switch op.Kind {
			case OperandLabel:
				op.Int = int64(op.Lbl.PC)
			case OperandRegister:
				// Int carries the register's stable index into
				// Program.Registers; Reg itself is a live pointer into this
				// Builder and is not meaningful once serialized.
				op.Int = int64(regIndex[op.Reg])
			}
			prog.Operands = append(prog.Operands, op)
		}
		prog.Instructions = append(prog.Instructions, FlatInstruction{
			Opcode:        ins.Opcode,
			Location:      ins.Location,
			OperandOffset: offset,
			OperandCount:  len(ins.Operands),
		})
	}

	for _, l := range b.labels {
		if l.IsExtern && l.Name != "" {
			prog.ExternLabels[l.Name] = l.PC
		}
	}

	return prog
}
