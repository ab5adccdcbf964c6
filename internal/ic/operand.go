package ic

// Register is a named integer variable (spec §3). Registers with a purely
// numeric Name act as constants: Initial is that integer and the VM never
// assigns to them.
type Register struct {
	Name    string
	Initial int64
}

// IsTemporary reports whether this register is one of the IC builder's
// recycled temporaries (named "Temp$N").
func (r *Register) IsTemporary() bool {
	return len(r.Name) > len("Temp$") && r.Name[:5] == "Temp$"
}

// Label is a named or anonymous jump target. PC is populated only after
// Builder.Generate lays out the instruction stream; before that it is -1.
type Label struct {
	ID       int
	Name     string
	IsExtern bool
	PC       int
}

// OperandKind discriminates the Operand union (spec §3's "discriminated
// union of {integer, codepoint, *string-ptr, *register, *ast-handle,
// *label}").
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandInt
	OperandCodepoint
	OperandString
	OperandRegister
	OperandASTHandle
	OperandLabel
	OperandKindTag // a ast.Kind value, used by Ast* opcodes
)

// Operand is one variadic argument of an Instruction.
type Operand struct {
	Kind OperandKind

	Int       int64
	Codepoint rune
	Str       int // index into the Builder's string pool
	Reg       *Register
	AST       int // ast-handle index
	Lbl       *Label
}

func IntOperand(v int64) Operand            { return Operand{Kind: OperandInt, Int: v} }
func CodepointOperand(r rune) Operand       { return Operand{Kind: OperandCodepoint, Codepoint: r} }
func StringOperand(idx int) Operand         { return Operand{Kind: OperandString, Str: idx} }
func RegisterOperand(r *Register) Operand   { return Operand{Kind: OperandRegister, Reg: r} }
func ASTHandleOperand(h int) Operand        { return Operand{Kind: OperandASTHandle, AST: h} }
func LabelOperand(l *Label) Operand         { return Operand{Kind: OperandLabel, Lbl: l} }
func KindOperand(kind int32) Operand        { return Operand{Kind: OperandKindTag, Int: int64(kind)} }

// Instruction is one IC opcode application.
type Instruction struct {
	Opcode   Opcode
	Location int64
	Operands []Operand

	// deleted marks an instruction removed by the optimizer during a pass;
	// Builder.compact drops these between passes (spec §4.3).
	deleted bool

	// pc is populated by Generate.
	pc int
}

// PC returns the instruction's post-layout program counter, or -1 if layout
// has not yet run.
func (ins *Instruction) PC() int {
	if ins.deleted {
		return -1
	}
	return ins.pc
}
