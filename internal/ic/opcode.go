// Package ic implements the intermediate-code layer (spec component C5): a
// register/label-based IR with peephole optimization and a flat bytecode
// emitter. Grounded structurally on
// _examples/original_source/cpp/libsrc/CodeGenerator.H/.cpp (the IC
// instruction list, label table and peephole passes this package
// translates into Go), and stylistically on the teacher's flyweight pool
// idiom (github.com/dekarrin/tunaq/internal/ictiobus/grammar's LR0Item
// pools) for the register/label/string/ast-handle pools.
package ic

// Opcode is the bytecode op catalogue of spec §6, numbered exactly as the
// spec's table.
type Opcode int

const (
	Null Opcode = iota
	Halt
	Label_ // "Label" collides with the ic.Label type; see Opcode.String.
	Call
	ScanStart  // no operands: reset the scan cursor/backup point, clear last_accept
	ScanChar   // elseLabel, (loCodepoint, hiCodepoint, label)*: consume one char, branch on its matching range, or elseLabel if none match
	ScanAccept // symbolNum (int), actionLabel: record current position, symbol and token action entry as the last-accept candidate (longest match wins)
	ScanToken  // errorLabel: if a last-accept candidate is recorded, run its action and commit the token, ending this scan call; else branch to errorLabel
	ScanError  // message (string): report a lexical diagnostic at the cursor, skip one codepoint, and end this scan call

	// Ast* family (9-22 in spec's table is a range placeholder, not a fixed
	// list of names — "mix of ast_handle, register, kind_num, integer,
	// string" operands). internal/reduce needs exactly these seven to
	// implement the former sub-language of spec §4.5; see that package's
	// doc comment for the operand contract of each.
	AstStart     // baseReg, rhsLen: snapshot work-stack depth, load rhs inputs into handles 0..rhsLen-1
	AstPushChild // handle: push handle's node onto the AST work stack
	AstForm      // dstHandle, baseReg, kindOperand, locOperand, lexOperand: collapse work stack above base into one node
	AstFinish    // rhsLen, srcHandle: pop rhsLen nodes off the parse AST stack, push srcHandle's node
	AstNth       // dstHandle, srcHandle, indexOperand: dst = src's n-th child (indexOperand: int literal or register)
	AstSlice     // fromInt, toInt: push rhs input handles [from,to] (1-based, inclusive) onto the work stack, in order
	AstCount     // dstReg, srcHandle: dst = number of children of src

	// The table reserves 9-22 for the Ast* family; the seven above use
	// 9-15, so numbering resumes at 23 here.
	Assign Opcode = iota + 7
	DumpStack

	Add
	Subtract
	Multiply
	Divide
	UnaryMinus

	Return
	Branch
	BranchEqual
	BranchNotEqual
	BranchLessThan
	BranchLessEqual
	BranchGreaterThan
	BranchGreaterEqual
)

// Info describes one opcode's shape for the optimizer and emitter (spec
// §4.3's "Opcode metadata table").
type Info struct {
	Name       string
	IsBranch   bool   // conditional control transfer (the six relational BranchXxx opcodes)
	IsNoFollow bool   // unconditional terminator; falling off the end is impossible
	Inverse    Opcode // for conditional branches, the complementary test; Null if n/a
}

var opcodeInfo = map[Opcode]Info{
	Null:       {Name: "Null"},
	Halt:       {Name: "Halt", IsNoFollow: true},
	Label_:     {Name: "Label"},
	Call:       {Name: "Call"},
	ScanStart:  {Name: "ScanStart"},
	ScanChar:   {Name: "ScanChar", IsNoFollow: true},
	ScanAccept: {Name: "ScanAccept"},
	ScanToken:  {Name: "ScanToken", IsNoFollow: true},
	ScanError:  {Name: "ScanError", IsNoFollow: true},

	AstStart:     {Name: "AstStart"},
	AstPushChild: {Name: "AstPushChild"},
	AstForm:      {Name: "AstForm"},
	AstFinish:    {Name: "AstFinish", IsNoFollow: false},
	AstNth:       {Name: "AstNth"},
	AstSlice:     {Name: "AstSlice"},
	AstCount:     {Name: "AstCount"},

	Assign:     {Name: "Assign"},
	DumpStack:  {Name: "DumpStack"},
	Add:        {Name: "Add"},
	Subtract:   {Name: "Subtract"},
	Multiply:   {Name: "Multiply"},
	Divide:     {Name: "Divide"},
	UnaryMinus: {Name: "UnaryMinus"},

	Return: {Name: "Return", IsNoFollow: true},
	Branch: {Name: "Branch", IsNoFollow: true},

	BranchEqual:        {Name: "BranchEqual", IsBranch: true, Inverse: BranchNotEqual},
	BranchNotEqual:     {Name: "BranchNotEqual", IsBranch: true, Inverse: BranchEqual},
	BranchLessThan:     {Name: "BranchLessThan", IsBranch: true, Inverse: BranchGreaterEqual},
	BranchLessEqual:    {Name: "BranchLessEqual", IsBranch: true, Inverse: BranchGreaterThan},
	BranchGreaterThan:  {Name: "BranchGreaterThan", IsBranch: true, Inverse: BranchLessEqual},
	BranchGreaterEqual: {Name: "BranchGreaterEqual", IsBranch: true, Inverse: BranchLessThan},
}

// OpInfo returns the metadata for op.
func OpInfo(op Opcode) Info {
	return opcodeInfo[op]
}

func (op Opcode) String() string {
	if info, ok := opcodeInfo[op]; ok {
		return info.Name
	}
	return "Unknown"
}

// IsConditionalBranch reports whether op is one of the BranchXxx relational
// opcodes (i.e. has a non-Null inverse).
func (op Opcode) IsConditionalBranch() bool {
	return opcodeInfo[op].Inverse != Null
}
