package vm

import (
	"testing"

	"github.com/calderwood/hoshi/internal/ic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePD() *ParserData {
	return &ParserData{
		KindNames: map[int32]string{1: "leaf", 2: "inner|kind`with`specials"},
		Registers: []RegisterInfo{{Name: "r0", Initial: 0}, {Name: "acc", Initial: -3}},
		ASTSlots:  4,
		Strings:   []string{"", "hello\nworld", "pipe|and`tick"},
		Instructions: []ic.FlatInstruction{
			{Opcode: ic.Halt, Location: 0, OperandOffset: 0, OperandCount: 0},
			{Opcode: ic.Add, Location: 12, OperandOffset: 0, OperandCount: 3},
		},
		Operands: []ic.Operand{
			{Kind: ic.OperandInt, Int: 42},
			{Kind: ic.OperandRegister, Int: 1},
			{Kind: ic.OperandString, Str: 2},
		},
		Symbols: []SymbolInfo{
			{Num: 0, Name: "eof", IsTerminal: true, IsScanned: false},
			{Num: 1, Name: "NUM", IsTerminal: true, IsScanned: true, LexemeNeeded: true},
			{Num: 2, Name: "expr", IsNonterminal: true},
		},
		Rules: []RuleInfo{
			{Num: 0, LHSNum: 2, RHS: []int{1}},
			{Num: 1, LHSNum: 2, RHS: []int{2, 1}},
		},
		StartRuleNum:  0,
		ScanEntryPC:   7,
		ErrorRecovery: true,
		ReduceEntry:   map[int]int{0: 3, 1: 9},
		TokenAction:   map[int]int{1: 20},
		TerminalKind:  map[int]int32{1: 1},
	}
}

func Test_EncodeDecode_RoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	pd := samplePD()
	blob := pd.Encode()

	got, err := Decode(blob)
	require.NoError(err)

	assert.Equal(pd.KindNames, got.KindNames)
	assert.Equal(pd.Registers, got.Registers)
	assert.Equal(pd.ASTSlots, got.ASTSlots)
	assert.Equal(pd.Strings, got.Strings)
	assert.Equal(pd.Instructions, got.Instructions)
	assert.Equal(pd.Operands, got.Operands)
	assert.Equal(pd.Symbols, got.Symbols)
	assert.Equal(pd.Rules, got.Rules)
	assert.Equal(pd.StartRuleNum, got.StartRuleNum)
	assert.Equal(pd.ScanEntryPC, got.ScanEntryPC)
	assert.Equal(pd.ErrorRecovery, got.ErrorRecovery)
	assert.Equal(pd.ReduceEntry, got.ReduceEntry)
	assert.Equal(pd.TokenAction, got.TokenAction)
	assert.Equal(pd.TerminalKind, got.TerminalKind)
}

func Test_Decode_RejectsTruncatedBlob(t *testing.T) {
	_, err := Decode("0\n}1\n0\n}2\n")
	assert.Error(t, err)
}

func Test_EscapeUnescapeFields_RoundTrip(t *testing.T) {
	assert := assert.New(t)
	in := "a|b`c\nd"
	escaped := escapeField(in)
	fields := unescapeFields(escaped)
	assert.Len(fields, 1)
	assert.Equal(in, fields[0])
}
