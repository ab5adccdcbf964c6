package scanner

import (
	"testing"

	"github.com/calderwood/hoshi/internal/grammar"
	"github.com/stretchr/testify/assert"
)

func Test_precedenceWinner_HigherPrecedenceWins(t *testing.T) {
	low := grammar.NewTerminal(1, "LOW")
	low.Precedence = 10
	high := grammar.NewTerminal(2, "HIGH")
	high.Precedence = 20

	got := precedenceWinner([]*grammar.Symbol{low, high})

	assert.Same(t, high, got)
}

func Test_precedenceWinner_TieBrokenByDeclarationOrder(t *testing.T) {
	first := grammar.NewTerminal(1, "FIRST")
	first.Precedence = 50
	second := grammar.NewTerminal(2, "SECOND")
	second.Precedence = 50

	got := precedenceWinner([]*grammar.Symbol{first, second})

	assert.Same(t, first, got)
}

func Test_precedenceTies_NilWhenWinnerUnambiguous(t *testing.T) {
	low := grammar.NewTerminal(1, "LOW")
	low.Precedence = 10
	high := grammar.NewTerminal(2, "HIGH")
	high.Precedence = 20

	assert.Nil(t, precedenceTies([]*grammar.Symbol{low, high}))
}

func Test_precedenceTies_ReturnsEveryTopPrecedenceCandidate(t *testing.T) {
	a := grammar.NewTerminal(1, "A")
	a.Precedence = 50
	b := grammar.NewTerminal(2, "B")
	b.Precedence = 50
	c := grammar.NewTerminal(3, "C")
	c.Precedence = 10

	tied := precedenceTies([]*grammar.Symbol{a, b, c})

	assert.ElementsMatch(t, []*grammar.Symbol{a, b}, tied)
}

func Test_sortByPrecedence_OrdersHighestFirstThenDeclarationOrder(t *testing.T) {
	low := grammar.NewTerminal(3, "LOW")
	low.Precedence = 10
	highFirst := grammar.NewTerminal(1, "HIGH_FIRST")
	highFirst.Precedence = 50
	highSecond := grammar.NewTerminal(2, "HIGH_SECOND")
	highSecond.Precedence = 50

	got := sortByPrecedence([]*grammar.Symbol{low, highSecond, highFirst})

	assert.Equal(t, []*grammar.Symbol{highFirst, highSecond, low}, got)
}
