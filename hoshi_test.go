package hoshi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Generator_RefusesOperationsBeforeGenerate(t *testing.T) {
	assert := assert.New(t)

	gen := New()
	assert.False(gen.Ready())

	_, _, err := gen.Parse("<test>", "anything")
	assert.Error(err)
	assert.True(errors.Is(err, ErrWrongState))

	_, err = gen.Encode()
	assert.Error(err)
	assert.True(errors.Is(err, ErrWrongState))
}

func Test_Generator_Decode_RejectsCorruptBlob(t *testing.T) {
	gen := New()
	err := gen.Decode("not a valid blob at all")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptBlob))
	assert.False(t, gen.Ready())
}

func Test_LogicError_UnwrapsToSentinel(t *testing.T) {
	err := wrongState("some detail")
	assert.True(t, errors.Is(err, ErrWrongState))
	assert.Contains(t, err.Error(), "some detail")
}
