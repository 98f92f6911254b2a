package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsammeow/source-go/code"
	"github.com/tsammeow/source-go/svm"
)

func sampleProgram() *svm.Program {
	mainIns := append(code.Make(code.LGCI, 1), code.Make(code.LGCI, 2)...)
	mainIns = append(mainIns, code.Make(code.ADDG)...)
	mainIns = append(mainIns, code.Make(code.DONE)...)

	return &svm.Program{
		EntryFn: 0,
		Strings: []string{"hello", "world"},
		Functions: []svm.Function{
			{Name: "main", StackSize: 64, EnvSize: 0, Arity: 0, Instructions: mainIns},
			{Name: "f", StackSize: 32, EnvSize: 1, Arity: 1, Instructions: code.Make(code.RETU)},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	prog := sampleProgram()
	data := Encode(prog)

	require.True(t, len(data) > len(Magic))
	assert.Equal(t, Magic[:], data[:4])

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, prog.EntryFn, decoded.EntryFn)
	assert.Equal(t, prog.Strings, decoded.Strings)
	require.Len(t, decoded.Functions, len(prog.Functions))
	for i := range prog.Functions {
		assert.Equal(t, prog.Functions[i].StackSize, decoded.Functions[i].StackSize)
		assert.Equal(t, prog.Functions[i].EnvSize, decoded.Functions[i].EnvSize)
		assert.Equal(t, prog.Functions[i].Arity, decoded.Functions[i].Arity)
		assert.Equal(t, []byte(prog.Functions[i].Instructions), []byte(decoded.Functions[i].Instructions))
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data := Encode(sampleProgram())
	data[0] = 'X'
	_, err := Decode(data)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	data := Encode(sampleProgram())
	_, err := Decode(data[:len(data)-3])
	assert.Error(t, err)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	data := Encode(sampleProgram())
	data[4] = 0xFF
	_, err := Decode(data)
	assert.Error(t, err)
}
