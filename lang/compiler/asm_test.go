package compiler_test

import (
	"testing"

	"github.com/mna/vela/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestDasmAsmRoundTrip(t *testing.T) {
	chunk := &compiler.Chunk{
		Name: "example",
		Main: &compiler.Prototype{
			Name:         "main",
			NumRegisters: 3,
			NumParams:    0,
		},
		Exports: []string{"greet"},
	}
	s := chunk.Constants.AddString("hello")
	i := chunk.Constants.AddInt(42)
	f := chunk.Constants.AddFloat(3.5)

	var em compiler.Emitter
	em.LoadString(0, s)
	em.LoadInt(1, i)
	em.LoadFloat(2, f)
	em.Add(0, 0, 1)
	patch := em.Jump(compiler.JMP, 0, false)
	em.PatchJump(patch)
	em.Return(0)
	chunk.Main.Code = em.Code

	text := compiler.Dasm(chunk)
	require.Contains(t, text, "chunk: example")
	require.Contains(t, text, "loadstring 0 0")
	require.Contains(t, text, "exports:")
	require.Contains(t, text, "greet")

	round, err := compiler.Asm([]byte(text))
	require.NoError(t, err)
	require.Equal(t, chunk.Name, round.Name)
	require.Equal(t, chunk.Constants.Strings, round.Constants.Strings)
	require.Equal(t, chunk.Constants.Ints, round.Constants.Ints)
	require.Equal(t, chunk.Constants.Floats, round.Constants.Floats)
	require.Equal(t, chunk.Exports, round.Exports)
	require.Equal(t, chunk.Main.Code, round.Main.Code)
	require.Equal(t, chunk.Main.NumRegisters, round.Main.NumRegisters)
}

func TestDasmNestedFunctionRoundTrip(t *testing.T) {
	chunk := &compiler.Chunk{Name: "with_fn"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 2}
	var mainEm compiler.Emitter
	mainEm.Function(0, 0, 0)
	mainEm.Return(0)
	chunk.Main.Code = mainEm.Code

	var fnEm compiler.Emitter
	fnEm.SetNull(0)
	fnEm.Return(0)
	chunk.Prototypes = append(chunk.Prototypes, &compiler.Prototype{
		Name: "function", NumRegisters: 1, NumParams: 0, CaptureCount: 0, Code: fnEm.Code,
	})

	text := compiler.Dasm(chunk)
	round, err := compiler.Asm([]byte(text))
	require.NoError(t, err)
	require.Len(t, round.Prototypes, 1)
	require.Equal(t, chunk.Prototypes[0].Code, round.Prototypes[0].Code)
}

func TestAsmRejectsUnknownOpcode(t *testing.T) {
	_, err := compiler.Asm([]byte("chunk: bad\nfunction: main 1 0 0\n\tcode:\n\t\tfrobnicate 1 2\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown opcode")
}

func TestAsmRejectsMissingHeader(t *testing.T) {
	_, err := compiler.Asm([]byte("function: main 1 0 0\n\tcode:\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected 'chunk:' header")
}
