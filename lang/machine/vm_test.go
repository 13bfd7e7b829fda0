package machine_test

import (
	"context"
	"testing"

	"github.com/mna/vela/lang/compiler"
	"github.com/mna/vela/lang/machine"
	"github.com/stretchr/testify/require"
)

func runChunk(t *testing.T, chunk *compiler.Chunk) (machine.Value, *machine.Thread) {
	t.Helper()
	th := &machine.Thread{}
	v, err := th.Run(context.Background(), chunk)
	require.NoError(t, err)
	return v, th
}

func TestArithmeticAndComparison(t *testing.T) {
	chunk := &compiler.Chunk{Name: "arith"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 4}

	var em compiler.Emitter
	em.SetNumber(0, 7)
	em.SetNumber(1, 3)
	em.Add(2, 0, 1)
	em.Mul(2, 2, 1)
	em.Lt(3, 1, 0) // r3 = 3 < 7 = true
	patch := em.Jump(compiler.JMPIFTRUE, 3, true)
	em.SetNumber(2, 999) // skipped, since r3 is true
	em.PatchJump(patch)
	em.Return(2)
	chunk.Main.Code = em.Code

	v, _ := runChunk(t, chunk)
	require.Equal(t, machine.Int(30), v)
}

func TestFunctionCall(t *testing.T) {
	chunk := &compiler.Chunk{Name: "call"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 3}

	var addEm compiler.Emitter
	addEm.Add(2, 0, 1)
	addEm.Return(2)
	addProto := &compiler.Prototype{Name: "add", Code: addEm.Code, NumRegisters: 3, NumParams: 2}
	chunk.Prototypes = append(chunk.Prototypes, addProto)

	var em compiler.Emitter
	em.Function(0, 0, 0) // r0 = function add
	em.SetNumber(1, 4)
	em.SetNumber(2, 5)
	em.Call(1, 0, 1, 2) // r1 = add(r1, r2)
	em.Return(1)
	chunk.Main.Code = em.Code

	v, _ := runChunk(t, chunk)
	require.Equal(t, machine.Int(9), v)
}

func TestClosureCapture(t *testing.T) {
	chunk := &compiler.Chunk{Name: "closure"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 2}

	// the captured upvalue occupies the register tail, after NumRegisters.
	var innerEm compiler.Emitter
	innerEm.Copy(0, 1) // register 1 is the capture slot (NumRegisters=1, CaptureCount=1)
	innerEm.Return(0)
	innerProto := &compiler.Prototype{Name: "inner", Code: innerEm.Code, NumRegisters: 1, NumParams: 0, CaptureCount: 1}
	chunk.Prototypes = append(chunk.Prototypes, innerProto)

	var em compiler.Emitter
	em.SetNumber(0, 42)
	em.Function(1, 0, 1) // r1 = function inner, 1 capture
	em.Capture(1, 0, 0)  // inner's capture slot 0 <- r0 (42)
	em.Call(0, 1, 0, 0)  // r0 = inner()
	em.Return(0)
	chunk.Main.Code = em.Code

	v, _ := runChunk(t, chunk)
	require.Equal(t, machine.Int(42), v)
}

func TestTryCatchRecovers(t *testing.T) {
	chunk := &compiler.Chunk{Name: "trycatch"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 2}

	var em compiler.Emitter
	patch := em.TryStart(1) // catch arg -> r1
	em.SetNumber(0, 99)
	em.Throw(0)
	em.PatchJump(patch)
	em.TryEnd()
	em.Return(1)
	chunk.Main.Code = em.Code

	v, _ := runChunk(t, chunk)
	require.Equal(t, machine.Int(99), v)
}

func TestUncaughtThrowPropagatesWithTraceback(t *testing.T) {
	chunk := &compiler.Chunk{Name: "uncaught"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 2}

	var innerEm compiler.Emitter
	innerEm.SetNumber(0, 1)
	innerEm.Throw(0)
	innerProto := &compiler.Prototype{Name: "fails", Code: innerEm.Code, NumRegisters: 1, NumParams: 0}
	chunk.Prototypes = append(chunk.Prototypes, innerProto)

	var em compiler.Emitter
	em.Function(0, 0, 0)
	em.Call(1, 0, 0, 0)
	em.Return(1)
	chunk.Main.Code = em.Code

	th := &machine.Thread{}
	_, err := th.Run(context.Background(), chunk)
	require.Error(t, err)
	var ee *machine.EvalError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, machine.Int(1), ee.Thrown)
	require.Len(t, ee.Trace, 2)
}

func TestGeneratorYieldsAcrossResumes(t *testing.T) {
	chunk := &compiler.Chunk{Name: "gen"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 1}

	var genEm compiler.Emitter
	genEm.SetNumber(0, 1)
	genEm.Yield(0)
	genEm.SetNumber(0, 2)
	genEm.Yield(0)
	genEm.SetNumber(0, 3)
	genEm.Return(0)
	genProto := &compiler.Prototype{
		Name: "gen", Code: genEm.Code, NumRegisters: 1, NumParams: 0,
		Flags: compiler.FlagGenerator,
	}
	chunk.Prototypes = append(chunk.Prototypes, genProto)

	var em compiler.Emitter
	em.Function(0, 0, 0)
	em.Return(0)
	chunk.Main.Code = em.Code

	th := &machine.Thread{}
	v, err := th.Run(context.Background(), chunk)
	require.NoError(t, err)
	fn, ok := v.(*machine.Function)
	require.True(t, ok)

	g, err := machine.Call(th, fn, nil)
	require.NoError(t, err)
	gen, ok := g.(*machine.Generator)
	require.True(t, ok)

	// the final Return's value ends the generator without itself being
	// produced by Next, matching the iterator protocol's "exhausted" signal
	// carrying no value.
	var got []machine.Value
	var p machine.Value
	for gen.Next(&p) {
		got = append(got, p)
	}
	require.Equal(t, []machine.Value{machine.Int(1), machine.Int(2)}, got)
}

func TestIterationOverRange(t *testing.T) {
	chunk := &compiler.Chunk{Name: "iter"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 6}

	var em compiler.Emitter
	// sum := 0; for x in 0..5 { sum += x }
	em.SetNumber(0, 0) // sum
	em.SetNumber(1, 0) // lo
	em.SetNumber(2, 5) // hi
	em.Range(3, 1, 2)  // r3 = 0..5
	em.MakeIterator(4, 3)
	loopStart := em.Len()
	patch := em.IterNext(true, 5, 4, false)
	em.AddAssign(0, 5)
	em.JumpBack(loopStart)
	em.PatchJump(patch)
	em.Return(0)
	chunk.Main.Code = em.Code

	v, _ := runChunk(t, chunk)
	require.Equal(t, machine.Int(10), v) // 0+1+2+3+4
}

func TestMetaAddOverload(t *testing.T) {
	chunk := &compiler.Chunk{Name: "metaadd"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 3}

	// @+ (x, y) => 1000, regardless of its operands: proves that ADD
	// dispatches to the meta entry instead of falling back to the built-in
	// numeric/string behavior (which would error, since a map has none).
	var alwaysEm compiler.Emitter
	alwaysEm.SetNumber(0, 1000)
	alwaysEm.Return(0)
	alwaysProto := &compiler.Prototype{Name: "always_1000", Code: alwaysEm.Code, NumRegisters: 1, NumParams: 2}
	chunk.Prototypes = append(chunk.Prototypes, alwaysProto)

	var em compiler.Emitter
	em.MakeMap(0, 1)
	em.Function(1, 0, 0)
	em.MetaInsert(0, 1, byte(machine.MetaAdd))
	em.SetNumber(2, 7)
	em.Add(2, 0, 2) // r0 (map with @+) + r2 (7) -> dispatches to the meta fn
	em.Return(2)
	chunk.Main.Code = em.Code

	v, _ := runChunk(t, chunk)
	require.Equal(t, machine.Int(1000), v)
}

func TestExportsRecorded(t *testing.T) {
	chunk := &compiler.Chunk{Name: "exports", Exports: []string{"answer"}}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 2}

	var em compiler.Emitter
	nameIx := chunk.Constants.AddString("answer")
	em.LoadString(0, nameIx)
	em.SetNumber(1, 42)
	em.ValueExport(0, 1)
	em.Return(1)
	chunk.Main.Code = em.Code

	_, th := runChunk(t, chunk)
	require.Equal(t, machine.Int(42), th.Exports()["answer"])
}

func TestStringConcatAndDisplay(t *testing.T) {
	chunk := &compiler.Chunk{Name: "strings"}
	chunk.Main = &compiler.Prototype{Name: "main", NumRegisters: 3}

	var em compiler.Emitter
	s1 := chunk.Constants.AddString("hello ")
	s2 := chunk.Constants.AddString("world")
	em.LoadString(0, s1)
	em.LoadString(1, s2)
	em.Add(2, 0, 1)
	em.Return(2)
	chunk.Main.Code = em.Code

	v, _ := runChunk(t, chunk)
	require.Equal(t, "hello world", v.(*machine.String).Text())
}
