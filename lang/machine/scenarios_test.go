package machine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/vela/lang/compiler"
	"github.com/mna/vela/lang/machine"
	"github.com/mna/vela/lang/parser"
	"github.com/mna/vela/lang/resolver"
)

// runSource drives a program through the full parse/resolve/compile/run
// pipeline, the way a real script is executed end to end, as opposed to
// vm_test.go's hand-assembled chunks.
func runSource(t *testing.T, src string) machine.Value {
	t.Helper()
	tree, err := parser.Parse(t.Name(), []byte(src))
	require.NoError(t, err)
	res, err := resolver.Resolve(tree)
	require.NoError(t, err)
	chunk, err := compiler.Compile(t.Name(), tree, res)
	require.NoError(t, err)
	th := &machine.Thread{}
	v, err := th.Run(context.Background(), chunk)
	require.NoError(t, err)
	return v
}

func TestScenarioArithmeticPrecedence(t *testing.T) {
	v := runSource(t, "1 + 2 * 3\n")
	require.Equal(t, machine.Int(7), v)
}

func TestScenarioListAliasing(t *testing.T) {
	v := runSource(t, "x = [1, 2, 3]\ny = x\ny.push 4\nx.size()\n")
	require.Equal(t, machine.Int(4), v)
}

func TestScenarioGeneratorToTuple(t *testing.T) {
	src := "f = |n|\n  for i in 1..=n\n    yield i * i\nf(3).to_tuple()\n"
	v := runSource(t, src)
	tup, ok := v.(*machine.Tuple)
	require.True(t, ok, "expected a tuple, got %T", v)
	require.Equal(t, 3, tup.Len())
	require.Equal(t, machine.Int(1), tup.Index(0))
	require.Equal(t, machine.Int(4), tup.Index(1))
	require.Equal(t, machine.Int(9), tup.Index(2))
}

func TestScenarioTryCatchRecoversThrownValue(t *testing.T) {
	src := "try\n  throw \"boom\"\ncatch e\n  e\n"
	v := runSource(t, src)
	s, ok := v.(*machine.String)
	require.True(t, ok, "expected a string, got %T", v)
	require.Equal(t, "boom", s.Text())
}

func TestScenarioMatchTuplePatternBinding(t *testing.T) {
	src := "match (1, 2)\n  (0, _) then \"a\"\n  (1, x) then x\n"
	v := runSource(t, src)
	require.Equal(t, machine.Int(2), v)
}

func TestScenarioMatchOrAlternativeWithGuard(t *testing.T) {
	src := "match 4\n  1 or 2 then \"small\"\n  x if x % 2 == 0 then \"even\"\n  else then \"odd\"\n"
	v := runSource(t, src)
	s, ok := v.(*machine.String)
	require.True(t, ok, "expected a string, got %T", v)
	require.Equal(t, "even", s.Text())
}

func TestScenarioMatchMultiValueAndElse(t *testing.T) {
	src := "match 1, 2\n  0, 0 then \"zero\"\n  1, y then y\n  else then \"other\"\n"
	v := runSource(t, src)
	require.Equal(t, machine.Int(2), v)
}

func TestScenarioGraphemeAwareSlice(t *testing.T) {
	src := "s = \"héllo\"\ns[1..]\n"
	v := runSource(t, src)
	s, ok := v.(*machine.String)
	require.True(t, ok, "expected a string, got %T", v)
	require.Equal(t, "éllo", s.Text())
}
