package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/parser"
	"github.com/mna/vela/lang/resolver"
)

func mustParse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := parser.Parse(t.Name(), []byte(src))
	require.NoError(t, err)
	return tree
}

func mainBody(t *testing.T, tree *ast.Tree) *ast.Node {
	t.Helper()
	main := tree.At(tree.Root())
	require.Equal(t, ast.MainBlock, main.Kind)
	return tree.At(main.A)
}

func TestResolveLocalAssignmentReusesSlot(t *testing.T) {
	tree := mustParse(t, "a = 1\na = a + 1\n")
	res, err := resolver.Resolve(tree)
	require.NoError(t, err)

	body := mainBody(t, tree)
	stmts := tree.ExtraSlice(body.Extra)
	require.Len(t, stmts, 2)

	first := tree.At(stmts[0])
	require.Equal(t, ast.Assign, first.Kind)
	target := tree.At(first.A)
	kind, slot := resolver.DecodeBinding(target.Int)
	require.Equal(t, resolver.Local, kind)
	require.Equal(t, 0, slot)

	second := tree.At(stmts[1])
	target2 := tree.At(second.A)
	kind2, slot2 := resolver.DecodeBinding(target2.Int)
	require.Equal(t, resolver.Local, kind2)
	require.Equal(t, slot, slot2)

	rhs := tree.At(second.B)
	require.Equal(t, ast.BinaryOp, rhs.Kind)
	use := tree.At(rhs.A)
	useKind, useSlot := resolver.DecodeBinding(use.Int)
	require.Equal(t, resolver.Local, useKind)
	require.Equal(t, slot, useSlot)

	info := res.Funcs[tree.Root()]
	require.NotNil(t, info)
	require.Equal(t, 1, info.NumRegisters)
}

func TestResolveUnknownNameIsGlobal(t *testing.T) {
	tree := mustParse(t, "print(missing)\n")
	_, err := resolver.Resolve(tree)
	require.NoError(t, err)

	body := mainBody(t, tree)
	stmts := tree.ExtraSlice(body.Extra)
	lookup := tree.At(stmts[0])
	require.Equal(t, ast.Lookup, lookup.Kind)
	steps := tree.ExtraSlice(lookup.Extra)
	require.Len(t, steps, 1)
	call := tree.At(steps[0])
	require.Equal(t, ast.Call, call.Kind)
	args := tree.ExtraSlice(call.Extra)
	require.Len(t, args, 1)
	arg := tree.At(args[0])
	kind, _ := resolver.DecodeBinding(arg.Int)
	require.Equal(t, resolver.Global, kind)
}

func TestResolveClosureCapturesParentLocal(t *testing.T) {
	src := "x = 1\nf = || x + 1\n"
	tree := mustParse(t, src)
	res, err := resolver.Resolve(tree)
	require.NoError(t, err)

	body := mainBody(t, tree)
	stmts := tree.ExtraSlice(body.Extra)
	assignF := tree.At(stmts[1])
	fn := tree.At(assignF.B)
	require.Equal(t, ast.FunctionLit, fn.Kind)

	fnInfo := res.Funcs[assignF.B]
	require.NotNil(t, fnInfo)
	require.Len(t, fnInfo.Upvalues, 1)
	require.Equal(t, "x", fnInfo.Upvalues[0].Name)
	require.True(t, fnInfo.Upvalues[0].FromParentLocal)

	fnBody := tree.At(fn.A)
	inner := tree.At(tree.ExtraSlice(fnBody.Extra)[0])
	require.Equal(t, ast.BinaryOp, inner.Kind)
	use := tree.At(inner.A)
	kind, idx := resolver.DecodeBinding(use.Int)
	require.Equal(t, resolver.Upvalue, kind)
	require.Equal(t, 0, idx)
}

func TestResolveNestedClosureChainsUpvalue(t *testing.T) {
	src := "x = 1\nouter = || (|| x)\n"
	tree := mustParse(t, src)
	res, err := resolver.Resolve(tree)
	require.NoError(t, err)

	body := mainBody(t, tree)
	stmts := tree.ExtraSlice(body.Extra)
	assignOuter := tree.At(stmts[1])
	outerFn := tree.At(assignOuter.B)
	require.Equal(t, ast.FunctionLit, outerFn.Kind)

	outerInfo := res.Funcs[assignOuter.B]
	require.NotNil(t, outerInfo)
	require.Len(t, outerInfo.Upvalues, 1)
	require.True(t, outerInfo.Upvalues[0].FromParentLocal)

	outerBody := tree.At(outerFn.A)
	innerNested := tree.At(tree.ExtraSlice(outerBody.Extra)[0])
	require.Equal(t, ast.Nested, innerNested.Kind)
	innerFn := tree.At(innerNested.A)
	require.Equal(t, ast.FunctionLit, innerFn.Kind)

	innerInfo := res.Funcs[innerNested.A]
	require.NotNil(t, innerInfo)
	require.Len(t, innerInfo.Upvalues, 1)
	require.False(t, innerInfo.Upvalues[0].FromParentLocal)
}

func TestResolveFunctionParametersGetDistinctSlots(t *testing.T) {
	tree := mustParse(t, "add = |a, b| a + b\n")
	res, err := resolver.Resolve(tree)
	require.NoError(t, err)

	body := mainBody(t, tree)
	assign := tree.At(tree.ExtraSlice(body.Extra)[0])
	fn := tree.At(assign.B)
	params := tree.ExtraSlice(fn.Extra)
	require.Len(t, params, 2)

	aKind, aSlot := resolver.DecodeBinding(tree.At(params[0]).Int)
	bKind, bSlot := resolver.DecodeBinding(tree.At(params[1]).Int)
	require.Equal(t, resolver.Local, aKind)
	require.Equal(t, resolver.Local, bKind)
	require.NotEqual(t, aSlot, bSlot)

	info := res.Funcs[assign.B]
	require.NotNil(t, info)
	require.Equal(t, 2, info.NumRegisters)
}

func TestResolveForLoopVariableIsLocal(t *testing.T) {
	tree := mustParse(t, "for x in items\n  debug x\n")
	_, err := resolver.Resolve(tree)
	require.NoError(t, err)

	body := mainBody(t, tree)
	forNode := tree.At(tree.ExtraSlice(body.Extra)[0])
	require.Equal(t, ast.For, forNode.Kind)
	vars := tree.ExtraSlice(forNode.Extra)
	require.Len(t, vars, 1)
	kind, _ := resolver.DecodeBinding(tree.At(vars[0]).Int)
	require.Equal(t, resolver.Local, kind)
}

func TestResolveLookupFieldNameIsNotAVariable(t *testing.T) {
	tree := mustParse(t, "obj = 1\nobj.field\n")
	_, err := resolver.Resolve(tree)
	require.NoError(t, err)

	body := mainBody(t, tree)
	stmts := tree.ExtraSlice(body.Extra)
	lookup := tree.At(stmts[1])
	require.Equal(t, ast.Lookup, lookup.Kind)
	steps := tree.ExtraSlice(lookup.Extra)
	require.Len(t, steps, 1)
	field := tree.At(steps[0])
	require.Equal(t, ast.Id, field.Kind)
	require.Equal(t, "field", field.Str)
	require.EqualValues(t, 0, field.Int)
}
