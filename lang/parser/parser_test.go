package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/parser"
)

func mustParse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := parser.Parse(t.Name(), []byte(src))
	require.NoError(t, err)
	return tree
}

func root(t *testing.T, tree *ast.Tree) *ast.Node {
	t.Helper()
	main := tree.At(tree.Root())
	require.Equal(t, ast.MainBlock, main.Kind)
	return tree.At(main.A)
}

func TestParseLiteralsAndArithmetic(t *testing.T) {
	tree := mustParse(t, "1 + 2 * 3")
	block := root(t, tree)
	require.Equal(t, 1, block.Extra.Len())
	expr := tree.At(tree.ExtraSlice(block.Extra)[0])
	require.Equal(t, ast.BinaryOp, expr.Kind)
	require.Equal(t, ast.BinAdd, ast.BinOp(expr.Int))

	rhs := tree.At(expr.B)
	require.Equal(t, ast.BinaryOp, rhs.Kind)
	require.Equal(t, ast.BinMultiply, ast.BinOp(rhs.Int))
}

func TestParseChainedComparisonRightAssociative(t *testing.T) {
	tree := mustParse(t, "a < b < c")
	block := root(t, tree)
	expr := tree.At(tree.ExtraSlice(block.Extra)[0])
	require.Equal(t, ast.BinaryOp, expr.Kind)
	require.Equal(t, ast.BinLess, ast.BinOp(expr.Int))

	// right-associative: a < (b < c)
	lhs := tree.At(expr.A)
	require.Equal(t, ast.Id, lhs.Kind)
	rhs := tree.At(expr.B)
	require.Equal(t, ast.BinaryOp, rhs.Kind)
	require.Equal(t, ast.BinLess, ast.BinOp(rhs.Int))
}

func TestParsePipeLowerThanCall(t *testing.T) {
	tree := mustParse(t, "f x >> g")
	block := root(t, tree)
	expr := tree.At(tree.ExtraSlice(block.Extra)[0])
	require.Equal(t, ast.Pipe, expr.Kind)

	lhs := tree.At(expr.A)
	require.Equal(t, ast.Lookup, lhs.Kind)
}

func TestParseIfElse(t *testing.T) {
	src := "if a\n  1\nelse\n  2\n"
	tree := mustParse(t, src)
	block := root(t, tree)
	ifIx := tree.ExtraSlice(block.Extra)[0]
	ifNode := tree.At(ifIx)
	require.Equal(t, ast.If, ifNode.Kind)
	require.NotEqual(t, ast.NoIndex, ifNode.C)
}

func TestParseFunctionLitAndCall(t *testing.T) {
	src := "add = |a, b| a + b\nadd(1, 2)\n"
	tree := mustParse(t, src)
	block := root(t, tree)
	stmts := tree.ExtraSlice(block.Extra)
	require.Len(t, stmts, 2)

	assign := tree.At(stmts[0])
	require.Equal(t, ast.Assign, assign.Kind)
	fn := tree.At(assign.B)
	require.Equal(t, ast.FunctionLit, fn.Kind)
	require.Equal(t, 2, fn.Extra.Len())

	call := tree.At(stmts[1])
	require.Equal(t, ast.Lookup, call.Kind)
}

func TestParseForLoop(t *testing.T) {
	src := "for x in items\n  debug x\n"
	tree := mustParse(t, src)
	block := root(t, tree)
	forNode := tree.At(tree.ExtraSlice(block.Extra)[0])
	require.Equal(t, ast.For, forNode.Kind)
}

func TestParseTryCatchFinally(t *testing.T) {
	src := "try\n  throw 1\ncatch e\n  debug e\nfinally\n  debug 0\n"
	tree := mustParse(t, src)
	block := root(t, tree)
	tryNode := tree.At(tree.ExtraSlice(block.Extra)[0])
	require.Equal(t, ast.Try, tryNode.Kind)
	require.Equal(t, "e", tryNode.Str)
	require.NotEqual(t, ast.NoIndex, tryNode.B)
	require.NotEqual(t, ast.NoIndex, tryNode.C)
}

func TestParseImportAndExport(t *testing.T) {
	src := "import math: sqrt\nexport value = 1\n"
	tree := mustParse(t, src)
	block := root(t, tree)
	stmts := tree.ExtraSlice(block.Extra)
	require.Len(t, stmts, 2)

	imp := tree.At(stmts[0])
	require.Equal(t, ast.ImportStmt, imp.Kind)
	require.Equal(t, "math", imp.Str)

	exp := tree.At(stmts[1])
	require.Equal(t, ast.ExportStmt, exp.Kind)
}

func TestParseInterpolatedString(t *testing.T) {
	tree := mustParse(t, `"hi ${1 + 2}"`)
	block := root(t, tree)
	str := tree.At(tree.ExtraSlice(block.Extra)[0])
	require.Equal(t, ast.Str, str.Kind)
	require.EqualValues(t, 1, str.Int)
}

func TestParseMultiAssign(t *testing.T) {
	tree := mustParse(t, "a, b = 1, 2\n")
	block := root(t, tree)
	ma := tree.At(tree.ExtraSlice(block.Extra)[0])
	require.Equal(t, ast.MultiAssign, ma.Kind)
	require.EqualValues(t, 2, ma.A)
}

func TestParseErrorRecoveryReportsErrorList(t *testing.T) {
	_, err := parser.Parse(t.Name(), []byte("1 +\n)\n"))
	require.Error(t, err)
}
