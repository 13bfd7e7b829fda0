package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/vela/lang/scanner"
	"github.com/mna/vela/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []scanner.Value) {
	t.Helper()
	var s scanner.Scanner
	s.Init(t.Name(), []byte(src))

	var toks []token.Token
	var vals []scanner.Value
	for {
		tok, val, _ := s.Scan()
		toks = append(toks, tok)
		vals = append(vals, val)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, s.Errors())
	return toks, vals
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks, _ := scanAll(t, "( ) [ ] { } , : . @ $ .. ..= ... >> += -= *= /= %= == != <= >= < > + - * / %")
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACK, token.RBRACK, token.LBRACE, token.RBRACE,
		token.COMMA, token.COLON, token.DOT, token.AT, token.DOLLAR,
		token.RANGE, token.RANGE_INCL, token.ELLIPSIS, token.PIPE,
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ,
		token.EQEQ, token.NEQ, token.LE, token.GE, token.LT, token.GT,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EOF,
	}
	require.Equal(t, want, toks)
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks, vals := scanAll(t, "if then else foo_bar not self")
	require.Equal(t, []token.Token{token.IF, token.THEN, token.ELSE, token.IDENT, token.NOT, token.SELF, token.EOF}, toks)
	require.Equal(t, "foo_bar", vals[3].Raw)
}

func TestScanIntLiterals(t *testing.T) {
	toks, vals := scanAll(t, "0 42 0x1F 0o17 0b101 1_000")
	require.Equal(t, []token.Token{token.INT, token.INT, token.INT, token.INT, token.INT, token.INT, token.EOF}, toks)
	require.EqualValues(t, 0, vals[0].Int)
	require.EqualValues(t, 42, vals[1].Int)
	require.EqualValues(t, 31, vals[2].Int)
	require.EqualValues(t, 15, vals[3].Int)
	require.EqualValues(t, 5, vals[4].Int)
	require.EqualValues(t, 1000, vals[5].Int)
}

func TestScanFloatLiterals(t *testing.T) {
	toks, vals := scanAll(t, "3.14 1e10 1.5e-3")
	require.Equal(t, []token.Token{token.FLOAT, token.FLOAT, token.FLOAT, token.EOF}, toks)
	require.InDelta(t, 3.14, vals[0].Float, 1e-9)
	require.InDelta(t, 1e10, vals[1].Float, 1)
	require.InDelta(t, 1.5e-3, vals[2].Float, 1e-9)
}

func TestScanSimpleString(t *testing.T) {
	toks, vals := scanAll(t, `"hello\nworld"`)
	require.Equal(t, []token.Token{token.STRING, token.EOF}, toks)
	require.False(t, vals[0].String.HasInter)
	require.Equal(t, "hello\nworld", vals[0].String.Literal)
}

func TestScanInterpolatedString(t *testing.T) {
	toks, vals := scanAll(t, `"hi $name, ${1 + 2}!"`)
	require.Equal(t, []token.Token{token.STRING, token.EOF}, toks)
	sv := vals[0].String
	require.True(t, sv.HasInter)

	var gotExprs []string
	for _, f := range sv.Frags {
		if f.IsExpr {
			gotExprs = append(gotExprs, f.Expr)
		}
	}
	require.Equal(t, []string{"name", "1 + 2"}, gotExprs)
}

func TestScanLineComment(t *testing.T) {
	toks, _ := scanAll(t, "1 -- trailing comment\n2")
	require.Equal(t, []token.Token{token.INT, token.INT, token.EOF}, toks)
}

func TestScanBlockComment(t *testing.T) {
	toks, _ := scanAll(t, "1 --[[ a block\ncomment ]] 2")
	require.Equal(t, []token.Token{token.INT, token.INT, token.EOF}, toks)
}

func TestScanIndentTracking(t *testing.T) {
	var s scanner.Scanner
	s.Init(t.Name(), []byte("a\n  b\n    c"))

	_, _, sp0 := s.Scan()
	require.EqualValues(t, 1, sp0.Indent)
	_, _, sp1 := s.Scan()
	require.EqualValues(t, 3, sp1.Indent)
	_, _, sp2 := s.Scan()
	require.EqualValues(t, 5, sp2.Indent)
}

func TestScanIllegalCharacter(t *testing.T) {
	var s scanner.Scanner
	s.Init(t.Name(), []byte("1 ~ 2"))
	for {
		tok, _, _ := s.Scan()
		if tok == token.EOF {
			break
		}
	}
	require.NotEmpty(t, s.Errors())
}

func TestScanUnterminatedString(t *testing.T) {
	var s scanner.Scanner
	s.Init(t.Name(), []byte(`"unterminated`))
	for {
		tok, _, _ := s.Scan()
		if tok == token.EOF {
			break
		}
	}
	require.NotEmpty(t, s.Errors())
}
