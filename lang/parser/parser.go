// Package parser implements the hand-written, indentation-sensitive
// recursive-descent/Pratt parser that turns source text into a flat,
// arena-indexed ast.Tree. It drives the scanner through a peek/next
// interface and is the component that cares about significant
// indentation: the scanner only hands back tokens annotated with their
// span and starting indent column, and this package uses that information
// via ExpressionContext to decide where an expression or block is allowed
// to continue.
package parser

import (
	"errors"
	"fmt"
	gotoken "go/token"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/scanner"
	"github.com/mna/vela/lang/token"
)

// Parse parses a single source chunk and returns its AST. The returned
// error, if non-nil, is a scanner.ErrorList collecting every diagnostic
// (parsing continues in panic-recovery mode after a syntax error so that
// as many errors as possible are reported in one pass).
func Parse(name string, src []byte) (*ast.Tree, error) {
	var p parser
	p.init(name, src)
	p.parseMain()
	p.tree.EOF = p.span.Start

	p.errs.Sort()
	return p.tree, p.errs.Err()
}

// errPanicMode unwinds the Go call stack back to the nearest statement
// boundary after a syntax error, the same recovery strategy the teacher's
// parser uses.
var errPanicMode = errors.New("parser panic")

type parser struct {
	scanner    scanner.Scanner
	tree       *ast.Tree
	errs       scanner.ErrorList
	copiedErrs int

	tok  token.Token
	val  scanner.Value
	span token.Span

	havePeek bool
	peekTok  token.Token
	peekVal  scanner.Value
	peekSpan token.Span

	frame *frameState
}

func (p *parser) init(name string, src []byte) {
	p.tree = ast.NewTree(name)
	p.scanner.Init(name, src)
	p.frame = newFrameState(nil)
	p.advance()
}

// rawScan pulls the next token directly from the scanner, copying over any
// newly reported scanner errors.
func (p *parser) rawScan() (token.Token, scanner.Value, token.Span) {
	tok, val, span := p.scanner.Scan()
	errs := p.scanner.Errors()
	for _, e := range errs[p.copiedErrs:] {
		p.errs.Add(e.Pos, e.Msg)
	}
	p.copiedErrs = len(errs)
	return tok, val, span
}

func (p *parser) advance() {
	if p.havePeek {
		p.tok, p.val, p.span = p.peekTok, p.peekVal, p.peekSpan
		p.havePeek = false
		return
	}
	p.tok, p.val, p.span = p.rawScan()
}

// peek returns the token following the current one without consuming it.
func (p *parser) peek() (token.Token, scanner.Value, token.Span) {
	if !p.havePeek {
		p.peekTok, p.peekVal, p.peekSpan = p.rawScan()
		p.havePeek = true
	}
	return p.peekTok, p.peekVal, p.peekSpan
}

// peekIsColonKey reports whether the current identifier/string token is
// immediately followed by a colon, the shape of a bare `key: value`
// block-map entry.
func (p *parser) peekIsColonKey() bool {
	tok, _, _ := p.peek()
	return tok == token.COLON
}

func (p *parser) error(pos token.Pos, msg string) {
	l, c := pos.LineCol()
	p.errs.Add(gotoken.Position{Filename: p.tree.Name, Line: l, Column: c}, msg)
}

func (p *parser) errorf(pos token.Pos, format string, args ...any) {
	p.error(pos, fmt.Sprintf(format, args...))
}

func (p *parser) errorExpected(pos token.Pos, what string) {
	p.errorf(pos, "expected %s, found %s", what, p.tok)
}

func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.span.Start
	if p.tok != tok {
		p.errorExpected(pos, tok.GoString())
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

func (p *parser) accept(tok token.Token) bool {
	if p.tok == tok {
		p.advance()
		return true
	}
	return false
}
