package parser

import (
	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/token"
)

// parseStringLit turns the current STRING token into a Str node. A plain
// string becomes a single node with Str set to its decoded text. An
// interpolated string (HasInter) instead records its fragments in
// Tree.StringFrags and sets Int to 1 and A/B to the range addressing them; each
// embedded `${expr}`/`$id` fragment's raw source is re-entered through a
// fresh sub-parser so it produces its own expression subtree.
func (p *parser) parseStringLit() ast.Index {
	pos := p.span.Start
	sv := p.val.String
	p.advance()

	if !sv.HasInter {
		return p.tree.Add(ast.Node{Kind: ast.Str, Str: sv.Literal, Span: token.Span{Start: pos, End: pos}})
	}

	start := uint32(len(p.tree.StringFrags))
	for _, f := range sv.Frags {
		if !f.IsExpr {
			p.tree.StringFrags = append(p.tree.StringFrags, ast.StringFrag{Lit: f.Lit})
			continue
		}
		exprIx := p.parseSubExpr(f.Expr)
		p.tree.StringFrags = append(p.tree.StringFrags, ast.StringFrag{IsExpr: true, Expr: exprIx})
	}
	end := uint32(len(p.tree.StringFrags))

	return p.tree.Add(ast.Node{
		Kind: ast.Str,
		Int:  1,
		Span: token.Span{Start: pos, End: pos},
		A:    ast.Index(start),
		B:    ast.Index(end),
	})
}

// parseSubExpr re-enters expression parsing over raw source captured by
// the scanner for an interpolated string fragment, appending the result
// into the same tree and arena as the enclosing parse.
func (p *parser) parseSubExpr(src string) ast.Index {
	var sub parser
	sub.tree = p.tree
	sub.scanner.Init(p.tree.Name, []byte(src))
	sub.frame = p.frame
	sub.advance()

	ix := sub.parseExpr(defaultContext().nested())
	for _, e := range sub.scanner.Errors() {
		p.errs.Add(e.Pos, e.Msg)
	}
	for _, e := range sub.errs {
		p.errs.Add(e.Pos, e.Msg)
	}
	return ix
}
