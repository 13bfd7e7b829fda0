package parser

import (
	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/token"
)

// parseMain parses the whole chunk as the implicit top-level function body
// and appends the resulting MainBlock as the tree's root node.
func (p *parser) parseMain() {
	start := p.span.Start
	col := p.span.Indent
	ctx := ExpressionContext{AllowSpaceSeparatedCall: true, AllowMapBlock: true, Indent: Equal, IndentColumn: col}

	var stmts []ast.Index
	for p.tok != token.EOF {
		stmts = append(stmts, p.parseStatementRecover(ctx))
	}

	end := start
	if len(stmts) > 0 {
		end = p.tree.At(stmts[len(stmts)-1]).Span.End
	}
	body := p.tree.Add(ast.Node{
		Kind:  ast.Block,
		Extra: p.tree.AddExtra(stmts...),
		Span:  token.Span{Start: start, End: end},
	})
	p.tree.Add(ast.Node{Kind: ast.MainBlock, A: body, Span: token.Span{Start: start, End: end}})
}

// parseIndentedBlock parses a new nested block: the next token must be
// indented strictly past parentCol, and every statement of the block must
// line up at that new column.
func (p *parser) parseIndentedBlock(parentCol int32) ast.Index {
	start := p.span.Start
	if p.span.Indent <= parentCol {
		p.errorf(start, "expected an indented block")
		return p.tree.Add(ast.Node{Kind: ast.Block, Span: token.Span{Start: start, End: start}})
	}

	col := p.span.Indent
	bodyCtx := ExpressionContext{AllowSpaceSeparatedCall: true, AllowMapBlock: true, Indent: Equal, IndentColumn: col}
	var stmts []ast.Index
	for p.span.Indent == col && p.tok != token.EOF {
		stmts = append(stmts, p.parseStatementRecover(bodyCtx))
	}

	end := start
	if len(stmts) > 0 {
		end = p.tree.At(stmts[len(stmts)-1]).Span.End
	}
	return p.tree.Add(ast.Node{
		Kind:  ast.Block,
		Extra: p.tree.AddExtra(stmts...),
		Span:  token.Span{Start: start, End: end},
	})
}

// parseStatementRecover parses a single statement, recovering from a
// syntax error by skipping tokens up to the next statement boundary (the
// same indent column as ctx, or EOF) so the parser can keep reporting
// further errors in one pass instead of aborting at the first one.
func (p *parser) parseStatementRecover(ctx ExpressionContext) (ix ast.Index) {
	start := p.span.Start
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			p.advance()
			for p.tok != token.EOF && p.span.Indent != ctx.IndentColumn {
				p.advance()
			}
			ix = p.tree.Add(ast.Node{Kind: ast.NullLit, Span: token.Span{Start: start, End: p.span.Start}})
		}
	}()
	return p.parseStatement(ctx)
}
