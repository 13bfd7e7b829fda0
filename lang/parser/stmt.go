package parser

import (
	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/token"
)

func (p *parser) parseStatement(ctx ExpressionContext) ast.Index {
	switch p.tok {
	case token.IF:
		return p.parseIf(ctx)
	case token.MATCH:
		return p.parseMatch(ctx)
	case token.SWITCH:
		return p.parseSwitch(ctx)
	case token.FOR:
		return p.parseFor(ctx)
	case token.WHILE:
		return p.parseWhile(ctx)
	case token.UNTIL:
		return p.parseUntil(ctx)
	case token.LOOP:
		return p.parseLoop(ctx)
	case token.BREAK:
		return p.parseBreak(ctx)
	case token.CONTINUE:
		return p.parseContinue()
	case token.RETURN:
		return p.parseReturn(ctx)
	case token.YIELD:
		return p.parseYield(ctx)
	case token.THROW:
		return p.parseThrow(ctx)
	case token.TRY:
		return p.parseTry(ctx)
	case token.IMPORT:
		return p.parseImport()
	case token.FROM:
		return p.parseFromImport()
	case token.EXPORT:
		return p.parseExport(ctx)
	case token.DEBUG:
		return p.parseDebug(ctx)
	default:
		return p.parseExprOrAssign(ctx)
	}
}

func (p *parser) parseIf(ctx ExpressionContext) ast.Index {
	start := p.expect(token.IF)
	cond := p.parseExpr(ctx.restricted())

	var thenIx ast.Index
	if p.accept(token.THEN) {
		thenExpr := p.parseExpr(ctx)
		thenIx = p.tree.Add(ast.Node{
			Kind:  ast.Block,
			Extra: p.tree.AddExtra(thenExpr),
			Span:  p.tree.At(thenExpr).Span,
		})
	} else {
		thenIx = p.parseIndentedBlock(ctx.IndentColumn)
	}

	elseIx := ast.NoIndex
	end := p.tree.At(thenIx).Span.End
	if p.tok == token.ELSE && p.span.Indent == ctx.IndentColumn {
		p.advance()
		switch {
		case p.tok == token.IF:
			elseIx = p.parseIf(ctx)
		case p.accept(token.THEN):
			elseExpr := p.parseExpr(ctx)
			elseIx = p.tree.Add(ast.Node{
				Kind:  ast.Block,
				Extra: p.tree.AddExtra(elseExpr),
				Span:  p.tree.At(elseExpr).Span,
			})
		default:
			elseIx = p.parseIndentedBlock(ctx.IndentColumn)
		}
		end = p.tree.At(elseIx).Span.End
	}

	return p.tree.Add(ast.Node{Kind: ast.If, A: cond, B: thenIx, C: elseIx, Span: token.Span{Start: start, End: end}})
}

func (p *parser) parseSwitch(ctx ExpressionContext) ast.Index {
	start := p.expect(token.SWITCH)
	col := p.span.Indent
	var arms []ast.Index
	for p.span.Indent == col {
		var cond ast.Index
		if p.tok == token.ELSE {
			p.advance()
			cond = ast.NoIndex
		} else {
			cond = p.parseExpr(ctx.restricted())
		}
		block := p.parseThenOrIndentedBlock(ctx, col)
		arms = append(arms, cond, block)
	}
	end := start
	if len(arms) > 0 {
		end = p.tree.At(arms[len(arms)-1]).Span.End
	}
	return p.tree.Add(ast.Node{Kind: ast.Switch, Extra: p.tree.AddExtra(arms...), Span: token.Span{Start: start, End: end}})
}

// parseThenOrIndentedBlock parses a switch/match arm's body: either a
// single expression on the same line after `then`, wrapped in a Block the
// same way parseIf wraps its own inline `then expr` form, or an indented
// block started on a following line at col.
func (p *parser) parseThenOrIndentedBlock(ctx ExpressionContext, col int32) ast.Index {
	if p.accept(token.THEN) {
		expr := p.parseExpr(ctx)
		return p.tree.Add(ast.Node{
			Kind:  ast.Block,
			Extra: p.tree.AddExtra(expr),
			Span:  p.tree.At(expr).Span,
		})
	}
	return p.parseIndentedBlock(col)
}

func (p *parser) parseMatch(ctx ExpressionContext) ast.Index {
	start := p.expect(token.MATCH)
	scrutinee := p.parseMatchValueList(ctx)
	col := p.span.Indent
	var arms []ast.Index
	for p.span.Indent == col {
		pattern, guard, block := p.parseMatchArm(ctx, col)
		arms = append(arms, pattern, guard, block)
	}
	end := start
	if len(arms) > 0 {
		end = p.tree.At(arms[len(arms)-1]).Span.End
	}
	return p.tree.Add(ast.Node{Kind: ast.Match, A: scrutinee, Extra: p.tree.AddExtra(arms...), Span: token.Span{Start: start, End: end}})
}

// parseMatchValueList parses the one or more comma-separated values being
// matched against. `match a, b` matches a 2-element tuple per arm, exactly
// like `0, 1` in an arm's pattern list; more than one value is wrapped in a
// TempTuple so the scrutinee and each arm's pattern group line up shape for
// shape.
func (p *parser) parseMatchValueList(ctx ExpressionContext) ast.Index {
	first := p.parseExpr(ctx.restricted())
	if p.tok != token.COMMA {
		return first
	}
	values := []ast.Index{first}
	for p.accept(token.COMMA) {
		values = append(values, p.parseExpr(ctx.restricted()))
	}
	return p.tree.Add(ast.Node{
		Kind:  ast.TempTuple,
		Extra: p.tree.AddExtra(values...),
		Span:  token.Span{Start: p.tree.At(first).Span.Start, End: p.tree.At(values[len(values)-1]).Span.End},
	})
}

// parseMatchArm parses one match arm: a final catch-all `else` (pattern and
// guard both NoIndex), or one or more `or`-separated pattern groups (each
// itself one or more comma-separated patterns) followed by an optional `if
// guard` and the arm's body.
func (p *parser) parseMatchArm(ctx ExpressionContext, col int32) (pattern, guard, block ast.Index) {
	if p.tok == token.ELSE {
		p.advance()
		block = p.parseThenOrIndentedBlock(ctx, col)
		return ast.NoIndex, ast.NoIndex, block
	}

	groups := []ast.Index{p.parseMatchPatternGroup(ctx)}
	for p.accept(token.OR) {
		groups = append(groups, p.parseMatchPatternGroup(ctx))
	}
	if len(groups) == 1 {
		pattern = groups[0]
	} else {
		pattern = p.tree.Add(ast.Node{
			Kind:  ast.MatchOr,
			Extra: p.tree.AddExtra(groups...),
			Span:  token.Span{Start: p.tree.At(groups[0]).Span.Start, End: p.tree.At(groups[len(groups)-1]).Span.End},
		})
	}

	guard = ast.NoIndex
	if p.accept(token.IF) {
		guard = p.parseExpr(ctx.restricted())
	}

	block = p.parseThenOrIndentedBlock(ctx, col)
	return pattern, guard, block
}

// parseMatchPatternGroup parses one comma-separated group of patterns
// within an arm (`0, 1` matching a 2-element tuple scrutinee), wrapping
// more than one in a TempTuple to match parseMatchValueList's scrutinee
// shape.
func (p *parser) parseMatchPatternGroup(ctx ExpressionContext) ast.Index {
	first := p.parseMatchPattern(ctx)
	if p.tok != token.COMMA {
		return first
	}
	patterns := []ast.Index{first}
	for p.accept(token.COMMA) {
		patterns = append(patterns, p.parseMatchPattern(ctx))
	}
	return p.tree.Add(ast.Node{
		Kind:  ast.TempTuple,
		Extra: p.tree.AddExtra(patterns...),
		Span:  token.Span{Start: p.tree.At(first).Span.Start, End: p.tree.At(patterns[len(patterns)-1]).Span.End},
	})
}

// parseMatchPattern parses a single pattern: a bare wildcard, or an
// expression restricted to stop short of `or` (minPrecedenceAfterOr), since
// `or` between patterns separates alternatives rather than combining two
// boolean expressions — `1 or 2 then ...` means "matches 1 or matches 2",
// never a pattern that tests equality against the result of `1 or 2`.
func (p *parser) parseMatchPattern(ctx ExpressionContext) ast.Index {
	if p.tok == token.IDENT && p.val.Raw == "_" {
		pos := p.span.Start
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.Wildcard, Span: token.Span{Start: pos, End: pos}})
	}
	return p.parseExprPrec(ctx.restricted(), minPrecedenceAfterOr)
}

func (p *parser) parseFor(ctx ExpressionContext) ast.Index {
	start := p.expect(token.FOR)
	var vars []ast.Index
	for {
		vars = append(vars, p.parseParam())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.IN)
	iterable := p.parseExpr(ctx.restricted())
	body := p.parseIndentedBlock(ctx.IndentColumn)
	return p.tree.Add(ast.Node{
		Kind:  ast.For,
		A:     iterable,
		B:     body,
		Extra: p.tree.AddExtra(vars...),
		Span:  token.Span{Start: start, End: p.tree.At(body).Span.End},
	})
}

func (p *parser) parseWhile(ctx ExpressionContext) ast.Index {
	start := p.expect(token.WHILE)
	cond := p.parseExpr(ctx.restricted())
	body := p.parseIndentedBlock(ctx.IndentColumn)
	return p.tree.Add(ast.Node{Kind: ast.While, A: cond, B: body, Span: token.Span{Start: start, End: p.tree.At(body).Span.End}})
}

func (p *parser) parseUntil(ctx ExpressionContext) ast.Index {
	start := p.expect(token.UNTIL)
	cond := p.parseExpr(ctx.restricted())
	body := p.parseIndentedBlock(ctx.IndentColumn)
	return p.tree.Add(ast.Node{Kind: ast.Until, A: cond, B: body, Span: token.Span{Start: start, End: p.tree.At(body).Span.End}})
}

func (p *parser) parseLoop(ctx ExpressionContext) ast.Index {
	start := p.expect(token.LOOP)
	body := p.parseIndentedBlock(ctx.IndentColumn)
	return p.tree.Add(ast.Node{Kind: ast.Loop, A: body, Span: token.Span{Start: start, End: p.tree.At(body).Span.End}})
}

func (p *parser) parseBreak(ctx ExpressionContext) ast.Index {
	start := p.expect(token.BREAK)
	val := ast.NoIndex
	end := start
	if p.startsSpaceCallArg(ctx) {
		val = p.parseExpr(ctx)
		end = p.tree.At(val).Span.End
	}
	return p.tree.Add(ast.Node{Kind: ast.Break, A: val, Span: token.Span{Start: start, End: end}})
}

func (p *parser) parseContinue() ast.Index {
	start := p.expect(token.CONTINUE)
	return p.tree.Add(ast.Node{Kind: ast.Continue, Span: token.Span{Start: start, End: start}})
}

func (p *parser) parseReturn(ctx ExpressionContext) ast.Index {
	start := p.expect(token.RETURN)
	val := ast.NoIndex
	end := start
	if p.startsSpaceCallArg(ctx) {
		val = p.parseExpr(ctx)
		end = p.tree.At(val).Span.End
	}
	return p.tree.Add(ast.Node{Kind: ast.Return, A: val, Span: token.Span{Start: start, End: end}})
}

func (p *parser) parseYield(ctx ExpressionContext) ast.Index {
	start := p.expect(token.YIELD)
	val := p.parseExpr(ctx)
	if p.frame != nil {
		p.frame.isGenerator = true
	}
	return p.tree.Add(ast.Node{Kind: ast.Yield, A: val, Span: token.Span{Start: start, End: p.tree.At(val).Span.End}})
}

func (p *parser) parseThrow(ctx ExpressionContext) ast.Index {
	start := p.expect(token.THROW)
	val := p.parseExpr(ctx)
	return p.tree.Add(ast.Node{Kind: ast.Throw, A: val, Span: token.Span{Start: start, End: p.tree.At(val).Span.End}})
}

func (p *parser) parseTry(ctx ExpressionContext) ast.Index {
	start := p.expect(token.TRY)
	tryBlock := p.parseIndentedBlock(ctx.IndentColumn)

	catchIx := ast.NoIndex
	var catchName string
	finallyIx := ast.NoIndex
	end := p.tree.At(tryBlock).Span.End

	if p.tok == token.CATCH && p.span.Indent == ctx.IndentColumn {
		p.advance()
		if p.tok == token.IDENT {
			catchName = p.val.Raw
			p.advance()
			p.frame.declareAssignment(catchName)
		}
		catchIx = p.parseIndentedBlock(ctx.IndentColumn)
		end = p.tree.At(catchIx).Span.End
	}
	if p.tok == token.FINALLY && p.span.Indent == ctx.IndentColumn {
		p.advance()
		finallyIx = p.parseIndentedBlock(ctx.IndentColumn)
		end = p.tree.At(finallyIx).Span.End
	}

	return p.tree.Add(ast.Node{
		Kind: ast.Try, A: tryBlock, B: catchIx, C: finallyIx, Str: catchName,
		Span: token.Span{Start: start, End: end},
	})
}

func (p *parser) parseImport() ast.Index {
	start := p.expect(token.IMPORT)
	path := p.expectIdentLit()
	for p.tok == token.DOT {
		p.advance()
		path += "." + p.expectIdentLit()
	}
	var names []ast.Index
	if p.tok == token.COLON {
		p.advance()
		for {
			namePos := p.span.Start
			name := p.expectIdentLit()
			names = append(names, p.tree.Add(ast.Node{Kind: ast.Id, Str: name, Span: token.Span{Start: namePos, End: namePos}}))
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	return p.tree.Add(ast.Node{Kind: ast.ImportStmt, Str: path, Extra: p.tree.AddExtra(names...), Span: token.Span{Start: start, End: p.span.Start}})
}

func (p *parser) parseFromImport() ast.Index {
	start := p.expect(token.FROM)
	path := p.expectIdentLit()
	for p.tok == token.DOT {
		p.advance()
		path += "." + p.expectIdentLit()
	}
	p.expect(token.IMPORT)
	var names []ast.Index
	for {
		namePos := p.span.Start
		name := p.expectIdentLit()
		if p.frame != nil {
			p.frame.declareAssignment(name)
		}
		names = append(names, p.tree.Add(ast.Node{Kind: ast.Id, Str: name, Span: token.Span{Start: namePos, End: namePos}}))
		if !p.accept(token.COMMA) {
			break
		}
	}
	return p.tree.Add(ast.Node{Kind: ast.FromImport, Str: path, Extra: p.tree.AddExtra(names...), Span: token.Span{Start: start, End: p.span.Start}})
}

func (p *parser) parseExport(ctx ExpressionContext) ast.Index {
	start := p.expect(token.EXPORT)
	inner := p.parseExprOrAssign(ctx)
	return p.tree.Add(ast.Node{Kind: ast.ExportStmt, A: inner, Span: token.Span{Start: start, End: p.tree.At(inner).Span.End}})
}

func (p *parser) parseDebug(ctx ExpressionContext) ast.Index {
	start := p.expect(token.DEBUG)
	exprStart := p.span.Start
	val := p.parseExpr(ctx)
	// Best-effort reconstruction of the original source text for the
	// debugged expression; the scanner doesn't hand back raw byte ranges
	// across tokens, so the printer's describe() form is used instead.
	_ = exprStart
	return p.tree.Add(ast.Node{Kind: ast.DebugStmt, A: val, Str: ast.Describe(p.tree, val), Span: token.Span{Start: start, End: p.tree.At(val).Span.End}})
}

// parseExprOrAssign parses a bare expression statement, a single
// assignment (`place = value` or `place op= value`), or a multi-assign
// (`a, b = x, y`).
func (p *parser) parseExprOrAssign(ctx ExpressionContext) ast.Index {
	start := p.span.Start

	if ctx.AllowMapBlock && (p.tok == token.IDENT || p.tok == token.STRING) {
		col := p.span.Indent
		if looksLikeBlockMapKey := p.peekIsColonKey(); looksLikeBlockMapKey {
			return p.parseBlockMap(ctx, col)
		}
	}

	first := p.parseExpr(ctx)

	if p.tok == token.COMMA {
		targets := []ast.Index{first}
		for p.accept(token.COMMA) {
			targets = append(targets, p.parseExpr(ctx))
		}
		p.expect(token.EQ)
		var values []ast.Index
		for {
			values = append(values, p.parseExpr(ctx))
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.markAssignTargets(targets)
		all := append(targets, values...)
		return p.tree.Add(ast.Node{
			Kind:  ast.MultiAssign,
			A:     ast.Index(len(targets)),
			Extra: p.tree.AddExtra(all...),
			Span:  token.Span{Start: start, End: p.tree.At(values[len(values)-1]).Span.End},
		})
	}

	if p.tok == token.EQ {
		p.advance()
		value := p.parseExpr(ctx)
		p.markAssignTargets([]ast.Index{first})
		return p.tree.Add(ast.Node{Kind: ast.Assign, A: first, B: value, Span: token.Span{Start: start, End: p.tree.At(value).Span.End}})
	}

	return first
}

// markAssignTargets records each plain-identifier target as a local
// assignment in the current frame, for capture analysis.
func (p *parser) markAssignTargets(targets []ast.Index) {
	if p.frame == nil {
		return
	}
	for _, ix := range targets {
		n := p.tree.At(ix)
		if n.Kind == ast.Id {
			p.frame.declareAssignment(n.Str)
		}
	}
}
