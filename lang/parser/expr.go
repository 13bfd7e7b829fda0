package parser

import (
	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/token"
)

// binOpInfo describes a Pratt binary operator: which ast.BinOp (or the
// special pipe node) it produces, and its (left, right) priority pair.
// Priorities are taken directly from the reference implementation's
// operator_precedence table: a higher number binds tighter, and an
// operator whose right priority is lower than its left priority is
// right-associative (chained comparisons, compound assignment).
type binOpInfo struct {
	op          ast.BinOp
	isPipe      bool
	left, right int
}

// minPrecedenceAfterPipe excludes the pipe operator (and anything looser)
// from call-argument expressions, so that `f g >> x` parses as `(f g) >>
// x` rather than `f (g >> x)`.
const minPrecedenceAfterPipe = 3

// minPrecedenceAfterOr excludes the `or` operator (and anything looser)
// from a match pattern, so that `or` between patterns in an arm separates
// alternatives instead of being consumed as a boolean-or expression.
const minPrecedenceAfterOr = 8

var binOps = map[token.Token]binOpInfo{
	token.PIPE:       {isPipe: true, left: 1, right: 2},
	token.PLUS_EQ:    {op: ast.BinAddAssign, left: 4, right: minPrecedenceAfterPipe},
	token.MINUS_EQ:   {op: ast.BinSubtractAssign, left: 4, right: minPrecedenceAfterPipe},
	token.STAR_EQ:    {op: ast.BinMultiplyAssign, left: 6, right: 5},
	token.SLASH_EQ:   {op: ast.BinDivideAssign, left: 6, right: 5},
	token.PERCENT_EQ: {op: ast.BinRemainderAssign, left: 6, right: 5},
	token.OR:         {op: ast.BinOr, left: 7, right: 8},
	token.AND:        {op: ast.BinAnd, left: 9, right: 10},
	token.EQEQ:       {op: ast.BinEqual, left: 12, right: 11},
	token.NEQ:        {op: ast.BinNotEqual, left: 12, right: 11},
	token.GT:         {op: ast.BinGreater, left: 14, right: 13},
	token.GE:         {op: ast.BinGreaterOrEqual, left: 14, right: 13},
	token.LT:         {op: ast.BinLess, left: 14, right: 13},
	token.LE:         {op: ast.BinLessOrEqual, left: 14, right: 13},
	token.PLUS:       {op: ast.BinAdd, left: 15, right: 16},
	token.MINUS:      {op: ast.BinSubtract, left: 15, right: 16},
	token.STAR:       {op: ast.BinMultiply, left: 17, right: 18},
	token.SLASH:      {op: ast.BinDivide, left: 17, right: 18},
	token.PERCENT:    {op: ast.BinRemainder, left: 17, right: 18},
}

// parseExpr parses a full expression under ctx, starting at minimum
// precedence 0 (accepts every operator).
func (p *parser) parseExpr(ctx ExpressionContext) ast.Index {
	return p.parseExprPrec(ctx, 0)
}

func (p *parser) parseExprPrec(ctx ExpressionContext, minPrec int) ast.Index {
	lhs := p.parseUnary(ctx)

	for {
		info, ok := binOps[p.tok]
		if !ok || info.left < minPrec {
			break
		}
		if !ctx.AllowLinebreaks && !ctx.permitsContinuation(p.span.Indent) {
			break
		}

		p.advance()

		rhsCtx := ctx
		if info.isPipe {
			rhsCtx = ctx.restricted()
		}
		rhs := p.parseExprPrec(rhsCtx, info.right)

		var n ast.Node
		if info.isPipe {
			n.Kind = ast.Pipe
		} else {
			n.Kind = ast.BinaryOp
			n.Int = int64(info.op)
		}
		n.A, n.B = lhs, rhs
		n.Span = p.tree.At(lhs).Span.Join(p.tree.At(rhs).Span)
		lhs = p.tree.Add(n)
	}
	return lhs
}

func (p *parser) parseUnary(ctx ExpressionContext) ast.Index {
	switch p.tok {
	case token.NOT:
		pos := p.span.Start
		p.advance()
		operand := p.parseUnary(ctx)
		return p.tree.Add(ast.Node{
			Kind: ast.UnaryOp,
			Int:  int64(ast.UnNot),
			A:    operand,
			Span: token.Span{Start: pos, End: p.tree.At(operand).Span.End},
		})
	case token.MINUS:
		pos := p.span.Start
		p.advance()
		operand := p.parseUnary(ctx)
		return p.tree.Add(ast.Node{
			Kind: ast.UnaryOp,
			Int:  int64(ast.UnNegate),
			A:    operand,
			Span: token.Span{Start: pos, End: p.tree.At(operand).Span.End},
		})
	default:
		return p.parsePostfix(ctx)
	}
}

// parsePostfix parses a primary expression followed by any chain of
// lookups (`.field`), index operations (`[expr]`) and calls (`(args)`, or
// bare space-separated arguments when ctx.AllowSpaceSeparatedCall).
func (p *parser) parsePostfix(ctx ExpressionContext) ast.Index {
	root := p.parsePrimary(ctx)

	var steps []ast.Index
	for {
		switch {
		case p.tok == token.DOT:
			p.advance()
			namePos := p.span.Start
			name := p.expectIdentLit()
			id := p.tree.Add(ast.Node{Kind: ast.Id, Str: name, Span: token.Span{Start: namePos, End: p.span.Start}})
			steps = append(steps, id)

		case p.tok == token.LBRACK && ctx.permitsContinuation(p.span.Indent):
			p.advance()
			idxCtx := ctx.nested()
			idx := p.parseExpr(idxCtx)
			end := p.expect(token.RBRACK)
			ix := p.tree.Add(ast.Node{Kind: ast.IndexOp, A: idx, Span: token.Span{End: end}})
			steps = append(steps, ix)

		case p.tok == token.LPAREN && ctx.permitsContinuation(p.span.Indent):
			args, end := p.parseParenArgs(ctx)
			call := p.tree.Add(ast.Node{Kind: ast.Call, Extra: args, Span: token.Span{End: end}})
			steps = append(steps, call)

		case ctx.AllowSpaceSeparatedCall && p.startsSpaceCallArg(ctx):
			args, end := p.parseSpaceArgs(ctx)
			call := p.tree.Add(ast.Node{Kind: ast.Call, Extra: args, Span: token.Span{End: end}})
			steps = append(steps, call)
			// bare-space calls consume the rest of the line; no further
			// postfix chaining after this.
			goto done

		default:
			goto done
		}
	}
done:
	result := root
	if len(steps) > 0 {
		extra := p.tree.AddExtra(steps...)
		rootNode := p.tree.At(root)
		result = p.tree.Add(ast.Node{
			Kind:  ast.Lookup,
			A:     root,
			Extra: extra,
			Span:  token.Span{Start: rootNode.Span.Start, End: p.tree.At(steps[len(steps)-1]).Span.End},
		})
	}

	if p.tok == token.RANGE || p.tok == token.RANGE_INCL {
		incl := p.tok == token.RANGE_INCL
		p.advance()
		start := p.tree.At(result).Span.Start
		if !p.startsSpaceCallArg(ctx) {
			return p.tree.Add(ast.Node{Kind: ast.RangeFrom, A: result, Span: token.Span{Start: start, End: p.span.Start}})
		}
		to := p.parseExprPrec(ctx, 15)
		n := ast.Node{Kind: ast.RangeLit, A: result, B: to, Span: token.Span{Start: start, End: p.tree.At(to).Span.End}}
		if incl {
			n.Int = 1
		}
		return p.tree.Add(n)
	}

	return result
}

// startsSpaceCallArg reports whether the current token can begin a bare,
// space-separated call argument (`f x`), i.e. it looks like the start of
// an expression and is not itself a binary operator continuing the
// enclosing expression.
func (p *parser) startsSpaceCallArg(ctx ExpressionContext) bool {
	if !ctx.permitsContinuation(p.span.Indent) {
		return false
	}
	switch p.tok {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE,
		token.NULL, token.SELF, token.LPAREN, token.LBRACK, token.LBRACE, token.BAR,
		token.MINUS, token.NOT:
		return true
	default:
		return false
	}
}

func (p *parser) parseParenArgs(ctx ExpressionContext) (ast.ExtraRange, token.Pos) {
	p.expect(token.LPAREN)
	argCtx := ctx.nested()
	var args []ast.Index
	for p.tok != token.RPAREN {
		args = append(args, p.parseExpr(argCtx))
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RPAREN)
	return p.tree.AddExtra(args...), end
}

// parseSpaceArgs parses a space-separated argument list at
// minPrecedenceAfterPipe, stopping at the first pipe operator so that `f x
// >> g` pipes the call's result rather than being absorbed as an argument.
func (p *parser) parseSpaceArgs(ctx ExpressionContext) (ast.ExtraRange, token.Pos) {
	argCtx := ctx.restricted()
	var args []ast.Index
	last := p.span.Start
	for p.startsSpaceCallArg(argCtx) {
		arg := p.parseExprPrec(argCtx, minPrecedenceAfterPipe)
		last = p.tree.At(arg).Span.End
		args = append(args, arg)
	}
	return p.tree.AddExtra(args...), last
}

func (p *parser) expectIdentLit() string {
	if p.tok != token.IDENT {
		p.errorExpected(p.span.Start, "identifier")
		panic(errPanicMode)
	}
	name := p.val.Raw
	p.advance()
	return name
}

// parsePrimary parses a literal, identifier, parenthesized/tuple
// expression, list, map, range or function literal.
func (p *parser) parsePrimary(ctx ExpressionContext) ast.Index {
	pos := p.span.Start
	switch p.tok {
	case token.TRUE:
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.BoolTrue, Span: token.Span{Start: pos, End: pos}})
	case token.FALSE:
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.BoolFalse, Span: token.Span{Start: pos, End: pos}})
	case token.NULL:
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.NullLit, Span: token.Span{Start: pos, End: pos}})
	case token.SELF:
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.SelfLit, Span: token.Span{Start: pos, End: pos}})

	case token.INT:
		v := p.val.Int
		p.advance()
		kind := ast.IntLit
		if v >= -(1<<31) && v < 1<<31 {
			kind = ast.SmallInt
		}
		return p.tree.Add(ast.Node{Kind: kind, Int: v, Span: token.Span{Start: pos, End: pos}})

	case token.FLOAT:
		v := p.val.Float
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.FloatLit, Float: v, Span: token.Span{Start: pos, End: pos}})

	case token.STRING:
		return p.parseStringLit()

	case token.IDENT:
		if p.val.Raw == "_" {
			p.advance()
			return p.tree.Add(ast.Node{Kind: ast.Wildcard, Span: token.Span{Start: pos, End: pos}})
		}
		name := p.val.Raw
		p.advance()
		if p.frame != nil {
			p.frame.accessID(name)
		}
		return p.tree.Add(ast.Node{Kind: ast.Id, Str: name, Span: token.Span{Start: pos, End: pos}})

	case token.RANGE, token.RANGE_INCL:
		incl := p.tok == token.RANGE_INCL
		p.advance()
		if !p.startsSpaceCallArg(ctx) {
			return p.tree.Add(ast.Node{Kind: ast.RangeFull, Span: token.Span{Start: pos, End: pos}})
		}
		to := p.parseExprPrec(ctx, 15)
		n := ast.Node{Kind: ast.RangeTo, A: to, Span: token.Span{Start: pos, End: p.tree.At(to).Span.End}}
		if incl {
			n.Int = 1
		}
		return p.tree.Add(n)

	case token.LPAREN:
		return p.parseParenOrTuple(ctx)

	case token.LBRACK:
		return p.parseList(ctx)

	case token.LBRACE:
		return p.parseBraceMap(ctx)

	case token.BAR:
		return p.parseFunctionLit(ctx)

	case token.AT:
		return p.parseMetaEntry(ctx)

	default:
		p.errorExpected(pos, "expression")
		panic(errPanicMode)
	}
}

func (p *parser) parseParenOrTuple(ctx ExpressionContext) ast.Index {
	start := p.expect(token.LPAREN)
	inner := ctx.nested()

	if p.tok == token.RPAREN {
		end := p.expect(token.RPAREN)
		return p.tree.Add(ast.Node{Kind: ast.Tuple, Span: token.Span{Start: start, End: end}})
	}

	var elems []ast.Index
	first := p.parseExpr(inner)
	elems = append(elems, first)
	isTuple := false
	for p.accept(token.COMMA) {
		isTuple = true
		if p.tok == token.RPAREN {
			break
		}
		elems = append(elems, p.parseExpr(inner))
	}
	end := p.expect(token.RPAREN)

	if !isTuple {
		return p.tree.Add(ast.Node{
			Kind: ast.Nested,
			A:    first,
			Span: token.Span{Start: start, End: end},
		})
	}
	return p.tree.Add(ast.Node{
		Kind:  ast.Tuple,
		Extra: p.tree.AddExtra(elems...),
		Span:  token.Span{Start: start, End: end},
	})
}

func (p *parser) parseList(ctx ExpressionContext) ast.Index {
	start := p.expect(token.LBRACK)
	inner := ctx.nested()

	var elems []ast.Index
	for p.tok != token.RBRACK {
		elems = append(elems, p.parseExpr(inner))
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RBRACK)
	return p.tree.Add(ast.Node{
		Kind:  ast.List,
		Extra: p.tree.AddExtra(elems...),
		Span:  token.Span{Start: start, End: end},
	})
}

// parseBraceMap parses an inline `{key: value, ...}` map literal.
func (p *parser) parseBraceMap(ctx ExpressionContext) ast.Index {
	start := p.expect(token.LBRACE)
	inner := ctx.nested()

	var pairs []ast.Index
	for p.tok != token.RBRACE {
		key := p.parseMapKey(inner)
		p.expect(token.COLON)
		val := p.parseExpr(inner)
		pairs = append(pairs, key, val)
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RBRACE)
	return p.tree.Add(ast.Node{
		Kind:  ast.MapLit,
		Extra: p.tree.AddExtra(pairs...),
		Span:  token.Span{Start: start, End: end},
	})
}

func (p *parser) parseMapKey(ctx ExpressionContext) ast.Index {
	if p.tok == token.IDENT {
		pos := p.span.Start
		name := p.val.Raw
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.Id, Str: name, Span: token.Span{Start: pos, End: pos}})
	}
	return p.parseExpr(ctx)
}

// parseBlockMap parses an indented, brace-free block-style map: each
// entry is `key: value` on its own line at the same indent column.
func (p *parser) parseBlockMap(ctx ExpressionContext, col int32) ast.Index {
	start := p.span.Start
	var pairs []ast.Index
	for p.span.Indent == col {
		key := p.parseMapKey(ctx)
		p.expect(token.COLON)
		val := p.parseExpr(ctx.nested())
		pairs = append(pairs, key, val)
	}
	n := ast.Node{
		Kind:  ast.MapLit,
		Int:   1,
		Extra: p.tree.AddExtra(pairs...),
		Span:  token.Span{Start: start, End: p.span.Start},
	}
	return p.tree.Add(n)
}

func (p *parser) parseMetaEntry(ctx ExpressionContext) ast.Index {
	start := p.expect(token.AT)
	keyPos := p.span.Start
	var keyName string
	switch {
	case p.tok == token.IDENT:
		keyName = p.val.Raw
		p.advance()
	default:
		// operator overload key, e.g. @+, @==, @display
		keyName = p.tok.String()
		p.advance()
	}
	key := p.tree.Add(ast.Node{Kind: ast.Id, Str: keyName, Span: token.Span{Start: keyPos, End: keyPos}})
	p.expect(token.COLON)
	val := p.parseExpr(ctx.nested())
	return p.tree.Add(ast.Node{
		Kind: ast.MetaLit,
		A:    key,
		B:    val,
		Span: token.Span{Start: start, End: p.tree.At(val).Span.End},
	})
}

// parseFunctionLit parses `|params| body`. body is either a single
// expression on the same line, or an indented block starting on the next
// line.
func (p *parser) parseFunctionLit(ctx ExpressionContext) ast.Index {
	start := p.expect(token.BAR)

	childFrame := newFrameState(p.frame)
	p.frame = childFrame

	var params []ast.Index
	for p.tok != token.BAR {
		params = append(params, p.parseParam())
		if !p.accept(token.COMMA) {
			break
		}
	}
	barEnd := p.expect(token.BAR)

	body := p.parseFunctionBody(ctx, barEnd)

	kind := int64(0)
	if childFrame.isGenerator {
		kind = 1
	}
	p.frame = childFrame.parent

	return p.tree.Add(ast.Node{
		Kind:  ast.FunctionLit,
		A:     body,
		Int:   kind,
		Extra: p.tree.AddExtra(params...),
		Span:  token.Span{Start: start, End: p.tree.At(body).Span.End},
	})
}

func (p *parser) parseParam() ast.Index {
	pos := p.span.Start
	if p.tok == token.IDENT && p.val.Raw == "_" {
		p.advance()
		return p.tree.Add(ast.Node{Kind: ast.Wildcard, Span: token.Span{Start: pos, End: pos}})
	}
	name := p.expectIdentLit()
	p.frame.declareAssignment(name)
	return p.tree.Add(ast.Node{Kind: ast.Id, Str: name, Span: token.Span{Start: pos, End: pos}})
}

func (p *parser) parseFunctionBody(ctx ExpressionContext, afterParams token.Pos) ast.Index {
	startLine, _ := afterParams.LineCol()
	curLine, _ := p.span.Start.LineCol()
	if curLine == startLine {
		start := p.span.Start
		expr := p.parseExpr(ctx)
		return p.tree.Add(ast.Node{
			Kind:  ast.Block,
			Extra: p.tree.AddExtra(expr),
			Span:  token.Span{Start: start, End: p.tree.At(expr).Span.End},
		})
	}
	return p.parseIndentedBlock(ctx.IndentColumn)
}
