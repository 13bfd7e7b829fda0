package parser

// IndentRule selects how ExpressionContext.IndentColumn constrains whether
// the next token, found at a given indent column, is still part of the
// expression or block currently being parsed.
type IndentRule uint8

//nolint:revive
const (
	// Flexible accepts any indentation; used inside parentheses/brackets
	// where newlines never end the expression.
	Flexible IndentRule = iota
	// Equal requires the next line's indent to equal IndentColumn exactly
	// (used for statements within a block: every statement of a block
	// lines up at the same column).
	Equal
	// Greater requires indentation strictly greater than the enclosing
	// block's column (opening a new nested block).
	Greater
	// GreaterOrEqual accepts the enclosing column or deeper (continuation
	// lines of a single statement, e.g. a chained `.field` on its own
	// line).
	GreaterOrEqual
)

// ExpressionContext is threaded by value through expression parsing calls,
// the same way the original implementation's parser carries its parsing
// context: each recursive call gets its own copy and mutates it locally
// without affecting the caller's view.
type ExpressionContext struct {
	// AllowSpaceSeparatedCall allows `f x y` (space-separated call syntax)
	// to be parsed as a call rather than as three separate statements/
	// expressions. Disabled inside argument lists after a pipe, per
	// MinPrecedenceAfterPipe.
	AllowSpaceSeparatedCall bool
	// AllowLinebreaks allows a newline to be treated as insignificant
	// whitespace rather than an expression terminator (set inside brackets
	// and parens).
	AllowLinebreaks bool
	// AllowMapBlock allows a bare `key: value` line (no surrounding
	// braces) to start an indented block-style map literal.
	AllowMapBlock bool

	Indent       IndentRule
	IndentColumn int32
}

// defaultContext is the base context for an interpolated string's embedded
// expression (see parseSubExpr): space calls and block maps allowed, any
// indentation accepted.
func defaultContext() ExpressionContext {
	return ExpressionContext{
		AllowSpaceSeparatedCall: true,
		AllowLinebreaks:         false,
		AllowMapBlock:           true,
		Indent:                  Flexible,
	}
}

// nested returns the context to use for a sub-expression inside brackets
// or parens, where linebreaks are always insignificant.
func (c ExpressionContext) nested() ExpressionContext {
	c.AllowLinebreaks = true
	c.Indent = Flexible
	return c
}

// restricted returns the context to use for arguments parsed after a pipe
// operator or within call argument position where space-separated calls
// and top-level map blocks are not allowed, matching
// MinPrecedenceAfterPipe in the Pratt table.
func (c ExpressionContext) restricted() ExpressionContext {
	c.AllowSpaceSeparatedCall = false
	c.AllowMapBlock = false
	return c
}

// permitsContinuation reports whether the current token, which starts at
// the given indent column, may still be considered part of an expression
// governed by c when c.AllowLinebreaks is false (i.e. we're deciding
// whether a newline ended the statement).
func (c ExpressionContext) permitsContinuation(tokenIndent int32) bool {
	if c.AllowLinebreaks {
		return true
	}
	switch c.Indent {
	case Flexible:
		return true
	case Equal:
		return tokenIndent == c.IndentColumn
	case Greater:
		return tokenIndent > c.IndentColumn
	case GreaterOrEqual:
		return tokenIndent >= c.IndentColumn
	default:
		return true
	}
}
