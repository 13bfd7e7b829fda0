package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer pretty-prints a Tree as an indented, one-node-per-line listing,
// in the style of go/ast.Print but addressed by Index instead of pointer
// identity.
type Printer struct {
	Output io.Writer

	// ShowSpans, when true, prefixes each line with the node's source span.
	ShowSpans bool
}

// Print walks the tree starting at root and writes one line per node.
func (p *Printer) Print(t *Tree, root Index) error {
	pp := &printer{w: p.Output, showSpans: p.ShowSpans, t: t}
	Walk(pp, t, root)
	return pp.err
}

type printer struct {
	w         io.Writer
	showSpans bool
	t         *Tree
	depth     int
	err       error
}

func (p *printer) Visit(t *Tree, ix Index, dir VisitDirection) Visitor {
	if dir == VisitExit {
		p.depth--
		return nil
	}
	p.printNode(ix, p.depth)
	p.depth++
	return p
}

func (p *printer) printNode(ix Index, indent int) {
	if p.err != nil {
		return
	}
	n := p.t.At(ix)
	prefix := strings.Repeat(". ", indent)
	if p.showSpans {
		_, p.err = fmt.Fprintf(p.w, "%s[%s] %s\n", prefix, n.Span, describe(p.t, ix))
	} else {
		_, p.err = fmt.Fprintf(p.w, "%s%s\n", prefix, describe(p.t, ix))
	}
}

// Describe renders a one-line summary of a node's kind-specific payload,
// omitting children (those are printed as their own lines by Walk). It is
// also used by the parser to reconstruct a readable label for `debug`
// statements.
func Describe(t *Tree, ix Index) string {
	return describe(t, ix)
}

// describe is the unexported implementation shared by Print and Describe.
func describe(t *Tree, ix Index) string {
	n := t.At(ix)
	switch n.Kind {
	case Id, Wildcard:
		if n.Str != "" {
			return fmt.Sprintf("%s(%s)", n.Kind, n.Str)
		}
		return n.Kind.String()
	case Str:
		return fmt.Sprintf("%s(%q)", n.Kind, n.Str)
	case SmallInt, IntLit:
		return fmt.Sprintf("%s(%d)", n.Kind, n.Int)
	case FloatLit:
		return fmt.Sprintf("%s(%g)", n.Kind, n.Float)
	case BinaryOp:
		return fmt.Sprintf("%s(%s)", n.Kind, BinOp(n.Int))
	case UnaryOp:
		return fmt.Sprintf("%s(%s)", n.Kind, UnOp(n.Int))
	case Assign:
		if BinOp(n.Int) != BinNone {
			return fmt.Sprintf("%s(%s)", n.Kind, BinOp(n.Int))
		}
		return n.Kind.String()
	case ImportStmt, FromImport:
		return fmt.Sprintf("%s(%s)", n.Kind, n.Str)
	case DebugStmt:
		return fmt.Sprintf("%s(%s)", n.Kind, n.Str)
	default:
		return n.Kind.String()
	}
}

func (op BinOp) String() string {
	names := [...]string{
		BinNone: "none", BinAdd: "+", BinSubtract: "-", BinMultiply: "*",
		BinDivide: "/", BinRemainder: "%", BinAddAssign: "+=",
		BinSubtractAssign: "-=", BinMultiplyAssign: "*=", BinDivideAssign: "/=",
		BinRemainderAssign: "%=", BinLess: "<", BinLessOrEqual: "<=",
		BinGreater: ">", BinGreaterOrEqual: ">=", BinEqual: "==",
		BinNotEqual: "!=", BinAnd: "and", BinOr: "or",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown op"
}

func (op UnOp) String() string {
	switch op {
	case UnNegate:
		return "-"
	case UnNot:
		return "not"
	default:
		return "none"
	}
}
