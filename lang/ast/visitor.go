package ast

// VisitDirection indicates whether a call to Visit enters or exits a node.
type VisitDirection int

// List of visit directions.
const (
	VisitEnter VisitDirection = iota
	VisitExit
)

// Visitor defines the method to implement to walk a Tree. A node's
// children can be skipped by returning a nil visitor from Visit.
type Visitor interface {
	Visit(t *Tree, ix Index, dir VisitDirection) (w Visitor)
}

// VisitorFunc is a function that implements the Visitor interface.
type VisitorFunc func(t *Tree, ix Index, dir VisitDirection) Visitor

// Visit implements the Visitor interface for VisitorFunc.
func (f VisitorFunc) Visit(t *Tree, ix Index, dir VisitDirection) Visitor {
	return f(t, ix, dir)
}

// Walk visits ix and its children in t with v, in depth-first order. It
// calls Visit with VisitEnter before descending into children and
// VisitExit after, mirroring the teacher's pointer-tree Walk but driven off
// arena indexes instead of interface values.
func Walk(v Visitor, t *Tree, ix Index) {
	if ix == NoIndex || v == nil {
		return
	}
	if v = v.Visit(t, ix, VisitEnter); v == nil {
		return
	}
	for _, child := range children(t, ix) {
		Walk(v, t, child)
	}
	v.Visit(t, ix, VisitExit)
}

// children returns the direct child indexes of ix, skipping NoIndex slots.
func children(t *Tree, ix Index) []Index {
	n := t.At(ix)
	var out []Index
	add := func(c Index) {
		if c != NoIndex {
			out = append(out, c)
		}
	}

	switch n.Kind {
	case Tuple, TempTuple, List:
		out = append(out, t.ExtraSlice(n.Extra)...)
	case MapLit:
		out = append(out, t.ExtraSlice(n.Extra)...)
	case RangeLit:
		add(n.A)
		add(n.B)
	case RangeFrom:
		add(n.A)
	case RangeTo:
		add(n.A)
	case MetaLit:
		add(n.A)
		add(n.B)
	case FunctionLit:
		out = append(out, t.ExtraSlice(n.Extra)...)
		add(n.A)
	case MainBlock:
		add(n.A)
	case Block:
		out = append(out, t.ExtraSlice(n.Extra)...)
	case Nested:
		add(n.A)
	case NamedCall, Call:
		add(n.A)
		out = append(out, t.ExtraSlice(n.Extra)...)
	case Lookup:
		add(n.A)
		out = append(out, t.ExtraSlice(n.Extra)...)
	case IndexOp:
		add(n.A)
		add(n.B)
	case BinaryOp, Pipe:
		add(n.A)
		add(n.B)
	case UnaryOp:
		add(n.A)
	case Assign:
		add(n.A)
		add(n.B)
	case MultiAssign:
		out = append(out, t.ExtraSlice(n.Extra)...)
	case ExportStmt:
		add(n.A)
	case If:
		add(n.A)
		add(n.B)
		add(n.C)
	case Switch, MatchOr:
		out = append(out, t.ExtraSlice(n.Extra)...)
	case Match:
		add(n.A)
		out = append(out, t.ExtraSlice(n.Extra)...)
	case For:
		add(n.A)
		add(n.B)
		out = append(out, t.ExtraSlice(n.Extra)...)
	case While, Until:
		add(n.A)
		add(n.B)
	case Loop:
		add(n.A)
	case Break, Return:
		add(n.A)
	case Yield, Throw:
		add(n.A)
	case Try:
		add(n.A)
		add(n.B)
		add(n.C)
	case ImportStmt, FromImport:
		out = append(out, t.ExtraSlice(n.Extra)...)
	case DebugStmt:
		add(n.A)
	}
	return out
}
