// Package ast defines the flat, arena-indexed abstract syntax tree produced
// by the parser. Rather than a tree of pointers to heap-allocated node
// structs, every node lives in a single contiguous Tree.Nodes slice and is
// referred to by its Index, a uint32 offset into that slice. This keeps the
// tree itself a single allocation, lets a compiler pass walk it by index
// instead of chasing pointers, and makes "no node" a plain zero value
// (NoIndex) instead of a nil interface.
package ast

import "github.com/mna/vela/lang/token"

// Index addresses a single Node inside a Tree. The zero value, NoIndex,
// never addresses a real node: index 0 in a Tree is always the synthetic
// root produced by NewTree.
type Index uint32

// NoIndex is the sentinel "absent" index, used for optional child slots
// (e.g. an If node's missing else-branch).
const NoIndex Index = 0

// Node is one entry in a Tree. Its meaning is entirely determined by Kind;
// the A, B and C fields are reused across node kinds to mean different
// things (see the Kind doc comments in nodes.go for the field layout of
// each kind). Extra indexes into Tree.Extra for node kinds that need more
// than three child references (argument lists, block statement lists,
// match/switch arms, and so on).
type Node struct {
	Kind  Kind
	Span  token.Span
	A, B, C Index
	Extra   ExtraRange
	Str     string  // identifier text, string literal constant, import path, etc.
	Int     int64   // integer literal value, or small auxiliary flags/counts
	Float   float64 // float literal value
}

// ExtraRange is a [Start, End) slice into Tree.Extra, used whenever a node
// needs a variable-length list of child indexes.
type ExtraRange struct {
	Start, End uint32
}

// Len reports the number of indexes in the range.
func (r ExtraRange) Len() int { return int(r.End - r.Start) }

// Tree is the arena holding every Node produced while parsing a single
// source chunk, plus the side tables referenced by ExtraRange and string
// literal fragments.
type Tree struct {
	Name string // filename or chunk name, for diagnostics

	Nodes []Node  // Nodes[0] is the synthetic root, see NewTree
	Extra []Index // variable-length child lists, sliced by ExtraRange

	// StringFrags holds the decoded fragments of interpolated string
	// literals; Node.A/B for a Str kind node is a range into this slice
	// when Node.Int (the HasInter flag) is non-zero.
	StringFrags []StringFrag

	EOF token.Pos
}

// StringFrag is one fragment of a possibly-interpolated string literal: a
// literal run of text, or an expression to be evaluated and converted to a
// string (the parser re-enters expression parsing over the scanner's
// recorded raw source for `${...}` and `$id` fragments).
type StringFrag struct {
	IsExpr bool
	Lit    string
	Expr   Index // valid only if IsExpr; an expression node
}

// NewTree creates an empty Tree with its root node reserved at index 0.
// The root itself is a Null placeholder; callers read the real top-level
// node (a MainBlock) via Tree.Root after parsing completes.
func NewTree(name string) *Tree {
	t := &Tree{Name: name}
	t.Nodes = append(t.Nodes, Node{Kind: Null})
	return t
}

// Root is the index of the tree's top-level MainBlock node, always the
// last node appended after a successful parse of a whole chunk.
func (t *Tree) Root() Index {
	if len(t.Nodes) <= 1 {
		return NoIndex
	}
	return Index(len(t.Nodes) - 1)
}

// Add appends n to the arena and returns its new index.
func (t *Tree) Add(n Node) Index {
	t.Nodes = append(t.Nodes, n)
	return Index(len(t.Nodes) - 1)
}

// AddExtra appends a list of child indexes to Tree.Extra and returns the
// range addressing them.
func (t *Tree) AddExtra(ixs ...Index) ExtraRange {
	start := uint32(len(t.Extra))
	t.Extra = append(t.Extra, ixs...)
	return ExtraRange{Start: start, End: uint32(len(t.Extra))}
}

// ExtraSlice returns the indexes addressed by r.
func (t *Tree) ExtraSlice(r ExtraRange) []Index {
	return t.Extra[r.Start:r.End]
}

// At returns the node at index ix. Calling it with NoIndex is a
// programming error and panics, the same way dereferencing a nil pointer
// would in the teacher's tree-of-pointers design.
func (t *Tree) At(ix Index) *Node {
	return &t.Nodes[ix]
}

// ChunkSpan computes the source span covering the whole tree, from the first
// real node to the recorded EOF position.
func (t *Tree) ChunkSpan() token.Span {
	if len(t.Nodes) <= 1 {
		return token.Span{Start: t.EOF, End: t.EOF}
	}
	return token.Span{Start: t.Nodes[1].Span.Start, End: t.EOF}
}
