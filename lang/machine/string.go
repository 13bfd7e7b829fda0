package machine

import (
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

// A String is an immutable, reference-shared text value. It carries its
// backing bytes plus a byte-range slice, so substrings share storage; the
// slice bounds always lie on valid UTF-8 code-point boundaries. Indexing
// and slicing operate on extended grapheme clusters (user-perceived
// characters), not bytes, per the language's string semantics.
type String struct {
	backing    string
	start, end int // byte offsets into backing
}

var (
	_ Value     = (*String)(nil)
	_ Indexable = (*String)(nil)
	_ Sliceable = (*String)(nil)
	_ Ordered   = (*String)(nil)
	_ HasEqual  = (*String)(nil)
)

// NewString returns a String wrapping the whole of s.
func NewString(s string) *String { return &String{backing: s, start: 0, end: len(s)} }

func (s *String) raw() string { return s.backing[s.start:s.end] }

// Text returns the string's raw, unquoted content, for host code (native
// functions, external objects) that needs the actual text rather than its
// String() display form.
func (s *String) Text() string { return s.raw() }

func (s *String) String() string { return strconv.Quote(s.raw()) }
func (s *String) Type() string   { return "string" }

// graphemes returns the string's content split into grapheme clusters, one
// string per cluster.
func (s *String) graphemes() []string {
	var out []string
	g := uniseg.NewGraphemes(s.raw())
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

func (s *String) Len() int { return len(s.graphemes()) }

func (s *String) Index(i int) Value {
	return NewString(s.graphemes()[i])
}

func (s *String) Slice(start, end int) Value {
	gs := s.graphemes()
	return NewString(strings.Join(gs[start:end], ""))
}

func (s *String) Iterate() Iterator {
	return &stringIterator{elems: s.graphemes()}
}

var _ Iterable = (*String)(nil)

func (s *String) Cmp(y Value) (int, error) {
	o, ok := y.(*String)
	if !ok {
		return 0, typeError("compare", s, y)
	}
	return strings.Compare(s.raw(), o.raw()), nil
}

func (s *String) Equals(y Value) (bool, error) {
	o, ok := y.(*String)
	if !ok {
		return false, nil
	}
	return s.raw() == o.raw(), nil
}

type stringIterator struct {
	elems []string
	i     int
}

var _ Value = (*stringIterator)(nil)

func (it *stringIterator) String() string { return "grapheme-iterator" }
func (it *stringIterator) Type() string   { return "iterator" }

func (it *stringIterator) Next(p *Value) bool {
	if it.i >= len(it.elems) {
		return false
	}
	*p = NewString(it.elems[it.i])
	it.i++
	return true
}
