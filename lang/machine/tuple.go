package machine

import "strings"

// A Tuple is an immutable, deep-immutable sequence of values (only the
// backing slice is immutable; values it holds may themselves be mutable
// reference types such as *List). Tuples are reference-shared: assigning a
// tuple copies the reference, not the elements.
type Tuple struct {
	elems []Value
}

// EmptyTuple is the value of an empty tuple.
var EmptyTuple = NewTuple(nil)

var (
	_ Value     = (*Tuple)(nil)
	_ Indexable = (*Tuple)(nil)
	_ Sliceable = (*Tuple)(nil)
	_ Iterable  = (*Tuple)(nil)
	_ Sequence  = (*Tuple)(nil)
	_ HasEqual  = (*Tuple)(nil)
)

// NewTuple returns a tuple containing the given elements. The caller must
// not subsequently modify elems.
func NewTuple(elems []Value) *Tuple { return &Tuple{elems: elems} }

func (t *Tuple) String() string {
	parts := make([]string, len(t.elems))
	for i, e := range t.elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Tuple) Type() string      { return "tuple" }
func (t *Tuple) Len() int          { return len(t.elems) }
func (t *Tuple) Index(i int) Value { return t.elems[i] }
func (t *Tuple) Iterate() Iterator { return &seqIterator{elems: t.elems} }

func (t *Tuple) Slice(start, end int) Value {
	cp := append([]Value(nil), t.elems[start:end]...)
	return NewTuple(cp)
}

func (t *Tuple) Equals(y Value) (bool, error) {
	o, ok := y.(*Tuple)
	if !ok {
		return false, nil
	}
	if len(t.elems) != len(o.elems) {
		return false, nil
	}
	for i, xv := range t.elems {
		eq, err := Equal(xv, o.elems[i])
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}

// seqIterator is the shared index-based Iterator for *Tuple and *List.
type seqIterator struct {
	elems []Value
	i     int
}

var (
	_ Value               = (*seqIterator)(nil)
	_ DoubleEndedIterator = (*seqIterator)(nil)
)

func (it *seqIterator) String() string { return "sequence-iterator" }
func (it *seqIterator) Type() string   { return "iterator" }

func (it *seqIterator) Next(p *Value) bool {
	if it.i >= len(it.elems) {
		return false
	}
	*p = it.elems[it.i]
	it.i++
	return true
}

func (it *seqIterator) NextBack(p *Value) bool {
	if it.i >= len(it.elems) {
		return false
	}
	*p = it.elems[len(it.elems)-1]
	it.elems = it.elems[:len(it.elems)-1]
	return true
}
