package machine

import (
	"fmt"
	"strings"
)

// A List is a mutable sequence of values. Lists are reference-shared:
// assignment copies the reference, not the elements, and mutation through
// any alias is visible through every alias.
type List struct {
	elems []Value
}

var (
	_ Value       = (*List)(nil)
	_ Indexable   = (*List)(nil)
	_ Sliceable   = (*List)(nil)
	_ Iterable    = (*List)(nil)
	_ Sequence    = (*List)(nil)
	_ HasSetIndex = (*List)(nil)
	_ HasEqual    = (*List)(nil)
)

// NewList returns a list containing the given elements. The caller must
// not subsequently modify elems through any other reference.
func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) String() string {
	parts := make([]string, len(l.elems))
	for i, e := range l.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *List) Type() string      { return "list" }
func (l *List) Len() int          { return len(l.elems) }
func (l *List) Index(i int) Value { return l.elems[i] }
func (l *List) Iterate() Iterator { return &seqIterator{elems: l.elems} }

func (l *List) Slice(start, end int) Value {
	cp := append([]Value(nil), l.elems[start:end]...)
	return NewList(cp)
}

func (l *List) SetIndex(i int, v Value) error {
	if i < 0 || i >= len(l.elems) {
		return fmt.Errorf("index out of range: %d", i)
	}
	l.elems[i] = v
	return nil
}

func (l *List) Append(v Value) { l.elems = append(l.elems, v) }

func (l *List) Equals(y Value) (bool, error) {
	o, ok := y.(*List)
	if !ok {
		return false, nil
	}
	if len(l.elems) != len(o.elems) {
		return false, nil
	}
	for i, xv := range l.elems {
		eq, err := Equal(xv, o.elems[i])
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}
