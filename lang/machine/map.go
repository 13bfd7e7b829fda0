package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// mapKey canonicalizes an immutable Value into a Go-comparable key so that
// a *swiss.Map can hash and compare it; only the value kinds the language
// permits as map keys (Null, Bool, Int, Float, *String, *Tuple of keyable
// values) produce a canonical key.
type mapKey struct {
	kind byte // discriminator, since zero values of the fields below collide across kinds
	i    int64
	f    float64
	s    string
}

func canonicalKey(v Value) (mapKey, error) {
	switch x := v.(type) {
	case NullType:
		return mapKey{kind: 'n'}, nil
	case Bool:
		return mapKey{kind: 'b', i: int64(b2i(bool(x)))}, nil
	case Int:
		return mapKey{kind: 'i', i: int64(x)}, nil
	case Float:
		return mapKey{kind: 'f', f: float64(x)}, nil
	case *String:
		return mapKey{kind: 's', s: x.raw()}, nil
	case *Tuple:
		// a tuple key's canonical form is its String() text, which is
		// sufficient since tuple elements are themselves keyable or this
		// recursive call fails first.
		for _, e := range x.elems {
			if _, err := canonicalKey(e); err != nil {
				return mapKey{}, err
			}
		}
		return mapKey{kind: 't', s: x.String()}, nil
	}
	return mapKey{}, fmt.Errorf("unhashable type used as map key: %s", v.Type())
}

// A Map is an insertion-ordered mapping from value-keys to values, plus an
// optional meta-map used for operator overloading and type-level methods
// (see metakey.go). Maps are reference-shared: assignment copies the
// reference, not the entries.
type Map struct {
	entries *swiss.Map[mapKey, *mapEntry]
	order   []*mapEntry // insertion order, for deterministic iteration

	meta      map[MetaKey]Value
	metaNamed map[string]Value
	base      *Map // @base chain for inherited meta lookups
}

type mapEntry struct {
	key   Value
	value Value
}

var (
	_ Value      = (*Map)(nil)
	_ Mapping    = (*Map)(nil)
	_ HasSetKey  = (*Map)(nil)
	_ Iterable   = (*Map)(nil)
	_ HasMetamap = (*Map)(nil)
)

// NewMap returns an empty map with initial capacity for at least size
// items.
func NewMap(size int) *Map {
	if size < 1 {
		size = 1
	}
	return &Map{entries: swiss.NewMap[mapKey, *mapEntry](uint32(size))}
}

func (m *Map) String() string { return fmt.Sprintf("map(%p)", m) }
func (m *Map) Type() string   { return "map" }

func (m *Map) Get(k Value) (Value, bool, error) {
	ck, err := canonicalKey(k)
	if err != nil {
		return nil, false, err
	}
	e, ok := m.entries.Get(ck)
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Map) SetKey(k, v Value) error {
	ck, err := canonicalKey(k)
	if err != nil {
		return err
	}
	if e, ok := m.entries.Get(ck); ok {
		e.value = v
		return nil
	}
	e := &mapEntry{key: k, value: v}
	m.entries.Put(ck, e)
	m.order = append(m.order, e)
	return nil
}

// Delete removes k from the map, if present. Deletion is O(n) in the
// number of entries (it must also remove k from the insertion-order
// slice); SETKEY's hot path never needs removal, only cmap's host-facing
// map.remove native does, so the cost is acceptable there.
func (m *Map) Delete(k Value) error {
	ck, err := canonicalKey(k)
	if err != nil {
		return err
	}
	e, ok := m.entries.Get(ck)
	if !ok {
		return nil
	}
	m.entries.Delete(ck)
	for i, oe := range m.order {
		if oe == e {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Map) Len() int { return len(m.order) }

func (m *Map) Iterate() Iterator { return &mapIterator{m: m} }

// Metamap returns m itself: a map's meta entries live in its own meta-key
// table, reached through MetaLookup.
func (m *Map) Metamap() *Map { return m }

// MetaInsert binds id to value in the meta-map.
func (m *Map) MetaInsert(id MetaKey, value Value) {
	if m.meta == nil {
		m.meta = make(map[MetaKey]Value)
	}
	m.meta[id] = value
}

// MetaInsertNamed binds a named meta-entry (@test name, @meta name) to
// value.
func (m *Map) MetaInsertNamed(name string, value Value) {
	if m.metaNamed == nil {
		m.metaNamed = make(map[string]Value)
	}
	m.metaNamed[name] = value
}

// MetaLookup resolves id against this map's meta-map, chaining through
// @base when absent.
func (m *Map) MetaLookup(id MetaKey) (Value, bool) {
	for mm := m; mm != nil; mm = mm.base {
		if v, ok := mm.meta[id]; ok {
			return v, true
		}
	}
	return nil, false
}

// MetaLookupNamed resolves a named meta-entry, chaining through @base.
func (m *Map) MetaLookupNamed(name string) (Value, bool) {
	for mm := m; mm != nil; mm = mm.base {
		if v, ok := mm.metaNamed[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// SetBase sets the map's @base meta-inheritance parent.
func (m *Map) SetBase(base *Map) { m.base = base }

type mapIterator struct {
	m *Map
	i int
}

var _ Value = (*mapIterator)(nil)

func (it *mapIterator) String() string { return "map-iterator" }
func (it *mapIterator) Type() string   { return "iterator" }

func (it *mapIterator) Next(p *Value) bool {
	if it.i >= len(it.m.order) {
		return false
	}
	e := it.m.order[it.i]
	it.i++
	*p = NewTuple([]Value{e.key, e.value})
	return true
}
