// Package machine implements the register-window virtual machine that
// executes compiled chunks: the runtime value family, call frames, the
// instruction dispatch loop, iterator and generator support, exception
// unwinding, and meta-map based operator overloading.
package machine

// Value is the interface implemented by any value manipulated by the
// machine.
type Value interface {
	String() string
	Type() string
}

// A Callable value f may be the operand of a function call, f(x). Clients
// should use Call, never CallInternal directly.
type Callable interface {
	Value
	Name() string
	CallInternal(th *Thread, args []Value) (Value, error)
}

// An Ordered type is a type whose values are totally ordered.
type Ordered interface {
	Value
	// Cmp compares two values of the same Ordered type. It returns negative
	// if the receiver is less than y, positive if greater, zero if equal.
	Cmp(y Value) (int, error)
}

// A HasEqual type defines custom equality for its values, for types that
// are not Ordered but should not use identity equality.
type HasEqual interface {
	Value
	Equals(y Value) (bool, error)
}

// An Iterable abstracts a sequence of values whose length is not
// necessarily known in advance of iteration.
type Iterable interface {
	Value
	Iterate() Iterator
}

// A Sequence is an Iterable of known length.
type Sequence interface {
	Iterable
	Len() int
}

// An Indexable is a sequence of known length supporting random access.
type Indexable interface {
	Value
	Index(i int) Value
	Len() int
}

// A HasSetIndex is an Indexable whose elements may be assigned (x[i] = y).
type HasSetIndex interface {
	Indexable
	SetIndex(i int, v Value) error
}

// A Sliceable supports the SliceFrom/SliceTo instructions.
type Sliceable interface {
	Indexable
	Slice(start, end int) Value
}

// An Iterator provides a sequence of values to the caller, advanced by
// IterNext. DoubleEnded iterators additionally support NextBack, used when
// a meta-map exposes @next_back.
type Iterator interface {
	Value
	// Next reports whether a value remains; if so it is written to *p and
	// the iterator advances.
	Next(p *Value) bool
}

// A DoubleEndedIterator additionally supports traversal from the back,
// used when a meta-map exposes @next_back.
type DoubleEndedIterator interface {
	Iterator
	NextBack(p *Value) bool
}

// A Mapping is a mapping from keys to values, such as a Map.
type Mapping interface {
	Value
	Get(k Value) (v Value, found bool, err error)
}

// A HasSetKey supports map update using x[k] = v syntax.
type HasSetKey interface {
	Mapping
	SetKey(k, v Value) error
}

// Side indicates whether a HasBinary receiver is the left or right operand
// of a binary operator.
type Side bool

const (
	Left  Side = false
	Right Side = true
)

// A HasBinary value may be used as either operand of a binary operator. An
// implementation may decline to handle the operator by returning (nil,
// nil), in which case the built-in implementation (if any) applies.
type HasBinary interface {
	Value
	Binary(op MetaKey, y Value, side Side) (Value, error)
}

// A HasUnary value may be used as the operand of a unary operator, with
// the same decline-by-(nil,nil) convention as HasBinary.
type HasUnary interface {
	Value
	Unary(op MetaKey) (Value, error)
}

// HasMetamap is implemented by values that support operator overloading
// and type-level method dispatch via an attached meta-map.
type HasMetamap interface {
	Value
	Metamap() *Map
}

// An ExternalObject is a host-provided opaque value embedded into the
// runtime value space.
type ExternalObject interface {
	Value
	ObjectType() string
	Copy() ExternalObject
	Lookup(key string) (Value, bool)
}

// An IOCapability exposes host I/O to scripts behind a capability handle,
// so that a sandboxed embedding can grant access selectively.
type IOCapability interface {
	ExternalObject
	ID() string
	Path() string
	ReadLine() (string, error)
	ReadToString() (string, error)
	Write(s string) (int, error)
	WriteLine(s string) (int, error)
	Flush() error
	Seek(offset int64, whence int) (int64, error)
}
