package machine

import "fmt"

// MetaKey identifies an entry in a value's meta-map: an operator overload
// or a fixed type-level hook (@display, @iterator, @type, ...). Named
// entries (@test name, @meta name) carry an additional string alongside
// the MetaKey.
type MetaKey uint8

//nolint:revive
const (
	MetaAdd MetaKey = iota
	MetaSub
	MetaMul
	MetaDiv
	MetaRem
	MetaLt
	MetaLe
	MetaGt
	MetaGe
	MetaEq
	MetaNe
	MetaNeg
	MetaNot

	MetaDisplay  // string conversion
	MetaType     // type name
	MetaIterator // construct an iterator over the value
	MetaNext     // advance a value acting as its own iterator
	MetaNextBack // reverse advance, for double-ended iteration
	MetaCall     // makes the value callable via Call
	MetaBase     // chains meta-lookup to a parent meta-map

	// Named entries use MetaTest/MetaNamed plus an associated string key
	// (the test name, or the custom meta name) rather than one of the
	// above fixed keys.
	MetaTest
	MetaNamed
)

var metaKeyNames = [...]string{
	MetaAdd: "@+", MetaSub: "@-", MetaMul: "@*", MetaDiv: "@/", MetaRem: "@%",
	MetaLt: "@<", MetaLe: "@<=", MetaGt: "@>", MetaGe: "@>=",
	MetaEq: "@==", MetaNe: "@!=", MetaNeg: "@neg", MetaNot: "@not",
	MetaDisplay: "@display", MetaType: "@type", MetaIterator: "@iterator",
	MetaNext: "@next", MetaNextBack: "@next_back", MetaCall: "@call",
	MetaBase: "@base", MetaTest: "@test", MetaNamed: "@meta",
}

func (k MetaKey) String() string {
	if int(k) < len(metaKeyNames) && metaKeyNames[k] != "" {
		return metaKeyNames[k]
	}
	return fmt.Sprintf("@<illegal %d>", k)
}
