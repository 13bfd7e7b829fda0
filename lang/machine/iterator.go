package machine

import "fmt"

// MakeIterator resolves the MAKEITER opcode's source-type dispatch: a
// Range produces a stateful integer iterator, List/Tuple an index
// iterator, Map an ordered key/value pair iterator, String a grapheme
// iterator, a generator-flagged Function a generator iterator (which
// resumes the generator itself), and any other value first consults its
// @iterator meta entry.
func MakeIterator(th *Thread, v Value) (Iterator, error) {
	switch x := v.(type) {
	case Range:
		return x.Iterate(), nil
	case *List:
		return x.Iterate(), nil
	case *Tuple:
		return x.Iterate(), nil
	case *Map:
		return x.Iterate(), nil
	case *String:
		return x.Iterate(), nil
	case *Function:
		if !x.Proto.Flags.Generator() {
			return nil, fmt.Errorf("value of type %s is not iterable", v.Type())
		}
		// A bare generator-flagged function used as an iterable (rather
		// than already having been called to produce a Generator) is
		// started with no arguments, matching a zero-parameter generator
		// referenced directly by name in a for-loop.
		r, err := Call(th, x, nil)
		if err != nil {
			return nil, err
		}
		g, ok := r.(*Generator)
		if !ok {
			return nil, fmt.Errorf("internal error: generator call did not produce a generator")
		}
		return g.Iterate(), nil
	case *Generator:
		return x.Iterate(), nil
	}

	if mm := metaOf(v); mm != nil {
		if fn, ok := mm.MetaLookup(MetaIterator); ok {
			r, err := callMeta(th, fn, v)
			if err != nil {
				return nil, err
			}
			if it, ok := r.(Iterator); ok {
				return it, nil
			}
			return MakeIterator(th, r)
		}
	}

	if it, ok := v.(Iterable); ok {
		return it.Iterate(), nil
	}

	return nil, fmt.Errorf("value of type %s is not iterable", v.Type())
}
