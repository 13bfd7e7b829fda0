package machine

import "fmt"

// execMethod resolves name as one of the handful of built-in methods the
// language exposes directly on its sequence and iterator types (list,
// tuple, generator, range), rather than through a user-defined meta-map.
// It reports false when v has no such method, letting the caller fall
// back to its own "no attributes" error.
//
// Every returned NativeFunc reads its receiver back from args[0] (the
// CALLINSTANCE convention of prepending the instance to the argument
// list) rather than closing over v, so the same *NativeFunc could in
// principle be shared across receivers of the same kind.
func execMethod(v Value, name string) (Value, bool) {
	switch name {
	case "size":
		if _, ok := v.(Sequence); !ok {
			return nil, false
		}
		return &NativeFunc{FuncName: "size", Fn: func(th *Thread, args []Value) (Value, error) {
			s, ok := args[0].(Sequence)
			if !ok {
				return nil, fmt.Errorf("size: receiver is not a sequence")
			}
			return Int(s.Len()), nil
		}}, true

	case "push":
		if _, ok := v.(*List); !ok {
			return nil, false
		}
		return &NativeFunc{FuncName: "push", Fn: func(th *Thread, args []Value) (Value, error) {
			l, ok := args[0].(*List)
			if !ok {
				return nil, fmt.Errorf("push: receiver is not a list")
			}
			if len(args) < 2 {
				return nil, fmt.Errorf("push: expected 1 argument, got 0")
			}
			l.Append(args[1])
			return l, nil
		}}, true

	case "to_tuple":
		if _, ok := v.(Iterable); !ok {
			return nil, false
		}
		return &NativeFunc{FuncName: "to_tuple", Fn: func(th *Thread, args []Value) (Value, error) {
			elems, err := drainIterable(args[0])
			if err != nil {
				return nil, err
			}
			return NewTuple(elems), nil
		}}, true

	case "to_list":
		if _, ok := v.(Iterable); !ok {
			return nil, false
		}
		return &NativeFunc{FuncName: "to_list", Fn: func(th *Thread, args []Value) (Value, error) {
			elems, err := drainIterable(args[0])
			if err != nil {
				return nil, err
			}
			return NewList(elems), nil
		}}, true
	}
	return nil, false
}

func drainIterable(v Value) ([]Value, error) {
	it, ok := v.(Iterable)
	if !ok {
		return nil, fmt.Errorf("value of type %s is not iterable", v.Type())
	}
	iter := it.Iterate()
	var elems []Value
	var p Value
	for iter.Next(&p) {
		elems = append(elems, p)
	}
	return elems, nil
}
