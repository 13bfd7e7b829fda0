package machine

import "fmt"

// typeError builds the error returned when op has no defined meaning for
// the given operand(s); y may be nil for a unary operation.
func typeError(op string, x, y Value) error {
	if y == nil {
		return fmt.Errorf("unsupported operand type for %s: %s", op, x.Type())
	}
	return fmt.Errorf("unsupported operand types for %s: %s and %s", op, x.Type(), y.Type())
}

// Truth reports a value's truthiness: null and false are falsy, every
// other value (including 0, 0.0 and empty containers) is truthy, matching
// the language's "only null and false are falsy" rule.
func Truth(v Value) bool {
	switch x := v.(type) {
	case NullType:
		return false
	case Bool:
		return bool(x)
	default:
		return true
	}
}

// Equal reports whether x and y are equal, consulting HasEqual, then
// Ordered (zero comparison), then identity for everything else.
func Equal(x, y Value) (bool, error) {
	if hx, ok := x.(HasEqual); ok {
		return hx.Equals(y)
	}
	if ox, ok := x.(Ordered); ok {
		if _, ok := y.(Ordered); !ok || typeMismatch(x, y) {
			return false, nil
		}
		c, err := ox.Cmp(y)
		if err != nil {
			return false, err
		}
		return c == 0, nil
	}
	return x == y, nil
}

// typeMismatch reports whether x and y are different dynamic types, aside
// from the Int/Float numeric tower which compare freely.
func typeMismatch(x, y Value) bool {
	switch x.(type) {
	case Int, Float:
		switch y.(type) {
		case Int, Float:
			return false
		}
	}
	return x.Type() != y.Type()
}

// Compare implements the LT/LE/GT/GE/EQL/NEQ family of opcodes: op must be
// one of MetaLt, MetaLe, MetaGt, MetaGe, MetaEq or MetaNe.
func Compare(th *Thread, op MetaKey, x, y Value) (bool, error) {
	if op == MetaEq || op == MetaNe {
		eq, err := equalWithMeta(th, x, y)
		if err != nil {
			return false, err
		}
		if op == MetaNe {
			return !eq, nil
		}
		return eq, nil
	}

	if v, err, ok := tryMetaBinary(th, op, x, y); ok {
		if err != nil {
			return false, err
		}
		return Truth(v), nil
	}

	ox, ok := x.(Ordered)
	if !ok || typeMismatch(x, y) {
		return false, typeError(op.String(), x, y)
	}
	c, err := ox.Cmp(y)
	if err != nil {
		return false, err
	}
	switch op {
	case MetaLt:
		return c < 0, nil
	case MetaLe:
		return c <= 0, nil
	case MetaGt:
		return c > 0, nil
	case MetaGe:
		return c >= 0, nil
	}
	return false, fmt.Errorf("internal error: Compare called with op %s", op)
}

func equalWithMeta(th *Thread, x, y Value) (bool, error) {
	if v, err, ok := tryMetaBinary(th, MetaEq, x, y); ok {
		if err != nil {
			return false, err
		}
		return Truth(v), nil
	}
	return Equal(x, y)
}

// metaOf returns the meta-map attached to v, if any.
func metaOf(v Value) *Map {
	if hm, ok := v.(HasMetamap); ok {
		return hm.Metamap()
	}
	return nil
}

// tryMetaBinary consults x and y's @-meta entries, then their HasBinary
// implementations, for op. ok is false when neither operand declines to
// nor can handle op, meaning the caller should fall through to the
// built-in numeric/string behavior.
func tryMetaBinary(th *Thread, op MetaKey, x, y Value) (Value, error, bool) {
	if mm := metaOf(x); mm != nil {
		if fn, ok := mm.MetaLookup(op); ok {
			v, err := callMeta(th, fn, x, y)
			return v, err, true
		}
	}
	if mm := metaOf(y); mm != nil {
		if fn, ok := mm.MetaLookup(op); ok {
			v, err := callMeta(th, fn, y, x)
			return v, err, true
		}
	}
	if hb, ok := x.(HasBinary); ok {
		v, err := hb.Binary(op, y, Left)
		if err != nil || v != nil {
			return v, err, true
		}
	}
	if hb, ok := y.(HasBinary); ok {
		v, err := hb.Binary(op, x, Right)
		if err != nil || v != nil {
			return v, err, true
		}
	}
	return nil, nil, false
}

func callMeta(th *Thread, fn Value, args ...Value) (Value, error) {
	c, ok := fn.(Callable)
	if !ok {
		return nil, fmt.Errorf("meta entry is not callable: %s", fn.Type())
	}
	return Call(th, c, args)
}

// Binary implements the ADD/SUB/MUL/DIV/REM family. Meta-maps and
// HasBinary implementations are consulted first; the built-in behavior
// covers Int/Float arithmetic and ADD for *String/*List/*Tuple
// concatenation.
func Binary(th *Thread, op MetaKey, x, y Value) (Value, error) {
	if v, err, ok := tryMetaBinary(th, op, x, y); ok {
		return v, err
	}

	switch a := x.(type) {
	case Int:
		if b, ok := y.(Int); ok {
			return intArith(op, a, b)
		}
		if b, ok := y.(Float); ok {
			return floatArith(op, Float(a), b)
		}
	case Float:
		switch b := y.(type) {
		case Float:
			return floatArith(op, a, b)
		case Int:
			return floatArith(op, a, Float(b))
		}
	case *String:
		if op == MetaAdd {
			if b, ok := y.(*String); ok {
				return NewString(a.raw() + b.raw()), nil
			}
		}
	case *List:
		if op == MetaAdd {
			if b, ok := y.(*List); ok {
				out := append(append([]Value(nil), a.elems...), b.elems...)
				return NewList(out), nil
			}
		}
	case *Tuple:
		if op == MetaAdd {
			if b, ok := y.(*Tuple); ok {
				out := append(append([]Value(nil), a.elems...), b.elems...)
				return NewTuple(out), nil
			}
		}
	}
	return nil, typeError(op.String(), x, y)
}

func intArith(op MetaKey, a, b Int) (Value, error) {
	switch op {
	case MetaAdd:
		return a + b, nil
	case MetaSub:
		return a - b, nil
	case MetaMul:
		return a * b, nil
	case MetaDiv:
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a / b, nil
	case MetaRem:
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a % b, nil
	}
	return nil, fmt.Errorf("internal error: intArith called with op %s", op)
}

func floatArith(op MetaKey, a, b Float) (Value, error) {
	switch op {
	case MetaAdd:
		return a + b, nil
	case MetaSub:
		return a - b, nil
	case MetaMul:
		return a * b, nil
	case MetaDiv:
		return a / b, nil
	case MetaRem:
		return Float(float64mod(float64(a), float64(b))), nil
	}
	return nil, fmt.Errorf("internal error: floatArith called with op %s", op)
}

func float64mod(a, b float64) float64 {
	m := a - b*float64(int64(a/b))
	return m
}

// Unary implements the NEGATE/NOT family. Meta-maps and HasUnary
// implementations are consulted first.
func Unary(th *Thread, op MetaKey, x Value) (Value, error) {
	if mm := metaOf(x); mm != nil {
		if fn, ok := mm.MetaLookup(op); ok {
			return callMeta(th, fn, x)
		}
	}
	if hu, ok := x.(HasUnary); ok {
		v, err := hu.Unary(op)
		if err != nil || v != nil {
			return v, err
		}
	}

	switch op {
	case MetaNeg:
		switch a := x.(type) {
		case Int:
			return -a, nil
		case Float:
			return -a, nil
		}
	case MetaNot:
		return Bool(!Truth(x)), nil
	}
	return nil, typeError(op.String(), x, nil)
}

// Len returns the length of a sequence or mapping value, for the SIZE
// opcode.
func Len(v Value) (int, error) {
	switch x := v.(type) {
	case Sequence:
		return x.Len(), nil
	case *Map:
		return x.Len(), nil
	}
	return 0, fmt.Errorf("value of type %s has no length", v.Type())
}

// Display renders v for string interpolation / debug output, consulting
// @display before falling back to String().
func Display(th *Thread, v Value) (string, error) {
	if mm := metaOf(v); mm != nil {
		if fn, ok := mm.MetaLookup(MetaDisplay); ok {
			r, err := callMeta(th, fn, v)
			if err != nil {
				return "", err
			}
			v = r
		}
	}
	if s, ok := v.(*String); ok {
		return s.raw(), nil
	}
	return v.String(), nil
}
