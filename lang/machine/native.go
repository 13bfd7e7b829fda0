package machine

import "fmt"

// A NativeFunc adapts a Go function into a Callable, the mechanism by
// which host modules (lang/stdlib/*) and embedding programs expose
// natives to scripts: the Predeclared map and Map.add_fn-style module
// builders populate entries with NativeFunc values rather than
// *Function, which only ever wraps a compiled Prototype.
type NativeFunc struct {
	FuncName string
	Fn       func(th *Thread, args []Value) (Value, error)
}

var (
	_ Value    = (*NativeFunc)(nil)
	_ Callable = (*NativeFunc)(nil)
)

func (n *NativeFunc) String() string { return fmt.Sprintf("function(native %s)", n.Name()) }
func (n *NativeFunc) Type() string   { return "function" }
func (n *NativeFunc) Name() string {
	if n.FuncName != "" {
		return n.FuncName
	}
	return "native"
}

func (n *NativeFunc) CallInternal(th *Thread, args []Value) (Value, error) {
	return n.Fn(th, args)
}

// Args wraps a native call's positional argument slice with the small set
// of type-checked accessors a host module needs to validate its own
// arguments, mirroring the teacher's own pattern of returning a typed
// error rather than panicking on a caller mistake.
type Args []Value

// Get returns the i'th argument, or an error naming the native function
// and the expected count if i is out of range.
func (a Args) Get(i int, fname string) (Value, error) {
	if i < 0 || i >= len(a) {
		return nil, fmt.Errorf("%s: expected at least %d arguments, got %d", fname, i+1, len(a))
	}
	return a[i], nil
}

func (a Args) Int(i int, fname string) (Int, error) {
	v, err := a.Get(i, fname)
	if err != nil {
		return 0, err
	}
	n, ok := v.(Int)
	if !ok {
		return 0, fmt.Errorf("%s: argument %d: expected an int, got %s", fname, i, v.Type())
	}
	return n, nil
}

func (a Args) Float(i int, fname string) (Float, error) {
	v, err := a.Get(i, fname)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case Float:
		return n, nil
	case Int:
		return Float(n), nil
	}
	return 0, fmt.Errorf("%s: argument %d: expected a number, got %s", fname, i, v.Type())
}

func (a Args) String(i int, fname string) (*String, error) {
	v, err := a.Get(i, fname)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*String)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d: expected a string, got %s", fname, i, v.Type())
	}
	return s, nil
}

func (a Args) Map(i int, fname string) (*Map, error) {
	v, err := a.Get(i, fname)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d: expected a map, got %s", fname, i, v.Type())
	}
	return m, nil
}
