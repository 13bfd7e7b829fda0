package machine

import (
	"fmt"
	"strings"

	"github.com/mna/vela/lang/token"
)

// EvalError is a runtime error raised by the machine, either from a THROW
// instruction (Thrown holds the raised value) or from a built-in failure
// (Thrown is nil and Err holds the underlying Go error). It carries the
// call stack's span trail at the point of the failure, innermost frame
// first, for traceback reporting.
type EvalError struct {
	Thrown Value // the raised value, for THROW; nil for a built-in error
	Err    error // the underlying error, for a built-in failure; nil for THROW

	Trace []EvalFrame
}

// EvalFrame is one entry of an EvalError's traceback.
type EvalFrame struct {
	Name string
	Span token.Span
}

func (e *EvalError) Error() string {
	var msg string
	switch {
	case e.Thrown != nil:
		msg = e.Thrown.String()
	case e.Err != nil:
		msg = e.Err.Error()
	default:
		msg = "unknown error"
	}
	if len(e.Trace) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for _, f := range e.Trace {
		fmt.Fprintf(&b, "\n\tat %s (%s)", f.Name, f.Span)
	}
	return b.String()
}

func (e *EvalError) Unwrap() error { return e.Err }

// newEvalError wraps err, unless it is already an *EvalError, into a fresh
// *EvalError attributed to the given frame.
func newEvalError(err error, fr *Frame) *EvalError {
	if ee, ok := err.(*EvalError); ok {
		ee.Trace = append(ee.Trace, EvalFrame{Name: fr.fn.Name(), Span: fr.Span()})
		return ee
	}
	return &EvalError{Err: err, Trace: []EvalFrame{{Name: fr.fn.Name(), Span: fr.Span()}}}
}

func newThrowError(v Value, fr *Frame) *EvalError {
	return &EvalError{Thrown: v, Trace: []EvalFrame{{Name: fr.fn.Name(), Span: fr.Span()}}}
}
