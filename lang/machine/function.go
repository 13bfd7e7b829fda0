package machine

import (
	"fmt"

	"github.com/mna/vela/lang/compiler"
)

// A Function is a closure over a compiled Prototype: a reference to the
// chunk it belongs to (so FUNCTION instructions inside it can resolve
// sibling prototype indices and the shared constant pool), plus the
// captured values a CAPTURE sequence populated at creation time.
type Function struct {
	Chunk     *compiler.Chunk
	Proto     *compiler.Prototype
	Captures  []Value
	protoName string // "main" or "function", for display only
}

var (
	_ Value    = (*Function)(nil)
	_ Callable = (*Function)(nil)
)

func (fn *Function) String() string { return fmt.Sprintf("function(%p %s)", fn, fn.Name()) }
func (fn *Function) Type() string   { return "function" }

func (fn *Function) CallInternal(th *Thread, args []Value) (Value, error) {
	return th.call(fn, args)
}

func (fn *Function) Name() string {
	if fn.Proto.Name != "" {
		return fn.Proto.Name
	}
	return "unknown"
}

// A Generator is a function whose frame is retained between resumptions
// instead of being discarded on Return: each call to Resume runs the frame
// until its next Yield, a Return (which completes the generator), or an
// escaping exception.
type Generator struct {
	fn     *Function
	frame  *Frame
	done   bool
	thread *Thread
}

var (
	_ Value    = (*Generator)(nil)
	_ Iterable = (*Generator)(nil)
)

// newGenerator returns a suspended generator over fn, ready to run from
// its first instruction on the first call to Next.
func newGenerator(th *Thread, fn *Function) *Generator {
	return &Generator{fn: fn, thread: th}
}

// withFrame attaches the already-bound register window fr (built by
// bindArgs at call time) and returns g, for use in a single expression at
// the call site.
func (g *Generator) withFrame(fr *Frame) *Generator {
	g.frame = fr
	return g
}

func (g *Generator) String() string { return fmt.Sprintf("generator(%p %s)", g, g.fn.Name()) }
func (g *Generator) Type() string   { return "generator" }

// Iterate returns an iterator that resumes the generator once per Next
// call, matching the iterator protocol's generator source (spec.md
// §4.3.4): a generator value, wherever it's encountered by MakeIterator,
// iterates by resuming itself.
func (g *Generator) Iterate() Iterator { return g }

func (g *Generator) Next(p *Value) bool {
	if g.done {
		return false
	}
	v, ok, err := g.thread.resume(g)
	if err != nil {
		// an exception escaping a generator propagates to the resumer;
		// since Iterator.Next has no error channel, stash it for the VM
		// loop to re-raise via the thread's pending-error slot.
		g.thread.pendingErr = err
		g.done = true
		return false
	}
	if !ok {
		g.done = true
		return false
	}
	*p = v
	return true
}
