package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/vela/lang/compiler"
)

// Thread carries the execution state and host-configurable limits for one
// run of a chunk: its call stack, I/O abstractions, step/recursion limits,
// and module loader. A Thread is not safe for concurrent use; the language
// has no shared-memory concurrency (see the module loader for how
// independent threads cooperate).
type Thread struct {
	// Name is an optional name that describes the thread, mostly for
	// debugging and traceback display.
	Name string

	// Stdout, Stderr and Stdin are the standard I/O abstractions for the
	// thread. If nil, os.Stdout, os.Stderr and os.Stdin are used.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps is the maximum number of executed instructions before the
	// thread is cancelled. A value <= 0 means no limit.
	MaxSteps int

	// DisableRecursion prevents a function from appearing more than once
	// in the call stack when set to true; a violation cancels the thread.
	// It incurs a small cost on every call, useful as a safety check when
	// running untrusted code.
	DisableRecursion bool

	// MaxCallStackDepth limits the number of nested function calls. A
	// value <= 0 means no limit.
	MaxCallStackDepth int

	// MaxCompareDepth is recorded when the thread starts running but is not
	// consulted by any comparison: nested comparisons of compound values
	// are not depth-limited.
	MaxCompareDepth int

	// Load resolves a module import by name, called by the IMPORT
	// instruction.
	Load func(*Thread, string) (Value, error)

	// Predeclared is the set of identifiers available to every chunk run
	// by this thread in addition to the language's universe, and which
	// scripts cannot reassign.
	Predeclared map[string]Value

	ctx       context.Context
	ctxCancel func()
	callStack []*Frame
	cancelled atomic.Bool

	steps, maxSteps uint64
	maxCompareDepth uint64

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	// pendingErr carries an exception escaping a generator's body across
	// the Iterator interface's Next method, which has no error channel of
	// its own; the VM's ITERNEXT handling checks it immediately after a
	// generator iterator reports exhaustion.
	pendingErr error

	// exports and exportMeta accumulate the VALUEEXPORT/METAEXPORT(NAMED)
	// bindings executed while running a chunk's top level, retrievable by
	// the host via Exports/ExportMeta once Run returns.
	exports    map[string]Value
	exportMeta *Map
}

// Exports returns the name/value bindings recorded by `export` statements
// during the most recent Run.
func (th *Thread) Exports() map[string]Value { return th.exports }

// ExportMeta returns the meta-map entries recorded by a module-level
// `export meta` declaration during the most recent Run, or nil if none
// were declared.
func (th *Thread) ExportMeta() *Map { return th.exportMeta }

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.MaxCompareDepth <= 0 {
		th.maxCompareDepth--
	} else {
		th.maxCompareDepth = uint64(th.MaxCompareDepth)
	}
	th.stdout = th.Stdout
	if th.stdout == nil {
		th.stdout = os.Stdout
	}
	th.stderr = th.Stderr
	if th.stderr == nil {
		th.stderr = os.Stderr
	}
	th.stdin = th.Stdin
	if th.stdin == nil {
		th.stdin = os.Stdin
	}
	if th.ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
	}
}

// Run compiles nothing itself; it executes an already-compiled chunk's
// top-level prototype to completion and returns its result (the value of
// the chunk's implicit trailing return).
func (th *Thread) Run(ctx context.Context, chunk *compiler.Chunk) (Value, error) {
	if th.ctx != nil {
		return nil, fmt.Errorf("thread %s is already executing", th.Name)
	}
	ctx, cancel := context.WithCancel(ctx)
	th.ctx = ctx
	th.ctxCancel = cancel
	th.init()
	if ctx != context.Background() {
		go func() {
			<-th.ctx.Done()
			th.cancelled.Store(true)
		}()
	}

	top := &Function{Chunk: chunk, Proto: chunk.Main, protoName: "main"}
	return Call(th, top, nil)
}

// Call invokes a Callable with the given positional arguments, enforcing
// the thread's recursion and call-stack-depth limits. Every call into
// script-visible code, whether from the VM's CALL/CALLINSTANCE opcodes or
// from a host built-in invoking a callback, must go through Call rather
// than Callable.CallInternal directly.
func Call(th *Thread, fn Callable, args []Value) (Value, error) {
	if th.cancelled.Load() {
		return nil, fmt.Errorf("thread %s: cancelled", th.Name)
	}
	if th.MaxCallStackDepth > 0 && len(th.callStack) >= th.MaxCallStackDepth {
		return nil, fmt.Errorf("thread %s: call stack depth exceeded (%d)", th.Name, th.MaxCallStackDepth)
	}
	if th.DisableRecursion {
		if target, ok := fn.(*Function); ok {
			for _, fr := range th.callStack {
				if fr.fn == target {
					return nil, fmt.Errorf("thread %s: recursive call to %s disallowed", th.Name, fn.Name())
				}
			}
		}
	}
	return fn.CallInternal(th, args)
}

// call runs fn's body (or, for a generator-flagged function, constructs
// and returns its suspended Generator without running any of its code)
// with args bound to its parameter registers.
func (th *Thread) call(fn *Function, args []Value) (Value, error) {
	var caller *Frame
	if len(th.callStack) > 0 {
		caller = th.callStack[len(th.callStack)-1]
	}
	fr := newFrame(fn, caller)
	if err := bindArgs(fr, fn, args); err != nil {
		return nil, err
	}

	if fn.Proto.Flags.Generator() {
		return newGenerator(th, fn).withFrame(fr), nil
	}

	th.callStack = append(th.callStack, fr)
	v, err := th.run(fr)
	th.callStack = th.callStack[:len(th.callStack)-1]
	if err != nil {
		// execFrame has already attributed this frame to err's traceback
		// (see raiseErr); propagate unchanged so the next enclosing call
		// attributes its own frame as the error continues to bubble up.
		return nil, err
	}
	return v, nil
}

// resume runs (or continues running) a generator's frame until its next
// Yield, a Return that completes the generator, or an escaping exception.
// ok is false once the generator has completed without producing a
// further value.
func (th *Thread) resume(g *Generator) (Value, bool, error) {
	if g.done || g.frame == nil {
		return nil, false, nil
	}
	th.callStack = append(th.callStack, g.frame)
	v, yielded, err := th.runGenerator(g.frame)
	th.callStack = th.callStack[:len(th.callStack)-1]
	if err != nil {
		g.done = true
		return nil, false, err
	}
	if !yielded {
		g.done = true
	}
	return v, yielded, nil
}

// bindArgs binds a call's arguments into fn's parameter registers. Missing
// trailing arguments are filled with Null rather than rejected, since the
// compiler never checks a call site's arg count against the callee's
// declared arity; only a fixed-arity function given more arguments than it
// declares is an error. A variadic function's last parameter collects any
// surplus arguments (possibly zero) into a tuple.
func bindArgs(fr *Frame, fn *Function, args []Value) error {
	np := fn.Proto.NumParams
	if fn.Proto.Flags.Variadic() {
		fixed := np - 1
		for i := 0; i < fixed; i++ {
			if i < len(args) {
				fr.set(byte(i), args[i])
			} else {
				fr.set(byte(i), Null)
			}
		}
		var rest []Value
		if len(args) > fixed {
			rest = append([]Value(nil), args[fixed:]...)
		}
		fr.set(byte(fixed), NewTuple(rest))
	} else {
		if len(args) > np {
			return fmt.Errorf("%s: expected %d arguments, got %d", fn.Name(), np, len(args))
		}
		for i := 0; i < np; i++ {
			if i < len(args) {
				fr.set(byte(i), args[i])
			} else {
				fr.set(byte(i), Null)
			}
		}
	}
	base := fn.Proto.NumRegisters
	for i, c := range fn.Captures {
		fr.set(byte(base+i), c)
	}
	return nil
}
