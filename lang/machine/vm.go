package machine

import (
	"fmt"

	"github.com/mna/vela/lang/compiler"
)

// handler is a pushed exception handler, recorded by TRYSTART and
// consulted by a THROW or an error escaping a nested operation within the
// same frame.
type handler struct {
	argReg   byte
	catchPC  int
	seqDepth int
	strDepth int
}

// run executes fr as an ordinary (non-generator) call to completion and
// returns its result. A YIELD reached while running an ordinary call is a
// runtime error, since only a generator-flagged function may suspend.
func (th *Thread) run(fr *Frame) (Value, error) {
	v, yielded, err := th.execFrame(fr)
	if err != nil {
		return nil, err
	}
	if yielded {
		return nil, fmt.Errorf("yield outside generator")
	}
	return v, nil
}

// runGenerator runs (or resumes) fr until its next Yield or a completing
// Return.
func (th *Thread) runGenerator(fr *Frame) (Value, bool, error) {
	return th.execFrame(fr)
}

// execFrame is the instruction dispatch loop: it steps fr from its current
// program counter until a RETURN (yielded=false), a YIELD (yielded=true),
// or an unrecovered error.
func (th *Thread) execFrame(fr *Frame) (result Value, yielded bool, err error) {
	r := &compiler.Reader{Code: fr.fn.Proto.Code, IP: fr.pc}
	constants := fr.fn.Chunk.Constants

	raise := func(v Value) (Value, bool, error) {
		if len(fr.handlers) > 0 {
			h := fr.handlers[len(fr.handlers)-1]
			fr.handlers = fr.handlers[:len(fr.handlers)-1]
			if h.seqDepth < len(fr.seqs) {
				fr.seqs = fr.seqs[:h.seqDepth]
			}
			if h.strDepth < len(fr.strs) {
				fr.strs = fr.strs[:h.strDepth]
			}
			fr.set(h.argReg, v)
			r.IP = h.catchPC
			return nil, false, errRecovered
		}
		return nil, false, newThrowError(v, fr)
	}
	// raiseErr handles an error surfacing from a failed operation or a
	// bubbled-up nested call: if this frame has a handler, it is caught
	// using the error's thrown value (or its message, for a non-THROW
	// failure); otherwise an *EvalError already built by a deeper frame is
	// returned unchanged; traceback attribution happens as it continues
	// to bubble up through each enclosing call's newEvalError.
	raiseErr := func(err error) (Value, bool, error) {
		if len(fr.handlers) > 0 {
			if ee, ok := err.(*EvalError); ok && ee.Thrown != nil {
				return raise(ee.Thrown)
			}
			return raise(NewString(err.Error()))
		}
		return nil, false, newEvalError(err, fr)
	}

	for {
		th.steps++
		if th.steps > th.maxSteps {
			return nil, false, fmt.Errorf("thread %s: step limit exceeded", th.Name)
		}
		if th.cancelled.Load() {
			return nil, false, fmt.Errorf("thread %s: cancelled", th.Name)
		}
		if r.Done() {
			return Null, false, nil
		}
		in := r.Next()

		var stepErr error
		switch in.Op {
		case compiler.NOP:
		case compiler.ERROR:
			stepErr = fmt.Errorf("internal error: ERROR opcode reached")

		case compiler.COPY:
			fr.set(in.Target, fr.get(in.Source))
		case compiler.SETNULL:
			fr.set(in.Register, Null)
		case compiler.SETBOOL:
			fr.set(in.Register, Bool(in.Bool))
		case compiler.SETNUMBER:
			fr.set(in.Register, Int(in.Long))
		case compiler.LOADFLOAT:
			fr.set(in.Register, Float(constants.Floats[in.Constant]))
		case compiler.LOADINT:
			fr.set(in.Register, Int(constants.Ints[in.Constant]))
		case compiler.LOADSTRING:
			fr.set(in.Register, NewString(constants.Strings[in.Constant]))
		case compiler.LOADNONLOCAL:
			name := constants.Strings[in.Constant]
			if v, ok := th.Predeclared[name]; ok {
				fr.set(in.Register, v)
			} else if v, ok := Universe[name]; ok {
				fr.set(in.Register, v)
			} else {
				stepErr = fmt.Errorf("undefined name: %s", name)
			}

		case compiler.VALUEEXPORT:
			name, ok := fr.get(in.Name).(*String)
			if !ok {
				stepErr = fmt.Errorf("export name must be a string")
				break
			}
			if th.exports == nil {
				th.exports = make(map[string]Value)
			}
			th.exports[name.raw()] = fr.get(in.Value)

		case compiler.IMPORT:
			name, ok := fr.get(in.Register).(*String)
			if !ok {
				stepErr = fmt.Errorf("import: module name must be a string")
				break
			}
			if th.Load == nil {
				stepErr = fmt.Errorf("import: no module loader configured")
				break
			}
			v, err := th.Load(th, name.raw())
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, v)

		case compiler.MAKETEMPTUPLE:
			elems := make([]Value, in.Count)
			for i := byte(0); i < in.Count; i++ {
				elems[i] = fr.get(in.Start + i)
			}
			fr.set(in.Register, NewTuple(elems))
		case compiler.TEMPTUPLETOTUPLE:
			t := fr.get(in.Source).(*Tuple)
			fr.set(in.Register, NewTuple(append([]Value(nil), t.elems...)))

		case compiler.MAKEMAP:
			fr.set(in.Register, NewMap(int(in.SizeHint)))

		case compiler.SEQSTART:
			fr.seqs = append(fr.seqs, make([]Value, 0, in.SizeHint))
		case compiler.SEQPUSH:
			top := len(fr.seqs) - 1
			fr.seqs[top] = append(fr.seqs[top], fr.get(in.Value))
		case compiler.SEQPUSHN:
			top := len(fr.seqs) - 1
			for i := byte(0); i < in.Count; i++ {
				fr.seqs[top] = append(fr.seqs[top], fr.get(in.Start+i))
			}
		case compiler.SEQTOLIST:
			top := len(fr.seqs) - 1
			fr.set(in.Register, NewList(fr.seqs[top]))
			fr.seqs = fr.seqs[:top]
		case compiler.SEQTOTUPLE:
			top := len(fr.seqs) - 1
			fr.set(in.Register, NewTuple(fr.seqs[top]))
			fr.seqs = fr.seqs[:top]

		case compiler.RANGE, compiler.RANGEINCL:
			lo, e1 := toInt(fr.get(in.Start))
			hi, e2 := toInt(fr.get(in.Value))
			if stepErr = firstErr(e1, e2); stepErr == nil {
				fr.set(in.Register, Range{Start: lo, End: hi, HasStart: true, HasEnd: true, Inclusive: in.Op == compiler.RANGEINCL})
			}
		case compiler.RANGETO, compiler.RANGETOINCL:
			hi, e1 := toInt(fr.get(in.Value))
			if stepErr = e1; stepErr == nil {
				fr.set(in.Register, Range{End: hi, HasEnd: true, Inclusive: in.Op == compiler.RANGETOINCL})
			}
		case compiler.RANGEFROM:
			lo, e1 := toInt(fr.get(in.Start))
			if stepErr = e1; stepErr == nil {
				fr.set(in.Register, Range{Start: lo, HasStart: true})
			}
		case compiler.RANGEFULL:
			fr.set(in.Register, Range{})

		case compiler.MAKEITER:
			it, err := MakeIterator(th, fr.get(in.Iterator))
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, it)

		case compiler.FUNCTION:
			proto := fr.fn.Chunk.Prototypes[in.Constant]
			fn := &Function{Chunk: fr.fn.Chunk, Proto: proto}
			if in.Count > 0 {
				fn.Captures = make([]Value, in.Count)
			}
			fr.set(in.Register, fn)
		case compiler.CAPTURE:
			fn, ok := fr.get(in.Function).(*Function)
			if !ok {
				stepErr = fmt.Errorf("internal error: CAPTURE target is not a function")
				break
			}
			fn.Captures[in.Target] = fr.get(in.Source)

		case compiler.NEGATE:
			v, err := Unary(th, MetaNeg, fr.get(in.Value))
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, v)
		case compiler.NOT:
			v, err := Unary(th, MetaNot, fr.get(in.Value))
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, v)

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.REM:
			v, err := Binary(th, arithMetaKey(in.Op), fr.get(in.Source), fr.get(in.Value))
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, v)

		case compiler.ADDASSIGN, compiler.SUBASSIGN, compiler.MULASSIGN, compiler.DIVASSIGN, compiler.REMASSIGN:
			v, err := Binary(th, assignMetaKey(in.Op), fr.get(in.Source), fr.get(in.Value))
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Source, v)

		case compiler.LT, compiler.LE, compiler.GT, compiler.GE, compiler.EQL, compiler.NEQ:
			ok, err := Compare(th, cmpMetaKey(in.Op), fr.get(in.Source), fr.get(in.Value))
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, Bool(ok))

		case compiler.JMP:
			r.IP += int(in.Offset)
		case compiler.JMPBACK:
			r.IP -= int(in.Offset)
		case compiler.JMPIFTRUE:
			if Truth(fr.get(in.Register)) {
				r.IP += int(in.Offset)
			}
		case compiler.JMPIFFALSE:
			if !Truth(fr.get(in.Register)) {
				r.IP += int(in.Offset)
			}

		case compiler.CALL:
			callee := fr.get(in.Function)
			fn, ok := callee.(Callable)
			if !ok {
				if mm := metaOf(callee); mm != nil {
					if c, found := mm.MetaLookup(MetaCall); found {
						fn, ok = c.(Callable)
					}
				}
			}
			if !ok {
				stepErr = fmt.Errorf("value of type %s is not callable", callee.Type())
				break
			}
			args := make([]Value, in.ArgCount)
			for i := byte(0); i < in.ArgCount; i++ {
				args[i] = fr.get(in.FrameBase + i)
			}
			v, err := Call(th, fn, args)
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Result, v)
		case compiler.CALLINSTANCE:
			fn, ok := fr.get(in.Function).(Callable)
			if !ok {
				stepErr = fmt.Errorf("value of type %s is not callable", fr.get(in.Function).Type())
				break
			}
			args := make([]Value, 0, in.ArgCount+1)
			args = append(args, fr.get(in.Instance))
			for i := byte(0); i < in.ArgCount; i++ {
				args = append(args, fr.get(in.FrameBase+i))
			}
			v, err := Call(th, fn, args)
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Result, v)

		case compiler.RETURN:
			return fr.get(in.Register), false, nil
		case compiler.YIELD:
			fr.pc = r.IP
			return fr.get(in.Register), true, nil
		case compiler.THROW:
			v, y, err := raise(fr.get(in.Register))
			if err == errRecovered {
				continue
			}
			return v, y, err

		case compiler.SIZE:
			n, err := Len(fr.get(in.Value))
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, Int(n))

		case compiler.ITERNEXT:
			it, ok := fr.get(in.Iterator).(Iterator)
			if !ok {
				stepErr = fmt.Errorf("value of type %s is not an iterator", fr.get(in.Iterator).Type())
				break
			}
			var v Value
			if it.Next(&v) {
				if in.HasResult {
					fr.set(in.Result, v)
				}
			} else {
				if th.pendingErr != nil {
					pe := th.pendingErr
					th.pendingErr = nil
					stepErr = pe
					break
				}
				r.IP += int(in.Offset)
			}

		case compiler.TEMPINDEX:
			v := fr.get(in.Value)
			ix, ok := v.(Indexable)
			if !ok {
				stepErr = fmt.Errorf("value of type %s is not indexable", v.Type())
				break
			}
			i, err := normalizeIndex(int64(in.SByte), ix.Len())
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, ix.Index(i))
		case compiler.SLICEFROM:
			v := fr.get(in.Value)
			sl, ok := v.(Sliceable)
			if !ok {
				stepErr = fmt.Errorf("value of type %s is not sliceable", v.Type())
				break
			}
			i, err := normalizeIndex(int64(in.SByte), sl.Len())
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, sl.Slice(i, sl.Len()))
		case compiler.SLICETO:
			v := fr.get(in.Value)
			sl, ok := v.(Sliceable)
			if !ok {
				stepErr = fmt.Errorf("value of type %s is not sliceable", v.Type())
				break
			}
			i, err := normalizeIndex(int64(in.SByte), sl.Len())
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, sl.Slice(0, i))

		case compiler.ISTUPLE:
			_, ok := fr.get(in.Value).(*Tuple)
			fr.set(in.Register, Bool(ok))
		case compiler.ISLIST:
			_, ok := fr.get(in.Value).(*List)
			fr.set(in.Register, Bool(ok))

		case compiler.INDEX:
			stepErr = execIndex(fr, in)
		case compiler.SETINDEX:
			stepErr = execSetIndex(fr, in)
		case compiler.MAPINSERT:
			m, ok := fr.get(in.Register).(*Map)
			if !ok {
				stepErr = fmt.Errorf("value of type %s is not a map", fr.get(in.Register).Type())
				break
			}
			stepErr = m.SetKey(fr.get(in.Key), fr.get(in.Value))

		case compiler.METAINSERT:
			m, ok := fr.get(in.Register).(*Map)
			if !ok {
				stepErr = fmt.Errorf("value of type %s has no meta-map", fr.get(in.Register).Type())
				break
			}
			m.MetaInsert(MetaKey(in.Byte), fr.get(in.Value))
		case compiler.METAINSERTNAMED:
			m, ok := fr.get(in.Register).(*Map)
			if !ok {
				stepErr = fmt.Errorf("value of type %s has no meta-map", fr.get(in.Register).Type())
				break
			}
			name, ok := fr.get(in.Name).(*String)
			if !ok {
				stepErr = fmt.Errorf("meta entry name must be a string")
				break
			}
			m.MetaInsertNamed(name.raw(), fr.get(in.Value))
		case compiler.METAEXPORT:
			if th.exportMeta == nil {
				th.exportMeta = NewMap(1)
			}
			th.exportMeta.MetaInsert(MetaKey(in.Byte), fr.get(in.Value))
		case compiler.METAEXPORTNAMED:
			name, ok := fr.get(in.Name).(*String)
			if !ok {
				stepErr = fmt.Errorf("meta entry name must be a string")
				break
			}
			if th.exportMeta == nil {
				th.exportMeta = NewMap(1)
			}
			th.exportMeta.MetaInsertNamed(name.raw(), fr.get(in.Value))

		case compiler.ACCESS:
			key := constants.Strings[in.Constant]
			v, err := execAccess(fr.get(in.Value), key)
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, v)
		case compiler.ACCESSSTRING:
			keyStr, ok := fr.get(in.Key).(*String)
			if !ok {
				stepErr = fmt.Errorf("attribute name must be a string")
				break
			}
			v, err := execAccess(fr.get(in.Value), keyStr.raw())
			if err != nil {
				stepErr = err
				break
			}
			fr.set(in.Register, v)

		case compiler.TRYSTART:
			fr.handlers = append(fr.handlers, handler{
				argReg:   in.Register,
				catchPC:  r.IP + int(in.Offset),
				seqDepth: len(fr.seqs),
				strDepth: len(fr.strs),
			})
		case compiler.TRYEND:
			if len(fr.handlers) > 0 {
				fr.handlers = fr.handlers[:len(fr.handlers)-1]
			}

		case compiler.DEBUG:
			s := constants.Strings[in.Constant]
			disp, err := Display(th, fr.get(in.Register))
			if err != nil {
				stepErr = err
				break
			}
			fmt.Fprintf(th.stderr, "%s: %s\n", s, disp)

		case compiler.CHECKTYPE:
			v := fr.get(in.Register)
			var ok bool
			switch compiler.TypeId(in.Byte) {
			case compiler.TypeList:
				_, ok = v.(*List)
			case compiler.TypeTuple:
				_, ok = v.(*Tuple)
			}
			if !ok {
				stepErr = fmt.Errorf("expected %s, got %s", compiler.TypeId(in.Byte), v.Type())
			}
		case compiler.CHECKSIZEEQUAL:
			n, err := Len(fr.get(in.Register))
			if err != nil {
				stepErr = err
				break
			}
			if n != int(in.Constant) {
				stepErr = fmt.Errorf("expected size %d, got %d", in.Constant, n)
			}
		case compiler.CHECKSIZEMIN:
			n, err := Len(fr.get(in.Register))
			if err != nil {
				stepErr = err
				break
			}
			if n < int(in.Constant) {
				stepErr = fmt.Errorf("expected size of at least %d, got %d", in.Constant, n)
			}

		case compiler.STRINGSTART:
			fr.strs = append(fr.strs, make([]Value, 0, in.SizeHint))
		case compiler.STRINGPUSH:
			top := len(fr.strs) - 1
			fr.strs[top] = append(fr.strs[top], fr.get(in.Value))
		case compiler.STRINGFINISH:
			top := len(fr.strs) - 1
			parts := fr.strs[top]
			fr.strs = fr.strs[:top]
			var out string
			for _, p := range parts {
				s, err := Display(th, p)
				if err != nil {
					stepErr = err
					break
				}
				out += s
			}
			fr.set(in.Register, NewString(out))

		default:
			stepErr = fmt.Errorf("internal error: unimplemented opcode %s", in.Op)
		}

		if stepErr != nil {
			v, y, err := raiseErr(stepErr)
			if err == errRecovered {
				continue
			}
			return v, y, err
		}
	}
}

// errRecovered is a sentinel returned by raise/raiseErr when the frame's own
// handler stack caught the exception, telling the dispatch loop to keep
// executing from the patched program counter rather than unwind further.
var errRecovered = fmt.Errorf("internal: exception recovered locally")

func arithMetaKey(op compiler.Opcode) MetaKey {
	switch op {
	case compiler.ADD:
		return MetaAdd
	case compiler.SUB:
		return MetaSub
	case compiler.MUL:
		return MetaMul
	case compiler.DIV:
		return MetaDiv
	default:
		return MetaRem
	}
}

func assignMetaKey(op compiler.Opcode) MetaKey {
	switch op {
	case compiler.ADDASSIGN:
		return MetaAdd
	case compiler.SUBASSIGN:
		return MetaSub
	case compiler.MULASSIGN:
		return MetaMul
	case compiler.DIVASSIGN:
		return MetaDiv
	default:
		return MetaRem
	}
}

func cmpMetaKey(op compiler.Opcode) MetaKey {
	switch op {
	case compiler.LT:
		return MetaLt
	case compiler.LE:
		return MetaLe
	case compiler.GT:
		return MetaGt
	case compiler.GE:
		return MetaGe
	case compiler.EQL:
		return MetaEq
	default:
		return MetaNe
	}
}

func toInt(v Value) (int64, error) {
	switch x := v.(type) {
	case Int:
		return int64(x), nil
	case Float:
		return int64(x), nil
	}
	return 0, fmt.Errorf("expected an int, got %s", v.Type())
}

// normalizeIndex resolves a possibly-negative index against length,
// counting from the end when negative.
func normalizeIndex(i, length int64) (int, error) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("index out of range")
	}
	return int(i), nil
}

// rangeSliceBounds resolves a Range used as a slicing key into concrete
// [start, end) offsets into a sequence of the given length, honoring an
// open start or end (full-length bound), inclusive upper bounds, and
// negative (count-from-end) endpoints.
func rangeSliceBounds(r Range, length int64) (int, int, error) {
	start := int64(0)
	if r.HasStart {
		if r.Start < 0 {
			start = r.Start + length
		} else {
			start = r.Start
		}
		if start < 0 || start > length {
			return 0, 0, fmt.Errorf("index out of range")
		}
	}
	end := length
	if r.HasEnd {
		e := r.End
		if e < 0 {
			e += length
		}
		if r.Inclusive {
			e++
		}
		if e < 0 || e > length {
			return 0, 0, fmt.Errorf("index out of range")
		}
		end = e
	}
	if start > end {
		start = end
	}
	return int(start), int(end), nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func execIndex(fr *Frame, in compiler.Instruction) error {
	v := fr.get(in.Value)
	key := fr.get(in.Index)
	if rng, ok := key.(Range); ok {
		sl, ok := v.(Sliceable)
		if !ok {
			return fmt.Errorf("value of type %s is not sliceable", v.Type())
		}
		start, end, err := rangeSliceBounds(rng, int64(sl.Len()))
		if err != nil {
			return err
		}
		fr.set(in.Register, sl.Slice(start, end))
		return nil
	}
	switch x := v.(type) {
	case Mapping:
		r, found, err := x.Get(key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("key not found: %s", key.String())
		}
		fr.set(in.Register, r)
		return nil
	case Indexable:
		i, err := toInt(key)
		if err != nil {
			return err
		}
		n, err := normalizeIndex(i, int64(x.Len()))
		if err != nil {
			return err
		}
		fr.set(in.Register, x.Index(n))
		return nil
	}
	return fmt.Errorf("value of type %s is not indexable", v.Type())
}

func execSetIndex(fr *Frame, in compiler.Instruction) error {
	v := fr.get(in.Register)
	key := fr.get(in.Index)
	value := fr.get(in.Value)
	switch x := v.(type) {
	case HasSetKey:
		return x.SetKey(key, value)
	case HasSetIndex:
		i, err := toInt(key)
		if err != nil {
			return err
		}
		n, err := normalizeIndex(i, int64(x.Len()))
		if err != nil {
			return err
		}
		return x.SetIndex(n, value)
	}
	return fmt.Errorf("value of type %s does not support index assignment", v.Type())
}

func execAccess(v Value, key string) (Value, error) {
	switch x := v.(type) {
	case ExternalObject:
		r, ok := x.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("%s has no attribute %q", v.Type(), key)
		}
		return r, nil
	case *Map:
		r, found, err := x.Get(NewString(key))
		if err != nil {
			return nil, err
		}
		if found {
			return r, nil
		}
	}
	if m, ok := execMethod(v, key); ok {
		return m, nil
	}
	return nil, fmt.Errorf("value of type %s has no attribute %q", v.Type(), key)
}
