package compiler

import (
	"fmt"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/resolver"
)

// compileExpr compiles ix for its value, returning the register holding
// the result. Most kinds allocate a fresh register for the result; a
// local identifier, self, a parenthesized expression and a lookup without
// steps return the register that already holds the value.
func (fc *fcomp) compileExpr(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	switch n.Kind {
	case ast.BoolTrue:
		r := fc.alloc()
		fc.em.SetBool(r, true)
		return r, nil
	case ast.BoolFalse:
		r := fc.alloc()
		fc.em.SetBool(r, false)
		return r, nil
	case ast.NullLit:
		r := fc.alloc()
		fc.em.SetNull(r)
		return r, nil
	case ast.SmallInt:
		r := fc.alloc()
		fc.em.SetNumber(r, n.Int)
		return r, nil
	case ast.IntLit:
		r := fc.alloc()
		fc.em.LoadInt(r, fc.chunk.Constants.AddInt(n.Int))
		return r, nil
	case ast.FloatLit:
		r := fc.alloc()
		fc.em.LoadFloat(r, fc.chunk.Constants.AddFloat(n.Float))
		return r, nil
	case ast.Str:
		return fc.compileStr(n)

	case ast.Id:
		return fc.compileID(n)

	case ast.SelfLit:
		// the receiver is always copied into register 0 of the method's
		// window by CALLINSTANCE
		return 0, nil

	case ast.Tuple, ast.TempTuple:
		return fc.compileSequence(n, true)
	case ast.List:
		return fc.compileSequence(n, false)

	case ast.MapLit:
		return fc.compileMap(n)

	case ast.RangeLit:
		start, err := fc.compileExpr(n.A)
		if err != nil {
			return 0, err
		}
		end, err := fc.compileExpr(n.B)
		if err != nil {
			return 0, err
		}
		r := fc.alloc()
		if n.Int != 0 {
			fc.em.RangeIncl(r, start, end)
		} else {
			fc.em.Range(r, start, end)
		}
		return r, nil
	case ast.RangeFrom:
		start, err := fc.compileExpr(n.A)
		if err != nil {
			return 0, err
		}
		r := fc.alloc()
		fc.em.RangeFrom(r, start)
		return r, nil
	case ast.RangeTo:
		end, err := fc.compileExpr(n.A)
		if err != nil {
			return 0, err
		}
		r := fc.alloc()
		if n.Int != 0 {
			fc.em.RangeToIncl(r, end)
		} else {
			fc.em.RangeTo(r, end)
		}
		return r, nil
	case ast.RangeFull:
		r := fc.alloc()
		fc.em.RangeFull(r)
		return r, nil

	case ast.Nested:
		return fc.compileExpr(n.A)

	case ast.UnaryOp:
		return fc.compileUnary(n)
	case ast.BinaryOp:
		return fc.compileBinary(n)
	case ast.Pipe:
		return fc.compilePipe(n)

	case ast.FunctionLit:
		return fc.compileFunctionLit(ix, n)

	case ast.Lookup:
		return fc.compileLookup(n)
	case ast.IndexOp:
		coll, err := fc.compileExpr(n.A)
		if err != nil {
			return 0, err
		}
		idx, err := fc.compileExpr(n.B)
		if err != nil {
			return 0, err
		}
		r := fc.alloc()
		fc.em.Index(r, coll, idx)
		return r, nil
	case ast.Call:
		return fc.compileCall(n)

	case ast.MetaLit:
		return fc.compileExpr(n.B)

	default:
		return 0, fmt.Errorf("compiler: unsupported expression kind %s", n.Kind)
	}
}

func (fc *fcomp) compileStr(n *ast.Node) (byte, error) {
	if n.Int == 0 {
		r := fc.alloc()
		fc.em.LoadString(r, fc.chunk.Constants.AddString(n.Str))
		return r, nil
	}
	fc.em.StringStart(uint32(n.B - n.A))
	for i := n.A; i < n.B; i++ {
		frag := fc.tree.StringFrags[i]
		var val byte
		if frag.IsExpr {
			r, err := fc.compileExpr(frag.Expr)
			if err != nil {
				return 0, err
			}
			val = r
		} else {
			val = fc.alloc()
			fc.em.LoadString(val, fc.chunk.Constants.AddString(frag.Lit))
		}
		fc.em.StringPush(val)
	}
	r := fc.alloc()
	fc.em.StringFinish(r)
	return r, nil
}

func (fc *fcomp) compileID(n *ast.Node) (byte, error) {
	kind, slot := resolver.DecodeBinding(n.Int)
	switch kind {
	case resolver.Local:
		return byte(slot), nil
	case resolver.Upvalue:
		return byte(fc.upvalBase() + slot), nil
	default:
		r := fc.alloc()
		fc.em.LoadNonLocal(r, fc.chunk.Constants.AddString(n.Str))
		return r, nil
	}
}

func (fc *fcomp) compileSequence(n *ast.Node, asTuple bool) (byte, error) {
	elems := fc.tree.ExtraSlice(n.Extra)
	fc.em.SeqStart(uint32(len(elems)))
	for _, el := range elems {
		r, err := fc.compileExpr(el)
		if err != nil {
			return 0, err
		}
		fc.em.SeqPush(r)
	}
	r := fc.alloc()
	if asTuple {
		fc.em.SeqToTuple(r)
	} else {
		fc.em.SeqToList(r)
	}
	return r, nil
}

func (fc *fcomp) compileMap(n *ast.Node) (byte, error) {
	pairs := fc.tree.ExtraSlice(n.Extra)
	r := fc.alloc()
	fc.em.MakeMap(r, uint32(len(pairs)/2))
	for i := 0; i+1 < len(pairs); i += 2 {
		keyNode := fc.tree.At(pairs[i])
		var key byte
		if keyNode.Kind == ast.Id {
			key = fc.alloc()
			fc.em.LoadString(key, fc.chunk.Constants.AddString(keyNode.Str))
		} else {
			k, err := fc.compileExpr(pairs[i])
			if err != nil {
				return 0, err
			}
			key = k
		}
		val, err := fc.compileExpr(pairs[i+1])
		if err != nil {
			return 0, err
		}
		fc.em.MapInsert(r, key, val)
	}
	return r, nil
}

// compileFunctionLit compiles a nested function literal: its body is
// compiled into its own Prototype (appended to the chunk's Prototypes
// list), and a FUNCTION instruction in the enclosing function creates a
// closure value over it, followed by one CAPTURE per upvalue it needs.
func (fc *fcomp) compileFunctionLit(ix ast.Index, n *ast.Node) (byte, error) {
	info := fc.res.Funcs[ix]
	if info == nil {
		info = &resolver.FuncInfo{}
	}
	params := fc.tree.ExtraSlice(n.Extra)

	nested := &fcomp{comp: fc.comp, info: info, nextReg: info.NumRegisters, maxReg: info.NumRegisters}
	r, err := nested.compileBlockValue(n.A)
	if err != nil {
		return 0, err
	}
	nested.em.Return(r)

	flags := FunctionFlags(0)
	if n.Int != 0 {
		flags |= FlagGenerator
	}
	proto := &Prototype{
		Name:         "function",
		Code:         nested.em.Code,
		NumRegisters: nested.maxReg,
		NumParams:    len(params),
		CaptureCount: len(info.Upvalues),
		Flags:        flags,
	}
	protoIx := uint32(len(fc.chunk.Prototypes))
	fc.chunk.Prototypes = append(fc.chunk.Prototypes, proto)

	r2 := fc.alloc()
	fc.em.Function(r2, protoIx, byte(len(info.Upvalues)))
	for i, up := range info.Upvalues {
		var source byte
		if up.FromParentLocal {
			source = byte(up.Index)
		} else {
			source = byte(fc.upvalBase() + up.Index)
		}
		fc.em.Capture(r2, byte(i), source)
	}
	return r2, nil
}

func (fc *fcomp) compileUnary(n *ast.Node) (byte, error) {
	v, err := fc.compileExpr(n.A)
	if err != nil {
		return 0, err
	}
	r := fc.alloc()
	switch ast.UnOp(n.Int) {
	case ast.UnNegate:
		fc.em.Negate(r, v)
	case ast.UnNot:
		fc.em.Not(r, v)
	default:
		return 0, fmt.Errorf("compiler: unsupported unary operator %d", n.Int)
	}
	return r, nil
}

func (fc *fcomp) compileBinary(n *ast.Node) (byte, error) {
	lhs, err := fc.compileExpr(n.A)
	if err != nil {
		return 0, err
	}
	rhs, err := fc.compileExpr(n.B)
	if err != nil {
		return 0, err
	}
	r := fc.alloc()
	switch ast.BinOp(n.Int) {
	case ast.BinAdd:
		fc.em.Add(r, lhs, rhs)
	case ast.BinSubtract:
		fc.em.Sub(r, lhs, rhs)
	case ast.BinMultiply:
		fc.em.Mul(r, lhs, rhs)
	case ast.BinDivide:
		fc.em.Div(r, lhs, rhs)
	case ast.BinRemainder:
		fc.em.Rem(r, lhs, rhs)
	case ast.BinLess:
		fc.em.Lt(r, lhs, rhs)
	case ast.BinLessOrEqual:
		fc.em.Le(r, lhs, rhs)
	case ast.BinGreater:
		fc.em.Gt(r, lhs, rhs)
	case ast.BinGreaterOrEqual:
		fc.em.Ge(r, lhs, rhs)
	case ast.BinEqual:
		fc.em.Eql(r, lhs, rhs)
	case ast.BinNotEqual:
		fc.em.Neq(r, lhs, rhs)
	case ast.BinAnd:
		// short-circuit: if lhs is false, skip rhs and keep lhs in r
		fc.em.Copy(r, lhs)
		skip := fc.em.Jump(JMPIFFALSE, r, true)
		fc.em.Copy(r, rhs)
		fc.em.PatchJump(skip)
	case ast.BinOr:
		fc.em.Copy(r, lhs)
		skip := fc.em.Jump(JMPIFTRUE, r, true)
		fc.em.Copy(r, rhs)
		fc.em.PatchJump(skip)
	default:
		return 0, fmt.Errorf("compiler: unsupported binary operator %d", n.Int)
	}
	return r, nil
}

// compilePipe desugars `x >> f` into a call of f with x as its sole
// argument.
func (fc *fcomp) compilePipe(n *ast.Node) (byte, error) {
	lhs, err := fc.compileExpr(n.A)
	if err != nil {
		return 0, err
	}
	fn, err := fc.compileExpr(n.B)
	if err != nil {
		return 0, err
	}
	frameBase := fc.alloc()
	fc.em.Copy(frameBase, lhs)
	result := fc.alloc()
	fc.em.Call(result, fn, frameBase, 1)
	return result, nil
}

func (fc *fcomp) compileLookup(n *ast.Node) (byte, error) {
	root, err := fc.compileExpr(n.A)
	if err != nil {
		return 0, err
	}
	cur := root
	inst, hasInst := root, false
	steps := fc.tree.ExtraSlice(n.Extra)
	for i := 0; i < len(steps); i++ {
		step := fc.tree.At(steps[i])
		switch step.Kind {
		case ast.Id:
			r := fc.alloc()
			fc.em.AccessString(r, cur, fc.loadConstName(step.Str))
			inst, hasInst = cur, true
			cur = r
		case ast.IndexOp:
			idx, err := fc.compileExpr(step.A)
			if err != nil {
				return 0, err
			}
			r := fc.alloc()
			fc.em.Index(r, cur, idx)
			cur = r
			hasInst = false
		case ast.Call:
			r, err := fc.compileCallOn(step, cur, inst, hasInst)
			if err != nil {
				return 0, err
			}
			cur = r
			hasInst = false
		default:
			return 0, fmt.Errorf("compiler: unsupported lookup step %s", step.Kind)
		}
	}
	return cur, nil
}

// loadConstName allocates a fresh register holding the given name as a
// string constant, used for AccessString's key operand.
func (fc *fcomp) loadConstName(name string) byte {
	r := fc.alloc()
	fc.em.LoadString(r, fc.chunk.Constants.AddString(name))
	return r
}

// compileCall compiles a bare `f(args)` call: n.A is the callee expression.
func (fc *fcomp) compileCall(n *ast.Node) (byte, error) {
	fn, err := fc.compileExpr(n.A)
	if err != nil {
		return 0, err
	}
	return fc.emitCall(fn, n, 0, false)
}

// compileCallOn compiles a Call step within a Lookup chain, where fn is the
// register holding the value the preceding step produced (the callee).
// When that step was a `.name` access, withInstance is true and instance
// is the register holding the value the name was looked up on, which the
// call receives as its instance (CALLINSTANCE); otherwise a plain CALL is
// emitted.
func (fc *fcomp) compileCallOn(step *ast.Node, fn, instance byte, withInstance bool) (byte, error) {
	return fc.emitCall(fn, step, instance, withInstance)
}

func (fc *fcomp) emitCall(fn byte, n *ast.Node, instance byte, withInstance bool) (byte, error) {
	args := fc.tree.ExtraSlice(n.Extra)
	frameBase := fc.nextReg
	for _, a := range args {
		if _, err := fc.compileExpr(a); err != nil {
			return 0, err
		}
	}
	result := fc.alloc()
	if withInstance {
		fc.em.CallInstance(result, fn, byte(frameBase), byte(len(args)), instance)
	} else {
		fc.em.Call(result, fn, byte(frameBase), byte(len(args)))
	}
	return result, nil
}
