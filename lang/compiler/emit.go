package compiler

// Emitter appends encoded instructions to a code buffer. One Emitter is
// used per function body being compiled; its Code becomes that function's
// Chunk/Prototype code.
type Emitter struct {
	Code []byte
}

func (e *Emitter) u8(b byte)   { e.Code = append(e.Code, b) }
func (e *Emitter) i8(b int8)   { e.u8(byte(b)) }
func (e *Emitter) boolB(b bool) {
	if b {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *Emitter) u16(v uint16) {
	e.Code = append(e.Code, byte(v), byte(v>>8))
}

func (e *Emitter) u32(v uint32) {
	e.Code = append(e.Code, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *Emitter) i64(v int64) {
	e.u32(uint32(uint64(v)))
	e.u32(uint32(uint64(v) >> 32))
}

// Len returns the current length of the code buffer, used as a jump
// target or patch-site offset by the compiler.
func (e *Emitter) Len() int { return len(e.Code) }

func (e *Emitter) op(o Opcode) { e.u8(byte(o)) }

func (e *Emitter) Nop()                        { e.op(NOP) }
func (e *Emitter) Copy(target, source byte)    { e.op(COPY); e.u8(target); e.u8(source) }
func (e *Emitter) SetNull(register byte)       { e.op(SETNULL); e.u8(register) }
func (e *Emitter) SetBool(register byte, v bool) {
	e.op(SETBOOL)
	e.u8(register)
	e.boolB(v)
}
func (e *Emitter) SetNumber(register byte, v int64) {
	e.op(SETNUMBER)
	e.u8(register)
	e.i64(v)
}
func (e *Emitter) LoadFloat(register byte, constant uint32) {
	e.op(LOADFLOAT)
	e.u8(register)
	e.u32(constant)
}
func (e *Emitter) LoadInt(register byte, constant uint32) {
	e.op(LOADINT)
	e.u8(register)
	e.u32(constant)
}
func (e *Emitter) LoadString(register byte, constant uint32) {
	e.op(LOADSTRING)
	e.u8(register)
	e.u32(constant)
}
func (e *Emitter) LoadNonLocal(register byte, constant uint32) {
	e.op(LOADNONLOCAL)
	e.u8(register)
	e.u32(constant)
}
func (e *Emitter) ValueExport(name, value byte) { e.op(VALUEEXPORT); e.u8(name); e.u8(value) }
func (e *Emitter) Import(register byte)         { e.op(IMPORT); e.u8(register) }
func (e *Emitter) MakeTempTuple(register, start, count byte) {
	e.op(MAKETEMPTUPLE)
	e.u8(register)
	e.u8(start)
	e.u8(count)
}
func (e *Emitter) TempTupleToTuple(register, source byte) {
	e.op(TEMPTUPLETOTUPLE)
	e.u8(register)
	e.u8(source)
}
func (e *Emitter) MakeMap(register byte, sizeHint uint32) {
	e.op(MAKEMAP)
	e.u8(register)
	e.u32(sizeHint)
}
func (e *Emitter) SeqStart(sizeHint uint32) { e.op(SEQSTART); e.u32(sizeHint) }
func (e *Emitter) SeqPush(value byte)       { e.op(SEQPUSH); e.u8(value) }
func (e *Emitter) SeqPushN(start, count byte) {
	e.op(SEQPUSHN)
	e.u8(start)
	e.u8(count)
}
func (e *Emitter) SeqToList(register byte)  { e.op(SEQTOLIST); e.u8(register) }
func (e *Emitter) SeqToTuple(register byte) { e.op(SEQTOTUPLE); e.u8(register) }

func (e *Emitter) Range(register, start, end byte) {
	e.op(RANGE)
	e.u8(register)
	e.u8(start)
	e.u8(end)
}
func (e *Emitter) RangeIncl(register, start, end byte) {
	e.op(RANGEINCL)
	e.u8(register)
	e.u8(start)
	e.u8(end)
}
func (e *Emitter) RangeTo(register, end byte) { e.op(RANGETO); e.u8(register); e.u8(end) }
func (e *Emitter) RangeToIncl(register, end byte) {
	e.op(RANGETOINCL)
	e.u8(register)
	e.u8(end)
}
func (e *Emitter) RangeFrom(register, start byte) { e.op(RANGEFROM); e.u8(register); e.u8(start) }
func (e *Emitter) RangeFull(register byte)         { e.op(RANGEFULL); e.u8(register) }

func (e *Emitter) MakeIterator(register, iterable byte) {
	e.op(MAKEITER)
	e.u8(register)
	e.u8(iterable)
}

func (e *Emitter) Function(register byte, proto uint32, captureCount byte) {
	e.op(FUNCTION)
	e.u8(register)
	e.u32(proto)
	e.u8(captureCount)
}
func (e *Emitter) Capture(function, target, source byte) {
	e.op(CAPTURE)
	e.u8(function)
	e.u8(target)
	e.u8(source)
}

func (e *Emitter) Negate(register, value byte) { e.op(NEGATE); e.u8(register); e.u8(value) }
func (e *Emitter) Not(register, value byte)    { e.op(NOT); e.u8(register); e.u8(value) }

func (e *Emitter) binary(op Opcode, register, lhs, rhs byte) {
	e.op(op)
	e.u8(register)
	e.u8(lhs)
	e.u8(rhs)
}

func (e *Emitter) Add(register, lhs, rhs byte) { e.binary(ADD, register, lhs, rhs) }
func (e *Emitter) Sub(register, lhs, rhs byte) { e.binary(SUB, register, lhs, rhs) }
func (e *Emitter) Mul(register, lhs, rhs byte) { e.binary(MUL, register, lhs, rhs) }
func (e *Emitter) Div(register, lhs, rhs byte) { e.binary(DIV, register, lhs, rhs) }
func (e *Emitter) Rem(register, lhs, rhs byte) { e.binary(REM, register, lhs, rhs) }
func (e *Emitter) Lt(register, lhs, rhs byte)  { e.binary(LT, register, lhs, rhs) }
func (e *Emitter) Le(register, lhs, rhs byte)  { e.binary(LE, register, lhs, rhs) }
func (e *Emitter) Gt(register, lhs, rhs byte)  { e.binary(GT, register, lhs, rhs) }
func (e *Emitter) Ge(register, lhs, rhs byte)  { e.binary(GE, register, lhs, rhs) }
func (e *Emitter) Eql(register, lhs, rhs byte) { e.binary(EQL, register, lhs, rhs) }
func (e *Emitter) Neq(register, lhs, rhs byte) { e.binary(NEQ, register, lhs, rhs) }

func (e *Emitter) assignOp(op Opcode, lhs, rhs byte) {
	e.op(op)
	e.u8(lhs)
	e.u8(rhs)
}
func (e *Emitter) AddAssign(lhs, rhs byte) { e.assignOp(ADDASSIGN, lhs, rhs) }
func (e *Emitter) SubAssign(lhs, rhs byte) { e.assignOp(SUBASSIGN, lhs, rhs) }
func (e *Emitter) MulAssign(lhs, rhs byte) { e.assignOp(MULASSIGN, lhs, rhs) }
func (e *Emitter) DivAssign(lhs, rhs byte) { e.assignOp(DIVASSIGN, lhs, rhs) }
func (e *Emitter) RemAssign(lhs, rhs byte) { e.assignOp(REMASSIGN, lhs, rhs) }

// Jump emits a forward jump with a placeholder offset and returns the code
// offset of the 16-bit operand, to be patched once the target is known via
// PatchJump.
func (e *Emitter) Jump(op Opcode, register byte, hasRegister bool) int {
	e.op(op)
	if hasRegister {
		e.u8(register)
	}
	patchAt := e.Len()
	e.u16(0)
	return patchAt
}

// PatchJump writes the forward distance from just after the jump's operand
// to the current end of the code buffer into the placeholder at patchAt.
func (e *Emitter) PatchJump(patchAt int) {
	offset := uint16(e.Len() - (patchAt + 2))
	e.Code[patchAt] = byte(offset)
	e.Code[patchAt+1] = byte(offset >> 8)
}

// JumpBack emits a backward jump to target (a previously recorded Len()).
func (e *Emitter) JumpBack(target int) {
	e.op(JMPBACK)
	offset := uint16(e.Len() + 2 - target)
	e.u16(offset)
}

func (e *Emitter) Call(result, function, frameBase, argCount byte) {
	e.op(CALL)
	e.u8(result)
	e.u8(function)
	e.u8(frameBase)
	e.u8(argCount)
}
func (e *Emitter) CallInstance(result, function, frameBase, argCount, instance byte) {
	e.op(CALLINSTANCE)
	e.u8(result)
	e.u8(function)
	e.u8(frameBase)
	e.u8(argCount)
	e.u8(instance)
}

func (e *Emitter) Return(register byte) { e.op(RETURN); e.u8(register) }
func (e *Emitter) Yield(register byte)  { e.op(YIELD); e.u8(register) }
func (e *Emitter) Throw(register byte)  { e.op(THROW); e.u8(register) }
func (e *Emitter) Size(register, value byte) { e.op(SIZE); e.u8(register); e.u8(value) }

// IterNext emits an ITERNEXT with a placeholder offset, returning its
// patch site the same way Jump does.
func (e *Emitter) IterNext(hasResult bool, result, iterator byte, tempOutput bool) int {
	e.op(ITERNEXT)
	e.boolB(hasResult)
	e.u8(result)
	e.u8(iterator)
	patchAt := e.Len()
	e.u16(0)
	e.boolB(tempOutput)
	return patchAt
}

func (e *Emitter) TempIndex(register, value byte, index int8) {
	e.op(TEMPINDEX)
	e.u8(register)
	e.u8(value)
	e.i8(index)
}
func (e *Emitter) SliceFrom(register, value byte, index int8) {
	e.op(SLICEFROM)
	e.u8(register)
	e.u8(value)
	e.i8(index)
}
func (e *Emitter) SliceTo(register, value byte, index int8) {
	e.op(SLICETO)
	e.u8(register)
	e.u8(value)
	e.i8(index)
}

func (e *Emitter) IsTuple(register, value byte) { e.op(ISTUPLE); e.u8(register); e.u8(value) }
func (e *Emitter) IsList(register, value byte)  { e.op(ISLIST); e.u8(register); e.u8(value) }

func (e *Emitter) Index(register, value, index byte) {
	e.op(INDEX)
	e.u8(register)
	e.u8(value)
	e.u8(index)
}
func (e *Emitter) SetIndex(register, index, value byte) {
	e.op(SETINDEX)
	e.u8(register)
	e.u8(index)
	e.u8(value)
}
func (e *Emitter) MapInsert(register, key, value byte) {
	e.op(MAPINSERT)
	e.u8(register)
	e.u8(key)
	e.u8(value)
}

func (e *Emitter) MetaInsert(register, value, id byte) {
	e.op(METAINSERT)
	e.u8(register)
	e.u8(value)
	e.u8(id)
}
func (e *Emitter) MetaInsertNamed(register, value, id, name byte) {
	e.op(METAINSERTNAMED)
	e.u8(register)
	e.u8(value)
	e.u8(id)
	e.u8(name)
}
func (e *Emitter) MetaExport(id, value byte) { e.op(METAEXPORT); e.u8(id); e.u8(value) }
func (e *Emitter) MetaExportNamed(id, name, value byte) {
	e.op(METAEXPORTNAMED)
	e.u8(id)
	e.u8(name)
	e.u8(value)
}

func (e *Emitter) Access(register, value byte, key uint32) {
	e.op(ACCESS)
	e.u8(register)
	e.u8(value)
	e.u32(key)
}
func (e *Emitter) AccessString(register, value, key byte) {
	e.op(ACCESSSTRING)
	e.u8(register)
	e.u8(value)
	e.u8(key)
}

// TryStart emits a TRYSTART with a placeholder catch offset, patched the
// same way as Jump.
func (e *Emitter) TryStart(argRegister byte) int {
	e.op(TRYSTART)
	e.u8(argRegister)
	patchAt := e.Len()
	e.u16(0)
	return patchAt
}
func (e *Emitter) TryEnd() { e.op(TRYEND) }

func (e *Emitter) Debug(register byte, constant uint32) {
	e.op(DEBUG)
	e.u8(register)
	e.u32(constant)
}

func (e *Emitter) CheckType(register byte, typeID TypeId) {
	e.op(CHECKTYPE)
	e.u8(register)
	e.u8(byte(typeID))
}
func (e *Emitter) CheckSizeEqual(register byte, size uint32) {
	e.op(CHECKSIZEEQUAL)
	e.u8(register)
	e.u32(size)
}
func (e *Emitter) CheckSizeMin(register byte, size uint32) {
	e.op(CHECKSIZEMIN)
	e.u8(register)
	e.u32(size)
}

func (e *Emitter) StringStart(sizeHint uint32) { e.op(STRINGSTART); e.u32(sizeHint) }
func (e *Emitter) StringPush(value byte)       { e.op(STRINGPUSH); e.u8(value) }
func (e *Emitter) StringFinish(register byte)  { e.op(STRINGFINISH); e.u8(register) }
