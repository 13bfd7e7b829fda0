package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// This file implements a human-readable text form of a compiled Chunk,
// adapted from the teacher's stack-machine assembler/disassembler to this
// language's register operands. The format:
//
//	chunk: NAME
//	constants:
//		string "abc"
//		int 1234
//		float 1.34
//	exports:
//		name1
//		name2
//
//	function: NAME <registers> <params> <captures>
//		code:
//			NOP
//			ADD 2 0 1
//			JMP 3                          # argument is a byte offset, used as-is
//
// The first function block is the chunk's Main; each one after it is a
// nested Prototype, referenced by FUNCTION instructions via its order of
// appearance (0-based).

// Dasm renders chunk as human-readable assembly text.
func Dasm(chunk *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "chunk: %s\n", chunk.Name)

	if len(chunk.Constants.Strings) > 0 || len(chunk.Constants.Ints) > 0 || len(chunk.Constants.Floats) > 0 {
		b.WriteString("constants:\n")
		for _, s := range chunk.Constants.Strings {
			fmt.Fprintf(&b, "\tstring %q\n", s)
		}
		for _, i := range chunk.Constants.Ints {
			fmt.Fprintf(&b, "\tint %d\n", i)
		}
		for _, f := range chunk.Constants.Floats {
			fmt.Fprintf(&b, "\tfloat %v\n", f)
		}
	}

	if len(chunk.Exports) > 0 {
		b.WriteString("exports:\n")
		for _, e := range chunk.Exports {
			fmt.Fprintf(&b, "\t%s\n", e)
		}
	}

	dasmFunc(&b, chunk.Main)
	for _, p := range chunk.Prototypes {
		dasmFunc(&b, p)
	}
	return b.String()
}

func dasmFunc(b *strings.Builder, p *Prototype) {
	fmt.Fprintf(b, "function: %s %d %d %d\n", p.Name, p.NumRegisters, p.NumParams, p.CaptureCount)
	b.WriteString("\tcode:\n")
	r := NewReader(p.Code)
	for !r.Done() {
		pc := r.IP
		in := r.Next()
		fmt.Fprintf(b, "\t\t%s", in.Op)
		writeOperands(b, in, pc, r.IP)
		b.WriteByte('\n')
	}
}

func writeOperands(b *strings.Builder, in Instruction, startIP, endIP int) {
	switch in.Op {
	case NOP, ERROR, TRYEND:
	case COPY:
		fmt.Fprintf(b, " %d %d", in.Target, in.Source)
	case SETNULL, SEQTOLIST, SEQTOTUPLE, STRINGFINISH, IMPORT, RANGEFULL, RETURN, YIELD, THROW:
		fmt.Fprintf(b, " %d", in.Register)
	case SETBOOL:
		fmt.Fprintf(b, " %d %v", in.Register, in.Bool)
	case SETNUMBER:
		fmt.Fprintf(b, " %d %d", in.Register, in.Long)
	case LOADFLOAT, LOADINT, LOADSTRING, LOADNONLOCAL, DEBUG:
		fmt.Fprintf(b, " %d %d", in.Register, in.Constant)
	case VALUEEXPORT:
		fmt.Fprintf(b, " %d %d", in.Name, in.Value)
	case MAKETEMPTUPLE:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Start, in.Count)
	case TEMPTUPLETOTUPLE:
		fmt.Fprintf(b, " %d %d", in.Register, in.Source)
	case MAKEMAP:
		fmt.Fprintf(b, " %d %d", in.Register, in.SizeHint)
	case SEQSTART, STRINGSTART:
		fmt.Fprintf(b, " %d", in.SizeHint)
	case SEQPUSH, STRINGPUSH:
		fmt.Fprintf(b, " %d", in.Value)
	case SEQPUSHN:
		fmt.Fprintf(b, " %d %d", in.Start, in.Count)
	case RANGE, RANGEINCL:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Start, in.Value)
	case RANGETO, RANGETOINCL:
		fmt.Fprintf(b, " %d %d", in.Register, in.Value)
	case RANGEFROM:
		fmt.Fprintf(b, " %d %d", in.Register, in.Start)
	case MAKEITER:
		fmt.Fprintf(b, " %d %d", in.Register, in.Iterator)
	case FUNCTION:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Constant, in.Count)
	case CAPTURE:
		fmt.Fprintf(b, " %d %d %d", in.Function, in.Target, in.Source)
	case NEGATE, NOT, SIZE, ISTUPLE, ISLIST:
		fmt.Fprintf(b, " %d %d", in.Register, in.Value)
	case ADD, SUB, MUL, DIV, REM, LT, LE, GT, GE, EQL, NEQ:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Source, in.Value)
	case ADDASSIGN, SUBASSIGN, MULASSIGN, DIVASSIGN, REMASSIGN:
		fmt.Fprintf(b, " %d %d", in.Source, in.Value)
	case JMP, JMPBACK:
		fmt.Fprintf(b, " %d", in.Offset)
	case JMPIFTRUE, JMPIFFALSE:
		fmt.Fprintf(b, " %d %d", in.Register, in.Offset)
	case CALL:
		fmt.Fprintf(b, " %d %d %d %d", in.Result, in.Function, in.FrameBase, in.ArgCount)
	case CALLINSTANCE:
		fmt.Fprintf(b, " %d %d %d %d %d", in.Result, in.Function, in.FrameBase, in.ArgCount, in.Instance)
	case ITERNEXT:
		fmt.Fprintf(b, " %v %d %d %d %v", in.HasResult, in.Result, in.Iterator, in.Offset, in.Bool)
	case TEMPINDEX, SLICEFROM, SLICETO:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Value, in.SByte)
	case INDEX:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Value, in.Index)
	case SETINDEX:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Index, in.Value)
	case MAPINSERT:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Key, in.Value)
	case METAINSERT:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Value, in.Byte)
	case METAINSERTNAMED:
		fmt.Fprintf(b, " %d %d %d %d", in.Register, in.Value, in.Byte, in.Name)
	case METAEXPORT:
		fmt.Fprintf(b, " %d %d", in.Byte, in.Value)
	case METAEXPORTNAMED:
		fmt.Fprintf(b, " %d %d %d", in.Byte, in.Name, in.Value)
	case ACCESS:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Value, in.Constant)
	case ACCESSSTRING:
		fmt.Fprintf(b, " %d %d %d", in.Register, in.Value, in.Key)
	case TRYSTART:
		fmt.Fprintf(b, " %d %d", in.Register, in.Offset)
	case CHECKTYPE:
		fmt.Fprintf(b, " %d %s", in.Register, TypeId(in.Byte))
	case CHECKSIZEEQUAL, CHECKSIZEMIN:
		fmt.Fprintf(b, " %d %d", in.Register, in.Constant)
	}
}

// asmErr is a parse error encountered while reading assembly text.
type asmErr struct{ msg string }

func (e *asmErr) Error() string { return e.msg }

// asmReader holds the state of a text-format parse: the input lines and
// the index of the current one. Asm reads every section Dasm writes
// (constants:, exports: and any number of function: blocks).
type asmReader struct {
	lines []string
	pos   int
}

func newAsmReader(b []byte) *asmReader {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return &asmReader{lines: lines}
}

func (r *asmReader) peek() (string, bool) {
	if r.pos >= len(r.lines) {
		return "", false
	}
	return r.lines[r.pos], true
}

func (r *asmReader) next() (string, bool) {
	line, ok := r.peek()
	if ok {
		r.pos++
	}
	return line, ok
}

// Asm parses the text form produced by Dasm back into a Chunk. It supports
// exactly the subset Dasm emits; it is meant for tests and tooling, not as
// a general-purpose assembler front-end.
func Asm(b []byte) (*Chunk, error) {
	r := newAsmReader(b)
	line, ok := r.next()
	if !ok || !strings.HasPrefix(line, "chunk:") {
		return nil, &asmErr{"asm: expected 'chunk:' header"}
	}
	chunk := &Chunk{Name: strings.TrimSpace(strings.TrimPrefix(line, "chunk:"))}

	for {
		line, ok := r.peek()
		if !ok {
			break
		}
		switch {
		case line == "constants:":
			r.next()
			if err := asmConstants(r, chunk); err != nil {
				return nil, err
			}
		case line == "exports:":
			r.next()
			for {
				l, ok := r.peek()
				if !ok || strings.HasSuffix(l, ":") || strings.HasPrefix(l, "function:") {
					break
				}
				r.next()
				chunk.Exports = append(chunk.Exports, l)
			}
		case strings.HasPrefix(line, "function:"):
			proto, err := asmFunction(r)
			if err != nil {
				return nil, err
			}
			if chunk.Main == nil {
				chunk.Main = proto
			} else {
				chunk.Prototypes = append(chunk.Prototypes, proto)
			}
		default:
			return nil, &asmErr{"asm: unexpected line: " + line}
		}
	}
	return chunk, nil
}

func asmConstants(r *asmReader, chunk *Chunk) error {
	for {
		line, ok := r.peek()
		if !ok || strings.HasSuffix(line, ":") || strings.HasPrefix(line, "function:") {
			return nil
		}
		r.next()
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			return &asmErr{"asm: malformed constant: " + line}
		}
		switch fields[0] {
		case "string":
			s, err := strconv.Unquote(fields[1])
			if err != nil {
				return &asmErr{"asm: malformed string constant: " + line}
			}
			chunk.Constants.AddString(s)
		case "int":
			v, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return &asmErr{"asm: malformed int constant: " + line}
			}
			chunk.Constants.AddInt(v)
		case "float":
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return &asmErr{"asm: malformed float constant: " + line}
			}
			chunk.Constants.AddFloat(v)
		default:
			return &asmErr{"asm: unknown constant kind: " + fields[0]}
		}
	}
}

func asmFunction(r *asmReader) (*Prototype, error) {
	line, _ := r.next()
	fields := strings.Fields(strings.TrimPrefix(line, "function:"))
	if len(fields) != 4 {
		return nil, &asmErr{"asm: malformed function header: " + line}
	}
	numRegs, _ := strconv.Atoi(fields[1])
	numParams, _ := strconv.Atoi(fields[2])
	captures, _ := strconv.Atoi(fields[3])
	proto := &Prototype{Name: fields[0], NumRegisters: numRegs, NumParams: numParams, CaptureCount: captures}

	codeLine, ok := r.next()
	if !ok || codeLine != "code:" {
		return nil, &asmErr{"asm: expected 'code:' section"}
	}
	var em Emitter
	for {
		line, ok := r.peek()
		if !ok || strings.HasSuffix(line, ":") || strings.HasPrefix(line, "function:") {
			break
		}
		r.next()
		if err := asmInstruction(&em, line); err != nil {
			return nil, err
		}
	}
	proto.Code = em.Code
	return proto, nil
}

func asmInstruction(em *Emitter, line string) error {
	fields := strings.Fields(line)
	name := fields[0]
	op, ok := reverseLookupOpcode[strings.ToLower(name)]
	if !ok {
		return &asmErr{"asm: unknown opcode: " + name}
	}
	args := fields[1:]
	n := func(i int) byte { v, _ := strconv.Atoi(args[i]); return byte(v) }
	n16 := func(i int) uint16 { v, _ := strconv.Atoi(args[i]); return uint16(v) }
	n32 := func(i int) uint32 { v, _ := strconv.Atoi(args[i]); return uint32(v) }
	i64 := func(i int) int64 { v, _ := strconv.ParseInt(args[i], 10, 64); return v }
	sb := func(i int) int8 { v, _ := strconv.Atoi(args[i]); return int8(v) }
	bo := func(i int) bool { return args[i] == "true" }

	switch op {
	case NOP:
		em.Nop()
	case COPY:
		em.Copy(n(0), n(1))
	case SETNULL:
		em.SetNull(n(0))
	case SETBOOL:
		em.SetBool(n(0), bo(1))
	case SETNUMBER:
		em.SetNumber(n(0), i64(1))
	case LOADFLOAT:
		em.LoadFloat(n(0), n32(1))
	case LOADINT:
		em.LoadInt(n(0), n32(1))
	case LOADSTRING:
		em.LoadString(n(0), n32(1))
	case LOADNONLOCAL:
		em.LoadNonLocal(n(0), n32(1))
	case IMPORT:
		em.Import(n(0))
	case MAKETEMPTUPLE:
		em.MakeTempTuple(n(0), n(1), n(2))
	case TEMPTUPLETOTUPLE:
		em.TempTupleToTuple(n(0), n(1))
	case VALUEEXPORT:
		em.ValueExport(n(0), n(1))
	case MAKEMAP:
		em.MakeMap(n(0), n32(1))
	case SEQSTART:
		em.SeqStart(n32(0))
	case SEQPUSH:
		em.SeqPush(n(0))
	case SEQPUSHN:
		em.SeqPushN(n(0), n(1))
	case SEQTOLIST:
		em.SeqToList(n(0))
	case SEQTOTUPLE:
		em.SeqToTuple(n(0))
	case RANGE:
		em.Range(n(0), n(1), n(2))
	case RANGEINCL:
		em.RangeIncl(n(0), n(1), n(2))
	case RANGETO:
		em.RangeTo(n(0), n(1))
	case RANGETOINCL:
		em.RangeToIncl(n(0), n(1))
	case RANGEFROM:
		em.RangeFrom(n(0), n(1))
	case RANGEFULL:
		em.RangeFull(n(0))
	case MAKEITER:
		em.MakeIterator(n(0), n(1))
	case FUNCTION:
		em.Function(n(0), n32(1), n(2))
	case CAPTURE:
		em.Capture(n(0), n(1), n(2))
	case NEGATE:
		em.Negate(n(0), n(1))
	case NOT:
		em.Not(n(0), n(1))
	case ADD:
		em.Add(n(0), n(1), n(2))
	case SUB:
		em.Sub(n(0), n(1), n(2))
	case MUL:
		em.Mul(n(0), n(1), n(2))
	case DIV:
		em.Div(n(0), n(1), n(2))
	case REM:
		em.Rem(n(0), n(1), n(2))
	case LT:
		em.Lt(n(0), n(1), n(2))
	case LE:
		em.Le(n(0), n(1), n(2))
	case GT:
		em.Gt(n(0), n(1), n(2))
	case GE:
		em.Ge(n(0), n(1), n(2))
	case EQL:
		em.Eql(n(0), n(1), n(2))
	case NEQ:
		em.Neq(n(0), n(1), n(2))
	case ADDASSIGN:
		em.AddAssign(n(0), n(1))
	case SUBASSIGN:
		em.SubAssign(n(0), n(1))
	case MULASSIGN:
		em.MulAssign(n(0), n(1))
	case DIVASSIGN:
		em.DivAssign(n(0), n(1))
	case REMASSIGN:
		em.RemAssign(n(0), n(1))
	case JMP:
		em.op(JMP)
		em.u16(n16(0))
	case JMPBACK:
		em.op(JMPBACK)
		em.u16(n16(0))
	case JMPIFTRUE:
		em.op(JMPIFTRUE)
		em.u8(n(0))
		em.u16(n16(1))
	case JMPIFFALSE:
		em.op(JMPIFFALSE)
		em.u8(n(0))
		em.u16(n16(1))
	case CALL:
		em.Call(n(0), n(1), n(2), n(3))
	case CALLINSTANCE:
		em.CallInstance(n(0), n(1), n(2), n(3), n(4))
	case RETURN:
		em.Return(n(0))
	case YIELD:
		em.Yield(n(0))
	case THROW:
		em.Throw(n(0))
	case SIZE:
		em.Size(n(0), n(1))
	case TEMPINDEX:
		em.TempIndex(n(0), n(1), sb(2))
	case SLICEFROM:
		em.SliceFrom(n(0), n(1), sb(2))
	case SLICETO:
		em.SliceTo(n(0), n(1), sb(2))
	case ISTUPLE:
		em.IsTuple(n(0), n(1))
	case ISLIST:
		em.IsList(n(0), n(1))
	case INDEX:
		em.Index(n(0), n(1), n(2))
	case SETINDEX:
		em.SetIndex(n(0), n(1), n(2))
	case MAPINSERT:
		em.MapInsert(n(0), n(1), n(2))
	case METAINSERT:
		em.MetaInsert(n(0), n(1), n(2))
	case METAINSERTNAMED:
		em.MetaInsertNamed(n(0), n(1), n(2), n(3))
	case METAEXPORT:
		em.MetaExport(n(0), n(1))
	case METAEXPORTNAMED:
		em.MetaExportNamed(n(0), n(1), n(2))
	case ACCESS:
		em.Access(n(0), n(1), n32(2))
	case ACCESSSTRING:
		em.AccessString(n(0), n(1), n(2))
	case TRYSTART:
		em.op(TRYSTART)
		em.u8(n(0))
		em.u16(n16(1))
	case TRYEND:
		em.TryEnd()
	case DEBUG:
		em.Debug(n(0), n32(1))
	case CHECKTYPE:
		var t TypeId
		switch args[1] {
		case "list":
			t = TypeList
		case "tuple":
			t = TypeTuple
		default:
			return &asmErr{"asm: unknown type id: " + args[1]}
		}
		em.CheckType(n(0), t)
	case CHECKSIZEEQUAL:
		em.CheckSizeEqual(n(0), n32(1))
	case CHECKSIZEMIN:
		em.CheckSizeMin(n(0), n32(1))
	case STRINGSTART:
		em.StringStart(n32(0))
	case STRINGPUSH:
		em.StringPush(n(0))
	case STRINGFINISH:
		em.StringFinish(n(0))
	default:
		return &asmErr{"asm: unsupported opcode in assembler: " + name}
	}
	return nil
}
