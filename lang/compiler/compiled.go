package compiler

import "github.com/mna/vela/lang/token"

// ConstantPool is the append-only, deduplicated pool of string, int64 and
// float64 constants referenced by LOADSTRING/LOADINT/LOADFLOAT and friends.
// Values are deduplicated by equality so that repeated literals (the same
// string appearing twice in a source file) share one slot.
type ConstantPool struct {
	Strings []string
	Ints    []int64
	Floats  []float64

	strIndex   map[string]uint32
	intIndex   map[int64]uint32
	floatIndex map[float64]uint32
}

// AddString returns the index of s in the pool, appending it if new.
func (p *ConstantPool) AddString(s string) uint32 {
	if p.strIndex == nil {
		p.strIndex = make(map[string]uint32)
	}
	if ix, ok := p.strIndex[s]; ok {
		return ix
	}
	ix := uint32(len(p.Strings))
	p.Strings = append(p.Strings, s)
	p.strIndex[s] = ix
	return ix
}

// AddInt returns the index of v in the pool, appending it if new.
func (p *ConstantPool) AddInt(v int64) uint32 {
	if p.intIndex == nil {
		p.intIndex = make(map[int64]uint32)
	}
	if ix, ok := p.intIndex[v]; ok {
		return ix
	}
	ix := uint32(len(p.Ints))
	p.Ints = append(p.Ints, v)
	p.intIndex[v] = ix
	return ix
}

// AddFloat returns the index of v in the pool, appending it if new.
func (p *ConstantPool) AddFloat(v float64) uint32 {
	if p.floatIndex == nil {
		p.floatIndex = make(map[float64]uint32)
	}
	if ix, ok := p.floatIndex[v]; ok {
		return ix
	}
	ix := uint32(len(p.Floats))
	p.Floats = append(p.Floats, v)
	p.floatIndex[v] = ix
	return ix
}

// Prototype is the compiled form of one function body: the top-level chunk
// and every FunctionLit share the same Prototype shape, with the top-level
// chunk's Prototype stored at Chunk.Main.
type Prototype struct {
	Name         string
	Code         []byte
	Spans        []SpanEntry // read by SpanAt; the compiler does not fill it, so it is empty in compiled chunks
	NumRegisters int
	NumParams    int
	CaptureCount int
	Flags        FunctionFlags
}

// SpanEntry records which source span produced the code starting at PC, so
// a runtime error can be attributed back to a line/column.
type SpanEntry struct {
	PC   int
	Span token.Span
}

// SpanAt returns the span responsible for the instruction at pc, the
// closest recorded entry at or before pc.
func (p *Prototype) SpanAt(pc int) token.Span {
	var best token.Span
	for _, e := range p.Spans {
		if e.PC > pc {
			break
		}
		best = e.Span
	}
	return best
}

// Chunk is a fully compiled, runnable unit: one top-level Prototype (Main)
// plus every nested function literal's Prototype, addressed by the index
// FUNCTION instructions' Constant operand refers to, and the constant pool
// shared by all of them.
type Chunk struct {
	Name       string
	Main       *Prototype
	Prototypes []*Prototype
	Constants  ConstantPool

	// Exports records the names exported via `export` statements at the
	// top level, in declaration order, so a host can enumerate a module's
	// public surface without running it.
	Exports []string
}
