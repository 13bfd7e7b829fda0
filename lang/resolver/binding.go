package resolver

import "github.com/mna/vela/lang/ast"

// Kind identifies how a variable reference resolves once a function's
// scope has been fully analyzed.
type Kind uint8

//nolint:revive
const (
	// Global means the name isn't a local or an upvalue of any enclosing
	// frame; it's looked up by name in the module/builtin namespace at
	// runtime.
	Global Kind = iota
	// Local means the name lives in a register of the current frame.
	Local
	// Upvalue means the name is captured from an enclosing frame, and is
	// reached through the current frame's upvalue list.
	Upvalue
)

// encodeLocal and encodeUpvalue pack a Kind and slot/index into the int64
// annotation stored on an ast.Id node's Int field (0 means Global, so real
// indexes are stored offset by one). DecodeBinding reverses this.
func encodeLocal(slot int) int64   { return int64(slot) + 1 }
func encodeUpvalue(index int) int64 { return -(int64(index) + 1) }

// DecodeBinding interprets the Int field the resolver wrote onto an
// ast.Id node, returning the binding Kind and its slot (for Local) or
// upvalue index (for Upvalue); the index is meaningless for Global.
func DecodeBinding(encoded int64) (Kind, int) {
	switch {
	case encoded > 0:
		return Local, int(encoded - 1)
	case encoded < 0:
		return Upvalue, int(-encoded - 1)
	default:
		return Global, 0
	}
}

// UpvalueRef describes where a frame's Nth upvalue comes from: either a
// register in the immediately enclosing frame, or one of that frame's own
// upvalues (for a capture chain deeper than one level).
type UpvalueRef struct {
	Name            string
	FromParentLocal bool
	Index           int
}

// FuncInfo is the per-function-frame result of resolution: how many
// registers its body needs, and the ordered list of upvalues its closures
// must capture when the function value is created.
type FuncInfo struct {
	NumRegisters int
	Upvalues     []UpvalueRef
}

// Result is the full output of resolving a tree: one FuncInfo per
// function frame (the implicit top-level frame and every ast.FunctionLit),
// keyed by that node's ast.Index.
type Result struct {
	Funcs map[ast.Index]*FuncInfo
}
