package compiler

import "golang.org/x/exp/constraints"

// fitsByte reports whether n can be encoded as one of the single-byte
// operands (register number, argument count, capture count, ...) every
// instruction format in emit.go/instruction.go assumes. It is generic
// over both the register allocator's int counters and the resolver's
// upvalue-count int, so one bounds check serves every call site in
// Compile that turns a count into an operand.
func fitsByte[T constraints.Integer](n T) bool {
	return n >= 0 && n <= T(255)
}
