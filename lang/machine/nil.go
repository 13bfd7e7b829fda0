package machine

// NullType is the type of Null. Its only legal value is Null; it is
// represented as a byte rather than struct{} so Null may be a constant.
type NullType byte

// Null is the value produced by SETNULL and by an implicit return.
const Null = NullType(0)

var _ Value = Null

func (NullType) String() string { return "null" }
func (NullType) Type() string   { return "null" }
