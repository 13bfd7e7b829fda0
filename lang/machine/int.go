package machine

import "strconv"

// Int is the type of an integer value (SmallInt and LoadInt constants both
// produce this single runtime type).
type Int int64

var (
	_ Value   = Int(0)
	_ Ordered = Int(0)
)

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }

func (i Int) Cmp(y Value) (int, error) {
	switch o := y.(type) {
	case Int:
		switch {
		case i < o:
			return -1, nil
		case i > o:
			return +1, nil
		}
		return 0, nil
	case Float:
		return floatCmp(Float(i), o), nil
	}
	return 0, typeError("compare", i, y)
}
