package machine

import "fmt"

// Range is a (possibly open-ended) arithmetic sequence of integers, the
// runtime value produced by the RANGE family of instructions.
type Range struct {
	Start     int64
	End       int64
	HasStart  bool
	HasEnd    bool
	Inclusive bool
}

var (
	_ Value    = Range{}
	_ Iterable = Range{}
)

func (r Range) String() string {
	var lo, hi string
	if r.HasStart {
		lo = fmt.Sprintf("%d", r.Start)
	}
	if r.HasEnd {
		hi = fmt.Sprintf("%d", r.End)
	}
	op := ".."
	if r.Inclusive {
		op = "..="
	}
	return lo + op + hi
}

func (Range) Type() string { return "range" }

func (r Range) Iterate() Iterator {
	return &rangeIterator{cur: r.Start, r: r}
}

type rangeIterator struct {
	cur int64
	r   Range
}

var _ Value = (*rangeIterator)(nil)

func (it *rangeIterator) String() string { return "range-iterator" }
func (it *rangeIterator) Type() string   { return "iterator" }

func (it *rangeIterator) Next(p *Value) bool {
	if it.r.HasEnd {
		if it.r.Inclusive {
			if it.cur > it.r.End {
				return false
			}
		} else if it.cur >= it.r.End {
			return false
		}
	}
	*p = Int(it.cur)
	it.cur++
	return true
}
