// Package random exposes a pseudo-random number module to scripts, in the
// shape of a host-provided map with native function entries: the same
// "module is just a map of functions" pattern the io and map collaborator
// modules use. It is grounded on the koto random module (libs/random),
// retargeted from ChaCha8Rng to math/rand/v2's ChaCha8 source, since no
// dependency in the example corpus provides a seedable PRNG and
// math/rand/v2 is the standard library's own modern replacement for the
// legacy global-rand API the teacher never used.
package random

import (
	"fmt"
	"math/rand/v2"

	"github.com/mna/vela/lang/machine"
)

// New returns a fresh random module value, independent of any other
// module's seed state, for binding into a Thread's Predeclared set or an
// import table under a name such as "random".
func New() *machine.Map {
	m := machine.NewMap(4)
	src := rand.NewChaCha8(seedFromEntropy())
	rng := rand.New(src)

	set(m, "bool", func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
		return machine.Bool(rng.IntN(2) == 1), nil
	})

	set(m, "number", func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
		return machine.Float(rng.Float64()), nil
	})

	set(m, "seed", func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
		n, err := machine.Args(args).Int(0, "random.seed")
		if err != nil {
			return nil, err
		}
		src = rand.NewChaCha8(seedFromInt(int64(n)))
		rng = rand.New(src)
		return machine.Null, nil
	})

	set(m, "pick", func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
		return pick(rng, args)
	})

	set(m, "pick_index", func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
		n, err := machine.Args(args).Int(0, "random.pick_index")
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("random.pick_index: expected a positive int, got %d", n)
		}
		return machine.Int(rng.Int64N(int64(n))), nil
	})

	return m
}

func set(m *machine.Map, name string, fn func(*machine.Thread, []machine.Value) (machine.Value, error)) {
	_ = m.SetKey(machine.NewString(name), &machine.NativeFunc{FuncName: "random." + name, Fn: fn})
}

// pick mirrors libs/random's ChaChaRng::pick: a container argument yields
// one of its elements/pairs uniformly at random, a Range argument yields
// one of its integers.
func pick(rng *rand.Rand, args []machine.Value) (machine.Value, error) {
	a, err := machine.Args(args).Get(0, "random.pick")
	if err != nil {
		return nil, err
	}
	switch v := a.(type) {
	case machine.Sequence:
		n := v.Len()
		if n == 0 {
			return nil, fmt.Errorf("random.pick: empty container")
		}
		it := v.Iterate()
		idx := rng.IntN(n)
		var out machine.Value
		for i := 0; i <= idx; i++ {
			if !it.Next(&out) {
				return nil, fmt.Errorf("random.pick: internal error: iterator exhausted early")
			}
		}
		return out, nil
	case machine.Range:
		lo, hi := v.Start, v.End
		if !v.HasEnd {
			return nil, fmt.Errorf("random.pick: range has no end")
		}
		if v.Inclusive {
			hi++
		}
		if hi <= lo {
			return nil, fmt.Errorf("random.pick: empty range")
		}
		return machine.Int(lo + rng.Int64N(hi-lo)), nil
	}
	return nil, fmt.Errorf("random.pick: expected a container or range, got %s", a.Type())
}

func seedFromEntropy() [32]byte {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(rand.Uint32())
	}
	return seed
}

func seedFromInt(n int64) [32]byte {
	var seed [32]byte
	for i := 0; i < 8; i++ {
		seed[i] = byte(n >> (8 * i))
	}
	return seed
}
