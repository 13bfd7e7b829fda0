// Package colorspec implements an RGBA color value with meta-map operator
// overloading (@+, @-, @*, @display) plus a host module exposing rgb/rgba/
// hsl/named constructors, grounded on the koto color module
// (libs/color/src/lib.rs): same constructor names, same "a bare call on
// the module value dispatches by argument shape" @call convention, and
// the same small set of CSS-style named colors.
package colorspec

import (
	"fmt"
	"math"

	"github.com/mna/vela/lang/machine"
)

// Color is an RGBA color, each channel in [0,255], alpha defaulting to
// 255 (fully opaque) for the three-argument rgb/hsl constructors.
type Color struct {
	R, G, B, A uint8
}

var (
	_ machine.Value      = Color{}
	_ machine.HasBinary  = Color{}
	_ machine.HasMetamap = Color{}
	_ machine.HasEqual   = Color{}
)

// meta is shared by every Color value: the type carries no per-instance
// state the meta-map could need to close over, so one table built at
// package init time backs every instance's Metamap().
var meta = buildMeta()

func (c Color) String() string {
	if c.A == 255 {
		return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %d)", c.R, c.G, c.B, c.A)
}

func (Color) Type() string { return "color" }

func (c Color) Metamap() *machine.Map { return meta }

func (c Color) Equals(y machine.Value) (bool, error) {
	o, ok := y.(Color)
	if !ok {
		return false, nil
	}
	return c == o, nil
}

// Binary implements @+/@-/@* directly in Go rather than through the
// meta-map's callable entries, since these overloads need no script-level
// override hook of their own; the meta-map built by buildMeta carries
// only @display, used when a Color value is converted to a string.
func (c Color) Binary(op machine.MetaKey, y machine.Value, side machine.Side) (machine.Value, error) {
	o, ok := y.(Color)
	if !ok {
		return nil, nil
	}
	switch op {
	case machine.MetaAdd:
		return Color{clamp8(int(c.R) + int(o.R)), clamp8(int(c.G) + int(o.G)), clamp8(int(c.B) + int(o.B)), clamp8(int(c.A) + int(o.A))}, nil
	case machine.MetaSub:
		return Color{clamp8(int(c.R) - int(o.R)), clamp8(int(c.G) - int(o.G)), clamp8(int(c.B) - int(o.B)), clamp8(int(c.A) - int(o.A))}, nil
	case machine.MetaMul:
		return Color{mul8(c.R, o.R), mul8(c.G, o.G), mul8(c.B, o.B), mul8(c.A, o.A)}, nil
	}
	return nil, nil
}

func clamp8(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

func mul8(a, b uint8) uint8 { return clamp8(int(a) * int(b) / 255) }

func buildMeta() *machine.Map {
	m := machine.NewMap(2)
	m.MetaInsert(machine.MetaDisplay, &machine.NativeFunc{
		FuncName: "color.@display",
		Fn: func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
			c, err := machine.Args(args).Get(0, "color.@display")
			if err != nil {
				return nil, err
			}
			return machine.NewString(c.String()), nil
		},
	})
	return m
}

// New returns the host module value bound under a name such as "color" in
// a Thread's Predeclared set or import table.
func New() *machine.Map {
	m := machine.NewMap(4)
	set(m, "rgb", func(th *machine.Thread, args []machine.Value) (machine.Value, error) { return rgbFn(args) })
	set(m, "rgba", func(th *machine.Thread, args []machine.Value) (machine.Value, error) { return rgbaFn(args) })
	set(m, "hsl", func(th *machine.Thread, args []machine.Value) (machine.Value, error) { return hslFn(args) })
	set(m, "named", func(th *machine.Thread, args []machine.Value) (machine.Value, error) { return namedFn(args) })

	callMeta := machine.NewMap(1)
	callMeta.MetaInsert(machine.MetaCall, &machine.NativeFunc{
		FuncName: "color.@call",
		Fn: func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
			switch len(args) {
			case 1:
				return namedFn(args)
			case 3:
				return rgbFn(args)
			case 4:
				return rgbaFn(args)
			}
			return nil, fmt.Errorf("color: expected a name, or 3-4 numbers, got %d arguments", len(args))
		},
	})
	m.SetBase(callMeta)
	return m
}

func set(m *machine.Map, name string, fn func(*machine.Thread, []machine.Value) (machine.Value, error)) {
	_ = m.SetKey(machine.NewString(name), &machine.NativeFunc{FuncName: "color." + name, Fn: fn})
}

func channel(args machine.Args, i int, fname string) (uint8, error) {
	f, err := args.Float(i, fname)
	if err != nil {
		return 0, err
	}
	return clamp8(int(f)), nil
}

func rgbFn(args []machine.Value) (machine.Value, error) {
	a := machine.Args(args)
	r, err := channel(a, 0, "color.rgb")
	if err != nil {
		return nil, err
	}
	g, err := channel(a, 1, "color.rgb")
	if err != nil {
		return nil, err
	}
	b, err := channel(a, 2, "color.rgb")
	if err != nil {
		return nil, err
	}
	return Color{R: r, G: g, B: b, A: 255}, nil
}

func rgbaFn(args []machine.Value) (machine.Value, error) {
	a := machine.Args(args)
	r, err := channel(a, 0, "color.rgba")
	if err != nil {
		return nil, err
	}
	g, err := channel(a, 1, "color.rgba")
	if err != nil {
		return nil, err
	}
	b, err := channel(a, 2, "color.rgba")
	if err != nil {
		return nil, err
	}
	al, err := channel(a, 3, "color.rgba")
	if err != nil {
		return nil, err
	}
	return Color{R: r, G: g, B: b, A: al}, nil
}

// hslFn converts hue (degrees)/saturation/lightness (both in [0,1]) to an
// opaque Color, the same HSL-to-RGB conversion libs/color delegates to the
// palette crate.
func hslFn(args []machine.Value) (machine.Value, error) {
	a := machine.Args(args)
	h, err := a.Float(0, "color.hsl")
	if err != nil {
		return nil, err
	}
	s, err := a.Float(1, "color.hsl")
	if err != nil {
		return nil, err
	}
	l, err := a.Float(2, "color.hsl")
	if err != nil {
		return nil, err
	}
	r, g, b := hslToRGB(float64(h), float64(s), float64(l))
	return Color{R: clamp8(int(r * 255)), G: clamp8(int(g * 255)), B: clamp8(int(b * 255)), A: 255}, nil
}

func hslToRGB(h, s, l float64) (r, g, b float64) {
	h = math.Mod(h, 360) / 360
	if s == 0 {
		return l, l, l
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

var namedColors = map[string]Color{
	"black": {0, 0, 0, 255},
	"white": {255, 255, 255, 255},
	"red":   {255, 0, 0, 255},
	"green": {0, 128, 0, 255},
	"blue":  {0, 0, 255, 255},
	"yellow": {255, 255, 0, 255},
	"cyan":   {0, 255, 255, 255},
	"magenta": {255, 0, 255, 255},
	"gray":   {128, 128, 128, 255},
	"orange": {255, 165, 0, 255},
}

func namedFn(args []machine.Value) (machine.Value, error) {
	s, err := machine.Args(args).String(0, "color.named")
	if err != nil {
		return nil, err
	}
	c, ok := namedColors[s.Text()]
	if !ok {
		return machine.Null, nil
	}
	return c, nil
}
