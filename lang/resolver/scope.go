package resolver

import "golang.org/x/exp/slices"

// scope tracks register allocation and upvalue capture for a single
// function frame while it is being walked. Slots are handed out in
// declaration order and never reused within a frame: the compiler is free
// to pick a simple, predictable register layout because the VM's window
// per call frame is sized to NumRegisters.
type scope struct {
	parent *scope

	names    map[string]int
	nextSlot int

	upvalues   []UpvalueRef
	upvalIndex map[string]int
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:     parent,
		names:      make(map[string]int),
		upvalIndex: make(map[string]int),
	}
}

// declare returns the register slot for name in this frame, allocating a
// fresh one the first time name is assigned.
func (s *scope) declare(name string) int {
	if slot, ok := s.names[name]; ok {
		return slot
	}
	slot := s.nextSlot
	s.nextSlot++
	s.names[name] = slot
	return slot
}

// LocalNames returns this frame's declared local names sorted
// lexicographically, an order that does not depend on map iteration over
// s.names. Nothing in this module calls it; the resolve command's output
// does not list locals.
func (s *scope) LocalNames() []string {
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// resolve finds name, walking outward through enclosing frames as needed
// and recording an upvalue capture on every frame between the access and
// the frame where it is actually a local.
func (s *scope) resolve(name string) (Kind, int) {
	if slot, ok := s.names[name]; ok {
		return Local, slot
	}
	if idx, ok := s.upvalIndex[name]; ok {
		return Upvalue, idx
	}
	if s.parent == nil {
		return Global, 0
	}

	pk, pidx := s.parent.resolve(name)
	switch pk {
	case Local:
		idx := len(s.upvalues)
		s.upvalues = append(s.upvalues, UpvalueRef{Name: name, FromParentLocal: true, Index: pidx})
		s.upvalIndex[name] = idx
		return Upvalue, idx
	case Upvalue:
		idx := len(s.upvalues)
		s.upvalues = append(s.upvalues, UpvalueRef{Name: name, FromParentLocal: false, Index: pidx})
		s.upvalIndex[name] = idx
		return Upvalue, idx
	default:
		return Global, 0
	}
}
