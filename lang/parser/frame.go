package parser

// frameState tracks, for a single function body currently being parsed,
// which identifiers are assigned locally and which identifiers accessed
// within it turn out to reference a name from an enclosing frame (a
// non-local capture). Capture analysis happens inline while parsing rather
// than as a separate resolver pass: by the time a function's closing brace
// is reached, frameState.accessedNonLocals is the exact capture list the
// compiler needs to emit closure-creation instructions for.
type frameState struct {
	parent *frameState

	idsAssignedInFrame map[string]bool
	accessedNonLocals  map[string]bool
	pendingAssignments map[string]bool
	isGenerator        bool
}

func newFrameState(parent *frameState) *frameState {
	return &frameState{
		parent:             parent,
		idsAssignedInFrame: make(map[string]bool),
		accessedNonLocals:  make(map[string]bool),
		pendingAssignments: make(map[string]bool),
	}
}

// declareAssignment records that name is a local of the current frame: an
// access to it later in the same frame, or in a nested frame before this
// point, is resolved locally rather than treated as a capture.
func (f *frameState) declareAssignment(name string) {
	f.idsAssignedInFrame[name] = true
}

// accessID records a read of name. If name isn't a local of this frame, it
// is a capture of an enclosing frame's binding (or the top-level module
// scope, if there is no parent) and is propagated upward so every
// enclosing frame between the access and the declaring frame also knows it
// must keep that binding alive for the nested closure.
func (f *frameState) accessID(name string) {
	if f.idsAssignedInFrame[name] {
		return
	}
	f.accessedNonLocals[name] = true
	if f.parent != nil {
		f.parent.accessID(name)
	}
}

// captures returns the non-local names this frame's function body closes
// over, in map iteration order (the order is not defined).
func (f *frameState) captures() []string {
	if len(f.accessedNonLocals) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.accessedNonLocals))
	for name := range f.accessedNonLocals {
		out = append(out, name)
	}
	return out
}
