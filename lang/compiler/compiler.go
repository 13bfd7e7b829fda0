// Package compiler lowers a parsed and resolved AST into the register-based
// bytecode the virtual machine executes. It is a straightforward recursive
// treewalk: every expression is compiled into a freshly allocated scratch
// register above the function's declared locals, and every statement is
// compiled for effect. This favors a simple, obviously-correct register
// allocator over a tight one; the compiler never reuses a scratch register
// once issued within a statement's expression tree.
package compiler

import (
	"fmt"

	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/resolver"
)

// Compile lowers tree (already annotated by resolver.Resolve) into a Chunk.
// An AST that resolved without error should always compile; a non-nil error
// here indicates a case the compiler doesn't yet support rather than a
// malformed program.
func Compile(name string, tree *ast.Tree, res *resolver.Result) (*Chunk, error) {
	chunk := &Chunk{Name: name}
	c := &comp{tree: tree, res: res, chunk: chunk, protoIndex: make(map[ast.Index]uint32)}

	root := tree.Root()
	main := tree.At(root)
	proto, err := c.compileFunc(root, main.A, nil, true)
	if err != nil {
		return nil, err
	}
	chunk.Main = proto
	return chunk, nil
}

type comp struct {
	tree       *ast.Tree
	res        *resolver.Result
	chunk      *Chunk
	protoIndex map[ast.Index]uint32
}

// fcomp holds per-function compilation state.
type fcomp struct {
	*comp
	em      Emitter
	info    *resolver.FuncInfo
	nextReg int
	maxReg  int
	loops   []loopCtx
}

type loopCtx struct {
	breakPatches    []int // JMP patch sites to the loop's exit
	continueTarget  int   // code offset to jump back to for `continue`
}

func (c *comp) compileFunc(defIx, bodyBlock ast.Index, params []ast.Index, isMain bool) (*Prototype, error) {
	info := c.res.Funcs[defIx]
	if info == nil {
		info = &resolver.FuncInfo{}
	}
	fc := &fcomp{comp: c, info: info, nextReg: info.NumRegisters, maxReg: info.NumRegisters}

	// a function's implicit return value, if it falls off the end without an
	// explicit `return`, is the value of its last statement (null for a void
	// one, or for an empty body)
	r, err := fc.compileBlockValue(bodyBlock)
	if err != nil {
		return nil, err
	}
	fc.em.Return(r)

	name := "main"
	if !isMain {
		name = "function"
	}
	if !fitsByte(fc.maxReg) {
		return nil, fmt.Errorf("%s: function uses %d registers, more than the 255 a single-byte operand can address", name, fc.maxReg)
	}
	if !fitsByte(len(params)) {
		return nil, fmt.Errorf("%s: function declares %d parameters, more than the 255 a single-byte operand can address", name, len(params))
	}
	if !fitsByte(len(info.Upvalues)) {
		return nil, fmt.Errorf("%s: function captures %d upvalues, more than the 255 a single-byte operand can address", name, len(info.Upvalues))
	}
	return &Prototype{
		Name:         name,
		Code:         fc.em.Code,
		NumRegisters: fc.maxReg,
		NumParams:    len(params),
		CaptureCount: len(info.Upvalues),
	}, nil
}

func (fc *fcomp) alloc() byte {
	r := fc.nextReg
	fc.nextReg++
	if fc.nextReg > fc.maxReg {
		fc.maxReg = fc.nextReg
	}
	return byte(r)
}

// upvalBase is the register offset where this function's captured upvalues
// begin: immediately after its declared locals, matching the window layout
// CAPTURE instructions populate at closure-creation time.
func (fc *fcomp) upvalBase() int { return fc.info.NumRegisters }

func (fc *fcomp) compileBlock(ix ast.Index) error {
	n := fc.tree.At(ix)
	for _, s := range fc.tree.ExtraSlice(n.Extra) {
		saved := fc.nextReg
		if err := fc.compileStmt(s); err != nil {
			return err
		}
		fc.nextReg = saved
	}
	return nil
}

// compileBlockValue compiles ix (a Block) the same as compileBlock, except
// its final statement is compiled for its value instead of purely for
// effect: this is how a function body's implicit return, and an
// if/match/switch/try arm's result, are produced.
func (fc *fcomp) compileBlockValue(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	stmts := fc.tree.ExtraSlice(n.Extra)
	if len(stmts) == 0 {
		r := fc.alloc()
		fc.em.SetNull(r)
		return r, nil
	}
	for _, s := range stmts[:len(stmts)-1] {
		saved := fc.nextReg
		if err := fc.compileStmt(s); err != nil {
			return 0, err
		}
		fc.nextReg = saved
	}
	return fc.compileStmtValue(stmts[len(stmts)-1])
}

// compileBranchValue is compileBranch's value-producing counterpart, used
// for the single-line `if cond then expr` form and else-if chains in
// value position.
func (fc *fcomp) compileBranchValue(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	if n.Kind == ast.Block {
		return fc.compileBlockValue(ix)
	}
	return fc.compileStmtValue(ix)
}

// compileStmtValue compiles ix for its value: if/match/switch/try produce
// the value of whichever arm ran, a bare expression is its own value, and
// every other statement kind is void (compiled for effect, yielding null).
func (fc *fcomp) compileStmtValue(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	switch n.Kind {
	case ast.If:
		return fc.compileIfValue(ix)
	case ast.Match:
		return fc.compileMatchValue(ix)
	case ast.Switch:
		return fc.compileSwitchValue(ix)
	case ast.Try:
		return fc.compileTryValue(ix)

	case ast.Assign, ast.ExportStmt, ast.MultiAssign, ast.For, ast.While, ast.Until,
		ast.Loop, ast.Break, ast.Continue, ast.Return, ast.Throw, ast.Yield,
		ast.DebugStmt, ast.ImportStmt, ast.FromImport:
		if err := fc.compileStmt(ix); err != nil {
			return 0, err
		}
		r := fc.alloc()
		fc.em.SetNull(r)
		return r, nil

	default:
		return fc.compileExpr(ix)
	}
}

func (fc *fcomp) compileStmt(ix ast.Index) error {
	n := fc.tree.At(ix)
	switch n.Kind {
	case ast.Assign:
		val, err := fc.compileExpr(n.B)
		if err != nil {
			return err
		}
		return fc.compileAssignTarget(n.A, val)

	case ast.ExportStmt:
		if err := fc.compileStmt(n.A); err != nil {
			return err
		}
		return fc.recordExport(n.A)

	case ast.If:
		return fc.compileIf(ix)

	case ast.For:
		return fc.compileFor(ix)

	case ast.While:
		return fc.compileWhile(ix, false)
	case ast.Until:
		return fc.compileWhile(ix, true)

	case ast.Loop:
		return fc.compileLoop(ix)

	case ast.Switch:
		return fc.compileSwitch(ix)

	case ast.Match:
		return fc.compileMatch(ix)

	case ast.MultiAssign:
		return fc.compileMultiAssign(ix)

	case ast.Yield:
		r, err := fc.compileExpr(n.A)
		if err != nil {
			return err
		}
		fc.em.Yield(r)
		return nil

	case ast.Break:
		if len(fc.loops) == 0 {
			return fmt.Errorf("compiler: break outside of a loop")
		}
		if n.A != ast.NoIndex {
			if _, err := fc.compileExpr(n.A); err != nil {
				return err
			}
		}
		cur := &fc.loops[len(fc.loops)-1]
		patch := fc.em.Jump(JMP, 0, false)
		cur.breakPatches = append(cur.breakPatches, patch)
		return nil

	case ast.Continue:
		if len(fc.loops) == 0 {
			return fmt.Errorf("compiler: continue outside of a loop")
		}
		cur := &fc.loops[len(fc.loops)-1]
		fc.em.JumpBack(cur.continueTarget)
		return nil

	case ast.Return:
		if n.A == ast.NoIndex {
			r := fc.alloc()
			fc.em.SetNull(r)
			fc.em.Return(r)
			return nil
		}
		r, err := fc.compileExpr(n.A)
		if err != nil {
			return err
		}
		fc.em.Return(r)
		return nil

	case ast.Throw:
		r, err := fc.compileExpr(n.A)
		if err != nil {
			return err
		}
		fc.em.Throw(r)
		return nil

	case ast.Try:
		return fc.compileTry(ix)

	case ast.DebugStmt:
		r, err := fc.compileExpr(n.A)
		if err != nil {
			return err
		}
		fc.em.Debug(r, fc.chunk.Constants.AddString(n.Str))
		return nil

	case ast.ImportStmt, ast.FromImport:
		r := fc.alloc()
		fc.em.LoadString(r, fc.chunk.Constants.AddString(n.Str))
		fc.em.Import(r)
		for _, nm := range fc.tree.ExtraSlice(n.Extra) {
			if err := fc.compileAssignTarget(nm, r); err != nil {
				return err
			}
		}
		return nil

	default:
		_, err := fc.compileExpr(ix)
		return err
	}
}

func (fc *fcomp) recordExport(assignIx ast.Index) error {
	n := fc.tree.At(assignIx)
	if n.Kind != ast.Assign {
		return nil
	}
	target := fc.tree.At(n.A)
	if target.Kind == ast.Id {
		fc.chunk.Exports = append(fc.chunk.Exports, target.Str)
	}
	return nil
}

func (fc *fcomp) compileAssignTarget(ix ast.Index, value byte) error {
	n := fc.tree.At(ix)
	switch n.Kind {
	case ast.Id:
		kind, slot := resolver.DecodeBinding(n.Int)
		var dst byte
		switch kind {
		case resolver.Local:
			dst = byte(slot)
		case resolver.Upvalue:
			dst = byte(fc.upvalBase() + slot)
		default:
			return fmt.Errorf("compiler: cannot assign to global %q", n.Str)
		}
		if dst != value {
			fc.em.Copy(dst, value)
		}
		return nil
	case ast.Wildcard:
		return nil
	case ast.Tuple, ast.TempTuple:
		elems := fc.tree.ExtraSlice(n.Extra)
		for i, el := range elems {
			r := fc.alloc()
			fc.em.TempIndex(r, value, int8(i))
			if err := fc.compileAssignTarget(el, r); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("compiler: unsupported assignment target %s", n.Kind)
	}
}

func (fc *fcomp) compileIf(ix ast.Index) error {
	n := fc.tree.At(ix)
	cond, err := fc.compileExpr(n.A)
	if err != nil {
		return err
	}
	elsePatch := fc.em.Jump(JMPIFFALSE, cond, true)
	if err := fc.compileBranch(n.B); err != nil {
		return err
	}
	if n.C == ast.NoIndex {
		fc.em.PatchJump(elsePatch)
		return nil
	}
	endPatch := fc.em.Jump(JMP, 0, false)
	fc.em.PatchJump(elsePatch)
	if err := fc.compileBranch(n.C); err != nil {
		return err
	}
	fc.em.PatchJump(endPatch)
	return nil
}

// compileIfValue compiles an if/else chain in value position: whichever
// branch runs has its value copied into a shared result register, with an
// else-less if producing null when the condition is false.
func (fc *fcomp) compileIfValue(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	cond, err := fc.compileExpr(n.A)
	if err != nil {
		return 0, err
	}
	result := fc.alloc()
	elsePatch := fc.em.Jump(JMPIFFALSE, cond, true)
	thenVal, err := fc.compileBranchValue(n.B)
	if err != nil {
		return 0, err
	}
	if thenVal != result {
		fc.em.Copy(result, thenVal)
	}
	endPatch := fc.em.Jump(JMP, 0, false)
	fc.em.PatchJump(elsePatch)
	if n.C != ast.NoIndex {
		elseVal, err := fc.compileBranchValue(n.C)
		if err != nil {
			return 0, err
		}
		if elseVal != result {
			fc.em.Copy(result, elseVal)
		}
	} else {
		fc.em.SetNull(result)
	}
	fc.em.PatchJump(endPatch)
	return result, nil
}

// compileBranch compiles a control-flow body that may be a Block or (for
// the single-line `if cond then stmt` form, and for else-if chains) a bare
// statement.
func (fc *fcomp) compileBranch(ix ast.Index) error {
	n := fc.tree.At(ix)
	if n.Kind == ast.Block {
		return fc.compileBlock(ix)
	}
	return fc.compileStmt(ix)
}

func (fc *fcomp) compileWhile(ix ast.Index, negate bool) error {
	n := fc.tree.At(ix)
	top := fc.em.Len()
	cond, err := fc.compileExpr(n.A)
	if err != nil {
		return err
	}
	op := JMPIFFALSE
	if negate {
		op = JMPIFTRUE
	}
	exitPatch := fc.em.Jump(op, cond, true)

	fc.loops = append(fc.loops, loopCtx{continueTarget: top})
	if err := fc.compileBranch(n.B); err != nil {
		return err
	}
	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.em.JumpBack(top)
	fc.em.PatchJump(exitPatch)
	for _, p := range loop.breakPatches {
		fc.em.PatchJump(p)
	}
	return nil
}

func (fc *fcomp) compileLoop(ix ast.Index) error {
	n := fc.tree.At(ix)
	top := fc.em.Len()
	fc.loops = append(fc.loops, loopCtx{continueTarget: top})
	if err := fc.compileBranch(n.A); err != nil {
		return err
	}
	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]
	fc.em.JumpBack(top)
	for _, p := range loop.breakPatches {
		fc.em.PatchJump(p)
	}
	return nil
}

func (fc *fcomp) compileFor(ix ast.Index) error {
	n := fc.tree.At(ix)
	iterable, err := fc.compileExpr(n.A)
	if err != nil {
		return err
	}
	iter := fc.alloc()
	fc.em.MakeIterator(iter, iterable)

	top := fc.em.Len()
	vars := fc.tree.ExtraSlice(n.Extra)
	var valueReg byte
	hasResult := len(vars) > 0
	if hasResult {
		valueReg = fc.alloc()
	}
	exitPatch := fc.em.IterNext(hasResult, valueReg, iter, false)
	if hasResult {
		if len(vars) == 1 {
			if err := fc.compileAssignTarget(vars[0], valueReg); err != nil {
				return err
			}
		} else {
			for i, v := range vars {
				r := fc.alloc()
				fc.em.TempIndex(r, valueReg, int8(i))
				if err := fc.compileAssignTarget(v, r); err != nil {
					return err
				}
			}
		}
	}

	fc.loops = append(fc.loops, loopCtx{continueTarget: top})
	if err := fc.compileBranch(n.B); err != nil {
		return err
	}
	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.em.JumpBack(top)
	fc.em.PatchJump(exitPatch)
	for _, p := range loop.breakPatches {
		fc.em.PatchJump(p)
	}
	return nil
}

func (fc *fcomp) compileTry(ix ast.Index) error {
	n := fc.tree.At(ix)
	argReg := fc.alloc()
	catchPatch := fc.em.TryStart(argReg)

	if err := fc.compileBranch(n.A); err != nil {
		return err
	}
	fc.em.TryEnd()
	endPatch := fc.em.Jump(JMP, 0, false)

	fc.em.PatchJump(catchPatch)
	if n.B != ast.NoIndex {
		if n.Str != "" {
			kind, slot := resolver.DecodeBinding(n.Int)
			if kind == resolver.Local {
				fc.em.Copy(byte(slot), argReg)
			}
		}
		if err := fc.compileBranch(n.B); err != nil {
			return err
		}
	}
	fc.em.PatchJump(endPatch)

	if n.C != ast.NoIndex {
		if err := fc.compileBranch(n.C); err != nil {
			return err
		}
	}
	return nil
}

// compileTryValue is compileTry's value-producing counterpart: the value
// of whichever of the try or catch body ran becomes the try statement's
// result (the caught value itself, if there is no catch body); the
// finally body, if any, still always runs but its value is discarded.
func (fc *fcomp) compileTryValue(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	argReg := fc.alloc()
	catchPatch := fc.em.TryStart(argReg)

	result := fc.alloc()
	tryVal, err := fc.compileBranchValue(n.A)
	if err != nil {
		return 0, err
	}
	if tryVal != result {
		fc.em.Copy(result, tryVal)
	}
	fc.em.TryEnd()
	endPatch := fc.em.Jump(JMP, 0, false)

	fc.em.PatchJump(catchPatch)
	if n.B != ast.NoIndex {
		if n.Str != "" {
			kind, slot := resolver.DecodeBinding(n.Int)
			if kind == resolver.Local {
				fc.em.Copy(byte(slot), argReg)
			}
		}
		catchVal, err := fc.compileBranchValue(n.B)
		if err != nil {
			return 0, err
		}
		if catchVal != result {
			fc.em.Copy(result, catchVal)
		}
	} else {
		fc.em.Copy(result, argReg)
	}
	fc.em.PatchJump(endPatch)

	if n.C != ast.NoIndex {
		if _, err := fc.compileBranchValue(n.C); err != nil {
			return 0, err
		}
	}
	return result, nil
}

// compileSwitch compiles a chain of boolean-guarded arms. An arm whose
// condition is ast.NoIndex is the `else` arm (always the last one, per the
// parser's grammar) and runs unconditionally if reached. If no condition
// matches and there is no else arm, the statement falls through as a no-op.
func (fc *fcomp) compileSwitch(ix ast.Index) error {
	n := fc.tree.At(ix)
	items := fc.tree.ExtraSlice(n.Extra)

	var endPatches []int
	for i := 0; i+1 < len(items); i += 2 {
		condIx, bodyIx := items[i], items[i+1]
		if condIx == ast.NoIndex {
			if err := fc.compileBranch(bodyIx); err != nil {
				return err
			}
			continue
		}
		cond, err := fc.compileExpr(condIx)
		if err != nil {
			return err
		}
		nextPatch := fc.em.Jump(JMPIFFALSE, cond, true)
		if err := fc.compileBranch(bodyIx); err != nil {
			return err
		}
		endPatches = append(endPatches, fc.em.Jump(JMP, 0, false))
		fc.em.PatchJump(nextPatch)
	}
	for _, p := range endPatches {
		fc.em.PatchJump(p)
	}
	return nil
}

// compileSwitchValue is compileSwitch's value-producing counterpart: the
// matched arm's value is copied into a shared result register, and a
// switch with no matching arm and no else arm produces null.
func (fc *fcomp) compileSwitchValue(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	items := fc.tree.ExtraSlice(n.Extra)
	result := fc.alloc()
	hasElse := false

	var endPatches []int
	for i := 0; i+1 < len(items); i += 2 {
		condIx, bodyIx := items[i], items[i+1]
		if condIx == ast.NoIndex {
			hasElse = true
			val, err := fc.compileBranchValue(bodyIx)
			if err != nil {
				return 0, err
			}
			if val != result {
				fc.em.Copy(result, val)
			}
			continue
		}
		cond, err := fc.compileExpr(condIx)
		if err != nil {
			return 0, err
		}
		nextPatch := fc.em.Jump(JMPIFFALSE, cond, true)
		val, err := fc.compileBranchValue(bodyIx)
		if err != nil {
			return 0, err
		}
		if val != result {
			fc.em.Copy(result, val)
		}
		endPatches = append(endPatches, fc.em.Jump(JMP, 0, false))
		fc.em.PatchJump(nextPatch)
	}
	if !hasElse {
		fc.em.SetNull(result)
	}
	for _, p := range endPatches {
		fc.em.PatchJump(p)
	}
	return result, nil
}

// compileMatch compiles a match statement: the scrutinee is evaluated once,
// then each arm's pattern is tested against it in turn. An arm whose
// pattern fails falls through to the next arm; if every arm fails, the
// match raises a runtime error, since an exhaustive catch-all is always
// available to the author as a trailing wildcard arm.
func (fc *fcomp) compileMatch(ix ast.Index) error {
	n := fc.tree.At(ix)
	scrutinee, err := fc.compileExpr(n.A)
	if err != nil {
		return err
	}
	items := fc.tree.ExtraSlice(n.Extra)

	var endPatches []int
	for i := 0; i+2 < len(items); i += 3 {
		patIx, guardIx, bodyIx := items[i], items[i+1], items[i+2]
		failPatches, err := fc.compileMatchArmTest(patIx, guardIx, scrutinee)
		if err != nil {
			return err
		}
		if err := fc.compileBranch(bodyIx); err != nil {
			return err
		}
		endPatches = append(endPatches, fc.em.Jump(JMP, 0, false))
		for _, p := range failPatches {
			fc.em.PatchJump(p)
		}
	}

	r := fc.alloc()
	fc.em.LoadString(r, fc.chunk.Constants.AddString("no match arm matched the value"))
	fc.em.Throw(r)

	for _, p := range endPatches {
		fc.em.PatchJump(p)
	}
	return nil
}

// compileMatchValue is compileMatch's value-producing counterpart: the
// matched arm's value is copied into a shared result register. Like
// compileMatch, a value with no matching arm raises a runtime error.
func (fc *fcomp) compileMatchValue(ix ast.Index) (byte, error) {
	n := fc.tree.At(ix)
	scrutinee, err := fc.compileExpr(n.A)
	if err != nil {
		return 0, err
	}
	items := fc.tree.ExtraSlice(n.Extra)
	result := fc.alloc()

	var endPatches []int
	for i := 0; i+2 < len(items); i += 3 {
		patIx, guardIx, bodyIx := items[i], items[i+1], items[i+2]
		failPatches, err := fc.compileMatchArmTest(patIx, guardIx, scrutinee)
		if err != nil {
			return 0, err
		}
		val, err := fc.compileBranchValue(bodyIx)
		if err != nil {
			return 0, err
		}
		if val != result {
			fc.em.Copy(result, val)
		}
		endPatches = append(endPatches, fc.em.Jump(JMP, 0, false))
		for _, p := range failPatches {
			fc.em.PatchJump(p)
		}
	}

	r := fc.alloc()
	fc.em.LoadString(r, fc.chunk.Constants.AddString("no match arm matched the value"))
	fc.em.Throw(r)

	for _, p := range endPatches {
		fc.em.PatchJump(p)
	}
	return result, nil
}

// compileMatchArmTest compiles one arm's full test: its pattern (if any)
// followed by its optional `if guard`, evaluated after the pattern's
// identifiers are bound so the guard can reference them. It returns every
// JMPIFFALSE patch site that must lead to the next arm when either the
// pattern or the guard fails. patIx is NoIndex for the catch-all `else`
// arm, which always matches and carries no guard.
func (fc *fcomp) compileMatchArmTest(patIx, guardIx ast.Index, value byte) ([]int, error) {
	if patIx == ast.NoIndex {
		return nil, nil
	}
	patches, err := fc.compileMatchPattern(patIx, value)
	if err != nil {
		return nil, err
	}
	if guardIx == ast.NoIndex {
		return patches, nil
	}
	guard, err := fc.compileExpr(guardIx)
	if err != nil {
		return nil, err
	}
	patches = append(patches, fc.em.Jump(JMPIFFALSE, guard, true))
	return patches, nil
}

// compileMatchPattern compiles the test for a single pattern against value,
// returning the JMPIFFALSE patch sites that must be jumped to when the
// pattern (or one of its nested sub-patterns) fails to match, so the caller
// can wire them all to the same "try next arm" target. A wildcard or bound
// identifier always succeeds and returns no patch sites.
func (fc *fcomp) compileMatchPattern(ix ast.Index, value byte) ([]int, error) {
	n := fc.tree.At(ix)
	switch n.Kind {
	case ast.Wildcard:
		return nil, nil

	case ast.Id:
		kind, slot := resolver.DecodeBinding(n.Int)
		var dst byte
		switch kind {
		case resolver.Local:
			dst = byte(slot)
		case resolver.Upvalue:
			dst = byte(fc.upvalBase() + slot)
		default:
			return nil, fmt.Errorf("compiler: cannot bind match pattern to global %q", n.Str)
		}
		if dst != value {
			fc.em.Copy(dst, value)
		}
		return nil, nil

	case ast.Tuple, ast.TempTuple:
		elems := fc.tree.ExtraSlice(n.Extra)

		isTuple := fc.alloc()
		fc.em.IsTuple(isTuple, value)
		var patches []int
		patches = append(patches, fc.em.Jump(JMPIFFALSE, isTuple, true))

		size := fc.alloc()
		fc.em.Size(size, value)
		want := fc.alloc()
		fc.em.SetNumber(want, int64(len(elems)))
		sameSize := fc.alloc()
		fc.em.Eql(sameSize, size, want)
		patches = append(patches, fc.em.Jump(JMPIFFALSE, sameSize, true))

		for i, el := range elems {
			r := fc.alloc()
			fc.em.TempIndex(r, value, int8(i))
			sub, err := fc.compileMatchPattern(el, r)
			if err != nil {
				return nil, err
			}
			patches = append(patches, sub...)
		}
		return patches, nil

	case ast.MatchOr:
		// try each alternative in turn: one that matches jumps straight past
		// the remaining alternatives (its bindings, if any, are already in
		// place), one that fails patches its failure sites to the start of
		// the next alternative's test; the last alternative's failure sites
		// become this pattern's own, handed back to the caller as usual.
		alts := fc.tree.ExtraSlice(n.Extra)
		var successJumps []int
		var lastFail []int
		for i, alt := range alts {
			failPatches, err := fc.compileMatchPattern(alt, value)
			if err != nil {
				return nil, err
			}
			if i < len(alts)-1 {
				successJumps = append(successJumps, fc.em.Jump(JMP, 0, false))
				for _, p := range failPatches {
					fc.em.PatchJump(p)
				}
			} else {
				lastFail = failPatches
			}
		}
		for _, p := range successJumps {
			fc.em.PatchJump(p)
		}
		return lastFail, nil

	default:
		pat, err := fc.compileExpr(ix)
		if err != nil {
			return nil, err
		}
		eq := fc.alloc()
		fc.em.Eql(eq, value, pat)
		return []int{fc.em.Jump(JMPIFFALSE, eq, true)}, nil
	}
}

// compileMultiAssign compiles `a, b = x, y` (pairwise assignment) and
// `a, b = pair` (destructuring a single right-hand value, the same way a
// tuple assignment target does).
func (fc *fcomp) compileMultiAssign(ix ast.Index) error {
	n := fc.tree.At(ix)
	items := fc.tree.ExtraSlice(n.Extra)
	count := int(n.A)
	targets := items[:count]
	values := items[count:]

	regs := make([]byte, len(values))
	for i, v := range values {
		r, err := fc.compileExpr(v)
		if err != nil {
			return err
		}
		regs[i] = r
	}

	if len(values) == 1 && count > 1 {
		single := regs[0]
		for i, t := range targets {
			r := fc.alloc()
			fc.em.TempIndex(r, single, int8(i))
			if err := fc.compileAssignTarget(t, r); err != nil {
				return err
			}
		}
		return nil
	}

	if len(values) != count {
		return fmt.Errorf("compiler: multi-assign has %d targets but %d values", count, len(values))
	}
	for i, t := range targets {
		if err := fc.compileAssignTarget(t, regs[i]); err != nil {
			return err
		}
	}
	return nil
}
