// Package resolver takes a parsed ast.Tree and assigns every variable
// reference a binding: a register slot local to its function frame, an
// upvalue captured from an enclosing frame, or a global looked up by name
// at runtime. It is the collaborator that feeds the compiler the register
// layout and closure capture lists it needs to lower the AST to bytecode;
// it does not itself emit any instructions.
package resolver

import "github.com/mna/vela/lang/ast"

// Resolve walks tree and annotates every ast.Id node that refers to a
// variable (as opposed to a field-name or map-key label) with its
// resolved binding, via resolver.DecodeBinding(node.Int). It returns one
// FuncInfo per function frame (the implicit top-level frame plus every
// ast.FunctionLit), keyed by that frame's node index.
func Resolve(tree *ast.Tree) (*Result, error) {
	res := &Result{Funcs: make(map[ast.Index]*FuncInfo)}
	root := tree.Root()
	main := tree.At(root)

	sc := newScope(nil)
	resolveBlock(tree, main.A, sc, res)
	res.Funcs[root] = &FuncInfo{NumRegisters: sc.nextSlot, Upvalues: nil}

	return res, nil
}

func resolveBlock(tree *ast.Tree, blockIx ast.Index, sc *scope, res *Result) {
	if blockIx == ast.NoIndex {
		return
	}
	n := tree.At(blockIx)
	for _, s := range tree.ExtraSlice(n.Extra) {
		resolveStmt(tree, s, sc, res)
	}
}

func resolveFunctionLit(tree *ast.Tree, ix ast.Index, parent *scope, res *Result) {
	n := tree.At(ix)
	sc := newScope(parent)

	for _, p := range tree.ExtraSlice(n.Extra) {
		pn := tree.At(p)
		if pn.Kind == ast.Id {
			slot := sc.declare(pn.Str)
			pn.Int = encodeLocal(slot)
		}
	}

	resolveBlock(tree, n.A, sc, res)
	res.Funcs[ix] = &FuncInfo{NumRegisters: sc.nextSlot, Upvalues: sc.upvalues}
}

func resolveStmt(tree *ast.Tree, ix ast.Index, sc *scope, res *Result) {
	n := tree.At(ix)
	switch n.Kind {
	case ast.Assign:
		resolveExpr(tree, n.B, sc, res)
		resolveAssignTarget(tree, n.A, sc, res)

	case ast.MultiAssign:
		items := tree.ExtraSlice(n.Extra)
		count := int(n.A)
		for i := count; i < len(items); i++ {
			resolveExpr(tree, items[i], sc, res)
		}
		for i := 0; i < count; i++ {
			resolveAssignTarget(tree, items[i], sc, res)
		}

	case ast.ExportStmt:
		resolveStmt(tree, n.A, sc, res)

	case ast.If:
		resolveExpr(tree, n.A, sc, res)
		resolveBlockOrStmt(tree, n.B, sc, res)
		if n.C != ast.NoIndex {
			resolveBlockOrStmt(tree, n.C, sc, res)
		}

	case ast.Switch:
		items := tree.ExtraSlice(n.Extra)
		for i := 0; i+1 < len(items); i += 2 {
			if items[i] != ast.NoIndex {
				resolveExpr(tree, items[i], sc, res)
			}
			resolveBlockOrStmt(tree, items[i+1], sc, res)
		}

	case ast.Match:
		resolveExpr(tree, n.A, sc, res)
		items := tree.ExtraSlice(n.Extra)
		for i := 0; i+2 < len(items); i += 3 {
			patIx, guardIx, bodyIx := items[i], items[i+1], items[i+2]
			if patIx != ast.NoIndex {
				// an else arm has neither a pattern nor a guard to resolve
				resolveMatchPattern(tree, patIx, sc, res)
			}
			if guardIx != ast.NoIndex {
				resolveExpr(tree, guardIx, sc, res)
			}
			resolveBlockOrStmt(tree, bodyIx, sc, res)
		}

	case ast.For:
		resolveExpr(tree, n.A, sc, res)
		for _, v := range tree.ExtraSlice(n.Extra) {
			vn := tree.At(v)
			if vn.Kind == ast.Id {
				slot := sc.declare(vn.Str)
				vn.Int = encodeLocal(slot)
			}
		}
		resolveBlockOrStmt(tree, n.B, sc, res)

	case ast.While, ast.Until:
		resolveExpr(tree, n.A, sc, res)
		resolveBlockOrStmt(tree, n.B, sc, res)

	case ast.Loop:
		resolveBlockOrStmt(tree, n.A, sc, res)

	case ast.Break, ast.Return:
		if n.A != ast.NoIndex {
			resolveExpr(tree, n.A, sc, res)
		}

	case ast.Continue:
		// no operand

	case ast.Yield, ast.Throw:
		resolveExpr(tree, n.A, sc, res)

	case ast.Try:
		resolveBlockOrStmt(tree, n.A, sc, res)
		if n.B != ast.NoIndex {
			if n.Str != "" {
				slot := sc.declare(n.Str)
				n.Int = encodeLocal(slot)
			}
			resolveBlockOrStmt(tree, n.B, sc, res)
		}
		if n.C != ast.NoIndex {
			resolveBlockOrStmt(tree, n.C, sc, res)
		}

	case ast.ImportStmt, ast.FromImport:
		names := tree.ExtraSlice(n.Extra)
		if len(names) == 0 {
			// bind the whole module under its last path segment
			last := n.Str
			for i := len(last) - 1; i >= 0; i-- {
				if last[i] == '.' {
					last = last[i+1:]
					break
				}
			}
			sc.declare(last)
		}
		for _, nm := range names {
			nn := tree.At(nm)
			slot := sc.declare(nn.Str)
			nn.Int = encodeLocal(slot)
		}

	case ast.DebugStmt:
		resolveExpr(tree, n.A, sc, res)

	default:
		// a bare expression used as a statement (including the implicit
		// trailing value of a block)
		resolveExpr(tree, ix, sc, res)
	}
}

// resolveBlockOrStmt resolves ix as a Block if it is one (the common
// case for control-flow bodies), or as a single statement for the
// single-line `if cond then stmt` form.
func resolveBlockOrStmt(tree *ast.Tree, ix ast.Index, sc *scope, res *Result) {
	if ix == ast.NoIndex {
		return
	}
	n := tree.At(ix)
	if n.Kind == ast.Block {
		resolveBlock(tree, ix, sc, res)
		return
	}
	resolveStmt(tree, ix, sc, res)
}

// resolveAssignTarget resolves the left-hand side of an assignment: a
// bare identifier declares (or re-resolves) a local, a wildcard discards
// the value, a tuple destructures recursively, and anything else (a
// Lookup chain ending in a field or index step) is a mutation through an
// existing binding and is resolved as a normal expression.
func resolveAssignTarget(tree *ast.Tree, ix ast.Index, sc *scope, res *Result) {
	n := tree.At(ix)
	switch n.Kind {
	case ast.Id:
		slot := sc.declare(n.Str)
		n.Int = encodeLocal(slot)
	case ast.Wildcard:
		// discarded
	case ast.Tuple, ast.TempTuple:
		for _, c := range tree.ExtraSlice(n.Extra) {
			resolveAssignTarget(tree, c, sc, res)
		}
	default:
		resolveExpr(tree, ix, sc, res)
	}
}

// resolveMatchPattern resolves a single match arm's pattern: a wildcard
// matches anything and binds nothing, a bare identifier is a fresh capture
// (declared as a local for the arm's body, exactly like an assignment
// target), a tuple recurses into its elements, and any other expression is
// a value tested for equality against the scrutinee and so resolved as a
// normal (read-only) expression.
func resolveMatchPattern(tree *ast.Tree, ix ast.Index, sc *scope, res *Result) {
	n := tree.At(ix)
	switch n.Kind {
	case ast.Wildcard:
		// matches anything, binds nothing
	case ast.Id:
		slot := sc.declare(n.Str)
		n.Int = encodeLocal(slot)
	case ast.Tuple, ast.TempTuple:
		for _, c := range tree.ExtraSlice(n.Extra) {
			resolveMatchPattern(tree, c, sc, res)
		}
	case ast.MatchOr:
		// every alternative is resolved in the same arm scope: declare()
		// is idempotent per name, so an identifier bound by more than one
		// alternative shares a single register regardless of which one
		// actually matches at runtime.
		for _, alt := range tree.ExtraSlice(n.Extra) {
			resolveMatchPattern(tree, alt, sc, res)
		}
	default:
		resolveExpr(tree, ix, sc, res)
	}
}

// resolveExpr resolves every variable-reference ast.Id reachable from ix,
// skipping label-only Id nodes (map keys, dotted field names, meta-entry
// operator keys, function parameter declarations already resolved at
// declaration time).
func resolveExpr(tree *ast.Tree, ix ast.Index, sc *scope, res *Result) {
	if ix == ast.NoIndex {
		return
	}
	n := tree.At(ix)
	switch n.Kind {
	case ast.Id:
		kind, idx := sc.resolve(n.Str)
		switch kind {
		case Local:
			n.Int = encodeLocal(idx)
		case Upvalue:
			n.Int = encodeUpvalue(idx)
		default:
			n.Int = 0
		}

	case ast.Str:
		if n.Int == 1 {
			for i := n.A; i < n.B; i++ {
				frag := &tree.StringFrags[i]
				if frag.IsExpr {
					resolveExpr(tree, frag.Expr, sc, res)
				}
			}
		}

	case ast.Tuple, ast.TempTuple, ast.List:
		for _, c := range tree.ExtraSlice(n.Extra) {
			resolveExpr(tree, c, sc, res)
		}

	case ast.MapLit:
		items := tree.ExtraSlice(n.Extra)
		for i := 0; i+1 < len(items); i += 2 {
			key := tree.At(items[i])
			if key.Kind != ast.Id {
				resolveExpr(tree, items[i], sc, res)
			}
			resolveExpr(tree, items[i+1], sc, res)
		}

	case ast.RangeLit:
		resolveExpr(tree, n.A, sc, res)
		resolveExpr(tree, n.B, sc, res)
	case ast.RangeFrom, ast.RangeTo:
		resolveExpr(tree, n.A, sc, res)

	case ast.MetaLit:
		resolveExpr(tree, n.B, sc, res)

	case ast.FunctionLit:
		resolveFunctionLit(tree, ix, sc, res)

	case ast.Nested:
		resolveExpr(tree, n.A, sc, res)

	case ast.Lookup:
		resolveExpr(tree, n.A, sc, res)
		for _, step := range tree.ExtraSlice(n.Extra) {
			st := tree.At(step)
			switch st.Kind {
			case ast.Id:
				// dotted field name, not a variable reference
			case ast.IndexOp:
				resolveExpr(tree, st.A, sc, res)
			case ast.Call:
				for _, a := range tree.ExtraSlice(st.Extra) {
					resolveExpr(tree, a, sc, res)
				}
			}
		}

	case ast.IndexOp:
		resolveExpr(tree, n.A, sc, res)
		resolveExpr(tree, n.B, sc, res)

	case ast.Call, ast.NamedCall:
		resolveExpr(tree, n.A, sc, res)
		for _, a := range tree.ExtraSlice(n.Extra) {
			resolveExpr(tree, a, sc, res)
		}

	case ast.BinaryOp, ast.Pipe:
		resolveExpr(tree, n.A, sc, res)
		resolveExpr(tree, n.B, sc, res)

	case ast.UnaryOp:
		resolveExpr(tree, n.A, sc, res)

	case ast.Assign, ast.MultiAssign, ast.If, ast.Switch, ast.Match, ast.For,
		ast.While, ast.Until, ast.Loop, ast.Break, ast.Continue, ast.Return,
		ast.Yield, ast.Throw, ast.Try, ast.ImportStmt, ast.FromImport,
		ast.ExportStmt, ast.DebugStmt:
		// an expression-statement is only ever one of these when a
		// statement is itself used as the trailing value of a block; they
		// carry their own resolution logic.
		resolveStmt(tree, ix, sc, res)

	default:
		// literals: BoolTrue, BoolFalse, NullLit, SmallInt, IntLit, FloatLit,
		// SelfLit, Wildcard, RangeFull, Block, MainBlock — no variable
		// references to resolve.
	}
}
