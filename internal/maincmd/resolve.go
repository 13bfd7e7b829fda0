package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/parser"
	"github.com/mna/vela/lang/resolver"
	"github.com/mna/vela/lang/scanner"
)

func (c *Cmd) Resolve(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ResolveFiles(ctx, stdio, c.ShowSpans, args...)
}

// ResolveFiles parses and resolves each named file, reporting resolution
// errors and printing the AST with the same printer the parse command
// uses; the binding information (local slot, upvalue index, or global)
// the resolver stores on each ast.Id node is not printed. Parsing must
// succeed before resolution is attempted, the same ordering constraint
// the compiler pipeline enforces.
func ResolveFiles(ctx context.Context, stdio mainer.Stdio, showSpans bool, files ...string) error {
	printer := ast.Printer{Output: stdio.Stdout, ShowSpans: showSpans}

	var lastErr error
	for _, file := range files {
		src, rerr := readFile(file)
		if rerr != nil {
			fmt.Fprintln(stdio.Stderr, rerr)
			lastErr = rerr
			continue
		}

		tree, perr := parser.Parse(file, src)
		if perr != nil {
			scanner.PrintError(stdio.Stderr, perr)
			lastErr = perr
			continue
		}

		if _, rerr := resolver.Resolve(tree); rerr != nil {
			fmt.Fprintln(stdio.Stderr, rerr)
			lastErr = rerr
			continue
		}

		if err := printer.Print(tree, tree.Root()); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
	}
	return lastErr
}
