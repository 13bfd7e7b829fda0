package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/vela/lang/ast"
	"github.com/mna/vela/lang/parser"
	"github.com/mna/vela/lang/scanner"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(ctx, stdio, c.ShowSpans, args...)
}

// ParseFiles parses each named file independently and prints its AST, in
// the order the files are given. It keeps going after a file that fails to
// parse so that every file gets a chance to report its own errors, and
// returns the last error encountered, if any.
func ParseFiles(ctx context.Context, stdio mainer.Stdio, showSpans bool, files ...string) error {
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
		if tree != nil && tree.Root() != ast.NoIndex {
			if err := printer.Print(tree, tree.Root()); err != nil {
				fmt.Fprintln(stdio.Stderr, err)
				return err
			}
		}
		if perr != nil {
			scanner.PrintError(stdio.Stderr, perr)
			lastErr = perr
		}
	}
	return lastErr
}
