package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/vela/lang/compiler"
	"github.com/mna/vela/lang/parser"
	"github.com/mna/vela/lang/resolver"
	"github.com/mna/vela/lang/scanner"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(ctx, stdio, args...)
}

// CompileFiles runs each named file through the full parse/resolve/compile
// pipeline and prints the resulting chunk's disassembly (compiler.Dasm),
// the text format compiler.Asm reads back.
func CompileFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	var lastErr error
	for _, file := range files {
		src, err := readFile(file)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			lastErr = err
			continue
		}

		tree, perr := parser.Parse(file, src)
		if perr != nil {
			scanner.PrintError(stdio.Stderr, perr)
			lastErr = perr
			continue
		}

		res, rerr := resolver.Resolve(tree)
		if rerr != nil {
			fmt.Fprintln(stdio.Stderr, rerr)
			lastErr = rerr
			continue
		}

		chunk, cerr := compiler.Compile(file, tree, res)
		if cerr != nil {
			fmt.Fprintln(stdio.Stderr, cerr)
			lastErr = cerr
			continue
		}

		fmt.Fprint(stdio.Stdout, compiler.Dasm(chunk))
	}
	return lastErr
}
