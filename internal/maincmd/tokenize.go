package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/vela/lang/scanner"
	"github.com/mna/vela/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles scans each named file and prints one line per token: its
// span followed by the token's kind and, for tokens that carry a value
// (identifiers, literals, strings), its raw source text.
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	var lastErr error
	for _, file := range files {
		src, err := readFile(file)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			lastErr = err
			continue
		}

		var sc scanner.Scanner
		sc.Init(file, src)
		for {
			tok, val, span := sc.Scan()
			fmt.Fprintf(stdio.Stdout, "%s: %s", span, tok)
			if val.Raw != "" {
				fmt.Fprintf(stdio.Stdout, " %s", val.Raw)
			}
			fmt.Fprintln(stdio.Stdout)
			if tok == token.EOF {
				break
			}
		}
		if errs := sc.Errors(); len(errs) > 0 {
			scanner.PrintError(stdio.Stderr, errs)
			lastErr = errs
		}
	}
	return lastErr
}
