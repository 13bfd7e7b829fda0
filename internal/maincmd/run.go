package maincmd

import (
	"context"

	"github.com/mna/mainer"
	"github.com/mna/vela/lang/compiler"
	"github.com/mna/vela/lang/machine"
	"github.com/mna/vela/lang/parser"
	"github.com/mna/vela/lang/resolver"
	"github.com/mna/vela/lang/scanner"
	"github.com/mna/vela/lang/stdlib/cmap"
	"github.com/mna/vela/lang/stdlib/colorspec"
	"github.com/mna/vela/lang/stdlib/iomod"
	"github.com/mna/vela/lang/stdlib/random"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := loadRunConfig("")
	if err != nil {
		return printError(stdio, err)
	}
	return RunFiles(ctx, stdio, cfg, args...)
}

// RunFiles compiles and runs each named file in its own Thread, in order.
// A file that fails to parse, resolve, compile or run stops that file and
// moves on to the next one, but the overall command still reports failure
// if any file failed.
func RunFiles(ctx context.Context, stdio mainer.Stdio, cfg RunConfig, files ...string) error {
	var lastErr error
	for _, file := range files {
		if err := runFile(ctx, stdio, cfg, file); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func runFile(ctx context.Context, stdio mainer.Stdio, cfg RunConfig, file string) error {
	src, err := readFile(file)
	if err != nil {
		return printError(stdio, err)
	}

	tree, perr := parser.Parse(file, src)
	if perr != nil {
		scanner.PrintError(stdio.Stderr, perr)
		return perr
	}

	res, rerr := resolver.Resolve(tree)
	if rerr != nil {
		return printError(stdio, rerr)
	}

	chunk, cerr := compiler.Compile(file, tree, res)
	if cerr != nil {
		return printError(stdio, cerr)
	}

	th := &machine.Thread{
		Name:              file,
		Stdout:            stdio.Stdout,
		Stderr:            stdio.Stderr,
		Stdin:             stdio.Stdin,
		MaxSteps:          cfg.MaxSteps,
		MaxCallStackDepth: cfg.MaxCallStackDepth,
		DisableRecursion:  cfg.DisableRecursion,
		Predeclared:       predeclared(stdio),
	}

	if _, err := th.Run(ctx, chunk); err != nil {
		return printError(stdio, err)
	}
	return nil
}

// predeclared builds the set of host-provided modules every run makes
// available to a script's top level, in addition to the language's own
// universe.
func predeclared(stdio mainer.Stdio) map[string]machine.Value {
	return map[string]machine.Value{
		"random": random.New(),
		"color":  colorspec.New(),
		"io":     iomod.New(nil, stdio.Stdout, stdio.Stderr, stdio.Stdin),
		"map":    cmap.New(),
	}
}

