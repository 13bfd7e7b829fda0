package maincmd

import "os"

// readFile reads the named source file for any of the compilation-phase
// commands (tokenize/parse/resolve/compile/run), which all start from raw
// bytes the scanner then owns.
func readFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
