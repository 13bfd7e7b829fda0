// Package iomod wraps host I/O streams behind machine.IOCapability, plus a
// module exposing print/stdin/stdout/stderr natives. Grounded on
// src/runtime/src/core/io.rs's make_module: the teacher has no I/O module
// of its own (its Thread.Stdout/Stderr/Stdin are written to only by the
// VM's internal display/debug paths), so this package is what turns those
// raw io.Writer/io.Reader fields into capability values scripts can hold,
// pass around, and call methods on, mirroring io.rs's File type's
// read_to_string/write/flush methods but trimmed to what a sandboxed
// embedding should grant by default (no filesystem access; a host wanting
// File.open/create binds its own IOCapability alongside these).
package iomod

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/mna/vela/lang/machine"
)

// stream adapts an io.Writer and/or io.Reader pair into an IOCapability,
// the shape every concrete stream in this package (stdout, stderr, stdin,
// a Buffer) shares.
type stream struct {
	id string
	w  io.Writer
	r  *bufio.Reader
}

var (
	_ machine.Value         = (*stream)(nil)
	_ machine.ExternalObject = (*stream)(nil)
	_ machine.IOCapability   = (*stream)(nil)
)

func (s *stream) String() string       { return fmt.Sprintf("io(%s)", s.id) }
func (s *stream) Type() string         { return "io" }
func (s *stream) ObjectType() string   { return "io" }
func (s *stream) ID() string           { return s.id }
func (s *stream) Path() string         { return "" }
func (s *stream) Copy() machine.ExternalObject { return s }

func (s *stream) Lookup(key string) (machine.Value, bool) {
	fn, ok := methods[key]
	if !ok {
		return nil, false
	}
	return &machine.NativeFunc{
		FuncName: "io." + key,
		Fn: func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
			return fn(s, args)
		},
	}, true
}

func (s *stream) ReadLine() (string, error) {
	if s.r == nil {
		return "", fmt.Errorf("io(%s): not readable", s.id)
	}
	line, err := s.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}

func (s *stream) ReadToString() (string, error) {
	if s.r == nil {
		return "", fmt.Errorf("io(%s): not readable", s.id)
	}
	b, err := io.ReadAll(s.r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *stream) Write(str string) (int, error) {
	if s.w == nil {
		return 0, fmt.Errorf("io(%s): not writable", s.id)
	}
	return io.WriteString(s.w, str)
}

func (s *stream) WriteLine(str string) (int, error) {
	return s.Write(str + "\n")
}

func (s *stream) Flush() error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (s *stream) Seek(offset int64, whence int) (int64, error) {
	if sk, ok := s.w.(io.Seeker); ok {
		return sk.Seek(offset, whence)
	}
	if sk, ok := interface{}(s.r).(io.Seeker); ok {
		return sk.Seek(offset, whence)
	}
	return 0, fmt.Errorf("io(%s): not seekable", s.id)
}

var methods = map[string]func(*stream, []machine.Value) (machine.Value, error){
	"write": func(s *stream, args []machine.Value) (machine.Value, error) {
		str, err := machine.Args(args).String(0, "io.write")
		if err != nil {
			return nil, err
		}
		n, err := s.Write(str.Text())
		if err != nil {
			return nil, err
		}
		return machine.Int(n), nil
	},
	"write_line": func(s *stream, args []machine.Value) (machine.Value, error) {
		str, err := machine.Args(args).String(0, "io.write_line")
		if err != nil {
			return nil, err
		}
		n, err := s.WriteLine(str.Text())
		if err != nil {
			return nil, err
		}
		return machine.Int(n), nil
	},
	"read_line": func(s *stream, args []machine.Value) (machine.Value, error) {
		line, err := s.ReadLine()
		if err != nil {
			return nil, err
		}
		return machine.NewString(line), nil
	},
	"read_to_string": func(s *stream, args []machine.Value) (machine.Value, error) {
		str, err := s.ReadToString()
		if err != nil {
			return nil, err
		}
		return machine.NewString(str), nil
	},
	"flush": func(s *stream, args []machine.Value) (machine.Value, error) {
		return machine.Null, s.Flush()
	},
}

// Buffer returns an in-memory IOCapability, grounded on io.rs's use of a
// Koto-visible in-memory writer for capturing output in tests; useful for
// an embedding that wants to capture a script's output without
// redirecting the whole Thread.Stdout.
func Buffer() (*stream, *bytes.Buffer) {
	var buf bytes.Buffer
	return &stream{id: "buffer", w: &buf, r: bufio.NewReader(&buf)}, &buf
}

// New returns the host module value bound under a name such as "io" in a
// Thread's Predeclared set or import table. The stdout, stderr and stdin
// arguments back the module's stdout/stderr/stdin entries; th is not
// consulted, so the Thread's own Stdout/Stderr/Stdin fields do not affect
// this module.
func New(th *machine.Thread, stdout, stderr io.Writer, stdin io.Reader) *machine.Map {
	m := machine.NewMap(4)
	stdoutCap := &stream{id: "stdout", w: stdout}
	stderrCap := &stream{id: "stderr", w: stderr}
	stdinCap := &stream{id: "stdin", r: bufio.NewReader(stdin)}

	_ = m.SetKey(machine.NewString("stdout"), stdoutCap)
	_ = m.SetKey(machine.NewString("stderr"), stderrCap)
	_ = m.SetKey(machine.NewString("stdin"), stdinCap)

	_ = m.SetKey(machine.NewString("print"), &machine.NativeFunc{
		FuncName: "io.print",
		Fn: func(th *machine.Thread, args []machine.Value) (machine.Value, error) {
			for i, a := range args {
				if i > 0 {
					_, _ = stdoutCap.Write(" ")
				}
				disp, err := machine.Display(th, a)
				if err != nil {
					return nil, err
				}
				if _, err := stdoutCap.Write(disp); err != nil {
					return nil, err
				}
			}
			_, err := stdoutCap.Write("\n")
			return machine.Null, err
		},
	})

	return m
}
