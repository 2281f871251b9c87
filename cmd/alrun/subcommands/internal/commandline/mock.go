// Package commandline provides flarc.Commandline for tests of subcommands.
package commandline

import (
	"io"
	"strings"

	"github.com/youta-t/flarc"
)

// MockCommandline is flarc.Commandline with fixed flags and streams.
//
// Nil streams behave as empty stdin and discarding stdout/stderr.
type MockCommandline[T any] struct {
	Fullname_ string

	Stdin_  io.Reader
	Stdout_ io.Writer
	Stderr_ io.Writer

	Flags_ T
	Args_  map[string][]string
}

var _ flarc.Commandline[struct{}] = &MockCommandline[struct{}]{}

func (m *MockCommandline[T]) Fullname() string {
	if m.Fullname_ == "" {
		return "alrun"
	}
	return m.Fullname_
}

func (m *MockCommandline[T]) Stdin() io.Reader {
	if m.Stdin_ == nil {
		return strings.NewReader("")
	}
	return m.Stdin_
}

func (m *MockCommandline[T]) Stdout() io.Writer {
	if m.Stdout_ == nil {
		return io.Discard
	}
	return m.Stdout_
}

func (m *MockCommandline[T]) Stderr() io.Writer {
	if m.Stderr_ == nil {
		return io.Discard
	}
	return m.Stderr_
}

func (m *MockCommandline[T]) Flags() T {
	return m.Flags_
}

func (m *MockCommandline[T]) Args() map[string][]string {
	return m.Args_
}
