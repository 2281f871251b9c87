// Package errors wraps errors with where they are wrapped.
//
//	return xe.WrapWithNote(path, err)
//
// gives a message like
//
//	@ github.com/opst/alrun/pkg/orchestrator.WriteOnce ".../persist.go" l26 (experiment/t1/Runs/config.json) <- mkdir ...: permission denied
//
// Read "<-" as "caused by". Wrapped errors keep working with errors.Is and errors.As.
package errors

import (
	"fmt"
	"runtime"
)

// ErrWithCaller is an error annotated with the function, file and line it is wrapped at.
type ErrWithCaller struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *ErrWithCaller) File() string {
	return e.file
}

func (e *ErrWithCaller) Line() int {
	return e.line
}

func (e *ErrWithCaller) Note() string {
	return e.note
}

func (e *ErrWithCaller) Error() string {
	if e.note == "" {
		return fmt.Sprintf(`@ %s "%s" l%d <- %s`, e.funcname, e.file, e.line, e.err)
	}
	return fmt.Sprintf(`@ %s "%s" l%d (%s) <- %s`, e.funcname, e.file, e.line, e.note, e.err)
}

func (e *ErrWithCaller) Unwrap() error {
	return e.err
}

// Wrap annotates err with the caller.
func Wrap(err error) error {
	return wrap("", err, 1)
}

// WrapWithNote annotates err with the caller and note, like a path being processed.
func WrapWithNote(note string, err error) error {
	return wrap(note, err, 1)
}

func wrap(note string, err error, depth int) error {
	if err == nil {
		return nil
	}
	funcname, file, line := "(unknown func)", "?", -1
	if pc, f, l, ok := runtime.Caller(depth + 1); ok {
		file, line = f, l
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcname = fn.Name()
		}
	}
	return &ErrWithCaller{funcname: funcname, file: file, line: line, note: note, err: err}
}
