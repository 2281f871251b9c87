// Package engine invokes the external experiment engine.
//
// The engine reads config.json files under the experiment directory and the command line flags
// (see Invocation), and writes run artifacts back to the same directory.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	xe "github.com/opst/alrun/pkg/errors"
)

// Engine runs an invocation and blocks until it finishes.
//
// There are no timeout nor cancellation. A hanging engine hangs its caller.
type Engine interface {
	Run(Invocation) error
	Command() []string
}

var (
	// engine command is not configured
	ErrNoCommand = errors.New("engine: command is empty")

	// engine process exits with non-zero status
	ErrEngineFailed = errors.New("engine: process failed")
)

// Process is Engine running a local executable.
type Process struct {
	command []string
	dir     string
	stdout  io.Writer
	stderr  io.Writer
	env     []string
}

var _ Engine = &Process{}

type Option func(*Process) *Process

// working directory of the engine process. default: current directory
func WithWorkDir(dir string) Option {
	return func(p *Process) *Process {
		p.dir = dir
		return p
	}
}

// where the engine output goes. default: os.Stdout & os.Stderr
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Process) *Process {
		p.stdout = stdout
		p.stderr = stderr
		return p
	}
}

// additional environment variables ("KEY=VALUE") for the engine process.
func WithEnv(env ...string) Option {
	return func(p *Process) *Process {
		p.env = append(p.env, env...)
		return p
	}
}

// NewProcess creates Process.
//
// command is the executable and its leading arguments (for example, "java -cp engine.jar RunExperiment").
// Flags of Invocation follow them.
func NewProcess(command []string, options ...Option) (*Process, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, ErrNoCommand
	}
	p := &Process{
		command: append([]string{}, command...),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range options {
		p = opt(p)
	}
	return p, nil
}

func (p *Process) Command() []string {
	return append([]string{}, p.command...)
}

func (p *Process) Run(inv Invocation) error {
	args := append(append([]string{}, p.command[1:]...), inv.Args()...)
	cmd := exec.Command(p.command[0], args...)
	cmd.Dir = p.dir
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	if 0 < len(p.env) {
		cmd.Env = append(os.Environ(), p.env...)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit status %d", ErrEngineFailed, exitErr.ExitCode())
		}
		return xe.WrapWithNote("starting engine", errors.Join(ErrEngineFailed, err))
	}
	return nil
}
