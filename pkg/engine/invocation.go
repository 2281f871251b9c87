package engine

import (
	"strconv"
	"strings"

	"github.com/opst/alrun/pkg/domain"
)

// Invocation is a set of command line flags for the engine.
//
//	--experiment_dir DIR --mode MODE... --num_runs N --budget N [--runs RUN...] [--metrics TOKEN...]
type Invocation struct {
	ExperimentDir string
	Modes         domain.Modes
	NumRuns       int
	Budget        int

	// Runs are run indices. When empty, --runs is omitted.
	Runs []int

	// Metrics are metric tokens. When empty, --metrics is omitted.
	Metrics []string
}

// Args are command line arguments for the engine.
//
// Each mode, run index and metric token is its own argument.
func (i Invocation) Args() []string {
	args := []string{"--experiment_dir", i.ExperimentDir, "--mode"}
	args = append(args, i.Modes.Strings()...)
	args = append(
		args,
		"--num_runs", strconv.Itoa(i.NumRuns),
		"--budget", strconv.Itoa(i.Budget),
	)
	if 0 < len(i.Runs) {
		args = append(args, "--runs")
		for _, r := range i.Runs {
			args = append(args, strconv.Itoa(r))
		}
	}
	if 0 < len(i.Metrics) {
		args = append(args, "--metrics")
		args = append(args, i.Metrics...)
	}
	return args
}

// CommandLine is one line form of the invocation, prefixed with command.
//
// Arguments containing spaces are quoted. It is for logging, not for shell.
func (i Invocation) CommandLine(command ...string) string {
	all := append(append([]string{}, command...), i.Args()...)
	words := make([]string, len(all))
	for n, a := range all {
		if a == "" || strings.ContainsAny(a, " \t\n\"'") {
			a = strconv.Quote(a)
		}
		words[n] = a
	}
	return strings.Join(words, " ")
}
