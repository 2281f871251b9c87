package orchestrator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/active"
	"github.com/opst/alrun/pkg/domain/experiment"
	"github.com/opst/alrun/pkg/domain/metric"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
	"github.com/opst/alrun/pkg/engine"
)

// Batch is a set of experiments: one experiment design over many tasks.
type Batch struct {
	// Root is the root directory of experiment trees.
	Root string

	Layout Layout

	Tasks []string

	Modes domain.Modes

	NumRuns int
	Budget  int

	// Runs are run indices passed to the engine.
	//
	// When it is empty and Modes contains RESUME or EVAL, 1..NumRuns are used.
	Runs []int

	// Experiment is the design of experiments. Its task is replaced with each of Tasks.
	Experiment *experiment.Experiment

	Metrics []*metric.Metric

	Metadata TaskMetadata
}

// MetricPlan is a metric configuration to be written into an experiment directory.
type MetricPlan struct {
	Metric   *metric.Metric
	Token    string
	Path     string
	Document []byte
}

// Plan is everything needed to run a task.
//
// Plans are computed without any I/O.
type Plan struct {
	Task string

	// Experiment with the factorization of the task bound.
	Experiment *experiment.Experiment

	ExperimentDir string

	ConfigPath string
	Document   []byte

	Metrics []MetricPlan

	Invocation engine.Invocation
}

// CheckFactorization checks that metrics on factorized learner are used only with factorized active learner.
func CheckFactorization(al active.ActiveLearner, metrics []*metric.Metric) error {
	if al.IsFactorized() {
		return nil
	}
	for i, m := range metrics {
		if m.IsFactorized() {
			return domain.NewConfigError(
				domain.ErrFactorizationMismatch, fmt.Sprintf("metrics[%d]", i), m.Name(),
				fmt.Sprintf(
					"metric with %s requires a factorized active learner, but %s is not",
					m.Learner().Name(), al.Name(),
				),
			)
		}
	}
	return nil
}

// DefaultRuns is 1..numRuns.
func DefaultRuns(numRuns int) []int {
	runs := make([]int, numRuns)
	for i := range runs {
		runs[i] = i + 1
	}
	return runs
}

func (b Batch) validate() error {
	if b.Experiment == nil {
		return domain.NewConfigError(domain.ErrOutOfRange, "activeLearner", nil, "required")
	}
	if len(b.Tasks) == 0 {
		return domain.NewConfigError(domain.ErrOutOfRange, "tasks", nil, "at least one task is required")
	}
	for i, task := range b.Tasks {
		if MaxRelativeLength <= utf8.RuneCountInString(task) {
			return domain.NewConfigError(
				domain.ErrOutOfRange, fmt.Sprintf("tasks[%d]", i), task,
				fmt.Sprintf("should be shorter than %d characters", MaxRelativeLength),
			)
		}
	}
	if len(b.Modes) == 0 {
		return domain.NewConfigError(domain.ErrOutOfRange, "modes", nil, "at least one mode is required")
	}
	if !b.Layout.IsKnown() {
		return domain.NewConfigError(domain.ErrUnsupportedValue, "layout", string(b.Layout), "one of runs, flat")
	}
	if strings.TrimSpace(b.Root) == "" {
		return domain.NewConfigError(domain.ErrOutOfRange, "root", b.Root, "should not be empty")
	}
	if err := validate.First(
		validate.Positive("numRuns", b.NumRuns),
		validate.Positive("budget", b.Budget),
	); err != nil {
		return err
	}
	for i, r := range b.Runs {
		if err := validate.Positive(fmt.Sprintf("runs[%d]", i), r); err != nil {
			return err
		}
	}
	return nil
}

// Plan computes plans of all tasks.
//
// Any error returned is an authoring error of the batch, so no tasks should be run.
func (b Batch) Plan() ([]Plan, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if err := CheckFactorization(b.Experiment.ActiveLearner(), b.Metrics); err != nil {
		return nil, err
	}

	runs := append([]int{}, b.Runs...)
	if len(runs) == 0 && b.Modes.NeedsRuns() {
		runs = DefaultRuns(b.NumRuns)
	}

	plans := make([]Plan, 0, len(b.Tasks))
	for _, task := range b.Tasks {
		p, err := b.plan(task, runs)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", task, err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (b Batch) plan(task string, runs []int) (Plan, error) {
	f := b.Metadata.Factorization(task)

	exp, err := b.Experiment.WithTask(task)
	if err != nil {
		return Plan{}, err
	}
	exp, err = exp.WithFactorization(f)
	if err != nil {
		return Plan{}, err
	}

	dir := ExperimentDir(b.Root, exp)
	doc, err := node.Document(exp)
	if err != nil {
		return Plan{}, err
	}

	factorized := exp.UseFactorizationInformation()
	metrics := []MetricPlan{}
	if b.Modes.Evaluates() {
		for i, m := range b.Metrics {
			if factorized {
				if m, err = m.WithFactorization(f); err != nil {
					return Plan{}, domain.Within(fmt.Sprintf("metrics[%d]", i), err)
				}
			}
			mdoc, err := node.Document(m)
			if err != nil {
				return Plan{}, err
			}
			token := m.Token()
			metrics = append(metrics, MetricPlan{
				Metric:   m,
				Token:    token,
				Path:     MetricConfigPath(dir, token),
				Document: mdoc,
			})
		}
	}

	tokens := make([]string, len(metrics))
	for i := range metrics {
		tokens[i] = metrics[i].Token
	}

	return Plan{
		Task:          task,
		Experiment:    exp,
		ExperimentDir: dir,
		ConfigPath:    b.Layout.ConfigPath(dir),
		Document:      doc,
		Metrics:       metrics,
		Invocation: engine.Invocation{
			ExperimentDir: dir,
			Modes:         b.Modes,
			NumRuns:       b.NumRuns,
			Budget:        b.Budget,
			Runs:          runs,
			Metrics:       tokens,
		},
	}, nil
}
