// Package orchestrator runs a batch of experiments with the external engine.
//
// Running a batch has two phases.
//
// First, Batch.Plan computes everything for each task: the factorization bound to learners,
// the experiment directory, config documents and the engine invocation.
// Errors in this phase are authoring errors and abort the whole batch.
//
// Then, Orchestrator.Run processes plans one by one: it writes config files (never overwriting),
// calls hooks and blocks on the engine.
// A failure of a task is logged and recorded, and the next task goes on.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/engine"
	"github.com/opst/alrun/pkg/hook"
	"github.com/opst/alrun/pkg/loop"
)

type Status string

const (
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// TaskResult is the outcome of a task.
type TaskResult struct {
	Task          string `json:"task" yaml:"task"`
	ExperimentDir string `json:"experimentDir" yaml:"experimentDir"`
	Status        Status `json:"status" yaml:"status"`

	// Err is *domain.TaskError when Status is StatusFailed.
	Err error `json:"-" yaml:"-"`

	// Error is the message of Err.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the outcome of a batch.
type Report struct {
	BatchId string       `json:"batchId" yaml:"batchId"`
	Tasks   []TaskResult `json:"tasks" yaml:"tasks"`
}

// Attempted is the number of tasks which are started.
func (r Report) Attempted() int {
	n := 0
	for _, t := range r.Tasks {
		if t.Status != StatusSkipped {
			n += 1
		}
	}
	return n
}

func (r Report) Failed() []TaskResult {
	failed := []TaskResult{}
	for _, t := range r.Tasks {
		if t.Status == StatusFailed {
			failed = append(failed, t)
		}
	}
	return failed
}

// Err joins errors of failed tasks. nil if no tasks failed.
func (r Report) Err() error {
	errs := []error{}
	for _, t := range r.Failed() {
		errs = append(errs, t.Err)
	}
	return errors.Join(errs...)
}

// TaskEvent is the payload sent to hooks.
type TaskEvent struct {
	BatchId       string   `json:"batchId"`
	Task          string   `json:"task"`
	ExperimentDir string   `json:"experimentDir"`
	Modes         []string `json:"modes"`
	Args          []string `json:"args"`

	// Error is set in after-hook of a failed task.
	Error string `json:"error,omitempty"`
}

type Orchestrator struct {
	logger  *log.Logger
	engine  engine.Engine
	hook    hook.Hook[TaskEvent]
	batchId string
	write   func(string, []byte) (bool, error)
}

type Option func(*Orchestrator) *Orchestrator

// hook called before/after each engine invocation. default: hook.None
func WithHook(h hook.Hook[TaskEvent]) Option {
	return func(o *Orchestrator) *Orchestrator {
		o.hook = h
		return o
	}
}

// id of the batch, sent to hooks and recorded in Report. default: random UUID
func WithBatchId(id string) Option {
	return func(o *Orchestrator) *Orchestrator {
		o.batchId = id
		return o
	}
}

// replace how config files are written. default: WriteOnce
func WithWriter(write func(path string, content []byte) (bool, error)) Option {
	return func(o *Orchestrator) *Orchestrator {
		o.write = write
		return o
	}
}

func New(logger *log.Logger, eng engine.Engine, options ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:  logger,
		engine:  eng,
		hook:    hook.None[TaskEvent]{},
		batchId: uuid.NewString(),
		write:   WriteOnce,
	}
	for _, opt := range options {
		o = opt(o)
	}
	return o
}

func (o *Orchestrator) BatchId() string {
	return o.batchId
}

type progress struct {
	next   int
	report Report
}

// Run processes plans in order, one at a time.
//
// A failed task does not stop the batch. Check Report for failures.
//
// When ctx is done, tasks not started yet are skipped and ctx's cause is returned.
// A running engine is never interrupted.
func (o *Orchestrator) Run(ctx context.Context, plans []Plan) (Report, error) {
	init := progress{report: Report{BatchId: o.batchId, Tasks: []TaskResult{}}}
	if len(plans) == 0 {
		return init.report, nil
	}

	last, err := loop.Start(ctx, init, func(ctx context.Context, p progress) (progress, loop.Next) {
		if ctx.Err() != nil {
			return p, loop.Break(context.Cause(ctx))
		}

		plan := plans[p.next]
		result := o.runTask(ctx, plan)
		p.report.Tasks = append(p.report.Tasks, result)
		p.next += 1

		if len(plans) <= p.next {
			return p, loop.Break(nil)
		}
		return p, loop.Continue(0)
	})

	report := last.report
	for _, plan := range plans[len(report.Tasks):] {
		report.Tasks = append(report.Tasks, TaskResult{
			Task: plan.Task, ExperimentDir: plan.ExperimentDir, Status: StatusSkipped,
		})
	}

	o.logger.Printf(
		"%d task(s) attempted, %d failed, %d skipped",
		report.Attempted(), len(report.Failed()), len(plans)-report.Attempted(),
	)

	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			err = cause
		}
		o.logger.Printf("batch is stopped: %s", err)
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) runTask(ctx context.Context, plan Plan) TaskResult {
	result := TaskResult{Task: plan.Task, ExperimentDir: plan.ExperimentDir, Status: StatusDone}
	command := o.engine.Command()
	o.logger.Printf(`task "%s" started: %s`, plan.Task, plan.ExperimentDir)

	fail := func(phase string, err error) TaskResult {
		err = domain.NewTaskError(plan.Task, phase, err)
		o.logger.Printf(`task "%s" failed: %s`, plan.Task, err)
		result.Status = StatusFailed
		result.Err = err
		result.Error = err.Error()
		return result
	}

	if err := o.persist(plan); err != nil {
		return fail("persist", err)
	}

	event := TaskEvent{
		BatchId:       o.batchId,
		Task:          plan.Task,
		ExperimentDir: plan.ExperimentDir,
		Modes:         plan.Invocation.Modes.Strings(),
		Args:          plan.Invocation.Args(),
	}
	if err := o.hook.Before(ctx, event); err != nil {
		return fail("before-hook", err)
	}

	o.logger.Printf(`task "%s": %s`, plan.Task, plan.Invocation.CommandLine(command...))
	runErr := o.engine.Run(plan.Invocation)

	if runErr != nil {
		event.Error = runErr.Error()
	}
	if err := o.hook.After(ctx, event); err != nil {
		o.logger.Printf(`task "%s": after-hook failed: %s`, plan.Task, err)
	}

	if runErr != nil {
		return fail("engine", runErr)
	}
	o.logger.Printf(`task "%s" done`, plan.Task)
	return result
}

func (o *Orchestrator) persist(plan Plan) error {
	files := []struct {
		path    string
		content []byte
	}{
		{path: plan.ConfigPath, content: plan.Document},
	}
	for _, m := range plan.Metrics {
		files = append(files, struct {
			path    string
			content []byte
		}{path: m.Path, content: m.Document})
	}

	for _, f := range files {
		written, err := o.write(f.path, f.content)
		if err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
		if written {
			o.logger.Printf(`task "%s": config written: %s`, plan.Task, f.path)
		} else {
			o.logger.Printf(`task "%s": config exists, kept as is: %s`, plan.Task, f.path)
		}
	}
	return nil
}
