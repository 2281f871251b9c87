package orchestrator_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/metric"
	"github.com/opst/alrun/pkg/engine"
	"github.com/opst/alrun/pkg/hook"
	"github.com/opst/alrun/pkg/orchestrator"
	"github.com/opst/alrun/pkg/utils/try"
)

type fakeEngine struct {
	// task -> error to be returned
	fails map[string]error

	// called after each invocation
	onRun func(engine.Invocation)

	invoked []engine.Invocation
}

func (f *fakeEngine) Command() []string {
	return []string{"fake-engine"}
}

func (f *fakeEngine) Run(inv engine.Invocation) error {
	f.invoked = append(f.invoked, inv)
	if f.onRun != nil {
		f.onRun(inv)
	}
	for task, err := range f.fails {
		if strings.Contains(inv.ExperimentDir, string(filepath.Separator)+task+string(filepath.Separator)) {
			return err
		}
	}
	return nil
}

// chdir moves into a temporary directory during the test.
//
// Experiment directories are relative to there, to be kept shorter than the length limit.
func chdir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd := try.To(os.Getwd()).OrFatal(t)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func plans(t *testing.T, tasks ...string) []orchestrator.Plan {
	t.Helper()
	chdir(t)
	if len(tasks) == 0 {
		return nil
	}
	m := try.To(metric.New(metric.KindConfusionMatrix, svm(t))).OrFatal(t)
	b := batch(t, uncertainty(t, svm(t)), m)
	b.Tasks = tasks
	return try.To(b.Plan()).OrFatal(t)
}

func statuses(r orchestrator.Report) []orchestrator.Status {
	ret := make([]orchestrator.Status, len(r.Tasks))
	for i := range r.Tasks {
		ret[i] = r.Tasks[i].Status
	}
	return ret
}

func TestRun(t *testing.T) {
	type When struct {
		tasks []string
		fails map[string]error
	}
	type Then struct {
		invoked  int
		statuses []orchestrator.Status
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			ps := plans(t, when.tasks...)
			eng := &fakeEngine{fails: when.fails}
			logs := new(bytes.Buffer)
			testee := orchestrator.New(log.New(logs, "", 0), eng, orchestrator.WithBatchId("batch-x"))

			report, err := testee.Run(context.Background(), ps)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.BatchId != "batch-x" {
				t.Errorf("batch id: %s", report.BatchId)
			}
			if len(eng.invoked) != then.invoked {
				t.Errorf("invoked: want %d, but got %d", then.invoked, len(eng.invoked))
			}
			if got := statuses(report); !slices.Equal(got, then.statuses) {
				t.Errorf("statuses: want %v, but got %v", then.statuses, got)
			}
			for i, tr := range report.Tasks {
				if tr.Status == orchestrator.StatusFailed {
					if !errors.Is(tr.Err, domain.ErrTaskFailed) || tr.Error == "" {
						t.Errorf("tasks[%d]: error is not recorded: %+v", i, tr)
					}
				} else if tr.Err != nil {
					t.Errorf("tasks[%d]: unexpected error: %v", i, tr.Err)
				}
			}
			if len(report.Failed()) == 0 {
				if report.Err() != nil {
					t.Errorf("report error: %v", report.Err())
				}
			} else if !errors.Is(report.Err(), domain.ErrTaskFailed) {
				t.Errorf("report error: %v", report.Err())
			}
		}
	}

	t.Run("all tasks are run in order", theory(
		When{tasks: []string{"t1", "t2", "t3"}},
		Then{
			invoked: 3,
			statuses: []orchestrator.Status{
				orchestrator.StatusDone, orchestrator.StatusDone, orchestrator.StatusDone,
			},
		},
	))

	t.Run("failed task does not stop the batch", theory(
		When{
			tasks: []string{"t1", "t2", "t3"},
			fails: map[string]error{"t2": fmt.Errorf("%w: exit status 1", engine.ErrEngineFailed)},
		},
		Then{
			invoked: 3,
			statuses: []orchestrator.Status{
				orchestrator.StatusDone, orchestrator.StatusFailed, orchestrator.StatusDone,
			},
		},
	))

	t.Run("all tasks can fail", theory(
		When{
			tasks: []string{"t1", "t2"},
			fails: map[string]error{
				"t1": engine.ErrEngineFailed,
				"t2": engine.ErrEngineFailed,
			},
		},
		Then{
			invoked:  2,
			statuses: []orchestrator.Status{orchestrator.StatusFailed, orchestrator.StatusFailed},
		},
	))

	t.Run("no plans, no invocations", theory(
		When{tasks: nil},
		Then{invoked: 0, statuses: []orchestrator.Status{}},
	))
}

func TestRun_Persist(t *testing.T) {
	ps := plans(t, "t1")
	eng := &fakeEngine{
		onRun: func(inv engine.Invocation) {
			// the engine sees config files before it starts.
			if _, err := os.Stat(ps[0].ConfigPath); err != nil {
				t.Errorf("config is not written before invocation: %v", err)
			}
		},
	}
	testee := orchestrator.New(log.New(new(bytes.Buffer), "", 0), eng)

	try.To(testee.Run(context.Background(), ps)).OrFatal(t)
	got := try.To(os.ReadFile(ps[0].ConfigPath)).OrFatal(t)
	if !bytes.Equal(got, ps[0].Document) {
		t.Errorf("config:\n%s", got)
	}
	for _, m := range ps[0].Metrics {
		got := try.To(os.ReadFile(m.Path)).OrFatal(t)
		if !bytes.Equal(got, m.Document) {
			t.Errorf("metric config:\n%s", got)
		}
	}

	t.Run("existing configs are kept on rerun", func(t *testing.T) {
		if err := os.WriteFile(ps[0].ConfigPath, []byte("edited"), 0o644); err != nil {
			t.Fatal(err)
		}
		try.To(testee.Run(context.Background(), ps)).OrFatal(t)
		if got := try.To(os.ReadFile(ps[0].ConfigPath)).OrFatal(t); string(got) != "edited" {
			t.Errorf("config is overwritten: %s", got)
		}
		if len(eng.invoked) != 2 {
			t.Errorf("invoked: %d", len(eng.invoked))
		}
	})
}

func TestRun_PersistFailure(t *testing.T) {
	ps := plans(t, "t1", "t2")
	eng := &fakeEngine{}
	testee := orchestrator.New(
		log.New(new(bytes.Buffer), "", 0), eng,
		orchestrator.WithWriter(func(path string, _ []byte) (bool, error) {
			if strings.HasPrefix(path, ps[0].ExperimentDir) {
				return false, errors.New("fake: disk full")
			}
			return true, nil
		}),
	)

	report := try.To(testee.Run(context.Background(), ps)).OrFatal(t)
	if got := statuses(report); !slices.Equal(got, []orchestrator.Status{orchestrator.StatusFailed, orchestrator.StatusDone}) {
		t.Errorf("statuses: %v", got)
	}
	te := new(domain.TaskError)
	if !errors.As(report.Tasks[0].Err, &te) || te.Phase != "persist" {
		t.Errorf("error: %v", report.Tasks[0].Err)
	}
	if len(eng.invoked) != 1 {
		t.Errorf("engine is invoked for the task failed to persist: %d", len(eng.invoked))
	}
}

func TestRun_Cancel(t *testing.T) {
	ps := plans(t, "t1", "t2", "t3")
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	cause := errors.New("fake: interrupted")
	eng := &fakeEngine{
		onRun: func(engine.Invocation) { cancel(cause) },
	}
	testee := orchestrator.New(log.New(new(bytes.Buffer), "", 0), eng)

	report, err := testee.Run(ctx, ps)
	if !errors.Is(err, cause) {
		t.Errorf("unexpected error: %v", err)
	}
	if len(eng.invoked) != 1 {
		t.Errorf("invoked: %d", len(eng.invoked))
	}
	want := []orchestrator.Status{orchestrator.StatusDone, orchestrator.StatusSkipped, orchestrator.StatusSkipped}
	if got := statuses(report); !slices.Equal(got, want) {
		t.Errorf("statuses: want %v, but got %v", want, got)
	}
	if report.Attempted() != 1 {
		t.Errorf("attempted: %d", report.Attempted())
	}
}

func TestRun_Hooks(t *testing.T) {
	t.Run("before-hook failure fails the task without invoking the engine", func(t *testing.T) {
		ps := plans(t, "t1", "t2")
		eng := &fakeEngine{}
		afters := []string{}
		testee := orchestrator.New(
			log.New(new(bytes.Buffer), "", 0), eng,
			orchestrator.WithHook(hook.Func[orchestrator.TaskEvent]{
				BeforeFn: func(_ context.Context, ev orchestrator.TaskEvent) error {
					if ev.Task == "t1" {
						return errors.New("fake: rejected")
					}
					return nil
				},
				AfterFn: func(_ context.Context, ev orchestrator.TaskEvent) error {
					afters = append(afters, ev.Task)
					return nil
				},
			}),
		)

		report := try.To(testee.Run(context.Background(), ps)).OrFatal(t)
		if got := statuses(report); !slices.Equal(got, []orchestrator.Status{orchestrator.StatusFailed, orchestrator.StatusDone}) {
			t.Errorf("statuses: %v", got)
		}
		if !errors.Is(report.Tasks[0].Err, hook.ErrHookFailed) {
			t.Errorf("error: %v", report.Tasks[0].Err)
		}
		if len(eng.invoked) != 1 {
			t.Errorf("invoked: %d", len(eng.invoked))
		}
		if !slices.Equal(afters, []string{"t2"}) {
			t.Errorf("after-hooks: %v", afters)
		}
	})

	t.Run("after-hook failure is only logged", func(t *testing.T) {
		ps := plans(t, "t1")
		logs := new(bytes.Buffer)
		testee := orchestrator.New(
			log.New(logs, "", 0), &fakeEngine{},
			orchestrator.WithHook(hook.Func[orchestrator.TaskEvent]{
				AfterFn: func(context.Context, orchestrator.TaskEvent) error {
					return errors.New("fake: unreachable")
				},
			}),
		)

		report := try.To(testee.Run(context.Background(), ps)).OrFatal(t)
		if report.Tasks[0].Status != orchestrator.StatusDone {
			t.Errorf("status: %s", report.Tasks[0].Status)
		}
		if !strings.Contains(logs.String(), "after-hook failed") {
			t.Errorf("not logged:\n%s", logs.String())
		}
	})

	t.Run("events carry the invocation and the engine error", func(t *testing.T) {
		ps := plans(t, "t1")
		events := []orchestrator.TaskEvent{}
		record := func(_ context.Context, ev orchestrator.TaskEvent) error {
			events = append(events, ev)
			return nil
		}
		testee := orchestrator.New(
			log.New(new(bytes.Buffer), "", 0),
			&fakeEngine{fails: map[string]error{"t1": engine.ErrEngineFailed}},
			orchestrator.WithBatchId("batch-y"),
			orchestrator.WithHook(hook.Func[orchestrator.TaskEvent]{BeforeFn: record, AfterFn: record}),
		)

		try.To(testee.Run(context.Background(), ps)).OrFatal(t)
		if len(events) != 2 {
			t.Fatalf("events: %+v", events)
		}
		before, after := events[0], events[1]
		if before.BatchId != "batch-y" || before.Task != "t1" || before.ExperimentDir != ps[0].ExperimentDir {
			t.Errorf("before: %+v", before)
		}
		if !slices.Equal(before.Args, ps[0].Invocation.Args()) || !slices.Equal(before.Modes, []string{"NEW", "EVAL"}) {
			t.Errorf("before: %+v", before)
		}
		if before.Error != "" {
			t.Errorf("before has error: %s", before.Error)
		}
		if after.Error != engine.ErrEngineFailed.Error() {
			t.Errorf("after: %+v", after)
		}
	})
}

func TestWriteOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.json")

	if written := try.To(orchestrator.WriteOnce(path, []byte("first"))).OrFatal(t); !written {
		t.Errorf("not written at first")
	}
	if written := try.To(orchestrator.WriteOnce(path, []byte("second"))).OrFatal(t); written {
		t.Errorf("written twice")
	}
	if got := try.To(os.ReadFile(path)).OrFatal(t); string(got) != "first" {
		t.Errorf("content: %s", got)
	}
}
