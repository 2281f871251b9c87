package plan_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/opst/alrun/cmd/alrun/subcommands/internal/commandline"
	"github.com/opst/alrun/cmd/alrun/subcommands/logger"
	"github.com/opst/alrun/cmd/alrun/subcommands/plan"
	"github.com/opst/alrun/pkg/configs/batch"
	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/utils/try"
	"gopkg.in/yaml.v3"
)

const content = `
engine: [engine]
root: exp
tasks: [t1, t2]
modes: [RESUME, EVAL]
numRuns: 2
budget: 5
activeLearner: RandomSampler
metrics: [{name: ConfusionMatrix, learner: {name: KNN, k: 3}}]
`

func TestPlanCommand(t *testing.T) {
	type When struct {
		flag plan.Flag
	}
	type Then struct {
		documents bool
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			conf := try.To(batch.Parse([]byte(content))).OrFatal(t)

			stdout := new(bytes.Buffer)
			err := plan.Task(
				context.Background(), logger.Null(), "batch.yaml", conf,
				&commandline.MockCommandline[plan.Flag]{
					Fullname_: "alrun plan",
					Stdout_:   stdout,
					Stderr_:   io.Discard,
					Flags_:    when.flag,
				},
				nil,
			)
			if err != nil {
				t.Fatal(err)
			}

			got := []plan.Summary{}
			if err := yaml.Unmarshal(stdout.Bytes(), &got); err != nil {
				t.Fatalf("output is not YAML: %v\n%s", err, stdout.String())
			}
			if len(got) != 2 {
				t.Fatalf("summaries: %+v", got)
			}

			for i, task := range []string{"t1", "t2"} {
				s := got[i]
				if s.Task != task {
					t.Errorf("task: want %s, but got %s", task, s.Task)
				}
				if !strings.HasPrefix(s.ExperimentDir, "exp/"+task+"/RandomSampler") {
					t.Errorf("experimentDir: %s", s.ExperimentDir)
				}
				if !strings.HasPrefix(s.CommandLine, "engine --experiment_dir ") ||
					!strings.Contains(s.CommandLine, "--mode RESUME EVAL") ||
					!strings.Contains(s.CommandLine, "--runs 1 2") ||
					!strings.Contains(s.CommandLine, "--metrics ") {
					t.Errorf("commandLine: %s", s.CommandLine)
				}
				if len(s.Metrics) != 1 {
					t.Fatalf("metrics: %+v", s.Metrics)
				}
				if (s.Document != "") != then.documents || (s.Metrics[0].Document != "") != then.documents {
					t.Errorf("documents are unexpected: %+v", s)
				}
			}
		}
	}

	t.Run("it prints what the batch would do", theory(
		When{flag: plan.Flag{}},
		Then{documents: false},
	))

	t.Run("with --documents, it prints config documents too", theory(
		When{flag: plan.Flag{Documents: true}},
		Then{documents: true},
	))
}

func TestPlanCommand_WritesNothing(t *testing.T) {
	conf := try.To(batch.Parse([]byte(content))).OrFatal(t)
	conf.Batch.Root = t.TempDir() + "/exp"

	if err := plan.Task(
		context.Background(), logger.Null(), "batch.yaml", conf,
		&commandline.MockCommandline[plan.Flag]{Stdout_: io.Discard, Stderr_: io.Discard},
		nil,
	); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(conf.Batch.Root); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("something is written: %v", err)
	}
}

func TestPlanCommand_InvalidBatch(t *testing.T) {
	conf := try.To(batch.Parse([]byte(content))).OrFatal(t)
	conf.Batch.NumRuns = 0

	err := plan.Task(
		context.Background(), logger.Null(), "batch.yaml", conf,
		&commandline.MockCommandline[plan.Flag]{Stdout_: io.Discard, Stderr_: io.Discard},
		nil,
	)
	if !domain.IsBatchFatal(err) {
		t.Errorf("unexpected error: %v", err)
	}
}
