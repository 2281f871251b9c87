package batch_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/opst/alrun/pkg/configs/batch"
	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/active"
	"github.com/opst/alrun/pkg/domain/experiment"
	"github.com/opst/alrun/pkg/domain/learner"
	"github.com/opst/alrun/pkg/domain/metric"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/orchestrator"
	"github.com/opst/alrun/pkg/utils/try"
)

const fullBatch = `
engine: [java, -cp, target/engine.jar, RunExperiment]
root: out
layout: flat
tasks: [sdss_Q1_0.1%, sdss_Q2_0.1%]
modes: [NEW, eval]
numRuns: 2
budget: 25
subsampleSize: 50000
searchUncertainRegionProbability: 0.25
initialSampler: {name: StratifiedSampler, pos: 1, neg: 2}
multiTSM: {featureGroups: [[a, b], [c]], flags: [[true, false], [false, true]], searchUnknownRegionProbability: 0.5}
activeLearner:
  name: UncertaintySampler
  learner:
    name: SubspatialLearner
    subspaceLearners: {name: MajorityVote, sampleSize: 8, kernel: {name: gaussian, gamma: 0.5}}
metrics:
  - {name: ConfusionMatrix, learner: {name: SVM, C: 1e7, kernel: {name: gaussian}}}
  - name: SubspatialConfusionMatrix
    learner:
      name: SubspatialLearner
      subspaceLearners: [SVM, SVM]
taskMetadata:
  categorical: {sdss_Q1_0.1%: [1]}
  partitions:  {sdss_Q1_0.1%: 2}
hooks:
  before: [http://localhost:8080/before]
  after:  [http://localhost:8080/after]
`

func TestParse_FullBatch(t *testing.T) {
	got := try.To(batch.Parse([]byte(fullBatch))).OrFatal(t)

	t.Run("engine is read", func(t *testing.T) {
		want := []string{"java", "-cp", "target/engine.jar", "RunExperiment"}
		if !slices.Equal(got.Engine, want) {
			t.Errorf("engine: want %v, but got %v", want, got.Engine)
		}
	})

	t.Run("batch parameters are read", func(t *testing.T) {
		b := got.Batch
		if b.Root != "out" {
			t.Errorf("root: %s", b.Root)
		}
		if b.Layout != orchestrator.LayoutFlat {
			t.Errorf("layout: %s", b.Layout)
		}
		if !slices.Equal(b.Tasks, []string{"sdss_Q1_0.1%", "sdss_Q2_0.1%"}) {
			t.Errorf("tasks: %v", b.Tasks)
		}
		if !slices.Equal(b.Modes, domain.Modes{domain.New, domain.Eval}) {
			t.Errorf("modes: %v", b.Modes)
		}
		if b.NumRuns != 2 || b.Budget != 25 {
			t.Errorf("numRuns, budget: %d, %d", b.NumRuns, b.Budget)
		}
		if len(b.Metrics) != 2 {
			t.Errorf("metrics: %v", b.Metrics)
		}
	})

	t.Run("experiment is built from nodes in the file", func(t *testing.T) {
		mv := try.To(learner.NewMajorityVote(
			8,
			try.To(learner.NewVersionSpace(
				try.To(learner.NewHitAndRun(
					try.To(learner.NewSampleSelector("single", 100, 10, 64)).OrFatal(t),
				)).OrFatal(t),
				try.To(learner.NewKernel("gaussian", 0.5)).OrFatal(t),
			)).OrFatal(t),
		)).OrFatal(t)
		al := try.To(active.NewUncertaintySampler(
			try.To(learner.NewSubspatialLearner([]learner.Learner{mv})).OrFatal(t),
		)).OrFatal(t)
		want := try.To(experiment.New(
			"sdss_Q1_0.1%", al,
			experiment.WithSubsampleSize(50000),
			experiment.WithSearchUncertainRegionProbability(0.25),
			experiment.WithInitialSampler(
				try.To(experiment.NewStratifiedSampler(1, 2, false)).OrFatal(t),
			),
			experiment.WithMultiTSM(try.To(experiment.NewMultipleTSM(
				[][]string{{"a", "b"}, {"c"}}, []bool{true, false}, []bool{false, true}, 0.5,
			)).OrFatal(t)),
		)).OrFatal(t)

		if !node.Equal(got.Batch.Experiment, want) {
			t.Errorf(
				"experiment:\n===want===\n%s\n===got===\n%s",
				try.To(node.Document(want)).OrFatal(t),
				try.To(node.Document(got.Batch.Experiment)).OrFatal(t),
			)
		}
	})

	t.Run("task metadata is read", func(t *testing.T) {
		f := got.Batch.Metadata.Factorization("sdss_Q1_0.1%")
		if f.Repeat != 2 || !slices.Equal(f.Categorical, []int{1}) {
			t.Errorf("factorization: %+v", f)
		}
		g := got.Batch.Metadata.Factorization("sdss_Q2_0.1%")
		if g.Repeat != 1 || len(g.Categorical) != 0 {
			t.Errorf("factorization of unknown task: %+v", g)
		}
	})

	t.Run("hooks are read", func(t *testing.T) {
		h := got.Hooks
		if len(h.Before) != 1 || h.Before[0].String() != "http://localhost:8080/before" {
			t.Errorf("before: %v", h.Before)
		}
		if len(h.After) != 1 || h.After[0].String() != "http://localhost:8080/after" {
			t.Errorf("after: %v", h.After)
		}
	})

	t.Run("the batch can be planned", func(t *testing.T) {
		plans := try.To(got.Batch.Plan()).OrFatal(t)
		if len(plans) != 2 {
			t.Fatalf("plans: %d", len(plans))
		}
		if len(plans[0].Metrics) != 2 {
			t.Errorf("metrics are planned: %d", len(plans[0].Metrics))
		}
	})
}

func TestParse_Defaults(t *testing.T) {
	got := try.To(batch.Parse([]byte(`
engine: engine.sh --verbose
tasks: [t1]
modes: [NEW]
budget: 10
activeLearner: SimpleMargin
`))).OrFatal(t)

	if !slices.Equal(got.Engine, []string{"engine.sh", "--verbose"}) {
		t.Errorf("engine: %v", got.Engine)
	}
	if got.Batch.Root != batch.DefaultRoot {
		t.Errorf("root: %s", got.Batch.Root)
	}
	if got.Batch.Layout != orchestrator.LayoutRuns {
		t.Errorf("layout: %s", got.Batch.Layout)
	}
	if got.Batch.NumRuns != 1 {
		t.Errorf("numRuns: %d", got.Batch.NumRuns)
	}
	if !got.Hooks.IsEmpty() {
		t.Errorf("hooks: %v", got.Hooks)
	}

	svm := try.To(learner.NewSVM(1, try.To(learner.NewKernel("gaussian", 0)).OrFatal(t))).OrFatal(t)
	want := try.To(active.NewSimpleMargin(svm)).OrFatal(t)
	if !node.Equal(got.Batch.Experiment.ActiveLearner(), want) {
		t.Errorf("active learner: %s", try.To(node.Document(got.Batch.Experiment.ActiveLearner())).OrFatal(t))
	}
}

func TestParse_NodeForms(t *testing.T) {
	got := try.To(batch.Parse([]byte(`
engine: [engine]
tasks: [t1]
modes: [NEW, EVAL]
budget: 10
initialSampler: ~
multiTSM:
activeLearner:
  name: SubspatialSampler
  learners: [SVM, {name: SVM, kernel: linear}]
  lossFunctionId: L2
metrics:
  - name: ConfusionMatrix
    learner: &knn {name: KNN, k: 3}
  - name: ThreeSetMetric
    learner: *knn
`))).OrFatal(t)

	t.Run("null and empty values are absent", func(t *testing.T) {
		doc := string(try.To(node.Document(got.Batch.Experiment)).OrFatal(t))
		for _, key := range []string{`"initialSampler"`, `"multiTSM"`} {
			if strings.Contains(doc, key) {
				t.Errorf("%s is in the document:\n%s", key, doc)
			}
		}
	})

	t.Run("sequence of names and mappings is decoded as learners", func(t *testing.T) {
		gaussian := try.To(learner.NewSVM(1, try.To(learner.NewKernel("gaussian", 0)).OrFatal(t))).OrFatal(t)
		linear := try.To(learner.NewSVM(1, learner.LinearKernel())).OrFatal(t)
		want := try.To(active.NewSubspatialSampler([]learner.Learner{gaussian, linear}, "L2", 0)).OrFatal(t)
		if !node.Equal(got.Batch.Experiment.ActiveLearner(), want) {
			t.Errorf("active learner: %s", try.To(node.Document(got.Batch.Experiment.ActiveLearner())).OrFatal(t))
		}
	})

	t.Run("aliased learner is decoded as the anchored one", func(t *testing.T) {
		knn := try.To(learner.NewKNN(3, 0)).OrFatal(t)
		want := []*metric.Metric{
			try.To(metric.New(metric.KindConfusionMatrix, knn)).OrFatal(t),
			try.To(metric.New(metric.KindThreeSetMetric, knn)).OrFatal(t),
		}
		if len(got.Batch.Metrics) != len(want) {
			t.Fatalf("metrics: %v", got.Batch.Metrics)
		}
		for i := range want {
			if !node.Equal(got.Batch.Metrics[i], want[i]) {
				t.Errorf("metrics[%d]: %s", i, try.To(node.Document(got.Batch.Metrics[i])).OrFatal(t))
			}
		}
	})
}

func TestParse_Engine(t *testing.T) {
	const noEngine = `
tasks: [t1]
modes: [NEW]
budget: 10
activeLearner: RandomSampler
`

	t.Run("when engine is not in the file, environment variable is used", func(t *testing.T) {
		t.Setenv(batch.EnvEngine, "java  -jar engine.jar")
		got := try.To(batch.Parse([]byte(noEngine))).OrFatal(t)
		if !slices.Equal(got.Engine, []string{"java", "-jar", "engine.jar"}) {
			t.Errorf("engine: %v", got.Engine)
		}
	})

	t.Run("when engine is not given anywhere, it is an error", func(t *testing.T) {
		t.Setenv(batch.EnvEngine, "")
		_, err := batch.Parse([]byte(noEngine))
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestParse_Errors(t *testing.T) {
	type When struct {
		content string
	}
	type Then struct {
		err   error
		field string
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			_, err := batch.Parse([]byte("engine: [engine]\n" + when.content))
			if !errors.Is(err, then.err) {
				t.Fatalf("want %v, but got %v", then.err, err)
			}
			if !domain.IsBatchFatal(err) {
				t.Errorf("error should be batch fatal: %v", err)
			}
			var ce *domain.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error is not ConfigError: %v", err)
			}
			if ce.Field != then.field {
				t.Errorf("field: want %s, but got %s", then.field, ce.Field)
			}
		}
	}

	const head = "tasks: [t1]\nmodes: [NEW, EVAL]\nbudget: 10\n"

	t.Run("unknown key in the batch is rejected", theory(
		When{content: head + "activeLearner: RandomSampler\nbugdet: 3\n"},
		Then{err: domain.ErrUnsupportedValue, field: "bugdet"},
	))

	t.Run("unknown key in a node is rejected", theory(
		When{content: head + "activeLearner: {name: SimpleMargin, c: 1}\n"},
		Then{err: domain.ErrUnsupportedValue, field: "activeLearner.c"},
	))

	t.Run("unknown active learner is rejected", theory(
		When{content: head + "activeLearner: Oracle\n"},
		Then{err: domain.ErrUnsupportedValue, field: "activeLearner.name"},
	))

	t.Run("missing active learner is rejected", theory(
		When{content: head},
		Then{err: domain.ErrOutOfRange, field: "activeLearner"},
	))

	t.Run("unknown mode is rejected", theory(
		When{content: "tasks: [t1]\nmodes: [TRAIN]\nbudget: 1\nactiveLearner: RandomSampler\n"},
		Then{err: domain.ErrUnsupportedValue, field: "mode"},
	))

	t.Run("SVM with C = 0 in a metric is rejected", theory(
		When{content: head + "activeLearner: RandomSampler\nmetrics: [{name: ConfusionMatrix, learner: {name: SVM, C: 0}}]\n"},
		Then{err: domain.ErrOutOfRange, field: "metrics[0].learner.C"},
	))

	t.Run("KNN with gamma = 1.5 is rejected", theory(
		When{content: head + "activeLearner: {name: UncertaintySampler, learner: {name: KNN, gamma: 1.5}}\n"},
		Then{err: domain.ErrOutOfRange, field: "activeLearner.learner.gamma"},
	))

	t.Run("diagonal kernel with a negative entry is rejected", theory(
		When{content: head + "activeLearner: {name: SimpleMargin, kernel: {name: diagonal, diagonal: [1, -1]}}\n"},
		Then{err: domain.ErrOutOfRange, field: "activeLearner.kernel.diagonal[1]"},
	))

	t.Run("jitter without decomposition is rejected", theory(
		When{content: head + "activeLearner: {name: UncertaintySampler, learner: {name: MajorityVote, jitter: 1e-10}}\n"},
		Then{err: domain.ErrIncompatibleFlags, field: "activeLearner.learner.jitter"},
	))

	t.Run("jitter with decomposition is accepted", func(t *testing.T) {
		try.To(batch.Parse([]byte(
			"engine: [engine]\n" + head +
				"activeLearner: {name: UncertaintySampler, learner: {name: MajorityVote, decompose: true, jitter: 1e-10}}\n",
		))).OrFatal(t)
	})

	t.Run("flags of multiTSM which are not pairs are rejected", theory(
		When{content: head + "activeLearner: RandomSampler\nmultiTSM: {featureGroups: [[a]], flags: [[true]]}\n"},
		Then{err: domain.ErrLengthMismatch, field: "multiTSM.flags[0]"},
	))

	t.Run("MARGIN loss with non SVM learners is rejected", theory(
		When{content: head + "activeLearner: {name: SubspatialSampler, learners: MajorityVote, lossFunctionId: MARGIN}\n"},
		Then{err: domain.ErrIncompatibleFlags, field: "activeLearner.learners"},
	))

	t.Run("categorical index out of partitions is rejected", theory(
		When{content: head + "activeLearner: RandomSampler\ntaskMetadata: {categorical: {t1: [2]}, partitions: {t1: 2}}\n"},
		Then{err: domain.ErrOutOfRange, field: "taskMetadata.categorical.t1.categorical[0]"},
	))

	t.Run("non positive partitions are rejected", theory(
		When{content: head + "activeLearner: RandomSampler\ntaskMetadata: {partitions: {t1: 0}}\n"},
		Then{err: domain.ErrOutOfRange, field: "taskMetadata.partitions.t1"},
	))

	t.Run("relative hook URL is rejected", theory(
		When{content: head + "activeLearner: RandomSampler\nhooks: {before: [/before]}\n"},
		Then{err: domain.ErrUnsupportedValue, field: "hooks.before[0]"},
	))
}

func TestLoad(t *testing.T) {
	t.Run("it reads a batch file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "batch.yaml")
		if err := os.WriteFile(file, []byte(fullBatch), 0644); err != nil {
			t.Fatal(err)
		}
		got := try.To(batch.Load(file)).OrFatal(t)
		if len(got.Batch.Metrics) != 2 {
			t.Errorf("metrics: %v", got.Batch.Metrics)
		}
		if got.Batch.Metrics[1].Kind() != metric.KindSubspatialConfusionMatrix {
			t.Errorf("metrics[1]: %s", got.Batch.Metrics[1].Kind())
		}
	})

	t.Run("it returns error for a missing file", func(t *testing.T) {
		_, err := batch.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it rejects an empty file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "batch.yaml")
		if err := os.WriteFile(file, []byte(""), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := batch.Load(file)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
