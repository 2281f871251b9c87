package experiment_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/active"
	"github.com/opst/alrun/pkg/domain/experiment"
	"github.com/opst/alrun/pkg/domain/learner"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/utils/try"
)

func uncertainty(t *testing.T) active.ActiveLearner {
	t.Helper()
	svm := try.To(learner.NewSVM(1024, nil)).OrFatal(t)
	return try.To(active.NewUncertaintySampler(svm)).OrFatal(t)
}

func subspatial(t *testing.T) active.ActiveLearner {
	t.Helper()
	knn := try.To(learner.NewKNN(3, 0)).OrFatal(t)
	return try.To(active.NewSubspatialSampler([]learner.Learner{knn}, "GREEDY", 0)).OrFatal(t)
}

func TestNew(t *testing.T) {
	t.Run("empty task is out of range", func(t *testing.T) {
		if _, err := experiment.New(" ", uncertainty(t)); !errors.Is(err, domain.ErrOutOfRange) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	for _, task := range []string{"..", "a/b", "../../etc", `a\b`} {
		t.Run("task "+task+" is rejected as a directory name", func(t *testing.T) {
			_, err := experiment.New(task, uncertainty(t))
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("unexpected error: %v", err)
			}
			e := try.To(experiment.New("t1", uncertainty(t))).OrFatal(t)
			if _, err := e.WithTask(task); !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("WithTask: unexpected error: %v", err)
			}
		})
	}

	t.Run("probability over 1 is out of range", func(t *testing.T) {
		_, err := experiment.New(
			"t1", uncertainty(t), experiment.WithSearchUncertainRegionProbability(1.5),
		)
		if !errors.Is(err, domain.ErrOutOfRange) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("document has fixed fields and optional ones only when they are set", func(t *testing.T) {
		e := try.To(experiment.New("sdss_Q1_0.1%", uncertainty(t))).OrFatal(t)
		got := string(try.To(node.Document(e)).OrFatal(t))
		want := `{
    "activeLearner": {
        "learner": {
            "C": 1024,
            "kernel": {
                "name": "linear"
            },
            "name": "SVM"
        },
        "name": "UncertaintySampler"
    },
    "searchUncertainRegionProbability": 0,
    "task": "sdss_Q1_0.1%",
    "useFactorizationInformation": false
}
`
		if got != want {
			t.Errorf("===want===\n%s\n===got===\n%s", want, got)
		}
	})
}

func TestFolder(t *testing.T) {
	type When struct {
		activeLearner func(*testing.T) active.ActiveLearner
		options       func(*testing.T) []experiment.Option
		factorization learner.Factorization
	}

	theory := func(when When, then string) func(*testing.T) {
		return func(t *testing.T) {
			options := []experiment.Option{}
			if when.options != nil {
				options = when.options(t)
			}
			e := try.To(experiment.New("t1", when.activeLearner(t), options...)).OrFatal(t)
			e = try.To(e.WithFactorization(when.factorization)).OrFatal(t)
			if got := e.Folder(); got != then {
				t.Errorf("want %q, but got %q", then, got)
			}
		}
	}

	t.Run("folder is the name of active learner", theory(
		When{activeLearner: uncertainty},
		"UncertaintySampler",
	))

	t.Run("subsample size and initial sampler are appended", theory(
		When{
			activeLearner: uncertainty,
			options: func(t *testing.T) []experiment.Option {
				s := try.To(experiment.NewStratifiedSampler(1, 2, false)).OrFatal(t)
				return []experiment.Option{
					experiment.WithSubsampleSize(100),
					experiment.WithInitialSampler(s),
				}
			},
		},
		"UncertaintySampler_subsample=100_StratifiedSampler pos=1 neg=2",
	))

	t.Run("categorical partitions are marked", theory(
		When{
			activeLearner: subspatial,
			factorization: learner.Factorization{Repeat: 2, Categorical: []int{1}},
		},
		"SubspatialSampler_categorical",
	))

	t.Run("categorical of non-factorized learner is ignored", theory(
		When{
			activeLearner: uncertainty,
			factorization: learner.Factorization{Repeat: 2, Categorical: []int{1}},
		},
		"UncertaintySampler",
	))
}

func TestWithFactorization(t *testing.T) {
	e := try.To(experiment.New("t1", subspatial(t))).OrFatal(t)
	if !e.UseFactorizationInformation() {
		t.Fatal("should use factorization information")
	}

	bound := try.To(e.WithFactorization(learner.Factorization{Repeat: 3})).OrFatal(t)
	doc := string(try.To(node.Document(bound)).OrFatal(t))
	if !strings.Contains(doc, `"repeat": 3`) || !strings.Contains(doc, `"useFactorizationInformation": true`) {
		t.Errorf("document:\n%s", doc)
	}

	_, err := e.WithFactorization(learner.Factorization{Repeat: 3, Categorical: []int{3}})
	ce := new(domain.ConfigError)
	if !errors.As(err, &ce) {
		t.Fatalf("unexpected error: %v", err)
	}
	if ce.Field != "activeLearner.categorical[0]" {
		t.Errorf("field: %s", ce.Field)
	}

	other := try.To(bound.WithTask("t2")).OrFatal(t)
	if other.Task() != "t2" || other.Folder() != "SubspatialSampler" {
		t.Errorf("task copy: %s, %s", other.Task(), other.Folder())
	}
	if bound.Task() != "t1" {
		t.Errorf("original is modified")
	}
}

func TestNewMultipleTSM(t *testing.T) {
	t.Run("aligned sequences are accepted", func(t *testing.T) {
		m := try.To(experiment.NewMultipleTSM(
			[][]string{{"ra", "dec"}, {"rowc"}},
			[]bool{true, false},
			[]bool{false, false},
			0.5,
		)).OrFatal(t)
		if m.FeatureGroups() != 2 {
			t.Errorf("feature groups: %d", m.FeatureGroups())
		}
		want := "hasTsm=true searchUnknownRegionProbability=0.5 featureGroups=(ra,dec),(rowc) flags=(true,false),(false,false)"
		if got := node.Identity(m); got != want {
			t.Errorf("identity: %s", got)
		}
	})

	t.Run("misaligned sequences are length mismatch", func(t *testing.T) {
		_, err := experiment.NewMultipleTSM(
			[][]string{{"ra"}, {"dec"}},
			[]bool{true},
			[]bool{false, false},
			0,
		)
		if !errors.Is(err, domain.ErrLengthMismatch) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("empty feature group is out of range", func(t *testing.T) {
		_, err := experiment.NewMultipleTSM([][]string{{}}, []bool{true}, []bool{false}, 0)
		if !errors.Is(err, domain.ErrOutOfRange) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("feature name with a path separator is rejected", func(t *testing.T) {
		_, err := experiment.NewMultipleTSM([][]string{{"ra", "x/../y"}}, []bool{true}, []bool{false}, 0)
		if !errors.Is(err, domain.ErrUnsupportedValue) {
			t.Fatalf("unexpected error: %v", err)
		}
		ce := new(domain.ConfigError)
		if !errors.As(err, &ce) || ce.Field != "featureGroups[0][1]" {
			t.Errorf("field: %v", err)
		}
	})

	t.Run("no feature groups is accepted", func(t *testing.T) {
		m := try.To(experiment.NewMultipleTSM(nil, nil, nil, 0)).OrFatal(t)
		if got := node.Identity(m); got != "hasTsm=true searchUnknownRegionProbability=0" {
			t.Errorf("identity: %s", got)
		}
	})
}

func TestInitialSamplers(t *testing.T) {
	if _, err := experiment.NewStratifiedSampler(0, 1, false); !errors.Is(err, domain.ErrOutOfRange) {
		t.Errorf("pos = 0: %v", err)
	}
	if _, err := experiment.NewFixedSampler(1); !errors.Is(err, domain.ErrOutOfRange) {
		t.Errorf("no negIds: %v", err)
	}
	f := try.To(experiment.NewFixedSampler(7, 1, 2)).OrFatal(t)
	if got := node.Label(f); got != "FixedSampler posId=7 negIds=1,2" {
		t.Errorf("label: %s", got)
	}
}
