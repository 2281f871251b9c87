// Package experiment defines Experiment, the aggregate which is persisted as config.json of an experiment directory.
package experiment

import (
	"fmt"
	"strings"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/active"
	"github.com/opst/alrun/pkg/domain/learner"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
)

// separator of folder identity components
const FolderSeparator = "_"

// Experiment is an active learning session design over a task.
type Experiment struct {
	task                             string
	activeLearner                    active.ActiveLearner
	subsampleSize                    int
	multiTSM                         *MultipleTSM
	initialSampler                   InitialSampler
	searchUncertainRegionProbability float64

	// factorization bound to the active learner, if any.
	factorization learner.Factorization
}

var _ node.Node = &Experiment{}

type Option func(*Experiment) *Experiment

// size of random, unlabeled subsample. 0 means no subsampling (default).
func WithSubsampleSize(size int) Option {
	return func(e *Experiment) *Experiment {
		e.subsampleSize = size
		return e
	}
}

func WithMultiTSM(m *MultipleTSM) Option {
	return func(e *Experiment) *Experiment {
		e.multiTSM = m
		return e
	}
}

// initial sampler. When not set, the engine uses StratifiedSampler(pos=1, neg=1).
func WithInitialSampler(s InitialSampler) Option {
	return func(e *Experiment) *Experiment {
		e.initialSampler = s
		return e
	}
}

// default: 0
func WithSearchUncertainRegionProbability(p float64) Option {
	return func(e *Experiment) *Experiment {
		e.searchUncertainRegionProbability = p
		return e
	}
}

// New creates Experiment over task.
//
// task is a directory name in the experiment tree, so it should not contain path separators.
func New(task string, al active.ActiveLearner, options ...Option) (*Experiment, error) {
	if err := validate.PathName("task", task); err != nil {
		return nil, err
	}
	if al == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "activeLearner", nil, "required")
	}
	e := &Experiment{task: task, activeLearner: al}
	for _, opt := range options {
		e = opt(e)
	}
	if err := validate.First(
		validate.NonNegative("subsampleSize", e.subsampleSize),
		validate.Probability("searchUncertainRegionProbability", e.searchUncertainRegionProbability),
	); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) Task() string {
	return e.task
}

func (e *Experiment) ActiveLearner() active.ActiveLearner {
	return e.activeLearner
}

// UseFactorizationInformation tells the active learner works on factorized feature space.
func (e *Experiment) UseFactorizationInformation() bool {
	return e.activeLearner.IsFactorized()
}

// WithTask returns a copy of e for another task.
//
// Factorization bound to e is dropped.
func (e *Experiment) WithTask(task string) (*Experiment, error) {
	if err := validate.PathName("task", task); err != nil {
		return nil, err
	}
	c := *e
	c.task = task
	c.factorization = learner.Factorization{}
	return &c, nil
}

// WithFactorization returns a copy of e which f is bound to.
//
// When the active learner is not factorized, f is ignored.
func (e *Experiment) WithFactorization(f learner.Factorization) (*Experiment, error) {
	if !e.activeLearner.IsFactorized() {
		return e, nil
	}
	al, err := e.activeLearner.WithFactorization(f)
	if err != nil {
		return nil, domain.Within("activeLearner", err)
	}
	c := *e
	c.activeLearner = al
	c.factorization = f
	return &c, nil
}

// Folder is the identity of the folder which groups experiments of the same kind of active learner.
//
// It is the name of the active learner, followed by subsample size, MultipleTSM, initial sampler
// and categorical usage, when they are set.
func (e *Experiment) Folder() string {
	parts := []string{e.activeLearner.Name()}
	if 0 < e.subsampleSize {
		parts = append(parts, fmt.Sprintf("subsample=%d", e.subsampleSize))
	}
	if e.multiTSM != nil {
		parts = append(parts, node.Label(e.multiTSM))
	}
	if e.initialSampler != nil {
		parts = append(parts, node.Label(e.initialSampler))
	}
	if 0 < len(e.factorization.Categorical) {
		parts = append(parts, "categorical")
	}
	return strings.Join(parts, FolderSeparator)
}

// Name is not written to the document. Experiment is the root object.
func (*Experiment) Name() string {
	return "Experiment"
}

func (*Experiment) Named() bool {
	return false
}

func (e *Experiment) Fields() []node.Field {
	fields := []node.Field{
		node.Set("task", e.task),
		node.Set("activeLearner", e.activeLearner),
	}
	if 0 < e.subsampleSize {
		fields = append(fields, node.Set("subsampleSize", e.subsampleSize))
	}
	if e.multiTSM != nil {
		fields = append(fields, node.Set("multiTSM", e.multiTSM))
	}
	if e.initialSampler != nil {
		fields = append(fields, node.Set("initialSampler", e.initialSampler))
	}
	return append(
		fields,
		node.Set("searchUncertainRegionProbability", e.searchUncertainRegionProbability),
		node.Set("useFactorizationInformation", e.UseFactorizationInformation()),
	)
}
