package learner

import (
	"fmt"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
)

// Factorization is per-task structure of feature space: how many subspaces (partitions) it has,
// and which of them are categorical.
//
// It is bound to factorized learners just before they are canonicalized.
type Factorization struct {
	// Repeat is the number of partitions. 0 means "not bound".
	Repeat int

	// Categorical is indices of categorical partitions.
	Categorical []int
}

// Validate checks f for a factorized learner having count subspace learners.
//
// When the learners are uniform, they are repeated Repeat times by the engine.
// Otherwise, there should be exactly Repeat learners.
func (f Factorization) Validate(count int, uniform bool) error {
	if f.Repeat == 0 {
		if len(f.Categorical) != 0 {
			return domain.NewConfigError(
				domain.ErrLengthMismatch, "categorical", f.Categorical, "requires repeat",
			)
		}
		return nil
	}

	if err := validate.Positive("repeat", f.Repeat); err != nil {
		return err
	}
	if !uniform && count != f.Repeat {
		return domain.NewConfigError(
			domain.ErrLengthMismatch, "repeat", f.Repeat,
			fmt.Sprintf("there are %d different subspace learners", count),
		)
	}

	seen := map[int]struct{}{}
	for i, c := range f.Categorical {
		if err := validate.InRange(fmt.Sprintf("categorical[%d]", i), c, 0, f.Repeat-1); err != nil {
			return err
		}
		if _, ok := seen[c]; ok {
			return domain.NewConfigError(
				domain.ErrOutOfRange, fmt.Sprintf("categorical[%d]", i), c, "duplicated",
			)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// fields of factorization, for factorized learner which has count subspace learners.
//
// When learners are uniform and repeat is not bound, repeat is the count,
// so that the engine can restore the learners from a collapsed document.
func (f Factorization) fields(count int, uniform bool) []node.Field {
	repeat := f.Repeat
	if repeat == 0 && uniform {
		repeat = count
	}
	fields := []node.Field{}
	if 0 < repeat {
		fields = append(fields, node.Meta("repeat", repeat))
	}
	if 0 < len(f.Categorical) {
		fields = append(fields, node.Meta("categorical", node.SeqOf(f.Categorical)))
	}
	return fields
}

func (f Factorization) clone() Factorization {
	ret := Factorization{Repeat: f.Repeat}
	if f.Categorical != nil {
		ret.Categorical = append([]int{}, f.Categorical...)
	}
	return ret
}

// Subspaces is a sequence of learners for each subspaces.
type Subspaces []Learner

// NewSubspaces validates learners to be used in subspaces.
//
// field is used in error message.
func NewSubspaces(field string, learners ...Learner) (Subspaces, error) {
	if len(learners) == 0 {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, field, nil, "at least one learner is required")
	}
	for i, l := range learners {
		f := fmt.Sprintf("%s[%d]", field, i)
		if l == nil {
			return nil, domain.NewConfigError(domain.ErrOutOfRange, f, nil, "required")
		}
		if IsFactorized(l) {
			return nil, domain.NewConfigError(
				domain.ErrUnsupportedValue, f, l.Name(), "subspatial learner cannot be nested",
			)
		}
	}
	return append(Subspaces{}, learners...), nil
}

// Uniform tells all learners are equal.
func (s Subspaces) Uniform() bool {
	return node.Uniform(node.SeqOf(s))
}

// All tells all learners are of the kind.
func (s Subspaces) All(k Kind) bool {
	for _, l := range s {
		if l.Kind() != k {
			return false
		}
	}
	return true
}

// Field renders learners as collapsible field.
func (s Subspaces) Field(key string) node.Field {
	return node.Field{Key: key, Value: node.SeqOf(s), Collapse: true}
}

// FactorizedFields is fields of factorization for these learners.
func (s Subspaces) FactorizedFields(f Factorization) []node.Field {
	return f.fields(len(s), s.Uniform())
}

// Bind validates f for these learners and returns its copy.
func (s Subspaces) Bind(f Factorization) (Factorization, error) {
	if err := f.Validate(len(s), s.Uniform()); err != nil {
		return Factorization{}, err
	}
	return f.clone(), nil
}

// SubspatialLearner is a classifier factorized into subspaces.
type SubspatialLearner struct {
	learners      Subspaces
	numThreads    int
	factorization Factorization
}

var _ Learner = &SubspatialLearner{}

type SubspatialLearnerOption func(*SubspatialLearner) *SubspatialLearner

// number of threads the engine uses for subspaces. 0 means engine's default.
func WithNumThreads(n int) SubspatialLearnerOption {
	return func(s *SubspatialLearner) *SubspatialLearner {
		s.numThreads = n
		return s
	}
}

// NewSubspatialLearner creates subspatial learner.
//
// learners can be one learner (used for all subspaces) or one learner per subspace.
func NewSubspatialLearner(learners []Learner, options ...SubspatialLearnerOption) (*SubspatialLearner, error) {
	ls, err := NewSubspaces("subspaceLearners", learners...)
	if err != nil {
		return nil, err
	}
	s := &SubspatialLearner{learners: ls}
	for _, opt := range options {
		s = opt(s)
	}
	if err := validate.NonNegative("numThreads", s.numThreads); err != nil {
		return nil, err
	}
	return s, nil
}

func (*SubspatialLearner) learner() {}

func (*SubspatialLearner) Kind() Kind {
	return KindSubspatialLearner
}

func (*SubspatialLearner) Name() string {
	return string(KindSubspatialLearner)
}

func (*SubspatialLearner) Named() bool {
	return true
}

func (s *SubspatialLearner) Learners() Subspaces {
	return append(Subspaces{}, s.learners...)
}

func (s *SubspatialLearner) Factorization() Factorization {
	return s.factorization.clone()
}

// WithFactorization returns a copy of s which f is bound to.
func (s *SubspatialLearner) WithFactorization(f Factorization) (*SubspatialLearner, error) {
	bound, err := s.learners.Bind(f)
	if err != nil {
		return nil, domain.Within("subspatialLearner", err)
	}
	return &SubspatialLearner{
		learners:      s.learners,
		numThreads:    s.numThreads,
		factorization: bound,
	}, nil
}

func (s *SubspatialLearner) Fields() []node.Field {
	fields := []node.Field{s.learners.Field("subspaceLearners")}
	if 0 < s.numThreads {
		fields = append(fields, node.Set("numThreads", s.numThreads))
	}
	return append(fields, s.learners.FactorizedFields(s.factorization)...)
}
