// Package active defines active learning strategies, which choose the next point to be labeled.
package active

import (
	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/learner"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Kind is the tag of ActiveLearner variants.
type Kind string

const (
	KindRandomSampler       Kind = "RandomSampler"
	KindSimpleMargin        Kind = "SimpleMargin"
	KindUncertaintySampler  Kind = "UncertaintySampler"
	KindActiveTreeSearch    Kind = "ActiveTreeSearch"
	KindSubspatialSampler   Kind = "SubspatialSampler"
	KindQueryByDisagreement Kind = "QueryByDisagreement"
)

// ActiveLearner is a strategy of active learning.
//
// Variants are closed in this package. Dispatch them with Kind().
type ActiveLearner interface {
	node.Node

	Kind() Kind

	// IsFactorized tells the strategy works on factorized feature space.
	IsFactorized() bool

	// WithFactorization returns a copy which f is bound to.
	//
	// Non-factorized strategies return themselves.
	WithFactorization(f learner.Factorization) (ActiveLearner, error)

	activeLearner()
}

type RandomSampler struct{}

var _ ActiveLearner = RandomSampler{}

func NewRandomSampler() RandomSampler {
	return RandomSampler{}
}

func (RandomSampler) activeLearner() {}

func (RandomSampler) Kind() Kind {
	return KindRandomSampler
}

func (RandomSampler) Name() string {
	return string(KindRandomSampler)
}

func (RandomSampler) Named() bool {
	return true
}

func (RandomSampler) Fields() []node.Field {
	return nil
}

func (RandomSampler) IsFactorized() bool {
	return false
}

func (r RandomSampler) WithFactorization(learner.Factorization) (ActiveLearner, error) {
	return r, nil
}

// SimpleMargin queries the point closest to the SVM boundary.
type SimpleMargin struct {
	svm *learner.SVM
}

var _ ActiveLearner = &SimpleMargin{}

func NewSimpleMargin(svm *learner.SVM) (*SimpleMargin, error) {
	if svm == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "svmLearner", nil, "required")
	}
	return &SimpleMargin{svm: svm}, nil
}

func (*SimpleMargin) activeLearner() {}

func (*SimpleMargin) Kind() Kind {
	return KindSimpleMargin
}

func (*SimpleMargin) Name() string {
	return string(KindSimpleMargin)
}

func (*SimpleMargin) Named() bool {
	return true
}

func (s *SimpleMargin) Fields() []node.Field {
	return []node.Field{node.Set("svmLearner", s.svm)}
}

func (*SimpleMargin) IsFactorized() bool {
	return false
}

func (s *SimpleMargin) WithFactorization(learner.Factorization) (ActiveLearner, error) {
	return s, nil
}

// UncertaintySampler queries the point the learner is least sure about.
//
// It is factorized when the learner is a subspatial learner.
type UncertaintySampler struct {
	learner learner.Learner
}

var _ ActiveLearner = &UncertaintySampler{}

func NewUncertaintySampler(l learner.Learner) (*UncertaintySampler, error) {
	if l == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "learner", nil, "required")
	}
	return &UncertaintySampler{learner: l}, nil
}

func (*UncertaintySampler) activeLearner() {}

func (*UncertaintySampler) Kind() Kind {
	return KindUncertaintySampler
}

func (*UncertaintySampler) Name() string {
	return string(KindUncertaintySampler)
}

func (*UncertaintySampler) Named() bool {
	return true
}

func (u *UncertaintySampler) Learner() learner.Learner {
	return u.learner
}

func (u *UncertaintySampler) Fields() []node.Field {
	return []node.Field{node.Set("learner", u.learner)}
}

func (u *UncertaintySampler) IsFactorized() bool {
	return learner.IsFactorized(u.learner)
}

func (u *UncertaintySampler) WithFactorization(f learner.Factorization) (ActiveLearner, error) {
	if u.learner.Kind() != learner.KindSubspatialLearner {
		return u, nil
	}
	sl, err := u.learner.(*learner.SubspatialLearner).WithFactorization(f)
	if err != nil {
		return nil, domain.Within("learner", err)
	}
	return &UncertaintySampler{learner: sl}, nil
}

// ActiveTreeSearch looks ahead some steps to find the best point to query.
type ActiveTreeSearch struct {
	learner   learner.Learner
	lookahead int
}

var _ ActiveLearner = &ActiveTreeSearch{}

func NewActiveTreeSearch(l learner.Learner, lookahead int) (*ActiveTreeSearch, error) {
	if l == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "learner", nil, "required")
	}
	if err := validate.Positive("lookahead", lookahead); err != nil {
		return nil, err
	}
	return &ActiveTreeSearch{learner: l, lookahead: lookahead}, nil
}

func (*ActiveTreeSearch) activeLearner() {}

func (*ActiveTreeSearch) Kind() Kind {
	return KindActiveTreeSearch
}

func (*ActiveTreeSearch) Name() string {
	return string(KindActiveTreeSearch)
}

func (*ActiveTreeSearch) Named() bool {
	return true
}

func (a *ActiveTreeSearch) Fields() []node.Field {
	return []node.Field{
		node.Set("learner", a.learner),
		node.Set("lookahead", a.lookahead),
	}
}

func (*ActiveTreeSearch) IsFactorized() bool {
	return false
}

func (a *ActiveTreeSearch) WithFactorization(learner.Factorization) (ActiveLearner, error) {
	return a, nil
}

// QueryByDisagreement queries where learners trained with fake labels disagree.
type QueryByDisagreement struct {
	learner                 learner.Learner
	backgroundSampleSize    int
	backgroundSamplesWeight float64
}

var _ ActiveLearner = &QueryByDisagreement{}

func NewQueryByDisagreement(l learner.Learner, backgroundSampleSize int, backgroundSamplesWeight float64) (*QueryByDisagreement, error) {
	if l == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "learner", nil, "required")
	}
	if err := validate.First(
		validate.Positive("backgroundSampleSize", backgroundSampleSize),
		validate.NonNegative("backgroundSamplesWeight", backgroundSamplesWeight),
	); err != nil {
		return nil, err
	}
	return &QueryByDisagreement{
		learner:                 l,
		backgroundSampleSize:    backgroundSampleSize,
		backgroundSamplesWeight: backgroundSamplesWeight,
	}, nil
}

func (*QueryByDisagreement) activeLearner() {}

func (*QueryByDisagreement) Kind() Kind {
	return KindQueryByDisagreement
}

func (*QueryByDisagreement) Name() string {
	return string(KindQueryByDisagreement)
}

func (*QueryByDisagreement) Named() bool {
	return true
}

func (q *QueryByDisagreement) Fields() []node.Field {
	return []node.Field{
		node.Set("learner", q.learner),
		node.Set("backgroundSampleSize", q.backgroundSampleSize),
		node.Set("backgroundSamplesWeight", q.backgroundSamplesWeight),
	}
}

func (*QueryByDisagreement) IsFactorized() bool {
	return false
}

func (q *QueryByDisagreement) WithFactorization(learner.Factorization) (ActiveLearner, error) {
	return q, nil
}

// LossFunction combines uncertainties of subspaces.
type LossFunction string

const (
	L1      LossFunction = "L1"
	L2      LossFunction = "L2"
	Prod    LossFunction = "PROD"
	Entropy LossFunction = "ENTROPY"
	Greedy  LossFunction = "GREEDY"
	Margin  LossFunction = "MARGIN"
)

var supportedLossFunctions = sets.New(
	string(L1), string(L2), string(Prod), string(Entropy), string(Greedy), string(Margin),
)

// SubspatialSampler runs active learning over each subspace and combines them with a loss function.
type SubspatialSampler struct {
	learners      learner.Subspaces
	loss          LossFunction
	numThreads    int
	factorization learner.Factorization
}

var _ ActiveLearner = &SubspatialSampler{}

// NewSubspatialSampler creates SubspatialSampler.
//
// learners can be one learner (used for all subspaces) or one learner per subspace.
// MARGIN loss accepts only SVM learners.
func NewSubspatialSampler(learners []learner.Learner, lossFunctionId string, numThreads int) (*SubspatialSampler, error) {
	ls, err := learner.NewSubspaces("learners", learners...)
	if err != nil {
		return nil, err
	}
	if err := validate.First(
		validate.OneOf("lossFunctionId", lossFunctionId, supportedLossFunctions),
		validate.NonNegative("numThreads", numThreads),
		validate.Implies(
			"learners", LossFunction(lossFunctionId) == Margin, ls.All(learner.KindSVM),
			"MARGIN loss function accepts only SVM learners",
		),
	); err != nil {
		return nil, err
	}
	return &SubspatialSampler{
		learners:   ls,
		loss:       LossFunction(lossFunctionId),
		numThreads: numThreads,
	}, nil
}

func (*SubspatialSampler) activeLearner() {}

func (*SubspatialSampler) Kind() Kind {
	return KindSubspatialSampler
}

func (*SubspatialSampler) Name() string {
	return string(KindSubspatialSampler)
}

func (*SubspatialSampler) Named() bool {
	return true
}

func (s *SubspatialSampler) Fields() []node.Field {
	fields := []node.Field{
		s.learners.Field("learners"),
		node.Set("lossFunctionId", string(s.loss)),
	}
	if 0 < s.numThreads {
		fields = append(fields, node.Set("numThreads", s.numThreads))
	}
	return append(fields, s.learners.FactorizedFields(s.factorization)...)
}

func (*SubspatialSampler) IsFactorized() bool {
	return true
}

func (s *SubspatialSampler) WithFactorization(f learner.Factorization) (ActiveLearner, error) {
	bound, err := s.learners.Bind(f)
	if err != nil {
		return nil, err
	}
	return &SubspatialSampler{
		learners:      s.learners,
		loss:          s.loss,
		numThreads:    s.numThreads,
		factorization: bound,
	}, nil
}
