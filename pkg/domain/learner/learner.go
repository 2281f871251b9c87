// Package learner defines classifiers which active learners and metrics are built on.
package learner

import (
	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
)

// Kind is the tag of Learner variants.
type Kind string

const (
	KindSVM                  Kind = "SVM"
	KindKNN                  Kind = "KNN"
	KindMajorityVote         Kind = "MajorityVote"
	KindSubspatialLearner    Kind = "SubspatialLearner"
	KindBayesianMajorityVote Kind = "BayesianMajorityVote"
)

// Learner is a classifier.
//
// Variants are closed in this package. Dispatch them with Kind().
type Learner interface {
	node.Node

	Kind() Kind

	learner()
}

// IsFactorized tells l is a subspatial learner.
func IsFactorized(l Learner) bool {
	return l != nil && l.Kind() == KindSubspatialLearner
}

type SVM struct {
	c      float64
	kernel *Kernel
}

var _ Learner = &SVM{}

// NewSVM creates SVM learner. When kernel is nil, linear kernel is used.
func NewSVM(c float64, kernel *Kernel) (*SVM, error) {
	if err := validate.Positive("C", c); err != nil {
		return nil, err
	}
	if kernel == nil {
		kernel = LinearKernel()
	}
	return &SVM{c: c, kernel: kernel}, nil
}

func (*SVM) learner() {}

func (*SVM) Kind() Kind {
	return KindSVM
}

func (*SVM) Name() string {
	return string(KindSVM)
}

func (*SVM) Named() bool {
	return true
}

func (s *SVM) Fields() []node.Field {
	return []node.Field{
		node.Set("C", s.c),
		node.Set("kernel", s.kernel),
	}
}

type KNN struct {
	k     int
	gamma float64
}

var _ Learner = &KNN{}

func NewKNN(k int, gamma float64) (*KNN, error) {
	if err := validate.First(
		validate.Positive("k", k),
		validate.InRange("gamma", gamma, 0, 1),
	); err != nil {
		return nil, err
	}
	return &KNN{k: k, gamma: gamma}, nil
}

func (*KNN) learner() {}

func (*KNN) Kind() Kind {
	return KindKNN
}

func (*KNN) Name() string {
	return string(KindKNN)
}

func (*KNN) Named() bool {
	return true
}

func (k *KNN) Fields() []node.Field {
	return []node.Field{
		node.Set("k", k.k),
		node.Set("gamma", k.gamma),
	}
}

// MajorityVote votes with classifiers sampled from version space.
type MajorityVote struct {
	sampleSize   int
	versionSpace *VersionSpace
}

var _ Learner = &MajorityVote{}

// NewMajorityVote creates MajorityVote learner.
//
// Caching rounding transform requires decomposition:
// rounding && roundingCache in hit-and-run needs decompose in version space.
func NewMajorityVote(sampleSize int, versionSpace *VersionSpace) (*MajorityVote, error) {
	if err := validate.Positive("sampleSize", sampleSize); err != nil {
		return nil, err
	}
	if versionSpace == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "versionSpace", nil, "required")
	}
	hr := versionSpace.HitAndRun()
	if err := validate.Implies(
		"versionSpace.decompose",
		hr.Rounding() && hr.RoundingCache(), versionSpace.Decompose(),
		"rounding cache requires decomposition",
	); err != nil {
		return nil, err
	}
	return &MajorityVote{sampleSize: sampleSize, versionSpace: versionSpace}, nil
}

func (*MajorityVote) learner() {}

func (*MajorityVote) Kind() Kind {
	return KindMajorityVote
}

func (*MajorityVote) Name() string {
	return string(KindMajorityVote)
}

func (*MajorityVote) Named() bool {
	return true
}

func (m *MajorityVote) VersionSpace() *VersionSpace {
	return m.versionSpace
}

func (m *MajorityVote) Fields() []node.Field {
	return []node.Field{
		node.Set("sampleSize", m.sampleSize),
		node.Set("versionSpace", m.versionSpace),
	}
}

// BayesianMajorityVote is majority vote over bayesian version space.
//
// The engine knows it as "MajorityVote".
type BayesianMajorityVote struct {
	sampleSize   int
	versionSpace *BayesianVersionSpace
}

var _ Learner = &BayesianMajorityVote{}

func NewBayesianMajorityVote(sampleSize int, versionSpace *BayesianVersionSpace) (*BayesianMajorityVote, error) {
	if err := validate.Positive("sampleSize", sampleSize); err != nil {
		return nil, err
	}
	if versionSpace == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "versionSpace", nil, "required")
	}
	return &BayesianMajorityVote{sampleSize: sampleSize, versionSpace: versionSpace}, nil
}

func (*BayesianMajorityVote) learner() {}

func (*BayesianMajorityVote) Kind() Kind {
	return KindBayesianMajorityVote
}

func (*BayesianMajorityVote) Name() string {
	return string(KindMajorityVote)
}

func (*BayesianMajorityVote) Named() bool {
	return true
}

func (b *BayesianMajorityVote) Fields() []node.Field {
	return []node.Field{
		node.Set("sampleSize", b.sampleSize),
		node.Set("versionSpace", b.versionSpace),
	}
}
