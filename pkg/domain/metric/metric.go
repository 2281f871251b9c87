// Package metric defines evaluation metrics which the engine computes over run artifacts.
package metric

import (
	"fmt"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/learner"
	"github.com/opst/alrun/pkg/domain/node"
)

// Kind is the tag of Metric variants.
type Kind string

const (
	KindConfusionMatrix            Kind = "ConfusionMatrix"
	KindLabeledSetConfusionMatrix  Kind = "LabeledSetConfusionMatrix"
	KindSubspatialConfusionMatrix  Kind = "SubspatialConfusionMatrix"
	KindThreeSetMetric             Kind = "ThreeSetMetric"
	KindVersionSpaceThreeSetMetric Kind = "VersionSpaceThreeSetMetric"
)

// Metric evaluates a learner trained over labeled points of runs.
//
// Each variant wraps one learner. Construct them with New.
type Metric struct {
	kind    Kind
	learner learner.Learner
}

var _ node.Node = &Metric{}

// requirements of wrapped learner, per kind.
var accepts = map[Kind]func(learner.Learner) error{
	KindConfusionMatrix:            anyLearner,
	KindLabeledSetConfusionMatrix:  anyLearner,
	KindThreeSetMetric:             anyLearner,
	KindSubspatialConfusionMatrix:  kindOf(learner.KindSubspatialLearner),
	KindVersionSpaceThreeSetMetric: kindOf(learner.KindMajorityVote),
}

func anyLearner(learner.Learner) error {
	return nil
}

func kindOf(k learner.Kind) func(learner.Learner) error {
	return func(l learner.Learner) error {
		if l.Kind() == k {
			return nil
		}
		return domain.NewConfigError(
			domain.ErrUnsupportedValue, "learner", l.Name(), fmt.Sprintf("should be %s", k),
		)
	}
}

// AsKind parses s as metric kind.
func AsKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := accepts[k]; !ok {
		return "", domain.NewConfigError(domain.ErrUnsupportedValue, "name", s, "unknown metric")
	}
	return k, nil
}

// New creates a metric of the kind, wrapping l.
//
// SubspatialConfusionMatrix requires SubspatialLearner,
// and VersionSpaceThreeSetMetric requires MajorityVote.
func New(kind Kind, l learner.Learner) (*Metric, error) {
	accept, ok := accepts[kind]
	if !ok {
		return nil, domain.NewConfigError(domain.ErrUnsupportedValue, "name", string(kind), "unknown metric")
	}
	if l == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "learner", nil, "required")
	}
	if err := accept(l); err != nil {
		return nil, err
	}
	return &Metric{kind: kind, learner: l}, nil
}

func (m *Metric) Kind() Kind {
	return m.kind
}

func (m *Metric) Learner() learner.Learner {
	return m.learner
}

func (m *Metric) Name() string {
	return string(m.kind)
}

func (*Metric) Named() bool {
	return true
}

func (m *Metric) Fields() []node.Field {
	return []node.Field{node.Set("learner", m.learner)}
}

// IsFactorized tells the metric scores with a factorized learner.
func (m *Metric) IsFactorized() bool {
	return learner.IsFactorized(m.learner)
}

// WithFactorization returns a copy of m which f is bound to.
//
// Metrics with a non-factorized learner return themselves.
func (m *Metric) WithFactorization(f learner.Factorization) (*Metric, error) {
	if !m.IsFactorized() {
		return m, nil
	}
	sl, err := m.learner.(*learner.SubspatialLearner).WithFactorization(f)
	if err != nil {
		return nil, domain.Within(m.Name(), err)
	}
	return &Metric{kind: m.kind, learner: sl}, nil
}

// Token is the name of metric folder, which the engine receives in --metrics.
//
// It is the label of the metric, truncated to node.MaxLength.
func (m *Metric) Token() string {
	return node.Truncate(node.Label(m), node.MaxLength)
}
