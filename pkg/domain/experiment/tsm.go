package experiment

import (
	"fmt"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
)

// MultipleTSM configures three-set metric regions over factorized feature space.
type MultipleTSM struct {
	featureGroups                  [][]string
	isConvexPositive               []bool
	isCategorical                  []bool
	searchUnknownRegionProbability float64
}

var _ node.Node = &MultipleTSM{}

// NewMultipleTSM creates MultipleTSM.
//
// featureGroups, isConvexPositive and isCategorical are aligned 1:1.
// They should be all given with the same length, or all empty.
func NewMultipleTSM(
	featureGroups [][]string,
	isConvexPositive []bool,
	isCategorical []bool,
	searchUnknownRegionProbability float64,
) (*MultipleTSM, error) {
	if err := validate.Probability("searchUnknownRegionProbability", searchUnknownRegionProbability); err != nil {
		return nil, err
	}

	groups := len(featureGroups)
	if err := validate.SameLength(
		"multiTSM",
		groups, len(isConvexPositive), len(isCategorical),
	); err != nil {
		return nil, err
	}
	for i, g := range featureGroups {
		if len(g) == 0 {
			return nil, domain.NewConfigError(
				domain.ErrOutOfRange, fmt.Sprintf("featureGroups[%d]", i), nil, "empty feature group",
			)
		}
		for j, f := range g {
			if err := validate.NoPathSeparator(fmt.Sprintf("featureGroups[%d][%d]", i, j), f); err != nil {
				return nil, err
			}
		}
	}

	m := &MultipleTSM{searchUnknownRegionProbability: searchUnknownRegionProbability}
	if 0 < groups {
		m.featureGroups = make([][]string, groups)
		for i := range featureGroups {
			m.featureGroups[i] = append([]string{}, featureGroups[i]...)
		}
		m.isConvexPositive = append([]bool{}, isConvexPositive...)
		m.isCategorical = append([]bool{}, isCategorical...)
	}
	return m, nil
}

// FeatureGroups is the number of feature groups.
func (m *MultipleTSM) FeatureGroups() int {
	return len(m.featureGroups)
}

func (*MultipleTSM) Name() string {
	return "MultipleTSM"
}

func (*MultipleTSM) Named() bool {
	return false
}

func (m *MultipleTSM) Fields() []node.Field {
	fields := []node.Field{
		node.Set("hasTsm", true),
		node.Set("searchUnknownRegionProbability", m.searchUnknownRegionProbability),
	}
	if len(m.featureGroups) == 0 {
		return fields
	}

	groups := make([]any, len(m.featureGroups))
	flags := make([]any, len(m.featureGroups))
	for i := range m.featureGroups {
		groups[i] = node.SeqOf(m.featureGroups[i])
		flags[i] = []any{m.isConvexPositive[i], m.isCategorical[i]}
	}
	return append(
		fields,
		node.Set("featureGroups", groups),
		node.Set("flags", flags),
	)
}
