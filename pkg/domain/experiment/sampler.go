package experiment

import (
	"fmt"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
)

type SamplerKind string

const (
	KindStratifiedSampler SamplerKind = "StratifiedSampler"
	KindFixedSampler      SamplerKind = "FixedSampler"
)

// InitialSampler picks points to be labeled before active learning starts.
//
// Variants are closed in this package. Dispatch them with Kind().
type InitialSampler interface {
	node.Node

	Kind() SamplerKind

	initialSampler()
}

// StratifiedSampler picks random positive and negative points.
type StratifiedSampler struct {
	pos                    int
	neg                    int
	negativeInAllSubspaces bool
}

var _ InitialSampler = &StratifiedSampler{}

func NewStratifiedSampler(pos, neg int, negativeInAllSubspaces bool) (*StratifiedSampler, error) {
	if err := validate.First(
		validate.Positive("pos", pos),
		validate.Positive("neg", neg),
	); err != nil {
		return nil, err
	}
	return &StratifiedSampler{pos: pos, neg: neg, negativeInAllSubspaces: negativeInAllSubspaces}, nil
}

func (*StratifiedSampler) initialSampler() {}

func (*StratifiedSampler) Kind() SamplerKind {
	return KindStratifiedSampler
}

func (*StratifiedSampler) Name() string {
	return string(KindStratifiedSampler)
}

func (*StratifiedSampler) Named() bool {
	return true
}

func (s *StratifiedSampler) Fields() []node.Field {
	fields := []node.Field{
		node.Set("pos", s.pos),
		node.Set("neg", s.neg),
	}
	if s.negativeInAllSubspaces {
		fields = append(fields, node.Set("negativeInAllSubspaces", true))
	}
	return fields
}

// FixedSampler starts from fixed points, given by their ids.
type FixedSampler struct {
	posId  int64
	negIds []int64
}

var _ InitialSampler = &FixedSampler{}

func NewFixedSampler(posId int64, negIds ...int64) (*FixedSampler, error) {
	if err := validate.NonNegative("posId", posId); err != nil {
		return nil, err
	}
	if len(negIds) == 0 {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "negIds", nil, "at least one id is required")
	}
	for i, id := range negIds {
		if err := validate.NonNegative(fmt.Sprintf("negIds[%d]", i), id); err != nil {
			return nil, err
		}
	}
	return &FixedSampler{posId: posId, negIds: append([]int64{}, negIds...)}, nil
}

func (*FixedSampler) initialSampler() {}

func (*FixedSampler) Kind() SamplerKind {
	return KindFixedSampler
}

func (*FixedSampler) Name() string {
	return string(KindFixedSampler)
}

func (*FixedSampler) Named() bool {
	return true
}

func (f *FixedSampler) Fields() []node.Field {
	return []node.Field{
		node.Set("posId", f.posId),
		node.Set("negIds", node.SeqOf(f.negIds)),
	}
}
