package learner

import (
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
	"k8s.io/apimachinery/pkg/util/sets"
)

type KernelKind string

const (
	Linear   KernelKind = "linear"
	Gaussian KernelKind = "gaussian"
	Diagonal KernelKind = "diagonal"
)

var supportedKernels = sets.New(string(Linear), string(Gaussian), string(Diagonal))

// Kernel of SVM or version space.
type Kernel struct {
	kind     KernelKind
	gamma    float64
	diagonal []float64
}

var _ node.Node = &Kernel{}

// NewKernel creates Kernel.
//
// gamma is ignored for linear kernel. diagonal is required for (and only used by) diagonal kernel.
func NewKernel(kind string, gamma float64, diagonal ...float64) (*Kernel, error) {
	if err := validate.OneOf("kernel", kind, supportedKernels); err != nil {
		return nil, err
	}
	if err := validate.NonNegative("gamma", gamma); err != nil {
		return nil, err
	}

	k := &Kernel{kind: KernelKind(kind)}
	if k.kind != Linear {
		k.gamma = gamma
	}
	if k.kind == Diagonal {
		if err := validate.AllPositive("diagonal", diagonal); err != nil {
			return nil, err
		}
		k.diagonal = append([]float64{}, diagonal...)
	}
	return k, nil
}

// LinearKernel is NewKernel("linear", 0), which never fails.
func LinearKernel() *Kernel {
	return &Kernel{kind: Linear}
}

func (k *Kernel) Kind() KernelKind {
	return k.kind
}

func (k *Kernel) Gamma() float64 {
	return k.gamma
}

func (k *Kernel) Diagonal() []float64 {
	return append([]float64{}, k.diagonal...)
}

func (k *Kernel) Name() string {
	return string(k.kind)
}

func (*Kernel) Named() bool {
	return true
}

func (k *Kernel) Fields() []node.Field {
	fields := []node.Field{}
	if k.kind != Linear {
		fields = append(fields, node.Set("gamma", k.gamma))
	}
	if k.kind == Diagonal {
		fields = append(fields, node.Set("diagonal", node.SeqOf(k.diagonal)))
	}
	return fields
}
