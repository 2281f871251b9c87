package batch

import (
	"fmt"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/active"
	"github.com/opst/alrun/pkg/domain/experiment"
	"github.com/opst/alrun/pkg/domain/learner"
	"github.com/opst/alrun/pkg/domain/metric"
	"github.com/opst/alrun/pkg/domain/validate"
	"gopkg.in/yaml.v3"
)

// decodeKernel decodes kernel. When n is absent, kernel of defaultKind is returned.
//
//	kernel: gaussian
//	kernel: {name: gaussian, gamma: 0.5}
//	kernel: {name: diagonal, diagonal: [1, 2]}
func decodeKernel(n *yaml.Node, defaultKind learner.KernelKind) (*learner.Kernel, error) {
	if absent(n) {
		return learner.NewKernel(string(defaultKind), 0)
	}
	name, err := variantOf(n)
	if err != nil {
		return nil, err
	}
	raw := struct {
		Gamma    float64   `yaml:"gamma"`
		Diagonal []float64 `yaml:"diagonal"`
	}{}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}
	return learner.NewKernel(name, raw.Gamma, raw.Diagonal...)
}

func decodeSVM(n *yaml.Node) (*learner.SVM, error) {
	raw := struct {
		C      float64   `yaml:"C"`
		Kernel yaml.Node `yaml:"kernel"`
	}{C: 1}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}
	kernel, err := decodeKernel(&raw.Kernel, learner.Gaussian)
	if err != nil {
		return nil, domain.Within("kernel", err)
	}
	return learner.NewSVM(raw.C, kernel)
}

func decodeKNN(n *yaml.Node) (*learner.KNN, error) {
	raw := struct {
		K     int     `yaml:"k"`
		Gamma float64 `yaml:"gamma"`
	}{K: 5}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}
	return learner.NewKNN(raw.K, raw.Gamma)
}

// decodeMajorityVote decodes MajorityVote, with sampler and version space flattened:
//
//	name: MajorityVote
//	sampleSize: 8
//	selector: single        # or independent
//	warmup: 100
//	thin: 10
//	chainLength: 64
//	rounding: true
//	cache: true
//	maxIter: 0
//	roundingCache: false
//	kernel: linear
//	addIntercept: true
//	solver: ojalgo
//	decompose: false
//	jitter: 0
//	sphere: false
func decodeMajorityVote(n *yaml.Node) (*learner.MajorityVote, error) {
	raw := struct {
		SampleSize    int       `yaml:"sampleSize"`
		Selector      string    `yaml:"selector"`
		Warmup        int       `yaml:"warmup"`
		Thin          int       `yaml:"thin"`
		ChainLength   int       `yaml:"chainLength"`
		Rounding      bool      `yaml:"rounding"`
		Cache         bool      `yaml:"cache"`
		MaxIter       int       `yaml:"maxIter"`
		RoundingCache bool      `yaml:"roundingCache"`
		Kernel        yaml.Node `yaml:"kernel"`
		AddIntercept  bool      `yaml:"addIntercept"`
		Solver        string    `yaml:"solver"`
		Decompose     bool      `yaml:"decompose"`
		Jitter        float64   `yaml:"jitter"`
		Sphere        bool      `yaml:"sphere"`
	}{
		SampleSize: 8,
		Selector:   "single", Warmup: 100, Thin: 10, ChainLength: 64,
		Rounding: true, Cache: true,
		AddIntercept: true, Solver: "ojalgo",
	}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}
	if err := validate.Implies(
		"jitter", raw.Jitter != 0, raw.Decompose, "jitter is used only with decompose: true",
	); err != nil {
		return nil, err
	}

	selector, err := learner.NewSampleSelector(raw.Selector, raw.Warmup, raw.Thin, raw.ChainLength)
	if err != nil {
		return nil, err
	}
	hr, err := learner.NewHitAndRun(
		selector,
		learner.WithRounding(raw.Rounding),
		learner.WithCache(raw.Cache),
		learner.WithMaxIter(raw.MaxIter),
		learner.WithRoundingCache(raw.RoundingCache),
	)
	if err != nil {
		return nil, err
	}
	kernel, err := decodeKernel(&raw.Kernel, learner.Linear)
	if err != nil {
		return nil, domain.Within("kernel", err)
	}
	options := []learner.VersionSpaceOption{
		learner.WithIntercept(raw.AddIntercept),
		learner.WithSolver(raw.Solver),
		learner.WithSphere(raw.Sphere),
	}
	if raw.Decompose {
		options = append(options, learner.WithDecomposition(raw.Jitter))
	}
	vs, err := learner.NewVersionSpace(hr, kernel, options...)
	if err != nil {
		return nil, err
	}
	return learner.NewMajorityVote(raw.SampleSize, vs)
}

func decodeBayesianMajorityVote(n *yaml.Node) (*learner.BayesianMajorityVote, error) {
	raw := struct {
		SampleSize   int       `yaml:"sampleSize"`
		Warmup       int       `yaml:"warmup"`
		Thin         int       `yaml:"thin"`
		Sigma        float64   `yaml:"sigma"`
		Kernel       yaml.Node `yaml:"kernel"`
		AddIntercept bool      `yaml:"addIntercept"`
	}{SampleSize: 8, Warmup: 100, Thin: 10, Sigma: 1, AddIntercept: true}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}

	sampler, err := learner.NewBayesianSampler(raw.Warmup, raw.Thin, raw.Sigma)
	if err != nil {
		return nil, err
	}
	kernel, err := decodeKernel(&raw.Kernel, learner.Linear)
	if err != nil {
		return nil, domain.Within("kernel", err)
	}
	vs, err := learner.NewBayesianVersionSpace(sampler, kernel, raw.AddIntercept)
	if err != nil {
		return nil, err
	}
	return learner.NewBayesianMajorityVote(raw.SampleSize, vs)
}

func decodeSubspatialLearner(n *yaml.Node) (*learner.SubspatialLearner, error) {
	raw := struct {
		SubspaceLearners yaml.Node `yaml:"subspaceLearners"`
		NumThreads       int       `yaml:"numThreads"`
	}{}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}
	ls, err := decodeLearners("subspaceLearners", &raw.SubspaceLearners)
	if err != nil {
		return nil, err
	}
	return learner.NewSubspatialLearner(ls, learner.WithNumThreads(raw.NumThreads))
}

func decodeLearner(n *yaml.Node) (learner.Learner, error) {
	name, err := variantOf(n)
	if err != nil {
		return nil, err
	}
	switch learner.Kind(name) {
	case learner.KindSVM:
		return decodeSVM(n)
	case learner.KindKNN:
		return decodeKNN(n)
	case learner.KindMajorityVote:
		return decodeMajorityVote(n)
	case learner.KindBayesianMajorityVote:
		return decodeBayesianMajorityVote(n)
	case learner.KindSubspatialLearner:
		return decodeSubspatialLearner(n)
	default:
		return nil, domain.NewConfigError(domain.ErrUnsupportedValue, "name", name, "unknown learner")
	}
}

// decodeLearners decodes one learner, or a sequence of learners.
func decodeLearners(field string, n *yaml.Node) ([]learner.Learner, error) {
	if err := required(field, n); err != nil {
		return nil, err
	}
	n = resolve(n)
	if n.Kind != yaml.SequenceNode {
		l, err := decodeLearner(n)
		if err != nil {
			return nil, domain.Within(field, err)
		}
		return []learner.Learner{l}, nil
	}

	ls := make([]learner.Learner, len(n.Content))
	for i, item := range n.Content {
		l, err := decodeLearner(item)
		if err != nil {
			return nil, domain.Within(fmt.Sprintf("%s[%d]", field, i), err)
		}
		ls[i] = l
	}
	return ls, nil
}

// decodeWrapped decodes the learner under "learner" key, which is required.
func decodeWrapped(n *yaml.Node) (learner.Learner, error) {
	if err := required("learner", n); err != nil {
		return nil, err
	}
	l, err := decodeLearner(n)
	if err != nil {
		return nil, domain.Within("learner", err)
	}
	return l, nil
}

func decodeActiveLearner(n *yaml.Node) (active.ActiveLearner, error) {
	name, err := variantOf(n)
	if err != nil {
		return nil, err
	}

	switch active.Kind(name) {
	case active.KindRandomSampler:
		if err := decodeInto(n, &struct{}{}); err != nil {
			return nil, err
		}
		return active.NewRandomSampler(), nil

	case active.KindSimpleMargin:
		svm, err := decodeSVM(n)
		if err != nil {
			return nil, err
		}
		return active.NewSimpleMargin(svm)

	case active.KindUncertaintySampler:
		raw := struct {
			Learner yaml.Node `yaml:"learner"`
		}{}
		if err := decodeInto(n, &raw); err != nil {
			return nil, err
		}
		l, err := decodeWrapped(&raw.Learner)
		if err != nil {
			return nil, err
		}
		return active.NewUncertaintySampler(l)

	case active.KindActiveTreeSearch:
		raw := struct {
			Learner   yaml.Node `yaml:"learner"`
			Lookahead int       `yaml:"lookahead"`
		}{Lookahead: 1}
		if err := decodeInto(n, &raw); err != nil {
			return nil, err
		}
		l, err := decodeWrapped(&raw.Learner)
		if err != nil {
			return nil, err
		}
		return active.NewActiveTreeSearch(l, raw.Lookahead)

	case active.KindSubspatialSampler:
		raw := struct {
			Learners       yaml.Node `yaml:"learners"`
			LossFunctionId string    `yaml:"lossFunctionId"`
			NumThreads     int       `yaml:"numThreads"`
		}{}
		if err := decodeInto(n, &raw); err != nil {
			return nil, err
		}
		ls, err := decodeLearners("learners", &raw.Learners)
		if err != nil {
			return nil, err
		}
		return active.NewSubspatialSampler(ls, raw.LossFunctionId, raw.NumThreads)

	case active.KindQueryByDisagreement:
		raw := struct {
			Learner                 yaml.Node `yaml:"learner"`
			BackgroundSampleSize    int       `yaml:"backgroundSampleSize"`
			BackgroundSamplesWeight float64   `yaml:"backgroundSamplesWeight"`
		}{}
		if err := decodeInto(n, &raw); err != nil {
			return nil, err
		}
		l, err := decodeWrapped(&raw.Learner)
		if err != nil {
			return nil, err
		}
		return active.NewQueryByDisagreement(l, raw.BackgroundSampleSize, raw.BackgroundSamplesWeight)

	default:
		return nil, domain.NewConfigError(domain.ErrUnsupportedValue, "name", name, "unknown active learner")
	}
}

func decodeMetric(n *yaml.Node) (*metric.Metric, error) {
	name, err := variantOf(n)
	if err != nil {
		return nil, err
	}
	kind, err := metric.AsKind(name)
	if err != nil {
		return nil, err
	}
	raw := struct {
		Learner yaml.Node `yaml:"learner"`
	}{}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}
	l, err := decodeWrapped(&raw.Learner)
	if err != nil {
		return nil, err
	}
	return metric.New(kind, l)
}

func decodeInitialSampler(n *yaml.Node) (experiment.InitialSampler, error) {
	name, err := variantOf(n)
	if err != nil {
		return nil, err
	}
	switch experiment.SamplerKind(name) {
	case experiment.KindStratifiedSampler:
		raw := struct {
			Pos                    int  `yaml:"pos"`
			Neg                    int  `yaml:"neg"`
			NegativeInAllSubspaces bool `yaml:"negativeInAllSubspaces"`
		}{Pos: 1, Neg: 1}
		if err := decodeInto(n, &raw); err != nil {
			return nil, err
		}
		return experiment.NewStratifiedSampler(raw.Pos, raw.Neg, raw.NegativeInAllSubspaces)

	case experiment.KindFixedSampler:
		raw := struct {
			PosId  int64   `yaml:"posId"`
			NegIds []int64 `yaml:"negIds"`
		}{}
		if err := decodeInto(n, &raw); err != nil {
			return nil, err
		}
		return experiment.NewFixedSampler(raw.PosId, raw.NegIds...)

	default:
		return nil, domain.NewConfigError(domain.ErrUnsupportedValue, "name", name, "unknown initial sampler")
	}
}

// decodeMultipleTSM decodes MultipleTSM. Each item of flags is a pair of [isConvexPositive, isCategorical].
//
//	featureGroups: [[a, b], [c]]
//	flags: [[true, false], [false, true]]
//	searchUnknownRegionProbability: 0.5
func decodeMultipleTSM(n *yaml.Node) (*experiment.MultipleTSM, error) {
	raw := struct {
		FeatureGroups                  [][]string `yaml:"featureGroups"`
		Flags                          [][]bool   `yaml:"flags"`
		SearchUnknownRegionProbability float64    `yaml:"searchUnknownRegionProbability"`
	}{}
	if resolve(n).Kind != yaml.MappingNode {
		return nil, domain.NewConfigError(domain.ErrUnsupportedValue, "", nil, "should be a mapping")
	}
	if err := decodeInto(n, &raw); err != nil {
		return nil, err
	}

	var convex, categorical []bool
	for i, f := range raw.Flags {
		if len(f) != 2 {
			return nil, domain.NewConfigError(
				domain.ErrLengthMismatch, fmt.Sprintf("flags[%d]", i), f,
				"should be a pair of [isConvexPositive, isCategorical]",
			)
		}
		convex = append(convex, f[0])
		categorical = append(categorical, f[1])
	}
	return experiment.NewMultipleTSM(raw.FeatureGroups, convex, categorical, raw.SearchUnknownRegionProbability)
}
