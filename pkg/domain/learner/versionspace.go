package learner

import (
	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/opst/alrun/pkg/domain/validate"
	"k8s.io/apimachinery/pkg/util/sets"
)

type SelectorKind string

const (
	WarmUpAndThin     SelectorKind = "WarmUpAndThin"
	IndependentChains SelectorKind = "IndependentChains"
)

// names of sample selectors in authoring side, and what they are.
var selectorNames = map[string]SelectorKind{
	"single":      WarmUpAndThin,
	"independent": IndependentChains,
}

var supportedSelectors = sets.KeySet(selectorNames)

// SampleSelector decides which points of hit-and-run chains are taken as samples.
type SampleSelector struct {
	kind        SelectorKind
	warmup      int
	thin        int
	chainLength int
}

var _ node.Node = &SampleSelector{}

// NewSampleSelector creates SampleSelector.
//
// name is "single" (= WarmUpAndThin, using warmup and thin)
// or "independent" (= IndependentChains, using chainLength).
func NewSampleSelector(name string, warmup, thin, chainLength int) (*SampleSelector, error) {
	if err := validate.OneOf("selector", name, supportedSelectors); err != nil {
		return nil, err
	}
	s := &SampleSelector{kind: selectorNames[name]}

	switch s.kind {
	case WarmUpAndThin:
		if err := validate.First(
			validate.NonNegative("warmup", warmup),
			validate.Positive("thin", thin),
		); err != nil {
			return nil, err
		}
		s.warmup, s.thin = warmup, thin
	case IndependentChains:
		if err := validate.Positive("chainLength", chainLength); err != nil {
			return nil, err
		}
		s.chainLength = chainLength
	}
	return s, nil
}

func (s *SampleSelector) Kind() SelectorKind {
	return s.kind
}

func (s *SampleSelector) Name() string {
	return string(s.kind)
}

func (*SampleSelector) Named() bool {
	return true
}

func (s *SampleSelector) Fields() []node.Field {
	if s.kind == IndependentChains {
		return []node.Field{node.Set("chainLength", s.chainLength)}
	}
	return []node.Field{
		node.Set("warmUp", s.warmup),
		node.Set("thin", s.thin),
	}
}

// HitAndRun configures hit-and-run sampler over version space.
type HitAndRun struct {
	selector      *SampleSelector
	rounding      bool
	cache         bool
	maxIter       int
	roundingCache bool
}

var _ node.Node = &HitAndRun{}

type HitAndRunOption func(*HitAndRun) *HitAndRun

// use rounding transform for direction sampling. default: true
func WithRounding(rounding bool) HitAndRunOption {
	return func(h *HitAndRun) *HitAndRun {
		h.rounding = rounding
		return h
	}
}

// cache samples between iterations. default: true
func WithCache(cache bool) HitAndRunOption {
	return func(h *HitAndRun) *HitAndRun {
		h.cache = cache
		return h
	}
}

// limit iterations of rounding. 0 means unlimited (default).
func WithMaxIter(maxIter int) HitAndRunOption {
	return func(h *HitAndRun) *HitAndRun {
		h.maxIter = maxIter
		return h
	}
}

// cache rounding transform between iterations. default: false
func WithRoundingCache(roundingCache bool) HitAndRunOption {
	return func(h *HitAndRun) *HitAndRun {
		h.roundingCache = roundingCache
		return h
	}
}

func NewHitAndRun(selector *SampleSelector, options ...HitAndRunOption) (*HitAndRun, error) {
	if selector == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "selector", nil, "required")
	}
	h := &HitAndRun{selector: selector, rounding: true, cache: true}
	for _, opt := range options {
		h = opt(h)
	}
	if err := validate.NonNegative("maxIter", h.maxIter); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *HitAndRun) Selector() *SampleSelector {
	return h.selector
}

func (h *HitAndRun) Rounding() bool {
	return h.rounding
}

func (h *HitAndRun) RoundingCache() bool {
	return h.roundingCache
}

func (*HitAndRun) Name() string {
	return "HitAndRun"
}

func (*HitAndRun) Named() bool {
	return false
}

func (h *HitAndRun) Fields() []node.Field {
	fields := []node.Field{
		node.Meta("selector", h.selector),
		node.Set("rounding", h.rounding),
	}
	if h.rounding && 0 < h.maxIter {
		fields = append(fields, node.Set("maxIter", h.maxIter))
	}
	return append(
		fields,
		node.Set("cache", h.cache),
		node.Set("roundingCache", h.roundingCache),
	)
}

var supportedSolvers = sets.New("apache", "ojalgo", "gurobi")

// VersionSpace configures version space sampled by hit-and-run.
type VersionSpace struct {
	hitAndRun    *HitAndRun
	kernel       *Kernel
	addIntercept bool
	solver       string
	decompose    bool
	jitter       float64
	sphere       bool
}

var _ node.Node = &VersionSpace{}

type VersionSpaceOption func(*VersionSpace) *VersionSpace

// default: true
func WithIntercept(addIntercept bool) VersionSpaceOption {
	return func(vs *VersionSpace) *VersionSpace {
		vs.addIntercept = addIntercept
		return vs
	}
}

// linear programming solver. one of "apache", "ojalgo" (default) or "gurobi".
func WithSolver(solver string) VersionSpaceOption {
	return func(vs *VersionSpace) *VersionSpace {
		vs.solver = solver
		return vs
	}
}

// decompose kernel matrix, with jitter added to its diagonal. default: no decomposition.
func WithDecomposition(jitter float64) VersionSpaceOption {
	return func(vs *VersionSpace) *VersionSpace {
		vs.decompose = true
		vs.jitter = jitter
		return vs
	}
}

// sample on unit sphere. default: false
func WithSphere(sphere bool) VersionSpaceOption {
	return func(vs *VersionSpace) *VersionSpace {
		vs.sphere = sphere
		return vs
	}
}

func NewVersionSpace(hitAndRun *HitAndRun, kernel *Kernel, options ...VersionSpaceOption) (*VersionSpace, error) {
	if hitAndRun == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "hitAndRunSampler", nil, "required")
	}
	if kernel == nil {
		kernel = LinearKernel()
	}
	vs := &VersionSpace{
		hitAndRun: hitAndRun, kernel: kernel,
		addIntercept: true, solver: "ojalgo",
	}
	for _, opt := range options {
		vs = opt(vs)
	}

	if err := validate.First(
		validate.OneOf("solver", vs.solver, supportedSolvers),
		validate.NonNegative("jitter", vs.jitter),
	); err != nil {
		return nil, err
	}
	return vs, nil
}

func (vs *VersionSpace) HitAndRun() *HitAndRun {
	return vs.hitAndRun
}

func (vs *VersionSpace) Kernel() *Kernel {
	return vs.kernel
}

func (vs *VersionSpace) Decompose() bool {
	return vs.decompose
}

func (*VersionSpace) Name() string {
	return "VersionSpace"
}

func (*VersionSpace) Named() bool {
	return false
}

func (vs *VersionSpace) Fields() []node.Field {
	fields := []node.Field{
		node.Set("hitAndRunSampler", vs.hitAndRun),
		node.Set("kernel", vs.kernel),
		node.Set("addIntercept", vs.addIntercept),
		node.Set("solver", vs.solver),
		node.Set("decompose", vs.decompose),
	}
	if vs.decompose && 0 < vs.jitter {
		fields = append(fields, node.Set("jitter", vs.jitter))
	}
	if vs.sphere {
		fields = append(fields, node.Set("sphere", true))
	}
	return fields
}

// BayesianSampler configures MCMC sampler over the posterior of linear classifiers.
type BayesianSampler struct {
	warmup int
	thin   int
	sigma  float64
}

var _ node.Node = &BayesianSampler{}

func NewBayesianSampler(warmup, thin int, sigma float64) (*BayesianSampler, error) {
	if err := validate.First(
		validate.Positive("warmup", warmup),
		validate.Positive("thin", thin),
		validate.Positive("sigma", sigma),
	); err != nil {
		return nil, err
	}
	return &BayesianSampler{warmup: warmup, thin: thin, sigma: sigma}, nil
}

func (*BayesianSampler) Name() string {
	return "BayesianSampler"
}

func (*BayesianSampler) Named() bool {
	return false
}

func (b *BayesianSampler) Fields() []node.Field {
	return []node.Field{
		node.Set("warmup", b.warmup),
		node.Set("thin", b.thin),
		node.Set("sigma", b.sigma),
	}
}

// BayesianVersionSpace is version space sampled by BayesianSampler.
type BayesianVersionSpace struct {
	sampler      *BayesianSampler
	kernel       *Kernel
	addIntercept bool
}

var _ node.Node = &BayesianVersionSpace{}

func NewBayesianVersionSpace(sampler *BayesianSampler, kernel *Kernel, addIntercept bool) (*BayesianVersionSpace, error) {
	if sampler == nil {
		return nil, domain.NewConfigError(domain.ErrOutOfRange, "bayesianSampler", nil, "required")
	}
	if kernel == nil {
		kernel = LinearKernel()
	}
	return &BayesianVersionSpace{sampler: sampler, kernel: kernel, addIntercept: addIntercept}, nil
}

func (*BayesianVersionSpace) Name() string {
	return "BayesianVersionSpace"
}

func (*BayesianVersionSpace) Named() bool {
	return false
}

func (b *BayesianVersionSpace) Fields() []node.Field {
	return []node.Field{
		node.Set("bayesianSampler", b.sampler),
		node.Set("kernel", b.kernel),
		node.Set("addIntercept", b.addIntercept),
	}
}
