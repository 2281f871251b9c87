// Package batch loads a batch file, which describes a batch of experiments.
//
// Every node in the file is built with its validating constructor while decoding,
// so a decoded Config consists of valid nodes only.
package batch

import (
	"fmt"
	"os"
	"strings"

	cfghook "github.com/opst/alrun/pkg/configs/hook"
	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/experiment"
	"github.com/opst/alrun/pkg/domain/metric"
	xe "github.com/opst/alrun/pkg/errors"
	"github.com/opst/alrun/pkg/orchestrator"
	kos "github.com/opst/alrun/pkg/utils/os"
	"gopkg.in/yaml.v3"
)

// EnvEngine is the environment variable which gives the engine command when the batch file does not.
const EnvEngine = "ALRUN_ENGINE"

// DefaultRoot is the root directory of experiment trees, when not specified.
const DefaultRoot = orchestrator.DefaultRoot

type Config struct {
	// Engine is the command (and leading arguments) of the experiment engine.
	//
	// It is empty when the batch file does not specify it.
	Engine []string

	Batch orchestrator.Batch

	Hooks cfghook.WebHook
}

type marshalledConfig struct {
	Engine                           yaml.Node   `yaml:"engine"`
	Root                             string      `yaml:"root"`
	Layout                           string      `yaml:"layout"`
	Tasks                            []string    `yaml:"tasks"`
	Modes                            []string    `yaml:"modes"`
	NumRuns                          int         `yaml:"numRuns"`
	Budget                           int         `yaml:"budget"`
	Runs                             []int       `yaml:"runs"`
	SubsampleSize                    int         `yaml:"subsampleSize"`
	SearchUncertainRegionProbability float64     `yaml:"searchUncertainRegionProbability"`
	InitialSampler                   yaml.Node   `yaml:"initialSampler"`
	MultiTSM                         yaml.Node   `yaml:"multiTSM"`
	ActiveLearner                    yaml.Node   `yaml:"activeLearner"`
	Metrics                          []yaml.Node `yaml:"metrics"`
	TaskMetadata                     struct {
		Categorical map[string][]int `yaml:"categorical"`
		Partitions  map[string]int   `yaml:"partitions"`
	} `yaml:"taskMetadata"`
	Hooks yaml.Node `yaml:"hooks"`
}

func (c *Config) UnmarshalYAML(n *yaml.Node) error {
	raw := marshalledConfig{Root: DefaultRoot, NumRuns: 1}
	if resolve(n).Kind != yaml.MappingNode {
		return domain.NewConfigError(domain.ErrUnsupportedValue, "", nil, "batch file should be a mapping")
	}
	if err := decodeInto(n, &raw); err != nil {
		return err
	}

	engine, err := decodeEngine(&raw.Engine)
	if err != nil {
		return domain.Within("engine", err)
	}

	layout, err := orchestrator.AsLayout(raw.Layout)
	if err != nil {
		return err
	}

	modes, err := domain.AsModes(raw.Modes)
	if err != nil {
		return err
	}

	if len(raw.Tasks) == 0 {
		return domain.NewConfigError(domain.ErrOutOfRange, "tasks", nil, "at least one task is required")
	}

	meta, err := decodeTaskMetadata(raw.TaskMetadata.Categorical, raw.TaskMetadata.Partitions)
	if err != nil {
		return domain.Within("taskMetadata", err)
	}

	if err := required("activeLearner", &raw.ActiveLearner); err != nil {
		return err
	}
	al, err := decodeActiveLearner(&raw.ActiveLearner)
	if err != nil {
		return domain.Within("activeLearner", err)
	}

	options := []experiment.Option{
		experiment.WithSubsampleSize(raw.SubsampleSize),
		experiment.WithSearchUncertainRegionProbability(raw.SearchUncertainRegionProbability),
	}
	if !absent(&raw.InitialSampler) {
		s, err := decodeInitialSampler(&raw.InitialSampler)
		if err != nil {
			return domain.Within("initialSampler", err)
		}
		options = append(options, experiment.WithInitialSampler(s))
	}
	if !absent(&raw.MultiTSM) {
		m, err := decodeMultipleTSM(&raw.MultiTSM)
		if err != nil {
			return domain.Within("multiTSM", err)
		}
		options = append(options, experiment.WithMultiTSM(m))
	}
	exp, err := experiment.New(raw.Tasks[0], al, options...)
	if err != nil {
		return err
	}

	metrics := make([]*metric.Metric, len(raw.Metrics))
	for i := range raw.Metrics {
		m, err := decodeMetric(&raw.Metrics[i])
		if err != nil {
			return domain.Within(fmt.Sprintf("metrics[%d]", i), err)
		}
		metrics[i] = m
	}

	hooks := cfghook.WebHook{}
	if !absent(&raw.Hooks) {
		if err := raw.Hooks.Decode(&hooks); err != nil {
			return err
		}
	}

	*c = Config{
		Engine: engine,
		Batch: orchestrator.Batch{
			Root:       raw.Root,
			Layout:     layout,
			Tasks:      raw.Tasks,
			Modes:      modes,
			NumRuns:    raw.NumRuns,
			Budget:     raw.Budget,
			Runs:       raw.Runs,
			Experiment: exp,
			Metrics:    metrics,
			Metadata:   meta,
		},
		Hooks: hooks,
	}
	return nil
}

// decodeEngine decodes engine command, as a sequence or a whitespace separated string.
func decodeEngine(n *yaml.Node) ([]string, error) {
	if absent(n) {
		return nil, nil
	}
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return strings.Fields(n.Value), nil
	case yaml.SequenceNode:
		command := []string{}
		if err := n.Decode(&command); err != nil {
			return nil, domain.NewConfigError(domain.ErrUnsupportedValue, "", nil, err.Error())
		}
		return command, nil
	default:
		return nil, domain.NewConfigError(
			domain.ErrUnsupportedValue, "", nil, "should be a string or a sequence of strings",
		)
	}
}

func decodeTaskMetadata(categorical map[string][]int, partitions map[string]int) (orchestrator.TaskMetadata, error) {
	meta := orchestrator.TaskMetadata{
		Categorical: map[string][]int{},
		Partitions:  map[string]int{},
	}
	for task, n := range partitions {
		if n <= 0 {
			return meta, domain.NewConfigError(
				domain.ErrOutOfRange, fmt.Sprintf("partitions.%s", task), n, "should be positive",
			)
		}
		meta.Partitions[task] = n
	}
	for task, c := range categorical {
		meta.Categorical[task] = c
	}

	for task := range categorical {
		f := meta.Factorization(task)
		if err := f.Validate(f.Repeat, true); err != nil {
			return meta, domain.Within(fmt.Sprintf("categorical.%s", task), err)
		}
	}
	return meta, nil
}

// Parse parses content of a batch file.
//
// When the batch file does not specify engine, the environment variable ALRUN_ENGINE is used.
func Parse(content []byte) (Config, error) {
	doc := yaml.Node{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return Config{}, domain.NewConfigError(domain.ErrUnsupportedValue, "", nil, err.Error())
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Config{}, domain.NewConfigError(domain.ErrOutOfRange, "", nil, "batch file is empty")
	}

	c := Config{}
	if err := c.UnmarshalYAML(doc.Content[0]); err != nil {
		return Config{}, err
	}

	if len(c.Engine) == 0 {
		c.Engine = strings.Fields(kos.GetEnvOr(EnvEngine, ""))
	}
	if len(c.Engine) == 0 {
		return Config{}, domain.NewConfigError(
			domain.ErrOutOfRange, "engine", nil,
			fmt.Sprintf("required. set it in the batch file or with environment variable %s", EnvEngine),
		)
	}
	return c, nil
}

// Load reads and parses a batch file.
func Load(file string) (Config, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return Config{}, xe.WrapWithNote("reading batch file", err)
	}
	c, err := Parse(content)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", file, err)
	}
	return c, nil
}
