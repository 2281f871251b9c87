package plan

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/opst/alrun/cmd/alrun/subcommands/common"
	"github.com/opst/alrun/pkg/configs/batch"
	"github.com/opst/alrun/pkg/orchestrator"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

type Flag struct {
	Documents bool `flag:"documents" alias:"d" help:"Include config documents in the output."`
}

type MetricSummary struct {
	Token    string `yaml:"token"`
	Path     string `yaml:"path"`
	Document string `yaml:"document,omitempty"`
}

// Summary is what a task would do.
type Summary struct {
	Task          string          `yaml:"task"`
	ExperimentDir string          `yaml:"experimentDir"`
	Config        string          `yaml:"config"`
	Document      string          `yaml:"document,omitempty"`
	Metrics       []MetricSummary `yaml:"metrics,omitempty"`
	CommandLine   string          `yaml:"commandLine"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show what the batch would do, without writing or running anything.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task),
		flarc.WithDescription(`
Compute experiment directories, config documents and engine command lines of all tasks in the batch,
and print them as YAML.

	{{ .Command }} --file batch.yaml

Nothing is written and the engine is not invoked.
Errors in the batch file are reported here, as "run" would.
`),
	)
}

// Summarize plans. Documents are included when withDocuments is true.
func Summarize(command []string, plans []orchestrator.Plan, withDocuments bool) []Summary {
	summaries := make([]Summary, 0, len(plans))
	for _, p := range plans {
		s := Summary{
			Task:          p.Task,
			ExperimentDir: p.ExperimentDir,
			Config:        p.ConfigPath,
			CommandLine:   p.Invocation.CommandLine(command...),
		}
		if withDocuments {
			s.Document = string(p.Document)
		}
		for _, m := range p.Metrics {
			ms := MetricSummary{Token: m.Token, Path: m.Path}
			if withDocuments {
				ms.Document = string(m.Document)
			}
			s.Metrics = append(s.Metrics, ms)
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func Task(
	_ context.Context,
	logger *log.Logger,
	file string,
	conf batch.Config,
	cl flarc.Commandline[Flag],
	_ []any,
) error {
	plans, err := conf.Batch.Plan()
	if err != nil {
		return fmt.Errorf("batch is not runnable: %w", err)
	}
	logger.Printf("%s: %d task(s)", file, len(plans))
	return write(cl.Stdout(), Summarize(conf.Engine, plans, cl.Flags().Documents))
}

func write(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
