package show

import (
	"context"
	"fmt"
	"log"

	"github.com/opst/alrun/cmd/alrun/subcommands/common"
	"github.com/opst/alrun/pkg/configs/batch"
	"github.com/opst/alrun/pkg/domain/node"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

type Flag struct {
	Task string `flag:"task" alias:"t" metavar:"TASK" help:"Task to be shown. (default: the first task of the batch)"`
	JSON bool   `flag:"json" help:"Print only the experiment config document (JSON)."`
}

// Detail is the experiment of a task, as the engine sees.
type Detail struct {
	Task          string `yaml:"task"`
	ExperimentDir string `yaml:"experimentDir"`
	Folder        string `yaml:"folder"`
	Identity      string `yaml:"identity"`
	Document      string `yaml:"document"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Show the experiment config of a task.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task),
		flarc.WithDescription(`
Show the experiment of a task in the batch, with factorization of the task bound.

	{{ .Command }} --file batch.yaml --task TASK

Output includes the experiment directory, its folder name and flat identity of the active learner,
and the config document.

To get just the document, which would be written as config.json:

	{{ .Command }} --file batch.yaml --task TASK --json
`),
	)
}

func Task(
	_ context.Context,
	_ *log.Logger,
	_ string,
	conf batch.Config,
	cl flarc.Commandline[Flag],
	_ []any,
) error {
	flags := cl.Flags()

	task := flags.Task
	if task == "" {
		task = conf.Batch.Tasks[0]
	}
	found := false
	for _, t := range conf.Batch.Tasks {
		if t == task {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: task %s is not in the batch", flarc.ErrUsage, task)
	}

	b := conf.Batch
	b.Tasks = []string{task}
	plans, err := b.Plan()
	if err != nil {
		return fmt.Errorf("batch is not runnable: %w", err)
	}
	p := plans[0]

	if flags.JSON {
		_, err := cl.Stdout().Write(p.Document)
		return err
	}

	enc := yaml.NewEncoder(cl.Stdout())
	enc.SetIndent(2)
	if err := enc.Encode(Detail{
		Task:          p.Task,
		ExperimentDir: p.ExperimentDir,
		Folder:        p.Experiment.Folder(),
		Identity:      node.Identity(p.Experiment.ActiveLearner()),
		Document:      string(p.Document),
	}); err != nil {
		return err
	}
	return enc.Close()
}
