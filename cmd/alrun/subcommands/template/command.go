package template

import (
	"context"

	"github.com/opst/alrun/pkg/configs/batch"
	y "github.com/opst/alrun/pkg/utils/yamler"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Print a starter batch file.",
		struct{}{},
		flarc.Args{},
		Task,
		flarc.WithDescription(`
Print a batch file with comments, to start a new batch.

	{{ .Command }} > alrun.yaml

Edit it, and check with "alrun plan".
`),
	)
}

// Template is the starter batch file.
func Template() *yaml.Node {
	name := func(n string, entries ...y.MapEntry) *yaml.Node {
		return y.Map(append([]y.MapEntry{y.Entry("name", y.Text(n))}, entries...), y.Flow())
	}

	return y.Map([]y.MapEntry{
		y.Entry(
			"engine",
			y.Texts([]string{"java", "-cp", "target/engine.jar", "RunExperiment"}, y.Flow()),
			y.WithHeadComment(
				"# command of the experiment engine. Flags for each task follow it.\n"+
					"# When omitted, environment variable "+batch.EnvEngine+" is used.",
			),
		),
		y.Entry(
			"root", y.Text(batch.DefaultRoot),
			y.WithHeadComment("# root directory of experiment trees."),
		),
		y.Entry(
			"layout", y.Text("runs"),
			y.WithLineComment("runs: <dir>/Runs/config.json, flat: <dir>/config.json"),
		),
		y.Entry("tasks", y.Texts([]string{"sdss_Q1_0.1%"}, y.Flow())),
		y.Entry(
			"modes", y.Texts([]string{"NEW", "EVAL"}, y.Flow()),
			y.WithLineComment("any of NEW, RESUME, EVAL, AVERAGE"),
		),
		y.Entry("numRuns", y.Number(1)),
		y.Entry("budget", y.Number(25), y.WithLineComment("labels per run")),
		y.Entry(
			"searchUncertainRegionProbability", y.Number(0),
		),
		y.Entry(
			"initialSampler", name("StratifiedSampler", y.Entry("pos", y.Number(1)), y.Entry("neg", y.Number(1))),
		),
		y.Entry(
			"activeLearner",
			y.Map([]y.MapEntry{
				y.Entry("name", y.Text("UncertaintySampler")),
				y.Entry(
					"learner",
					name("MajorityVote", y.Entry("sampleSize", y.Number(8)), y.Entry("kernel", name("gaussian"))),
				),
			}),
			y.WithHeadComment(
				"# one of RandomSampler, SimpleMargin, UncertaintySampler, ActiveTreeSearch,\n"+
					"# SubspatialSampler and QueryByDisagreement.",
			),
		),
		y.Entry(
			"metrics",
			y.Seq([]*yaml.Node{
				name(
					"ConfusionMatrix",
					y.Entry("learner", name("SVM", y.Entry("C", y.Number(1e7)), y.Entry("kernel", name("gaussian")))),
				),
			}),
			y.WithHeadComment("# metrics computed in EVAL mode."),
		),
		y.Entry(
			"taskMetadata",
			y.Map([]y.MapEntry{
				y.Entry("categorical", y.Map(nil, y.Flow()), y.WithLineComment("task: [index of categorical partition, ...]")),
				y.Entry("partitions", y.Map(nil, y.Flow()), y.WithLineComment("task: number of partitions")),
			}),
			y.WithHeadComment("# feature space partitions of tasks, for factorized active learners."),
		),
		y.Entry(
			"hooks",
			y.Map([]y.MapEntry{
				y.Entry("before", y.Seq(nil, y.Flow())),
				y.Entry("after", y.Seq(nil, y.Flow())),
			}),
			y.WithHeadComment("# URLs receiving POST of task events, before and after each task."),
		),
	})
}

func Task(_ context.Context, cl flarc.Commandline[struct{}], _ []any) error {
	content, err := y.Encode(Template())
	if err != nil {
		return err
	}
	_, err = cl.Stdout().Write(content)
	return err
}
