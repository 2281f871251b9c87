package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/opst/alrun/cmd/alrun/subcommands/common"
	"github.com/opst/alrun/pkg/buildtime"
	"github.com/opst/alrun/pkg/configs/batch"
	"github.com/opst/alrun/pkg/engine"
	"github.com/opst/alrun/pkg/hook"
	"github.com/opst/alrun/pkg/orchestrator"
	"github.com/opst/alrun/pkg/utils/filewatch"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

type Flag struct {
	Watch   bool   `flag:"watch" alias:"w" help:"Stop before the next task when the batch file is modified."`
	BatchId string `flag:"batch-id" metavar:"ID" help:"Id of this batch, sent to hooks. (default: random UUID)"`
}

// EngineFactory creates engine running command, writing its output into stdout and stderr.
type EngineFactory func(command []string, stdout, stderr io.Writer) (engine.Engine, error)

// ProcessEngine is EngineFactory of local process.
func ProcessEngine(command []string, stdout, stderr io.Writer) (engine.Engine, error) {
	return engine.NewProcess(command, engine.WithOutput(stdout, stderr))
}

type Option struct {
	newEngine EngineFactory
}

func WithEngine(f EngineFactory) func(*Option) *Option {
	return func(o *Option) *Option {
		o.newEngine = f
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{newEngine: ProcessEngine}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"Run experiments of the batch.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task(option.newEngine)),
		flarc.WithDescription(`
Run each task of the batch with the experiment engine, one by one.

For each task, config files are written into its experiment directory (existing ones are kept as they are),
and then the engine is invoked. A failed task does not stop the batch.

	{{ .Command }} --file batch.yaml

With --watch, editing the batch file stops the batch before the next task.
The running engine is not interrupted.

This command exits with non-zero status when some tasks failed.
`),
	)
}

func Task(newEngine EngineFactory) common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		file string,
		conf batch.Config,
		cl flarc.Commandline[Flag],
		_ []any,
	) error {
		flags := cl.Flags()

		plans, err := conf.Batch.Plan()
		if err != nil {
			return fmt.Errorf("batch is not runnable: %w", err)
		}

		// stdout is for the report.
		eng, err := newEngine(conf.Engine, cl.Stderr(), cl.Stderr())
		if err != nil {
			return err
		}

		if flags.Watch {
			wctx, cancel, err := filewatch.UntilModifyContext(ctx, file)
			if err != nil {
				return fmt.Errorf("cannot watch %s: %w", file, err)
			}
			defer cancel()
			ctx = wctx
		}

		options := []orchestrator.Option{}
		if !conf.Hooks.IsEmpty() {
			options = append(options, orchestrator.WithHook(hook.Web[orchestrator.TaskEvent]{
				BeforeURL: conf.Hooks.Before,
				AfterURL:  conf.Hooks.After,
				UserAgent: buildtime.UserAgent(),
			}))
		}
		if flags.BatchId != "" {
			options = append(options, orchestrator.WithBatchId(flags.BatchId))
		}

		orch := orchestrator.New(logger, eng, options...)
		logger.Printf("batch %s: %d task(s)", orch.BatchId(), len(plans))
		report, runErr := orch.Run(ctx, plans)

		enc := yaml.NewEncoder(cl.Stdout())
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}

		if runErr != nil {
			if errors.Is(runErr, filewatch.ErrModified) {
				return fmt.Errorf("batch is stopped since the batch file is modified: %w", runErr)
			}
			return fmt.Errorf("batch is stopped: %w", runErr)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("%d task(s) failed: %w", len(report.Failed()), err)
		}
		return nil
	}
}
