package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/opst/alrun/cmd/alrun/subcommands/common"
	"github.com/opst/alrun/cmd/alrun/subcommands/logger"
	subplan "github.com/opst/alrun/cmd/alrun/subcommands/plan"
	subrun "github.com/opst/alrun/cmd/alrun/subcommands/run"
	subshow "github.com/opst/alrun/cmd/alrun/subcommands/show"
	subtpl "github.com/opst/alrun/cmd/alrun/subcommands/template"
	subver "github.com/opst/alrun/cmd/alrun/subcommands/version"
	"github.com/opst/alrun/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	// tasks not started yet are skipped on interrupt. a running engine receives the signal by itself.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	run := try.To(subrun.New()).OrFatal(logger)
	plan := try.To(subplan.New()).OrFatal(logger)
	show := try.To(subshow.New()).OrFatal(logger)
	template := try.To(subtpl.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	alrun := try.To(
		flarc.NewCommandGroup(
			"Run batches of active learning experiments with an external engine",
			common.Flags(),
			flarc.WithSubcommand("run", run),
			flarc.WithSubcommand("plan", plan),
			flarc.WithSubcommand("show", show),
			flarc.WithSubcommand("template", template),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, alrun, flarc.WithHelp(true)))
}
