package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/opst/alrun/cmd/alrun/subcommands/logger"
	"github.com/opst/alrun/pkg/configs/batch"
	"github.com/youta-t/flarc"
)

// DefaultBatchFile is the batch file read when --file is not given.
const DefaultBatchFile = "alrun.yaml"

type CommonFlags struct {
	File string `flag:"file" alias:"f" metavar:"path/to/batch.yaml" help:"batch file describing experiments"`
}

func Flags() CommonFlags {
	return CommonFlags{File: DefaultBatchFile}
}

// Task is a task of subcommand working on a batch file.
type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	file string,
	config batch.Config,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTask loads the batch file given by common flags, and then calls task.
//
// Missing batch file is reported as a usage error.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		l := logger.For(cl.Stderr(), cl.Fullname())

		conf, err := batch.Load(commonFlag.File)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf(
					"%w: batch file (%s) is not found. Try `alrun template > %s` to start",
					flarc.ErrUsage, commonFlag.File, DefaultBatchFile,
				)
			}
			return err
		}
		return task(ctx, l, commonFlag.File, conf, cl, newpos)
	}
}
