package orchestrator

import (
	"path/filepath"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/experiment"
	"github.com/opst/alrun/pkg/domain/node"
)

// Layout decides where config.json of an experiment is placed.
type Layout string

const (
	// config.json is placed in "Runs" sub-directory of the experiment directory
	LayoutRuns Layout = "runs"

	// config.json is placed in the experiment directory
	LayoutFlat Layout = "flat"
)

// name of sub-directory for LayoutRuns
const RunsDir = "Runs"

// name of configuration files
const ConfigFile = "config.json"

func (l Layout) IsKnown() bool {
	return l == LayoutRuns || l == LayoutFlat
}

func AsLayout(s string) (Layout, error) {
	l := Layout(s)
	if s == "" {
		return LayoutRuns, nil
	}
	if !l.IsKnown() {
		return "", domain.NewConfigError(domain.ErrUnsupportedValue, "layout", s, "one of runs, flat")
	}
	return l, nil
}

// ConfigPath is the path of experiment config.json, in the experiment directory.
func (l Layout) ConfigPath(experimentDir string) string {
	if l == LayoutFlat {
		return filepath.Join(experimentDir, ConfigFile)
	}
	return filepath.Join(experimentDir, RunsDir, ConfigFile)
}

// DefaultRoot is the root directory of experiment trees, when not specified.
const DefaultRoot = "experiment"

// MaxRelativeLength is the ceiling of experiment directories relative to the root.
//
// It is the room left for TASK/FOLDER/IDENTITY in node.MaxLength characters under DefaultRoot.
const MaxRelativeLength = node.MaxLength - len(DefaultRoot) - 1

// ExperimentDir is the directory of the experiment:
//
//	ROOT/TASK/FOLDER/IDENTITY
//
// where FOLDER is exp.Folder() and IDENTITY is the flat identity of the active learner.
//
// TASK/FOLDER/IDENTITY is truncated to MaxRelativeLength characters, and ROOT is kept as it is.
// Different experiments of a task can share a directory after truncation, and it is not detected.
func ExperimentDir(root string, exp *experiment.Experiment) string {
	rel := filepath.Join(exp.Task(), exp.Folder(), node.Identity(exp.ActiveLearner()))
	return filepath.Join(root, node.Truncate(rel, MaxRelativeLength))
}

// MetricConfigPath is the path of config.json for the metric token, in the experiment directory.
func MetricConfigPath(experimentDir string, token string) string {
	return filepath.Join(experimentDir, token, ConfigFile)
}
