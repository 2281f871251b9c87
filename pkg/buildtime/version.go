// Package buildtime holds what is fixed when alrun is built.
//
// VERSION and revision files are written by the release process.
package buildtime

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var version string

//go:embed revision
var revision string

const unknown = "unknown"

func init() {
	version = strings.TrimSpace(version)
	revision = strings.TrimSpace(revision)
	if revision == "" || revision == unknown {
		revision = vcsRevision()
	}
}

// vcsRevision is the commit recorded by the go toolchain, if any.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknown
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return unknown
}

func Version() string {
	return version
}

// Revision is the commit alrun is built from, or "unknown".
func Revision() string {
	return revision
}

func VersionString() string {
	return version + " (commit: " + revision + ")"
}

// UserAgent is the value of User-Agent header sent by alrun.
func UserAgent() string {
	return "alrun/" + version
}
