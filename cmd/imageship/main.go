// Package main is the entry point for the imageship CLI.
//
// The binary builds container images and publishes them to a registry.
// All functionality lives in the internal/cli package, which defines
// the cobra commands; main only injects build-time version information
// and executes the root command.
package main

import (
	"github.com/appship/imageship/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
// During development they default to "dev", "none", and "unknown".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
