package main

import (
	"flag"

	semver "github.com/Masterminds/semver/v3"

	"github.com/arbor-lang/segalloc/internal/cli"
)

// runVersion prints build information and, if --min-version is given,
// fails the process when the build is older than that semantic
// version. This lets a driver harness pin a minimum allocator
// revision before trusting its behavior.
func runVersion(args []string) {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "output version info as JSON")
	minVersion := fs.String("min-version", "", "fail if the build is older than this semantic version")
	_ = fs.Parse(args)

	if *minVersion != "" {
		want, err := semver.NewVersion(*minVersion)
		if err != nil {
			cli.ExitWithError("invalid --min-version %q: %v", *minVersion, err)
		}

		got, err := semver.NewVersion(cli.Version)
		if err != nil {
			cli.ExitWithError("invalid build version %q: %v", cli.Version, err)
		}

		if got.LessThan(want) {
			cli.ExitWithCode(3, "segalloc %s is older than required minimum %s", got, want)
		}
	}

	cli.PrintVersion("segalloc", *jsonOut)
}
