// Command segalloc is the reference driver for the segregated
// free-list heap allocator engine in internal/allocator: a thin CLI
// that bootstraps a heap, feeds it either a scripted trace or a
// randomized stress run, and reports checker/telemetry output.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arbor-lang/segalloc/internal/cli"
)

func usage() {
	cli.PrintUsage("segalloc", []cli.CommandInfo{
		{Name: "run", Description: "replay a scripted allocate/free/reallocate trace"},
		{Name: "stress", Description: "run the randomized interleaving stress harness"},
		{Name: "version", Description: "print version information"},
	})
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		runVersion(args)
	case "run":
		runTrace(args)
	case "stress":
		runStress(context.Background(), args)
	default:
		fmt.Fprintf(os.Stderr, "segalloc: unknown command %q\n\n", sub)
		usage()
		os.Exit(1)
	}
}
