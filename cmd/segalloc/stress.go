package main

import (
	"context"
	"flag"

	"github.com/arbor-lang/segalloc/internal/allocstress"
	"github.com/arbor-lang/segalloc/internal/cli"
	"github.com/arbor-lang/segalloc/internal/tuning"
)

// runStress drives internal/allocstress's randomized interleaving
// harness, optionally fanning out across several independent heap
// instances and optionally watching a tunables JSON file mid-run. Each
// reload of the watched file is logged; the reloaded tunables are not
// applied to the heaps, which always run with tuning.Default().
func runStress(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("stress", flag.ExitOnError)
	ops := fs.Int("ops", 100_000, "operations per instance")
	seed := fs.Int64("seed", 1, "base RNG seed")
	arenaCap := fs.Int64("arena-cap", 256<<20, "heap source ceiling in bytes")
	instances := fs.Int("instances", 1, "number of concurrent independent heap instances")
	verbose := fs.Bool("verbose", false, "verbose progress logging")
	debug := fs.Bool("debug", false, "debug logging")
	watchFile := fs.String("watch", "", "optional tunables JSON file to watch, logging each reload during the run")
	_ = fs.Parse(args)

	logger := cli.NewLogger(*verbose, *debug)

	if *watchFile != "" {
		w, err := tuning.NewWatcher(*watchFile, func(t tuning.Tunables) {
			logger.Info("tunables reloaded from %s (chunk_size=%d)", *watchFile, t.ChunkSize)
		})
		if err != nil {
			cli.ExitWithError("failed to watch %s: %v", *watchFile, err)
		}

		defer w.Close()
	}

	cfg := allocstress.Config{
		Seed:      *seed,
		Ops:       *ops,
		ArenaCap:  uintptr(*arenaCap),
		CheckEach: true,
		Logger:    logger,
	}

	n := *instances
	if n < 1 {
		n = 1
	}

	var err error
	if n == 1 {
		err = allocstress.Run(cfg)
	} else {
		err = allocstress.RunParallel(ctx, n, cfg)
	}

	if err != nil {
		cli.ExitWithError("stress run failed: %v", err)
	}

	logger.Info("stress run completed: %d instance(s), %d ops each", n, *ops)
}
