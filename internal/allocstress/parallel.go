package allocstress

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunParallel runs n independent single-threaded stress sessions
// concurrently, one goroutine per Heap instance. Each instance is
// exercised only from its own goroutine, so no Heap is ever touched
// from more than one goroutine even though the overall stress run
// fans out for wall-clock coverage.
func RunParallel(ctx context.Context, n int, base Config) error {
	g, _ := errgroup.WithContext(ctx)

	for i := 0; i < n; i++ {
		cfg := base
		cfg.Seed = base.Seed + int64(i)

		g.Go(func() error {
			return Run(cfg)
		})
	}

	return g.Wait()
}
