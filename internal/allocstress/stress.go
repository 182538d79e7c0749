// Package allocstress drives random allocate/free/reallocate traffic
// over a fixed size distribution, checking heap consistency between
// operations.
package allocstress

import (
	"fmt"
	"math/rand"
	"unsafe"

	"github.com/arbor-lang/segalloc/internal/allocator"
	"github.com/arbor-lang/segalloc/internal/cli"
	"github.com/arbor-lang/segalloc/internal/heapsrc"
	"github.com/arbor-lang/segalloc/internal/tuning"
)

// Sizes is the default request-size distribution for stress runs.
var Sizes = []uintptr{1, 16, 48, 100, 512, 2048, 10000}

// Config controls one stress run.
type Config struct {
	Seed      int64
	Ops       int
	ArenaCap  uintptr // ceiling passed to the backing heap source
	CheckEach bool    // run CheckHeap between every operation
	Logger    *cli.Logger
}

// DefaultConfig runs 10^5 operations, enough to exercise repeated
// heap extension and coalescing under realistic churn.
func DefaultConfig() Config {
	return Config{
		Seed:      1,
		Ops:       100_000,
		ArenaCap:  256 << 20,
		CheckEach: true,
	}
}

type liveObject struct {
	ptr  unsafe.Pointer
	size uintptr
}

// Run drives one single-threaded allocator instance through cfg.Ops
// random allocate/free/reallocate operations, returning an error the
// first time a heap invariant is violated. Resource exhaustion
// (Allocate/Reallocate returning nil because the arena ceiling was
// hit) is not an error: it's a defined outcome that simply removes
// that op's effect from the live set.
func Run(cfg Config) error {
	src, err := heapsrc.NewDefault(cfg.ArenaCap)
	if err != nil {
		return fmt.Errorf("allocstress: failed to create heap source: %w", err)
	}

	h, err := allocator.NewHeap(src, tuning.Default(), cfg.Logger)
	if err != nil {
		return fmt.Errorf("allocstress: failed to construct heap: %w", err)
	}

	if !h.Init() {
		return fmt.Errorf("allocstress: initial chunk request failed")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	live := make(map[int]liveObject)
	nextTag := 0

	randomSize := func() uintptr { return Sizes[rng.Intn(len(Sizes))] }

	randomLiveTag := func() (int, bool) {
		if len(live) == 0 {
			return 0, false
		}

		target := rng.Intn(len(live))

		i := 0
		for tag := range live {
			if i == target {
				return tag, true
			}

			i++
		}

		return 0, false
	}

	for i := 0; i < cfg.Ops; i++ {
		switch rng.Intn(3) {
		case 0: // allocate
			size := randomSize()

			ptr := h.Allocate(size)
			if ptr != nil {
				live[nextTag] = liveObject{ptr: ptr, size: size}
				nextTag++
			}
		case 1: // free
			if tag, ok := randomLiveTag(); ok {
				h.Free(live[tag].ptr)
				delete(live, tag)
			}
		default: // reallocate
			if tag, ok := randomLiveTag(); ok {
				newSize := randomSize()
				obj := live[tag]

				newPtr := h.Reallocate(obj.ptr, int(newSize))
				if newSize == 0 {
					delete(live, tag)
				} else if newPtr != nil {
					live[tag] = liveObject{ptr: newPtr, size: newSize}
				}
				// newPtr == nil with newSize > 0 is resource
				// exhaustion; the original pointer is left untouched
				// and still valid, so it stays live.
			}
		}

		if cfg.CheckEach && !h.CheckHeap(0) {
			return fmt.Errorf("allocstress: invariant violated after op %d", i)
		}
	}

	arenaBytes := h.Stats().ArenaBytes
	liveBytes := uintptr(0)

	for _, obj := range live {
		liveBytes += obj.size
	}

	if arenaBytes > 0 && liveBytes > 0 && arenaBytes > liveBytes*8+tuning.DefaultChunkSize*8 {
		return fmt.Errorf("allocstress: arena grew to %d bytes against %d live payload bytes, suspected leak", arenaBytes, liveBytes)
	}

	return nil
}
