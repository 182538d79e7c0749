// Package allocator implements a single-threaded, segregated
// free-list heap allocator over one monotonically growing arena:
// boundary-tagged blocks, size-classed free lists, coalescing on
// free, splitting on allocate, and a heap-extension policy that
// reuses a free tail block.
package allocator

import (
	"fmt"

	"github.com/arbor-lang/segalloc/internal/cli"
	"github.com/arbor-lang/segalloc/internal/heapsrc"
	"github.com/arbor-lang/segalloc/internal/tuning"
)

// Heap owns the entire mutable state of one allocator instance: the
// arena bounds and the segregated free-list heads. The package-level
// convenience functions (Init, Allocate, Free, ...) forward to one
// process-wide instance for driver compatibility.
type Heap struct {
	src      heapsrc.Source
	tunables tuning.Tunables
	logger   *cli.Logger

	base uintptr // heap_base: fixed after Init
	end  uintptr // heap_end: advances monotonically

	heads []blockRef // one per size class

	stats counters
}

// NewHeap constructs a Heap bound to src with the given tunables. The
// arena is not requested until Init is called.
func NewHeap(src heapsrc.Source, t tuning.Tunables, logger *cli.Logger) (*Heap, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if t.MinClassSize < uintptr(hsize+fsize) {
		return nil, fmt.Errorf("min class size %d cannot hold a block header+footer (%d bytes)", t.MinClassSize, uintptr(hsize+fsize))
	}

	heads := make([]blockRef, t.ClassNum)
	for i := range heads {
		heads[i] = noBlock
	}

	return &Heap{src: src, tunables: t, logger: logger, heads: heads}, nil
}

// lastBlock returns the rightmost block in the heap, or noBlock if the
// heap has not been initialized yet.
func (h *Heap) lastBlock() blockRef {
	if h.end == h.base {
		return noBlock
	}

	footerOff := blockRef(h.end-h.base) - blockRef(fsize)

	return h.headerOfFooter(footerOff)
}

func (h *Heap) logf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Debug(format, args...)
	}
}
