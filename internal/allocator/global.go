package allocator

import (
	"unsafe"

	"github.com/arbor-lang/segalloc/internal/cli"
	"github.com/arbor-lang/segalloc/internal/heapsrc"
	"github.com/arbor-lang/segalloc/internal/tuning"
)

// Global is the process-wide Heap instance the package-level
// convenience functions forward to, per the design notes: the arena
// and free-list heads are owned by the process and accessed only
// through this API.
var Global *Heap

// Bootstrap creates and installs the process-wide Heap, replacing any
// previous one. It does not call Init; the caller must do that next.
func Bootstrap(src heapsrc.Source, t tuning.Tunables, logger *cli.Logger) error {
	h, err := NewHeap(src, t, logger)
	if err != nil {
		return err
	}

	Global = h

	return nil
}

// Init forwards to Global.Init. Panics if Bootstrap was never called.
func Init() bool {
	mustGlobal()
	return Global.Init()
}

func Allocate(size uintptr) unsafe.Pointer {
	mustGlobal()
	return Global.Allocate(size)
}

func Free(ptr unsafe.Pointer) {
	mustGlobal()
	Global.Free(ptr)
}

func Reallocate(ptr unsafe.Pointer, size int) unsafe.Pointer {
	mustGlobal()
	return Global.Reallocate(ptr, size)
}

func ZeroAllocate(count, size uintptr) unsafe.Pointer {
	mustGlobal()
	return Global.ZeroAllocate(count, size)
}

func CheckHeap(line int) bool {
	mustGlobal()
	return Global.CheckHeap(line)
}

func GetStats() Stats {
	mustGlobal()
	return Global.Stats()
}

func mustGlobal() {
	if Global == nil {
		panic("segalloc: global heap not bootstrapped")
	}
}
