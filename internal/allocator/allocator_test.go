package allocator

import (
	"testing"
	"unsafe"

	"github.com/arbor-lang/segalloc/internal/heapsrc"
	"github.com/arbor-lang/segalloc/internal/tuning"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()

	src := heapsrc.NewByteArena(16 << 20)

	h, err := NewHeap(src, tuning.Default(), nil)
	if err != nil {
		t.Fatalf("NewHeap failed: %v", err)
	}

	if !h.Init() {
		t.Fatalf("Init failed")
	}

	return h
}

func writePattern(ptr unsafe.Pointer, n int, seed byte) {
	data := unsafe.Slice((*byte)(ptr), n)
	for i := range data {
		data[i] = seed + byte(i%256)
	}
}

func checkPattern(t *testing.T, ptr unsafe.Pointer, n int, seed byte) {
	t.Helper()

	data := unsafe.Slice((*byte)(ptr), n)
	for i := range data {
		if data[i] != seed+byte(i%256) {
			t.Fatalf("pattern mismatch at byte %d: got %d want %d", i, data[i], seed+byte(i%256))
		}
	}
}

func TestBasicAllocation(t *testing.T) {
	h := newTestHeap(t)

	t.Run("ZeroSizeReturnsNil", func(t *testing.T) {
		if ptr := h.Allocate(0); ptr != nil {
			t.Error("Allocate(0) should return nil")
		}
	})

	t.Run("AllocateWriteFree", func(t *testing.T) {
		ptr := h.Allocate(1024)
		if ptr == nil {
			t.Fatal("Allocate(1024) failed")
		}

		writePattern(ptr, 1024, 7)
		checkPattern(t, ptr, 1024, 7)

		h.Free(ptr)

		if !h.CheckHeap(0) {
			t.Fatal("heap invariants violated after free")
		}
	})

	t.Run("FreeNilIsNoop", func(t *testing.T) {
		h.Free(nil)

		if !h.CheckHeap(0) {
			t.Fatal("heap invariants violated after Free(nil)")
		}
	})

	t.Run("PayloadIsAligned", func(t *testing.T) {
		for _, size := range []uintptr{1, 3, 17, 129, 4000} {
			ptr := h.Allocate(size)
			if ptr == nil {
				t.Fatalf("Allocate(%d) failed", size)
			}

			if uintptr(ptr)%h.tunables.Alignment != 0 {
				t.Errorf("payload for size %d is not %d-aligned: %x", size, h.tunables.Alignment, ptr)
			}

			h.Free(ptr)
		}
	})
}

// TestFreeingTwoAdjacentAllocationsCoalesces verifies that two
// same-size allocations, both freed, merge into one free block.
func TestFreeingTwoAdjacentAllocationsCoalesces(t *testing.T) {
	h := newTestHeap(t)

	a := h.Allocate(32)
	b := h.Allocate(32)

	if a == nil || b == nil {
		t.Fatal("allocation failed")
	}

	h.Free(a)
	h.Free(b)

	if !h.CheckHeap(0) {
		t.Fatal("heap invariants violated")
	}

	stats := h.Stats()

	total := 0
	for _, c := range stats.ClassCounts {
		total += c
	}

	if total != 1 {
		t.Errorf("expected exactly 1 free block after coalescing, got %d", total)
	}
}

// TestAllocateSplitsAndLeavesRemainderFree verifies that the initial
// free chunk splits and a sizable remainder stays free.
func TestAllocateSplitsAndLeavesRemainderFree(t *testing.T) {
	h := newTestHeap(t)

	before := h.Stats()

	p := h.Allocate(16)
	if p == nil {
		t.Fatal("allocate(16) failed")
	}

	after := h.Stats()

	if after.ArenaBytes != before.ArenaBytes {
		t.Fatalf("allocate(16) should not need to extend the arena, arena grew from %d to %d", before.ArenaBytes, after.ArenaBytes)
	}

	total := 0
	for _, c := range after.ClassCounts {
		total += c
	}

	if total != 1 {
		t.Errorf("expected exactly 1 remaining free block after split, got %d", total)
	}
}

// TestFreeingMiddleBlockCoalescesBothNeighbors verifies that freeing
// a block sitting between two already-free neighbors merges all three
// into a single free block.
func TestFreeingMiddleBlockCoalescesBothNeighbors(t *testing.T) {
	h := newTestHeap(t)

	a := h.Allocate(64)
	b := h.Allocate(64)
	c := h.Allocate(64)

	if a == nil || b == nil || c == nil {
		t.Fatal("allocation failed")
	}

	h.Free(a)
	h.Free(c)
	h.Free(b)

	if !h.CheckHeap(0) {
		t.Fatal("heap invariants violated")
	}

	stats := h.Stats()

	total := 0
	for _, cnt := range stats.ClassCounts {
		total += cnt
	}

	if total != 1 {
		t.Errorf("expected exactly 1 free block after coalescing, got %d", total)
	}
}

// TestExtendReusesFreeTailShortfall verifies that when the last
// in-heap block is free of size F and a request needs A > F bytes,
// the heap source is asked for exactly A-F bytes.
func TestExtendReusesFreeTailShortfall(t *testing.T) {
	h := newTestHeap(t)

	// Drain the initial chunk down to a small free tail by allocating
	// almost all of it, leaving a known-size free block at the end.
	stats := h.Stats()
	initial := stats.ArenaBytes

	tailTarget := align(64+uintptr(hsize)+uintptr(fsize), h.tunables.Alignment)
	bigChunk := initial - tailTarget - uintptr(hsize) - uintptr(fsize)

	big := h.Allocate(bigChunk)
	if big == nil {
		t.Fatalf("setup allocation of %d bytes failed", bigChunk)
	}

	before := h.Stats()

	asize := align(4096+uintptr(hsize)+uintptr(fsize), h.tunables.Alignment)

	p := h.Allocate(4096)
	if p == nil {
		t.Fatal("allocate(4096) failed")
	}

	after := h.Stats()

	grew := after.ArenaBytes - before.ArenaBytes
	lastFreeSize := tailTarget

	want := asize - lastFreeSize
	if grew != want {
		t.Errorf("expected heap to grow by exactly %d bytes (shortfall), grew by %d", want, grew)
	}

	h.Free(big)
	h.Free(p)
}

// TestReallocateGrowPreservesPrefix verifies that growing a block
// preserves the original prefix bytes.
func TestReallocateGrowPreservesPrefix(t *testing.T) {
	h := newTestHeap(t)

	p := h.Allocate(16)
	if p == nil {
		t.Fatal("allocate(16) failed")
	}

	writePattern(p, 16, 0xAB)

	q := h.Reallocate(p, 1024)
	if q == nil {
		t.Fatal("reallocate grow failed")
	}

	checkPattern(t, q, 16, 0xAB)

	h.Free(q)
}

// TestReallocateShrinkPreservesPrefix verifies that shrinking a block
// preserves the retained prefix bytes.
func TestReallocateShrinkPreservesPrefix(t *testing.T) {
	h := newTestHeap(t)

	p := h.Allocate(1024)
	if p == nil {
		t.Fatal("allocate(1024) failed")
	}

	writePattern(p, 1024, 0x5A)

	q := h.Reallocate(p, 16)
	if q == nil {
		t.Fatal("reallocate shrink failed")
	}

	checkPattern(t, q, 16, 0x5A)

	h.Free(q)
}

func TestReallocateBoundaryBehaviors(t *testing.T) {
	h := newTestHeap(t)

	t.Run("NilActsLikeAllocate", func(t *testing.T) {
		q := h.Reallocate(nil, 64)
		if q == nil {
			t.Fatal("reallocate(nil, 64) should behave like allocate(64)")
		}

		h.Free(q)
	})

	t.Run("ZeroSizeFreesAndReturnsNil", func(t *testing.T) {
		p := h.Allocate(64)
		if p == nil {
			t.Fatal("allocate(64) failed")
		}

		q := h.Reallocate(p, 0)
		if q != nil {
			t.Error("reallocate(p, 0) should return nil")
		}

		if !h.CheckHeap(0) {
			t.Fatal("heap invariants violated")
		}
	})

	t.Run("NegativeSizeReturnsNil", func(t *testing.T) {
		p := h.Allocate(64)
		if p == nil {
			t.Fatal("allocate(64) failed")
		}

		q := h.Reallocate(p, -1)
		if q != nil {
			t.Error("reallocate(p, -1) should return nil")
		}

		h.Free(p)
	})

	t.Run("SameSizeReturnsSamePointer", func(t *testing.T) {
		p := h.Allocate(64)
		if p == nil {
			t.Fatal("allocate(64) failed")
		}

		q := h.Reallocate(p, 64)
		if q != p {
			t.Errorf("reallocate(p, old_size) should return p unchanged, got a different pointer")
		}

		h.Free(q)
	})
}

func TestCheckHeapAcrossInterleavedTraffic(t *testing.T) {
	h := newTestHeap(t)

	sizes := []uintptr{1, 16, 48, 100, 512, 2048}

	var live []unsafe.Pointer

	for i, size := range sizes {
		for j := 0; j < 5; j++ {
			ptr := h.Allocate(size)
			if ptr == nil {
				t.Fatalf("allocate(%d) iteration %d failed", size, j)
			}

			live = append(live, ptr)

			if !h.CheckHeap(i*5 + j) {
				t.Fatalf("heap invariants violated after allocate #%d", i*5+j)
			}
		}
	}

	for i, ptr := range live {
		if i%2 == 0 {
			h.Free(ptr)

			if !h.CheckHeap(i) {
				t.Fatalf("heap invariants violated after free #%d", i)
			}
		}
	}

	for i, ptr := range live {
		if i%2 != 0 {
			h.Free(ptr)
		}
	}

	if !h.CheckHeap(0) {
		t.Fatal("heap invariants violated at the end")
	}
}

func TestZeroAllocate(t *testing.T) {
	h := newTestHeap(t)

	t.Run("ZeroCountOrSizeReturnsNil", func(t *testing.T) {
		if ptr := h.ZeroAllocate(0, 10); ptr != nil {
			t.Error("ZeroAllocate(0, 10) should return nil")
		}

		if ptr := h.ZeroAllocate(10, 0); ptr != nil {
			t.Error("ZeroAllocate(10, 0) should return nil")
		}
	})

	t.Run("PayloadIsZeroed", func(t *testing.T) {
		ptr := h.ZeroAllocate(16, 8)
		if ptr == nil {
			t.Fatal("ZeroAllocate(16, 8) failed")
		}

		data := unsafe.Slice((*byte)(ptr), 16*8)
		for i, b := range data {
			if b != 0 {
				t.Fatalf("byte %d not zeroed: %d", i, b)
			}
		}

		h.Free(ptr)
	})

	t.Run("OverflowDetected", func(t *testing.T) {
		huge := ^uintptr(0) / 2
		if ptr := h.ZeroAllocate(huge, huge); ptr != nil {
			t.Error("ZeroAllocate should detect count*size overflow and return nil")
		}
	})
}

func TestClassOf(t *testing.T) {
	h := newTestHeap(t)

	cases := []struct {
		size uintptr
		want int
	}{
		{1, 0},
		{48, 0},
		{64, 1},
		{128, 2},
		{1 << 20, h.tunables.ClassNum - 1},
	}

	for _, c := range cases {
		if got := h.classOf(c.size); got != c.want {
			t.Errorf("classOf(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestHeapExhaustion(t *testing.T) {
	src := heapsrc.NewByteArena(1024)

	h, err := NewHeap(src, tuning.Default(), nil)
	if err != nil {
		t.Fatalf("NewHeap failed: %v", err)
	}

	if h.Init() {
		t.Skip("arena large enough for initial chunk; exhaustion test needs a smaller ceiling")
	}
}

func TestHeapExhaustionAfterInit(t *testing.T) {
	src := heapsrc.NewByteArena(8192)

	h, err := NewHeap(src, tuning.Default(), nil)
	if err != nil {
		t.Fatalf("NewHeap failed: %v", err)
	}

	if !h.Init() {
		t.Fatal("Init failed")
	}

	for i := 0; i < 10000; i++ {
		ptr := h.Allocate(256)
		if ptr == nil {
			// Resource exhaustion: the call returns nil without
			// corrupting the heap.
			if !h.CheckHeap(i) {
				t.Fatal("heap invariants violated after exhaustion")
			}

			return
		}
	}

	t.Fatal("expected the arena to exhaust within 10000 allocations of a 8KiB ceiling")
}
