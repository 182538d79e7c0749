package allocator

import "unsafe"

// counters are diagnostic-only tallies: not part of the
// allocate/free/realloc contract, exposed read-only via Stats.
type counters struct {
	mallocs uint64
	frees   uint64
	extends uint64
	live    uint64
	peak    uint64
}

func (h *Heap) updatePeak() {
	if h.stats.live > h.stats.peak {
		h.stats.peak = h.stats.live
	}
}

// payloadPtr converts a block offset to the payload pointer handed to
// callers (block start + HSIZE).
func (h *Heap) payloadPtr(b blockRef) unsafe.Pointer {
	return unsafe.Pointer(h.base + uintptr(b) + uintptr(hsize))
}

// ptrToBlock recovers the header offset from a payload pointer.
func (h *Heap) ptrToBlock(ptr unsafe.Pointer) blockRef {
	return blockRef(uintptr(ptr) - uintptr(hsize) - h.base)
}

// Init resets the heap and requests the initial chunk from the heap
// source. Returns false iff the heap source failed.
func (h *Heap) Init() bool {
	for i := range h.heads {
		h.heads[i] = noBlock
	}

	h.stats = counters{}
	h.base = 0
	h.end = 0

	initial := align(h.tunables.ChunkSize+uintptr(hsize)+uintptr(fsize), h.tunables.Alignment)

	base, ok := h.src.Extend(initial)
	if !ok {
		h.logf("init: heap source refused initial %d byte chunk", initial)
		return false
	}

	h.base = base
	h.end = base + initial
	h.stats.extends++

	h.setTags(0, initial, true)
	h.insert(0)

	return true
}

// Allocate returns a payload pointer to a newly allocated block, or
// nil for a zero-byte request or if the heap could not be extended
// far enough.
func (h *Heap) Allocate(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	asize := align(size+uintptr(hsize)+uintptr(fsize), h.tunables.Alignment)

	if f := h.findFit(asize); f != noBlock {
		b := h.split(f, asize)
		h.stats.mallocs++
		h.stats.live++
		h.updatePeak()

		return h.payloadPtr(b)
	}

	amount := h.extensionAmount(asize)

	extended := h.extendHeap(amount)
	if extended == noBlock {
		return nil
	}

	b := h.split(extended, asize)
	h.stats.mallocs++
	h.stats.live++
	h.updatePeak()

	return h.payloadPtr(b)
}

// Free releases the block owning ptr. ptr==nil is a no-op; the null
// check happens before any pointer arithmetic. Double-free and
// freeing a foreign pointer are undefined behavior, not detected here.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	b := h.ptrToBlock(ptr)
	h.setTags(b, h.blockSize(b), true)
	h.coalesce(b)

	h.stats.frees++
	h.stats.live--
}

// Reallocate resizes the block owning ptr, copying the overlapping
// payload prefix into a new block when it must move. size is signed
// so a negative value is observable rather than silently wrapping,
// the way an unsigned parameter would.
func (h *Heap) Reallocate(ptr unsafe.Pointer, size int) unsafe.Pointer {
	if size < 0 {
		return nil
	}

	if size == 0 {
		h.Free(ptr)
		return nil
	}

	if ptr == nil {
		return h.Allocate(uintptr(size))
	}

	b := h.ptrToBlock(ptr)
	oldTotal := h.blockSize(b)
	newTotal := align(uintptr(size)+uintptr(hsize)+uintptr(fsize), h.tunables.Alignment)

	if newTotal == oldTotal {
		return ptr
	}

	newPtr := h.Allocate(uintptr(size))
	if newPtr == nil {
		return nil
	}

	oldPayload := oldTotal - uintptr(hsize) - uintptr(fsize)
	newPayload := newTotal - uintptr(hsize) - uintptr(fsize)

	copySize := oldPayload
	if newPayload < copySize {
		copySize = newPayload
	}

	copyPayload(newPtr, ptr, copySize)
	h.Free(ptr)

	return newPtr
}

// ZeroAllocate allocates count*size bytes and zeroes the payload,
// detecting count*size overflow and returning nil rather than
// silently allocating a truncated block.
func (h *Heap) ZeroAllocate(count, size uintptr) unsafe.Pointer {
	if count == 0 || size == 0 {
		return nil
	}

	total := count * size
	if total/size != count {
		return nil
	}

	ptr := h.Allocate(total)
	if ptr == nil {
		return nil
	}

	zeroPayload(ptr, total)

	return ptr
}

// copyPayload copies n bytes from src to dst.
func copyPayload(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	dstSlice := unsafe.Slice((*byte)(dst), n)
	srcSlice := unsafe.Slice((*byte)(src), n)
	copy(dstSlice, srcSlice)
}

// zeroPayload fills n bytes starting at ptr with zero.
func zeroPayload(ptr unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	slice := unsafe.Slice((*byte)(ptr), n)
	for i := range slice {
		slice[i] = 0
	}
}
