package allocator

import "math/bits"

// classOf maps a block size to one of h.tunables.ClassNum segregated
// free-list buckets: clamp(floor(log2(size)) - Shift, 0, ClassNum-1),
// with sizes below MinClassSize treated as MinClassSize.
func (h *Heap) classOf(size uintptr) int {
	if size < h.tunables.MinClassSize {
		size = h.tunables.MinClassSize
	}

	floorLog2 := bits.Len(uint(size)) - 1
	class := floorLog2 - int(h.tunables.Shift)

	if class < 0 {
		class = 0
	}

	if class > h.tunables.ClassNum-1 {
		class = h.tunables.ClassNum - 1
	}

	return class
}

// insert pushes b onto the head of its size class's free list
// (LIFO). The caller must have already set b's tags (size,
// freed=true) via setTags.
func (h *Heap) insert(b blockRef) {
	c := h.classOf(h.blockSize(b))
	hdr := h.headerAt(b)
	hdr.prev = noBlock
	hdr.next = h.heads[c]

	if h.heads[c] != noBlock {
		h.headerAt(h.heads[c]).prev = b
	}

	h.heads[c] = b
}

// unlink removes b from the free list selected by its *current* size.
// Callers must not mutate a block's size between unlink and the next
// insert.
func (h *Heap) unlink(b blockRef) {
	hdr := h.headerAt(b)
	c := h.classOf(hdr.size)

	if hdr.prev != noBlock {
		h.headerAt(hdr.prev).next = hdr.next
	} else {
		h.heads[c] = hdr.next
	}

	if hdr.next != noBlock {
		h.headerAt(hdr.next).prev = hdr.prev
	}

	hdr.next = noBlock
	hdr.prev = noBlock
}
