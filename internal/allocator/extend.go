package allocator

// extendHeap requests n bytes from the external heap source, formats
// them as one free block, coalesces with the previous last block if
// it was free, and returns the (now free-listed) resulting block.
// Returns noBlock if the source refused the request.
func (h *Heap) extendHeap(n uintptr) blockRef {
	base, ok := h.src.Extend(n)
	if !ok {
		h.logf("extendHeap: source refused %d bytes", n)
		return noBlock
	}

	newBlock := blockRef(base - h.base)
	h.end += n
	h.setTags(newBlock, n, true)
	h.stats.extends++

	return h.coalesce(newBlock)
}

// extensionAmount computes how many bytes to request from the heap
// source to satisfy an allocation of asize. If the current last block
// is free, only the shortfall beyond its existing size is requested,
// since the extension will coalesce with it. "No last block at all"
// (an uninitialized heap) is treated as a distinct case from "last
// block is allocated", rather than conflating the two.
func (h *Heap) extensionAmount(asize uintptr) uintptr {
	last := h.lastBlock()

	switch {
	case last == noBlock:
		return maxUintptr(asize, h.tunables.ChunkSize)
	case h.isFreed(last):
		lastSize := h.blockSize(last)
		if asize > lastSize {
			return asize - lastSize
		}

		return 0
	default:
		return maxUintptr(asize, h.tunables.ChunkSize)
	}
}

func maxUintptr(a, b uintptr) uintptr {
	if a > b {
		return a
	}

	return b
}
