package allocator

// mergeKind tags which of the four coalescing cases applies, a
// tagged enumeration dispatched from the (prevFree, nextFree) pair.
type mergeKind int

const (
	mergeNone mergeKind = iota
	mergeLeft
	mergeRight
	mergeBoth
)

func classifyMerge(prevFree, nextFree bool) mergeKind {
	switch {
	case prevFree && nextFree:
		return mergeBoth
	case prevFree:
		return mergeLeft
	case nextFree:
		return mergeRight
	default:
		return mergeNone
	}
}

// coalesce merges a freshly-freed block f with its free in-heap
// neighbors and inserts the result into its size class. f must
// already carry freed=true tags but must not yet be on any free list.
// Returns the block that now carries the merged region.
func (h *Heap) coalesce(f blockRef) blockRef {
	prev := h.prevBlock(f)
	next := h.nextBlock(f)

	prevFree := prev != noBlock && h.isFreed(prev)
	nextFree := next != noBlock && h.isFreed(next)

	var result blockRef

	switch classifyMerge(prevFree, nextFree) {
	case mergeNone:
		result = f
	case mergeLeft:
		h.unlink(prev)
		h.setTags(prev, h.blockSize(prev)+h.blockSize(f), true)
		result = prev
	case mergeRight:
		h.unlink(next)
		h.setTags(f, h.blockSize(f)+h.blockSize(next), true)
		result = f
	default: // mergeBoth
		h.unlink(next)
		h.unlink(prev)
		h.setTags(prev, h.blockSize(prev)+h.blockSize(f)+h.blockSize(next), true)
		result = prev
	}

	h.insert(result)

	return result
}
