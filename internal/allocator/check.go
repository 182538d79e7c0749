package allocator

import "github.com/arbor-lang/segalloc/internal/allocerrors"

// CheckHeap is the debug consistency checker: a single arena walk
// verifying tiling, header/footer tag agreement, free-list membership
// against the freed bit and the size-class mapping, that no two
// adjacent blocks are both free, and that every block start is
// aligned. line is the caller's source line, reported alongside any
// violation found.
func (h *Heap) CheckHeap(line int) bool {
	ok := true

	members := make(map[blockRef]int, 64)
	for c := 0; c < h.tunables.ClassNum; c++ {
		for b := h.heads[c]; b != noBlock; b = h.headerAt(b).next {
			members[b] = c
		}
	}

	var walked uintptr

	var prevFreed bool

	var prevBlock blockRef

	first := true

	for b := blockRef(0); h.base+uintptr(b) < h.end; {
		hdr := h.headerAt(b)
		ft := h.footerOf(b)

		if hdr.size != ft.size || hdr.freed != ft.freed {
			ok = false
			h.reportViolation(line, allocerrors.TagMismatch(uintptr(b), "size/freed"))
		}

		if uintptr(b)%h.tunables.Alignment != 0 {
			ok = false
			h.reportViolation(line, allocerrors.Misalignment(uintptr(b), h.tunables.Alignment))
		}

		freed := hdr.freed != 0

		if !first && prevFreed && freed {
			ok = false
			h.reportViolation(line, allocerrors.UncoalescedNeighbors(uintptr(prevBlock), uintptr(b)))
		}

		class, onList := members[b]
		delete(members, b)

		if onList != freed {
			ok = false
			h.reportViolation(line, allocerrors.MembershipMismatch(uintptr(b), onList, freed))
		} else if freed {
			if want := h.classOf(hdr.size); want != class {
				ok = false
				h.reportViolation(line, allocerrors.MisclassifiedBlock(uintptr(b), hdr.size, want, class))
			}
		}

		walked += hdr.size
		prevFreed = freed
		prevBlock = b
		first = false
		b += blockRef(hdr.size)
	}

	if h.base+walked != h.end {
		ok = false
		h.reportViolation(line, allocerrors.TilingBroken(walked, h.end-h.base))
	}

	for b := range members {
		ok = false
		h.reportViolation(line, allocerrors.MembershipMismatch(uintptr(b), true, false))
	}

	return ok
}

func (h *Heap) reportViolation(line int, err *allocerrors.StandardError) {
	if h.logger != nil {
		h.logger.Error("checkheap:%d: %v", line, err)
	}
}
