package heap

import "unsafe"

// allocLocked implements the allocate path: normalize, best-fit
// search across the segregated lists, growing the heap and retrying
// until a fit exists. Must be called with h.mu held.
func (h *Heap) allocLocked(n uintptr) unsafe.Pointer {
	if n == 0 {
		return nil
	}

	size := roundSize(n)

	for {
		if b := h.findFit(size); b != nil {
			return h.takeBlock(b, size)
		}

		if err := h.growOnce(); err != nil {
			panic(err)
		}
	}
}

// takeBlock hands out b for a request of size bytes, splitting it if
// the remainder would still be usable as a standalone block.
func (h *Heap) takeBlock(b *header, size uintptr) unsafe.Pointer {
	if b.size()-size < minBlockSize {
		unlinkBlock(b)
		b.setState(stateAllocated)

		return headerToPtr(b)
	}

	return h.splitBlock(b, size)
}

// splitBlock splits b from the right: the left remainder keeps b's
// address and shrinks, the right remainder becomes the returned,
// newly allocated block. The left remainder is reinserted in place
// when its bucket hasn't changed, avoiding a list-head move.
func (h *Heap) splitBlock(b *header, size uintptr) unsafe.Pointer {
	oldIdx := indexFor(b.size())
	prev, next := linkOf(b).prev, linkOf(b).next
	unlinkBlock(b)

	remaining := b.size() - size
	b.setSizeState(remaining, stateFree)

	right := rightNeighborOf(b)
	right.setSizeState(size, stateAllocated)
	right.leftSize = remaining

	rightNeighborOf(right).leftSize = size

	if indexFor(remaining) == oldIdx {
		reinsertBetween(b, prev, next)
	} else {
		h.insertBlock(b)
	}

	return headerToPtr(right)
}
