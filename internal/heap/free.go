package heap

import (
	"syscall"
	"unsafe"
)

var doubleFreeMessage = []byte("segheap: double free detected\n")

// writeDoubleFreeDiagnostic reports a double free without allocating:
// the free-list invariants are already broken by the time this runs,
// so the diagnostic path must not call back into the allocator (no
// fmt, no log — both allocate). A direct write to the stderr file
// descriptor is the only safe option, mirroring the original
// allocator's write(2, msg, strlen(msg)) fallback.
func writeDoubleFreeDiagnostic() {
	_, _ = syscall.Write(2, doubleFreeMessage)
}

// freeLocked implements the free path: recover the header, check for
// double-free, mark it free, and coalesce with whichever physical
// neighbors are themselves free. Must be called with h.mu held.
func (h *Heap) freeLocked(p unsafe.Pointer) {
	if p == nil {
		return
	}

	b := ptrToHeader(p)
	if b.state() == stateFree {
		writeDoubleFreeDiagnostic()
		panic(ErrDoubleFree)
	}

	b.setState(stateFree)

	left := leftNeighborOf(b)
	right := rightNeighborOf(b)
	leftFree := left.state() == stateFree
	rightFree := right.state() == stateFree

	switch {
	case !leftFree && !rightFree:
		h.insertBlock(b)

	case leftFree && !rightFree:
		oldIdx := indexFor(left.size())
		coalesce(left, b)

		if indexFor(left.size()) != oldIdx {
			unlinkBlock(left)
			h.insertBlock(left)
		}

		right.leftSize = left.size()

	case !leftFree && rightFree:
		prev, next := linkOf(right).prev, linkOf(right).next
		unlinkBlock(right)
		oldIdx := indexFor(right.size())
		coalesce(b, right)
		rightNeighborOf(b).leftSize = b.size()

		if indexFor(b.size()) == oldIdx {
			reinsertBetween(b, prev, next)
		} else {
			h.insertBlock(b)
		}

	default: // both neighbors free
		// prev/next are left's list neighbors captured after right is
		// unlinked, so they stay valid even when right was one of left's
		// neighbors on the same list.
		unlinkBlock(right)
		prev, next := linkOf(left).prev, linkOf(left).next
		unlinkBlock(left)
		oldIdx := indexFor(left.size())
		coalesce(left, b)
		coalesce(left, right)
		rightNeighborOf(left).leftSize = left.size()

		if indexFor(left.size()) == oldIdx {
			reinsertBetween(left, prev, next)
		} else {
			h.insertBlock(left)
		}
	}
}

// coalesce absorbs b into a, which must already be free: a grows to
// cover b's bytes. a's left_size and state are untouched.
func coalesce(a, b *header) {
	a.setSize(a.size() + b.size())
}
