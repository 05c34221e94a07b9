// Package heap implements a boundary-tagged, segregated-free-list heap
// allocator over memory obtained directly from the OS, guarded by a
// single process-wide mutex.
package heap

import "unsafe"

// blockState is the tag stored in the low bits of a header's sizeState
// field. A block is free, allocated, or a region-boundary fencepost.
type blockState uintptr

const (
	stateFree blockState = iota
	stateAllocated
	stateFencepost
)

const stateMask = 0x7

// alignment is the unit every block size is rounded up to (A in the
// design doc).
const alignment = 8

// header is the boundary tag every block carries: its total size
// (header included, state packed into the low bits) and the size of
// its immediate physical left neighbor. It deliberately carries no
// prev/next fields of its own — those live in the payload bytes that
// immediately follow the header, and are only meaningful while the
// block is free. See freeLink and linkOf.
type header struct {
	sizeState uintptr
	leftSize  uintptr
}

// headerSize is H: the number of bytes a block's boundary tag occupies.
// The payload begins exactly headerSize bytes past the header address.
const headerSize = unsafe.Sizeof(header{})

// minBlockSize is the smallest total block size: a free block must be
// able to hold a freeLink (two pointers) in its payload, and a
// freeLink occupies exactly headerSize bytes on every supported
// architecture (two words, same width as the two header fields).
const minBlockSize = 2 * headerSize

// freeLink is the intrusive doubly-linked-list node a free block's
// payload is reinterpreted as. It is never read or written while the
// owning block is allocated or a fencepost.
type freeLink struct {
	next *header
	prev *header
}

// sentinel is the storage for one segregated free list's head. Its
// layout mirrors header+freeLink with zero padding in between, so the
// same linkOf helper that walks real blocks also walks sentinels.
type sentinel struct {
	hdr  header
	link freeLink
}

func (h *header) size() uintptr {
	return h.sizeState &^ stateMask
}

func (h *header) state() blockState {
	return blockState(h.sizeState & stateMask)
}

func (h *header) setSize(size uintptr) {
	h.sizeState = size | uintptr(h.state())
}

func (h *header) setState(state blockState) {
	h.sizeState = h.size() | uintptr(state)
}

func (h *header) setSizeState(size uintptr, state blockState) {
	h.sizeState = size | uintptr(state)
}

// linkOf reinterprets the payload bytes immediately following h as a
// freeLink. Callers must only dereference the result while h is free.
func linkOf(h *header) *freeLink {
	return (*freeLink)(unsafe.Add(unsafe.Pointer(h), headerSize))
}

// headerToPtr returns the payload address a caller sees for block h.
func headerToPtr(h *header) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}

// ptrToHeader recovers the header for a payload pointer returned by
// Alloc/Calloc/Realloc.
func ptrToHeader(p unsafe.Pointer) *header {
	return (*header)(unsafe.Add(p, -int(headerSize)))
}

func rightNeighborOf(h *header) *header {
	return (*header)(unsafe.Add(unsafe.Pointer(h), h.size()))
}

func leftNeighborOf(h *header) *header {
	return (*header)(unsafe.Add(unsafe.Pointer(h), -int(h.leftSize)))
}

func sameAddr(a, b *header) bool {
	return unsafe.Pointer(a) == unsafe.Pointer(b)
}

// alignUp rounds n up to the nearest multiple of a.
func alignUp(n, a uintptr) uintptr {
	return (n + a - 1) &^ (a - 1)
}

// roundSize normalizes a raw caller request of n bytes to the smallest
// total block size s such that s >= n+H, s >= 2H, and s is a multiple
// of A.
func roundSize(n uintptr) uintptr {
	total := alignUp(n, alignment) + headerSize
	if total < minBlockSize {
		total = minBlockSize
	}

	return total
}
