package heap

import (
	"fmt"
	"unsafe"
)

// growOnce requests one ARENA_SIZE growth increment from the OS
// primitive, installs fenceposts at both ends, and either stitches the
// new region into the block immediately left of the previous region's
// right fencepost (when the two are physically adjacent) or records it
// as a standalone region and frees its interior block.
func (h *Heap) growOnce() error {
	mem, err := h.arena.grow(h.arenaSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}

	leftFP := (*header)(mem)
	leftFP.setSizeState(headerSize, stateFencepost)
	leftFP.leftSize = headerSize

	interiorSize := h.arenaSize - 2*headerSize
	interior := (*header)(unsafe.Add(mem, headerSize))
	interior.setSizeState(interiorSize, stateFree)
	interior.leftSize = headerSize

	rightFP := (*header)(unsafe.Add(mem, h.arenaSize-headerSize))
	rightFP.setSizeState(headerSize, stateFencepost)
	rightFP.leftSize = interiorSize

	if h.lastFencePost != nil && sameAddr(leftFP, rightNeighborOf(h.lastFencePost)) {
		h.logger.Printf("stitching %d-byte growth onto the previous region at %p", h.arenaSize, mem)
		h.stitch(rightFP, interiorSize)
	} else {
		h.logger.Printf("recording new %d-byte region at %p (region #%d)", h.arenaSize, mem, len(h.osChunks)+1)
		h.recordRegion(leftFP)
		h.insertBlock(interior)
	}

	h.lastFencePost = rightFP

	return nil
}

// stitch absorbs the two now-adjacent fenceposts (the previous
// region's right fencepost and the new region's left fencepost) into
// whichever free block ends up spanning them, per the growth-adjacency
// rule: if the block to the left of the old fencepost was allocated,
// the fenceposts plus the new interior block become one new free block
// starting at the old fencepost's address; if it was already free, it
// is enlarged in place instead.
func (h *Heap) stitch(newRightFP *header, interiorSize uintptr) {
	oldFP := h.lastFencePost
	leftOfOldFP := leftNeighborOf(oldFP)
	regionGrowth := 2*headerSize + interiorSize

	if leftOfOldFP.state() != stateFree {
		oldFP.setSizeState(regionGrowth, stateFree)
		h.insertBlock(oldFP)
		newRightFP.leftSize = oldFP.size()

		return
	}

	oldIdx := indexFor(leftOfOldFP.size())
	leftOfOldFP.setSize(leftOfOldFP.size() + regionGrowth)
	newRightFP.leftSize = leftOfOldFP.size()

	if indexFor(leftOfOldFP.size()) != oldIdx {
		unlinkBlock(leftOfOldFP)
		h.insertBlock(leftOfOldFP)
	}
}

// recordRegion appends a newly grown, non-adjacent region's left
// fencepost to the bounded debug chunk list, used only by Verify. Once
// the list holds maxOSChunks entries, further regions are silently not
// recorded (the earlier entries are kept), matching the original
// allocator's insert_os_chunk bound check.
func (h *Heap) recordRegion(leftFP *header) {
	if h.base == nil {
		h.base = unsafe.Pointer(leftFP)
	}

	if len(h.osChunks) >= h.maxOSChunks {
		return
	}

	h.osChunks = append(h.osChunks, leftFP)
}
