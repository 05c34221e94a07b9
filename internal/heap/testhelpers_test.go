package heap

import (
	"testing"

	"github.com/halcyon-systems/segheap/internal/config"
)

// newTestHeap constructs a Heap with a small arena increment so tests
// can force growth and stitching without allocating megabytes.
func newTestHeap(t *testing.T, arenaSize uintptr) *Heap {
	t.Helper()

	h, err := New(
		config.WithArenaSize(arenaSize),
		config.WithReserveSize(1<<24),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Cleanup(func() {
		_ = h.Close()
	})

	return h
}

// freeListLen counts the blocks currently sitting on free list idx.
func (h *Heap) freeListLen(idx int) int {
	sentinelHdr := &h.sentinels[idx].hdr
	n := 0

	for cur := linkOf(sentinelHdr).next; !sameAddr(cur, sentinelHdr); cur = linkOf(cur).next {
		n++
	}

	return n
}

// totalFreeBlocks counts every block across every free list.
func (h *Heap) totalFreeBlocks() int {
	n := 0
	for i := range h.sentinels {
		n += h.freeListLen(i)
	}

	return n
}
