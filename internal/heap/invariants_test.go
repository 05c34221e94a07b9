package heap

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInvariantsHoldAfterRandomWorkload drives a randomized sequence of
// allocate/free calls over a single Heap and checks, after every
// operation, that Verify reports no broken invariant (P1, P2, P4, P5).
func TestInvariantsHoldAfterRandomWorkload(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	rng := rand.New(rand.NewSource(42))

	var live []unsafe.Pointer

	for i := 0; i < 500; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			h.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		} else {
			n := uintptr(1 + rng.Intn(256))
			if p := h.Alloc(n); p != nil {
				live = append(live, p)
			}
		}

		ok, violations := h.Verify()
		require.Truef(t, ok, "invariant violated at step %d: %v", i, violations)
	}

	for _, p := range live {
		h.Free(p)
	}

	ok, violations := h.Verify()
	assert.True(t, ok, "invariants broken after draining every live allocation: %v", violations)
}

// TestCoalescingBothNeighborsReducesFreeBlockCountByTwo covers L3:
// freeing a block whose left and right physical neighbors are both
// already free merges three free blocks into one. Only the two
// neighbors were on the lists beforehand, so the list count drops by
// one.
func TestCoalescingBothNeighborsReducesFreeBlockCountByTwo(t *testing.T) {
	h := newTestHeap(t, 1<<16)

	a := h.Alloc(8)
	b := h.Alloc(8)
	c := h.Alloc(8)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	h.Free(a)
	h.Free(c)

	before := h.totalFreeBlocks()
	h.Free(b)
	after := h.totalFreeBlocks()

	assert.Equal(t, before-1, after, "freeing a block between two free neighbors should merge three free blocks into one")

	ok, violations := h.Verify()
	assert.True(t, ok, "invariants broken after both-neighbor coalesce: %v", violations)
}

// TestFreeBlockMultisetMatchesAcrossEquivalentSchedules covers L2: two
// different interleavings of the same multiset of allocate/free
// operations, chosen so that the live set at the end is identical,
// leave the heap in the same free-block shape.
func TestFreeBlockMultisetMatchesAcrossEquivalentSchedules(t *testing.T) {
	runA := func(h *Heap) {
		a := h.Alloc(16)
		b := h.Alloc(32)
		h.Free(a)
		c := h.Alloc(16)
		h.Free(b)
		h.Free(c)
	}

	runB := func(h *Heap) {
		a := h.Alloc(16)
		b := h.Alloc(32)
		c := h.Alloc(16)
		h.Free(b)
		h.Free(a)
		h.Free(c)
	}

	h1 := newTestHeap(t, 1<<16)
	runA(h1)

	h2 := newTestHeap(t, 1<<16)
	runB(h2)

	assert.Equal(t, h1.totalFreeBlocks(), h2.totalFreeBlocks())

	for i := 0; i < nLists; i++ {
		assert.Equalf(t, h1.freeListLen(i), h2.freeListLen(i), "free list %d length diverged between equivalent schedules", i)
	}
}
